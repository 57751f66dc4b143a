// Package kv provides the key/value backends that hold the registry collections.
//
// Every backend stores opaque string values under string keys, the same
// contract a browser's localStorage offers. Collections are written whole on
// every mutation, so backends only need Get and Set.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("kv: key not found")

// Backend is the minimal storage contract used by the registry store.
type Backend interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}
