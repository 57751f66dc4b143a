package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/fiscalreg/internal/platform/kv"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newTestStore(t *testing.T) (*Store, *kv.Memory) {
	t.Helper()
	backend := kv.NewMemory()
	store, err := NewStore(context.Background(), backend, WithIDGenerator(sequentialIDs()))
	require.NoError(t, err)
	return store, backend
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errBackendDown = errors.New("backend down")

// flakyBackend fails reads or writes on demand.
type flakyBackend struct {
	*kv.Memory
	failGet bool
	failSet bool
}

func (f *flakyBackend) Get(ctx context.Context, key string) (string, error) {
	if f.failGet {
		return "", errBackendDown
	}
	return f.Memory.Get(ctx, key)
}

func (f *flakyBackend) Set(ctx context.Context, key, value string) error {
	if f.failSet {
		return errBackendDown
	}
	return f.Memory.Set(ctx, key, value)
}

// stubLookup records calls and returns canned answers.
type stubLookup struct {
	regExists  bool
	yearExists bool
	overlap    Overlap
	err        error
	calls      int
}

func (s *stubLookup) RegistrationNumberExists(ctx context.Context, number, excludeID string) (bool, error) {
	s.calls++
	return s.regExists, s.err
}

func (s *stubLookup) FiscalYearExists(ctx context.Context, companyID, year, excludeID string) (bool, error) {
	s.calls++
	return s.yearExists, s.err
}

func (s *stubLookup) DateOverlap(ctx context.Context, companyID, start, end, excludeID string) (Overlap, error) {
	s.calls++
	return s.overlap, s.err
}
