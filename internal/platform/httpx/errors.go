package httpx

import (
	"errors"
	"net/http"
)

// StatusRule maps errors matching Target (via errors.Is) to Status.
type StatusRule struct {
	Target error
	Status int
}

// StatusOf returns the status of the first rule matching err, or 500.
func StatusOf(err error, rules ...StatusRule) int {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			return rule.Status
		}
	}
	return http.StatusInternalServerError
}

// RespondError maps err to an RFC7807 response and returns the status used.
// Unmatched errors become a 500 without detail so internals do not leak.
func RespondError(w http.ResponseWriter, err error, rules ...StatusRule) int {
	status := StatusOf(err, rules...)
	if status == http.StatusInternalServerError {
		Problem(w, status, "Internal Error", "")
		return status
	}
	Problem(w, status, http.StatusText(status), err.Error())
	return status
}
