// Package providerr holds the error conversion shared by the provider
// adapters. SDK specific error types are handled by each provider first;
// whatever remains goes through Convert.
package providerr

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/inercia/go-baski/pkg/httperr"
)

// statusHints are matched against error messages of SDKs that do not expose
// typed errors.
var statusHints = []struct {
	needles []string
	status  int
}{
	{[]string{"429", "rate limit", "too many requests", "resource_exhausted", "throttl"}, 429},
	{[]string{"401", "unauthorized", "invalid api key", "api key not valid", "unauthenticated"}, 401},
	{[]string{"403", "forbidden", "permission_denied", "access denied"}, 403},
	{[]string{"404", "not found", "not_found"}, 404},
	{[]string{"400", "bad request", "invalid_argument", "invalid request", "validation"}, 400},
	{[]string{"503", "unavailable", "overloaded"}, 503},
	{[]string{"500", "502", "internal error", "internal server error", "bad gateway"}, 500},
}

// Convert classifies err. Cancellation and already classified errors pass
// through unchanged.
func Convert(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	if _, ok := httperr.As(err); ok {
		return err
	}

	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return httperr.Malformed(err)
	}

	if classified := FromStatus(0, err); classified != nil {
		return classified
	}
	return httperr.FromTransport(err)
}

// FromStatus builds a provider error from an HTTP status. A zero status is
// guessed from the error message; nil is returned when nothing matches.
func FromStatus(status int, err error) error {
	msg := err.Error()
	if status == 0 {
		status = guessStatus(msg)
	}
	if status == 0 {
		return nil
	}
	e := httperr.FromStatus(status, msg)
	e.Err = err
	return e
}

func guessStatus(msg string) int {
	lower := strings.ToLower(msg)
	for _, h := range statusHints {
		for _, n := range h.needles {
			if strings.Contains(lower, n) {
				return h.status
			}
		}
	}
	return 0
}
