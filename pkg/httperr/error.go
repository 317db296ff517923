package httperr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error is a classified failure.
type Error struct {
	Kind       Kind
	StatusCode int
	Message    string
	// Body is the decoded response body, when there was one.
	Body any
	// RequestID identifies the logical request that failed.
	RequestID string
	// RetryAfter is a provider hint on how long to wait before retrying.
	RetryAfter time.Duration
	// Service is set on KindUnavailable errors.
	Service string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	switch {
	case e.Kind == KindUnavailable:
		fmt.Fprintf(&b, "%s is not available", serviceName(e.Service))
	case e.StatusCode > 0:
		fmt.Fprintf(&b, "bad HTTP code %d", e.StatusCode)
		if e.Message != "" {
			b.WriteString(": ")
			b.WriteString(e.Message)
		}
	case e.Message != "":
		b.WriteString(e.Message)
	default:
		b.WriteString(e.Kind.String())
	}
	if e.RequestID != "" {
		fmt.Fprintf(&b, " (request %s)", e.RequestID)
	}
	if e.Err != nil && e.Kind != KindUnavailable {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes the cause. An unavailable error hides its last cause so
// that it never matches a transient kind.
func (e *Error) Unwrap() error {
	if e.Kind == KindUnavailable {
		return nil
	}
	return e.Err
}

// Is matches a bare Kind against the error's kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && e.Kind == k
}

// WithRequestID returns a copy of e annotated with a request id.
func (e *Error) WithRequestID(id string) *Error {
	cp := *e
	cp.RequestID = id
	return &cp
}

func serviceName(s string) string {
	if s == "" {
		return "service"
	}
	return s
}

// As extracts the *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindGeneric when err is unclassified.
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return KindGeneric
}

// IsKind reports whether err is classified as one of kinds.
func IsKind(err error, kinds ...Kind) bool {
	if err == nil {
		return false
	}
	for _, k := range kinds {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

// New builds an error of the given kind.
func New(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, StatusCode: status, Message: message}
}

// Unavailable is returned once retries for service are exhausted.
func Unavailable(service string, last error) *Error {
	return &Error{Kind: KindUnavailable, Service: service, Message: "retries exhausted", Err: last}
}

// RateLimited is the fail-fast error of a pacing limiter for dest.
func RateLimited(dest string) *Error {
	return &Error{Kind: KindTimeout, StatusCode: 429, Message: fmt.Sprintf("rate limit %s exceeded", dest)}
}

// Malformed wraps a failure to decode a provider response. Garbage from the
// server is treated as a server error so that it is retried.
func Malformed(err error) *Error {
	return &Error{Kind: KindServerError, Message: "malformed response", Err: err}
}
