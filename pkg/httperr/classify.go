package httperr

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"syscall"
)

type statusRange struct {
	lo, hi int
	kind   Kind
}

// classification is checked top to bottom; the first matching range wins.
var classification = []statusRange{
	{401, 403, KindUnauthorized},
	{404, 404, KindNotFound},
	{400, 499, KindBadRequest},
	{500, 999, KindServerError},
}

func kindForStatus(status int) Kind {
	for _, r := range classification {
		if status >= r.lo && status <= r.hi {
			return r.kind
		}
	}
	return KindGeneric
}

// Classify maps an HTTP response onto the taxonomy. It returns nil for 200
// and an *Error carrying body for everything else.
func Classify(status int, reason string, body any) error {
	if status == http.StatusOK {
		return nil
	}
	if reason == "" {
		reason = http.StatusText(status)
	}
	return &Error{Kind: kindForStatus(status), StatusCode: status, Message: reason, Body: body}
}

// FromStatus is the mapping used for errors reported by provider SDKs. It
// differs from Classify only for 429, which providers use to signal rate
// limiting and which is therefore a transient timeout.
func FromStatus(status int, message string) *Error {
	kind := kindForStatus(status)
	if status == http.StatusTooManyRequests {
		kind = KindTimeout
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return &Error{Kind: kind, StatusCode: status, Message: message}
}

// FromTransport classifies an error returned by the transport before any
// response was received. Cancellation is passed through untouched, and
// errors that are already classified are returned as they are.
func FromTransport(err error) error {
	if err == nil || errors.Is(err, context.Canceled) {
		return err
	}
	if _, ok := As(err); ok {
		return err
	}
	return &Error{Kind: transportKind(err), Message: "transport failure", Err: err}
}

func transportKind(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var (
		dnsErr     *net.DNSError
		opErr      *net.OpError
		recordErr  tls.RecordHeaderError
		certErr    *tls.CertificateVerificationError
		unknownCA  x509.UnknownAuthorityError
		hostErr    x509.HostnameError
		invalidErr x509.CertificateInvalidError
	)
	switch {
	case errors.As(err, &dnsErr),
		errors.As(err, &opErr),
		errors.As(err, &recordErr),
		errors.As(err, &certErr),
		errors.As(err, &unknownCA),
		errors.As(err, &hostErr),
		errors.As(err, &invalidErr),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, io.EOF):
		return KindConnection
	}
	return KindGeneric
}
