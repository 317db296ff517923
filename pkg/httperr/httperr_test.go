package httperr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{400, KindBadRequest},
		{401, KindUnauthorized},
		{402, KindUnauthorized},
		{403, KindUnauthorized},
		{404, KindNotFound},
		{409, KindBadRequest},
		{429, KindBadRequest},
		{499, KindBadRequest},
		{500, KindServerError},
		{503, KindServerError},
		{504, KindServerError},
		{201, KindGeneric},
		{302, KindGeneric},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.status), func(t *testing.T) {
			err := Classify(tt.status, "", map[string]any{"detail": "x"})
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "status %d classified as %v", tt.status, KindOf(err))

			e, ok := As(err)
			require.True(t, ok)
			assert.Equal(t, tt.status, e.StatusCode)
			assert.Equal(t, map[string]any{"detail": "x"}, e.Body)
		})
	}
}

func TestClassify_OK(t *testing.T) {
	assert.NoError(t, Classify(200, "OK", "body"))
}

func TestClassify_DefaultReason(t *testing.T) {
	e, ok := As(Classify(404, "", nil))
	require.True(t, ok)
	assert.Equal(t, "Not Found", e.Message)
	assert.Equal(t, "bad HTTP code 404: Not Found", e.Error())
}

func TestFromStatus_RateLimitIsTransient(t *testing.T) {
	e := FromStatus(429, "slow down")
	assert.Equal(t, KindTimeout, e.Kind)
	assert.True(t, e.Kind.Transient())

	assert.Equal(t, KindUnauthorized, FromStatus(401, "").Kind)
	assert.Equal(t, KindServerError, FromStatus(502, "").Kind)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestFromTransport(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"net timeout", &net.OpError{Op: "read", Err: timeoutErr{}}, KindTimeout},
		{"reset", fmt.Errorf("read: %w", syscall.ECONNRESET), KindConnection},
		{"dns", &net.DNSError{Err: "no such host", Name: "example.invalid"}, KindConnection},
		{"eof", io.ErrUnexpectedEOF, KindConnection},
		{"other", errors.New("boom"), KindGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromTransport(tt.err)
			assert.Equal(t, tt.want, KindOf(err))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestFromTransport_Cancellation(t *testing.T) {
	err := FromTransport(context.Canceled)
	assert.Same(t, context.Canceled, err)

	_, ok := As(err)
	assert.False(t, ok)
}

func TestUnavailable(t *testing.T) {
	last := New(KindTimeout, 504, "gateway timeout")
	err := Unavailable("OpenAI", last)

	assert.Equal(t, "OpenAI is not available", err.Error())
	assert.True(t, IsKind(err, KindUnavailable))
	assert.False(t, IsKind(err, KindTimeout))
}

func TestRateLimited(t *testing.T) {
	err := RateLimited("api.example.com")
	assert.Equal(t, KindTimeout, err.Kind)
	assert.Equal(t, 429, err.StatusCode)
	assert.Contains(t, err.Error(), "rate limit api.example.com exceeded")
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("fetching: %w", New(KindNotFound, 404, "missing").WithRequestID("abc"))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Contains(t, err.Error(), "(request abc)")
	assert.Equal(t, KindGeneric, KindOf(errors.New("plain")))
}
