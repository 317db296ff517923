package httpclient

import (
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"
)

// RoundTripperFunc adapts a function to an http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// Middleware decorates a round tripper.
type Middleware func(next http.RoundTripper) http.RoundTripper

func chain(rt http.RoundTripper, mw []Middleware) http.RoundTripper {
	for i := len(mw) - 1; i >= 0; i-- {
		rt = mw[i](rt)
	}
	return rt
}

// Logging logs every round trip at debug level.
func Logging(logger *slog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(req)
			attrs := []any{
				"method", req.Method,
				"url", req.URL.Redacted(),
				"duration", time.Since(start),
				"request_id", req.Header.Get(DefaultRequestIDHeader),
			}
			if err != nil {
				logger.Debug("http round trip failed", append(attrs, "error", err)...)
				return nil, err
			}
			logger.Debug("http round trip", append(attrs, "status", resp.StatusCode)...)
			return resp, nil
		})
	}
}

// newTransport returns a tuned clone of http.DefaultTransport.
func newTransport(proxy *url.URL) *http.Transport {
	base, _ := http.DefaultTransport.(*http.Transport)
	if base == nil {
		return &http.Transport{}
	}
	t := base.Clone()
	t.DialContext = (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext
	t.TLSHandshakeTimeout = 10 * time.Second
	t.IdleConnTimeout = 90 * time.Second
	if t.MaxIdleConns == 0 {
		t.MaxIdleConns = 200
	}
	if t.MaxIdleConnsPerHost == 0 {
		t.MaxIdleConnsPerHost = 50
	}
	t.ForceAttemptHTTP2 = true
	if proxy != nil {
		t.Proxy = http.ProxyURL(proxy)
	}
	return t
}
