package httpclient

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/inercia/go-baski/pkg/pacing"
)

const (
	DefaultTimeout         = 3 * time.Minute
	DefaultMaxAttempts     = 2
	DefaultRequestIDHeader = "X-Request-ID"
	DefaultUserAgent       = "Mozilla/5.0 (iPad; CPU OS 16_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.5 Mobile/15E148 Safari/604.1"

	ContentTypeJSON = "application/json"
	ContentTypeXML  = "application/xml"
	ContentTypeForm = "application/x-www-form-urlencoded"
)

type config struct {
	baseURL         string
	header          http.Header
	timeout         time.Duration
	minInterval     time.Duration
	maxAttempts     int
	proxy           *url.URL
	transport       http.RoundTripper
	middleware      []Middleware
	pacer           pacing.Pacer
	logger          *slog.Logger
	requestIDHeader string
	newRequestID    func() string
	err             error
}

func defaultConfig() config {
	h := make(http.Header)
	h.Set("User-Agent", DefaultUserAgent)
	h.Set("Content-Type", ContentTypeJSON)
	return config{
		header:          h,
		timeout:         DefaultTimeout,
		maxAttempts:     DefaultMaxAttempts,
		requestIDHeader: DefaultRequestIDHeader,
		newRequestID:    uuid.NewString,
	}
}

// Option configures a Client.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

// WithBaseURL sets the URL relative request targets are resolved against.
func WithBaseURL(base string) Option {
	return optionFunc(func(c *config) { c.baseURL = base })
}

// WithHeader sets a header sent with every request.
func WithHeader(key, value string) Option {
	return optionFunc(func(c *config) { c.header.Set(key, value) })
}

// WithUserAgent overrides the default User-Agent.
func WithUserAgent(ua string) Option {
	return WithHeader("User-Agent", ua)
}

// WithTimeout bounds a single transport call, body included.
func WithTimeout(d time.Duration) Option {
	return optionFunc(func(c *config) {
		if d > 0 {
			c.timeout = d
		}
	})
}

// WithMinInterval sets the pacing interval between dispatches. It is
// ignored when WithPacer is also given.
func WithMinInterval(d time.Duration) Option {
	return optionFunc(func(c *config) { c.minInterval = d })
}

// WithMaxAttempts sets the default per-request retry budget.
func WithMaxAttempts(n int) Option {
	return optionFunc(func(c *config) {
		if n >= 0 {
			c.maxAttempts = n
		}
	})
}

// WithProxy routes requests through the given proxy URL.
func WithProxy(raw string) Option {
	return optionFunc(func(c *config) {
		if raw == "" {
			return
		}
		u, err := url.Parse(raw)
		if err != nil {
			c.err = fmt.Errorf("invalid proxy %q: %w", raw, err)
			return
		}
		c.proxy = u
	})
}

// WithTransport injects the transport used by every session. By default
// each session gets its own tuned *http.Transport.
func WithTransport(rt http.RoundTripper) Option {
	return optionFunc(func(c *config) { c.transport = rt })
}

// WithMiddleware appends round-tripper middleware. The first one given is
// the outermost.
func WithMiddleware(mw ...Middleware) Option {
	return optionFunc(func(c *config) { c.middleware = append(c.middleware, mw...) })
}

// WithPacer shares a pacer between clients that target one destination.
func WithPacer(p pacing.Pacer) Option {
	return optionFunc(func(c *config) { c.pacer = p })
}

func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *config) { c.logger = l })
}

// WithRequestIDHeader names the header that carries the logical request id.
// An empty name disables it.
func WithRequestIDHeader(name string) Option {
	return optionFunc(func(c *config) { c.requestIDHeader = name })
}
