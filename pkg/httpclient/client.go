package httpclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/inercia/go-baski/pkg/httperr"
	"github.com/inercia/go-baski/pkg/pacing"
)

// Client is safe for concurrent use. The pacer is the only serialization
// point between callers.
type Client struct {
	cfg    config
	pacer  pacing.Pacer
	logger *slog.Logger

	mu      sync.Mutex
	refs    int
	session *Session
}

// New creates a client.
func New(opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt.apply(&cfg)
	}
	if cfg.err != nil {
		return nil, cfg.err
	}

	logger := cfg.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	pacer := cfg.pacer
	if pacer == nil {
		dest := cfg.baseURL
		if dest == "" {
			dest = "destination"
		}
		pacer = pacing.New(dest, cfg.minInterval)
	}

	return &Client{cfg: cfg, pacer: pacer, logger: logger}, nil
}

// budget holds the remaining retries of one logical request. Response level
// retries (429, 504) and transport level retries are counted separately.
type budget struct {
	response  int
	transport int
}

// Fetch sends one logical request inside its own session scope and returns
// the decoded body.
func (c *Client) Fetch(ctx context.Context, target string, opts ...RequestOption) (any, error) {
	s := c.Acquire()
	defer c.Release()
	return c.Request(ctx, s, target, opts...)
}

// Request sends one logical request on s and returns the decoded body.
func (c *Client) Request(ctx context.Context, s *Session, target string, opts ...RequestOption) (any, error) {
	r, u, err := c.prepare(s, target, opts)
	if err != nil {
		return nil, err
	}

	resp, data, err := c.dispatch(ctx, s, r, u, budget{r.maxAttempts, r.maxAttempts}, true, r.failFast)
	if err != nil {
		return nil, err
	}
	body, err := Decode(resp.Header.Get("Content-Type"), data)
	if err != nil {
		return nil, httperr.Malformed(err).WithRequestID(r.requestID)
	}
	return body, nil
}

// Stream sends one logical request and hands the successful response body
// to the caller unread. The session scope ends when the body is closed.
func (c *Client) Stream(ctx context.Context, target string, opts ...RequestOption) (io.ReadCloser, error) {
	s := c.Acquire()
	r, u, err := c.prepare(s, target, opts)
	if err != nil {
		c.Release()
		return nil, err
	}

	resp, _, err := c.dispatch(ctx, s, r, u, budget{r.maxAttempts, r.maxAttempts}, false, r.failFast)
	if err != nil {
		c.Release()
		return nil, err
	}
	return &streamBody{ReadCloser: resp.Body, release: sync.OnceFunc(c.Release)}, nil
}

type streamBody struct {
	io.ReadCloser
	release func()
}

func (b *streamBody) Close() error {
	defer b.release()
	return b.ReadCloser.Close()
}

func (c *Client) prepare(s *Session, target string, opts []RequestOption) (*requestConfig, string, error) {
	if s == nil || s.Closed() {
		return nil, "", httperr.New(httperr.KindGeneric, 0, "session is closed")
	}
	r, err := c.newRequestConfig(opts)
	if err != nil {
		return nil, "", err
	}
	u, err := c.resolve(target, r.query)
	if err != nil {
		return nil, "", err
	}
	return r, u, nil
}

// dispatch paces and sends one attempt, retrying on 429/504 responses and on
// transport failures while the budget lasts. With buffered set the body of a
// 200 response is read before returning, so failures while reading it count
// as transport failures. failFast only applies to the first dispatch;
// retries always wait for their slot.
func (c *Client) dispatch(ctx context.Context, s *Session, r *requestConfig, target string, b budget, buffered, failFast bool) (*http.Response, []byte, error) {
	if err := c.pacer.Wait(ctx, failFast); err != nil {
		return nil, nil, annotate(err, r.requestID)
	}

	req, err := c.newHTTPRequest(ctx, target, r)
	if err != nil {
		return nil, nil, err
	}

	c.logger.Debug("sending request", "method", r.method, "url", req.URL.Redacted(), "request_id", r.requestID)
	resp, err := s.http.Do(req)
	if err != nil {
		return c.retryTransport(ctx, s, r, target, b, buffered, err)
	}

	if isRetryableStatus(resp.StatusCode) && b.response > 0 {
		drain(resp)
		c.logger.Warn("another attempt after response status",
			"url", req.URL.Redacted(),
			"status", resp.StatusCode,
			"remaining", b.response,
			"request_id", r.requestID)
		b.response--
		return c.dispatch(ctx, s, r, target, b, buffered, false)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, nil, c.statusError(resp, r.requestID)
	}

	if !buffered {
		return resp, nil, nil
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.retryTransport(ctx, s, r, target, b, buffered, err)
	}
	return resp, data, nil
}

func (c *Client) retryTransport(ctx context.Context, s *Session, r *requestConfig, target string, b budget, buffered bool, cause error) (*http.Response, []byte, error) {
	if ctx.Err() != nil {
		return nil, nil, ctx.Err()
	}
	err := httperr.FromTransport(cause)
	if b.transport > 0 {
		c.logger.Warn("another attempt after transport failure",
			"url", target,
			"kind", httperr.KindOf(err).String(),
			"remaining", b.transport,
			"request_id", r.requestID,
			"error", cause)
		b.transport--
		return c.dispatch(ctx, s, r, target, b, buffered, false)
	}
	return nil, nil, annotate(err, r.requestID)
}

func (c *Client) statusError(resp *http.Response, requestID string) error {
	data, _ := io.ReadAll(resp.Body)
	body, err := Decode(resp.Header.Get("Content-Type"), data)
	if err != nil {
		body = string(data)
	}

	classified := httperr.Classify(resp.StatusCode, reason(resp), body)
	e, ok := httperr.As(classified)
	if !ok {
		return classified
	}
	e.RequestID = requestID
	e.RetryAfter = retryAfter(resp.Header.Get("Retry-After"))
	c.logger.Debug("request failed", "status", resp.StatusCode, "kind", e.Kind.String(), "request_id", requestID)
	return e
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusGatewayTimeout
}

func reason(resp *http.Response) string {
	prefix := strconv.Itoa(resp.StatusCode) + " "
	if len(resp.Status) > len(prefix) && resp.Status[:len(prefix)] == prefix {
		return resp.Status[len(prefix):]
	}
	return http.StatusText(resp.StatusCode)
}

// retryAfter parses a Retry-After header given either in seconds or as an
// HTTP date.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}

func annotate(err error, requestID string) error {
	var e *httperr.Error
	if errors.As(err, &e) && e.RequestID == "" {
		return e.WithRequestID(requestID)
	}
	return err
}
