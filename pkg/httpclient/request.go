package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

type requestConfig struct {
	method      string
	data        any
	form        url.Values
	query       url.Values
	header      http.Header
	maxAttempts int
	failFast    bool

	payload     []byte
	contentType string
	requestID   string
}

// RequestOption configures a single Fetch, Request or Stream call.
type RequestOption func(*requestConfig)

// Method sets the HTTP method. GET is the default.
func Method(m string) RequestOption {
	return func(r *requestConfig) { r.method = strings.ToUpper(m) }
}

// JSON sends v serialized as the JSON request body.
func JSON(v any) RequestOption {
	return func(r *requestConfig) { r.data = v }
}

// Form sends values as an urlencoded request body.
func Form(values url.Values) RequestOption {
	return func(r *requestConfig) { r.form = values }
}

// Query adds values to the URL query string.
func Query(values url.Values) RequestOption {
	return func(r *requestConfig) {
		for k, vs := range values {
			for _, v := range vs {
				r.query.Add(k, v)
			}
		}
	}
}

// Param adds a single query parameter.
func Param(key, value string) RequestOption {
	return func(r *requestConfig) { r.query.Add(key, value) }
}

// Header sets a header for this request only.
func Header(key, value string) RequestOption {
	return func(r *requestConfig) { r.header.Set(key, value) }
}

// MaxAttempts overrides the client's retry budget for this request.
func MaxAttempts(n int) RequestOption {
	return func(r *requestConfig) {
		if n >= 0 {
			r.maxAttempts = n
		}
	}
}

// FailFast makes the request fail with a rate limit error instead of
// waiting for its pacing slot.
func FailFast() RequestOption {
	return func(r *requestConfig) { r.failFast = true }
}

func (c *Client) newRequestConfig(opts []RequestOption) (*requestConfig, error) {
	r := &requestConfig{
		method:      http.MethodGet,
		query:       make(url.Values),
		header:      make(http.Header),
		maxAttempts: c.cfg.maxAttempts,
		requestID:   c.cfg.newRequestID(),
	}
	for _, opt := range opts {
		opt(r)
	}

	switch {
	case r.form != nil:
		r.payload = []byte(r.form.Encode())
		r.contentType = ContentTypeForm
	case r.data != nil:
		b, err := json.Marshal(r.data)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		r.payload = b
		r.contentType = ContentTypeJSON
	}
	return r, nil
}

func (c *Client) resolve(target string, query url.Values) (string, error) {
	raw := target
	if c.cfg.baseURL != "" && !strings.Contains(target, "://") {
		raw = strings.TrimRight(c.cfg.baseURL, "/") + "/" + strings.TrimLeft(target, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URL %q: %w", raw, err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// newHTTPRequest builds a fresh request for one dispatch; bodies are
// rebuilt per attempt.
func (c *Client) newHTTPRequest(ctx context.Context, target string, r *requestConfig) (*http.Request, error) {
	var body io.Reader
	if r.payload != nil {
		body = bytes.NewReader(r.payload)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, target, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range c.cfg.header {
		req.Header[k] = append([]string(nil), vs...)
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	for k, vs := range r.header {
		req.Header[k] = append([]string(nil), vs...)
	}
	if c.cfg.requestIDHeader != "" && r.requestID != "" {
		req.Header.Set(c.cfg.requestIDHeader, r.requestID)
	}
	return req, nil
}
