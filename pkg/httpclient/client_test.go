package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inercia/go-baski/pkg/httperr"
	"github.com/inercia/go-baski/pkg/pacing"
)

type countingPacer struct {
	mu    sync.Mutex
	calls int
}

func (p *countingPacer) Wait(ctx context.Context, _ bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return ctx.Err()
}

func (p *countingPacer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func response(req *http.Request, status int, contentType, body string) *http.Response {
	h := make(http.Header)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	return &http.Response{
		StatusCode: status,
		Status:     fmt.Sprintf("%d %s", status, http.StatusText(status)),
		Header:     h,
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    req,
	}
}

// scripted replays one step per transport call.
type scripted struct {
	mu    sync.Mutex
	steps []func(*http.Request) (*http.Response, error)
	calls int
}

func (s *scripted) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	s.mu.Unlock()
	if i >= len(s.steps) {
		return nil, fmt.Errorf("unexpected call %d", i+1)
	}
	return s.steps[i](req)
}

func status(code int, contentType, body string) func(*http.Request) (*http.Response, error) {
	return func(req *http.Request) (*http.Response, error) {
		return response(req, code, contentType, body), nil
	}
}

func fail(err error) func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) { return nil, err }
}

func newScriptedClient(t *testing.T, steps ...func(*http.Request) (*http.Response, error)) (*Client, *scripted, *countingPacer) {
	t.Helper()
	rt := &scripted{steps: steps}
	p := &countingPacer{}
	c, err := New(WithBaseURL("https://api.example.com"), WithTransport(rt), WithPacer(p))
	require.NoError(t, err)
	return c, rt, p
}

func TestRequest_RetriesRateLimitedResponse(t *testing.T) {
	c, rt, p := newScriptedClient(t,
		status(429, "", ""),
		status(200, ContentTypeJSON, `{"ok":true}`),
	)

	body, err := c.Fetch(context.Background(), "/items", MaxAttempts(2))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, body)
	assert.Equal(t, 2, rt.calls)
	assert.Equal(t, 2, p.count())
}

func TestRequest_GatewayTimeoutExhausted(t *testing.T) {
	c, rt, _ := newScriptedClient(t,
		status(504, "text/plain", "upstream"),
		status(504, "text/plain", "upstream"),
	)

	_, err := c.Fetch(context.Background(), "/items", MaxAttempts(1))
	require.Error(t, err)
	assert.Equal(t, 2, rt.calls)

	e, ok := httperr.As(err)
	require.True(t, ok)
	assert.Equal(t, httperr.KindServerError, e.Kind)
	assert.Equal(t, 504, e.StatusCode)
	assert.Equal(t, "upstream", e.Body)
	assert.NotEmpty(t, e.RequestID)
}

func TestRequest_NoRetryWithoutBudget(t *testing.T) {
	c, rt, _ := newScriptedClient(t, status(429, "", ""))

	_, err := c.Fetch(context.Background(), "/items", MaxAttempts(0))
	assert.True(t, httperr.IsKind(err, httperr.KindBadRequest))
	assert.Equal(t, 1, rt.calls)
}

func TestRequest_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		want   httperr.Kind
	}{
		{400, httperr.KindBadRequest},
		{403, httperr.KindUnauthorized},
		{404, httperr.KindNotFound},
		{500, httperr.KindServerError},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c, rt, _ := newScriptedClient(t, status(tt.status, ContentTypeJSON, `{"error":"nope"}`))

			_, err := c.Fetch(context.Background(), "/x")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, 1, rt.calls, "status errors are not retried")

			e, _ := httperr.As(err)
			assert.Equal(t, map[string]any{"error": "nope"}, e.Body)
			assert.Equal(t, http.StatusText(tt.status), e.Message)
		})
	}
}

func TestRequest_RetryAfterHeader(t *testing.T) {
	c, _, _ := newScriptedClient(t, func(req *http.Request) (*http.Response, error) {
		resp := response(req, 503, "", "")
		resp.Header.Set("Retry-After", "12")
		return resp, nil
	})

	_, err := c.Fetch(context.Background(), "/x")
	e, ok := httperr.As(err)
	require.True(t, ok)
	assert.Equal(t, 12*time.Second, e.RetryAfter)
}

func TestRequest_TransportRetry(t *testing.T) {
	c, rt, p := newScriptedClient(t,
		fail(syscall.ECONNRESET),
		status(200, "text/plain", "hello"),
	)

	body, err := c.Fetch(context.Background(), "/x")
	require.NoError(t, err)
	assert.Equal(t, "hello", body)
	assert.Equal(t, 2, rt.calls)
	assert.Equal(t, 2, p.count())
}

func TestRequest_TransportFailureExhausted(t *testing.T) {
	c, rt, _ := newScriptedClient(t,
		fail(syscall.ECONNRESET),
		fail(syscall.ECONNRESET),
	)

	_, err := c.Fetch(context.Background(), "/x", MaxAttempts(1))
	assert.True(t, httperr.IsKind(err, httperr.KindConnection))
	assert.ErrorIs(t, err, syscall.ECONNRESET)
	assert.Equal(t, 2, rt.calls)
}

func TestRequest_IndependentBudgets(t *testing.T) {
	c, rt, _ := newScriptedClient(t,
		fail(syscall.ECONNRESET),
		status(429, "", ""),
		status(200, "text/plain", "done"),
	)

	body, err := c.Fetch(context.Background(), "/x", MaxAttempts(1))
	require.NoError(t, err)
	assert.Equal(t, "done", body)
	assert.Equal(t, 3, rt.calls)
}

func TestRequest_FailFast(t *testing.T) {
	rt := &scripted{}
	c, err := New(WithTransport(rt), WithMinInterval(time.Hour))
	require.NoError(t, err)

	_, err = c.Fetch(context.Background(), "https://api.example.com/x", FailFast())
	require.Error(t, err)
	e, ok := httperr.As(err)
	require.True(t, ok)
	assert.Equal(t, httperr.KindTimeout, e.Kind)
	assert.Equal(t, 429, e.StatusCode)
	assert.Equal(t, 0, rt.calls)
}

func TestRequest_FailFastRetryWaitsForSlot(t *testing.T) {
	rt := &scripted{steps: []func(*http.Request) (*http.Response, error){
		status(429, "", ""),
		status(200, ContentTypeJSON, `{"ok":true}`),
	}}
	c, err := New(WithTransport(rt), WithPacer(pacing.New("test", 50*time.Millisecond)))
	require.NoError(t, err)

	// let the first slot open so only the retry has to wait
	time.Sleep(60 * time.Millisecond)

	body, err := c.Fetch(context.Background(), "https://api.example.com/x", FailFast(), MaxAttempts(2))
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"ok": true}, body)
	assert.Equal(t, 2, rt.calls)
}

func TestRequest_FailFastTransportRetryWaitsForSlot(t *testing.T) {
	rt := &scripted{steps: []func(*http.Request) (*http.Response, error){
		fail(syscall.ECONNRESET),
		status(200, "text/plain", "hello"),
	}}
	c, err := New(WithTransport(rt), WithPacer(pacing.New("test", 50*time.Millisecond)))
	require.NoError(t, err)

	time.Sleep(60 * time.Millisecond)

	body, err := c.Fetch(context.Background(), "https://api.example.com/x", FailFast(), MaxAttempts(1))
	require.NoError(t, err)
	assert.Equal(t, "hello", body)
	assert.Equal(t, 2, rt.calls)
}

func TestRequest_CancelledWhilePacing(t *testing.T) {
	rt := &scripted{}
	c, err := New(WithTransport(rt), WithPacer(pacing.New("test", time.Hour)))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = c.Fetch(ctx, "https://api.example.com/x")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, classified := httperr.As(err)
	assert.False(t, classified)
	assert.Equal(t, 0, rt.calls)
	assert.Equal(t, 0, c.Active())
}

func TestRequest_SendsBodyQueryAndHeaders(t *testing.T) {
	var (
		gotMethod string
		gotQuery  url.Values
		gotBody   map[string]any
		gotHeader http.Header
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.Query()
		gotHeader = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = w.Write([]byte(`[1,2,3]`))
	}))
	defer srv.Close()

	c, err := New(WithBaseURL(srv.URL+"/v1/"), WithHeader("Authorization", "Bearer token"))
	require.NoError(t, err)

	body, err := c.Fetch(context.Background(), "/items?page=1",
		Method("post"),
		JSON(map[string]any{"name": "x"}),
		Param("limit", "10"),
		Header("X-Extra", "yes"),
	)
	require.NoError(t, err)

	assert.Equal(t, []any{1.0, 2.0, 3.0}, body)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "1", gotQuery.Get("page"))
	assert.Equal(t, "10", gotQuery.Get("limit"))
	assert.Equal(t, map[string]any{"name": "x"}, gotBody)
	assert.Equal(t, "Bearer token", gotHeader.Get("Authorization"))
	assert.Equal(t, "yes", gotHeader.Get("X-Extra"))
	assert.Equal(t, DefaultUserAgent, gotHeader.Get("User-Agent"))
	assert.NotEmpty(t, gotHeader.Get(DefaultRequestIDHeader))
}

func TestRequest_FormBody(t *testing.T) {
	var got url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		got = r.PostForm
		w.Header().Set("Content-Type", ContentTypeForm)
		_, _ = w.Write([]byte("a=1&a=2&b=3"))
	}))
	defer srv.Close()

	c, err := New(WithBaseURL(srv.URL))
	require.NoError(t, err)

	body, err := c.Fetch(context.Background(), "/", Method(http.MethodPost), Form(url.Values{"q": {"go"}}))
	require.NoError(t, err)
	assert.Equal(t, "go", got.Get("q"))
	assert.Equal(t, url.Values{"a": {"1", "2"}, "b": {"3"}}, body)
}

func TestRequest_MalformedJSON(t *testing.T) {
	c, _, _ := newScriptedClient(t, status(200, ContentTypeJSON, `{"broken"`))

	_, err := c.Fetch(context.Background(), "/x")
	assert.True(t, httperr.IsKind(err, httperr.KindServerError))
}

func TestRequest_ClosedSession(t *testing.T) {
	c, _, _ := newScriptedClient(t)
	s := c.Acquire()
	c.Release()

	_, err := c.Request(context.Background(), s, "/x")
	assert.Error(t, err)
}

func TestSession_RefCounting(t *testing.T) {
	c, _, _ := newScriptedClient(t)

	s1 := c.Acquire()
	s2 := c.Acquire()
	assert.Same(t, s1, s2)
	assert.Equal(t, 2, c.Active())

	c.Release()
	assert.False(t, s1.Closed())

	c.Release()
	assert.True(t, s1.Closed())
	assert.Equal(t, 0, c.Active())

	// extra releases are ignored
	c.Release()
	assert.Equal(t, 0, c.Active())

	s3 := c.Acquire()
	defer c.Release()
	assert.NotSame(t, s1, s3)
}

func TestSession_ReleasedOnError(t *testing.T) {
	c, _, _ := newScriptedClient(t, status(500, "", ""))

	err := c.WithSession(context.Background(), func(ctx context.Context, s *Session) error {
		assert.Equal(t, 1, c.Active())
		_, err := c.Request(ctx, s, "/x")
		return err
	})
	assert.Error(t, err)
	assert.Equal(t, 0, c.Active())
}

func TestFetch_Concurrent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	c, err := New(WithBaseURL(srv.URL), WithMinInterval(time.Millisecond))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Fetch(context.Background(), "/")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(10), hits.Load())
	assert.Equal(t, 0, c.Active())
}

func TestStream_ReleasesOnClose(t *testing.T) {
	c, _, _ := newScriptedClient(t, status(200, "application/x-ndjson", "{\"a\":1}\n{\"a\":2}\n"))

	body, err := c.Stream(context.Background(), "/stream", Method(http.MethodPost))
	require.NoError(t, err)
	assert.Equal(t, 1, c.Active())

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "{\"a\":1}\n{\"a\":2}\n", string(data))

	require.NoError(t, body.Close())
	assert.Equal(t, 0, c.Active())
	require.NoError(t, body.Close())
	assert.Equal(t, 0, c.Active())
}

func TestStream_ErrorReleases(t *testing.T) {
	c, _, _ := newScriptedClient(t, status(401, "", "denied"))

	_, err := c.Stream(context.Background(), "/stream")
	assert.ErrorIs(t, err, httperr.KindUnauthorized)
	assert.Equal(t, 0, c.Active())
}

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.RoundTripper) http.RoundTripper {
			return RoundTripperFunc(func(req *http.Request) (*http.Response, error) {
				order = append(order, name)
				return next.RoundTrip(req)
			})
		}
	}

	rt := &scripted{steps: []func(*http.Request) (*http.Response, error){status(200, "", "")}}
	c, err := New(
		WithTransport(rt),
		WithPacer(pacing.Unpaced{}),
		WithMiddleware(mark("outer"), mark("inner")),
		WithMiddleware(Logging(discardLogger())),
	)
	require.NoError(t, err)

	body, err := c.Fetch(context.Background(), "https://api.example.com/")
	require.NoError(t, err)
	assert.Nil(t, body)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestNew_InvalidProxy(t *testing.T) {
	_, err := New(WithProxy("://bad"))
	assert.Error(t, err)
}
