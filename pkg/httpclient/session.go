package httpclient

import (
	"context"
	"net/http"
	"sync/atomic"
)

// Session is the pooled connection state shared by the scoped users of a
// Client.
type Session struct {
	http   *http.Client
	closed atomic.Bool
}

// Closed reports whether the session has been torn down.
func (s *Session) Closed() bool {
	return s.closed.Load()
}

func (s *Session) close() {
	if s.closed.CompareAndSwap(false, true) {
		s.http.CloseIdleConnections()
	}
}

func (c *Client) newSession() *Session {
	rt := c.cfg.transport
	if rt == nil {
		rt = newTransport(c.cfg.proxy)
	}
	return &Session{
		http: &http.Client{
			Transport: chain(rt, c.cfg.middleware),
			Timeout:   c.cfg.timeout,
		},
	}
}

// Acquire enters a session scope, opening the pooled session when no scope
// is active. Every Acquire must be paired with a Release.
func (c *Client) Acquire() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil || c.session.Closed() {
		c.session = c.newSession()
		c.logger.Debug("session opened", "base_url", c.cfg.baseURL)
	}
	c.refs++
	return c.session
}

// Release leaves a session scope. The session is closed when the last
// scope is left.
func (c *Client) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.refs == 0 {
		return
	}
	c.refs--
	if c.refs == 0 && c.session != nil {
		c.session.close()
		c.session = nil
		c.logger.Debug("session closed", "base_url", c.cfg.baseURL)
	}
}

// WithSession runs fn inside a session scope, releasing it on every exit
// path.
func (c *Client) WithSession(ctx context.Context, fn func(ctx context.Context, s *Session) error) error {
	s := c.Acquire()
	defer c.Release()
	return fn(ctx, s)
}

// Active returns the number of open session scopes.
func (c *Client) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refs
}
