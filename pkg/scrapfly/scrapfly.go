// Package scrapfly is a client for the Scrapfly scraping API.
//
// Each Scrape escalates through increasingly expensive tries: a plain fetch,
// then JavaScript rendering, then rendering with anti scraping protection.
// The first successful try wins. Only the failure of the last try is
// reported to the caller.
package scrapfly

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/inercia/go-baski/pkg/httpclient"
	"github.com/inercia/go-baski/pkg/httperr"
)

const (
	DefaultBaseURL  = "https://api.scrapfly.io"
	DefaultInterval = 5 * time.Second
	DefaultTimeout  = 160 * time.Second
)

// Result is the "result" section of a Scrapfly response.
type Result struct {
	Success    bool   `json:"success"`
	StatusCode int    `json:"status_code"`
	Reason     string `json:"reason"`
	Content    string `json:"content"`
	URL        string `json:"url"`
}

// Options tune a single Scrape call.
type Options struct {
	// Method of the scraped request. GET when empty.
	Method string
	// Params are merged into the query string of the target URL.
	Params url.Values
	// RenderJS set to any value skips the plain try.
	RenderJS *bool
	FailFast bool
}

// Client talks to Scrapfly through a paced httpclient.Client.
type Client struct {
	apiKey string
	http   *httpclient.Client
	logger *slog.Logger
}

// New creates a client. The extra options are applied after the Scrapfly
// defaults, so they can override the base URL, pacing or timeout.
func New(apiKey string, logger *slog.Logger, extra ...httpclient.Option) (*Client, error) {
	if apiKey == "" {
		return nil, httperr.New(httperr.KindUnauthorized, 0, "scrapfly API key is required")
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts := append([]httpclient.Option{
		httpclient.WithBaseURL(DefaultBaseURL),
		httpclient.WithMinInterval(DefaultInterval),
		httpclient.WithTimeout(DefaultTimeout),
		httpclient.WithLogger(logger),
	}, extra...)

	hc, err := httpclient.New(opts...)
	if err != nil {
		return nil, err
	}
	return &Client{apiKey: apiKey, http: hc, logger: logger}, nil
}

type try struct {
	asp      bool
	renderJS bool
	last     bool
}

func tries(opts Options) []try {
	t := []try{{asp: false, renderJS: true}, {asp: true, renderJS: true, last: true}}
	if opts.RenderJS == nil {
		t = append([]try{{}}, t...)
	}
	return t
}

// Scrape fetches target through Scrapfly.
func (c *Client) Scrape(ctx context.Context, target string, opts Options) (*Result, error) {
	page, err := withParams(target, opts.Params)
	if err != nil {
		return nil, httperr.New(httperr.KindBadRequest, 0, err.Error())
	}

	var result *Result
	err = c.http.WithSession(ctx, func(ctx context.Context, s *httpclient.Session) error {
		for _, t := range tries(opts) {
			res, err := c.scrapeOnce(ctx, s, page, opts, t)
			if err != nil {
				if t.last || ctx.Err() != nil {
					return err
				}
				c.logger.Debug("scrape try failed", "url", page, "asp", t.asp, "render_js", t.renderJS, "error", err)
				continue
			}
			if res.Success {
				result = res
				return nil
			}
			if !t.last {
				continue
			}
			return failure(res)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) scrapeOnce(ctx context.Context, s *httpclient.Session, page string, opts Options, t try) (*Result, error) {
	reqOpts := []httpclient.RequestOption{
		httpclient.Param("url", page),
		httpclient.Param("key", c.apiKey),
		httpclient.Param("asp", strconv.FormatBool(t.asp)),
		httpclient.Param("render_js", strconv.FormatBool(t.renderJS)),
		httpclient.MaxAttempts(1),
	}
	if opts.Method != "" {
		reqOpts = append(reqOpts, httpclient.Method(opts.Method))
	}
	if opts.FailFast {
		reqOpts = append(reqOpts, httpclient.FailFast())
	}

	body, err := c.http.Request(ctx, s, "/scrape", reqOpts...)
	if err != nil {
		return nil, err
	}
	return decodeResult(body)
}

func decodeResult(body any) (*Result, error) {
	doc, ok := body.(map[string]any)
	if !ok {
		return nil, httperr.Malformed(fmt.Errorf("unexpected scrapfly response of type %T", body))
	}
	raw, err := json.Marshal(doc["result"])
	if err != nil {
		return nil, httperr.Malformed(err)
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, httperr.Malformed(err)
	}
	return &res, nil
}

// failure classifies an unsuccessful scrape from the target's own status.
func failure(res *Result) error {
	if err := httperr.Classify(res.StatusCode, res.Reason, res.Content); err != nil {
		return err
	}
	return httperr.New(httperr.KindServerError, res.StatusCode, "scrape was not successful")
}

func withParams(target string, params url.Values) (string, error) {
	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("invalid target URL %q: %w", target, err)
	}
	if len(params) == 0 {
		return u.String(), nil
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
