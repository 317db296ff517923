// Package httpclient is a paced, retrying HTTP client shared by many
// concurrent callers.
//
// A Client owns one pooled Session that is created on first use and closed
// when the last scoped user releases it. Every dispatch goes through the
// client's Pacer, so requests to one destination are spaced by at least the
// configured interval. Responses are decoded by content type and non-200
// statuses are returned as *httperr.Error values.
//
// Basic usage:
//
//	client, err := httpclient.New(
//		httpclient.WithBaseURL("https://api.example.com"),
//		httpclient.WithMinInterval(500*time.Millisecond),
//	)
//	body, err := client.Fetch(ctx, "/items", httpclient.Param("page", "2"))
//
// Several calls sharing one session:
//
//	err := client.WithSession(ctx, func(ctx context.Context, s *httpclient.Session) error {
//		a, err := client.Request(ctx, s, "/a")
//		...
//		b, err := client.Request(ctx, s, "/b", httpclient.Method(http.MethodPost), httpclient.JSON(payload))
//		...
//	})
package httpclient
