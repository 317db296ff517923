// Package retry runs an operation until it succeeds, fails with a
// non-retryable error, or exhausts its attempt budget.
//
// Basic usage, retrying transient failures with the default jittered wait:
//
//	body, err := retry.Do(ctx, retry.Policy{
//		Retryable: retry.On(httperr.KindTimeout, httperr.KindServerError),
//		Service:   "scrapfly",
//	}, func(ctx context.Context) (any, error) {
//		return client.Fetch(ctx, url)
//	})
//
// Honoring provider Retry-After hints:
//
//	policy := retry.Policy{Wait: retry.HonorRetryAfter(retry.JitteredWait)}
package retry

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"log/slog"
	"time"

	"github.com/inercia/go-baski/pkg/httperr"
)

const (
	DefaultTimes   = 50
	DefaultMinWait = 100 * time.Millisecond
	DefaultMaxWait = time.Second
)

// WaitFunc computes how long to sleep after the attempt-th failure.
type WaitFunc func(err error, attempt int, minWait, maxWait time.Duration) time.Duration

// Policy configures Do. The zero value retries every transient kind with
// the package defaults.
type Policy struct {
	// Times bounds the loop: at most Times-1 invocations are made.
	Times   int
	MinWait time.Duration
	MaxWait time.Duration
	Wait    WaitFunc
	// Retryable decides whether an error is worth another attempt.
	Retryable func(error) bool
	// Service names the dependency in the terminal unavailable error.
	Service string
	Logger  *slog.Logger
}

func (p Policy) withDefaults() Policy {
	if p.Times <= 0 {
		p.Times = DefaultTimes
	}
	if p.MinWait <= 0 {
		p.MinWait = DefaultMinWait
	}
	if p.MaxWait < p.MinWait {
		p.MaxWait = max(DefaultMaxWait, p.MinWait)
	}
	if p.Wait == nil {
		p.Wait = JitteredWait
	}
	if p.Retryable == nil {
		p.Retryable = Transient
	}
	if p.Logger == nil {
		p.Logger = slog.New(slog.DiscardHandler)
	}
	return p
}

// Attempts is the number of invocations Do makes before giving up. A
// policy with Times 1 makes none and reports the service unavailable.
func (p Policy) Attempts() int {
	return p.withDefaults().Times - 1
}

// Do invokes op until it succeeds. A non-retryable error is returned as is;
// running out of attempts yields an httperr.KindUnavailable error. When ctx
// is cancelled during a backoff sleep, ctx.Err() is returned untranslated.
func Do[T any](ctx context.Context, p Policy, op func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	attempts := p.Attempts()

	var zero T
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := op(ctx)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !p.Retryable(err) {
			return zero, err
		}
		lastErr = err

		if attempt == attempts {
			break
		}
		wait := p.Wait(err, attempt, p.MinWait, p.MaxWait)
		p.Logger.Warn("retrying after failure",
			"service", p.Service,
			"attempt", attempt,
			"wait", wait,
			"error", err)
		if err := Sleep(ctx, wait); err != nil {
			return zero, err
		}
	}

	p.Logger.Error("giving up", "service", p.Service, "attempts", attempts, "error", lastErr)
	return zero, httperr.Unavailable(p.Service, lastErr)
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// JitteredWait grows linearly with the attempt index, multiplied by a random
// duration in [minWait, maxWait].
func JitteredWait(_ error, attempt int, minWait, maxWait time.Duration) time.Duration {
	span := float64(maxWait - minWait)
	r, err := secureRandomFloat64()
	if err != nil {
		r = 0.5
	}
	return time.Duration(attempt) * (minWait + time.Duration(span*r))
}

// HonorRetryAfter uses the provider's Retry-After hint verbatim when the
// error carries one, and falls back to base otherwise.
func HonorRetryAfter(base WaitFunc) WaitFunc {
	if base == nil {
		base = JitteredWait
	}
	return func(err error, attempt int, minWait, maxWait time.Duration) time.Duration {
		if e, ok := httperr.As(err); ok && e.RetryAfter > 0 {
			return e.RetryAfter
		}
		return base(err, attempt, minWait, maxWait)
	}
}

// Transient retries timeouts, server errors and connection failures.
func Transient(err error) bool {
	return httperr.KindOf(err).Transient()
}

// On retries errors classified as one of kinds.
func On(kinds ...httperr.Kind) func(error) bool {
	return func(err error) bool {
		return httperr.IsKind(err, kinds...)
	}
}

// OnErrors retries errors matching any of targets with errors.Is.
func OnErrors(targets ...error) func(error) bool {
	return func(err error) bool {
		for _, t := range targets {
			if errors.Is(err, t) {
				return true
			}
		}
		return false
	}
}

// secureRandomFloat64 generates a cryptographically secure random float64 between 0 and 1
func secureRandomFloat64() (float64, error) {
	var bytes [8]byte
	if _, err := rand.Read(bytes[:]); err != nil {
		return 0, err
	}
	return float64(binary.BigEndian.Uint64(bytes[:])) / float64(^uint64(0)), nil
}
