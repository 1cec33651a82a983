// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffStep = 30 * time.Second
)

// BackoffFunc returns the wait before the next try, given how many tries
// have already been rate limited (1 after the first 429).
type BackoffFunc func(failures int) time.Duration

// LinearBackoff waits failures*step: 30s, 60s, 90s for a 30s step.
func LinearBackoff(step time.Duration) BackoffFunc {
	return func(failures int) time.Duration {
		return time.Duration(failures) * step
	}
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep is the production SleepFunc backed by a timer.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// RetryPolicy controls DoWithRetry. The zero value retries three times in
// total with 30s linear steps and real sleeps.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// Backoff computes the wait after each 429.
	Backoff BackoffFunc

	// Sleep performs the wait. Tests inject a recorder here.
	Sleep SleepFunc

	// Log receives one line per backoff. Nil discards.
	Log io.Writer
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.Backoff == nil {
		p.Backoff = LinearBackoff(defaultBackoffStep)
	}
	if p.Sleep == nil {
		p.Sleep = Sleep
	}
	if p.Log == nil {
		p.Log = io.Discard
	}
	return p
}

// DoWithRetry executes an HTTP request and retries on HTTP 429 (Too Many
// Requests) according to policy. Any other status, or a transport error,
// is returned immediately without retrying.
//
// On each 429 the response body is drained and closed before waiting. If
// the context is cancelled during a wait the function returns ctx.Err().
// After the last attempt the final 429 response is returned so the caller
// can inspect it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy RetryPolicy) (*http.Response, error) {
	policy = policy.withDefaults()

	for attempt := 1; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		if attempt >= policy.MaxAttempts {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		wait := policy.Backoff(attempt)
		fmt.Fprintf(policy.Log, "rate limited (429), waiting %v before retry (attempt %d/%d)\n",
			wait, attempt+1, policy.MaxAttempts)

		if err := policy.Sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
}
