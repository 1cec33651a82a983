// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify judges each paper against the AI4Science and
// perturbation-prediction filters through a chat-completion backend.
package classify

import (
	"context"
	"fmt"
	"io"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/daily-paper/pkg/types"
)

// Backend abstracts the chat-completion API so tests can supply a mock.
type Backend interface {
	Classify(ctx context.Context, title, abstract string) (types.Classification, error)
}

// Failure records one paper whose classification fell back to the
// placeholder.
type Failure struct {
	ID  string
	Err error
}

// Summary holds counts from one ClassifyAll call.
type Summary struct {
	Classified int
	Failed     int

	// Relevant counts successfully classified papers with either flag set.
	Relevant int

	Failures []Failure
}

// Total returns the number of papers processed.
func (s Summary) Total() int {
	return s.Classified + s.Failed
}

// HasFailures reports whether any paper got the failure placeholder.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Classifier runs a Backend over a batch, one call at a time.
type Classifier struct {
	backend Backend
	limiter *rate.Limiter
	out     io.Writer
}

// New creates a Classifier. Consecutive backend calls are spaced at least
// callDelay apart; zero disables pacing. Progress lines go to w.
func New(backend Backend, callDelay time.Duration, w io.Writer) *Classifier {
	if w == nil {
		w = io.Discard
	}
	limit := rate.Inf
	if callDelay > 0 {
		limit = rate.Every(callDelay)
	}
	return &Classifier{
		backend: backend,
		limiter: rate.NewLimiter(limit, 1),
		out:     w,
	}
}

// ClassifyAll classifies every paper in order and returns copies with the
// Classification attached. A paper whose call or reply fails is kept with
// the failure placeholder. Only context cancellation returns an error.
func (c *Classifier) ClassifyAll(ctx context.Context, papers []types.Paper) ([]types.Paper, Summary, error) {
	out := make([]types.Paper, 0, len(papers))
	var summary Summary

	for i, p := range papers {
		if err := c.limiter.Wait(ctx); err != nil {
			return out, summary, fmt.Errorf("waiting for classifier slot: %w", err)
		}

		result, err := c.backend.Classify(ctx, p.Title, p.Abstract)
		if err != nil {
			if ctx.Err() != nil {
				return out, summary, ctx.Err()
			}
			fmt.Fprintf(c.out, "failed  %s: %v\n", p.ID, err)
			p.Classification = types.FailedClassification(err)
			summary.Failed++
			summary.Failures = append(summary.Failures, Failure{ID: p.ID, Err: err})
			out = append(out, p)
			continue
		}

		cl := result
		p.Classification = &cl
		summary.Classified++
		if cl.Relevant() {
			summary.Relevant++
		}
		fmt.Fprintf(c.out, "classified %s [%d/%d] ai4science=%t perturbation=%t\n",
			p.ID, i+1, len(papers), cl.IsAI4Science, cl.IsPerturbation)
		out = append(out, p)
	}

	return out, summary, nil
}
