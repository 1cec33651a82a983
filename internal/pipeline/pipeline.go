// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives fetch, classify, and persist for the daily run
// and the historical backfill.
package pipeline

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/pdiddy/daily-paper/internal/classify"
	"github.com/pdiddy/daily-paper/internal/fetch"
	"github.com/pdiddy/daily-paper/internal/mdlog"
	"github.com/pdiddy/daily-paper/internal/store"
	"github.com/pdiddy/daily-paper/pkg/types"
)

// Pipeline wires the three stages. Construct with New.
type Pipeline struct {
	source     fetch.Source
	classifier *classify.Classifier
	store      *store.Store

	fetchCfg     types.FetchConfig
	historyLimit int
	logFile      string

	// dayLimiter paces consecutive search requests across jobs.
	dayLimiter *rate.Limiter

	now     func() time.Time
	entropy *ulid.MonotonicEntropy
	out     io.Writer
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock replaces time.Now, which fixes "today" for tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a Pipeline from its stages and configuration. Progress lines
// go to w.
func New(src fetch.Source, cl *classify.Classifier, st *store.Store, cfg types.PipelineConfig, w io.Writer, opts ...Option) *Pipeline {
	if w == nil {
		w = io.Discard
	}
	limit := rate.Inf
	if cfg.Fetch.DayDelay > 0 {
		limit = rate.Every(cfg.Fetch.DayDelay)
	}
	p := &Pipeline{
		source:       src,
		classifier:   cl,
		store:        st,
		fetchCfg:     cfg.Fetch,
		historyLimit: cfg.Store.HistoryLimit,
		logFile:      cfg.Store.LogFile,
		dayLimiter:   rate.NewLimiter(limit, 1),
		now:          time.Now,
		entropy:      ulid.Monotonic(rand.Reader, 0),
		out:          w,
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// job is one fetch-classify-persist pass keyed to a daily file.
type job struct {
	date  string
	query fetch.Query
}

// Run processes the most recent submissions into today's daily file.
func (p *Pipeline) Run(ctx context.Context) (Report, error) {
	today := types.FormatDay(p.now())
	return p.process(ctx, today, []job{{
		date: today,
		query: fetch.Query{
			Categories: p.fetchCfg.Categories,
			MaxResults: p.fetchCfg.MaxResults,
		},
	}})
}

// Backfill processes each of the days previous days, oldest first, with a
// query narrowed to that day's submissions.
func (p *Pipeline) Backfill(ctx context.Context, days int) (Report, error) {
	if days <= 0 {
		return Report{}, fmt.Errorf("backfill needs a positive day count, got %d", days)
	}

	now := p.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	jobs := make([]job, 0, days)
	for i := days; i >= 1; i-- {
		day := today.AddDate(0, 0, -i)
		jobs = append(jobs, job{
			date: types.FormatDay(day),
			query: fetch.Query{
				Categories: p.fetchCfg.Categories,
				Day:        day,
				MaxResults: p.fetchCfg.BackfillMaxResults,
			},
		})
	}
	return p.process(ctx, types.FormatDay(today), jobs)
}

// process runs the job loop. Dates and history are loaded once, extended
// per job, and flushed once after the loop: dates when a day was added or
// the file needed repair, history when ids were added or the bound evicted
// some. Persistence errors stop the run immediately without flushing.
func (p *Pipeline) process(ctx context.Context, runDate string, jobs []job) (Report, error) {
	report := Report{
		RunID:   ulid.MustNew(ulid.Timestamp(p.now()), p.entropy).String(),
		Started: p.now(),
	}
	fmt.Fprintf(p.out, "run %s: %d job(s)\n", report.RunID, len(jobs))

	history, err := p.store.LoadHistory()
	if err != nil {
		return report, fmt.Errorf("loading history: %w", err)
	}
	dates, err := p.store.LoadDates()
	if err != nil {
		return report, fmt.Errorf("loading available dates: %w", err)
	}

	var processed []types.Paper
	historyAdded := 0

	for _, j := range jobs {
		if err := p.dayLimiter.Wait(ctx); err != nil {
			return report, err
		}

		jr, papers, err := p.runJob(ctx, j, history)
		if err != nil {
			return report, err
		}
		report.Jobs = append(report.Jobs, jr)
		if jr.Status != StatusWritten {
			continue
		}

		dates.Add(j.date)
		for _, pp := range papers {
			historyAdded += history.Add(pp.ID)
		}
		processed = append(processed, papers...)
	}

	if dates.Changed() {
		if err := p.store.SaveDates(dates); err != nil {
			return report, fmt.Errorf("saving available dates: %w", err)
		}
	}
	report.Evicted = history.Truncate(p.historyLimit)
	if historyAdded > 0 || report.Evicted > 0 {
		if err := p.store.SaveHistory(history); err != nil {
			return report, fmt.Errorf("saving history: %w", err)
		}
	}

	if p.logFile != "" && len(processed) > 0 {
		err := mdlog.Append(p.logFile, mdlog.Section{Date: runDate, RunID: report.RunID, Papers: processed})
		if err != nil {
			return report, fmt.Errorf("appending run log: %w", err)
		}
		report.LogWrote = true
	}

	fmt.Fprintf(p.out, "\nwritten: %d, no new: %d, upstream failed: %d, classified: %d, failed: %d\n",
		report.Count(StatusWritten), report.Count(StatusNoNew), report.Count(StatusUpstreamFailed),
		report.Classified(), report.Failed())

	return report, nil
}

// runJob performs fetch, filter-new, classify, and the daily-file write for
// one job. The returned papers are the ones written.
func (p *Pipeline) runJob(ctx context.Context, j job, history *store.History) (JobReport, []types.Paper, error) {
	jr := JobReport{Date: j.date}

	fmt.Fprintf(p.out, "fetching %s\n", describe(j))
	res := p.source.Fetch(ctx, j.query)
	if ctx.Err() != nil {
		return jr, nil, ctx.Err()
	}
	jr.Fetched = len(res.Papers)
	jr.FetchErr = res.Err
	if res.Failed() {
		fmt.Fprintf(p.out, "warning: fetch for %s abandoned after %d paper(s): %v\n", j.date, len(res.Papers), res.Err)
		if len(res.Papers) == 0 {
			jr.Status = StatusUpstreamFailed
			return jr, nil, nil
		}
	}

	fresh := make([]types.Paper, 0, len(res.Papers))
	for _, pp := range res.Papers {
		if !history.Contains(pp.ID) {
			fresh = append(fresh, pp)
		}
	}
	jr.New = len(fresh)
	if len(fresh) == 0 {
		fmt.Fprintf(p.out, "skipped %s: no new papers (%d fetched)\n", j.date, jr.Fetched)
		jr.Status = StatusNoNew
		return jr, nil, nil
	}
	fmt.Fprintf(p.out, "classifying %d new of %d fetched for %s\n", len(fresh), jr.Fetched, j.date)

	classified, summary, err := p.classifier.ClassifyAll(ctx, fresh)
	if err != nil {
		return jr, nil, err
	}
	jr.Classified = summary.Classified
	jr.Failed = summary.Failed
	jr.Relevant = summary.Relevant

	saved, err := p.store.SaveDay(j.date, classified)
	if err != nil {
		return jr, nil, fmt.Errorf("saving daily file %s: %w", j.date, err)
	}
	jr.Added = saved.Added
	jr.Status = StatusWritten
	fmt.Fprintf(p.out, "saved %s: %d added, %d relevant, %d total\n", j.date, saved.Added, summary.Relevant, saved.Total())

	return jr, classified, nil
}

func describe(j job) string {
	if j.query.Day.IsZero() {
		return fmt.Sprintf("latest %d papers", j.query.Limit())
	}
	return fmt.Sprintf("submissions of %s", j.date)
}
