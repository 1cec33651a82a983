// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/pdiddy/daily-paper/internal/httputil"
	"github.com/pdiddy/daily-paper/pkg/types"
)

// arxivAPIBase is the arXiv search endpoint. Declared as a var so tests
// can substitute an httptest server.
var arxivAPIBase = "https://export.arxiv.org/api/query"

const (
	defaultPageSize  = 100
	defaultPageDelay = 3 * time.Second
)

// ArxivSource queries the arXiv Atom API, paging through results sorted by
// submission date, newest first.
type ArxivSource struct {
	Client    *http.Client
	UserAgent string

	// PageSize is the number of entries requested per call.
	PageSize int

	// PageDelay separates consecutive page requests of one fetch.
	PageDelay time.Duration

	// Retry governs HTTP 429 handling for every page request.
	Retry httputil.RetryPolicy

	// Log receives progress lines. Nil discards.
	Log io.Writer
}

// NewArxivSource builds an ArxivSource from the fetch and HTTP settings.
func NewArxivSource(client *http.Client, httpCfg types.HTTPConfig, cfg types.FetchConfig, log io.Writer) *ArxivSource {
	if log == nil {
		log = io.Discard
	}
	return &ArxivSource{
		Client:    client,
		UserAgent: httpCfg.UserAgent,
		PageSize:  cfg.PageSize,
		PageDelay: defaultPageDelay,
		Retry: httputil.RetryPolicy{
			MaxAttempts: cfg.MaxAttempts,
			Backoff:     httputil.LinearBackoff(cfg.RetryBaseDelay),
			Log:         log,
		},
		Log: log,
	}
}

// Fetch runs q against arXiv. It never returns a Go error: failures are
// carried in Result.Err together with the papers collected so far.
func (s *ArxivSource) Fetch(ctx context.Context, q Query) Result {
	var res Result

	search := q.SearchQuery()
	if search == "" {
		res.Err = fmt.Errorf("no categories configured")
		return res
	}

	limit := q.Limit()
	pageSize := s.PageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	seen := make(map[string]bool)
	for start := 0; start < limit; start += pageSize {
		n := pageSize
		if limit-start < n {
			n = limit - start
		}

		if start > 0 && s.PageDelay > 0 {
			if err := s.sleep(ctx, s.PageDelay); err != nil {
				res.Err = err
				return res
			}
		}

		papers, err := s.fetchPage(ctx, search, start, n)
		if err != nil {
			res.Err = err
			return res
		}
		res.Pages++

		for _, p := range papers {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			res.Papers = append(res.Papers, p)
		}

		if len(papers) < n || len(res.Papers) >= limit {
			break
		}
	}
	if len(res.Papers) > limit {
		res.Papers = res.Papers[:limit]
	}
	return res
}

func (s *ArxivSource) sleep(ctx context.Context, d time.Duration) error {
	if s.Retry.Sleep != nil {
		return s.Retry.Sleep(ctx, d)
	}
	return httputil.Sleep(ctx, d)
}

// fetchPage requests one page and converts its entries to papers.
func (s *ArxivSource) fetchPage(ctx context.Context, search string, start, n int) ([]types.Paper, error) {
	params := url.Values{}
	params.Set("search_query", search)
	params.Set("start", strconv.Itoa(start))
	params.Set("max_results", strconv.Itoa(n))
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, arxivAPIBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}

	client := s.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, s.Retry)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arXiv API returned HTTP %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	papers := make([]types.Paper, 0, len(feed.Items))
	for _, item := range feed.Items {
		if p, ok := toPaper(item); ok {
			papers = append(papers, p)
		}
	}
	return papers, nil
}

// toPaper converts one Atom entry. Entries without an /abs/ id, such as
// the error entry arXiv returns for a malformed query, are dropped.
func toPaper(item *gofeed.Item) (types.Paper, bool) {
	id := extractArxivID(item.GUID)
	if id == "" {
		id = extractArxivID(item.Link)
	}
	if id == "" {
		return types.Paper{}, false
	}

	p := types.Paper{
		ID:              id,
		Title:           types.SingleLine(item.Title),
		Abstract:        types.SingleLine(item.Description),
		URL:             types.AbsURL(id),
		PrimaryCategory: primaryCategory(item),
	}

	for _, a := range item.Authors {
		if a == nil {
			continue
		}
		if name := strings.TrimSpace(a.Name); name != "" {
			p.Authors = append(p.Authors, name)
		}
	}

	switch {
	case item.PublishedParsed != nil:
		p.Published = types.FormatDay(item.PublishedParsed.UTC())
	case len(item.Published) >= len(types.DateLayout):
		p.Published = item.Published[:len(types.DateLayout)]
	}

	return p, true
}

// primaryCategory reads <arxiv:primary_category term="..."/>, falling back
// to the first Atom category.
func primaryCategory(item *gofeed.Item) string {
	if ext, ok := item.Extensions["arxiv"]; ok {
		for _, e := range ext["primary_category"] {
			if term := e.Attrs["term"]; term != "" {
				return term
			}
		}
	}
	if len(item.Categories) > 0 {
		return item.Categories[0]
	}
	return ""
}

// extractArxivID pulls the arXiv ID from the entry's <id> URL
// (e.g. "http://arxiv.org/abs/2301.07041v1" → "2301.07041").
func extractArxivID(idURL string) string {
	const prefix = "/abs/"
	idx := strings.Index(idURL, prefix)
	if idx < 0 {
		return ""
	}
	return types.BareID(idURL[idx:])
}
