// Package arxiv fetches recent papers from the arXiv Atom API.
package arxiv

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/matsen/arxivterm/internal/logging"
	"github.com/matsen/arxivterm/internal/paper"
	"github.com/mmcdole/gofeed"
	"golang.org/x/time/rate"
)

const (
	// BaseURL is the arXiv query API endpoint.
	BaseURL = "http://export.arxiv.org/api/query"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 60 * time.Second

	// RequestInterval is the minimum spacing between requests asked for by arXiv.
	RequestInterval = 3 * time.Second

	// DefaultPageSize is the number of entries requested per page.
	DefaultPageSize = 100
)

// Client is a rate-limited client for the arXiv query API.
type Client struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	pageSize   int
	log        *logging.Logger
	now        func() time.Time
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithPageSize sets the number of entries requested per page.
func WithPageSize(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithRequestInterval sets the minimum spacing between requests. Zero disables limiting.
func WithRequestInterval(d time.Duration) ClientOption {
	return func(c *Client) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLogger sets the logger.
func WithLogger(log *logging.Logger) ClientOption {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithClock sets the time source used to compute fetch windows.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new arXiv API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Every(RequestInterval), 1),
		baseURL:    BaseURL,
		pageSize:   DefaultPageSize,
		log:        logging.Nop(),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Window returns the inclusive publication window covering today (UTC)
// and the numDays-1 days before it.
func Window(now time.Time, numDays int) (start, end time.Time) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start = today.AddDate(0, 0, -(numDays - 1))
	end = today.Add(24*time.Hour - time.Nanosecond)
	return start, end
}

// Fetch returns the papers in category published within the last numDays days,
// newest first. Results are read in submission order until an entry older than
// the window appears. If maxResults > 0 at most that many entries are scanned.
func (c *Client) Fetch(ctx context.Context, category string, numDays, maxResults int) ([]paper.Paper, error) {
	if numDays < 1 {
		return nil, fmt.Errorf("num_days must be positive, got %d", numDays)
	}

	start, end := Window(c.now(), numDays)
	c.log.Info("Querying arXiv", "category", category, "from", start, "to", end)

	var papers []paper.Paper
	scanned := 0
	for offset := 0; ; {
		page, entries, err := c.fetchPage(ctx, category, offset, c.pageSize)
		if err != nil {
			return nil, err
		}

		for _, p := range page {
			if maxResults > 0 && scanned >= maxResults {
				c.log.Info("Reached max results", "category", category, "max_results", maxResults)
				return c.done(category, papers), nil
			}
			scanned++

			if p.Published.Before(start) {
				c.log.Info("Reached start date", "category", category, "start", start)
				return c.done(category, papers), nil
			}
			if !p.Published.After(end) {
				papers = append(papers, p)
			}
		}

		if entries < c.pageSize {
			return c.done(category, papers), nil
		}
		offset += entries
	}
}

func (c *Client) done(category string, papers []paper.Paper) []paper.Paper {
	c.log.Info("Found papers", "category", category, "count", len(papers))
	return papers
}

// FetchCategories fetches each category in turn and merges the results,
// keeping the first occurrence of papers cross-listed in several categories.
// The returned map holds the number of papers found per category.
func (c *Client) FetchCategories(ctx context.Context, categories []string, numDays, maxResults int) ([]paper.Paper, map[string]int, error) {
	seen := make(map[string]bool)
	counts := make(map[string]int, len(categories))
	var all []paper.Paper

	for _, category := range categories {
		papers, err := c.Fetch(ctx, category, numDays, maxResults)
		if err != nil {
			return nil, nil, fmt.Errorf("fetching %s: %w", category, err)
		}
		counts[category] = len(papers)
		for _, p := range papers {
			if seen[p.EntryID] {
				continue
			}
			seen[p.EntryID] = true
			all = append(all, p)
		}
	}
	return all, counts, nil
}

// fetchPage requests one page of results for category, newest submissions first.
// It also returns the number of feed entries, including any that were skipped.
func (c *Client) fetchPage(ctx context.Context, category string, start, count int) ([]paper.Paper, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, fmt.Errorf("rate limiter: %w", err)
	}

	params := url.Values{}
	params.Set("search_query", "cat:"+category)
	params.Set("sortBy", "submittedDate")
	params.Set("sortOrder", "descending")
	params.Set("start", strconv.Itoa(start))
	params.Set("max_results", strconv.Itoa(count))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, 0, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/atom+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if err := checkHTTPErrors(resp); err != nil {
		return nil, 0, err
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}

	papers := make([]paper.Paper, 0, len(feed.Items))
	for _, item := range feed.Items {
		if strings.Contains(item.GUID, "/api/errors") {
			return nil, 0, &APIError{StatusCode: resp.StatusCode, Message: collapseSpace(item.Description)}
		}
		p, ok := toPaper(item)
		if !ok {
			continue
		}
		papers = append(papers, p)
	}
	return papers, len(feed.Items), nil
}

// checkHTTPErrors returns an error if the HTTP response indicates a problem.
func checkHTTPErrors(resp *http.Response) error {
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}
	return nil
}

// toPaper maps a feed entry to a paper. Entries without an id or a
// publication date are skipped.
func toPaper(item *gofeed.Item) (paper.Paper, bool) {
	id := item.GUID
	if id == "" {
		id = item.Link
	}
	if id == "" || item.PublishedParsed == nil {
		return paper.Paper{}, false
	}

	p := paper.Paper{
		EntryID:    id,
		Published:  item.PublishedParsed.UTC(),
		Title:      collapseSpace(item.Title),
		Summary:    collapseSpace(item.Description),
		Categories: item.Categories,
	}
	if item.UpdatedParsed != nil {
		p.Updated = item.UpdatedParsed.UTC()
	} else {
		p.Updated = p.Published
	}
	for _, a := range item.Authors {
		if a != nil && a.Name != "" {
			p.Authors = append(p.Authors, a.Name)
		}
	}
	return p, true
}

// collapseSpace trims s and replaces internal runs of whitespace with single spaces.
// arXiv wraps titles and abstracts across lines.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
