// Package fedreg pulls executive-order documents from the Federal Register
// API (documents.json). Results are normalized into provider records; tag
// mapping and persistence happen downstream.
package fedreg

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/policylens-backend/internal/platform/httpx"
	"github.com/yungbote/policylens-backend/internal/platform/logger"
	"github.com/yungbote/policylens-backend/internal/utils"
)

const defaultBaseURL = "https://www.federalregister.gov/api/v1"

// Document is one normalized feed record.
type Document struct {
	DocumentNumber string
	Title          string
	Abstract       string
	SigningDate    time.Time
	OfficialName   string
	HTMLURL        string
	Raw            json.RawMessage
}

type Client interface {
	// FetchSince returns every executive-order document signed on or after
	// the given date, ascending by signing date.
	FetchSince(ctx context.Context, since time.Time) ([]Document, error)
}

type client struct {
	baseURL     string
	httpClient  *http.Client
	log         *logger.Logger
	maxRetries  int
	perPage     int
	maxParallel int
}

func NewClient(log *logger.Logger) Client {
	base := utils.GetEnv("FEDREG_BASE_URL", defaultBaseURL, log)
	timeout := time.Duration(utils.GetEnvAsInt("FEDREG_TIMEOUT_SECONDS", 30, log)) * time.Second
	return &client{
		baseURL:     base,
		httpClient:  &http.Client{Timeout: timeout},
		log:         log.With("service", "FedregClient"),
		maxRetries:  utils.GetEnvAsInt("FEDREG_MAX_RETRIES", 3, log),
		perPage:     utils.GetEnvAsInt("FEDREG_PER_PAGE", 100, log),
		maxParallel: utils.GetEnvAsInt("FEDREG_MAX_PARALLEL", 4, log),
	}
}

type pageResponse struct {
	Count      int               `json:"count"`
	TotalPages int               `json:"total_pages"`
	Results    []json.RawMessage `json:"results"`
}

type rawDocument struct {
	DocumentNumber string `json:"document_number"`
	Title          string `json:"title"`
	Abstract       string `json:"abstract"`
	SigningDate    string `json:"signing_date"`
	President      struct {
		Name string `json:"name"`
	} `json:"president"`
	HTMLURL string `json:"html_url"`
}

func (c *client) FetchSince(ctx context.Context, since time.Time) ([]Document, error) {
	first, err := c.fetchPage(ctx, since, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch first page: %w", err)
	}

	pages := make([][]json.RawMessage, first.TotalPages)
	if first.TotalPages > 0 {
		pages[0] = first.Results
	}

	if first.TotalPages > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(c.maxParallel)
		var mu sync.Mutex
		for p := 2; p <= first.TotalPages; p++ {
			page := p
			g.Go(func() error {
				resp, err := c.fetchPage(gctx, since, page)
				if err != nil {
					return fmt.Errorf("fetch page %d: %w", page, err)
				}
				mu.Lock()
				pages[page-1] = resp.Results
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	var out []Document
	for _, results := range pages {
		for _, raw := range results {
			doc, ok := c.normalize(raw)
			if !ok {
				continue
			}
			out = append(out, doc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SigningDate.Equal(out[j].SigningDate) {
			return out[i].SigningDate.Before(out[j].SigningDate)
		}
		return out[i].DocumentNumber < out[j].DocumentNumber
	})
	c.log.Info("feed fetch complete", "pages", first.TotalPages, "documents", len(out))
	return out, nil
}

func (c *client) normalize(raw json.RawMessage) (Document, bool) {
	var rd rawDocument
	if err := json.Unmarshal(raw, &rd); err != nil {
		c.log.Warn("skipping malformed feed document", "error", err)
		return Document{}, false
	}
	if rd.DocumentNumber == "" {
		c.log.Warn("skipping feed document without document_number")
		return Document{}, false
	}
	signed, err := time.Parse("2006-01-02", rd.SigningDate)
	if err != nil {
		c.log.Warn("skipping feed document with bad signing_date",
			"document_number", rd.DocumentNumber, "signing_date", rd.SigningDate)
		return Document{}, false
	}
	return Document{
		DocumentNumber: rd.DocumentNumber,
		Title:          rd.Title,
		Abstract:       rd.Abstract,
		SigningDate:    signed,
		OfficialName:   rd.President.Name,
		HTMLURL:        rd.HTMLURL,
		Raw:            raw,
	}, true
}

func (c *client) pageURL(since time.Time, page int) string {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(c.perPage))
	q.Set("page", strconv.Itoa(page))
	q.Set("order", "oldest")
	q.Add("conditions[type][]", "PRESDOCU")
	q.Add("conditions[presidential_document_type][]", "executive_order")
	q.Set("conditions[signing_date][gte]", since.Format("2006-01-02"))
	q.Add("fields[]", "document_number")
	q.Add("fields[]", "title")
	q.Add("fields[]", "abstract")
	q.Add("fields[]", "signing_date")
	q.Add("fields[]", "president")
	q.Add("fields[]", "html_url")
	return c.baseURL + "/documents.json?" + q.Encode()
}

type fedregHTTPError struct {
	StatusCode int
	Body       string
}

func (e *fedregHTTPError) Error() string {
	return fmt.Sprintf("fedreg API error %d: %s", e.StatusCode, e.Body)
}

func (e *fedregHTTPError) HTTPStatusCode() int { return e.StatusCode }

func (c *client) fetchPage(ctx context.Context, since time.Time, page int) (*pageResponse, error) {
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		start := time.Now()
		resp, raw, err := c.fetchOnce(ctx, since, page)
		status := "0"
		if resp != nil {
			status = strconv.Itoa(resp.StatusCode)
		}
		observeFedregPage(status, time.Since(start))
		if err == nil {
			var out pageResponse
			if uErr := json.Unmarshal(raw, &out); uErr != nil {
				return nil, fmt.Errorf("decode feed page: %w", uErr)
			}
			return &out, nil
		}
		lastErr = err

		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			return nil, err
		}
		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 30*time.Second))
		c.log.Warn("feed page retrying",
			"page", page,
			"attempt", attempt+1,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sleepFor):
		}
		backoff *= 2
	}
	return nil, lastErr
}

func (c *client) fetchOnce(ctx context.Context, since time.Time, page int) (*http.Response, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.pageURL(since, page), nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &fedregHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}
