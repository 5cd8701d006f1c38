package fedreg

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/policylens-backend/internal/platform/logger"
)

func testClient(t *testing.T, baseURL string) *client {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return &client{
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 5 * time.Second},
		log:         log,
		maxRetries:  2,
		perPage:     2,
		maxParallel: 2,
	}
}

func feedDoc(num, title, signed string) map[string]any {
	return map[string]any{
		"document_number": num,
		"title":           title,
		"signing_date":    signed,
		"president":       map[string]any{"name": "Jane Doe"},
		"html_url":        "https://example.org/" + num,
	}
}

func TestFetchSincePaginates(t *testing.T) {
	pages := map[string][]map[string]any{
		"1": {feedDoc("2025-0002", "Second", "2025-02-01"), feedDoc("2025-0001", "First", "2025-01-15")},
		"2": {feedDoc("2025-0003", "Third", "2025-03-01")},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		docs := pages[page]
		results := make([]json.RawMessage, 0, len(docs))
		for _, d := range docs {
			b, _ := json.Marshal(d)
			results = append(results, b)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"count":       3,
			"total_pages": 2,
			"results":     results,
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	docs, err := c.FetchSince(context.Background(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FetchSince: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(docs))
	}
	// Ascending by signing date regardless of page order.
	for i := 1; i < len(docs); i++ {
		if docs[i].SigningDate.Before(docs[i-1].SigningDate) {
			t.Fatalf("documents not sorted by signing date: %v", docs)
		}
	}
	if docs[0].DocumentNumber != "2025-0001" || docs[2].DocumentNumber != "2025-0003" {
		t.Fatalf("wrong order: %v", docs)
	}
	if docs[0].OfficialName != "Jane Doe" {
		t.Fatalf("official name not mapped: %+v", docs[0])
	}
}

func TestFetchSinceRetriesOn503(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprint(w, "maintenance")
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"count":       0,
			"total_pages": 1,
			"results":     []json.RawMessage{},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	docs, err := c.FetchSince(context.Background(), time.Now())
	if err != nil {
		t.Fatalf("FetchSince: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected empty feed, got %d", len(docs))
	}
	if atomic.LoadInt32(&calls) < 2 {
		t.Fatalf("expected a retry after 503, calls=%d", calls)
	}
}

func TestFetchSinceSkipsMalformedDocs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		good, _ := json.Marshal(feedDoc("2025-0009", "Good", "2025-05-01"))
		noDate, _ := json.Marshal(map[string]any{"document_number": "2025-0010", "signing_date": "not-a-date"})
		noNumber, _ := json.Marshal(map[string]any{"title": "orphan"})
		_ = json.NewEncoder(w).Encode(map[string]any{
			"count":       3,
			"total_pages": 1,
			"results":     []json.RawMessage{good, noDate, noNumber},
		})
	}))
	defer srv.Close()

	c := testClient(t, srv.URL)
	docs, err := c.FetchSince(context.Background(), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("FetchSince: %v", err)
	}
	if len(docs) != 1 || docs[0].DocumentNumber != "2025-0009" {
		t.Fatalf("expected only the well-formed document, got %+v", docs)
	}
}
