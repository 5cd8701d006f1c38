package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/policylens-backend/internal/domain/digests"
)

type fakeDigestQuery struct {
	docs map[string][]byte
}

func (f *fakeDigestQuery) Get(ctx context.Context, kind string) ([]byte, error) {
	return f.docs[kind], nil
}

func (f *fakeDigestQuery) Invalidate(ctx context.Context, kind string) {}

func digestTestRouter(query *fakeDigestQuery) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewDigestHandler(query, nil)
	r.GET("/api/digests/:kind", h.GetDigest)
	r.GET("/api/digests/:kind/card/:key", h.GetCard)
	return r
}

func TestGetDigestServesPersistedBytes(t *testing.T) {
	doc := []byte(`{"entries":[{"period":"2021-Q1","order_count":3}],"generated_at":"2024-01-02T03:04:05Z"}`)
	r := digestTestRouter(&fakeDigestQuery{docs: map[string][]byte{digests.KindPeriods: doc}})

	req := httptest.NewRequest(http.MethodGet, "/api/digests/"+digests.KindPeriods, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), doc) {
		t.Fatalf("document must be served byte for byte, got %s", rec.Body.String())
	}
}

func TestGetDigestEmptyCollectionForUngeneratedKind(t *testing.T) {
	r := digestTestRouter(&fakeDigestQuery{docs: map[string][]byte{}})

	req := httptest.NewRequest(http.MethodGet, "/api/digests/"+digests.KindTerms, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Entries []json.RawMessage `json:"entries"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Entries == nil || len(body.Entries) != 0 {
		t.Fatalf("expected empty entries array, got %s", rec.Body.String())
	}
}

func TestGetDigestRejectsUnknownKind(t *testing.T) {
	r := digestTestRouter(&fakeDigestQuery{})

	req := httptest.NewRequest(http.MethodGet, "/api/digests/mystery_digests", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestGetCardWithoutCardServiceIsNotImplemented(t *testing.T) {
	r := digestTestRouter(&fakeDigestQuery{})

	req := httptest.NewRequest(http.MethodGet, "/api/digests/"+digests.KindTerms+"/card/abc:2021", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501, got %d", rec.Code)
	}
}
