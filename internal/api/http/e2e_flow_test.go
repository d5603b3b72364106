package apihttp

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"mookka/searchservice/internal/domain"
	"mookka/searchservice/internal/providers/googlebooks"
	"mookka/searchservice/internal/repository/memory"
	"mookka/searchservice/internal/search"
)

const upstreamVolumes = `{
  "totalItems": 2,
  "items": [
    {"id": "dune1", "volumeInfo": {"title": "Dune", "authors": ["Frank Herbert"], "publishedDate": "1965",
      "categories": ["Fiction"], "averageRating": 4.5, "ratingsCount": 250,
      "imageLinks": {"thumbnail": "http://books.google.com/content?id=dune1"}}},
    {"id": "dune2", "volumeInfo": {"title": "Dune Messiah", "authors": ["Frank Herbert"], "publishedDate": "1969",
      "categories": ["Fiction"], "averageRating": 4.0, "ratingsCount": 90}}
  ]
}`

// newFlowServer wires the real search service to a stubbed Google Books
// upstream and an in-memory catalog holding one book.
func newFlowServer(t *testing.T) (http.Handler, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/volumes", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(upstreamVolumes))
	})
	mux.HandleFunc("/volumes/dune2", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"id": "dune2", "volumeInfo": {"title": "Dune Messiah", "pageCount": 256, "publisher": "Putnam"}}`))
	})
	mux.HandleFunc("/volumes/", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})
	upstream := httptest.NewServer(mux)
	t.Cleanup(upstream.Close)

	catalog := memory.NewCatalog([]domain.MediaDetail{{
		MediaSummary: domain.MediaSummary{
			ExternalID: "dune1",
			Title:      "Dune",
			Type:       domain.MediaTypeBook,
			Rating:     9.2,
			Author:     domain.StringPtr("Frank Herbert"),
		},
		PageCount: 412,
	}})

	books := googlebooks.New(googlebooks.Config{BaseURL: upstream.URL, Client: upstream.Client()})
	service := search.NewService([]search.Provider{books}, 2*time.Second,
		search.WithLocalStore(catalog),
		search.WithRetryConfig(search.RetryConfig{MaxAttempts: 1}),
		search.WithLogger(testLogger()),
	)
	return NewServer(service, WithLogger(testLogger()), WithRateLimit(0, 0)).Handler(), &hits
}

func TestE2ESearchMergesCatalogAndProvider(t *testing.T) {
	handler, hits := newFlowServer(t)

	rec := serve(t, handler, http.MethodGet, "/search?type=book&q=dune")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var response domain.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(response.Results) != 2 {
		t.Fatalf("expected the duplicate Dune to collapse, got %d results", len(response.Results))
	}
	first := response.Results[0]
	if !first.FromLocalStore || first.Title != "Dune" || first.ID != "book:dune1" {
		t.Fatalf("expected local Dune first, got %+v", first)
	}
	if response.Results[1].Title != "Dune Messiah" || response.Results[1].FromLocalStore {
		t.Fatalf("unexpected second result: %+v", response.Results[1])
	}
	if response.LocalCount != 1 || response.Page != 1 || response.TotalPages != 1 {
		t.Fatalf("unexpected counters: %+v", response)
	}
	if len(response.Providers) != 1 || !response.Providers[0].OK {
		t.Fatalf("unexpected provider statuses: %+v", response.Providers)
	}

	_ = serve(t, handler, http.MethodGet, "/search?type=book&q=%20DUNE")
	if got := hits.Load(); got != 1 {
		t.Fatalf("repeated query should be served from cache, upstream hits = %d", got)
	}
	_ = serve(t, handler, http.MethodGet, "/search?type=book&q=dune&nocache=true")
	if got := hits.Load(); got != 2 {
		t.Fatalf("nocache should reach upstream, hits = %d", got)
	}
}

func TestE2EMediaDetailsLookupOrder(t *testing.T) {
	handler, hits := newFlowServer(t)

	rec := serve(t, handler, http.MethodGet, "/media/book/dune1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var local domain.MediaDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &local); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !local.FromLocalStore || local.PageCount != 412 || hits.Load() != 0 {
		t.Fatalf("expected catalog answer without upstream call, got %+v (hits %d)", local, hits.Load())
	}

	rec = serve(t, handler, http.MethodGet, "/media/book/dune2")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var remote domain.MediaDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &remote); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if remote.FromLocalStore || remote.Title != "Dune Messiah" || remote.PageCount != 256 || remote.Publisher != "Putnam" {
		t.Fatalf("unexpected provider detail: %+v", remote)
	}

	rec = serve(t, handler, http.MethodGet, "/media/book/unknown")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
	if code := decodeErrorCode(t, rec); code != "not_found" {
		t.Fatalf("unexpected code %q", code)
	}
}

func TestE2EShortQueryReturnsEmptyList(t *testing.T) {
	handler, hits := newFlowServer(t)
	rec := serve(t, handler, http.MethodGet, "/search?type=book&q=d")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var response domain.SearchResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if response.Results == nil || len(response.Results) != 0 || hits.Load() != 0 {
		t.Fatalf("expected empty results without upstream calls, got %+v", response)
	}
}
