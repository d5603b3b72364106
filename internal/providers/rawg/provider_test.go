package rawg

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"mookka/searchservice/internal/domain"
)

const gamesBody = `{
  "count": 41,
  "results": [
    {"id": 3498, "slug": "grand-theft-auto-v", "name": "Grand Theft Auto V", "released": "2013-09-17",
     "background_image": "https://media.rawg.io/media/games/gtav.jpg", "rating": 4.47, "ratings_count": 6500,
     "platforms": [{"platform": {"id": 4, "name": "PC"}}, {"platform": {"id": 187, "name": "PlayStation 5"}}],
     "genres": [{"name": "Action"}], "esrb_rating": {"slug": "mature", "name": "Mature"}},
    {"id": 58175, "name": "God of War", "released": "2018-04-20", "background_image": null, "rating": 4.0, "ratings_count": 150,
     "platforms": []},
    {"id": 9, "name": "Hidden", "esrb_rating": {"slug": "adults-only"}},
    {"id": 0, "name": "Broken"}
  ]
}`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/games", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("key") != "k" || q.Get("search") != "gta" || q.Get("page_size") != "20" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(gamesBody))
	})
	mux.HandleFunc("/games/3498", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 3498, "name": "Grand Theft Auto V", "released": "2013-09-17", "rating": 4.47,
  "description": "<p>Los Santos.</p>", "website": "http://www.rockstargames.com/V/",
  "platforms": [{"platform": {"name": "PC"}}], "developers": [{"name": "Rockstar North"}], "publishers": [{"name": "Rockstar Games"}]}`))
	})
	mux.HandleFunc("/games/nope", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	return httptest.NewServer(mux)
}

func TestPopularity(t *testing.T) {
	// 44.7 rating, 40 capped ratings, no recency, 15 cover, 4 platforms
	got := popularity(4.47, 6500, 2013, true, 2)
	if math.Abs(got-(44.7+40+15+4)) > 1e-9 {
		t.Fatalf("popularity() = %v", got)
	}
	// 40 rating, 1.5 ratings, 6 recency, no cover, 20 capped platforms
	got = popularity(4.0, 150, 2018, false, 12)
	if math.Abs(got-(40+1.5+6+20)) > 1e-9 {
		t.Fatalf("popularity() = %v", got)
	}
	if got := popularity(0, 0, 2040, false, 0); got != 20 {
		t.Fatalf("expected recency cap of 20, got %v", got)
	}
}

func TestSearch(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	p := New(Config{APIKey: "k", BaseURL: srv.URL, Client: srv.Client()})

	page, err := p.Search(context.Background(), domain.ProviderRequest{Type: domain.MediaTypeGame, Query: "gta"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.TotalResults != 41 || page.TotalPages != 3 {
		t.Fatalf("unexpected paging: %+v", page)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected adult and malformed rows to be skipped, got %+v", page.Items)
	}
	gta := page.Items[0]
	if gta.ExternalID != "3498" || gta.PlatformCount != 2 || gta.RatingsCount != 6500 {
		t.Fatalf("unexpected mapping: %+v", gta)
	}
	if math.Abs(gta.Rating-8.94) > 1e-9 {
		t.Fatalf("expected rating scaled to 10, got %v", gta.Rating)
	}
	if gta.CoverImage == nil || len(gta.Genres) != 1 || gta.YearValue() != 2013 {
		t.Fatalf("unexpected optionals: %+v", gta)
	}
	if gow := page.Items[1]; gow.CoverImage != nil || gow.PlatformCount != 0 {
		t.Fatalf("expected missing cover to stay nil: %+v", gow)
	}
}

func TestDetails(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	p := New(Config{APIKey: "k", BaseURL: srv.URL, Client: srv.Client()})

	detail, err := p.Details(context.Background(), domain.MediaTypeGame, "3498")
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if detail.Description != "Los Santos." || detail.Publisher != "Rockstar Games" || len(detail.Developers) != 1 {
		t.Fatalf("unexpected detail: %+v", detail)
	}
	if len(detail.Platforms) != 1 || detail.Platforms[0] != "PC" || detail.ReleaseDate != "2013-09-17" {
		t.Fatalf("unexpected platforms: %+v", detail)
	}
	if _, err := p.Details(context.Background(), domain.MediaTypeGame, "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRequiresKey(t *testing.T) {
	p := New(Config{})
	if _, err := p.Search(context.Background(), domain.ProviderRequest{Type: domain.MediaTypeGame, Query: "gta"}); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if p.Info().Enabled {
		t.Fatal("expected disabled provider without key")
	}
}
