package tmdb

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"mookka/searchservice/internal/domain"
)

const movieSearchBody = `{
  "page": 1,
  "total_pages": 2,
  "total_results": 23,
  "results": [
    {"id": 438631, "title": "Dune", "overview": "Paul Atreides &amp; family.", "poster_path": "/d5NXSklXo0qyIYkgV94XAgMIckC.jpg",
     "release_date": "2021-09-15", "vote_average": 7.8, "vote_count": 11000, "popularity": 120.5, "genre_ids": [878, 12]},
    {"id": 841, "title": "Dune", "poster_path": null, "release_date": "", "vote_average": 6.2, "vote_count": 2300, "popularity": 20, "genre_ids": [99]},
    {"id": 0, "title": "Broken"},
    {"id": 5, "title": "Hidden", "adult": true}
  ]
}`

const movieGenresBody = `{"genres": [{"id": 878, "name": "Science Fiction"}, {"id": 12, "name": "Adventure"}]}`

func newTestServer(t *testing.T, genreHits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/search/movie", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("api_key") != "key" || q.Get("include_adult") != "false" || q.Get("query") != "dune" || q.Get("page") != "1" {
			t.Errorf("unexpected query: %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(movieSearchBody))
	})
	mux.HandleFunc("/search/tv", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"page":1,"total_pages":1,"total_results":1,"results":[{"id": 1399, "name": "Game of Thrones", "first_air_date": "2011-04-17", "vote_average": 8.4, "popularity": 300}]}`))
	})
	mux.HandleFunc("/genre/movie/list", func(w http.ResponseWriter, r *http.Request) {
		genreHits.Add(1)
		_, _ = w.Write([]byte(movieGenresBody))
	})
	mux.HandleFunc("/genre/tv/list", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/movie/438631", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("append_to_response") != "credits" {
			t.Errorf("expected credits to be appended, got %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{
  "id": 438631, "title": "Dune", "overview": "<i>Spice</i>", "poster_path": "/p.jpg", "release_date": "2021-09-15",
  "vote_average": 7.8, "vote_count": 11000, "popularity": 120.5, "runtime": 155, "homepage": "https://dune.movie",
  "original_language": "en", "genres": [{"id": 878, "name": "Science Fiction"}],
  "production_companies": [{"name": "Legendary Pictures"}],
  "credits": {"crew": [{"name": "Hans Zimmer", "job": "Original Music Composer"}, {"name": "Denis Villeneuve", "job": "Director"}]}
}`))
	})
	mux.HandleFunc("/tv/1399", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 1399, "name": "Game of Thrones", "first_air_date": "2011-04-17", "number_of_seasons": 8,
  "number_of_episodes": 73, "episode_run_time": [60], "created_by": [{"name": "David Benioff"}], "credits": {"crew": []}}`))
	})
	mux.HandleFunc("/movie/404", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status_code":34}`, http.StatusNotFound)
	})
	mux.HandleFunc("/movie/429", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})
	return httptest.NewServer(mux)
}

func newTestProvider(srv *httptest.Server) *Provider {
	return New(Config{APIKey: "key", BaseURL: srv.URL, Client: srv.Client()})
}

func TestSearchMovies(t *testing.T) {
	var genreHits atomic.Int32
	srv := newTestServer(t, &genreHits)
	defer srv.Close()
	p := newTestProvider(srv)

	page, err := p.Search(context.Background(), domain.ProviderRequest{Type: domain.MediaTypeFilm, Query: "dune", Page: 1})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if page.TotalPages != 2 || page.TotalResults != 23 {
		t.Fatalf("unexpected paging: %+v", page)
	}
	if len(page.Items) != 2 {
		t.Fatalf("expected malformed and adult rows to be skipped, got %d items", len(page.Items))
	}

	dune := page.Items[0]
	if dune.ExternalID != "438631" || dune.Type != domain.MediaTypeFilm || dune.Source != "tmdb" {
		t.Fatalf("unexpected identity: %+v", dune)
	}
	if dune.CoverImage == nil || *dune.CoverImage != "https://image.tmdb.org/t/p/w500/d5NXSklXo0qyIYkgV94XAgMIckC.jpg" {
		t.Fatalf("unexpected cover: %v", dune.CoverImage)
	}
	if dune.YearValue() != 2021 || dune.Rating != 7.8 || dune.Popularity != 120.5 || dune.VoteCount != 11000 {
		t.Fatalf("unexpected metrics: %+v", dune)
	}
	if len(dune.Genres) != 2 || dune.Genres[0] != "Science Fiction" || dune.Genres[1] != "Adventure" {
		t.Fatalf("unexpected genres: %v", dune.Genres)
	}
	if dune.Description != "Paul Atreides & family." {
		t.Fatalf("unexpected description: %q", dune.Description)
	}

	old := page.Items[1]
	if old.CoverImage != nil || old.Year != nil || len(old.Genres) != 0 {
		t.Fatalf("expected missing optionals to stay nil: %+v", old)
	}

	if _, err := p.Search(context.Background(), domain.ProviderRequest{Type: domain.MediaTypeFilm, Query: "dune", Page: 1}); err != nil {
		t.Fatalf("second Search: %v", err)
	}
	if genreHits.Load() != 1 {
		t.Fatalf("expected genre list to be memoized, fetched %d times", genreHits.Load())
	}
}

func TestSearchSeriesSurvivesGenreFailure(t *testing.T) {
	var genreHits atomic.Int32
	srv := newTestServer(t, &genreHits)
	defer srv.Close()
	p := newTestProvider(srv)

	page, err := p.Search(context.Background(), domain.ProviderRequest{Type: domain.MediaTypeSerie, Query: "thrones"})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].Title != "Game of Thrones" || page.Items[0].Type != domain.MediaTypeSerie {
		t.Fatalf("unexpected items: %+v", page.Items)
	}
	if page.Items[0].YearValue() != 2011 {
		t.Fatalf("expected first air year, got %d", page.Items[0].YearValue())
	}
}

func TestDetails(t *testing.T) {
	var genreHits atomic.Int32
	srv := newTestServer(t, &genreHits)
	defer srv.Close()
	p := newTestProvider(srv)

	movie, err := p.Details(context.Background(), domain.MediaTypeFilm, "438631")
	if err != nil {
		t.Fatalf("Details: %v", err)
	}
	if movie.DirectorValue() != "Denis Villeneuve" || movie.RuntimeMinutes != 155 || movie.Publisher != "Legendary Pictures" {
		t.Fatalf("unexpected movie detail: %+v", movie)
	}
	if movie.Description != "Spice" || movie.Homepage != "https://dune.movie" || movie.ReleaseDate != "2021-09-15" {
		t.Fatalf("unexpected movie fields: %+v", movie)
	}

	show, err := p.Details(context.Background(), domain.MediaTypeSerie, "1399")
	if err != nil {
		t.Fatalf("Details tv: %v", err)
	}
	if show.DirectorValue() != "David Benioff" || show.Seasons != 8 || show.Episodes != 73 || show.RuntimeMinutes != 60 {
		t.Fatalf("unexpected show detail: %+v", show)
	}
}

func TestDetailsErrors(t *testing.T) {
	var genreHits atomic.Int32
	srv := newTestServer(t, &genreHits)
	defer srv.Close()
	p := newTestProvider(srv)

	if _, err := p.Details(context.Background(), domain.MediaTypeFilm, "404"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := p.Details(context.Background(), domain.MediaTypeFilm, "not-a-number"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-numeric id, got %v", err)
	}
	if _, err := p.Details(context.Background(), domain.MediaTypeFilm, "429"); !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if _, err := p.Details(context.Background(), domain.MediaTypeBook, "1"); err == nil {
		t.Fatal("expected unsupported type error")
	}
}

func TestSearchWithoutKey(t *testing.T) {
	p := New(Config{BaseURL: "http://127.0.0.1:0"})
	if p.Info().Enabled {
		t.Fatal("provider without key should report disabled")
	}
	_, err := p.Search(context.Background(), domain.ProviderRequest{Type: domain.MediaTypeFilm, Query: "dune"})
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if p.Supports(domain.MediaTypeGame) || !p.Supports(domain.MediaTypeSerie) {
		t.Fatal("unexpected Supports result")
	}
}
