package search

import (
	"math"
	"testing"

	"mookka/searchservice/internal/domain"
)

func TestScorerComponents(t *testing.T) {
	year2010 := 2010
	tests := []struct {
		name  string
		item  domain.MediaSummary
		query string
		want  float64
	}{
		{
			name: "film title and director with vote bonus",
			item: domain.MediaSummary{
				Title:      "Dune",
				Type:       domain.MediaTypeFilm,
				Director:   domain.StringPtr("Denis Villeneuve"),
				Popularity: 100,
				VoteCount:  12000,
			},
			query: "dune",
			want:  10 + 50 + 5,
		},
		{
			name: "book author match with recency bonus",
			item: domain.MediaSummary{
				Title:      "Dune",
				Type:       domain.MediaTypeBook,
				Author:     domain.StringPtr("Frank Herbert"),
				Popularity: 40,
				Year:       &year2010,
			},
			query: "frank herbert",
			want:  8 + 20 + 1,
		},
		{
			name:  "game platform bonus is capped",
			item:  domain.MediaSummary{Title: "Hades", Type: domain.MediaTypeGame, Popularity: 70, PlatformCount: 7},
			query: "hades",
			want:  10 + 35 + 5,
		},
		{
			name:  "local items use rating as baseline",
			item:  domain.MediaSummary{Title: "Heat", Type: domain.MediaTypeFilm, Rating: 8, Popularity: 900, FromLocalStore: true},
			query: "heat",
			want:  10 + 4,
		},
		{
			name:  "negative book heuristic lowers the score",
			item:  domain.MediaSummary{Title: "Calculus", Type: domain.MediaTypeBook, Popularity: -10},
			query: "zebra",
			want:  -5,
		},
	}

	scorer := Scorer{Threshold: 0.7}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scorer.Score(tt.item, tt.query)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("Score() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRankResultsOrdering(t *testing.T) {
	items := []domain.MediaSummary{
		{ExternalID: "a", Title: "Arrival II", RelevanceScore: 90},
		{ExternalID: "b", Title: "Arrival Day", RelevanceScore: 10, FromLocalStore: true},
		{ExternalID: "c", Title: "ARRIVAL", RelevanceScore: 1},
		{ExternalID: "d", Title: "Arrival III", RelevanceScore: 90},
		{ExternalID: "e", Title: "Arrival IV", RelevanceScore: 95},
	}
	rankResults(items, " arrival ")

	want := []string{"c", "b", "e", "a", "d"}
	for i, id := range want {
		if items[i].ExternalID != id {
			t.Fatalf("position %d: got %s, want %s (full: %+v)", i, items[i].ExternalID, id, items)
		}
	}
}

func TestIsExactTitleCollapsesWhitespace(t *testing.T) {
	tests := []struct {
		title string
		query string
		want  bool
	}{
		{"Dune  Part Two", "dune part two", true},
		{" Dune\tPart Two ", "DUNE PART TWO", true},
		{"Dune Part Two", "dune", false},
		{"Dune", "", false},
	}
	for _, tt := range tests {
		if got := isExactTitle(tt.title, collapseSpaces(tt.query)); got != tt.want {
			t.Fatalf("isExactTitle(%q, %q) = %v, want %v", tt.title, tt.query, got, tt.want)
		}
	}

	items := []domain.MediaSummary{
		{ExternalID: "high", Title: "Dune Messiah", RelevanceScore: 90},
		{ExternalID: "exact", Title: "Dune  Part Two", RelevanceScore: 5},
	}
	rankResults(items, "dune   part two")
	if items[0].ExternalID != "exact" {
		t.Fatalf("expected exact title first despite inner whitespace, got %+v", items)
	}
}
