package search

import (
	"math"
	"sort"
	"strings"

	"mookka/searchservice/internal/domain"
	"mookka/searchservice/internal/textmatch"
)

const (
	titleMatchBonus   = 10.0
	creatorMatchBonus = 8.0
)

// Scorer computes the query-dependent relevance of a summary.
type Scorer struct {
	Threshold float64
}

// Score is the sum of:
//
//	+10 when the title fuzzily matches the query
//	+8 when the author or director fuzzily matches the query
//	+baseline/2, where baseline is the adapter popularity score
//	  (or the rating for local items and items without one)
//	+a per-type bonus (see typeBonus)
func (sc Scorer) Score(item domain.MediaSummary, query string) float64 {
	score := 0.0
	if textmatch.IsSimilarText(item.Title, query, sc.Threshold) {
		score += titleMatchBonus
	}
	if creator := creatorOf(item); creator != "" && textmatch.IsSimilarText(creator, query, sc.Threshold) {
		score += creatorMatchBonus
	}
	score += baseline(item) / 2
	score += typeBonus(item)
	return score
}

func creatorOf(item domain.MediaSummary) string {
	switch item.Type {
	case domain.MediaTypeBook:
		return item.AuthorValue()
	case domain.MediaTypeFilm, domain.MediaTypeSerie:
		return item.DirectorValue()
	default:
		if author := item.AuthorValue(); author != "" {
			return author
		}
		return item.DirectorValue()
	}
}

func baseline(item domain.MediaSummary) float64 {
	if item.FromLocalStore || item.Popularity == 0 {
		return item.Rating
	}
	return item.Popularity
}

func typeBonus(item domain.MediaSummary) float64 {
	switch item.Type {
	case domain.MediaTypeGame:
		return math.Min(float64(item.PlatformCount), 5)
	case domain.MediaTypeBook:
		if year := item.YearValue(); year > 2000 {
			return math.Min(float64(year-2000)/10, 3)
		}
	case domain.MediaTypeFilm, domain.MediaTypeSerie:
		return math.Min(float64(item.VoteCount)/1000, 5)
	}
	return 0
}

func scoreResults(items []domain.MediaSummary, query string, threshold float64) {
	scorer := Scorer{Threshold: threshold}
	for i := range items {
		items[i].RelevanceScore = scorer.Score(items[i], query)
	}
}

// rankResults orders items by exact title match, then local origin, then
// relevance descending. Ties keep their merge order.
func rankResults(items []domain.MediaSummary, query string) {
	query = collapseSpaces(query)
	sort.SliceStable(items, func(i, j int) bool {
		return rankLess(items[i], items[j], query)
	})
}

func rankLess(left, right domain.MediaSummary, query string) bool {
	leftExact := isExactTitle(left.Title, query)
	rightExact := isExactTitle(right.Title, query)
	if leftExact != rightExact {
		return leftExact
	}
	if left.FromLocalStore != right.FromLocalStore {
		return left.FromLocalStore
	}
	return left.RelevanceScore > right.RelevanceScore
}

// isExactTitle expects query to be collapsed already.
func isExactTitle(title, query string) bool {
	return query != "" && strings.EqualFold(collapseSpaces(title), query)
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
