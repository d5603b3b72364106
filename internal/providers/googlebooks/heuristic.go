package googlebooks

import (
	"math"

	"mookka/searchservice/internal/textmatch"
)

// MinScore is the cut-off below which a volume is treated as off-topic for
// a media catalog and dropped.
const MinScore = -20.0

var preferredKeywords = []string{
	"fiction", "novel", "manga", "comics", "fantasy", "sci-fi",
	"thriller", "mystery", "adventure", "young adult", "horror",
}

var avoidKeywords = []string{
	"academic", "textbook", "thesis", "essay", "biography", "self-help",
	"business", "education", "reference", "science", "mathematics",
	"philosophy", "religion", "political", "economics", "medical", "law",
	"computer science",
}

// signals are the volume fields the heuristic reads.
type signals struct {
	title         string
	description   string
	categories    []string
	hasThumbnail  bool
	averageRating float64
	ratingsCount  int
	year          int
}

// score favours narrative fiction over academic and professional titles:
//
//	+20 / -30 per category naming a preferred / avoided theme
//	+10 / -15 per preferred / avoided keyword in title and description
//	  (substring match, so "novels" and "lawyer" count)
//	+15 with a thumbnail
//	+5 per average rating point, +1 per 10 ratings (max 20)
//	+1 per 5 years after 2000 (max 15), +10 before 1900
func score(in signals) float64 {
	total := 0.0
	for _, category := range in.categories {
		folded := textmatch.Fold(category)
		if containsAny(folded, preferredKeywords) {
			total += 20
		}
		if containsAny(folded, avoidKeywords) {
			total -= 30
		}
	}

	text := textmatch.Fold(in.title + " " + in.description)
	for _, keyword := range preferredKeywords {
		if textmatch.Contains(text, keyword) {
			total += 10
		}
	}
	for _, keyword := range avoidKeywords {
		if textmatch.Contains(text, keyword) {
			total -= 15
		}
	}

	if in.hasThumbnail {
		total += 15
	}
	total += in.averageRating * 5
	total += math.Min(float64(in.ratingsCount)/10, 20)
	switch {
	case in.year > 2000:
		total += math.Min(float64(in.year-2000)/5, 15)
	case in.year > 0 && in.year < 1900:
		total += 10
	}
	return total
}

func containsAny(folded string, keywords []string) bool {
	for _, keyword := range keywords {
		if textmatch.Contains(folded, keyword) {
			return true
		}
	}
	return false
}
