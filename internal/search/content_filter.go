package search

import (
	"strings"

	"mookka/searchservice/internal/domain"
	"mookka/searchservice/internal/textmatch"
)

// DefaultDenylist terms are matched as substrings of the folded text. The
// list stays short and specific: a bare "sex" would also catch "Sussex".
var DefaultDenylist = []string{
	"porn",
	"porno",
	"pornographic",
	"pornography",
	"hentai",
	"nsfw",
	"sexually explicit",
	"explicit sex",
	"sex tape",
	"adult video",
}

// ContentFilter drops external items whose title, description or genres
// contain a denylisted term. Local catalog items are curated and never
// pass through it.
type ContentFilter struct {
	terms []string
}

// NewContentFilter folds terms once. An empty list selects DefaultDenylist.
func NewContentFilter(terms []string) *ContentFilter {
	if len(terms) == 0 {
		terms = DefaultDenylist
	}
	folded := make([]string, 0, len(terms))
	seen := make(map[string]struct{}, len(terms))
	for _, term := range terms {
		term = textmatch.Fold(term)
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		folded = append(folded, term)
	}
	return &ContentFilter{terms: folded}
}

// ParseDenylist splits a comma separated env value.
func ParseDenylist(raw string) []string {
	parts := strings.Split(raw, ",")
	terms := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			terms = append(terms, part)
		}
	}
	return terms
}

// Terms returns a copy of the folded denylist.
func (f *ContentFilter) Terms() []string {
	return append([]string(nil), f.terms...)
}

// Blocked reports whether any term occurs in the item's title, description
// or genres.
func (f *ContentFilter) Blocked(item domain.MediaSummary) bool {
	if f == nil || len(f.terms) == 0 {
		return false
	}
	fields := make([]string, 0, 2+len(item.Genres))
	fields = append(fields, item.Title, item.Description)
	fields = append(fields, item.Genres...)
	text := textmatch.Fold(strings.Join(fields, " \n "))
	for _, term := range f.terms {
		if textmatch.Contains(text, term) {
			return true
		}
	}
	return false
}

// Apply returns the items that pass and how many were removed. The input
// order is preserved.
func (f *ContentFilter) Apply(items []domain.MediaSummary) ([]domain.MediaSummary, int) {
	if f == nil || len(items) == 0 {
		return items, 0
	}
	kept := items[:0:0]
	for _, item := range items {
		if f.Blocked(item) {
			continue
		}
		kept = append(kept, item)
	}
	return kept, len(items) - len(kept)
}
