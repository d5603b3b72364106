package textmatch

import (
	"math"
	"strings"
	"unicode/utf8"
)

// DefaultThreshold is used by every call site unless configured otherwise.
const DefaultThreshold = 0.7

const minWordLength = 3

// IsSimilarText is a cheap typo-tolerant comparison. It is true when one
// string contains the other, when a word of b (3+ runes) occurs inside a,
// or when a greedy character alignment between a word of a and a word of b
// reaches threshold. It is not an edit distance.
func IsSimilarText(a, b string, threshold float64) bool {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	left := Fold(a)
	right := Fold(b)
	if left == "" || right == "" {
		return false
	}
	if strings.Contains(left, right) || strings.Contains(right, left) {
		return true
	}

	rightWords := Words(right)
	for _, word := range rightWords {
		if utf8.RuneCountInString(word) < minWordLength {
			continue
		}
		if strings.Contains(left, word) {
			return true
		}
	}

	leftWords := Words(left)
	for _, rw := range rightWords {
		rightLen := utf8.RuneCountInString(rw)
		if rightLen < minWordLength {
			continue
		}
		allowed := int(math.Floor(float64(rightLen)*(1-threshold) + 1e-9))
		for _, lw := range leftWords {
			leftLen := utf8.RuneCountInString(lw)
			if absInt(leftLen-rightLen) > allowed {
				continue
			}
			if AlignmentRatio(lw, rw) >= threshold {
				return true
			}
		}
	}
	return false
}

// AlignmentRatio walks both words with two pointers. Matching runes advance
// both pointers; on a mismatch only the pointer into the longer word moves.
// The result is matches / max(len(a), len(b)).
func AlignmentRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	longest := max(len(ra), len(rb))
	if longest == 0 {
		return 0
	}
	matches := 0
	i, j := 0, 0
	for i < len(ra) && j < len(rb) {
		if ra[i] == rb[j] {
			matches++
			i++
			j++
			continue
		}
		if len(ra) > len(rb) {
			i++
		} else {
			j++
		}
	}
	return float64(matches) / float64(longest)
}

func absInt(value int) int {
	if value < 0 {
		return -value
	}
	return value
}
