package common

import (
	"html"
	"regexp"
	"strconv"
	"strings"
)

var (
	tagPattern  = regexp.MustCompile(`<[^>]+>`)
	yearPattern = regexp.MustCompile(`^\s*(\d{4})`)
)

// CleanHTMLText strips markup from provider descriptions.
func CleanHTMLText(raw string) string {
	value := strings.TrimSpace(raw)
	value = tagPattern.ReplaceAllString(value, " ")
	value = html.UnescapeString(value)
	value = strings.Join(strings.Fields(value), " ")
	return value
}

// ParseYear reads the leading four-digit year of dates such as
// "2021-09-15", "2021-09" or "2021". It returns 0 when there is none.
func ParseYear(raw string) int {
	match := yearPattern.FindStringSubmatch(raw)
	if match == nil {
		return 0
	}
	year, err := strconv.Atoi(match[1])
	if err != nil || year <= 0 {
		return 0
	}
	return year
}

// NonEmpty drops blank entries and trims the rest.
func NonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if value = strings.TrimSpace(value); value != "" {
			out = append(out, value)
		}
	}
	return out
}
