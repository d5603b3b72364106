package search

import (
	"strings"

	"mookka/searchservice/internal/domain"
)

const localSource = "local"

// mergeResults concatenates local and external items, dropping any external
// item whose (externalId, type) is already present. Local copies always win
// and external duplicates keep their first occurrence. It returns the
// merged slice and the number of external items dropped.
func mergeResults(local, external []domain.MediaSummary) ([]domain.MediaSummary, int) {
	merged := make([]domain.MediaSummary, 0, len(local)+len(external))
	seen := make(map[string]struct{}, len(local)+len(external))

	for _, item := range local {
		item.FromLocalStore = true
		if item.Source == "" {
			item.Source = localSource
		}
		if strings.TrimSpace(item.ExternalID) != "" {
			seen[item.DedupeKey()] = struct{}{}
		}
		merged = append(merged, item)
	}

	dropped := 0
	for _, item := range external {
		item.FromLocalStore = false
		if strings.TrimSpace(item.ExternalID) == "" {
			merged = append(merged, item)
			continue
		}
		key := item.DedupeKey()
		if _, exists := seen[key]; exists {
			dropped++
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, item)
	}
	return merged, dropped
}

// countLocalOnly is the number of local items that no external item on this
// page duplicated. It feeds totalResults.
func countLocalOnly(local, external []domain.MediaSummary) int {
	if len(local) == 0 {
		return 0
	}
	externalKeys := make(map[string]struct{}, len(external))
	for _, item := range external {
		if strings.TrimSpace(item.ExternalID) != "" {
			externalKeys[item.DedupeKey()] = struct{}{}
		}
	}
	count := 0
	for _, item := range local {
		if strings.TrimSpace(item.ExternalID) == "" {
			count++
			continue
		}
		if _, dup := externalKeys[item.DedupeKey()]; !dup {
			count++
		}
	}
	return count
}
