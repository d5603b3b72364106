package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"mookka/searchservice/internal/domain"
	"mookka/searchservice/internal/metrics"
)

// searchLocal queries the trusted catalog. A failing catalog degrades to an
// empty list; ok reports whether the lookup actually succeeded.
func (s *Service) searchLocal(ctx context.Context, mediaType domain.MediaType, query string) ([]domain.MediaSummary, bool) {
	if s.local == nil {
		return nil, true
	}
	items, err := s.local.FindByTypeAndText(ctx, mediaType, query, localResultLimit)
	if err != nil {
		metrics.LocalStoreErrorsTotal.Inc()
		s.logger.Warn("local catalog lookup failed",
			slog.String("type", string(mediaType)),
			slog.String("query", query),
			slog.String("error", err.Error()),
		)
		return nil, false
	}

	kept := make([]domain.MediaSummary, 0, len(items))
	for _, item := range items {
		if item.Type != mediaType || strings.TrimSpace(item.Title) == "" {
			continue
		}
		item.FromLocalStore = true
		item.Source = localSource
		kept = append(kept, item)
	}
	return kept, true
}

// localDetails resolves id against the catalog when it supports single
// lookups. found is false on a miss or on a store error.
func (s *Service) localDetails(ctx context.Context, mediaType domain.MediaType, id string) (domain.MediaDetail, bool) {
	store, ok := s.local.(LocalDetailStore)
	if !ok || store == nil {
		return domain.MediaDetail{}, false
	}
	detail, err := store.Get(ctx, mediaType, id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			metrics.LocalStoreErrorsTotal.Inc()
			s.logger.Warn("local catalog get failed",
				slog.String("type", string(mediaType)),
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}
		return domain.MediaDetail{}, false
	}
	detail.FromLocalStore = true
	detail.Source = localSource
	return detail, true
}
