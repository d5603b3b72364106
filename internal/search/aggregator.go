package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/semaphore"

	"mookka/searchservice/internal/domain"
	"mookka/searchservice/internal/metrics"
)

// maxConcurrentProviders caps provider calls in flight for one search.
const maxConcurrentProviders = 10

type preparedSearch struct {
	mediaType domain.MediaType
	query     string
	page      int
	short     bool
	selected  []Provider
}

type providerOutcome struct {
	status domain.ProviderStatus
	page   domain.ProviderPage
}

// Search runs one type-scoped query against the local catalog and every
// external provider that serves the type, then filters, merges, scores and
// ranks the union. Provider failures degrade to fewer results, never to an
// error.
func (s *Service) Search(ctx context.Context, request domain.SearchRequest) (domain.SearchResponse, error) {
	prepared, err := s.prepareSearch(request)
	if err != nil {
		return domain.SearchResponse{}, err
	}
	if prepared.short {
		return emptyResponse(prepared), nil
	}

	if s.cacheDisabled || request.NoCache {
		response, _ := s.executePreparedSearch(ctx, prepared)
		return response, nil
	}

	startedAt := time.Now()
	cacheKey := buildSearchCacheKey(prepared.mediaType, prepared.query, prepared.page)
	if cached, ok := s.results.Get(ctx, cacheKey); ok {
		cached.ElapsedMS = time.Since(startedAt).Milliseconds()
		return cached, nil
	}

	response, complete := s.executePreparedSearch(ctx, prepared)
	if complete {
		s.results.Set(ctx, cacheKey, response)
	}
	return response, nil
}

func (s *Service) prepareSearch(request domain.SearchRequest) (preparedSearch, error) {
	if !request.Type.Valid() {
		return preparedSearch{}, fmt.Errorf("%w: %q", ErrInvalidMediaType, request.Type)
	}
	query := strings.Join(strings.Fields(request.Query), " ")
	prepared := preparedSearch{
		mediaType: request.Type,
		query:     query,
		page:      domain.NormalizePage(request.Page),
	}
	if utf8.RuneCountInString(query) < MinQueryLength {
		prepared.short = true
		return prepared, nil
	}
	prepared.selected = s.providersFor(request.Type)
	if len(prepared.selected) == 0 && s.local == nil {
		return preparedSearch{}, ErrNoProviders
	}
	return prepared, nil
}

func emptyResponse(prepared preparedSearch) domain.SearchResponse {
	return domain.SearchResponse{
		Type:    prepared.mediaType,
		Query:   prepared.query,
		Page:    prepared.page,
		Results: []domain.MediaSummary{},
	}
}

// executePreparedSearch fans out to the catalog and providers in parallel.
// complete is false when any source failed, so degraded pages stay out of
// the cache.
func (s *Service) executePreparedSearch(ctx context.Context, prepared preparedSearch) (domain.SearchResponse, bool) {
	startedAt := time.Now()
	outcomes := make([]providerOutcome, len(prepared.selected))

	var (
		wg      sync.WaitGroup
		local   []domain.MediaSummary
		localOK = true
	)

	// The catalog holds no pagination, so it only contributes to page one.
	if prepared.page == 1 && s.local != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local, localOK = s.searchLocal(ctx, prepared.mediaType, prepared.query)
		}()
	}

	sem := semaphore.NewWeighted(maxConcurrentProviders)
	for i, provider := range prepared.selected {
		wg.Add(1)
		go func(index int, current Provider) {
			defer wg.Done()
			outcomes[index] = s.searchProvider(ctx, sem, current, prepared)
		}(i, provider)
	}
	wg.Wait()

	complete := localOK
	statuses := make([]domain.ProviderStatus, 0, len(outcomes))
	external := make([]domain.MediaSummary, 0)
	totalPages, totalResults := 0, 0
	for _, outcome := range outcomes {
		statuses = append(statuses, outcome.status)
		if !outcome.status.OK {
			complete = false
			continue
		}
		external = append(external, outcome.page.Items...)
		if outcome.page.TotalPages > totalPages {
			totalPages = outcome.page.TotalPages
		}
		totalResults += outcome.page.TotalResults
	}

	external, blocked := s.filter.Apply(external)
	if blocked > 0 {
		metrics.ItemsDroppedTotal.WithLabelValues("content_filter").Add(float64(blocked))
	}

	merged, duplicates := mergeResults(local, external)
	if duplicates > 0 {
		metrics.ItemsDroppedTotal.WithLabelValues("duplicate").Add(float64(duplicates))
	}
	scoreResults(merged, prepared.query, s.fuzzyThreshold)
	rankResults(merged, prepared.query)

	totalResults += countLocalOnly(local, external)
	if totalResults < len(merged) {
		totalResults = len(merged)
	}
	if totalPages < 1 && len(merged) > 0 {
		totalPages = 1
	}

	response := domain.SearchResponse{
		Type:         prepared.mediaType,
		Query:        prepared.query,
		Page:         prepared.page,
		Results:      merged,
		TotalPages:   totalPages,
		TotalResults: totalResults,
		Providers:    statuses,
		LocalCount:   len(local),
		ElapsedMS:    time.Since(startedAt).Milliseconds(),
	}

	s.logger.Debug("search completed",
		slog.String("type", string(prepared.mediaType)),
		slog.String("query", prepared.query),
		slog.Int("page", prepared.page),
		slog.Int("results", len(merged)),
		slog.Int("local", len(local)),
		slog.Int("filtered", blocked),
		slog.Int64("elapsed_ms", response.ElapsedMS),
	)
	return response, complete
}

func (s *Service) searchProvider(ctx context.Context, sem *semaphore.Weighted, provider Provider, prepared preparedSearch) providerOutcome {
	key := providerKey(provider)
	status := domain.ProviderStatus{Name: key}

	if err := sem.Acquire(ctx, 1); err != nil {
		status.Error = "context cancelled"
		return providerOutcome{status: status}
	}
	defer sem.Release(1)

	if blocked, until, lastErr := s.isProviderBlocked(key, time.Now()); blocked {
		status.Error = fmt.Sprintf("provider temporarily unhealthy until %s: %s", until.UTC().Format(time.RFC3339), lastErr)
		return providerOutcome{status: status}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.waitProviderRateLimit(callCtx, key); err != nil {
		status.Error = "rate limit wait cancelled"
		return providerOutcome{status: status}
	}

	startedAt := time.Now()
	var page domain.ProviderPage
	err := RetryWithBackoff(callCtx, s.retry, func() error {
		var searchErr error
		page, searchErr = provider.Search(callCtx, domain.ProviderRequest{
			Type:  prepared.mediaType,
			Query: prepared.query,
			Page:  prepared.page,
		})
		return searchErr
	})
	s.recordProviderResult(key, prepared.query, err, time.Since(startedAt), time.Now())
	if err != nil {
		s.logger.Warn("provider search failed",
			slog.String("provider", key),
			slog.String("type", string(prepared.mediaType)),
			slog.String("query", prepared.query),
			slog.String("error", err.Error()),
		)
		status.Error = err.Error()
		return providerOutcome{status: status}
	}

	page.Items = sanitizeProviderItems(page.Items, prepared.mediaType, key)
	status.OK = true
	status.Count = len(page.Items)
	return providerOutcome{status: status, page: page}
}

// sanitizeProviderItems drops items without an identity and pins the type so
// a misbehaving adapter cannot leak another kind into the page.
func sanitizeProviderItems(items []domain.MediaSummary, mediaType domain.MediaType, source string) []domain.MediaSummary {
	kept := make([]domain.MediaSummary, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.ExternalID) == "" || strings.TrimSpace(item.Title) == "" {
			metrics.ItemsDroppedTotal.WithLabelValues("malformed").Inc()
			continue
		}
		if item.Type == "" {
			item.Type = mediaType
		}
		if item.Type != mediaType {
			metrics.ItemsDroppedTotal.WithLabelValues("wrong_type").Inc()
			continue
		}
		if item.ID == "" {
			item.ID = item.ExternalID
		}
		if item.Source == "" {
			item.Source = source
		}
		if item.Genres == nil {
			item.Genres = []string{}
		}
		item.FromLocalStore = false
		kept = append(kept, item)
	}
	return kept
}

// GetByID returns the full record for one item. The catalog is consulted
// first, then every provider serving the type in name order until one
// recognises the id.
func (s *Service) GetByID(ctx context.Context, mediaType domain.MediaType, id string) (domain.MediaDetail, error) {
	if !mediaType.Valid() {
		return domain.MediaDetail{}, fmt.Errorf("%w: %q", ErrInvalidMediaType, mediaType)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.MediaDetail{}, ErrInvalidID
	}

	cacheKey := buildDetailsCacheKey(mediaType, id)
	if !s.cacheDisabled {
		if cached, ok := s.details.Get(ctx, cacheKey); ok {
			return cached, nil
		}
	}

	if detail, ok := s.localDetails(ctx, mediaType, id); ok {
		s.storeDetail(ctx, cacheKey, detail)
		return detail, nil
	}

	var lastErr error
	for _, provider := range s.providersFor(mediaType) {
		detail, err := s.detailsFromProvider(ctx, provider, mediaType, id)
		if err == nil {
			s.storeDetail(ctx, cacheKey, detail)
			return detail, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			lastErr = err
		}
	}
	if lastErr != nil {
		return domain.MediaDetail{}, fmt.Errorf("%w: %v", ErrSourceUnavailable, lastErr)
	}
	return domain.MediaDetail{}, fmt.Errorf("%w: %s %s", ErrNotFound, mediaType, id)
}

func (s *Service) detailsFromProvider(ctx context.Context, provider Provider, mediaType domain.MediaType, id string) (domain.MediaDetail, error) {
	key := providerKey(provider)
	if blocked, until, _ := s.isProviderBlocked(key, time.Now()); blocked {
		return domain.MediaDetail{}, fmt.Errorf("provider %s unhealthy until %s", key, until.UTC().Format(time.RFC3339))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.waitProviderRateLimit(callCtx, key); err != nil {
		return domain.MediaDetail{}, err
	}

	startedAt := time.Now()
	var detail domain.MediaDetail
	err := RetryWithBackoff(callCtx, s.retry, func() error {
		var detailsErr error
		detail, detailsErr = provider.Details(callCtx, mediaType, id)
		return detailsErr
	})
	s.recordProviderResult(key, string(mediaType)+"/"+id, err, time.Since(startedAt), time.Now())
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warn("provider details failed",
				slog.String("provider", key),
				slog.String("type", string(mediaType)),
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}
		return domain.MediaDetail{}, err
	}

	if detail.Type == "" {
		detail.Type = mediaType
	}
	if detail.Type != mediaType {
		return domain.MediaDetail{}, fmt.Errorf("%w: %s returned %s for %s", domain.ErrMalformedResponse, key, detail.Type, mediaType)
	}
	if detail.ID == "" {
		detail.ID = detail.ExternalID
	}
	if detail.Source == "" {
		detail.Source = key
	}
	if detail.Genres == nil {
		detail.Genres = []string{}
	}
	detail.FromLocalStore = false
	return detail, nil
}

func (s *Service) storeDetail(ctx context.Context, key string, detail domain.MediaDetail) {
	if s.cacheDisabled {
		return
	}
	s.details.Set(ctx, key, detail)
}

// buildSearchCacheKey is case and whitespace insensitive on the query.
func buildSearchCacheKey(mediaType domain.MediaType, query string, page int) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(query), " "))
	return "search:" + string(mediaType) + ":" + strconv.Itoa(page) + ":" + normalized
}

func buildDetailsCacheKey(mediaType domain.MediaType, id string) string {
	return "details:" + string(mediaType) + ":" + strings.TrimSpace(id)
}
