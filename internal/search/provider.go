package search

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"mookka/searchservice/internal/cache"
	"mookka/searchservice/internal/domain"
	"mookka/searchservice/internal/textmatch"
)

var (
	ErrInvalidMediaType  = errors.New("unknown media type")
	ErrInvalidID         = errors.New("id is required")
	ErrNoProviders       = errors.New("no search sources configured")
	ErrUnknownProvider   = errors.New("unknown provider")
	ErrNotFound          = domain.ErrNotFound
	ErrSourceUnavailable = errors.New("metadata source unavailable")
)

const (
	// MinQueryLength is the shortest trimmed query that reaches any source.
	MinQueryLength   = 2
	localResultLimit = 20
	defaultTimeout   = 8 * time.Second
)

// Provider is one external metadata source adapter.
type Provider interface {
	Name() string
	Info() domain.ProviderInfo
	Supports(mediaType domain.MediaType) bool
	Search(ctx context.Context, request domain.ProviderRequest) (domain.ProviderPage, error)
	Details(ctx context.Context, mediaType domain.MediaType, id string) (domain.MediaDetail, error)
}

// RateLimited is an optional interface for providers that publish their
// own request budget. Providers without it get defaultProviderRPS.
type RateLimited interface {
	RateLimit() (rps float64, burst int)
}

// LocalStore is the read-only trusted catalog.
type LocalStore interface {
	FindByTypeAndText(ctx context.Context, mediaType domain.MediaType, text string, limit int) ([]domain.MediaSummary, error)
}

// LocalDetailStore is an optional interface for catalogs that can resolve a
// single item by its local or external id.
type LocalDetailStore interface {
	Get(ctx context.Context, mediaType domain.MediaType, id string) (domain.MediaDetail, error)
}

type (
	ResultsCache = cache.TTLCache[domain.SearchResponse]
	DetailsCache = cache.TTLCache[domain.MediaDetail]
)

type Service struct {
	providers      map[string]Provider
	local          LocalStore
	timeout        time.Duration
	fuzzyThreshold float64
	filter         *ContentFilter
	results        *ResultsCache
	details        *DetailsCache
	cacheDisabled  bool
	sweepInterval  time.Duration
	retry          RetryConfig
	logger         *slog.Logger
	limiters       *providerLimiters
	background     atomic.Bool
	healthMu       sync.Mutex
	health         map[string]*providerHealth
}

type ServiceOption func(*Service)

func WithLocalStore(store LocalStore) ServiceOption {
	return func(s *Service) {
		s.local = store
	}
}

func WithResultsCache(c *ResultsCache) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.results = c
		}
	}
}

func WithDetailsCache(c *DetailsCache) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.details = c
		}
	}
}

func WithCacheDisabled(disabled bool) ServiceOption {
	return func(s *Service) {
		s.cacheDisabled = disabled
	}
}

// WithSweepInterval sets how often StartBackground sweeps both caches.
func WithSweepInterval(interval time.Duration) ServiceOption {
	return func(s *Service) {
		if interval > 0 {
			s.sweepInterval = interval
		}
	}
}

func WithFuzzyThreshold(threshold float64) ServiceOption {
	return func(s *Service) {
		if threshold > 0 && threshold <= 1 {
			s.fuzzyThreshold = threshold
		}
	}
}

func WithContentFilter(filter *ContentFilter) ServiceOption {
	return func(s *Service) {
		if filter != nil {
			s.filter = filter
		}
	}
}

func WithRetryConfig(cfg RetryConfig) ServiceOption {
	return func(s *Service) {
		s.retry = cfg
	}
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(providers []Provider, timeout time.Duration, opts ...ServiceOption) *Service {
	registry := make(map[string]Provider, len(providers))
	for _, provider := range providers {
		if provider == nil {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(provider.Name()))
		if name == "" {
			continue
		}
		registry[name] = provider
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}

	svc := &Service{
		providers:      registry,
		timeout:        timeout,
		fuzzyThreshold: textmatch.DefaultThreshold,
		filter:         NewContentFilter(nil),
		retry:          DefaultRetryConfig(),
		logger:         slog.Default(),
		health:         make(map[string]*providerHealth),
	}
	for _, opt := range opts {
		opt(svc)
	}
	if svc.results == nil {
		svc.results = cache.New(cache.Config[domain.SearchResponse]{
			Name:   "search",
			TTL:    cache.DefaultTTL,
			Clone:  domain.SearchResponse.Clone,
			Logger: svc.logger,
		})
	}
	if svc.details == nil {
		svc.details = cache.New(cache.Config[domain.MediaDetail]{
			Name:   "details",
			TTL:    cache.DefaultTTL,
			Clone:  domain.MediaDetail.Clone,
			Logger: svc.logger,
		})
	}
	if svc.sweepInterval <= 0 {
		svc.sweepInterval = time.Minute
	}
	svc.limiters = newProviderLimiters(registry)
	return svc
}

// StartBackground launches the periodic cache sweep. Calling it more than
// once is a no-op.
func (s *Service) StartBackground(ctx context.Context) {
	if !s.background.CompareAndSwap(false, true) {
		return
	}
	go s.results.Run(ctx, s.sweepInterval)
	go s.details.Run(ctx, s.sweepInterval)
}

func (s *Service) Providers() []domain.ProviderInfo {
	if len(s.providers) == 0 {
		return nil
	}
	items := make([]domain.ProviderInfo, 0, len(s.providers))
	for name, provider := range s.providers {
		info := provider.Info()
		info.Name = strings.ToLower(strings.TrimSpace(info.Name))
		if info.Name == "" {
			info.Name = name
		}
		if info.Label == "" {
			info.Label = info.Name
		}
		items = append(items, info)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
	return items
}

// providersFor returns the providers serving mediaType, ordered by name so
// merged output is deterministic.
func (s *Service) providersFor(mediaType domain.MediaType) []Provider {
	selected := make([]Provider, 0, len(s.providers))
	for _, provider := range s.providers {
		if provider.Supports(mediaType) {
			selected = append(selected, provider)
		}
	}
	sort.Slice(selected, func(i, j int) bool {
		return strings.ToLower(selected[i].Name()) < strings.ToLower(selected[j].Name())
	})
	return selected
}

func providerKey(provider Provider) string {
	return strings.ToLower(strings.TrimSpace(provider.Name()))
}
