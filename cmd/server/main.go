package main

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "mookka/searchservice/internal/api/http"
	"mookka/searchservice/internal/app"
	"mookka/searchservice/internal/cache"
	"mookka/searchservice/internal/domain"
	"mookka/searchservice/internal/metrics"
	"mookka/searchservice/internal/providers/googlebooks"
	"mookka/searchservice/internal/providers/rawg"
	"mookka/searchservice/internal/providers/tmdb"
	"mookka/searchservice/internal/repository/memory"
	mongorepo "mookka/searchservice/internal/repository/mongo"
	"mookka/searchservice/internal/search"
	"mookka/searchservice/internal/telemetry"
)

const serviceName = "media-search"

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	metrics.Register(prometheus.DefaultRegisterer)

	shutdownTracer, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: serviceName,
		Endpoint:    cfg.OTelEndpoint,
		SampleRatio: cfg.OTelSampleRatio,
	})
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", serviceName),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.Bool("hasTMDBKey", cfg.TMDBAPIKey != ""),
		slog.Bool("hasGoogleBooksKey", cfg.GoogleBooksAPIKey != ""),
		slog.Bool("hasRAWGKey", cfg.RAWGAPIKey != ""),
		slog.Bool("hasMongo", cfg.MongoURI != ""),
		slog.Bool("hasRedis", cfg.RedisURL != ""),
		slog.String("localCatalogPath", cfg.LocalCatalogPath),
		slog.Duration("searchCacheTTL", cfg.SearchCacheTTL),
		slog.Duration("detailsCacheTTL", cfg.DetailsCacheTTL),
		slog.Bool("cacheDisabled", cfg.CacheDisabled),
		slog.Float64("fuzzyThreshold", cfg.FuzzyThreshold),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := connectRedis(rootCtx, cfg, logger)
	if redisClient != nil {
		defer redisClient.Close()
	}

	localStore, closeLocal := buildLocalStore(rootCtx, cfg, logger)
	defer closeLocal()

	caches := buildCaches(cfg, redisClient, logger)
	providers := buildProviders(cfg, caches.genres, logger)

	serviceOpts := []search.ServiceOption{
		search.WithLogger(logger),
		search.WithResultsCache(caches.results),
		search.WithDetailsCache(caches.details),
		search.WithCacheDisabled(cfg.CacheDisabled),
		search.WithSweepInterval(cfg.CacheSweepInterval),
		search.WithFuzzyThreshold(cfg.FuzzyThreshold),
		search.WithContentFilter(search.NewContentFilter(search.ParseDenylist(cfg.ContentDenylist))),
	}
	if localStore != nil {
		serviceOpts = append(serviceOpts, search.WithLocalStore(localStore))
	}
	searchService := search.NewService(providers, cfg.RequestTimeout, serviceOpts...)
	searchService.StartBackground(rootCtx)
	go caches.genres.Run(rootCtx, cfg.CacheSweepInterval)

	handler := apihttp.NewServer(searchService,
		apihttp.WithLogger(logger),
		apihttp.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	).Handler()
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	logger.Info("media search service started",
		slog.String("addr", cfg.HTTPAddr),
		slog.Int("providers", len(providers)),
		slog.Bool("localStore", localStore != nil),
	)

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown error", slog.String("error", err.Error()))
	}
	logger.Info("media search service stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	handlerOpts := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newTracedClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

// connectRedis returns nil when Redis is not configured or not reachable;
// the caches then stay process-local.
func connectRedis(ctx context.Context, cfg app.Config, logger *slog.Logger) *redis.Client {
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" || cfg.CacheDisabled {
		return nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, using in-memory cache only", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(redisOpts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not reachable, using in-memory cache only", slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return client
}

type serviceCaches struct {
	results *search.ResultsCache
	details *search.DetailsCache
	genres  *tmdb.GenreCache
}

func buildCaches(cfg app.Config, redisClient *redis.Client, logger *slog.Logger) serviceCaches {
	var (
		resultsBackend cache.Backend[domain.SearchResponse]
		detailsBackend cache.Backend[domain.MediaDetail]
		genresBackend  cache.Backend[map[int]string]
	)
	if redisClient != nil {
		resultsBackend = cache.NewRedisBackend[domain.SearchResponse](redisClient, "search")
		detailsBackend = cache.NewRedisBackend[domain.MediaDetail](redisClient, "details")
		genresBackend = cache.NewRedisBackend[map[int]string](redisClient, "tmdb_genres")
	}
	return serviceCaches{
		results: cache.New(cache.Config[domain.SearchResponse]{
			Name:       "search",
			TTL:        cfg.SearchCacheTTL,
			MaxEntries: cfg.CacheMaxEntries,
			Clone:      domain.SearchResponse.Clone,
			Backend:    resultsBackend,
			Logger:     logger,
		}),
		details: cache.New(cache.Config[domain.MediaDetail]{
			Name:       "details",
			TTL:        cfg.DetailsCacheTTL,
			MaxEntries: cfg.CacheMaxEntries,
			Clone:      domain.MediaDetail.Clone,
			Backend:    detailsBackend,
			Logger:     logger,
		}),
		genres: cache.New(cache.Config[map[int]string]{
			Name:       "tmdb_genres",
			TTL:        30 * time.Minute,
			MaxEntries: 16,
			Clone:      func(m map[int]string) map[int]string { return maps.Clone(m) },
			Backend:    genresBackend,
			Logger:     logger,
		}),
	}
}

// buildProviders registers Google Books unconditionally since it answers
// without a key. TMDB and RAWG need one.
func buildProviders(cfg app.Config, genres *tmdb.GenreCache, logger *slog.Logger) []search.Provider {
	providers := []search.Provider{
		googlebooks.New(googlebooks.Config{
			APIKey:    cfg.GoogleBooksAPIKey,
			BaseURL:   cfg.GoogleBooksBaseURL,
			UserAgent: cfg.UserAgent,
			Client:    newTracedClient(cfg.RequestTimeout),
			Logger:    logger,
		}),
	}
	if cfg.TMDBAPIKey != "" {
		providers = append(providers, tmdb.New(tmdb.Config{
			APIKey:     cfg.TMDBAPIKey,
			BaseURL:    cfg.TMDBBaseURL,
			Language:   cfg.TMDBLanguage,
			UserAgent:  cfg.UserAgent,
			Client:     newTracedClient(cfg.RequestTimeout),
			GenreCache: genres,
			Logger:     logger,
		}))
	} else {
		logger.Info("tmdb api key not configured, films and series use the local catalog only")
	}
	if cfg.RAWGAPIKey != "" {
		providers = append(providers, rawg.New(rawg.Config{
			APIKey:    cfg.RAWGAPIKey,
			BaseURL:   cfg.RAWGBaseURL,
			UserAgent: cfg.UserAgent,
			Client:    newTracedClient(cfg.RequestTimeout),
			Logger:    logger,
		}))
	} else {
		logger.Info("rawg api key not configured, games use the local catalog only")
	}
	return providers
}

// buildLocalStore prefers MongoDB. LOCAL_CATALOG_PATH seeds Mongo when both
// are set and otherwise backs an in-memory catalog. A nil store means the
// service runs on external providers alone.
func buildLocalStore(ctx context.Context, cfg app.Config, logger *slog.Logger) (search.LocalStore, func()) {
	var seed []domain.MediaDetail
	if path := strings.TrimSpace(cfg.LocalCatalogPath); path != "" {
		items, err := memory.LoadFile(path)
		if err != nil {
			logger.Warn("local catalog file not loaded", slog.String("path", path), slog.String("error", err.Error()))
		} else {
			seed = items
		}
	}

	if cfg.MongoURI != "" {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		client, err := mongorepo.Connect(connectCtx, cfg.MongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
		if err == nil {
			err = client.Ping(connectCtx, readpref.Primary())
		}
		if err != nil {
			logger.Warn("mongo not reachable, falling back to file catalog", slog.String("error", err.Error()))
			if client != nil {
				_ = client.Disconnect(context.Background())
			}
		} else {
			catalog := mongorepo.NewCatalog(client, cfg.MongoDB, cfg.MongoCollection)
			if err := catalog.EnsureIndexes(connectCtx); err != nil {
				logger.Warn("mongo index creation failed", slog.String("error", err.Error()))
			}
			seeded := 0
			for _, item := range seed {
				if err := catalog.Upsert(connectCtx, item); err != nil {
					logger.Warn("mongo seed failed", slog.String("title", item.Title), slog.String("error", err.Error()))
					continue
				}
				seeded++
			}
			logger.Info("mongo catalog ready",
				slog.String("database", cfg.MongoDB),
				slog.String("collection", cfg.MongoCollection),
				slog.Int("seeded", seeded),
			)
			return catalog, func() {
				disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = client.Disconnect(disconnectCtx)
			}
		}
	}

	if len(seed) == 0 {
		return nil, func() {}
	}
	catalog := memory.NewCatalog(seed)
	logger.Info("in-memory catalog loaded", slog.Int("items", catalog.Len()))
	return catalog, func() {}
}
