package app

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr       string
	RequestTimeout time.Duration
	LogLevel       string
	LogFormat      string
	UserAgent      string

	RateLimitRPS   float64
	RateLimitBurst int

	TMDBAPIKey         string
	TMDBBaseURL        string
	TMDBLanguage       string
	GoogleBooksAPIKey  string
	GoogleBooksBaseURL string
	RAWGAPIKey         string
	RAWGBaseURL        string

	MongoURI         string
	MongoDB          string
	MongoCollection  string
	LocalCatalogPath string
	RedisURL         string

	SearchCacheTTL     time.Duration
	DetailsCacheTTL    time.Duration
	CacheMaxEntries    int
	CacheSweepInterval time.Duration
	CacheDisabled      bool

	FuzzyThreshold  float64
	ContentDenylist string

	OTelEndpoint    string
	OTelSampleRatio float64
}

func LoadConfig() Config {
	return Config{
		HTTPAddr:       getEnv("HTTP_ADDR", ":8090"),
		RequestTimeout: time.Duration(getEnvInt("SEARCH_TIMEOUT_SECONDS", 8)) * time.Second,
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
		UserAgent:      getEnv("SEARCH_USER_AGENT", "mookka-search/1.0"),

		RateLimitRPS:   getEnvFloat("HTTP_RATE_LIMIT_RPS", 20),
		RateLimitBurst: getEnvInt("HTTP_RATE_LIMIT_BURST", 40),

		TMDBAPIKey:         strings.TrimSpace(os.Getenv("TMDB_API_KEY")),
		TMDBBaseURL:        getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"),
		TMDBLanguage:       getEnv("TMDB_LANGUAGE", "en-US"),
		GoogleBooksAPIKey:  strings.TrimSpace(os.Getenv("GOOGLE_BOOKS_API_KEY")),
		GoogleBooksBaseURL: getEnv("GOOGLE_BOOKS_BASE_URL", "https://www.googleapis.com/books/v1"),
		RAWGAPIKey:         strings.TrimSpace(os.Getenv("RAWG_API_KEY")),
		RAWGBaseURL:        getEnv("RAWG_BASE_URL", "https://api.rawg.io/api"),

		MongoURI:         getEnv("MONGO_URI", ""),
		MongoDB:          getEnv("MONGO_DB", "mookka"),
		MongoCollection:  getEnv("MONGO_COLLECTION", "media"),
		LocalCatalogPath: getEnv("LOCAL_CATALOG_PATH", ""),
		RedisURL:         getEnv("REDIS_URL", ""),

		SearchCacheTTL:     time.Duration(getEnvInt("SEARCH_CACHE_TTL_SECONDS", 300)) * time.Second,
		DetailsCacheTTL:    time.Duration(getEnvInt("DETAILS_CACHE_TTL_SECONDS", 300)) * time.Second,
		CacheMaxEntries:    getEnvInt("CACHE_MAX_ENTRIES", 400),
		CacheSweepInterval: time.Duration(getEnvInt("CACHE_SWEEP_INTERVAL_SECONDS", 60)) * time.Second,
		CacheDisabled:      getEnvBool("SEARCH_CACHE_DISABLED", false),

		FuzzyThreshold:  getEnvFloat("FUZZY_THRESHOLD", 0.7),
		ContentDenylist: getEnv("CONTENT_DENYLIST", ""),

		OTelEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelSampleRatio: getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),
	}
}

func getEnv(key, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func getEnvInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	raw := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if raw == "" {
		return fallback
	}
	switch raw {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
