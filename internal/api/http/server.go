package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mookka/searchservice/internal/domain"
	"mookka/searchservice/internal/search"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type SearchService interface {
	Search(ctx context.Context, request domain.SearchRequest) (domain.SearchResponse, error)
	GetByID(ctx context.Context, mediaType domain.MediaType, id string) (domain.MediaDetail, error)
	Providers() []domain.ProviderInfo
	ProviderDiagnostics() []domain.ProviderDiagnostics
	ResetProviderHealth(name string) error
}

type Server struct {
	search     SearchService
	logger     *slog.Logger
	rateLimit  float64
	rateBurst  int
	tracerName string
}

const maxQueryLength = 500

type ServerOption func(*Server)

func WithLogger(logger *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRateLimit sets the global request budget. A non-positive rps turns
// the limiter off.
func WithRateLimit(rps float64, burst int) ServerOption {
	return func(s *Server) {
		s.rateLimit = rps
		s.rateBurst = burst
	}
}

func NewServer(searchService SearchService, options ...ServerOption) *Server {
	server := &Server{
		search:     searchService,
		logger:     slog.Default(),
		rateLimit:  50,
		rateBurst:  100,
		tracerName: "media-search",
	}
	for _, option := range options {
		if option != nil {
			option(server)
		}
	}
	if server.logger == nil {
		server.logger = slog.Default()
	}
	return server
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/search/providers", s.handleProviders)
	mux.HandleFunc("/search/providers/health", s.handleProvidersHealth)
	mux.HandleFunc("POST /search/providers/{name}/reset", s.handleProviderReset)
	mux.HandleFunc("GET /media/{type}/{id}", s.handleMediaDetails)

	var handler http.Handler = otelhttp.NewHandler(mux, s.tracerName,
		otelhttp.WithFilter(func(r *http.Request) bool {
			return !quietPaths[r.URL.Path]
		}),
	)
	if s.rateLimit > 0 {
		handler = limitRate(s.rateLimit, s.rateBurst, handler)
	}
	return recoverPanics(s.logger, observe(s.logger, handler))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}

	params := r.URL.Query()
	mediaType, ok := domain.ParseMediaType(params.Get("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "type must be one of film, serie, book, game")
		return
	}
	query := strings.TrimSpace(params.Get("q"))
	if len(query) > maxQueryLength {
		writeError(w, http.StatusBadRequest, "invalid_request", "query too long (max 500 characters)")
		return
	}
	page, err := parsePositiveInt(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid page")
		return
	}
	noCache := parseOptionalBool(params.Get("nocache")) || parseOptionalBool(params.Get("noCache"))

	response, err := s.search.Search(r.Context(), domain.SearchRequest{
		Type:    mediaType,
		Query:   query,
		Page:    page,
		NoCache: noCache,
	})
	if err != nil {
		s.logger.Warn("search request failed",
			slog.String("type", string(mediaType)),
			slog.String("query", clip(query, 80)),
			slog.String("error", err.Error()),
		)
		s.writeServiceError(w, err, "search failed")
		return
	}

	failedProviders := make([]string, 0, len(response.Providers))
	for _, providerStatus := range response.Providers {
		if !providerStatus.OK {
			failedProviders = append(failedProviders, providerStatus.Name)
		}
	}
	s.logger.Info("search completed",
		slog.String("type", string(mediaType)),
		slog.String("query", clip(query, 80)),
		slog.Int("page", response.Page),
		slog.Int("results", len(response.Results)),
		slog.Int("localCount", response.LocalCount),
		slog.Int64("elapsedMs", response.ElapsedMS),
		slog.Int("failedProviders", len(failedProviders)),
	)
	if len(failedProviders) > 0 {
		s.logger.Warn("search providers partially failed",
			slog.String("query", clip(query, 80)),
			slog.Any("failedProviders", failedProviders),
		)
	}

	writeJSON(w, http.StatusOK, response)
}

func (s *Server) handleMediaDetails(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	mediaType, ok := domain.ParseMediaType(r.PathValue("type"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "type must be one of film, serie, book, game")
		return
	}
	id := strings.TrimSpace(r.PathValue("id"))

	detail, err := s.search.GetByID(r.Context(), mediaType, id)
	if err != nil {
		if !errors.Is(err, search.ErrNotFound) {
			s.logger.Warn("details request failed",
				slog.String("type", string(mediaType)),
				slog.String("id", clip(id, 80)),
				slog.String("error", err.Error()),
			)
		}
		s.writeServiceError(w, err, "details lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"items": s.search.Providers(),
	})
}

func (s *Server) handleProvidersHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"checkedAt": time.Now().UTC(),
		"items":     s.search.ProviderDiagnostics(),
	})
}

func (s *Server) handleProviderReset(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		writeError(w, http.StatusInternalServerError, "internal_error", "search service is not configured")
		return
	}
	name := strings.ToLower(strings.TrimSpace(r.PathValue("name")))
	if err := s.search.ResetProviderHealth(name); err != nil {
		s.writeServiceError(w, err, "reset failed")
		return
	}
	s.logger.Info("provider health reset", slog.String("provider", name))
	writeJSON(w, http.StatusOK, map[string]any{"provider": name, "status": "reset"})
}

func (s *Server) writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, search.ErrInvalidMediaType), errors.Is(err, search.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, search.ErrUnknownProvider):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, search.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", "media not found")
	case errors.Is(err, search.ErrSourceUnavailable):
		writeError(w, http.StatusBadGateway, "upstream_unavailable", err.Error())
	case errors.Is(err, search.ErrNoProviders):
		writeError(w, http.StatusServiceUnavailable, "service_unavailable", err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", fallback)
	}
}

func parsePositiveInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return 0, errors.New("invalid value")
	}
	return parsed, nil
}

func parseOptionalBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
