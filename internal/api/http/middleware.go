package apihttp

import (
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"mookka/searchservice/internal/metrics"
)

// routeTemplates are the metric labels for registered routes. A segment in
// braces matches any single path segment.
var routeTemplates = []string{
	"/health",
	"/metrics",
	"/search",
	"/search/providers",
	"/search/providers/health",
	"/search/providers/{name}/reset",
	"/media/{type}/{id}",
}

// Health checks and scrapes: logged at debug, never traced or rate limited.
var quietPaths = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

const (
	maxLoggedQuery     = 180
	maxLoggedUserAgent = 120
)

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	n, err := rec.ResponseWriter.Write(b)
	rec.bytes += n
	return n, err
}

// observe records one log line and the request metrics after next returns.
// Scrapes of /metrics are logged but not counted.
func observe(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		elapsed := time.Since(start)

		route := routeLabel(r.URL.Path)
		if route != "/metrics" {
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(elapsed.Seconds())
		}

		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("route", route),
			slog.Int("status", rec.status),
			slog.Int("bytes", rec.bytes),
			slog.Int64("durationMs", elapsed.Milliseconds()),
			slog.String("clientIP", clientIP(r)),
		}
		if query := strings.TrimSpace(r.URL.RawQuery); query != "" {
			attrs = append(attrs, slog.String("query", clip(query, maxLoggedQuery)))
		}
		if agent := strings.TrimSpace(r.UserAgent()); agent != "" {
			attrs = append(attrs, slog.String("userAgent", clip(agent, maxLoggedUserAgent)))
		}
		logger.LogAttrs(r.Context(), requestLevel(r.URL.Path, rec.status), "http request", attrs...)
	})
}

func requestLevel(path string, status int) slog.Level {
	if status >= http.StatusInternalServerError {
		return slog.LevelError
	}
	if status >= http.StatusBadRequest {
		return slog.LevelWarn
	}
	if quietPaths[path] {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// recoverPanics turns a handler panic into a 500 envelope.
func recoverPanics(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			recovered := recover()
			if recovered == nil {
				return
			}
			logger.Error("panic recovered",
				slog.Any("error", recovered),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("stack", string(debug.Stack())),
			)
			writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		}()
		next.ServeHTTP(w, r)
	})
}

// limitRate shares one token bucket across all non-quiet paths and answers
// 429 once it is empty.
func limitRate(rps float64, burst int, next http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !quietPaths[r.URL.Path] && !limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func routeLabel(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for _, template := range routeTemplates {
		if matchesTemplate(template, segments) {
			return template
		}
	}
	return "/other"
}

func matchesTemplate(template string, segments []string) bool {
	parts := strings.Split(strings.Trim(template, "/"), "/")
	if len(parts) != len(segments) {
		return false
	}
	for i, part := range parts {
		if strings.HasPrefix(part, "{") {
			if segments[i] == "" {
				return false
			}
			continue
		}
		if part != segments[i] {
			return false
		}
	}
	return true
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-IP.
func clientIP(r *http.Request) string {
	forwarded, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
	if ip := strings.TrimSpace(forwarded); ip != "" {
		return ip
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}

func clip(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	if limit <= 3 {
		return value[:max(limit, 0)]
	}
	return value[:limit-3] + "..."
}
