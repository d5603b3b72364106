package domain

import "time"

type SearchRequest struct {
	Type    MediaType
	Query   string
	Page    int
	NoCache bool
}

// ProviderRequest is what an external adapter receives for one search call.
type ProviderRequest struct {
	Type  MediaType
	Query string
	Page  int
}

// ProviderPage is one page of normalized provider results.
type ProviderPage struct {
	Items        []MediaSummary
	TotalPages   int
	TotalResults int
}

type ProviderInfo struct {
	Name    string      `json:"name"`
	Label   string      `json:"label"`
	Kind    string      `json:"kind"`
	Types   []MediaType `json:"types"`
	Enabled bool        `json:"enabled"`
}

type ProviderStatus struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

type ProviderDiagnostics struct {
	Name                string      `json:"name"`
	Label               string      `json:"label"`
	Kind                string      `json:"kind"`
	Types               []MediaType `json:"types"`
	Enabled             bool        `json:"enabled"`
	ConsecutiveFailures int         `json:"consecutiveFailures"`
	BlockedUntil        *time.Time  `json:"blockedUntil,omitempty"`
	LastError           string      `json:"lastError,omitempty"`
	LastSuccessAt       *time.Time  `json:"lastSuccessAt,omitempty"`
	LastFailureAt       *time.Time  `json:"lastFailureAt,omitempty"`
	LastLatencyMS       int64       `json:"lastLatencyMs,omitempty"`
	LastTimeout         bool        `json:"lastTimeout,omitempty"`
	LastQuery           string      `json:"lastQuery,omitempty"`
	TotalRequests       int64       `json:"totalRequests,omitempty"`
	TotalFailures       int64       `json:"totalFailures,omitempty"`
	TimeoutCount        int64       `json:"timeoutCount,omitempty"`
}

type SearchResponse struct {
	Type         MediaType        `json:"type"`
	Query        string           `json:"query"`
	Page         int              `json:"page"`
	Results      []MediaSummary   `json:"results"`
	TotalPages   int              `json:"totalPages"`
	TotalResults int              `json:"totalResults"`
	Providers    []ProviderStatus `json:"providers,omitempty"`
	LocalCount   int              `json:"localCount"`
	ElapsedMS    int64            `json:"elapsedMs"`
}

func (r SearchResponse) Clone() SearchResponse {
	cloned := r
	if r.Results != nil {
		cloned.Results = make([]MediaSummary, len(r.Results))
		for i, item := range r.Results {
			cloned.Results[i] = item.Clone()
		}
	}
	if r.Providers != nil {
		cloned.Providers = append([]ProviderStatus(nil), r.Providers...)
	}
	return cloned
}

// NormalizePage clamps a requested page number to 1..maxPage.
func NormalizePage(page int) int {
	const maxPage = 500
	if page < 1 {
		return 1
	}
	if page > maxPage {
		return maxPage
	}
	return page
}
