package rawg

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mookka/searchservice/internal/domain"
	"mookka/searchservice/internal/providers/common"
)

const (
	providerName   = "rawg"
	defaultBaseURL = "https://api.rawg.io/api"
	pageSize       = 20
	adultsOnlySlug = "adults-only"
)

type Config struct {
	APIKey    string
	BaseURL   string
	UserAgent string
	Client    *http.Client
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Provider serves games from the RAWG video game database.
type Provider struct {
	apiKey    string
	baseURL   string
	userAgent string
	client    *http.Client
	logger    *slog.Logger
}

func New(cfg Config) *Provider {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	client := cfg.Client
	if client == nil {
		client = common.NewHTTPClient(cfg.Timeout)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{
		apiKey:    strings.TrimSpace(cfg.APIKey),
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: cfg.UserAgent,
		client:    client,
		logger:    logger,
	}
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		Name:    providerName,
		Label:   "RAWG",
		Kind:    "metadata",
		Types:   []domain.MediaType{domain.MediaTypeGame},
		Enabled: p.apiKey != "",
	}
}

func (p *Provider) Supports(mediaType domain.MediaType) bool {
	return mediaType == domain.MediaTypeGame
}

func (p *Provider) RateLimit() (float64, int) {
	return 5, 5
}

func (p *Provider) Search(ctx context.Context, request domain.ProviderRequest) (domain.ProviderPage, error) {
	if request.Type != domain.MediaTypeGame {
		return domain.ProviderPage{}, fmt.Errorf("rawg does not serve %q", request.Type)
	}
	if p.apiKey == "" {
		return domain.ProviderPage{}, fmt.Errorf("rawg: %w: api key not configured", domain.ErrUnauthorized)
	}
	query := strings.TrimSpace(request.Query)
	if query == "" {
		return domain.ProviderPage{}, nil
	}

	params := url.Values{
		"key":            {p.apiKey},
		"search":         {query},
		"page":           {strconv.Itoa(domain.NormalizePage(request.Page))},
		"page_size":      {strconv.Itoa(pageSize)},
		"search_precise": {"true"},
	}
	var response gamesResponse
	if err := common.GetJSON(ctx, p.client, p.baseURL+"/games?"+params.Encode(), p.userAgent, &response); err != nil {
		return domain.ProviderPage{}, fmt.Errorf("rawg search: %w", err)
	}

	items := make([]domain.MediaSummary, 0, len(response.Results))
	for _, raw := range response.Results {
		if item, ok := toSummary(raw); ok {
			items = append(items, item)
		}
	}
	pages := 0
	if response.Count > 0 {
		pages = (response.Count + pageSize - 1) / pageSize
	}
	return domain.ProviderPage{Items: items, TotalPages: pages, TotalResults: response.Count}, nil
}

// Details accepts the numeric id or the slug.
func (p *Provider) Details(ctx context.Context, mediaType domain.MediaType, id string) (domain.MediaDetail, error) {
	if mediaType != domain.MediaTypeGame {
		return domain.MediaDetail{}, fmt.Errorf("rawg does not serve %q", mediaType)
	}
	if p.apiKey == "" {
		return domain.MediaDetail{}, fmt.Errorf("rawg: %w: api key not configured", domain.ErrUnauthorized)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.MediaDetail{}, fmt.Errorf("rawg game: %w", domain.ErrNotFound)
	}

	var raw rawGame
	endpoint := p.baseURL + "/games/" + url.PathEscape(id) + "?" + url.Values{"key": {p.apiKey}}.Encode()
	if err := common.GetJSON(ctx, p.client, endpoint, p.userAgent, &raw); err != nil {
		return domain.MediaDetail{}, fmt.Errorf("rawg game %s: %w", id, err)
	}
	summary, ok := toSummary(raw)
	if !ok {
		return domain.MediaDetail{}, fmt.Errorf("rawg game %s: %w", id, domain.ErrNotFound)
	}

	description := strings.TrimSpace(raw.DescriptionRaw)
	if description == "" {
		description = common.CleanHTMLText(raw.Description)
	}
	summary.Description = description

	detail := domain.MediaDetail{
		MediaSummary: summary,
		ReleaseDate:  strings.TrimSpace(raw.Released),
		Platforms:    common.NonEmpty(raw.platformNames()),
		Developers:   common.NonEmpty(names(raw.Developers)),
		Homepage:     strings.TrimSpace(raw.Website),
	}
	if publishers := common.NonEmpty(names(raw.Publishers)); len(publishers) > 0 {
		detail.Publisher = publishers[0]
	}
	return detail, nil
}

// toSummary maps one game. Games without id or name and games rated
// Adults Only are skipped.
func toSummary(raw rawGame) (domain.MediaSummary, bool) {
	name := strings.TrimSpace(raw.Name)
	if raw.ID <= 0 || name == "" {
		return domain.MediaSummary{}, false
	}
	if raw.ESRBRating != nil && raw.ESRBRating.Slug == adultsOnlySlug {
		return domain.MediaSummary{}, false
	}

	id := strconv.Itoa(raw.ID)
	year := common.ParseYear(raw.Released)
	cover := ""
	if raw.BackgroundImage != nil {
		cover = strings.TrimSpace(*raw.BackgroundImage)
	}
	rating := 0.0
	if raw.Rating != nil && *raw.Rating > 0 {
		rating = *raw.Rating
	}
	platforms := common.NonEmpty(raw.platformNames())
	score := popularity(rating, raw.RatingsCount, year, cover != "", len(platforms))

	return domain.MediaSummary{
		ID:             id,
		ExternalID:     id,
		Title:          name,
		Type:           domain.MediaTypeGame,
		CoverImage:     domain.StringPtr(cover),
		Year:           domain.IntPtr(year),
		Rating:         min(rating*2, 10),
		RelevanceScore: score,
		Genres:         common.NonEmpty(names(raw.Genres)),
		Popularity:     score,
		RatingsCount:   raw.RatingsCount,
		PlatformCount:  len(platforms),
		Source:         providerName,
	}, true
}
