package tmdb

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"mookka/searchservice/internal/cache"
	"mookka/searchservice/internal/domain"
	"mookka/searchservice/internal/providers/common"
)

const (
	providerName      = "tmdb"
	defaultBaseURL    = "https://api.themoviedb.org/3"
	defaultImageURL   = "https://image.tmdb.org/t/p/w500"
	defaultLanguage   = "en-US"
	genreCacheTTL     = 30 * time.Minute
	requestsPerSecond = 4
	requestBurst      = 10
)

// GenreCache memoizes the id→name genre table per endpoint and language.
type GenreCache = cache.TTLCache[map[int]string]

type Config struct {
	APIKey       string
	BaseURL      string
	ImageBaseURL string
	Language     string
	UserAgent    string
	Client       *http.Client
	Timeout      time.Duration
	GenreCache   *GenreCache
	Logger       *slog.Logger
}

// Provider serves films and series from The Movie Database.
type Provider struct {
	apiKey    string
	baseURL   string
	imageURL  string
	language  string
	userAgent string
	client    *http.Client
	genres    *GenreCache
	logger    *slog.Logger
}

func New(cfg Config) *Provider {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	imageURL := strings.TrimSpace(cfg.ImageBaseURL)
	if imageURL == "" {
		imageURL = defaultImageURL
	}
	language := strings.TrimSpace(cfg.Language)
	if language == "" {
		language = defaultLanguage
	}
	client := cfg.Client
	if client == nil {
		client = common.NewHTTPClient(cfg.Timeout)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	genres := cfg.GenreCache
	if genres == nil {
		genres = cache.New(cache.Config[map[int]string]{
			Name:       "tmdb_genres",
			TTL:        genreCacheTTL,
			MaxEntries: 16,
			Clone:      func(m map[int]string) map[int]string { return maps.Clone(m) },
			Logger:     logger,
		})
	}
	return &Provider{
		apiKey:    strings.TrimSpace(cfg.APIKey),
		baseURL:   strings.TrimRight(baseURL, "/"),
		imageURL:  strings.TrimRight(imageURL, "/"),
		language:  language,
		userAgent: cfg.UserAgent,
		client:    client,
		genres:    genres,
		logger:    logger,
	}
}

func (p *Provider) Name() string { return providerName }

func (p *Provider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{
		Name:    providerName,
		Label:   "The Movie Database",
		Kind:    "metadata",
		Types:   []domain.MediaType{domain.MediaTypeFilm, domain.MediaTypeSerie},
		Enabled: p.apiKey != "",
	}
}

func (p *Provider) Supports(mediaType domain.MediaType) bool {
	return mediaType == domain.MediaTypeFilm || mediaType == domain.MediaTypeSerie
}

// RateLimit stays under the public 50 requests per second ceiling with
// room for genre and details calls.
func (p *Provider) RateLimit() (float64, int) {
	return requestsPerSecond, requestBurst
}

func (p *Provider) Search(ctx context.Context, request domain.ProviderRequest) (domain.ProviderPage, error) {
	kind, err := endpointFor(request.Type)
	if err != nil {
		return domain.ProviderPage{}, err
	}
	if p.apiKey == "" {
		return domain.ProviderPage{}, fmt.Errorf("tmdb: %w: api key not configured", domain.ErrUnauthorized)
	}
	query := strings.TrimSpace(request.Query)
	if query == "" {
		return domain.ProviderPage{}, nil
	}

	params := p.baseParams()
	params.Set("query", query)
	params.Set("page", strconv.Itoa(domain.NormalizePage(request.Page)))
	params.Set("include_adult", "false")

	var response searchResponse
	if err := common.GetJSON(ctx, p.client, p.baseURL+"/search/"+kind+"?"+params.Encode(), p.userAgent, &response); err != nil {
		return domain.ProviderPage{}, fmt.Errorf("tmdb search %s: %w", kind, err)
	}

	genreNames := p.genreNames(ctx, kind)
	items := make([]domain.MediaSummary, 0, len(response.Results))
	for _, raw := range response.Results {
		item, ok := p.toSummary(raw, request.Type, genreNames)
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return domain.ProviderPage{
		Items:        items,
		TotalPages:   response.TotalPages,
		TotalResults: response.TotalResults,
	}, nil
}

func (p *Provider) Details(ctx context.Context, mediaType domain.MediaType, id string) (domain.MediaDetail, error) {
	kind, err := endpointFor(mediaType)
	if err != nil {
		return domain.MediaDetail{}, err
	}
	if p.apiKey == "" {
		return domain.MediaDetail{}, fmt.Errorf("tmdb: %w: api key not configured", domain.ErrUnauthorized)
	}
	numericID, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil || numericID <= 0 {
		return domain.MediaDetail{}, fmt.Errorf("tmdb %s %q: %w", kind, id, domain.ErrNotFound)
	}

	params := p.baseParams()
	params.Set("append_to_response", "credits")

	var raw detailResponse
	endpoint := fmt.Sprintf("%s/%s/%d?%s", p.baseURL, kind, numericID, params.Encode())
	if err := common.GetJSON(ctx, p.client, endpoint, p.userAgent, &raw); err != nil {
		return domain.MediaDetail{}, fmt.Errorf("tmdb %s %d: %w", kind, numericID, err)
	}
	if raw.ID == 0 || raw.Adult {
		return domain.MediaDetail{}, fmt.Errorf("tmdb %s %d: %w", kind, numericID, domain.ErrNotFound)
	}
	return p.toDetail(raw, mediaType), nil
}

func (p *Provider) baseParams() url.Values {
	return url.Values{
		"api_key":  {p.apiKey},
		"language": {p.language},
	}
}

func endpointFor(mediaType domain.MediaType) (string, error) {
	switch mediaType {
	case domain.MediaTypeFilm:
		return "movie", nil
	case domain.MediaTypeSerie:
		return "tv", nil
	default:
		return "", fmt.Errorf("tmdb does not serve %q", mediaType)
	}
}

// genreNames returns the cached genre table for kind. A failed lookup only
// costs the genre labels, never the search.
func (p *Provider) genreNames(ctx context.Context, kind string) map[int]string {
	key := kind + ":" + p.language
	if names, ok := p.genres.Get(ctx, key); ok {
		return names
	}

	var response genreListResponse
	endpoint := p.baseURL + "/genre/" + kind + "/list?" + p.baseParams().Encode()
	if err := common.GetJSON(ctx, p.client, endpoint, p.userAgent, &response); err != nil {
		p.logger.Debug("tmdb genre list failed", slog.String("kind", kind), slog.String("error", err.Error()))
		return nil
	}
	names := make(map[int]string, len(response.Genres))
	for _, g := range response.Genres {
		if name := strings.TrimSpace(g.Name); g.ID != 0 && name != "" {
			names[g.ID] = name
		}
	}
	p.genres.Set(ctx, key, names)
	return names
}

func (p *Provider) toSummary(raw searchResult, mediaType domain.MediaType, genreNames map[int]string) (domain.MediaSummary, bool) {
	title := strings.TrimSpace(raw.displayTitle())
	if raw.ID <= 0 || title == "" || raw.Adult {
		return domain.MediaSummary{}, false
	}
	id := strconv.Itoa(raw.ID)
	genres := make([]string, 0, len(raw.GenreIDs))
	for _, genreID := range raw.GenreIDs {
		if name, ok := genreNames[genreID]; ok {
			genres = append(genres, name)
		}
	}
	return domain.MediaSummary{
		ID:             id,
		ExternalID:     id,
		Title:          title,
		Type:           mediaType,
		CoverImage:     p.posterURL(raw.PosterPath),
		Year:           domain.IntPtr(common.ParseYear(raw.date())),
		Rating:         ratingOf(raw.VoteAverage),
		RelevanceScore: raw.Popularity,
		Genres:         genres,
		Description:    common.CleanHTMLText(raw.Overview),
		Popularity:     raw.Popularity,
		VoteCount:      raw.VoteCount,
		Source:         providerName,
	}, true
}

func (p *Provider) toDetail(raw detailResponse, mediaType domain.MediaType) domain.MediaDetail {
	id := strconv.Itoa(raw.ID)
	title := strings.TrimSpace(raw.Title)
	date := raw.ReleaseDate
	if title == "" {
		title = strings.TrimSpace(raw.Name)
	}
	if date == "" {
		date = raw.FirstAirDate
	}

	genres := make([]string, 0, len(raw.Genres))
	for _, g := range raw.Genres {
		if name := strings.TrimSpace(g.Name); name != "" {
			genres = append(genres, name)
		}
	}

	detail := domain.MediaDetail{
		MediaSummary: domain.MediaSummary{
			ID:             id,
			ExternalID:     id,
			Title:          title,
			Type:           mediaType,
			CoverImage:     p.posterURL(raw.PosterPath),
			Year:           domain.IntPtr(common.ParseYear(date)),
			Rating:         ratingOf(raw.VoteAverage),
			RelevanceScore: raw.Popularity,
			Genres:         genres,
			Director:       domain.StringPtr(directorOf(raw)),
			Description:    common.CleanHTMLText(raw.Overview),
			Popularity:     raw.Popularity,
			VoteCount:      raw.VoteCount,
			Source:         providerName,
		},
		ReleaseDate: date,
		Seasons:     raw.NumberOfSeasons,
		Episodes:    raw.NumberOfEpisodes,
		Homepage:    strings.TrimSpace(raw.Homepage),
		Language:    raw.OriginalLanguage,
	}
	if raw.Runtime != nil {
		detail.RuntimeMinutes = *raw.Runtime
	} else if len(raw.EpisodeRunTime) > 0 {
		detail.RuntimeMinutes = raw.EpisodeRunTime[0]
	}
	if len(raw.ProductionCompanies) > 0 {
		detail.Publisher = strings.TrimSpace(raw.ProductionCompanies[0].Name)
	}
	return detail
}

// directorOf prefers the credited director and falls back to the show
// creator for series.
func directorOf(raw detailResponse) string {
	if raw.Credits != nil {
		for _, member := range raw.Credits.Crew {
			if member.Job == "Director" && strings.TrimSpace(member.Name) != "" {
				return member.Name
			}
		}
	}
	for _, creator := range raw.CreatedBy {
		if strings.TrimSpace(creator.Name) != "" {
			return creator.Name
		}
	}
	return ""
}

func (p *Provider) posterURL(path *string) *string {
	if path == nil || strings.TrimSpace(*path) == "" {
		return nil
	}
	value := p.imageURL + "/" + strings.TrimLeft(*path, "/")
	return &value
}

func ratingOf(voteAverage *float64) float64 {
	if voteAverage == nil || *voteAverage < 0 {
		return 0
	}
	if *voteAverage > 10 {
		return 10
	}
	return *voteAverage
}
