package googlebooks

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
	"mookka/searchservice/internal/metrics"
	"mookka/searchservice/internal/providers/common"
)

const (
	providerName   = "googlebooks"
	defaultBaseURL = "https://www.googleapis.com/books/v1"
	pageSize       = 20
	// Google rejects startIndex past roughly a thousand results.
	maxStartIndex = 1000
)

type Config struct {
	APIKey    string
	BaseURL   string
	UserAgent string
	Client    *http.Client
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Provider serves books from the Google Books volumes API. It works without
// an API key at a lower quota.
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
		Label:   "Google Books",
		Kind:    "metadata",
		Types:   []domain.MediaType{domain.MediaTypeBook},
		Enabled: true,
	}
}

func (p *Provider) Supports(mediaType domain.MediaType) bool {
	return mediaType == domain.MediaTypeBook
}

func (p *Provider) RateLimit() (float64, int) {
	return 2, 4
}

func (p *Provider) Search(ctx context.Context, request domain.ProviderRequest) (domain.ProviderPage, error) {
	if request.Type != domain.MediaTypeBook {
		return domain.ProviderPage{}, fmt.Errorf("googlebooks does not serve %q", request.Type)
	}
	query := strings.TrimSpace(request.Query)
	if query == "" {
		return domain.ProviderPage{}, nil
	}
	startIndex := (domain.NormalizePage(request.Page) - 1) * pageSize
	if startIndex > maxStartIndex {
		return domain.ProviderPage{}, nil
	}

	params := p.params()
	params.Set("q", query)
	params.Set("startIndex", strconv.Itoa(startIndex))
	params.Set("maxResults", strconv.Itoa(pageSize))
	params.Set("printType", "books")

	var response volumesResponse
	if err := common.GetJSON(ctx, p.client, p.baseURL+"/volumes?"+params.Encode(), p.userAgent, &response); err != nil {
		return domain.ProviderPage{}, fmt.Errorf("googlebooks search: %w", err)
	}

	items := make([]domain.MediaSummary, 0, len(response.Items))
	discarded := 0
	for _, raw := range response.Items {
		item, ok := toSummary(raw)
		if !ok {
			continue
		}
		if item.Popularity <= MinScore {
			discarded++
			continue
		}
		items = append(items, item)
	}
	if discarded > 0 {
		metrics.ItemsDroppedTotal.WithLabelValues("book_heuristic").Add(float64(discarded))
		p.logger.Debug("googlebooks discarded low scoring volumes",
			slog.String("query", query),
			slog.Int("count", discarded),
		)
	}

	return domain.ProviderPage{
		Items:        items,
		TotalPages:   totalPages(response.TotalItems),
		TotalResults: response.TotalItems,
	}, nil
}

// Details never applies the relevance cut-off: a direct lookup by id is
// always answered.
func (p *Provider) Details(ctx context.Context, mediaType domain.MediaType, id string) (domain.MediaDetail, error) {
	if mediaType != domain.MediaTypeBook {
		return domain.MediaDetail{}, fmt.Errorf("googlebooks does not serve %q", mediaType)
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.MediaDetail{}, fmt.Errorf("googlebooks volume: %w", domain.ErrNotFound)
	}

	var raw volume
	endpoint := p.baseURL + "/volumes/" + url.PathEscape(id)
	if encoded := p.params().Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	if err := common.GetJSON(ctx, p.client, endpoint, p.userAgent, &raw); err != nil {
		return domain.MediaDetail{}, fmt.Errorf("googlebooks volume %s: %w", id, err)
	}
	summary, ok := toSummary(raw)
	if !ok {
		return domain.MediaDetail{}, fmt.Errorf("googlebooks volume %s: %w", id, domain.ErrNotFound)
	}

	info := raw.VolumeInfo
	detail := domain.MediaDetail{
		MediaSummary: summary,
		ReleaseDate:  strings.TrimSpace(info.PublishedDate),
		Publisher:    strings.TrimSpace(info.Publisher),
		Homepage:     strings.TrimSpace(info.InfoLink),
		Language:     strings.TrimSpace(info.Language),
	}
	if info.PageCount != nil {
		detail.PageCount = *info.PageCount
	}
	return detail, nil
}

func (p *Provider) params() url.Values {
	params := url.Values{}
	if p.apiKey != "" {
		params.Set("key", p.apiKey)
	}
	return params
}

func totalPages(totalItems int) int {
	if totalItems <= 0 {
		return 0
	}
	pages := (totalItems + pageSize - 1) / pageSize
	if limit := maxStartIndex/pageSize + 1; pages > limit {
		pages = limit
	}
	return pages
}

// toSummary maps one volume. Volumes without id or title and volumes
// flagged mature are skipped.
func toSummary(raw volume) (domain.MediaSummary, bool) {
	info := raw.VolumeInfo
	id := strings.TrimSpace(raw.ID)
	title := strings.TrimSpace(info.Title)
	if id == "" || title == "" || strings.EqualFold(info.MaturityRating, "MATURE") {
		return domain.MediaSummary{}, false
	}
	if subtitle := strings.TrimSpace(info.Subtitle); subtitle != "" {
		title += ": " + subtitle
	}

	description := common.CleanHTMLText(info.Description)
	categories := common.NonEmpty(info.Categories)
	year := common.ParseYear(info.PublishedDate)
	cover := coverURL(info.ImageLinks)

	average := 0.0
	if info.AverageRating != nil {
		average = *info.AverageRating
	}
	ratings := 0
	if info.RatingsCount != nil {
		ratings = *info.RatingsCount
	}

	heuristic := score(signals{
		title:         title,
		description:   description,
		categories:    categories,
		hasThumbnail:  cover != "",
		averageRating: average,
		ratingsCount:  ratings,
		year:          year,
	})

	return domain.MediaSummary{
		ID:             id,
		ExternalID:     id,
		Title:          title,
		Type:           domain.MediaTypeBook,
		CoverImage:     domain.StringPtr(cover),
		Year:           domain.IntPtr(year),
		Rating:         normalizeRating(average),
		RelevanceScore: heuristic,
		Genres:         categories,
		Author:         domain.StringPtr(strings.Join(common.NonEmpty(info.Authors), ", ")),
		Description:    description,
		Popularity:     heuristic,
		RatingsCount:   ratings,
		Source:         providerName,
	}, true
}

// coverURL picks the largest thumbnail and forces https.
func coverURL(links *imageLinks) string {
	if links == nil {
		return ""
	}
	for _, candidate := range []string{links.Medium, links.Small, links.Thumbnail, links.SmallThumbnail} {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		candidate = strings.Replace(candidate, "&edge=curl", "", 1)
		if strings.HasPrefix(candidate, "http://") {
			candidate = "https://" + strings.TrimPrefix(candidate, "http://")
		}
		return candidate
	}
	return ""
}

// normalizeRating maps the 0-5 star average onto 0-10.
func normalizeRating(average float64) float64 {
	if average <= 0 {
		return 0
	}
	if average >= 5 {
		return 10
	}
	return average * 2
}
