package domain

import "strings"

type MediaType string

const (
	MediaTypeFilm  MediaType = "film"
	MediaTypeSerie MediaType = "serie"
	MediaTypeBook  MediaType = "book"
	MediaTypeGame  MediaType = "game"
)

// MediaTypes lists every searchable kind in display order.
var MediaTypes = []MediaType{MediaTypeFilm, MediaTypeSerie, MediaTypeBook, MediaTypeGame}

// ParseMediaType accepts the canonical names plus the plural and English
// aliases clients tend to send. ok is false for anything else.
func ParseMediaType(raw string) (MediaType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "film", "films", "movie", "movies":
		return MediaTypeFilm, true
	case "serie", "series", "tv", "show", "shows":
		return MediaTypeSerie, true
	case "book", "books":
		return MediaTypeBook, true
	case "game", "games":
		return MediaTypeGame, true
	default:
		return "", false
	}
}

func (t MediaType) Valid() bool {
	switch t {
	case MediaTypeFilm, MediaTypeSerie, MediaTypeBook, MediaTypeGame:
		return true
	default:
		return false
	}
}

// MediaSummary is the source-agnostic representation of one searchable item.
// RelevanceScore and the ranking signals below it are recomputed per query
// and never persisted.
type MediaSummary struct {
	ID             string    `json:"id"`
	ExternalID     string    `json:"externalId"`
	Title          string    `json:"title"`
	Type           MediaType `json:"type"`
	CoverImage     *string   `json:"coverImage"`
	Year           *int      `json:"year"`
	Rating         float64   `json:"rating"`
	RelevanceScore float64   `json:"relevanceScore"`
	Genres         []string  `json:"genres"`
	Author         *string   `json:"author,omitempty"`
	Director       *string   `json:"director,omitempty"`
	FromLocalStore bool      `json:"fromLocalStore"`

	Description   string  `json:"description,omitempty"`
	Popularity    float64 `json:"popularity,omitempty"`
	VoteCount     int     `json:"voteCount,omitempty"`
	RatingsCount  int     `json:"ratingsCount,omitempty"`
	PlatformCount int     `json:"platformCount,omitempty"`
	Source        string  `json:"source,omitempty"`
}

// DedupeKey identifies an item across sources.
func (m MediaSummary) DedupeKey() string {
	return string(m.Type) + ":" + strings.TrimSpace(m.ExternalID)
}

func (m MediaSummary) YearValue() int {
	if m.Year == nil {
		return 0
	}
	return *m.Year
}

func (m MediaSummary) HasCover() bool {
	return m.CoverImage != nil && strings.TrimSpace(*m.CoverImage) != ""
}

func (m MediaSummary) AuthorValue() string {
	if m.Author == nil {
		return ""
	}
	return *m.Author
}

func (m MediaSummary) DirectorValue() string {
	if m.Director == nil {
		return ""
	}
	return *m.Director
}

// Clone returns a deep copy so cached values cannot be mutated by callers.
func (m MediaSummary) Clone() MediaSummary {
	cloned := m
	cloned.CoverImage = cloneString(m.CoverImage)
	cloned.Author = cloneString(m.Author)
	cloned.Director = cloneString(m.Director)
	if m.Year != nil {
		year := *m.Year
		cloned.Year = &year
	}
	if m.Genres != nil {
		cloned.Genres = append(m.Genres[:0:0], m.Genres...)
	}
	return cloned
}

type MediaDetail struct {
	MediaSummary
	ReleaseDate    string   `json:"releaseDate,omitempty"`
	RuntimeMinutes int      `json:"runtimeMinutes,omitempty"`
	Seasons        int      `json:"seasons,omitempty"`
	Episodes       int      `json:"episodes,omitempty"`
	PageCount      int      `json:"pageCount,omitempty"`
	Publisher      string   `json:"publisher,omitempty"`
	Platforms      []string `json:"platforms,omitempty"`
	Developers     []string `json:"developers,omitempty"`
	Homepage       string   `json:"homepage,omitempty"`
	Language       string   `json:"language,omitempty"`
}

func (d MediaDetail) Clone() MediaDetail {
	cloned := d
	cloned.MediaSummary = d.MediaSummary.Clone()
	if d.Platforms != nil {
		cloned.Platforms = append(d.Platforms[:0:0], d.Platforms...)
	}
	if d.Developers != nil {
		cloned.Developers = append(d.Developers[:0:0], d.Developers...)
	}
	return cloned
}

// StringPtr returns nil for blank values so optional fields stay null in JSON.
func StringPtr(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

// IntPtr returns nil for non-positive values.
func IntPtr(value int) *int {
	if value <= 0 {
		return nil
	}
	return &value
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
