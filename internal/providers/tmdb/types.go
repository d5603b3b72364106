package tmdb

type searchResponse struct {
	Page         int            `json:"page"`
	Results      []searchResult `json:"results"`
	TotalPages   int            `json:"total_pages"`
	TotalResults int            `json:"total_results"`
}

// searchResult covers both /search/movie and /search/tv rows. Movies use
// Title and ReleaseDate, shows use Name and FirstAirDate.
type searchResult struct {
	ID           int      `json:"id"`
	Title        string   `json:"title"`
	Name         string   `json:"name"`
	Overview     string   `json:"overview"`
	PosterPath   *string  `json:"poster_path"`
	ReleaseDate  string   `json:"release_date"`
	FirstAirDate string   `json:"first_air_date"`
	VoteAverage  *float64 `json:"vote_average"`
	VoteCount    int      `json:"vote_count"`
	Popularity   float64  `json:"popularity"`
	GenreIDs     []int    `json:"genre_ids"`
	Adult        bool     `json:"adult"`
}

func (r searchResult) displayTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return r.Name
}

func (r searchResult) date() string {
	if r.ReleaseDate != "" {
		return r.ReleaseDate
	}
	return r.FirstAirDate
}

type genreListResponse struct {
	Genres []genre `json:"genres"`
}

type genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type person struct {
	Name string `json:"name"`
	Job  string `json:"job"`
}

type credits struct {
	Crew []person `json:"crew"`
}

type company struct {
	Name string `json:"name"`
}

// detailResponse covers /movie/{id} and /tv/{id} with credits appended.
type detailResponse struct {
	ID                  int       `json:"id"`
	Title               string    `json:"title"`
	Name                string    `json:"name"`
	Overview            string    `json:"overview"`
	PosterPath          *string   `json:"poster_path"`
	ReleaseDate         string    `json:"release_date"`
	FirstAirDate        string    `json:"first_air_date"`
	VoteAverage         *float64  `json:"vote_average"`
	VoteCount           int       `json:"vote_count"`
	Popularity          float64   `json:"popularity"`
	Genres              []genre   `json:"genres"`
	Adult               bool      `json:"adult"`
	Runtime             *int      `json:"runtime"`
	EpisodeRunTime      []int     `json:"episode_run_time"`
	NumberOfSeasons     int       `json:"number_of_seasons"`
	NumberOfEpisodes    int       `json:"number_of_episodes"`
	Homepage            string    `json:"homepage"`
	OriginalLanguage    string    `json:"original_language"`
	CreatedBy           []person  `json:"created_by"`
	ProductionCompanies []company `json:"production_companies"`
	Credits             *credits  `json:"credits"`
}
