package rawg

type gamesResponse struct {
	Count   int       `json:"count"`
	Next    *string   `json:"next"`
	Results []rawGame `json:"results"`
}

type named struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type platformEntry struct {
	Platform named `json:"platform"`
}

type rawGame struct {
	ID              int             `json:"id"`
	Slug            string          `json:"slug"`
	Name            string          `json:"name"`
	Released        string          `json:"released"`
	BackgroundImage *string         `json:"background_image"`
	Rating          *float64        `json:"rating"`
	RatingsCount    int             `json:"ratings_count"`
	Metacritic      *int            `json:"metacritic"`
	Platforms       []platformEntry `json:"platforms"`
	Genres          []named         `json:"genres"`
	ESRBRating      *named          `json:"esrb_rating"`

	// Details only.
	DescriptionRaw string  `json:"description_raw"`
	Description    string  `json:"description"`
	Website        string  `json:"website"`
	Developers     []named `json:"developers"`
	Publishers     []named `json:"publishers"`
}

func (g rawGame) platformNames() []string {
	names := make([]string, 0, len(g.Platforms))
	for _, entry := range g.Platforms {
		names = append(names, entry.Platform.Name)
	}
	return names
}

func names(values []named) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		out = append(out, value.Name)
	}
	return out
}
