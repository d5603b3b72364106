package googlebooks

type volumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []volume `json:"items"`
}

type volume struct {
	ID         string     `json:"id"`
	VolumeInfo volumeInfo `json:"volumeInfo"`
}

type volumeInfo struct {
	Title          string      `json:"title"`
	Subtitle       string      `json:"subtitle"`
	Authors        []string    `json:"authors"`
	Publisher      string      `json:"publisher"`
	PublishedDate  string      `json:"publishedDate"`
	Description    string      `json:"description"`
	PageCount      *int        `json:"pageCount"`
	Categories     []string    `json:"categories"`
	AverageRating  *float64    `json:"averageRating"`
	RatingsCount   *int        `json:"ratingsCount"`
	MaturityRating string      `json:"maturityRating"`
	ImageLinks     *imageLinks `json:"imageLinks"`
	Language       string      `json:"language"`
	InfoLink       string      `json:"infoLink"`
}

type imageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
	Small          string `json:"small"`
	Medium         string `json:"medium"`
}
