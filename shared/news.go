package shared

// NewsItem represents a normalized news article.
type NewsItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Source      string `json:"source"`
	Link        string `json:"link"`
	ImageURL    string `json:"imgURL,omitempty"`
	Description string `json:"description,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
}
