package models

// FeedItem is the normalized, format-agnostic representation of one feed
// entry, as produced by the parser before persistence. All fields are raw
// text from the source; PublishedAt in particular is kept verbatim
// (RFC 2822, ISO 8601, whatever the feed served) and never parsed here.
type FeedItem struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Description string `json:"description,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
}
