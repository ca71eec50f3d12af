package models

import (
	"time"

	"github.com/google/uuid"
)

// Article is one ingested entry belonging to exactly one Feed.
// (feed_id, link) is unique; re-ingesting the same entry updates the row
// in place. ReadAt is owned by the read-tracking layer, never by sync.
type Article struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	FeedID      uuid.UUID  `json:"feed_id"`
	Title       string     `json:"title"`
	Link        string     `json:"link"`
	Description string     `json:"description,omitempty"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	PublishedAt string     `json:"published_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}
