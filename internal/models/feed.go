package models

import (
	"time"

	"github.com/google/uuid"
)

// Feed is a tenant's subscription to a syndication URL.
// (tenant_id, url) is unique: two tenants may subscribe to the same URL,
// each getting their own row.
type Feed struct {
	ID          uuid.UUID `json:"id"`
	TenantID    uuid.UUID `json:"tenant_id"`
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewFeed builds a Feed with a fresh id and current timestamps.
func NewFeed(tenantID uuid.UUID, url, title, description string) Feed {
	now := time.Now().UTC()
	return Feed{
		ID:          uuid.New(),
		TenantID:    tenantID,
		URL:         url,
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// FeedInfo is what feed validation reports back at registration time.
type FeedInfo struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}
