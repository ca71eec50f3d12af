package api

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozgund/readbox/internal/config"
	"github.com/ozgund/readbox/internal/logger"
	"github.com/ozgund/readbox/internal/models"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.Config{Level: "disabled"})
	os.Exit(m.Run())
}

type fakeFeedStore struct {
	created   []models.Feed
	createErr error
	articles  []models.Article
}

func (s *fakeFeedStore) CreateFeed(ctx context.Context, fd models.Feed) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, fd)
	return nil
}

func (s *fakeFeedStore) ListArticlesByFeed(ctx context.Context, feedID uuid.UUID, page, pageSize int) ([]models.Article, error) {
	return s.articles, nil
}

type fakeSyncService struct {
	mu          sync.Mutex
	info        models.FeedInfo
	validateErr error
	seeded      []models.Feed
	syncs       int
}

func (s *fakeSyncService) ValidateFeed(ctx context.Context, url string) (models.FeedInfo, error) {
	return s.info, s.validateErr
}

func (s *fakeSyncService) SeedFeedArticles(ctx context.Context, fd models.Feed) {
	s.seeded = append(s.seeded, fd)
}

func (s *fakeSyncService) SyncAllFeeds(ctx context.Context) models.SyncReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.syncs++
	return models.SyncReport{}
}

func newTestApp(store *fakeFeedStore, syncer *fakeSyncService) *fiber.App {
	cfg := &config.Config{AdminAPIKey: "sekret"}
	app := fiber.New()
	SetupRoutes(app, NewHandlers(cfg, store, syncer), cfg)
	return app
}

func TestRegisterFeed(t *testing.T) {
	store := &fakeFeedStore{}
	syncer := &fakeSyncService{info: models.FeedInfo{Title: "Example", Description: "desc"}}
	app := newTestApp(store, syncer)

	tenantID := uuid.New()
	req := httptest.NewRequest("POST", "/api/v1/feeds", strings.NewReader(`{"url":"https://example.com/feed.xml"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", tenantID.String())

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

	require.Len(t, store.created, 1)
	assert.Equal(t, tenantID, store.created[0].TenantID)
	assert.Equal(t, "Example", store.created[0].Title)

	// Registration triggers exactly one seed pass
	require.Len(t, syncer.seeded, 1)
	assert.Equal(t, store.created[0].ID, syncer.seeded[0].ID)

	var body models.Feed
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "https://example.com/feed.xml", body.URL)
}

func TestRegisterFeedMissingTenant(t *testing.T) {
	app := newTestApp(&fakeFeedStore{}, &fakeSyncService{})

	req := httptest.NewRequest("POST", "/api/v1/feeds", strings.NewReader(`{"url":"https://example.com/feed.xml"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestRegisterFeedInvalidURL(t *testing.T) {
	app := newTestApp(&fakeFeedStore{}, &fakeSyncService{})

	req := httptest.NewRequest("POST", "/api/v1/feeds", strings.NewReader(`{"url":"not a url"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", uuid.NewString())

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRegisterFeedNotAFeed(t *testing.T) {
	syncer := &fakeSyncService{validateErr: models.ErrNotAFeed}
	store := &fakeFeedStore{}
	app := newTestApp(store, syncer)

	req := httptest.NewRequest("POST", "/api/v1/feeds", strings.NewReader(`{"url":"https://example.com/page.html"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", uuid.NewString())

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Empty(t, store.created)
}

func TestRegisterFeedUnreachable(t *testing.T) {
	syncer := &fakeSyncService{validateErr: &models.FetchError{URL: "https://down.example/feed", StatusCode: 502}}
	app := newTestApp(&fakeFeedStore{}, syncer)

	req := httptest.NewRequest("POST", "/api/v1/feeds", strings.NewReader(`{"url":"https://down.example/feed"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", uuid.NewString())

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestRegisterFeedDuplicate(t *testing.T) {
	store := &fakeFeedStore{createErr: models.ErrDuplicateFeed}
	syncer := &fakeSyncService{info: models.FeedInfo{Title: "Example"}}
	app := newTestApp(store, syncer)

	req := httptest.NewRequest("POST", "/api/v1/feeds", strings.NewReader(`{"url":"https://example.com/feed.xml"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-ID", uuid.NewString())

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	assert.Empty(t, syncer.seeded)
}

func TestTriggerSyncRequiresAdminKey(t *testing.T) {
	app := newTestApp(&fakeFeedStore{}, &fakeSyncService{})

	req := httptest.NewRequest("POST", "/api/v1/admin/sync", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest("POST", "/api/v1/admin/sync", nil)
	req.Header.Set("X-API-Key", "wrong")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	req = httptest.NewRequest("POST", "/api/v1/admin/sync", nil)
	req.Header.Set("X-API-Key", "sekret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
}

func TestListFeedArticlesBadID(t *testing.T) {
	app := newTestApp(&fakeFeedStore{}, &fakeSyncService{})

	req := httptest.NewRequest("GET", "/api/v1/feeds/not-a-uuid/articles", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
