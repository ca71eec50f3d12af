package api

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/ozgund/readbox/internal/config"
	"github.com/ozgund/readbox/internal/logger"
	"github.com/ozgund/readbox/internal/models"
)

// FeedStore is the storage surface the handlers need.
type FeedStore interface {
	CreateFeed(ctx context.Context, fd models.Feed) error
	ListArticlesByFeed(ctx context.Context, feedID uuid.UUID, page, pageSize int) ([]models.Article, error)
}

// SyncService is the sync surface the handlers need.
type SyncService interface {
	ValidateFeed(ctx context.Context, url string) (models.FeedInfo, error)
	SeedFeedArticles(ctx context.Context, fd models.Feed)
	SyncAllFeeds(ctx context.Context) models.SyncReport
}

type Handlers struct {
	config   *config.Config
	store    FeedStore
	syncer   SyncService
	validate *validator.Validate
}

func NewHandlers(cfg *config.Config, store FeedStore, syncer SyncService) *Handlers {
	return &Handlers{
		config:   cfg,
		store:    store,
		syncer:   syncer,
		validate: validator.New(),
	}
}

// HealthCheck handles GET /api/v1/health
func (h *Handlers) HealthCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status": "ok",
		"time":   time.Now().Format(time.RFC3339),
	})
}

type registerFeedRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// RegisterFeed handles POST /api/v1/feeds. The URL is fetched and parsed
// before anything is written: an unreachable or non-feed URL is rejected
// here, synchronously, with a specific reason. Once the row is committed
// the initial article seed runs, and its failure no longer matters to the
// caller.
func (h *Handlers) RegisterFeed(c *fiber.Ctx) error {
	log := logger.Get()

	tenantID, err := uuid.Parse(c.Get("X-Tenant-ID"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Missing or invalid X-Tenant-ID header",
		})
	}

	var req registerFeedRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body: " + err.Error(),
		})
	}

	if err := h.validate.Struct(&req); err != nil {
		fields := make(map[string]string)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, ve := range verrs {
				fields[ve.Field()] = ve.Tag()
			}
		}
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":  "Validation failed",
			"fields": fields,
		})
	}

	info, err := h.syncer.ValidateFeed(c.Context(), req.URL)
	if err != nil {
		var fetchErr *models.FetchError
		switch {
		case errors.As(err, &fetchErr):
			log.Warn().
				Err(err).
				Str("url", req.URL).
				Msg("Feed registration rejected, URL unreachable")
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "Feed URL could not be fetched",
			})
		case errors.Is(err, models.ErrNotAFeed):
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": "URL is not a valid RSS or Atom feed",
			})
		default:
			log.Error().Err(err).Str("url", req.URL).Msg("Feed validation failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to validate feed",
			})
		}
	}

	fd := models.NewFeed(tenantID, req.URL, info.Title, info.Description)
	if err := h.store.CreateFeed(c.Context(), fd); err != nil {
		if errors.Is(err, models.ErrDuplicateFeed) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": "Feed already registered",
			})
		}
		log.Error().Err(err).Str("url", req.URL).Msg("Failed to create feed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create feed",
		})
	}

	// Seed never fails registration; the feed is committed already.
	h.syncer.SeedFeedArticles(c.Context(), fd)

	return c.Status(fiber.StatusCreated).JSON(fd)
}

// ListFeedArticles handles GET /api/v1/feeds/:id/articles
func (h *Handlers) ListFeedArticles(c *fiber.Ctx) error {
	feedID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid feed id",
		})
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	if page < 1 {
		page = 1
	}

	pageSize, _ := strconv.Atoi(c.Query("page_size", "20"))
	switch {
	case pageSize > 100:
		pageSize = 100
	case pageSize <= 0:
		pageSize = 20
	}

	articles, err := h.store.ListArticlesByFeed(c.Context(), feedID, page, pageSize)
	if err != nil {
		logger.Get().Error().Err(err).Stringer("feed_id", feedID).Msg("Error listing articles")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list articles",
		})
	}

	return c.JSON(fiber.Map{
		"page":      page,
		"page_size": pageSize,
		"total":     len(articles),
		"items":     articles,
	})
}

// TriggerSync handles POST /api/v1/admin/sync. The batch runs in the
// background; it never fails, so the response is always "started".
func (h *Handlers) TriggerSync(c *fiber.Ctx) error {
	log := logger.Get()

	log.Info().
		Str("ip", c.IP()).
		Msg("Received manual sync request")

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		h.syncer.SyncAllFeeds(ctx)
	}()

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status":  "started",
		"message": "Feed sync running in the background",
	})
}
