package feed

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ozgund/readbox/internal/logger"
	"github.com/ozgund/readbox/internal/models"
	"github.com/ozgund/readbox/internal/utils"
)

// FeedRegistry enumerates every registered feed across all tenants.
type FeedRegistry interface {
	ListAllFeeds(ctx context.Context) ([]models.Feed, error)
}

// ArticleStore persists one normalized item for a feed. The write must be
// an atomic insert-or-update on (feed_id, link); sync never reads rows back.
type ArticleStore interface {
	UpsertArticle(ctx context.Context, tenantID, feedID uuid.UUID, item models.FeedItem) error
}

// DocumentFetcher retrieves the raw document for a feed URL.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, url string) (string, error)
}

// DocumentCache remembers the hash of the last document processed for a
// feed so unchanged upstreams can be skipped between batch runs.
type DocumentCache interface {
	IsUnchanged(ctx context.Context, feedID uuid.UUID, hash string) (bool, error)
	Remember(ctx context.Context, feedID uuid.UUID, hash string, ttl time.Duration) error
	Forget(ctx context.Context, feedID uuid.UUID) error
}

// Syncer drives feed synchronization: the scheduled batch over every
// registered feed, the one-shot seed after registration, and the
// fetch+parse validation used before a feed row is created.
type Syncer struct {
	registry FeedRegistry
	store    ArticleStore
	fetcher  DocumentFetcher
	parser   *Parser
	cache    DocumentCache // nil disables document skipping
	cacheTTL time.Duration
	workers  int
}

func NewSyncer(registry FeedRegistry, store ArticleStore, fetcher DocumentFetcher, cache DocumentCache, cacheTTL time.Duration, workers int) *Syncer {
	if workers < 1 {
		workers = 1
	}
	return &Syncer{
		registry: registry,
		store:    store,
		fetcher:  fetcher,
		parser:   NewParser(),
		cache:    cache,
		cacheTTL: cacheTTL,
		workers:  workers,
	}
}

// SyncAllFeeds runs one batch pass over every registered feed. It never
// fails as a whole: any fetch, parse or storage error is logged with the
// feed's URL and that feed alone is skipped. Feeds are processed with at
// most s.workers in flight; workers=1 gives strictly sequential behavior.
func (s *Syncer) SyncAllFeeds(ctx context.Context) models.SyncReport {
	log := logger.Get()
	start := time.Now()

	var report models.SyncReport

	feeds, err := s.registry.ListAllFeeds(ctx)
	if err != nil {
		log.Error().
			Err(err).
			Msg("Failed to enumerate feeds, batch aborted")
		return report
	}

	log.Info().
		Int("feed_count", len(feeds)).
		Msg("Starting feed sync batch")

	var mu sync.Mutex
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, s.workers)

	for _, fd := range feeds {
		select {
		case <-ctx.Done():
			// Let in-flight feeds finish, just stop starting new ones.
			log.Warn().Msg("Context cancelled, not starting further feeds")
			wg.Wait()
			return report
		case semaphore <- struct{}{}:
		}

		fd := fd

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-semaphore }()

			stored, skipped, err := s.syncFeed(ctx, fd, true)

			mu.Lock()
			defer mu.Unlock()
			report.Processed++
			switch {
			case err != nil:
				report.Failed++
				log.Error().
					Err(err).
					Str("feed_url", fd.URL).
					Stringer("feed_id", fd.ID).
					Msg("Feed sync failed, skipping feed")
			case skipped:
				report.Skipped++
				log.Debug().
					Str("feed_url", fd.URL).
					Msg("Feed document unchanged, skipped")
			default:
				report.Succeeded++
				report.Articles += stored
				log.Info().
					Str("feed_url", fd.URL).
					Int("articles", stored).
					Msg("Feed synced")
			}
		}()
	}
	wg.Wait()

	log.Info().
		Int("processed", report.Processed).
		Int("succeeded", report.Succeeded).
		Int("skipped", report.Skipped).
		Int("failed", report.Failed).
		Int("articles", report.Articles).
		Dur("duration", time.Since(start)).
		Msg("Finished feed sync batch")

	return report
}

// SeedFeedArticles runs one fetch+parse+upsert pass for a newly registered
// feed. By the time it runs the feed row is already committed, so failures
// are logged and swallowed; the next scheduled batch will retry.
func (s *Syncer) SeedFeedArticles(ctx context.Context, fd models.Feed) {
	log := logger.Get()

	stored, _, err := s.syncFeed(ctx, fd, false)
	if err != nil {
		log.Error().
			Err(err).
			Str("feed_url", fd.URL).
			Stringer("feed_id", fd.ID).
			Msg("Initial article seed failed, feed stays registered")
		return
	}

	log.Info().
		Str("feed_url", fd.URL).
		Int("articles", stored).
		Msg("Seeded articles for new feed")
}

// ValidateFeed fetches the URL and checks it parses as a feed under the
// channel-title rule. Unlike the batch paths this propagates errors: the
// caller is a registration request that should be rejected with a reason.
func (s *Syncer) ValidateFeed(ctx context.Context, url string) (models.FeedInfo, error) {
	doc, err := s.fetcher.FetchDocument(ctx, url)
	if err != nil {
		return models.FeedInfo{}, err
	}
	return s.parser.ParseInfo(doc)
}

func (s *Syncer) syncFeed(ctx context.Context, fd models.Feed, useCache bool) (stored int, skipped bool, err error) {
	log := logger.Get()

	doc, err := s.fetcher.FetchDocument(ctx, fd.URL)
	if err != nil {
		return 0, false, err
	}

	hash := utils.Hash(doc)
	if useCache && s.cache != nil {
		unchanged, cacheErr := s.cache.IsUnchanged(ctx, fd.ID, hash)
		if cacheErr != nil {
			// Cache trouble degrades to a full pass; the upsert is
			// idempotent, so reprocessing is only wasted work.
			log.Warn().
				Err(cacheErr).
				Str("feed_url", fd.URL).
				Msg("Document cache unavailable, processing anyway")
		} else if unchanged {
			return 0, true, nil
		}
	}

	for _, item := range s.parser.ParseItems(doc) {
		if item.Link == "" {
			// No permalink means no dedup key and nothing to open in a
			// client; the record is dropped before it reaches storage.
			log.Debug().
				Str("feed_url", fd.URL).
				Str("title", item.Title).
				Msg("Dropping item without link")
			continue
		}

		if err := s.store.UpsertArticle(ctx, fd.TenantID, fd.ID, item); err != nil {
			if useCache && s.cache != nil {
				// Clear any recorded hash so the next batch does a full
				// pass over this feed instead of trusting a run that
				// stopped partway.
				if cacheErr := s.cache.Forget(ctx, fd.ID); cacheErr != nil {
					log.Warn().
						Err(cacheErr).
						Str("feed_url", fd.URL).
						Msg("Failed to clear document hash")
				}
			}
			return stored, false, fmt.Errorf("upserting article %s: %w", item.Link, err)
		}
		stored++
	}

	if useCache && s.cache != nil {
		if cacheErr := s.cache.Remember(ctx, fd.ID, hash, s.cacheTTL); cacheErr != nil {
			log.Warn().
				Err(cacheErr).
				Str("feed_url", fd.URL).
				Msg("Failed to record document hash")
		}
	}

	return stored, false, nil
}
