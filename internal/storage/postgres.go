package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ozgund/readbox/internal/logger"
	"github.com/ozgund/readbox/internal/models"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PgxPool is the subset of pgxpool.Pool the store needs. pgxmock
// implements it, which is how the store is tested without a database.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store is the relational backend for feeds and articles. It is both the
// feed registry the batch iterates and the article upsert store the
// pipeline writes through.
type Store struct {
	db PgxPool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: pool}, nil
}

// NewWithPool wraps an existing pool (or a pgxmock pool in tests).
func NewWithPool(db PgxPool) *Store {
	return &Store{db: db}
}

func (s *Store) Close() {
	s.db.Close()
}

const upsertArticleQuery = `
	INSERT INTO articles (id, tenant_id, feed_id, title, link, description, thumbnail, published_at, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now(), now())
	ON CONFLICT (feed_id, link) DO UPDATE SET
		title = EXCLUDED.title,
		description = EXCLUDED.description,
		thumbnail = EXCLUDED.thumbnail,
		published_at = EXCLUDED.published_at,
		updated_at = now()
`

// UpsertArticle writes one normalized item for a feed. New (feed_id, link)
// pairs insert a fresh row; existing ones update the mutable fields in
// place, leaving id, tenant_id, created_at and read_at untouched. The
// conflict clause makes concurrent runs over the same pair converge on a
// single row without any read-modify-write.
func (s *Store) UpsertArticle(ctx context.Context, tenantID, feedID uuid.UUID, item models.FeedItem) error {
	if item.Link == "" {
		return models.ErrMissingLink
	}

	_, err := s.db.Exec(ctx, upsertArticleQuery,
		uuid.New(), tenantID, feedID,
		item.Title, item.Link, item.Description,
		item.Thumbnail, item.PublishedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			// The feed was deleted while the batch held its row.
			return models.ErrFeedNotFound
		}
		return fmt.Errorf("failed to upsert article: %w", err)
	}
	return nil
}

const createFeedQuery = `
	INSERT INTO feeds (id, tenant_id, url, title, description, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
`

// CreateFeed inserts a new feed row. A (tenant_id, url) collision comes
// back as models.ErrDuplicateFeed.
func (s *Store) CreateFeed(ctx context.Context, fd models.Feed) error {
	_, err := s.db.Exec(ctx, createFeedQuery,
		fd.ID, fd.TenantID, fd.URL,
		fd.Title, fd.Description,
		fd.CreatedAt, fd.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return models.ErrDuplicateFeed
		}
		return fmt.Errorf("failed to create feed: %w", err)
	}
	return nil
}

const listAllFeedsQuery = `
	SELECT id, tenant_id, url, title, description, created_at, updated_at
	FROM feeds
	ORDER BY created_at, id
`

// ListAllFeeds enumerates every feed across all tenants, each carrying its
// owning tenant id. This is what the batch iterates.
func (s *Store) ListAllFeeds(ctx context.Context) ([]models.Feed, error) {
	rows, err := s.db.Query(ctx, listAllFeedsQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list feeds: %w", err)
	}
	defer rows.Close()

	var feeds []models.Feed
	for rows.Next() {
		var fd models.Feed
		if err := rows.Scan(
			&fd.ID, &fd.TenantID, &fd.URL,
			&fd.Title, &fd.Description,
			&fd.CreatedAt, &fd.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}
		feeds = append(feeds, fd)
	}

	return feeds, rows.Err()
}

const listArticlesQuery = `
	SELECT id, tenant_id, feed_id, title, link, description, thumbnail, published_at, read_at, created_at, updated_at
	FROM articles
	WHERE feed_id = $1
	ORDER BY created_at DESC, id
	LIMIT $2 OFFSET $3
`

// ListArticlesByFeed returns one page of a feed's articles, newest first.
func (s *Store) ListArticlesByFeed(ctx context.Context, feedID uuid.UUID, page, pageSize int) ([]models.Article, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	rows, err := s.db.Query(ctx, listArticlesQuery, feedID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var articles []models.Article
	for rows.Next() {
		var a models.Article
		if err := rows.Scan(
			&a.ID, &a.TenantID, &a.FeedID,
			&a.Title, &a.Link, &a.Description,
			&a.Thumbnail, &a.PublishedAt, &a.ReadAt,
			&a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		articles = append(articles, a)
	}

	return articles, rows.Err()
}

// Migrate applies every *.up.sql file in dir, in name order. Statements
// are written to be idempotent, so re-running on boot is safe.
func (s *Store) Migrate(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}

	sort.Strings(upFiles)

	for _, file := range upFiles {
		content, err := os.ReadFile(filepath.Join(dir, file))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		if _, err := s.db.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", file, err)
		}

		logger.Get().Info().Str("migration", file).Msg("Applied migration")
	}

	return nil
}
