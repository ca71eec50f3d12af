package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozgund/readbox/internal/models"
)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewWithPool(mock), mock
}

func TestUpsertArticle(t *testing.T) {
	store, mock := newMockStore(t)

	tenantID := uuid.New()
	feedID := uuid.New()
	item := models.FeedItem{
		Title:       "Title",
		Link:        "https://example.com/a",
		Description: "Desc",
		Thumbnail:   "https://img.example.com/a.jpg",
		PublishedAt: "Mon, 02 Jan 2006 15:04:05 -0700",
	}

	mock.ExpectExec("INSERT INTO articles").
		WithArgs(pgxmock.AnyArg(), tenantID, feedID, item.Title, item.Link, item.Description, item.Thumbnail, item.PublishedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.UpsertArticle(context.Background(), tenantID, feedID, item)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertArticleSameLinkDifferentFeeds(t *testing.T) {
	store, mock := newMockStore(t)

	tenantID := uuid.New()
	feedA, feedB := uuid.New(), uuid.New()
	item := models.FeedItem{Title: "Shared", Link: "https://shared.example/story"}

	// The conflict target is (feed_id, link), so the same URL under two
	// feeds issues two independent writes.
	mock.ExpectExec("INSERT INTO articles").
		WithArgs(pgxmock.AnyArg(), tenantID, feedA, item.Title, item.Link, item.Description, item.Thumbnail, item.PublishedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO articles").
		WithArgs(pgxmock.AnyArg(), tenantID, feedB, item.Title, item.Link, item.Description, item.Thumbnail, item.PublishedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.UpsertArticle(context.Background(), tenantID, feedA, item))
	require.NoError(t, store.UpsertArticle(context.Background(), tenantID, feedB, item))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertArticleRejectsEmptyLink(t *testing.T) {
	store, mock := newMockStore(t)

	err := store.UpsertArticle(context.Background(), uuid.New(), uuid.New(), models.FeedItem{Title: "no link"})
	assert.ErrorIs(t, err, models.ErrMissingLink)

	// The row never reached the database
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertArticleFeedGone(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("INSERT INTO articles").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation})

	err := store.UpsertArticle(context.Background(), uuid.New(), uuid.New(), models.FeedItem{Link: "https://example.com/a"})
	assert.ErrorIs(t, err, models.ErrFeedNotFound)
}

func TestCreateFeedDuplicate(t *testing.T) {
	store, mock := newMockStore(t)

	fd := models.NewFeed(uuid.New(), "https://example.com/feed", "Feed", "")

	mock.ExpectExec("INSERT INTO feeds").
		WithArgs(fd.ID, fd.TenantID, fd.URL, fd.Title, fd.Description, fd.CreatedAt, fd.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})

	err := store.CreateFeed(context.Background(), fd)
	assert.ErrorIs(t, err, models.ErrDuplicateFeed)
}

func TestListAllFeeds(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	idA, idB := uuid.New(), uuid.New()
	tenantA, tenantB := uuid.New(), uuid.New()

	rows := pgxmock.NewRows([]string{"id", "tenant_id", "url", "title", "description", "created_at", "updated_at"}).
		AddRow(idA, tenantA, "https://a.example/feed", "A", "", now, now).
		AddRow(idB, tenantB, "https://b.example/feed", "B", "b desc", now, now)

	mock.ExpectQuery("FROM feeds").WillReturnRows(rows)

	feeds, err := store.ListAllFeeds(context.Background())
	require.NoError(t, err)
	require.Len(t, feeds, 2)
	assert.Equal(t, tenantA, feeds[0].TenantID)
	assert.Equal(t, "https://b.example/feed", feeds[1].URL)
}

func TestListArticlesByFeedPagination(t *testing.T) {
	store, mock := newMockStore(t)

	feedID := uuid.New()
	rows := pgxmock.NewRows([]string{"id", "tenant_id", "feed_id", "title", "link", "description", "thumbnail", "published_at", "read_at", "created_at", "updated_at"})

	// Page 3 at 20 per page starts at offset 40
	mock.ExpectQuery("FROM articles").
		WithArgs(feedID, 20, 40).
		WillReturnRows(rows)

	articles, err := store.ListArticlesByFeed(context.Background(), feedID, 3, 20)
	require.NoError(t, err)
	assert.Empty(t, articles)
	assert.NoError(t, mock.ExpectationsWereMet())
}
