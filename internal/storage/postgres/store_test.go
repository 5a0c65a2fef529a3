package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/ulytau-insight/internal/news"
	"github.com/JakeFAU/ulytau-insight/internal/storage"
)

var _ news.SubscriberStore = (*Store)(nil)

func newMockStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	store, err := NewWithPool(mock, 0)
	require.NoError(t, err)
	return store, mock
}

func TestNewWithPoolValidates(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil, 0)
	require.Error(t, err)
}

func TestNewRequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := New(context.Background(), Config{})
	require.ErrorContains(t, err, "dsn")
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS subscribers").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAddAndRemoveSubscriber(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO subscribers").WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO subscribers").WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectExec(`DELETE FROM subscribers WHERE chat_id = \$1`).WithArgs(int64(7)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	ctx := context.Background()
	added, err := store.AddSubscriber(ctx, 7)
	require.NoError(t, err)
	require.True(t, added)
	added, err = store.AddSubscriber(ctx, 7)
	require.NoError(t, err)
	require.False(t, added)
	removed, err := store.RemoveSubscriber(ctx, 7)
	require.NoError(t, err)
	require.True(t, removed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscribers(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT chat_id FROM subscribers").
		WillReturnRows(pgxmock.NewRows([]string{"chat_id"}).AddRow(int64(1)).AddRow(int64(2)))

	subs, err := store.Subscribers(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2}, subs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscribersQueryError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT chat_id FROM subscribers").WillReturnError(errors.New("down"))

	_, err := store.Subscribers(context.Background())
	require.ErrorContains(t, err, "query subscribers")
}

func TestIsSeen(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectQuery("SELECT EXISTS").WithArgs("https://a").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	seen, err := store.IsSeen(context.Background(), "https://a")
	require.NoError(t, err)
	require.True(t, seen)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSeenTrimsOldest(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO seen_links").WithArgs("https://a").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`DELETE FROM seen_links WHERE id NOT IN \(SELECT id FROM seen_links ORDER BY id DESC LIMIT \$1\)`).
		WithArgs(storage.MaxSeenLinks).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("INSERT INTO seen_links").WithArgs("https://a").
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	ctx := context.Background()
	fresh, err := store.MarkSeen(ctx, "https://a")
	require.NoError(t, err)
	require.True(t, fresh)
	fresh, err = store.MarkSeen(ctx, "https://a")
	require.NoError(t, err)
	require.False(t, fresh)

	fresh, err = store.MarkSeen(ctx, "")
	require.NoError(t, err)
	require.False(t, fresh)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSeenTrimError(t *testing.T) {
	t.Parallel()

	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO seen_links").WithArgs("https://b").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM seen_links").WithArgs(storage.MaxSeenLinks).
		WillReturnError(errors.New("locked"))

	fresh, err := store.MarkSeen(context.Background(), "https://b")
	require.True(t, fresh)
	require.ErrorContains(t, err, "trim seen links")
	require.NoError(t, mock.ExpectationsWereMet())
}
