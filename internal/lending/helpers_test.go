package lending

import (
	"bytes"
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/config"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

var epoch = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{now: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingCart struct {
	mu    sync.Mutex
	calls []cartRemoval
}

func (r *recordingCart) Notify(userID string, bookID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, cartRemoval{userID: userID, bookID: bookID})
}

func (r *recordingCart) removals() []cartRemoval {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]cartRemoval(nil), r.calls...)
}

// newFileDB opens a database file so several connections can race.
func newFileDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "izposoja.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, db.Migrate(database))
	return database
}

func newTestService(t *testing.T, database *sqlx.DB, opts ...Option) (*Service, *fakeClock) {
	t.Helper()

	clock := newFakeClock(epoch)
	opts = append([]Option{WithClock(clock), WithConflictRetry(5, time.Millisecond)}, opts...)
	return NewService(database, config.Default(), opts...), clock
}

// seedBook creates a book with n available copies numbered from 1.
func seedBook(t *testing.T, database *sqlx.DB, title string, n int) (*model.Book, []*model.Copy) {
	t.Helper()
	ctx := context.Background()

	book, err := store.CreateBook(ctx, database, title, "")
	require.NoError(t, err)

	copies := make([]*model.Copy, 0, n)
	for i := 1; i <= n; i++ {
		c, err := store.CreateCopy(ctx, database, book.ID, i)
		require.NoError(t, err)
		copies = append(copies, c)
	}
	return book, copies
}

func copyStatus(t *testing.T, database *sqlx.DB, id int64) model.CopyStatus {
	t.Helper()

	c, err := store.GetCopy(context.Background(), database, id)
	require.NoError(t, err)
	require.NotNil(t, c)
	return c.Status
}

// captureLogs routes the default logger into a buffer for the rest of the test.
func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}
