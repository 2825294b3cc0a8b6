package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/izposoja/internal/config"
	"github.com/erazemk/izposoja/internal/db"
	"github.com/erazemk/izposoja/internal/lending"
	"github.com/erazemk/izposoja/internal/model"
	"github.com/erazemk/izposoja/internal/store"
)

var seedStart = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// seedDatabase creates a database where borrower 7 holds three loans and
// borrower 8 holds one.
func seedDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "izposoja.sqlite3")
	ctx := context.Background()

	database, err := db.Open(path)
	require.NoError(t, err)
	defer database.Close()
	require.NoError(t, db.Migrate(database))

	books := map[string]int64{}
	for _, b := range []struct {
		title  string
		copies int
	}{{"Dune", 2}, {"Emma", 1}, {"Solaris", 1}} {
		book, err := store.CreateBook(ctx, database, b.title, "")
		require.NoError(t, err)
		for i := 1; i <= b.copies; i++ {
			_, err := store.CreateCopy(ctx, database, book.ID, i)
			require.NoError(t, err)
		}
		books[b.title] = book.ID
	}

	now := seedStart
	svc := lending.NewService(database, config.Default(),
		lending.WithClock(lending.ClockFunc(func() time.Time { return now })))

	borrow := func(user, title string) {
		_, err := svc.Borrow(ctx, user, books[title])
		require.NoError(t, err)
	}

	borrow("7", "Dune")
	borrow("8", "Dune")
	now = seedStart.Add(2 * 24 * time.Hour)
	borrow("7", "Emma")
	now = seedStart.Add(10 * 24 * time.Hour)
	borrow("7", "Solaris")

	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out, errOut bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := newRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "izposoja", cmd.Use)

	for _, name := range []string{"serve", "init", "loans", "notices"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "d", dbFlag.Shorthand)
	assert.Equal(t, defaultDBPath, dbFlag.DefValue)
}

func TestNoticesGolden(t *testing.T) {
	path := seedDatabase(t)

	out, err := execute(t, "notices", "--db", path, "--borrower", "7", "--at", "2026-03-17T09:00:00Z")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "notices", []byte(out))
}

func TestLoansGolden(t *testing.T) {
	path := seedDatabase(t)

	out, err := execute(t, "loans", "--db", path, "--borrower", "7")
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "loans", []byte(out))
}

func TestNoticesJSON(t *testing.T) {
	path := seedDatabase(t)

	out, err := execute(t, "notices", "--db", path, "--borrower", "8",
		"--at", "2026-03-17T09:00:00Z", "--format", "json")
	require.NoError(t, err)

	var notices []model.Notification
	require.NoError(t, json.Unmarshal([]byte(out), &notices))
	require.Len(t, notices, 1)
	assert.True(t, notices[0].Overdue)
	assert.Equal(t, 1, notices[0].DaysDelta)
	assert.Equal(t, int64(2), notices[0].CopyID)
}

func TestNoticesEmpty(t *testing.T) {
	path := seedDatabase(t)

	out, err := execute(t, "notices", "--db", path, "--borrower", "9")
	require.NoError(t, err)
	assert.Equal(t, "no notifications\n", out)
}

func TestReportRejectsBadInput(t *testing.T) {
	path := seedDatabase(t)

	_, err := execute(t, "notices", "--db", path, "--borrower", "7", "--at", "yesterday")
	require.Error(t, err)

	_, err = execute(t, "loans", "--db", path, "--borrower", "7", "--format", "xml")
	require.Error(t, err)

	_, err = execute(t, "loans", "--db", filepath.Join(t.TempDir(), "missing.sqlite3"), "--borrower", "7")
	require.ErrorContains(t, err, "does not exist")
}

func TestInitCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "izposoja.sqlite3")

	out, err := execute(t, "init", "--db", path, "--user", "root")
	require.NoError(t, err)
	assert.Contains(t, out, "Database created: "+path)
	assert.Contains(t, out, "Username: root")

	_, err = execute(t, "init", "--db", path)
	require.ErrorContains(t, err, "already exists")
}

func TestGeneratePassword(t *testing.T) {
	a, err := generatePassword(16)
	require.NoError(t, err)
	b, err := generatePassword(16)
	require.NoError(t, err)

	assert.Len(t, a, 16)
	assert.NotEqual(t, a, b)
}
