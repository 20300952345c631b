//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"userload/internal/domain"
	"userload/internal/schema"
	"userload/internal/storage"
	_ "userload/internal/storage/postgres"
	"userload/internal/testinfra"
)

func day(s string) time.Time {
	t, _ := time.Parse(domain.DateLayout, s)
	return t
}

// TestRepository_CopyAndFallback runs against a throwaway container:
//
//	go test -tags integration ./internal/storage/postgres
func TestRepository_CopyAndFallback(t *testing.T) {
	ctx := context.Background()

	ctr, err := testinfra.StartPostgres(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	cfg := storage.Config{Kind: "postgres", DSN: ctr.ConnString, Table: "users"}
	require.NoError(t, schema.Migrate(ctx, cfg, nil))

	repo, err := storage.New(ctx, cfg)
	require.NoError(t, err)
	defer repo.Close()

	require.NoError(t, storage.CheckSchema(ctx, repo))
	require.NoError(t, repo.Truncate(ctx))

	recs := []domain.CleanRecord{
		{UserID: 1, Name: "Ann", Email: "ann@example.com", SignupDate: day("2023-01-15"), Domain: "example.com", Line: 2},
		{UserID: 2, Name: "Bob", Email: "bob@test.org", SignupDate: day("2023-01-16"), Domain: "test.org", Line: 3},
	}
	n, fails, err := repo.InsertRecords(ctx, recs)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	assert.Empty(t, fails)

	// user_id 2 collides; COPY fails and the batch is replayed row by row.
	more := []domain.CleanRecord{
		{UserID: 2, Name: "Dup", Email: "dup@test.org", SignupDate: day("2023-01-17"), Domain: "test.org", Line: 4},
		{UserID: 3, Name: "Cy", Email: "cy@test.org", SignupDate: day("2023-01-17"), Domain: "test.org", Line: 5},
	}
	n, fails, err = repo.InsertRecords(ctx, more)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	require.Len(t, fails, 1)
	assert.EqualValues(t, 2, fails[0].UserID)
	assert.ErrorIs(t, fails[0], storage.ErrDuplicateKey)

	rows, err := repo.Query(ctx, "SELECT COUNT(*) FROM users")
	require.NoError(t, err)
	require.Len(t, rows.Values, 1)
	assert.EqualValues(t, 3, rows.Values[0][0])

	affected, err := repo.Exec(ctx, "DELETE FROM users WHERE domain = 'example.com'")
	require.NoError(t, err)
	assert.EqualValues(t, 1, affected)
}
