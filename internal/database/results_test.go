package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jason-s-yu/gridbingo/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Requires a disposable Postgres; set TEST_DATABASE_URL to run.
func TestInsertResults(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := Connect(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	repo := NewResultsRepo(pool)
	require.NoError(t, repo.EnsureSchema(ctx))

	id := "lobby_test" + time.Now().Format("150405.000000")
	batch := []cache.GameResult{{
		LobbyID:       id,
		Winner:        "alice",
		Pot:           7000,
		Reason:        "claim",
		PlayerCount:   2,
		CalledNumbers: []int{1, 2, 3},
		StartedAt:     time.Now().Add(-time.Minute),
		FinishedAt:    time.Now(),
	}}
	require.NoError(t, repo.InsertResults(ctx, batch))
	require.NoError(t, repo.InsertResults(ctx, batch), "replay is a no-op")

	var winner string
	var pot int64
	require.NoError(t, pool.QueryRow(ctx, `SELECT winner, pot FROM lobby_results WHERE lobby_id = $1`, id).Scan(&winner, &pot))
	assert.Equal(t, "alice", winner)
	assert.Equal(t, int64(7000), pot)

	_, err = pool.Exec(ctx, `DELETE FROM lobby_results WHERE lobby_id = $1`, id)
	require.NoError(t, err)
}

func TestNullable(t *testing.T) {
	assert.Nil(t, nullable(""))
	require.NotNil(t, nullable("bob"))
	assert.Equal(t, "bob", *nullable("bob"))
	assert.Nil(t, nullableTime(time.Time{}))
}
