// internal/database/results.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/gridbingo/internal/cache"
)

const schema = `
CREATE TABLE IF NOT EXISTS lobby_results (
	lobby_id       TEXT PRIMARY KEY,
	winner         TEXT,
	pot            BIGINT NOT NULL,
	reason         TEXT NOT NULL,
	player_count   INT NOT NULL,
	called_numbers INT[] NOT NULL,
	started_at     TIMESTAMPTZ,
	finished_at    TIMESTAMPTZ NOT NULL,
	archived_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// ResultsRepo archives finished lobbies.
type ResultsRepo struct {
	pool *pgxpool.Pool
}

func NewResultsRepo(pool *pgxpool.Pool) *ResultsRepo {
	return &ResultsRepo{pool: pool}
}

// EnsureSchema creates the results table if it does not exist.
func (r *ResultsRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create lobby_results: %w", err)
	}
	return nil
}

// InsertResults writes a batch in one transaction. A lobby already archived is skipped,
// so a requeued batch can be replayed.
func (r *ResultsRepo) InsertResults(ctx context.Context, results []cache.GameResult) error {
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO lobby_results (
				lobby_id, winner, pot, reason, player_count, called_numbers, started_at, finished_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (lobby_id) DO NOTHING
		`
		for _, res := range results {
			calls := res.CalledNumbers
			if calls == nil {
				calls = []int{}
			}
			if _, err := tx.Exec(ctx, q,
				res.LobbyID, nullable(res.Winner), res.Pot, res.Reason, res.PlayerCount,
				calls, nullableTime(res.StartedAt), res.FinishedAt,
			); err != nil {
				return fmt.Errorf("insert result %s: %w", res.LobbyID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx insert lobby results: %w", err)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
