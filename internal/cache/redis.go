// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list finished-game results are pushed onto.
const DefaultQueueName = "lobby_results"

// GameResult is the record the historian archives once a lobby finishes.
type GameResult struct {
	LobbyID       string    `json:"lobby_id"`
	Winner        string    `json:"winner,omitempty"`
	Pot           int64     `json:"pot"`
	Reason        string    `json:"reason"`
	PlayerCount   int       `json:"player_count"`
	CalledNumbers []int     `json:"called_numbers"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Connect opens a Redis client and checks it with a PING.
func Connect(addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// ResultQueue publishes GameResult records onto a Redis list.
type ResultQueue struct {
	rdb  *redis.Client
	name string
}

// NewResultQueue returns a queue writer. An empty name falls back to DefaultQueueName.
func NewResultQueue(rdb *redis.Client, name string) *ResultQueue {
	if name == "" {
		name = DefaultQueueName
	}
	return &ResultQueue{rdb: rdb, name: name}
}

// Name is the underlying list key.
func (q *ResultQueue) Name() string { return q.name }

// PublishResult serializes the record to JSON and RPushes it.
func (q *ResultQueue) PublishResult(ctx context.Context, result GameResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal GameResult: %w", err)
	}
	if err := q.rdb.RPush(ctx, q.name, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", q.name, err)
	}
	return nil
}
