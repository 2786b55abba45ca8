package lobby

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jason-s-yu/gridbingo/internal/cache"
	"github.com/jason-s-yu/gridbingo/internal/lock"
	"github.com/jason-s-yu/gridbingo/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	m       *Manager
	store   *LobbyStore
	mr      *miniredis.Miniredis
	metrics *metrics.Collector
}

// slowRules keeps both background processes asleep unless a test shortens them.
func slowRules() Rules {
	r := DefaultRules()
	r.FormingTimeout = time.Hour
	r.CallInterval = time.Hour
	return r
}

func newTestEnv(t *testing.T, rules Rules) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	store := NewLobbyStore(rdb, "global_lobby", rules.LobbyTTL)
	col := metrics.New(prometheus.NewRegistry())
	m := NewManager(Config{
		Store:   store,
		Locker:  lock.NewTokenLock(rdb, rules.StartLockTTL),
		Rules:   rules,
		Logger:  logger,
		Metrics: col,
		Results: cache.NewResultQueue(rdb, ""),
	})
	m.drawOrder = sequentialPool

	t.Cleanup(func() {
		m.Close()
		_ = rdb.Close()
	})
	return &testEnv{m: m, store: store, mr: mr, metrics: col}
}

func sequentialPool(maxNumber int) []int {
	pool := make([]int, maxNumber)
	for i := range pool {
		pool[i] = i + 1
	}
	return pool
}

var (
	gridA = Grid{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}
	gridB = Grid{{10, 11, 12}, {13, 14, 15}, {16, 17, 18}}
)

// startGame joins alice and bob and submits both grids, which activates the lobby.
func (e *testEnv) startGame(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	res, err := e.m.JoinLobby(ctx, "alice")
	require.NoError(t, err)
	_, err = e.m.JoinLobby(ctx, "bob")
	require.NoError(t, err)

	_, err = e.m.SubmitGrid(ctx, res.LobbyID, "alice", gridA)
	require.NoError(t, err)
	_, err = e.m.SubmitGrid(ctx, res.LobbyID, "bob", gridB)
	require.NoError(t, err)
	return res.LobbyID
}

func (e *testEnv) lobby(t *testing.T, id string) *Lobby {
	t.Helper()
	l, err := e.store.GetLobby(context.Background(), id)
	require.NoError(t, err)
	return l
}

func (e *testEnv) calls(t *testing.T, id string) []int {
	t.Helper()
	calls, err := e.store.CallHistory(context.Background(), id)
	require.NoError(t, err)
	return calls
}

func (e *testEnv) waitStatus(t *testing.T, id string, want Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		l, err := e.store.GetLobby(context.Background(), id)
		return err == nil && l.Status == want
	}, 2*time.Second, 5*time.Millisecond, "lobby %s never reached %s", id, want)
}

func (e *testEnv) results(t *testing.T) []cache.GameResult {
	t.Helper()
	if !e.mr.Exists(cache.DefaultQueueName) {
		return nil
	}
	items, err := e.mr.List(cache.DefaultQueueName)
	require.NoError(t, err)
	out := make([]cache.GameResult, len(items))
	for i, item := range items {
		require.NoError(t, json.Unmarshal([]byte(item), &out[i]))
	}
	return out
}
