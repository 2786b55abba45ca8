// internal/lobby/lobby_manager.go
package lobby

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gridbingo/internal/cache"
	"github.com/jason-s-yu/gridbingo/internal/lock"
	"github.com/jason-s-yu/gridbingo/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// ResultPublisher receives a record for every finished lobby.
type ResultPublisher interface {
	PublishResult(ctx context.Context, result cache.GameResult) error
}

// Manager is the lobby engine. It owns no authoritative state: the LobbyStore is the
// single source of truth and the background processes it spawns coordinate only
// through it, re-checking the lobby phase whenever they wake.
type Manager struct {
	store   *LobbyStore
	locker  lock.Locker
	rules   Rules
	log     logrus.FieldLogger
	metrics *metrics.Collector
	results ResultPublisher

	now       func() time.Time
	drawOrder func(maxNumber int) []int

	// bg is the root of every background process; request contexts end with the request.
	bg     context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Config bundles the Manager's collaborators. Results may be nil. A nil Metrics gets
// collectors on a private registry that nothing scrapes.
type Config struct {
	Store   *LobbyStore
	Locker  lock.Locker
	Rules   Rules
	Logger  logrus.FieldLogger
	Metrics *metrics.Collector
	Results ResultPublisher
}

// NewManager builds an engine. Call Close to stop its background processes.
func NewManager(cfg Config) *Manager {
	col := cfg.Metrics
	if col == nil {
		col = metrics.New(prometheus.NewRegistry())
	}
	bg, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:     cfg.Store,
		locker:    cfg.Locker,
		rules:     cfg.Rules,
		log:       cfg.Logger,
		metrics:   col,
		results:   cfg.Results,
		now:       time.Now,
		drawOrder: shuffledPool,
		bg:        bg,
		cancel:    cancel,
	}
}

// Rules returns the constants this engine runs with.
func (m *Manager) Rules() Rules { return m.rules }

// Ping reports whether the backing store is reachable.
func (m *Manager) Ping(ctx context.Context) error { return m.store.Ping(ctx) }

// Close stops the background processes and waits for them to return.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

func (m *Manager) spawn(name, lobbyID string, fn func(ctx context.Context, lobbyID string)) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		log := m.log.WithFields(logrus.Fields{"lobby_id": lobbyID, "process": name})
		log.Debug("background process started")
		fn(m.bg, lobbyID)
		log.Debug("background process exited")
	}()
}

func newLobbyID() string {
	id := uuid.New()
	return "lobby_" + hex.EncodeToString(id[:4])
}

// GetOrCreateCurrentLobby returns the current lobby, creating one when the pointer is
// absent or names a finished or expired lobby. inProgress is true for an active lobby.
func (m *Manager) GetOrCreateCurrentLobby(ctx context.Context) (*Lobby, bool, error) {
	for attempt := 0; attempt < 3; attempt++ {
		id, err := m.store.CurrentLobbyID(ctx)
		if err != nil {
			return nil, false, err
		}
		if id != "" {
			l, err := m.store.GetLobby(ctx, id)
			switch {
			case err == nil && l.Status == StatusForming:
				return l, false, nil
			case err == nil && l.Status == StatusActive:
				return l, true, nil
			case err != nil && !errors.Is(err, ErrNotFound):
				return nil, false, err
			}
			// Stale pointer: finished or expired lobby.
			if err := m.store.ReleasePointer(ctx, id); err != nil {
				return nil, false, err
			}
		}

		l, created, err := m.createLobby(ctx)
		if err != nil {
			return nil, false, err
		}
		if created {
			return l, false, nil
		}
		// Another caller won the pointer; loop to read its lobby.
	}
	return nil, false, fmt.Errorf("could not settle the current lobby pointer")
}

func (m *Manager) createLobby(ctx context.Context) (*Lobby, bool, error) {
	l := &Lobby{
		ID:          newLobbyID(),
		Status:      StatusForming,
		BuyInAmount: m.rules.BuyInAmount,
		CreatedAt:   m.now(),
	}
	if err := m.store.CreateLobby(ctx, l); err != nil {
		return nil, false, err
	}
	ok, err := m.store.ClaimPointer(ctx, l.ID)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		if err := m.store.DeleteLobby(ctx, l.ID); err != nil {
			m.log.WithError(err).WithField("lobby_id", l.ID).Warn("failed to drop losing lobby")
		}
		return nil, false, nil
	}
	m.metrics.LobbiesCreated.Inc()
	m.log.WithField("lobby_id", l.ID).Info("lobby created")
	return l, true, nil
}

// TransitionToActive is the only path from forming to active. It is safe to call from
// the readiness check and the forming timer at once: only the caller holding the start
// token that still observes forming performs it. A lobby with an active player lacking
// a grid stays forming. It reports whether this call started the game.
func (m *Manager) TransitionToActive(ctx context.Context, lobbyID string) (bool, error) {
	token, ok, err := m.locker.TryLock(ctx, startLockKey(lobbyID))
	if err != nil {
		return false, fmt.Errorf("acquire start token for %s: %w", lobbyID, err)
	}
	if !ok {
		return false, nil
	}
	defer func() {
		if err := m.locker.Unlock(context.WithoutCancel(ctx), token); err != nil {
			m.log.WithError(err).WithField("lobby_id", lobbyID).Warn("failed to release start token")
		}
	}()

	started, err := m.store.Activate(ctx, lobbyID, m.now())
	if errors.Is(err, errPlayersNotReady) {
		m.log.WithField("lobby_id", lobbyID).Debug("start deferred: a player has no grid yet")
		return false, nil
	}
	if err != nil || !started {
		return false, err
	}

	m.metrics.GamesStarted.Inc()
	m.log.WithField("lobby_id", lobbyID).Info("game started")
	m.spawn("number_caller", lobbyID, m.runNumberCaller)
	return true, nil
}

// TransitionToFinished ends the lobby once. winner may be empty. Later calls are no-ops
// and report false, so the winner is set at most once.
func (m *Manager) TransitionToFinished(ctx context.Context, lobbyID, winner string, reason FinishReason) (int64, bool, error) {
	return m.finish(ctx, lobbyID, winner, reason, "")
}

// finish is TransitionToFinished restricted to lobbies still in phase from, so a stale
// background process can never finish a game that moved on without it.
func (m *Manager) finish(ctx context.Context, lobbyID, winner string, reason FinishReason, from Status) (int64, bool, error) {
	pot, finished, err := m.store.Finish(ctx, lobbyID, winner, m.now(), from)
	if err != nil || !finished {
		return pot, false, err
	}

	m.metrics.GamesFinished.WithLabelValues(string(reason)).Inc()
	m.log.WithFields(logrus.Fields{
		"lobby_id": lobbyID,
		"winner":   winner,
		"reason":   reason,
		"pot":      pot,
	}).Info("game finished")
	m.publishResult(ctx, lobbyID, reason)
	return pot, true, nil
}

func (m *Manager) publishResult(ctx context.Context, lobbyID string, reason FinishReason) {
	if m.results == nil {
		return
	}
	log := m.log.WithField("lobby_id", lobbyID)
	l, err := m.store.GetLobby(ctx, lobbyID)
	if err != nil {
		log.WithError(err).Error("load finished lobby for results")
		return
	}
	players, err := m.store.ListPlayers(ctx, lobbyID)
	if err != nil {
		log.WithError(err).Error("load players for results")
		return
	}
	calls, err := m.store.CallHistory(ctx, lobbyID)
	if err != nil {
		log.WithError(err).Error("load call history for results")
		return
	}
	err = m.results.PublishResult(ctx, cache.GameResult{
		LobbyID:       l.ID,
		Winner:        l.Winner,
		Pot:           l.Pot,
		Reason:        string(reason),
		PlayerCount:   len(players),
		CalledNumbers: calls,
		StartedAt:     l.StartedAt,
		FinishedAt:    l.FinishedAt,
	})
	if err != nil {
		log.WithError(err).Error("publish game result")
	}
}
