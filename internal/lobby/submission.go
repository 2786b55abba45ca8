// internal/lobby/submission.go
package lobby

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// SubmitResult answers a grid submission.
type SubmitResult struct {
	Success    bool   `json:"success"`
	ReadyCount int    `json:"ready_count"`
	Message    string `json:"message"`
}

// SubmitGrid validates and stores a player's grid, marks them ready, and starts the
// game once at least MinPlayers active players are all ready.
func (m *Manager) SubmitGrid(ctx context.Context, lobbyID, playerID string, grid Grid) (SubmitResult, error) {
	l, err := m.store.GetLobby(ctx, lobbyID)
	if err != nil {
		return SubmitResult{}, err
	}
	if l.Status != StatusForming {
		return SubmitResult{}, newError(KindInvalidState, "cannot submit grid in current game state")
	}
	if _, err := m.store.GetPlayer(ctx, lobbyID, playerID); err != nil {
		return SubmitResult{}, err
	}
	if err := ValidateGrid(grid, m.rules.MaxNumber); err != nil {
		return SubmitResult{}, err
	}
	if err := m.store.StoreGrid(ctx, lobbyID, playerID, grid); err != nil {
		return SubmitResult{}, err
	}
	m.log.WithFields(logrus.Fields{"lobby_id": lobbyID, "player_id": playerID}).Info("grid submitted")

	players, err := m.store.ListPlayers(ctx, lobbyID)
	if err != nil {
		return SubmitResult{}, err
	}
	active, ready := countPlayers(players)

	started := false
	if active >= m.rules.MinPlayers && ready == active {
		if started, err = m.TransitionToActive(ctx, lobbyID); err != nil {
			return SubmitResult{}, err
		}
	}

	msg := "Grid submitted. Waiting for other players."
	if started {
		msg = "Grid submitted. All players ready, game starting."
	}
	return SubmitResult{Success: true, ReadyCount: ready, Message: msg}, nil
}

// autoFill gives every active, unready player a random grid, exactly as if they had
// submitted it. A player who submitted concurrently keeps their own grid; a lobby that
// left forming meanwhile is caught by the caller's phase-guarded transitions.
func (m *Manager) autoFill(ctx context.Context, lobbyID string, players []*Player) error {
	for _, p := range players {
		if !p.Active || p.Ready {
			continue
		}
		grid := RandomGrid(m.rules.MaxNumber)
		err := m.store.StoreGrid(ctx, lobbyID, p.ID, grid)
		if errors.Is(err, ErrInvalidState) {
			continue
		}
		if err != nil {
			return err
		}
		p.Numbers, p.Grid, p.Ready = grid.Flatten(), grid, true
		m.log.WithFields(logrus.Fields{"lobby_id": lobbyID, "player_id": p.ID}).Info("grid auto-filled")
	}
	return nil
}
