// internal/lobby/claim.go
package lobby

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ClaimResult answers a win claim. A rejected claim always means the claimant was kicked.
type ClaimResult struct {
	Valid   bool    `json:"valid"`
	Winner  bool    `json:"winner,omitempty"`
	Kicked  bool    `json:"kicked,omitempty"`
	Pot     int64   `json:"pot,omitempty"`
	Pattern Pattern `json:"pattern,omitempty"`
	Message string  `json:"message"`
}

// VerifyClaim checks that highlighted forms a winning line on the claimant's own grid
// and that every highlighted number was drawn before this call read the history.
// A valid claim wins the pot; anything else kicks the claimant, and kicking the last
// active player finishes the game without a winner.
func (m *Manager) VerifyClaim(ctx context.Context, lobbyID, playerID string, highlighted []int) (ClaimResult, error) {
	l, err := m.store.GetLobby(ctx, lobbyID)
	if err != nil {
		return ClaimResult{}, err
	}
	if l.Status != StatusActive {
		return ClaimResult{}, newError(KindInvalidState, "game is not active")
	}
	p, err := m.store.GetPlayer(ctx, lobbyID, playerID)
	if err != nil {
		return ClaimResult{}, err
	}
	if !p.Active {
		return ClaimResult{}, ErrPlayerInactive
	}

	calls, err := m.store.CallHistory(ctx, lobbyID)
	if err != nil {
		return ClaimResult{}, err
	}
	called := make(map[int]bool, len(calls))
	for _, n := range calls {
		called[n] = true
	}
	marked := make(map[int]bool, len(highlighted))
	allCalled := true
	for _, n := range highlighted {
		marked[n] = true
		if !called[n] {
			allCalled = false
		}
	}

	log := m.log.WithFields(logrus.Fields{"lobby_id": lobbyID, "player_id": playerID})
	pattern, matched := WinningPattern(p.Grid, marked)
	if matched && allCalled {
		pot, won, err := m.finish(ctx, lobbyID, playerID, ReasonClaim, StatusActive)
		if err != nil {
			return ClaimResult{}, err
		}
		if !won {
			// Someone else finished the game between our read and the transition.
			return ClaimResult{}, newError(KindInvalidState, "game is not active")
		}
		m.metrics.Claims.WithLabelValues("won").Inc()
		log.WithFields(logrus.Fields{"pattern": pattern, "pot": pot}).Info("claim accepted")
		return ClaimResult{
			Valid:   true,
			Winner:  true,
			Pot:     pot,
			Pattern: pattern,
			Message: fmt.Sprintf("YOU WON! +%d coins", pot),
		}, nil
	}

	if _, err := m.store.DeactivatePlayer(ctx, lobbyID, playerID); err != nil {
		return ClaimResult{}, err
	}
	m.metrics.Claims.WithLabelValues("kicked").Inc()
	log.WithFields(logrus.Fields{"matched_line": matched, "all_called": allCalled}).Info("invalid claim, player kicked")

	players, err := m.store.ListPlayers(ctx, lobbyID)
	if err != nil {
		return ClaimResult{}, err
	}
	if active, _ := countPlayers(players); active == 0 {
		if _, _, err := m.finish(ctx, lobbyID, "", ReasonAllKicked, StatusActive); err != nil {
			return ClaimResult{}, err
		}
	}
	return ClaimResult{
		Valid:   false,
		Kicked:  true,
		Message: "Invalid claim. You've been removed from the game.",
	}, nil
}
