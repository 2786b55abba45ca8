// internal/lobby/timers.go
package lobby

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// sleep waits for d or until ctx ends. It reports false on cancellation.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// runFormingTimer fires once, FormingTimeout after the first join. Admission is
// closed by then; the timer settles the lobby through settleAtDeadline.
func (m *Manager) runFormingTimer(ctx context.Context, lobbyID string) {
	if !sleep(ctx, m.rules.FormingTimeout) {
		return
	}
	if err := m.settleAtDeadline(ctx, lobbyID); err != nil && !isExpected(err) {
		m.log.WithError(err).WithField("lobby_id", lobbyID).Error("forming timer")
	}
}

// Rounds of auto-fill and start at the deadline, and the pause between them while a
// concurrent starter holds the start token.
const (
	formingSettleAttempts = 5
	formingSettlePause    = 50 * time.Millisecond
)

// settleAtDeadline auto-fills unready players, then starts the game or, short of
// MinPlayers, finishes it without a winner. A start refused because a player joined
// after the player list was read goes round again with a fresh list.
func (m *Manager) settleAtDeadline(ctx context.Context, lobbyID string) error {
	log := m.log.WithField("lobby_id", lobbyID)
	for attempt := 0; attempt < formingSettleAttempts; attempt++ {
		if attempt > 0 && !sleep(ctx, formingSettlePause) {
			return ctx.Err()
		}
		l, err := m.store.GetLobby(ctx, lobbyID)
		if err != nil {
			return err
		}
		if l.Status != StatusForming {
			return nil
		}

		players, err := m.store.ListPlayers(ctx, lobbyID)
		if err != nil {
			return fmt.Errorf("list players: %w", err)
		}
		if err := m.autoFill(ctx, lobbyID, players); err != nil {
			return fmt.Errorf("auto-fill: %w", err)
		}

		active, _ := countPlayers(players)
		if active < m.rules.MinPlayers {
			log.WithField("active_players", active).Info("forming deadline reached without enough players")
			_, _, err := m.finish(ctx, lobbyID, "", ReasonInsufficientPlayers, StatusForming)
			return err
		}
		log.WithField("active_players", active).Info("forming deadline reached")
		started, err := m.TransitionToActive(ctx, lobbyID)
		if err != nil || started {
			return err
		}
	}
	return fmt.Errorf("lobby %s still forming after %d start attempts", lobbyID, formingSettleAttempts)
}

// runNumberCaller draws every valid number once, one per CallInterval, while the
// lobby stays active. An exhausted pool finishes the game as a draw.
func (m *Manager) runNumberCaller(ctx context.Context, lobbyID string) {
	log := m.log.WithField("lobby_id", lobbyID)
	for _, n := range m.drawOrder(m.rules.MaxNumber) {
		drawn, err := m.store.DrawNumber(ctx, lobbyID, n)
		if err != nil {
			if !isExpected(err) {
				log.WithError(err).Error("number caller: draw")
			}
			return
		}
		if !drawn {
			return // finished by a claim, or expired
		}
		m.metrics.NumbersDrawn.Inc()
		log.WithField("number", n).Debug("number called")

		if !sleep(ctx, m.rules.CallInterval) {
			return
		}
	}

	_, finished, err := m.finish(ctx, lobbyID, "", ReasonPoolExhausted, StatusActive)
	if err != nil && !isExpected(err) {
		log.WithError(err).Error("number caller: finish lobby")
		return
	}
	if finished {
		log.Info("draw pool exhausted")
	}
}

// isExpected is true for conditions background processes treat as a normal exit:
// the lobby vanished or the process is shutting down.
func isExpected(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled)
}
