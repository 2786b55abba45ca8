// internal/lobby/admission.go
package lobby

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// StatusInProgress is reported to joiners while a game is running.
const StatusInProgress = "in_progress"

// JoinResult is the aggregate a joiner sees.
type JoinResult struct {
	LobbyID     string `json:"lobby_id"`
	Status      string `json:"status"`
	PlayerCount int    `json:"player_count"`
	Pot         int64  `json:"pot"`
}

// joinAttempts bounds how often a join follows the pointer after the lobby it read
// changed phase underneath it.
const joinAttempts = 3

// JoinLobby admits playerID into the current lobby, creating it if needed. While a
// game is active or about to start the caller gets an in-progress answer rather than
// an error.
func (m *Manager) JoinLobby(ctx context.Context, playerID string) (JoinResult, error) {
	l, inProgress, err := m.GetOrCreateCurrentLobby(ctx)
	if err != nil {
		return JoinResult{}, err
	}
	return m.joinCurrent(ctx, playerID, l, inProgress)
}

// joinCurrent admits playerID into l, last read as the current lobby. A lobby that
// started meanwhile yields an in-progress answer; one that finished or expired sends
// the join back through the pointer, which then names a fresh lobby.
func (m *Manager) joinCurrent(ctx context.Context, playerID string, l *Lobby, inProgress bool) (JoinResult, error) {
	for attempt := 1; ; attempt++ {
		if inProgress {
			return JoinResult{LobbyID: l.ID, Status: StatusInProgress}, nil
		}
		res, err := m.join(ctx, l.ID, playerID)
		switch {
		case err == nil:
			return res, nil
		case errors.Is(err, errAdmissionClosed):
			return JoinResult{LobbyID: l.ID, Status: StatusInProgress}, nil
		case errors.Is(err, ErrInvalidState), errors.Is(err, ErrNotFound):
			if attempt == joinAttempts {
				return JoinResult{}, err
			}
		default:
			return JoinResult{}, err
		}
		m.log.WithFields(logrus.Fields{"lobby_id": l.ID, "player_id": playerID}).Debug("lobby changed phase during join, re-reading pointer")
		if l, inProgress, err = m.GetOrCreateCurrentLobby(ctx); err != nil {
			return JoinResult{}, err
		}
	}
}

// Join admits playerID into a forming lobby and credits the buy-in. Re-joining returns
// the current aggregate without side effects. The first admission ever starts the
// forming timer. New players are refused with InvalidState once the forming deadline
// has passed.
func (m *Manager) Join(ctx context.Context, lobbyID, playerID string) (JoinResult, error) {
	res, err := m.join(ctx, lobbyID, playerID)
	if errors.Is(err, errAdmissionClosed) {
		return JoinResult{}, newError(KindInvalidState, "lobby is about to start")
	}
	return res, err
}

func (m *Manager) join(ctx context.Context, lobbyID, playerID string) (JoinResult, error) {
	adm, err := m.store.AdmitPlayer(ctx, lobbyID, playerID, m.rules, m.now())
	if err != nil {
		return JoinResult{}, err
	}

	log := m.log.WithFields(logrus.Fields{"lobby_id": lobbyID, "player_id": playerID})
	if adm.created {
		m.metrics.Joins.Inc()
		m.metrics.PotCredited.Add(float64(m.rules.BuyInAmount))
		log.WithFields(logrus.Fields{"player_count": adm.playerCount, "pot": adm.pot}).Info("player joined")
	} else {
		log.Debug("player re-joined")
	}
	if adm.firstJoin {
		m.spawn("forming_timer", lobbyID, m.runFormingTimer)
	}

	return JoinResult{
		LobbyID:     lobbyID,
		Status:      string(StatusForming),
		PlayerCount: adm.playerCount,
		Pot:         adm.pot,
	}, nil
}
