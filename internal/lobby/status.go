// internal/lobby/status.go
package lobby

import (
	"context"
	"time"
)

// PlayerView is one roster entry of a status snapshot.
type PlayerView struct {
	PlayerID string    `json:"player_id"`
	Numbers  []int     `json:"numbers"`
	Grid     Grid      `json:"grid"`
	Ready    bool      `json:"ready"`
	Active   bool      `json:"active"`
	JoinedAt time.Time `json:"joined_at"`
}

// Snapshot is the polling view of a lobby.
type Snapshot struct {
	LobbyID         string                `json:"lobby_id"`
	Status          Status                `json:"status"`
	BuyInAmount     int64                 `json:"buy_in_amount"`
	Pot             int64                 `json:"pot"`
	PlayerCount     int                   `json:"player_count"`
	ReadyCount      int                   `json:"ready_count"`
	ActiveCount     int                   `json:"active_count"`
	Players         map[string]PlayerView `json:"players"`
	CreatedAt       time.Time             `json:"created_at"`
	FormingDeadline *time.Time            `json:"forming_deadline"`
	StartedAt       *time.Time            `json:"started_at"`
	FinishedAt      *time.Time            `json:"finished_at"`
	LatestNumber    *int                  `json:"latest_number"`
	PreviousNumber  *int                  `json:"previous_number"`
	CalledNumbers   []int                 `json:"called_numbers"`
	Winner          *string               `json:"winner"`
	TimeElapsed     int                   `json:"time_elapsed"`
}

// GetStatus assembles a read-only snapshot. Fields come from separate reads, so they
// may be a draw apart; that is fine for polling.
func (m *Manager) GetStatus(ctx context.Context, lobbyID string) (*Snapshot, error) {
	l, err := m.store.GetLobby(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	players, err := m.store.ListPlayers(ctx, lobbyID)
	if err != nil {
		return nil, err
	}
	calls, err := m.store.CallHistory(ctx, lobbyID)
	if err != nil {
		return nil, err
	}

	active, ready := countPlayers(players)
	snap := &Snapshot{
		LobbyID:         l.ID,
		Status:          l.Status,
		BuyInAmount:     l.BuyInAmount,
		Pot:             l.Pot,
		PlayerCount:     len(players),
		ReadyCount:      ready,
		ActiveCount:     active,
		Players:         make(map[string]PlayerView, len(players)),
		CreatedAt:       l.CreatedAt,
		FormingDeadline: optionalTime(l.FormingDeadline),
		StartedAt:       optionalTime(l.StartedAt),
		FinishedAt:      optionalTime(l.FinishedAt),
		LatestNumber:    optionalNumber(l.LatestNumber),
		PreviousNumber:  optionalNumber(l.PreviousNumber),
		CalledNumbers:   calls,
	}
	for _, p := range players {
		snap.Players[p.ID] = PlayerView{
			PlayerID: p.ID,
			Numbers:  p.Numbers,
			Grid:     p.Grid,
			Ready:    p.Ready,
			Active:   p.Active,
			JoinedAt: p.JoinedAt,
		}
	}
	if l.Winner != "" {
		w := l.Winner
		snap.Winner = &w
	}
	if !l.StartedAt.IsZero() {
		snap.TimeElapsed = int(m.now().Sub(l.StartedAt).Seconds())
	}
	return snap, nil
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func optionalNumber(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
