// internal/lobby/lobby.go
package lobby

import "time"

// Status is a lobby phase. It only ever moves forward: forming, active, finished.
type Status string

const (
	StatusForming  Status = "forming"
	StatusActive   Status = "active"
	StatusFinished Status = "finished"
)

// Lobby is one game session as stored in Redis.
type Lobby struct {
	ID              string
	Status          Status
	BuyInAmount     int64
	Pot             int64
	Winner          string // empty when none
	CreatedAt       time.Time
	FormingDeadline time.Time // zero until the first join
	StartedAt       time.Time
	FinishedAt      time.Time
	LatestNumber    int // 0 when nothing drawn yet
	PreviousNumber  int
}

// Player is a participant of exactly one lobby.
type Player struct {
	ID       string
	Numbers  []int
	Grid     Grid
	Ready    bool
	Active   bool
	JoinedAt time.Time
}

// FinishReason records why a lobby finished.
type FinishReason string

const (
	ReasonClaim               FinishReason = "claim"
	ReasonAllKicked           FinishReason = "all_kicked"
	ReasonPoolExhausted       FinishReason = "pool_exhausted"
	ReasonInsufficientPlayers FinishReason = "insufficient_players"
)

func countPlayers(players []*Player) (active, ready int) {
	for _, p := range players {
		if !p.Active {
			continue
		}
		active++
		if p.Ready {
			ready++
		}
	}
	return active, ready
}
