// internal/lobby/rules.go
package lobby

import "time"

// GridSize is the side length of a player's grid.
const GridSize = 3

// Rules are the fixed game constants. Only tests construct anything but DefaultRules.
type Rules struct {
	MaxPlayers     int
	MinPlayers     int
	FormingTimeout time.Duration
	CallInterval   time.Duration
	LobbyTTL       time.Duration
	StartLockTTL   time.Duration
	MaxNumber      int
	BuyInAmount    int64
}

// DefaultRules returns the production constants.
func DefaultRules() Rules {
	return Rules{
		MaxPlayers:     10,
		MinPlayers:     2,
		FormingTimeout: 120 * time.Second,
		CallInterval:   3 * time.Second,
		LobbyTTL:       600 * time.Second,
		StartLockTTL:   30 * time.Second,
		MaxNumber:      20,
		BuyInAmount:    3500,
	}
}
