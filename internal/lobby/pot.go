// internal/lobby/pot.go
package lobby

import (
	"context"

	"github.com/sirupsen/logrus"
)

// CreditPot adds an externally paid amount to a lobby's pot. It is purely additive and
// refuses lobbies that are gone or already finished.
func (m *Manager) CreditPot(ctx context.Context, lobbyID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, newError(KindValidation, "credit amount must be positive")
	}
	pot, err := m.store.IncrPot(ctx, lobbyID, amount)
	if err != nil {
		return 0, err
	}
	m.metrics.PotCredited.Add(float64(amount))
	m.log.WithFields(logrus.Fields{"lobby_id": lobbyID, "amount": amount, "pot": pot}).Info("pot credited")
	return pot, nil
}
