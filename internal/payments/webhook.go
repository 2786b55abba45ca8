// internal/payments/webhook.go
package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/gridbingo/internal/lobby"
	"github.com/sirupsen/logrus"
)

// PotCrediter is the engine operation a finalised invoice feeds.
type PotCrediter interface {
	CreditPot(ctx context.Context, lobbyID string, amount int64) (int64, error)
}

// Service turns payment provider callbacks into pot credits.
type Service struct {
	store *Store
	pots  PotCrediter
	log   logrus.FieldLogger
	now   func() time.Time
}

func NewService(store *Store, pots PotCrediter, log logrus.FieldLogger) *Service {
	return &Service{store: store, pots: pots, log: log, now: time.Now}
}

// WebhookEvent is the provider's callback body.
type WebhookEvent struct {
	Invoice string `json:"invoice"`
	Status  string `json:"status"`
}

// WebhookResult acknowledges a callback. Credited is true only for the delivery that
// moved money into a pot.
type WebhookResult struct {
	Success  bool  `json:"success"`
	Credited bool  `json:"credited"`
	Pot      int64 `json:"pot,omitempty"`
}

// CreateInvoice registers a pending payment of amount towards lobbyID.
func (s *Service) CreateInvoice(ctx context.Context, lobbyID string, amount int64) (*Invoice, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	inv := &Invoice{
		ID:        "inv_" + uuid.NewString(),
		LobbyID:   lobbyID,
		Amount:    amount,
		Status:    InvoicePending,
		CreatedAt: s.now(),
	}
	if _, err := s.store.Create(ctx, *inv); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{"invoice": inv.ID, "lobby_id": lobbyID, "amount": amount}).Info("invoice created")
	return inv, nil
}

// HandleWebhook finalises the invoice on a "finalized" event and credits its lobby pot
// exactly once. Other statuses are acknowledged without effect. A lobby that is gone
// or already settled keeps the invoice finalised and is only logged.
func (s *Service) HandleWebhook(ctx context.Context, ev WebhookEvent) (WebhookResult, error) {
	if ev.Invoice == "" {
		return WebhookResult{}, ErrMissingInvoice
	}
	inv, err := s.store.Get(ctx, ev.Invoice)
	if err != nil {
		return WebhookResult{}, err
	}
	log := s.log.WithFields(logrus.Fields{"invoice": inv.ID, "lobby_id": inv.LobbyID, "status": ev.Status})
	if ev.Status != string(InvoiceFinalized) {
		log.Debug("payment event ignored")
		return WebhookResult{Success: true}, nil
	}

	first, err := s.store.Finalize(ctx, inv.ID)
	if err != nil {
		return WebhookResult{}, err
	}
	if !first {
		log.Debug("invoice already finalized")
		return WebhookResult{Success: true}, nil
	}

	pot, err := s.pots.CreditPot(ctx, inv.LobbyID, inv.Amount)
	switch {
	case errors.Is(err, lobby.ErrNotFound), errors.Is(err, lobby.ErrInvalidState):
		log.WithError(err).Warn("invoice finalized but pot credit rejected")
		return WebhookResult{Success: true}, nil
	case err != nil:
		if rerr := s.store.Reopen(context.WithoutCancel(ctx), inv.ID); rerr != nil {
			log.WithError(rerr).Error("failed to reopen invoice after credit failure")
		}
		return WebhookResult{}, err
	}
	return WebhookResult{Success: true, Credited: true, Pot: pot}, nil
}
