package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/gridbingo/internal/lobby"
	"github.com/jason-s-yu/gridbingo/internal/payments"
)

type createInvoiceRequest struct {
	Amount int64 `json:"amount"`
}

// createInvoice registers a pending payment towards an unfinished lobby.
func (s *APIServer) createInvoice(w http.ResponseWriter, r *http.Request) {
	var req createInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	lobbyID := chi.URLParam(r, "lobbyID")
	snap, err := s.engine.GetStatus(r.Context(), lobbyID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if snap.Status == lobby.StatusFinished {
		writeError(w, s.logger, lobby.ErrInvalidState)
		return
	}
	inv, err := s.payments.CreateInvoice(r.Context(), lobbyID, req.Amount)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}

func (s *APIServer) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	var ev payments.WebhookEvent
	if err := decodeJSON(r, &ev); err != nil {
		writeError(w, s.logger, err)
		return
	}
	res, err := s.payments.HandleWebhook(r.Context(), ev)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
