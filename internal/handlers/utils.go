package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jason-s-yu/gridbingo/internal/lobby"
	"github.com/jason-s-yu/gridbingo/internal/middleware"
	"github.com/jason-s-yu/gridbingo/internal/payments"
	"github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var kindStatus = map[lobby.Kind]int{
	lobby.KindNotFound:         http.StatusNotFound,
	lobby.KindPlayerNotFound:   http.StatusNotFound,
	lobby.KindInvalidState:     http.StatusConflict,
	lobby.KindCapacityExceeded: http.StatusConflict,
	lobby.KindValidation:       http.StatusBadRequest,
	lobby.KindPlayerInactive:   http.StatusForbidden,
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps engine and payment errors onto a status and the error body.
// Anything unrecognised is logged and answered with 500.
func writeError(w http.ResponseWriter, logger logrus.FieldLogger, err error) {
	var le *lobby.Error
	switch {
	case errors.As(err, &le):
		status, ok := kindStatus[le.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, errorResponse{Error: string(le.Kind), Message: le.Message})
	case errors.Is(err, payments.ErrMissingInvoice), errors.Is(err, payments.ErrInvalidAmount):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: string(lobby.KindValidation), Message: err.Error()})
	case errors.Is(err, payments.ErrInvoiceNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: string(lobby.KindNotFound), Message: err.Error()})
	default:
		logger.WithError(err).Error("request failed")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "INTERNAL", Message: "internal server error"})
	}
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return &lobby.Error{Kind: lobby.KindValidation, Message: fmt.Sprintf("bad request payload: %v", err)}
}

// identity returns the caller set by RequireIdentity; routes are only mounted behind it.
func identity(r *http.Request) string {
	id, _ := middleware.Identity(r.Context())
	return id
}
