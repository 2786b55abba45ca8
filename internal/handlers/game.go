// internal/handlers/game.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/gridbingo/internal/lobby"
)

type submitGridRequest struct {
	Grid lobby.Grid `json:"grid"`
}

type claimRequest struct {
	HighlightedNumbers []int `json:"highlighted_numbers"`
}

// join admits the caller into the current lobby.
func (s *APIServer) join(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.JoinLobby(r.Context(), identity(r))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *APIServer) submitGrid(w http.ResponseWriter, r *http.Request) {
	var req submitGridRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	res, err := s.engine.SubmitGrid(r.Context(), chi.URLParam(r, "lobbyID"), identity(r), req.Grid)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *APIServer) status(w http.ResponseWriter, r *http.Request) {
	snap, err := s.engine.GetStatus(r.Context(), chi.URLParam(r, "lobbyID"))
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// claim answers 200 for a win and 400 with the kicked body for a rejected claim.
func (s *APIServer) claim(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.logger, err)
		return
	}
	res, err := s.engine.VerifyClaim(r.Context(), chi.URLParam(r, "lobbyID"), identity(r), req.HighlightedNumbers)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}
	if !res.Valid {
		writeJSON(w, http.StatusBadRequest, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
