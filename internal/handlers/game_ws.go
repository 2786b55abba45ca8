// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/gridbingo/internal/lobby"
	"github.com/jason-s-yu/gridbingo/internal/middleware"
	"github.com/sirupsen/logrus"
)

// statusStream pushes a lobby snapshot every streamInterval until the game finishes or
// the client goes away. An unknown lobby is refused before the upgrade.
func (s *APIServer) statusStream(w http.ResponseWriter, r *http.Request) {
	lobbyID := chi.URLParam(r, "lobbyID")
	snap, err := s.engine.GetStatus(r.Context(), lobbyID)
	if err != nil {
		writeError(w, s.logger, err)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.wsOrigins,
	})
	if err != nil {
		s.logger.WithError(err).WithField("lobby_id", lobbyID).Warn("websocket accept error")
		return
	}
	defer c.CloseNow()

	log := s.logger.WithFields(logrus.Fields{"lobby_id": lobbyID, "player_id": identity(r)})
	middleware.LogWebSocketConnect(log, r.RemoteAddr, r.URL.Path)

	// Client frames are not expected; CloseRead handles control frames and ends ctx on close.
	ctx := c.CloseRead(r.Context())
	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	for {
		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := wsjson.Write(writeCtx, c, snap)
		cancel()
		if err != nil {
			middleware.LogWebSocketDisconnect(log, r.RemoteAddr, r.URL.Path, err)
			return
		}
		if snap.Status == lobby.StatusFinished {
			c.Close(websocket.StatusNormalClosure, "game finished")
			middleware.LogWebSocketDisconnect(log, r.RemoteAddr, r.URL.Path, nil)
			return
		}

		select {
		case <-ctx.Done():
			middleware.LogWebSocketDisconnect(log, r.RemoteAddr, r.URL.Path, nil)
			return
		case <-ticker.C:
		}

		snap, err = s.engine.GetStatus(ctx, lobbyID)
		switch {
		case errors.Is(err, lobby.ErrNotFound):
			c.Close(InvalidLobbyIDError, "lobby expired")
			middleware.LogWebSocketDisconnect(log, r.RemoteAddr, r.URL.Path, err)
			return
		case err != nil:
			log.WithError(err).Warn("status stream: load snapshot")
			c.Close(StatusUnavailable, "status unavailable")
			return
		}
	}
}
