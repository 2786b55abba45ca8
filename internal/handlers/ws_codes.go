// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the status stream.
const (
	InvalidLobbyIDError = 3003 // Lobby in the WS URL expired while streaming.
	StatusUnavailable   = 3004 // The lobby store could not be read.
)
