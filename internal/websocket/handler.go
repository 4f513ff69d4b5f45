package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/precrastine/internal/auth"
)

// HandleWebSocket upgrades the connection and streams change messages for
// the request's identity until the browser goes away. The route must sit
// behind middleware.RequireIdentity.
func HandleWebSocket(hub *Hub, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identityID := auth.IdentityID(r.Context())
		if identityID == "" {
			http.Error(w, "not signed in", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
		})
		if err != nil {
			logger.Warn("websocket accept", "error", err)
			return
		}
		defer conn.CloseNow()

		logger.Debug("websocket connected", "identity_id", identityID)
		NewClient(hub, conn, identityID).Run(r.Context())
	}
}
