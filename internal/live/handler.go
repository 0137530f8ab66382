package live

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/trailmap/trailmap/internal/auth"
)

// Handler upgrades viewers onto a map's room.
type Handler struct {
	hub            *Hub
	authService    *auth.Service
	allowedOrigins []string
}

func NewHandler(hub *Hub, authService *auth.Service, allowedOrigins []string) *Handler {
	return &Handler{
		hub:            hub,
		authService:    authService,
		allowedOrigins: allowedOrigins,
	}
}

// Connect handles GET /ws/maps/{mapId}. Browsers can't set headers on
// websocket dials, so the token travels as a query parameter.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	mapID := mux.Vars(r)["mapId"]

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	userID, err := h.authService.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.allowedOrigins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := NewClient(h.hub, conn, userID, mapID, uuid.New().String())
	h.hub.Register(client)

	ctx := r.Context()
	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
