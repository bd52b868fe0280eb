package realtime

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"carpool/internal/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades HTTP connections and attaches them to the hub.
type Handler struct {
	hub    *Hub
	sink   EventSink
	tokens *auth.Manager
}

// NewHandler creates a new Handler.
func NewHandler(hub *Hub, sink EventSink, tokens *auth.Manager) *Handler {
	return &Handler{hub: hub, sink: sink, tokens: tokens}
}

// Serve handles GET /ws. The token comes from the Authorization header or,
// for browser clients that cannot set headers on websocket upgrades, the
// token query parameter. Unauthenticated connections are refused before the
// upgrade.
func (h *Handler) Serve(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := h.tokens.Parse(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := newClient(h.hub, h.sink, conn, claims)
	h.hub.register(client)

	go client.writePump()
	go client.readPump()
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if strings.HasPrefix(header, prefix) {
		return strings.TrimPrefix(header, prefix)
	}
	return ""
}
