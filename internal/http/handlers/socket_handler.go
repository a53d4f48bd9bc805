// README: WebSocket upgrade handler feeding the event hub.
package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"courier/internal/socket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// dispatch dashboards connect from other origins
	CheckOrigin: func(r *http.Request) bool { return true },
}

type SocketHandler struct {
	hub *socket.Hub
}

func NewSocketHandler(hub *socket.Hub) *SocketHandler {
	return &SocketHandler{hub: hub}
}

// Serve upgrades the connection and holds it open until the client hangs
// up. Clients only listen; inbound messages are discarded.
func (h *SocketHandler) Serve(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("websocket upgrade: %v", err)
		return
	}
	h.hub.Register(conn)

	go func() {
		defer h.hub.Unregister(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
