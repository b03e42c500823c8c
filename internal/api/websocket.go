package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"fireguard/internal/hub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// LiveFeed upgrades the request and, once the channel token checks out,
// keeps the connection registered for reading pushes. The token is read
// after the upgrade so a refusal reaches the browser as a close code.
func (h *Handler) LiveFeed(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warnf("Websocket upgrade failed: %v", err)
		return
	}

	token := c.Query("token")
	if token == "" {
		refuse(conn, "Missing token")
		return
	}
	cid, err := h.tokens.RedeemChannel(token)
	if err != nil {
		h.log.Debugf("Refusing websocket: %v", err)
		refuse(conn, "Invalid token")
		return
	}

	h.log.Infof("Websocket %s connected", cid)
	hub.NewClient(cid, conn).Serve(h.registry)
	h.log.Infof("Websocket %s disconnected", cid)
}

func refuse(conn *websocket.Conn, reason string) {
	msg := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = conn.Close()
}
