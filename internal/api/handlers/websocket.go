package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// WSHandler exposes the websocket handshake on the gin router
type WSHandler struct {
	handler http.Handler
}

func NewWSHandler(handler http.Handler) *WSHandler {
	return &WSHandler{handler: handler}
}

// HandleWebSocket authenticates and upgrades the request. The token is read from the
// "token" query parameter or the Authorization header; a refused handshake gets 401.
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	h.handler.ServeHTTP(c.Writer, c.Request)
}
