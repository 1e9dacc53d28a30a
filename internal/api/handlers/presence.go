package handlers

import (
	"net/http"

	"task-service/internal/api/middleware"
	"task-service/internal/models"

	"github.com/gin-gonic/gin"
)

// PresenceReader answers presence questions from the local connection registry
type PresenceReader interface {
	IsConnected(userID uint) bool
	Connections(userID uint) []string
}

type PresenceHandler struct {
	presence PresenceReader
}

func NewPresenceHandler(presence PresenceReader) *PresenceHandler {
	return &PresenceHandler{presence: presence}
}

type PresenceResponse struct {
	UserID      uint `json:"userId"`
	Online      bool `json:"online"`
	Connections int  `json:"connections"`
}

// GetMyPresence reports whether the caller has live sockets on this instance
func (h *PresenceHandler) GetMyPresence(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{Code: http.StatusUnauthorized, Message: "Unauthorized"})
		return
	}

	c.JSON(http.StatusOK, PresenceResponse{
		UserID:      userID,
		Online:      h.presence.IsConnected(userID),
		Connections: len(h.presence.Connections(userID)),
	})
}
