package websocket

import (
	"errors"
	"net/http"
	"time"

	"task-service/pkg/json"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handler serves the websocket handshake: authenticate, upgrade, register, start pumps.
type Handler struct {
	hub      *Hub
	auth     *Authenticator
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewHandler(hub *Hub, authenticator *Authenticator, allowedOrigins []string, log *zap.Logger) *Handler {
	return &Handler{
		hub:  hub,
		auth: authenticator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
		log: log.Named("ws-handler"),
	}
}

// originChecker allows requests without an Origin header (non-browser clients), any
// origin on the list, or everything when the list contains "*".
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	_, wildcard := set["*"]

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || wildcard {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	userID, err := h.auth.Authenticate(r)
	if err != nil {
		h.refuse(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response
		h.log.Warn("WebSocket upgrade failed", zap.Uint("user_id", userID), zap.Error(err))
		return
	}

	client := h.hub.NewClient(conn, userID)
	if err := h.hub.Register(client); err != nil {
		h.log.Info("Rejecting connection", zap.Uint("user_id", userID), zap.Error(err))
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseServiceRestart, "server shutting down"),
			time.Now().Add(h.hub.opts.WriteWait))
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Handler) refuse(w http.ResponseWriter, err error) {
	reason := "unknown"
	var refusal *Refusal
	if errors.As(err, &refusal) {
		reason = refusal.Reason.String()
	}
	handshakeRejections.WithLabelValues(reason).Inc()
	h.log.Info("WebSocket handshake refused", zap.String("reason", reason), zap.Error(err))

	body, _ := json.Marshal(map[string]string{
		"error":  "authentication failed",
		"reason": reason,
	})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write(body)
}
