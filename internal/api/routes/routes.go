package routes

import (
	"context"
	"net/http"
	"time"

	"task-service/internal/api/handlers"
	"task-service/internal/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const presenceRequestsPerMinute = 120

// Dependencies are the pieces the HTTP surface is assembled from. RateLimiter and
// HealthCheck are optional.
type Dependencies struct {
	WebSocket      http.Handler
	Verifier       middleware.TokenVerifier
	Presence       handlers.PresenceReader
	RateLimiter    middleware.RateLimiter
	HealthCheck    func(ctx context.Context) error
	AllowedOrigins []string

	HandshakeLimit  int
	HandshakeWindow time.Duration

	Log *zap.Logger
}

type Router struct {
	engine          *gin.Engine
	deps            Dependencies
	wsHandler       *handlers.WSHandler
	presenceHandler *handlers.PresenceHandler
	authMW          *middleware.AuthMiddleware
	rateLimitMW     *middleware.RateLimitMiddleware
}

func NewRouter(deps Dependencies) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(deps.AllowedOrigins))
	engine.Use(middleware.LogAPI(deps.Log))

	r := &Router{
		engine:          engine,
		deps:            deps,
		wsHandler:       handlers.NewWSHandler(deps.WebSocket),
		presenceHandler: handlers.NewPresenceHandler(deps.Presence),
		authMW:          middleware.NewAuthMiddleware(deps.Verifier),
	}
	if deps.RateLimiter != nil {
		r.rateLimitMW = middleware.NewRateLimitMiddleware(deps.RateLimiter, deps.Log)
	}
	return r
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/healthz", r.health)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.engine.Group("/api/v1")

	// The websocket handshake authenticates itself; it cannot rely on RequireAuth
	// because browsers cannot set headers on websocket requests.
	wsChain := []gin.HandlerFunc{}
	if r.rateLimitMW != nil && r.deps.HandshakeLimit > 0 {
		wsChain = append(wsChain, r.rateLimitMW.RateLimitIP(r.deps.HandshakeLimit, r.deps.HandshakeWindow))
	}
	wsChain = append(wsChain, r.wsHandler.HandleWebSocket)
	api.GET("/ws", wsChain...)

	authed := api.Group("/")
	authed.Use(r.authMW.RequireAuth())
	{
		presence := authed.Group("/presence")
		if r.rateLimitMW != nil {
			presence.Use(r.rateLimitMW.RateLimit(presenceRequestsPerMinute, time.Minute))
		}
		presence.GET("/me", r.presenceHandler.GetMyPresence)
	}
}

func (r *Router) health(c *gin.Context) {
	if r.deps.HealthCheck != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := r.deps.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
