package middleware

import (
	"errors"
	"net/http"

	"task-service/internal/auth"
	"task-service/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID = "user_id"
	ContextEmail  = "email"
)

type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

// RequireAuth verifies the bearer token and stores the caller's id under "user_id"
func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := am.verifier.Verify(c.GetHeader("Authorization"))
		if err != nil {
			message := "invalid token"
			switch {
			case errors.Is(err, auth.ErrMissingToken):
				message = "authorization header is required"
			case errors.Is(err, auth.ErrExpiredToken):
				message = "token has expired"
			case errors.Is(err, auth.ErrInvalidClaim):
				message = "invalid user ID in token"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
				Code:    http.StatusUnauthorized,
				Message: message,
			})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextEmail, claims.Email)
		c.Next()
	}
}

// UserID returns the id stored by RequireAuth
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
