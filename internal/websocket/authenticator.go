package websocket

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"task-service/internal/auth"

	"go.uber.org/zap"
)

// UserLookup confirms that a token's subject still exists
type UserLookup interface {
	Exists(ctx context.Context, userID uint) (bool, error)
}

// TokenVerifier validates a raw token and returns its claims
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

type RefusalReason int

const (
	RefusalMissingToken RefusalReason = iota + 1
	RefusalInvalidToken
	RefusalExpiredToken
	RefusalUnknownUser
	RefusalLookupFailed
)

func (r RefusalReason) String() string {
	switch r {
	case RefusalMissingToken:
		return "missing_token"
	case RefusalInvalidToken:
		return "invalid_token"
	case RefusalExpiredToken:
		return "expired_token"
	case RefusalUnknownUser:
		return "unknown_user"
	case RefusalLookupFailed:
		return "lookup_failed"
	default:
		return "unknown"
	}
}

// Refusal is the single error type returned for every rejected handshake
type Refusal struct {
	Reason  RefusalReason
	Message string
	Err     error
}

func (r *Refusal) Error() string {
	if r.Err != nil {
		return fmt.Sprintf("websocket handshake refused (%s): %s: %v", r.Reason, r.Message, r.Err)
	}
	return fmt.Sprintf("websocket handshake refused (%s): %s", r.Reason, r.Message)
}

func (r *Refusal) Unwrap() error {
	return r.Err
}

func refuse(reason RefusalReason, message string, err error) *Refusal {
	return &Refusal{Reason: reason, Message: message, Err: err}
}

// Authenticator resolves the user behind a handshake request before the upgrade
type Authenticator struct {
	verifier TokenVerifier
	users    UserLookup
	timeout  time.Duration
	log      *zap.Logger
}

func NewAuthenticator(verifier TokenVerifier, users UserLookup, timeout time.Duration, log *zap.Logger) *Authenticator {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Authenticator{
		verifier: verifier,
		users:    users,
		timeout:  timeout,
		log:      log.Named("ws-auth"),
	}
}

// Authenticate returns the verified user id or a *Refusal
func (a *Authenticator) Authenticate(r *http.Request) (userID uint, err error) {
	defer func() {
		if p := recover(); p != nil {
			a.log.Error("Panic during websocket authentication", zap.Any("panic", p))
			userID, err = 0, refuse(RefusalInvalidToken, "authentication failed", nil)
		}
	}()

	token := TokenFromRequest(r)
	if token == "" {
		return 0, refuse(RefusalMissingToken, "no token supplied", nil)
	}

	claims, err := a.verifier.Verify(token)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			return 0, refuse(RefusalExpiredToken, "token has expired", err)
		case errors.Is(err, auth.ErrMissingToken):
			return 0, refuse(RefusalMissingToken, "no token supplied", err)
		default:
			return 0, refuse(RefusalInvalidToken, "token could not be verified", err)
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), a.timeout)
	defer cancel()

	exists, err := a.users.Exists(ctx, claims.UserID)
	if err != nil {
		return 0, refuse(RefusalLookupFailed, "user lookup failed", err)
	}
	if !exists {
		return 0, refuse(RefusalUnknownUser, "user no longer exists", nil)
	}
	return claims.UserID, nil
}

// TokenFromRequest reads the "token" query parameter, falling back to the
// Authorization header
func TokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return auth.StripBearer(token)
	}
	return auth.StripBearer(r.Header.Get("Authorization"))
}
