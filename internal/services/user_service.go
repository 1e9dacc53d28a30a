package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	cb "github.com/sony/gobreaker"
	"go.uber.org/zap"
)

var ErrUserLookupUnavailable = errors.New("user lookup unavailable")

// UserStore answers whether an account still exists
type UserStore interface {
	Exists(ctx context.Context, id uint) (bool, error)
}

// UserService guards user lookups with a circuit breaker so a failing database sheds
// handshakes quickly instead of piling up slow ones.
type UserService struct {
	repo    UserStore
	breaker *cb.CircuitBreaker
	log     *zap.Logger
}

func NewUserService(repo UserStore, log *zap.Logger) *UserService {
	log = log.Named("user-service")
	settings := cb.Settings{
		Name:        "UserLookupCB",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts cb.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		OnStateChange: func(name string, from, to cb.State) {
			log.Warn("Circuit breaker state change",
				zap.String("name", name), zap.String("from", from.String()), zap.String("to", to.String()))
		},
		// cancellation is excused, an expired deadline is a failure
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	}
	return &UserService{
		repo:    repo,
		breaker: cb.NewCircuitBreaker(settings),
		log:     log,
	}
}

// Exists reports whether the user is still present. Cancellation is not counted
// against the breaker; deadline expiry is.
func (s *UserService) Exists(ctx context.Context, userID uint) (bool, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		exists, err := s.repo.Exists(ctx, userID)
		if err != nil && ctx.Err() != nil {
			// drivers do not always wrap the context error
			return false, fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return exists, err
	})
	if errors.Is(err, cb.ErrOpenState) || errors.Is(err, cb.ErrTooManyRequests) {
		return false, fmt.Errorf("%w: %v", ErrUserLookupUnavailable, err)
	}
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}
