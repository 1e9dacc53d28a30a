package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	onlineUsersKey   = "online_users"
	onlineStatusTTL  = 5 * time.Minute
	offlineStatusTTL = 24 * time.Hour
)

func statusKey(userID uint) string {
	return fmt.Sprintf("user:%d:status", userID)
}

// RedisService mirrors user presence into Redis so other instances and services can read it
type RedisService struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisService(client *redis.Client, log *zap.Logger) *RedisService {
	return &RedisService{
		client: client,
		log:    log.Named("redis-service"),
	}
}

// =============================================================================
// User Status Management
// =============================================================================

func (r *RedisService) SetUserOnline(ctx context.Context, userID uint) error {
	return r.setStatus(ctx, userID, "online", onlineStatusTTL)
}

func (r *RedisService) SetUserOffline(ctx context.Context, userID uint) error {
	return r.setStatus(ctx, userID, "offline", offlineStatusTTL)
}

func (r *RedisService) setStatus(ctx context.Context, userID uint, status string, ttl time.Duration) error {
	member := strconv.FormatUint(uint64(userID), 10)
	now := time.Now().Unix()

	pipe := r.client.Pipeline()
	if status == "online" {
		pipe.SAdd(ctx, onlineUsersKey, member)
	} else {
		pipe.SRem(ctx, onlineUsersKey, member)
	}
	pipe.HSet(ctx, statusKey(userID), map[string]interface{}{
		"status":     status,
		"last_seen":  now,
		"updated_at": now,
	})
	pipe.Expire(ctx, statusKey(userID), ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to set user %d %s: %w", userID, status, err)
	}

	r.log.Debug("User presence updated", zap.Uint("user_id", userID), zap.String("status", status))
	return nil
}

func (r *RedisService) IsUserOnline(ctx context.Context, userID uint) (bool, error) {
	return r.client.SIsMember(ctx, onlineUsersKey, strconv.FormatUint(uint64(userID), 10)).Result()
}

// OnlineUsers lists every user any instance currently reports online
func (r *RedisService) OnlineUsers(ctx context.Context) ([]uint, error) {
	members, err := r.client.SMembers(ctx, onlineUsersKey).Result()
	if err != nil {
		return nil, err
	}

	users := make([]uint, 0, len(members))
	for _, m := range members {
		id, err := strconv.ParseUint(m, 10, 64)
		if err != nil {
			r.log.Warn("Skipping malformed online_users member", zap.String("member", m))
			continue
		}
		users = append(users, uint(id))
	}
	return users, nil
}

// =============================================================================
// Rate Limiting
// =============================================================================

// CheckRateLimit records one hit on key and reports whether fewer than limit hits
// landed inside the sliding window before it.
func (r *RedisService) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()
	windowStart := now.Add(-window).UnixNano()

	pipe := r.client.Pipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	count := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: now.UnixNano()})
	pipe.Expire(ctx, key, window)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit check for %s: %w", key, err)
	}
	return count.Val() < int64(limit), nil
}
