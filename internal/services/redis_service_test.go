package services

import (
	"context"
	"testing"
	"time"

	"task-service/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStatusKey(t *testing.T) {
	assert.Equal(t, "user:12:status", statusKey(12))
}

func TestRedisPresenceIntegration(t *testing.T) {
	client := testutil.Redis(t)
	ctx := context.Background()

	svc := NewRedisService(client, zap.NewNop())

	require.NoError(t, svc.SetUserOnline(ctx, 901))
	online, err := svc.IsUserOnline(ctx, 901)
	require.NoError(t, err)
	assert.True(t, online)

	users, err := svc.OnlineUsers(ctx)
	require.NoError(t, err)
	assert.Contains(t, users, uint(901))

	status, err := client.HGet(ctx, statusKey(901), "status").Result()
	require.NoError(t, err)
	assert.Equal(t, "online", status)

	require.NoError(t, svc.SetUserOffline(ctx, 901))
	online, err = svc.IsUserOnline(ctx, 901)
	require.NoError(t, err)
	assert.False(t, online)

	status, err = client.HGet(ctx, statusKey(901), "status").Result()
	require.NoError(t, err)
	assert.Equal(t, "offline", status)

	key := "rate_limit_ip:test:/api/v1/ws"
	for i := 0; i < 3; i++ {
		allowed, err := svc.CheckRateLimit(ctx, key, 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := svc.CheckRateLimit(ctx, key, 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}
