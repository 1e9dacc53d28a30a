package database

import (
	"context"
	"testing"

	"task-service/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDialectorFor(t *testing.T) {
	d, err := dialectorFor(config.DatabaseConfig{Driver: "postgres", URI: "postgres://u:p@localhost/tasks"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", d.Name())

	d, err = dialectorFor(config.DatabaseConfig{Driver: "mysql", URI: "u:p@tcp(localhost:3306)/tasks"})
	require.NoError(t, err)
	assert.Equal(t, "mysql", d.Name())

	_, err = dialectorFor(config.DatabaseConfig{Driver: "sqlite"})
	assert.ErrorIs(t, err, config.ErrUnsupportedDriver)
}

func TestNewRedisConnectionRejectsBadURL(t *testing.T) {
	_, err := NewRedisConnection(context.Background(), config.RedisConfig{URI: "http://not-redis"})
	assert.Error(t, err)
}
