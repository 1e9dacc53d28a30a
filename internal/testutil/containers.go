// Package testutil starts the backing stores integration tests run against. A store is
// taken from its *_TEST_URL variable when set, otherwise from a throwaway container;
// the test is skipped when neither is available.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"task-service/internal/config"
	"task-service/internal/database"

	"github.com/docker/go-connections/nat"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

const startupTimeout = 2 * time.Minute

// Redis returns a client for an empty Redis database. Set REDIS_TEST_URL
// (e.g. redis://localhost:6379/15) to use an existing server.
func Redis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}
	ctx := context.Background()

	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		host, port := startContainer(t, testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		}, "6379/tcp")
		url = fmt.Sprintf("redis://%s:%s/0", host, port)
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { client.Close() })

	require.NoError(t, client.Ping(ctx).Err(), "redis at %s", url)
	require.NoError(t, client.FlushDB(ctx).Err())
	return client
}

// Postgres returns a migrated gorm connection. Set TEST_DATABASE_URL to use an
// existing database; its task tables are truncated first.
func Postgres(t *testing.T) *gorm.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in short mode")
	}

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		host, port := startContainer(t, testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "tasks",
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "test",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(startupTimeout),
		}, "5432/tcp")
		url = fmt.Sprintf("postgres://test:test@%s:%s/tasks?sslmode=disable", host, port)
	}

	db, err := database.NewConnection(config.DatabaseConfig{Driver: "postgres", URI: url})
	require.NoError(t, err)
	t.Cleanup(func() { database.Close(db) })

	require.NoError(t, db.Exec("TRUNCATE notifications, tasks, categories, users RESTART IDENTITY").Error)
	return db
}

func startContainer(t *testing.T, req testcontainers.ContainerRequest, port string) (string, string) {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "start %s", req.Image)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate %s: %v", req.Image, err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mapped, err := container.MappedPort(ctx, nat.Port(port))
	require.NoError(t, err)
	return host, mapped.Port()
}
