// Package testhelper starts a shared MongoDB replica set for integration
// tests. Transactions need a replica set, so a standalone server is not
// enough.
package testhelper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"github.com/heartmarshall/proposal-backend/internal/adapter/mongo"
	"github.com/heartmarshall/proposal-backend/internal/config"
)

var (
	once      sync.Once
	sharedURI string
	initErr   error
)

// SetupTestDB starts a shared MongoDB container (once for the entire test
// run) and returns a Client on a database unique to the calling test.
// The client is closed via t.Cleanup; the container lives until the process exits.
func SetupTestDB(t *testing.T) *mongo.Client {
	t.Helper()

	cfg := Config(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("testhelper: connect: %v", err)
	}

	t.Cleanup(func() {
		_ = client.Close(context.Background())
	})

	return client
}

// Config starts the shared container if needed and returns connection
// settings for a database unique to the calling test.
func Config(t *testing.T) config.DatabaseConfig {
	t.Helper()

	once.Do(func() {
		sharedURI, initErr = startContainer()
	})
	if initErr != nil {
		t.Fatalf("testhelper: failed to setup test DB: %v", initErr)
	}

	return config.DatabaseConfig{
		URI:                    sharedURI,
		Name:                   dbName(t),
		MaxPoolSize:            10,
		ServerSelectionTimeout: 10 * time.Second,
		ConnectAttempts:        3,
		ConnectBackoff:         time.Second,
		DisconnectTimeout:      10 * time.Second,
	}
}

func startContainer() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	container, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		return "", fmt.Errorf("get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "27017/tcp")
	if err != nil {
		_ = testcontainers.TerminateContainer(container)
		return "", fmt.Errorf("get mapped port: %w", err)
	}

	// The replica set advertises the container's internal address, so
	// connect directly instead of discovering members.
	return fmt.Sprintf("mongodb://%s:%s/?directConnection=true", host, port.Port()), nil
}

func dbName(t *testing.T) string {
	name := strings.NewReplacer("/", "_", " ", "_", ".", "_").Replace(t.Name())
	if len(name) > 48 {
		name = name[:48]
	}
	return "test_" + name
}
