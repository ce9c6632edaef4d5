// Package mongo implements the store port on MongoDB with the official
// v2 driver.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/heartmarshall/proposal-backend/internal/config"
	"github.com/heartmarshall/proposal-backend/internal/domain"
	"github.com/heartmarshall/proposal-backend/internal/store"
)

var _ store.Database = (*Client)(nil)

// Client is the single shared connection pool plus the selected database.
type Client struct {
	client *mongo.Client
	db     *mongo.Database
	log    *slog.Logger
}

// Option configures Connect.
type Option func(*connectOptions)

type connectOptions struct {
	driverLog   bool
	driverLevel slog.Level
}

// WithDriverLog forwards the driver's command events to the logger at
// level. Nothing is bridged when the logger does not enable level.
func WithDriverLog(level slog.Level) Option {
	return func(o *connectOptions) {
		o.driverLog = true
		o.driverLevel = level
	}
}

// Connect creates the client, pings the primary and returns the ready
// Client. Unavailable-store failures are retried cfg.ConnectAttempts times
// with a fixed cfg.ConnectBackoff pause; other failures return at once.
func Connect(ctx context.Context, cfg config.DatabaseConfig, log *slog.Logger, opts ...Option) (*Client, error) {
	log = log.With("component", "mongo")

	var co connectOptions
	for _, o := range opts {
		o(&co)
	}

	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout)
	if sink := co.sink(ctx, log); sink != nil {
		clientOpts.SetLoggerOptions(options.Logger().
			SetSink(sink).
			SetComponentLevel(options.LogComponentCommand, options.LogLevelDebug))
	}

	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(cfg.ConnectBackoff), uint64(attempts-1)),
		ctx,
	)

	var client *mongo.Client
	attempt := 0
	op := func() error {
		attempt++
		c, err := dial(ctx, clientOpts)
		if err != nil {
			err = mapError(err, "connect", cfg.Name)
			if !errors.Is(err, domain.ErrStoreUnavailable) {
				return backoff.Permanent(err)
			}
			return err
		}
		client = c
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Warn("mongo not reachable, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Duration("backoff", wait),
			slog.String("error", err.Error()),
		)
	}
	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		return nil, fmt.Errorf("connect to mongo after %d attempt(s): %w", attempt, err)
	}

	log.Info("connected to mongo", slog.String("database", cfg.Name), slog.Int("attempts", attempt))
	return &Client{client: client, db: client.Database(cfg.Name), log: log}, nil
}

// sink returns the driver log sink, or nil when the driver log is off or
// its level is disabled.
func (o connectOptions) sink(ctx context.Context, log *slog.Logger) *logSink {
	if !o.driverLog || !log.Enabled(ctx, o.driverLevel) {
		return nil
	}
	return newLogSink(log, o.driverLevel)
}

func dial(ctx context.Context, opts *options.ClientOptions) (*mongo.Client, error) {
	c, err := mongo.Connect(opts)
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx, readpref.Primary()); err != nil {
		_ = c.Disconnect(context.WithoutCancel(ctx))
		return nil, err
	}
	return c, nil
}

// Collection returns the named collection.
func (c *Client) Collection(name string) store.Collection {
	return &collection{coll: c.db.Collection(name)}
}

// StartSession opens a driver session for one transaction.
func (c *Client) StartSession(ctx context.Context) (store.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sess, err := c.client.StartSession()
	if err != nil {
		return nil, mapError(err, "start session", c.db.Name())
	}
	return &session{sess: sess}, nil
}

// Ping checks that the primary is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return mapError(c.client.Ping(ctx, readpref.Primary()), "ping", c.db.Name())
}

// Close disconnects the pool, waiting for in-use connections up to the
// deadline of ctx.
func (c *Client) Close(ctx context.Context) error {
	if err := c.client.Disconnect(ctx); err != nil && !errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	c.log.Info("mongo disconnected")
	return nil
}
