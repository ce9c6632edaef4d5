package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/heartmarshall/proposal-backend/internal/adapter/mongo"
	"github.com/heartmarshall/proposal-backend/internal/config"
	"github.com/heartmarshall/proposal-backend/internal/entity"
)

// Store is the initialized data layer: one shared client and the entity
// surface built on it.
type Store struct {
	DB *entity.DB

	client *mongo.Client
	cfg    config.DatabaseConfig
	log    *slog.Logger
}

// Open connects to the database, ensures the relation lookup indexes and
// builds the entity surface. Connection failures are retried per
// cfg.Database; cfg.Log decides whether driver command events are logged.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Store, error) {
	var opts []mongo.Option
	if level, ok := driverLogLevel(cfg.Log); ok {
		opts = append(opts, mongo.WithDriverLog(level))
	}
	client, err := mongo.Connect(ctx, cfg.Database, logger, opts...)
	if err != nil {
		return nil, err
	}

	if err := client.EnsureIndexes(ctx, entity.Indexes()); err != nil {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Database.DisconnectTimeout)
		defer cancel()
		_ = client.Close(closeCtx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	return &Store{
		DB:     entity.NewDB(client, logger),
		client: client,
		cfg:    cfg.Database,
		log:    logger,
	}, nil
}

// Close disconnects the client, waiting at most the configured disconnect
// timeout for in-flight operations.
func (s *Store) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.DisconnectTimeout)
	defer cancel()
	if err := s.client.Close(ctx); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	s.log.Info("store closed")
	return nil
}

// Run is the application entry point. It loads configuration, initializes
// the logger, opens the store and keeps it open until ctx is done.
func Run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := NewLogger(cfg.Log)

	logger.Info("starting application",
		slog.String("version", BuildVersion()),
		slog.String("log_level", cfg.Log.Level),
		slog.String("database", cfg.Database.Name),
	)

	st, err := Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("store ready", slog.Int("kinds", len(entity.Schemas)))

	<-ctx.Done()
	logger.Info("shutting down")

	return st.Close(ctx)
}
