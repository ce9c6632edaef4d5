// Command cleanup removes read notifications older than the retention
// period. It is intended to be invoked by an external cron job, not as an
// in-process goroutine.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/proposal-backend/internal/app"
	"github.com/heartmarshall/proposal-backend/internal/config"
	"github.com/heartmarshall/proposal-backend/internal/domain"
	"github.com/heartmarshall/proposal-backend/internal/query"
)

func main() {
	days := flag.Int("retention-days", 90, "keep read notifications younger than this many days")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	st, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = st.Close(ctx) }()

	threshold := time.Now().UTC().AddDate(0, 0, -*days)

	deleted, err := st.DB.Notification.DeleteMany(ctx, query.Where{
		"read":                query.Eq{Value: true},
		domain.FieldCreatedAt: query.Lt{Value: threshold},
	})
	if err != nil {
		logger.Error("delete notifications failed",
			slog.String("error", err.Error()),
			slog.Time("threshold", threshold),
		)
		_ = st.Close(ctx)
		os.Exit(1)
	}

	logger.Info("notification cleanup completed",
		slog.Int64("deleted", deleted),
		slog.Time("threshold", threshold),
	)
}
