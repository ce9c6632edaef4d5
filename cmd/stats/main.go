// Command stats prints the number of proposals per status for one
// organization as JSON.
//
// Usage:
//
//	stats --org=org-1
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/proposal-backend/internal/app"
	"github.com/heartmarshall/proposal-backend/internal/config"
	"github.com/heartmarshall/proposal-backend/internal/query"
	"github.com/heartmarshall/proposal-backend/pkg/ctxutil"
)

func main() {
	org := flag.String("org", "", "organizationId to report on")
	field := flag.String("by", "status", "proposal field to group by")
	flag.Parse()

	if *org == "" {
		fmt.Fprintln(os.Stderr, "Usage: stats --org=<organizationId> [--by=status]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := app.NewLogger(cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx, reqID := ctxutil.EnsureRequestID(ctx)
	logger = logger.With(slog.String("request_id", reqID))

	st, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = st.Close(ctx) }()

	rows, err := st.DB.Proposal.GroupBy(ctx, *field, query.Where{"organizationId": query.Eq{Value: *org}})
	if err != nil {
		logger.Error("group proposals", slog.String("error", err.Error()))
		_ = st.Close(ctx)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(map[string]any{"organizationId": *org, "by": *field, "groups": rows}); err != nil {
		logger.Error("write output", slog.String("error", err.Error()))
	}
}
