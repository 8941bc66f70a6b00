// Command feedctl reads and writes the feed from a terminal as the user
// configured in FEEDCTL_USER_ID.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"fitprove/internal/cache"
	"fitprove/internal/config"
	"fitprove/internal/database"
	"fitprove/internal/feedctl"
	"fitprove/internal/models"
	"fitprove/internal/observability"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "feedctl: %v\n", err)
		os.Exit(1)
	}
	// Logs stay quiet unless FEEDCTL_DEBUG is set, then go to stderr.
	observability.Logger = observability.NewLogger(io.Discard, cfg.Env)
	if os.Getenv("FEEDCTL_DEBUG") != "" {
		observability.Logger = observability.NewLogger(os.Stderr, cfg.Env)
	}

	open := func(ctx context.Context) (*feedctl.Deps, func(), error) {
		db, err := database.Connect(cfg)
		if err != nil {
			return nil, nil, err
		}
		rdb, err := cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			observability.Logger.Warn("Redis unavailable, caching disabled", slog.String("error", err.Error()))
			rdb = nil
		}
		closeFn := func() {
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
			if rdb != nil {
				_ = rdb.Close()
			}
		}
		return &feedctl.Deps{
			DB:          db,
			Redis:       rdb,
			Flags:       cfg.FeatureFlags,
			PageSize:    cfg.FeedPageSize,
			Timeout:     cfg.GatewayTimeout,
			ReadRetries: cfg.GatewayReadRetries,
		}, closeFn, nil
	}

	root := feedctl.NewRootCommand(open, cfg.FeedctlUserID)
	if err := root.ExecuteContext(context.Background()); err != nil {
		msg := err.Error()
		if code := models.ErrorCode(err); code != "" {
			msg = code + ": " + msg
		}
		fmt.Fprintf(os.Stderr, "feedctl: %s\n", msg)
		os.Exit(1)
	}
}
