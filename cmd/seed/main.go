// Command seed fills the database with demo feed data.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"fitprove/internal/config"
	"fitprove/internal/database"
	"fitprove/internal/observability"
	"fitprove/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	profiles := flag.Int("profiles", defaults.Profiles, "Number of profiles to create")
	posts := flag.Int("posts", defaults.Posts, "Number of posts to create")
	comments := flag.Int("comments", defaults.MaxComments, "Maximum comments per post")
	reactionRate := flag.Float64("reaction-rate", defaults.ReactionRate, "Chance that a profile reacts to a post")
	days := flag.Int("days", defaults.MaxDays, "Spread posts over this many days")
	randSeed := flag.Int64("seed", 0, "Random seed for a reproducible run (0 = random)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.IsProduction() {
		slog.Error("Refusing to seed a production database")
		os.Exit(1)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		observability.Logger.Error("Failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()
	s := seed.NewSeeder(db, seed.Options{
		Profiles:     *profiles,
		Posts:        *posts,
		MaxComments:  *comments,
		ReactionRate: *reactionRate,
		MaxDays:      *days,
		RandSeed:     *randSeed,
	})

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			observability.Logger.Error("Cleanup failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	sum, err := s.Run(ctx)
	if err != nil {
		observability.Logger.Error("Seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	observability.Logger.Info("Seeding complete",
		slog.Int("profiles", sum.Profiles),
		slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments),
		slog.Int("reactions", sum.Reactions),
	)
}
