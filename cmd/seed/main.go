// Command seed fills the configured database with fake blog data.
//
//	go run ./cmd/seed -users 50 -posts 4
//
// Every seeded account logs in with seed.DefaultPassword.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/inkwell/internal/auth"
	"github.com/sakif/inkwell/internal/config"
	sqliteRepo "github.com/sakif/inkwell/internal/repository/sqlite"
	"github.com/sakif/inkwell/internal/seed"
	"github.com/sakif/inkwell/internal/service"
)

func main() {
	defaults := seed.DefaultOptions()
	users := flag.Int("users", defaults.Users, "number of users to create")
	posts := flag.Int("posts", defaults.PostsPerUser, "posts per user")
	comments := flag.Int("comments", defaults.MaxComments, "maximum comments per post")
	follows := flag.Int("follows", defaults.FollowsPerUser, "follow attempts per user")
	seedValue := flag.Int64("seed", defaults.Seed, "random seed")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		logger.Error("failed to create database directory", slog.String("error", err.Error()))
		os.Exit(1)
	}
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer db.Close()

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		logger.Error("failed to create token service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	seeder := seed.NewSeeder(
		service.NewAuthService(db, tokens, auth.NewPasswordServiceWithCost(cfg.BcryptCost), logger),
		service.NewPostService(db, db, db, db, nil, logger),
		service.NewFollowService(db, db, logger),
		logger,
	)

	result, err := seeder.Run(context.Background(), seed.Options{
		Users:          *users,
		PostsPerUser:   *posts,
		MaxComments:    *comments,
		FollowsPerUser: *follows,
		Seed:           *seedValue,
	})
	if err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("seeding complete",
		slog.Int("users", len(result.Usernames)),
		slog.Int("posts", result.Posts),
		slog.Int("comments", result.Comments),
		slog.Int("follows", result.Follows),
		slog.String("password", seed.DefaultPassword),
	)
}
