// cmd/historian/main.go is the results archiver: it drains the finished-game queue into Postgres.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/gridbingo/internal/cache"
	"github.com/jason-s-yu/gridbingo/internal/config"
	"github.com/jason-s-yu/gridbingo/internal/database"
	"github.com/jason-s-yu/gridbingo/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(level)
	}
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := cache.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	repo := database.NewResultsRepo(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Fatalf("schema: %v", err)
	}

	svc := historian.NewService(rdb, repo, logger, historian.Config{
		Queue:      cfg.ResultsQueue,
		BatchSize:  cfg.HistorianBatchSize,
		FlushDelay: cfg.HistorianFlushDelay(),
	})
	if err := svc.Run(ctx); err != nil {
		logger.WithError(err).Error("historian exited")
		os.Exit(1)
	}
}
