// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/gridbingo/internal/auth"
	"github.com/jason-s-yu/gridbingo/internal/cache"
	"github.com/jason-s-yu/gridbingo/internal/config"
	"github.com/jason-s-yu/gridbingo/internal/handlers"
	"github.com/jason-s-yu/gridbingo/internal/lobby"
	"github.com/jason-s-yu/gridbingo/internal/lock"
	"github.com/jason-s-yu/gridbingo/internal/metrics"
	"github.com/jason-s-yu/gridbingo/internal/payments"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const invoiceTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := newLogger(cfg)

	rdb, err := cache.Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	authn, err := newAuthenticator(cfg, logger)
	if err != nil {
		logger.Fatalf("auth: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	rules := lobby.DefaultRules()
	engine := lobby.NewManager(lobby.Config{
		Store:   lobby.NewLobbyStore(rdb, cfg.LobbyPointerKey, rules.LobbyTTL),
		Locker:  lock.NewTokenLock(rdb, rules.StartLockTTL),
		Rules:   rules,
		Logger:  logger,
		Metrics: metrics.New(reg),
		Results: cache.NewResultQueue(rdb, cfg.ResultsQueue),
	})
	pay := payments.NewService(payments.NewStore(rdb, invoiceTTL), engine, logger)

	api := handlers.NewAPIServer(handlers.Options{
		Engine:         engine,
		Payments:       pay,
		Auth:           authn,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	apiSrv := &http.Server{Addr: ":" + cfg.Port, Handler: api.Router(), ReadHeaderTimeout: 10 * time.Second}
	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(logger, "api", apiSrv) })
	g.Go(func() error { return serve(logger, "metrics", metricsSrv) })
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = apiSrv.Shutdown(shutdownCtx)
		_ = metricsSrv.Shutdown(shutdownCtx)
		engine.Close()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("server exited")
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func serve(logger logrus.FieldLogger, name string, srv *http.Server) error {
	logger.WithField("addr", srv.Addr).Infof("%s listening", name)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func newLogger(cfg config.Config) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

func newAuthenticator(cfg config.Config, logger logrus.FieldLogger) (*auth.Authenticator, error) {
	if cfg.DevMode {
		logger.Warn("DEV_MODE is on: bearer tokens are trusted as player ids")
		return auth.NewDevAuthenticator(), nil
	}
	if cfg.AuthPublicKeyPath == "" {
		return nil, errors.New("AUTH_PUBLIC_KEY_PATH is required when DEV_MODE is off")
	}
	pub, err := auth.LoadPublicKey(cfg.AuthPublicKeyPath)
	if err != nil {
		return nil, err
	}
	return auth.NewAuthenticator(pub, nil, cfg.TokenTTL), nil
}
