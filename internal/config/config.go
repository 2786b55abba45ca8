// internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the process-level settings shared by the game server and the historian.
// Game rules are deliberately absent: they are fixed in lobby.DefaultRules.
type Config struct {
	Port        string `env:"PORT" envDefault:"8000"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9095"`

	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	// LobbyPointerKey names the key that tracks the single current lobby.
	LobbyPointerKey string `env:"GLOBAL_LOBBY_KEY" envDefault:"global_lobby"`
	// ResultsQueue is the Redis list finished games are pushed onto for the historian.
	ResultsQueue string `env:"RESULTS_QUEUE_NAME" envDefault:"lobby_results"`

	// DevMode accepts any bearer token and uses it verbatim as the caller identity.
	DevMode           bool   `env:"DEV_MODE" envDefault:"true"`
	AuthPublicKeyPath string `env:"AUTH_PUBLIC_KEY_PATH"`
	// TokenTTL bounds issued tokens; 0 issues tokens without exp.
	TokenTTL time.Duration `env:"TOKEN_EXPIRE_TIME" envDefault:"0s"`

	// AllowedOrigins lists the browser origins allowed by CORS.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	DatabaseURL        string `env:"DATABASE_URL"`
	HistorianBatchSize int    `env:"HISTORIAN_BATCH_SIZE" envDefault:"20"`
	HistorianFlushMS   int    `env:"HISTORIAN_FLUSH_MS" envDefault:"500"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.HistorianBatchSize <= 0 {
		return Config{}, fmt.Errorf("HISTORIAN_BATCH_SIZE must be positive, got %d", cfg.HistorianBatchSize)
	}
	return cfg, nil
}

// HistorianFlushDelay is the historian's periodic flush interval.
func (c Config) HistorianFlushDelay() time.Duration {
	return time.Duration(c.HistorianFlushMS) * time.Millisecond
}
