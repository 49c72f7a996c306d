package shared

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"prod"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	MetricsAddr string `env:"METRICS_ADDR"`

	// Storage selects the backend: mysql or memory.
	Storage   string        `env:"STORAGE" envDefault:"mysql"`
	MySQLDSN  string        `env:"MYSQL_DSN" envDefault:"root:root@tcp(localhost:3306)/hotel?parseTime=true&charset=utf8mb4&loc=UTC"`
	RedisAddr string        `env:"REDIS_ADDR"`
	RedisPass string        `env:"REDIS_PASSWORD"`
	RedisDB   int           `env:"REDIS_DB" envDefault:"0"`
	CacheTTL  time.Duration `env:"CACHE_TTL" envDefault:"15m"`

	SessionSecret     string        `env:"SESSION_SECRET"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	BootstrapEmail    string        `env:"BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapPassword string        `env:"BOOTSTRAP_ADMIN_PASSWORD"`
	BcryptCost        int           `env:"BCRYPT_COST" envDefault:"10"`

	OutboxInterval    time.Duration `env:"OUTBOX_INTERVAL" envDefault:"2s"`
	OutboxBatch       int           `env:"OUTBOX_BATCH" envDefault:"50"`
	OutboxMaxAttempts int           `env:"OUTBOX_MAX_ATTEMPTS" envDefault:"5"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"1"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"5"`
	// TrustedProxies lists IPs or CIDRs whose X-Forwarded-For / X-Real-IP are believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	ReminderDays              int `env:"REMINDER_DAYS" envDefault:"3"`
	NotificationRetentionDays int `env:"NOTIFICATION_RETENTION_DAYS" envDefault:"30"`
	OutboxRetentionDays       int `env:"OUTBOX_RETENTION_DAYS" envDefault:"7"`
	MaintenanceWorkers        int `env:"MAINTENANCE_WORKERS" envDefault:"4"`
}

// IsProd reports whether cookies must be marked Secure.
func (c Config) IsProd() bool { return c.AppEnv == "prod" || c.AppEnv == "production" }

func Load() (Config, error) {
	var c Config
	if err := env.Parse(&c); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if c.Storage != "mysql" && c.Storage != "memory" {
		return Config{}, fmt.Errorf("STORAGE must be mysql or memory, got %q", c.Storage)
	}
	if c.SessionSecret == "" {
		log.Warn().Msg("SESSION_SECRET is empty; sessions will not survive a restart")
	}
	if c.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR is empty; package cache disabled")
	}
	return c, nil
}
