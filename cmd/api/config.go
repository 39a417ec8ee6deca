package main

import (
	"log/slog"
	"time"

	"github.com/mightybites/coins-engine/internal/config"
)

type apiConfig struct {
	Port            uint16        `env:"APP_PORT"`
	LogLevel        slog.Level    `env:"APP_LOG_LEVEL"`
	ShutdownTimeout time.Duration `env:"APP_SHUTDOWN_TIMEOUT"`

	Postgres config.PostgresConfig
	Redis    config.RedisConfig

	// Base64 service-account JSON; empty disables push notifications.
	FCMServiceAccountB64 string `env:"FCM_SERVICE_ACCOUNT_JSON_B64"`
}
