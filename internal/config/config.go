package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8085" validate:"min=1000,max=65535"`

	// Empty host disables the cross-instance bridge; the server then runs
	// in single-instance, in-memory-only mode.
	BridgeRedisHost string `env:"BRIDGE_REDIS_HOST" envDefault:""`
	BridgeRedisPort uint16 `env:"BRIDGE_REDIS_PORT" envDefault:"6379" validate:"min=1,max=65535"`

	HeartbeatIntervalSec uint `env:"HEARTBEAT_INTERVAL_SEC" envDefault:"30" validate:"min=1"`

	// Comma-separated websocket origin allow-list; empty allows any origin.
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}
