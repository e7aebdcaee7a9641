package config

import (
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type Config struct {
	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8086" validate:"min=1000,max=65535"`

	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"chat_user"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"chat_password"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"chat_db"`

	// Empty RedisHost disables the cross-process fan-out bus
	// (single-process deployment).
	RedisHost string `env:"REDIS_HOST" envDefault:""`
	RedisPort uint16 `env:"REDIS_PORT" envDefault:"6379" validate:"min=1,max=65535"`

	JwtSecret string        `env:"JWT_SECRET" envDefault:"dev-secret-change-me" validate:"min=8"`
	TokenTTL  time.Duration `env:"TOKEN_TTL"  envDefault:"24h"`

	SendQueueSize    int     `env:"SEND_QUEUE_SIZE"    envDefault:"64"   validate:"min=1"`
	PersistQueueSize int     `env:"PERSIST_QUEUE_SIZE" envDefault:"1024" validate:"min=1"`
	TypingBurst      float64 `env:"TYPING_BURST"       envDefault:"5"    validate:"min=1"`
	TypingPerSecond  float64 `env:"TYPING_PER_SECOND"  envDefault:"2"    validate:"min=0"`
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
