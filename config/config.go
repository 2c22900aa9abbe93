package config

import (
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all server settings, parsed from the environment.
type Config struct {
	Port          string        `env:"PORT" envDefault:"8080"`
	DatabaseURL   string        `env:"DATABASE_URL" envDefault:"file:swiftchat.db"`
	JWTSecret     string        `env:"JWT_SECRET,required"`
	TypingTimeout time.Duration `env:"TYPING_TIMEOUT" envDefault:"3s"`
	HistoryLimit  int           `env:"HISTORY_LIMIT" envDefault:"50"`
}

// Load reads .env if present and parses the environment into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment variables")
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
