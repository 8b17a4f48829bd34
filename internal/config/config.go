package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the scoring engine.
type Config struct {
	AppName         string
	AppEnv          string
	LogLevel        string
	DatabaseURL     string
	DefaultPassMark float64
}

// Load reads configuration values from environment variables and an
// optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("EXAM")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Exam Scoring Engine")
	v.SetDefault("app.env", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.url", "file::memory:?cache=shared")
	v.SetDefault("default.pass_mark", 60.0)

	cfg := Config{
		AppName:         v.GetString("app.name"),
		AppEnv:          v.GetString("app.env"),
		LogLevel:        v.GetString("log.level"),
		DatabaseURL:     v.GetString("database.url"),
		DefaultPassMark: v.GetFloat64("default.pass_mark"),
	}

	if cfg.DefaultPassMark < 0 || cfg.DefaultPassMark > 100 {
		return Config{}, fmt.Errorf("default pass mark must be between 0 and 100, got %v", cfg.DefaultPassMark)
	}

	return cfg, nil
}
