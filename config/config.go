package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	DatabaseURL  string
	JWTSecretKey string
	ServerPort   int
	Environment  string
	LogLevel     string

	RedisURL string

	ExpirySweepInterval time.Duration
	TournamentRetention time.Duration
	PollInterval        time.Duration

	CORSAllowedOrigins []string

	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicBaseURL   string
}

// ArchiveEnabled reports whether enough R2 settings are present to upload
// results.
func (c *Config) ArchiveEnabled() bool {
	return c.R2AccountID != "" && c.R2AccessKeyID != "" && c.R2SecretAccessKey != "" && c.R2BucketName != ""
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("EXPIRY_SWEEP_INTERVAL", "5m")
	v.SetDefault("TOURNAMENT_RETENTION", "24h")
	v.SetDefault("POLL_INTERVAL", "5s")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	return v
}

// FromViper builds and validates a Config from an already populated viper
// instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabaseURL:         v.GetString("DATABASE_URL"),
		JWTSecretKey:        v.GetString("JWT_SECRET_KEY"),
		ServerPort:          v.GetInt("SERVER_PORT"),
		Environment:         v.GetString("ENVIRONMENT"),
		LogLevel:            v.GetString("LOG_LEVEL"),
		RedisURL:            v.GetString("REDIS_URL"),
		ExpirySweepInterval: v.GetDuration("EXPIRY_SWEEP_INTERVAL"),
		TournamentRetention: v.GetDuration("TOURNAMENT_RETENTION"),
		PollInterval:        v.GetDuration("POLL_INTERVAL"),
		CORSAllowedOrigins:  splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		R2AccountID:         v.GetString("R2_ACCOUNT_ID"),
		R2AccessKeyID:       v.GetString("R2_ACCESS_KEY_ID"),
		R2SecretAccessKey:   v.GetString("R2_SECRET_ACCESS_KEY"),
		R2BucketName:        v.GetString("R2_BUCKET_NAME"),
		R2PublicBaseURL:     v.GetString("R2_PUBLIC_BASE_URL"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	if cfg.JWTSecretKey == "" {
		return nil, fmt.Errorf("JWT_SECRET_KEY environment variable is not set")
	}
	if cfg.ServerPort <= 0 || cfg.ServerPort > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", cfg.ServerPort)
	}
	if cfg.ExpirySweepInterval <= 0 {
		return nil, fmt.Errorf("EXPIRY_SWEEP_INTERVAL must be positive")
	}
	if cfg.TournamentRetention <= 0 {
		return nil, fmt.Errorf("TOURNAMENT_RETENTION must be positive")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL must be positive")
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
