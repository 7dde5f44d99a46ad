// Package config collects runtime settings from the environment.
package config

import (
	"visionboard-backend/internal/utils"
)

// Config holds runtime settings for the vision board server.
type Config struct {
	Port        string
	DatabaseURL string

	S3AccessKey  string
	S3SecretKey  string
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	S3PublicBase string
	MaxUploadMB  int
	MaxVideoMB   int
}

// Load reads configuration from the environment, falling back to
// development defaults. utils.LoadEnv should be called first so a local
// .env file is honored.
func Load() *Config {
	cfg := &Config{
		Port:        utils.GetEnv("PORT", "3001"),
		DatabaseURL: utils.GetEnv("DATABASE_URL", ""),

		S3AccessKey:  utils.GetEnv("S3_ACCESS_KEY", "minioadmin"),
		S3SecretKey:  utils.GetEnv("S3_SECRET_KEY", "minioadmin"),
		S3Bucket:     utils.GetEnv("S3_BUCKET", "vision-boards"),
		S3Region:     utils.GetEnv("S3_REGION", "us-east-1"),
		S3Endpoint:   utils.GetEnv("S3_ENDPOINT", "http://localhost:9000"),
		S3PublicBase: utils.GetEnv("S3_PUBLIC_BASE", ""),
		MaxUploadMB:  utils.GetEnvInt("MAX_UPLOAD_MB", 10),
		MaxVideoMB:   utils.GetEnvInt("MAX_VIDEO_MB", 100),
	}

	if cfg.DatabaseURL == "" {
		// Fallback to individual vars
		cfg.DatabaseURL = "postgres://" + utils.GetEnv("POSTGRES_USER", "postgres") + ":" +
			utils.GetEnv("POSTGRES_PASSWORD", "postgres") + "@" +
			utils.GetEnv("POSTGRES_HOST", "localhost") + ":" +
			utils.GetEnv("POSTGRES_PORT", "5432") + "/" +
			utils.GetEnv("POSTGRES_DB", "visionboard") + "?sslmode=disable"
	}

	if cfg.S3PublicBase == "" {
		// Public URLs default to path-style access against the endpoint.
		cfg.S3PublicBase = cfg.S3Endpoint + "/" + cfg.S3Bucket
	}

	return cfg
}
