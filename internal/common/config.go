package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Stage    StageConfig
	Upload   UploadConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver          string // "sqlite" or "pgx"
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string
	GRPCAddr       string
	AllowedOrigins []string
	LogJSON        bool
}

// StageConfig holds the location of the extraction stage services.
type StageConfig struct {
	Transport  string // "http" or "grpc"
	BaseURL    string
	GRPCTarget string
	Timeout    time.Duration
}

// UploadConfig holds upload collaborator configuration
type UploadConfig struct {
	Backend        string // "remote", "fs" or "gcs"
	Dir            string
	Bucket         string
	MaxUploadBytes int64
}

// LoadConfig loads configuration from environment variables, reading a .env
// file first when one is present.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("config.dotenv.load_failed", "error", err)
	}
	return &Config{
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
			DSN:             getEnv("DB_URL", "file:filings.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8000"),
			GRPCAddr:       getEnv("GRPC_ADDR", ":8081"),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
			LogJSON:        getEnvAsBool("LOG_JSON", false),
		},
		Stage: StageConfig{
			Transport:  strings.ToLower(getEnv("STAGE_TRANSPORT", "http")),
			BaseURL:    getEnv("STAGE_BASE_URL", "http://localhost:9000"),
			GRPCTarget: getEnv("STAGE_GRPC_TARGET", "localhost:9001"),
			Timeout:    getEnvAsDuration("STAGE_TIMEOUT", 2*time.Minute),
		},
		Upload: UploadConfig{
			Backend:        strings.ToLower(getEnv("UPLOAD_BACKEND", "remote")),
			Dir:            getEnv("UPLOAD_DIR", "./tmp/uploads"),
			Bucket:         getEnv("UPLOAD_BUCKET", ""),
			MaxUploadBytes: getEnvAsInt64("MAX_UPLOAD_MB", 50) * 1024 * 1024,
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "pgx":
	default:
		return NewAppError("CONFIG_ERROR", "DB_DRIVER must be sqlite or pgx", ErrInvalidInput)
	}
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	switch c.Stage.Transport {
	case "http":
		if c.Stage.BaseURL == "" {
			return NewAppError("CONFIG_ERROR", "STAGE_BASE_URL is required", ErrInvalidInput)
		}
	case "grpc":
		if c.Stage.GRPCTarget == "" {
			return NewAppError("CONFIG_ERROR", "STAGE_GRPC_TARGET is required", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "STAGE_TRANSPORT must be http or grpc", ErrInvalidInput)
	}
	switch c.Upload.Backend {
	case "remote", "fs":
	case "gcs":
		if c.Upload.Bucket == "" {
			return NewAppError("CONFIG_ERROR", "UPLOAD_BUCKET is required for gcs uploads", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "UPLOAD_BACKEND must be remote, fs or gcs", ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
