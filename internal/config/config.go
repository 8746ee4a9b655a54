package config

import (
	"os"
	"strconv"
	"time"
)

// DatabaseConfig holds PostgreSQL database connection settings.
type DatabaseConfig struct {
	Host               string
	Port               string
	User               string
	Password           string
	Name               string
	SSLMode            string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeSec int
}

// ScannerConfig holds malware scanner settings. The scanner is an external,
// possibly-unavailable process; Timeout and MaxRetries bound how long a single
// upload may block on it before the pipeline fails closed.
type ScannerConfig struct {
	Command    string        // clamscan binary (or compatible)
	TempDir    string        // staging directory for files under scan
	Timeout    time.Duration // per-attempt wall clock bound
	MaxRetries int           // retries after the first attempt, ERROR outcomes only
	Backoff    time.Duration // linear backoff between attempts
}

// UploadConfig holds ingestion policy settings.
type UploadConfig struct {
	MaxSizeBytes int64
	StrictDedup  bool // reject uploads whose content digest already exists
}

// AuthConfig holds settings for consuming already-issued bearer tokens.
// Token issuance belongs to the authentication subsystem, not this service.
type AuthConfig struct {
	JWTSecret string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost  string
	Port     string
	Database DatabaseConfig
	Scanner  ScannerConfig
	Upload   UploadConfig
	Auth     AuthConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost: getEnv("APP_HOST", "localhost:8080"),
		Port:    getEnv("PORT", "8080"), // default only for non-sensitive value
		Database: DatabaseConfig{
			Host:               getEnv("DB_HOST", ""),
			Port:               getEnv("DB_PORT", "5432"),
			User:               getEnv("DB_USER", ""),
			Password:           getEnv("DB_PASSWORD", ""),
			Name:               getEnv("DB_NAME", ""),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetimeSec: getEnvInt("DB_CONN_MAX_LIFETIME_SEC", 300),
		},
		Scanner: ScannerConfig{
			Command:    getEnv("SCANNER_COMMAND", "clamscan"),
			TempDir:    getEnv("SCANNER_TMP_DIR", os.TempDir()),
			Timeout:    time.Duration(getEnvInt("SCANNER_TIMEOUT_SEC", 60)) * time.Second,
			MaxRetries: getEnvInt("SCANNER_MAX_RETRIES", 2),
			Backoff:    time.Duration(getEnvInt("SCANNER_BACKOFF_MS", 500)) * time.Millisecond,
		},
		Upload: UploadConfig{
			MaxSizeBytes: int64(getEnvInt("UPLOAD_MAX_SIZE_BYTES", 10*1024*1024)),
			StrictDedup:  getEnvBool("UPLOAD_STRICT_DEDUP", false),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
