package common

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	OCR       OCRConfig
	Schedule  ScheduleConfig
	Ingest    IngestConfig
	LogLevel  string `validate:"oneof=debug info warn error"`
	MaxUpload int64  `validate:"gt=0"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Driver           string `validate:"oneof=postgres sqlite"`
	DSN              string `validate:"required_if=Driver postgres"`
	MaxConns         int32  `validate:"gte=1"`
	MinConns         int32  `validate:"gte=0,ltefield=MaxConns"`
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string `validate:"required"`
}

// OCRConfig holds text extraction configuration
type OCRConfig struct {
	PdftotextBin      string `validate:"required"`
	TesseractBin      string `validate:"required"`
	TesseractLang     string `validate:"required"`
	TessdataDir       string
	PSM               int `validate:"gte=0,lte=13"`
	MaxImageDimension int `validate:"gte=256"`
}

// ScheduleConfig holds recommendation settings
type ScheduleConfig struct {
	File        string
	MatchPolicy string `validate:"oneof=last latest"`
	// DefaultSubjectAge is used when a subject has no birth date; -1 means the
	// caller must supply an age.
	DefaultSubjectAge int `validate:"gte=-1,lte=150"`
}

// IngestConfig holds inbox / batch settings
type IngestConfig struct {
	InboxDir         string
	InboxSubject     string `validate:"required_with=InboxDir"` // subject name inbox files are filed under
	InboxDebounce    time.Duration
	Workers          int `validate:"gte=1,lte=64"`
	DeleteAfterStore bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:           strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
		},
		OCR: OCRConfig{
			PdftotextBin:      getEnv("PDFTOTEXT_BIN", "pdftotext"),
			TesseractBin:      getEnv("TESSERACT_BIN", "tesseract"),
			TesseractLang:     getEnv("TESSERACT_LANG", "eng"),
			TessdataDir:       getEnv("TESSDATA_PREFIX", ""),
			PSM:               getEnvAsInt("OCR_PSM", 6),
			MaxImageDimension: getEnvAsInt("OCR_MAX_IMAGE_DIM", 2000),
		},
		Schedule: ScheduleConfig{
			File:              getEnv("SCHEDULE_FILE", ""),
			MatchPolicy:       strings.ToLower(getEnv("RECOMMEND_MATCH_POLICY", "last")),
			DefaultSubjectAge: getEnvAsInt("DEFAULT_SUBJECT_AGE", -1),
		},
		Ingest: IngestConfig{
			InboxDir:         getEnv("INBOX_DIR", ""),
			InboxSubject:     getEnv("INBOX_SUBJECT", "inbox"),
			InboxDebounce:    getEnvAsDuration("INBOX_DEBOUNCE", 500*time.Millisecond),
			Workers:          getEnvAsInt("INGEST_WORKERS", 4),
			DeleteAfterStore: getEnvAsBool("DELETE_AFTER_STORE", false),
		},
		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		MaxUpload: int64(getEnvAsInt("MAX_UPLOAD_BYTES", 5<<20)),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if err := ValidateStruct(c); err != nil {
		return NewAppError("CONFIG_ERROR", "invalid configuration", err)
	}
	return nil
}

// SlogLevel maps LogLevel onto slog levels; unknown values mean info.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds the process logger: text to stderr at the configured level.
func NewLogger(c *Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.SlogLevel()}))
}
