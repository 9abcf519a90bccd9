package common

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joseph-ayodele/forest-rights-tracker/constants"
)

// Config holds all application configuration
type Config struct {
	Store     StoreConfig
	Server    ServerConfig
	OCR       OCRConfig
	Catalog   CatalogConfig
	Recommend RecommendConfig
	Ingest    IngestConfig
}

// StoreConfig selects and configures the claim store.
type StoreConfig struct {
	Driver           string // memory | sqlite | postgres
	SQLitePath       string
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr        string
	HTTPAddr        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine      string // cli | gosseract
	Tesseract   string
	Pdftoppm    string
	Language    string
	TessdataDir string
	DPI         int
	MaxPages    int
	PageWorkers int
	PSM         int // tesseract page segmentation mode; 0 keeps the default
	OEM         int // tesseract engine mode; 0 keeps the default
}

// CatalogConfig points at the scheme catalog; empty path means the embedded default.
type CatalogConfig struct {
	Path string
}

// RecommendConfig holds scoring thresholds.
type RecommendConfig struct {
	MinScore float64
	Limit    int
}

// IngestConfig holds upload limits and the optional directory watcher.
type IngestConfig struct {
	MaxBytes       int64
	WatchDirs      []string
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
	Debounce       time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:           getEnv("STORE_DRIVER", "memory"),
			SQLitePath:       getEnv("SQLITE_PATH", "./claims.db"),
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 2),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			GRPCAddr:        getEnv("GRPC_ADDR", ":8080"),
			HTTPAddr:        getEnv("HTTP_ADDR", ":8000"),
			RequestTimeout:  getEnvAsDuration("HTTP_REQUEST_TIMEOUT", 2*time.Minute),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		OCR: OCRConfig{
			Engine:      getEnv("OCR_ENGINE", "cli"),
			Tesseract:   getEnv("TESSERACT_BIN", "tesseract"),
			Pdftoppm:    getEnv("PDFTOPPM_BIN", "pdftoppm"),
			Language:    getEnv("OCR_LANG", "eng"),
			TessdataDir: getEnv("TESSDATA_PREFIX", ""),
			DPI:         getEnvAsInt("OCR_DPI", 300),
			MaxPages:    getEnvAsInt("OCR_MAX_PAGES", 50),
			PageWorkers: getEnvAsInt("OCR_PAGE_WORKERS", 4),
			PSM:         getEnvAsInt("OCR_PSM", 0),
			OEM:         getEnvAsInt("OCR_OEM", 0),
		},
		Catalog: CatalogConfig{
			Path: getEnv("SCHEME_CATALOG", ""),
		},
		Recommend: RecommendConfig{
			MinScore: getEnvAsFloat64("RECOMMEND_MIN_SCORE", 0.3),
			Limit:    getEnvAsInt("RECOMMEND_LIMIT", 5),
		},
		Ingest: IngestConfig{
			MaxBytes:       int64(getEnvAsInt("UPLOAD_MAX_BYTES", int(constants.MaxUploadBytes))),
			WatchDirs:      getEnvAsList("WATCH_DIRS"),
			Workers:        getEnvAsInt("INGEST_WORKERS", 4),
			QueueSize:      getEnvAsInt("INGEST_QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("INGEST_PROCESS_TIMEOUT", 3*time.Minute),
			Debounce:       getEnvAsDuration("WATCH_DEBOUNCE", 500*time.Millisecond),
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

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
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

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory":
	case "sqlite":
		if c.Store.SQLitePath == "" {
			return NewAppError(CodeConfig, "SQLITE_PATH is required for the sqlite store", ErrInvalidInput)
		}
	case "postgres":
		if c.Store.DSN == "" {
			return NewAppError(CodeConfig, "DB_URL is required for the postgres store", ErrInvalidInput)
		}
	default:
		return NewAppError(CodeConfig, "STORE_DRIVER must be one of memory, sqlite, postgres", ErrInvalidInput)
	}
	if c.Server.GRPCAddr == "" && c.Server.HTTPAddr == "" {
		return NewAppError(CodeConfig, "at least one of GRPC_ADDR or HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.OCR.Engine != "cli" && c.OCR.Engine != "gosseract" {
		return NewAppError(CodeConfig, "OCR_ENGINE must be cli or gosseract", ErrInvalidInput)
	}
	if c.Recommend.MinScore < 0 || c.Recommend.MinScore > 1 {
		return NewAppError(CodeConfig, "RECOMMEND_MIN_SCORE must be within [0,1]", ErrInvalidInput)
	}
	if c.Ingest.MaxBytes <= 0 {
		return NewAppError(CodeConfig, "UPLOAD_MAX_BYTES must be positive", ErrInvalidInput)
	}
	return nil
}
