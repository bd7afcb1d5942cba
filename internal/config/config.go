package config

import (
	"os"
	"strconv"
	"strings"
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

// Enabled reports whether a database host is configured. Without one the
// stores fall back to memory.
func (c DatabaseConfig) Enabled() bool { return c.Host != "" }

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// RedisConfig selects the shared session store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LLMConfig points at the Ollama-compatible generation endpoint.
type LLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// BreakerConfig applies to every dependency breaker.
type BreakerConfig struct {
	FailureThreshold int
	Cooldown         time.Duration
	CallTimeout      time.Duration
}

// SessionConfig bounds interactive sessions.
type SessionConfig struct {
	// Store is "memory" or "redis".
	Store           string
	TTL             time.Duration
	MaxActions      int
	CleanupInterval time.Duration
}

// LimitsConfig are the document size ceilings.
type LimitsConfig struct {
	MaxDocuments       int
	MaxPages           int
	MaxCharacters      int
	MaxBytes           int64
	MaxTotalCharacters int
	// BatchStrategy is "reject" or "truncate".
	BatchStrategy string
}

// AuditConfig configures the rotating audit trail file.
type AuditConfig struct {
	FilePath   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// AuthConfig holds the bearer token verification settings.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// AppConfig is the centralized configuration struct for the application.
// It is populated from environment variables. Sensitive values are not hardcoded.
type AppConfig struct {
	AppHost        string
	Port           string
	Version        string
	LogLevel       string
	LogFile        string
	Production     bool
	RBACConfigPath string
	// DocumentRoots are local directories documents may be read from. When
	// empty, documents are read from object storage.
	DocumentRoots  []string
	DocumentPrefix string
	Database       DatabaseConfig
	MinIO          MinIOConfig
	Redis          RedisConfig
	LLM            LLMConfig
	Breaker        BreakerConfig
	Session        SessionConfig
	Limits         LimitsConfig
	Audit          AuditConfig
	Auth           AuthConfig
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
// This function does not require a .env file; real environment variables take precedence.
func Load() *AppConfig {
	return &AppConfig{
		AppHost:        getEnv("APP_HOST", "localhost:8080"),
		Port:           getEnv("PORT", "8080"), // default only for non-sensitive value
		Version:        getEnv("APP_VERSION", "dev"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFile:        getEnv("LOG_FILE", ""),
		Production:     getEnvBool("APP_PRODUCTION", false),
		RBACConfigPath: getEnv("RBAC_CONFIG_PATH", ""),
		DocumentRoots:  getEnvList("DOCUMENT_ROOTS"),
		DocumentPrefix: getEnv("DOCUMENT_PREFIX", "documents"),
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
		MinIO: MinIOConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", ""),
			UseSSL:    getEnvBool("MINIO_USE_SSL", false),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		LLM: LLMConfig{
			BaseURL: getEnv("LLM_BASE_URL", "http://localhost:11434"),
			Model:   getEnv("LLM_MODEL", "llama3.1"),
			Timeout: getEnvDuration("LLM_TIMEOUT", 60*time.Second),
		},
		Breaker: BreakerConfig{
			FailureThreshold: getEnvInt("BREAKER_FAILURE_THRESHOLD", 5),
			Cooldown:         getEnvDuration("BREAKER_COOLDOWN", 30*time.Second),
			CallTimeout:      getEnvDuration("BREAKER_CALL_TIMEOUT", 90*time.Second),
		},
		Session: SessionConfig{
			Store:           getEnv("SESSION_STORE", "memory"),
			TTL:             getEnvDuration("SESSION_TTL", 30*time.Minute),
			MaxActions:      getEnvInt("SESSION_MAX_ACTIONS", 100),
			CleanupInterval: getEnvDuration("SESSION_CLEANUP_INTERVAL", 5*time.Minute),
		},
		Limits: LimitsConfig{
			MaxDocuments:       getEnvInt("LIMIT_MAX_DOCUMENTS", 10),
			MaxPages:           getEnvInt("LIMIT_MAX_PAGES", 50),
			MaxCharacters:      getEnvInt("LIMIT_MAX_CHARACTERS", 100_000),
			MaxBytes:           int64(getEnvInt("LIMIT_MAX_BYTES", 10<<20)),
			MaxTotalCharacters: getEnvInt("LIMIT_MAX_TOTAL_CHARACTERS", 250_000),
			BatchStrategy:      getEnv("LIMIT_BATCH_STRATEGY", "reject"),
		},
		Audit: AuditConfig{
			FilePath:   getEnv("AUDIT_LOG_FILE", "logs/security-audit.log"),
			MaxSizeMB:  getEnvInt("AUDIT_LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvInt("AUDIT_LOG_MAX_BACKUPS", 30),
			MaxAgeDays: getEnvInt("AUDIT_LOG_MAX_AGE_DAYS", 365),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", ""),
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

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err == nil {
			return d
		}
	}
	return def
}

// getEnvList splits a comma-separated value, dropping empty entries.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
