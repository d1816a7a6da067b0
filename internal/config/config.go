package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Inngest  InngestConfig
	Logging  LoggingConfig
	Email    EmailConfig
	Storage  StorageConfig
	Supabase SupabaseConfig
	Twilio   TwilioConfig
	Sarvam   SarvamConfig
	Claude   ClaudeConfig
	Worker   WorkerConfig
	PDF      PDFConfig
	Admin    AdminConfig
}

// ServerConfig holds the HTTP server settings
type ServerConfig struct {
	Port    string
	Host    string
	Env     string
	BaseURL string
}

// DatabaseConfig holds the PostgreSQL settings. Driver "memory" keeps the ledger in process.
type DatabaseConfig struct {
	Driver   string
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Timeout  time.Duration
}

// RedisConfig holds the Redis settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
	LockTTL  time.Duration
	DedupTTL time.Duration
}

// InngestConfig holds the Inngest event client settings
type InngestConfig struct {
	EventKey   string
	SigningKey string
	AppID      string
	Dev        bool
}

// LoggingConfig holds the logger settings
type LoggingConfig struct {
	Level  string
	Format string
}

// EmailConfig holds the Resend settings used for accountant copies
type EmailConfig struct {
	ResendAPIKey string
	From         string
}

// StorageConfig holds the local fallback storage settings
type StorageConfig struct {
	Type   string
	Path   string
	Bucket string
}

// SupabaseConfig holds the Supabase storage settings
type SupabaseConfig struct {
	URL             string
	ServiceKey      string
	StorageEndpoint string
	StorageRegion   string
	AccessKeyID     string
	SecretAccessKey string
}

// TwilioConfig holds the WhatsApp transport settings
type TwilioConfig struct {
	AccountSID     string
	AuthToken      string
	WhatsAppNumber string
	ValidateHooks  bool
	WebhookURL     string
	MaxRetries     int
}

// SarvamConfig holds the speech-to-text settings
type SarvamConfig struct {
	APIKey         string
	URL            string
	Model          string
	SourceLanguage string
	Timeout        time.Duration
	MaxRetries     int
}

// ClaudeConfig holds the LLM extraction settings
type ClaudeConfig struct {
	APIKey     string
	URL        string
	Model      string
	MaxTokens  int
	Timeout    time.Duration
	MaxRetries int
}

// WorkerConfig holds the background task runner settings
type WorkerConfig struct {
	Count       int
	QueueSize   int
	TaskTimeout time.Duration
}

// PDFConfig holds the document rendering settings
type PDFConfig struct {
	Verify bool
}

// AdminConfig holds the admin API settings
type AdminConfig struct {
	APIKey string
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	// A missing .env file is fine
	_ = godotenv.Load()

	config := &Config{
		Server: ServerConfig{
			Port:    getEnv("PORT", "8080"),
			Host:    getEnv("SERVER_HOST", "0.0.0.0"),
			Env:     getEnv("SERVER_ENV", "development"),
			BaseURL: getEnv("SERVER_BASE_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("PGHOST", "localhost"),
			Port:     getEnv("PGPORT", "5432"),
			User:     getEnv("PGUSER", "postgres"),
			Password: getEnv("PGPASSWORD", "postgres"),
			Name:     getEnv("PGDATABASE", "gutinvoice"),
			SSLMode:  getEnv("DB_SSLMODE", "require"),
			Timeout:  getEnvAsDuration("DB_TIMEOUT", 10*time.Second),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			LockTTL:  getEnvAsDuration("REDIS_LOCK_TTL", 2*time.Minute),
			DedupTTL: getEnvAsDuration("REDIS_DEDUP_TTL", 24*time.Hour),
		},
		Inngest: InngestConfig{
			EventKey:   getEnv("INNGEST_EVENT_KEY", ""),
			SigningKey: getEnv("INNGEST_SIGNING_KEY", ""),
			AppID:      getEnv("INNGEST_APP_ID", "gutinvoice"),
			Dev:        getEnvAsBool("INNGEST_DEV", true),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			From:         getEnv("EMAIL_FROM", "GutInvoice <reports@gutinvoice.in>"),
		},
		Storage: StorageConfig{
			Type:   getEnv("STORAGE_TYPE", "supabase"),
			Path:   getEnv("STORAGE_PATH", "./storage"),
			Bucket: getEnv("STORAGE_BUCKET", "invoices"),
		},
		Supabase: SupabaseConfig{
			URL:             strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
			ServiceKey:      getEnv("SUPABASE_KEY", ""),
			StorageEndpoint: getEnv("SUPABASE_STORAGE_ENDPOINT", ""),
			StorageRegion:   getEnv("SUPABASE_STORAGE_REGION", "ap-south-1"),
			AccessKeyID:     getEnv("SUPABASE_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("SUPABASE_SECRET_ACCESS_KEY", ""),
		},
		Twilio: TwilioConfig{
			AccountSID:     getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:      getEnv("TWILIO_AUTH_TOKEN", ""),
			WhatsAppNumber: getEnv("TWILIO_WHATSAPP_NUMBER", ""),
			ValidateHooks:  getEnvAsBool("TWILIO_VALIDATE", false),
			WebhookURL:     getEnv("TWILIO_WEBHOOK_URL", ""),
			MaxRetries:     getEnvAsInt("TWILIO_MAX_RETRIES", 3),
		},
		Sarvam: SarvamConfig{
			APIKey:         getEnv("SARVAM_API_KEY", ""),
			URL:            getEnv("SARVAM_URL", "https://api.sarvam.ai/speech-to-text-translate"),
			Model:          getEnv("SARVAM_MODEL", "saaras:v2.5"),
			SourceLanguage: getEnv("SARVAM_SOURCE_LANGUAGE", "te-IN"),
			Timeout:        getEnvAsDuration("SARVAM_TIMEOUT", 60*time.Second),
			MaxRetries:     getEnvAsInt("SARVAM_MAX_RETRIES", 2),
		},
		Claude: ClaudeConfig{
			APIKey:     getEnv("CLAUDE_API_KEY", ""),
			URL:        getEnv("CLAUDE_URL", "https://api.anthropic.com"),
			Model:      getEnv("CLAUDE_MODEL", "claude-sonnet-4-20250514"),
			MaxTokens:  getEnvAsInt("CLAUDE_MAX_TOKENS", 2000),
			Timeout:    getEnvAsDuration("CLAUDE_TIMEOUT", 60*time.Second),
			MaxRetries: getEnvAsInt("CLAUDE_MAX_RETRIES", 2),
		},
		Worker: WorkerConfig{
			Count:       getEnvAsInt("WORKER_COUNT", 4),
			QueueSize:   getEnvAsInt("WORKER_QUEUE_SIZE", 64),
			TaskTimeout: getEnvAsDuration("WORKER_TASK_TIMEOUT", 3*time.Minute),
		},
		PDF: PDFConfig{
			Verify: getEnvAsBool("PDF_VERIFY", false),
		},
		Admin: AdminConfig{
			APIKey: getEnv("ADMIN_API_KEY", ""),
		},
	}

	return config, nil
}

// getEnv returns an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt returns an environment variable parsed as int
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool returns an environment variable parsed as bool
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration returns an environment variable parsed as a duration
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// IsDevelopment reports whether the service runs in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// UsesMemoryStore reports whether the ledger is kept in process
func (c *Config) UsesMemoryStore() bool {
	return c.Database.Driver == "memory"
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return "host=" + c.Database.Host +
		" port=" + c.Database.Port +
		" user=" + c.Database.User +
		" password=" + c.Database.Password +
		" dbname=" + c.Database.Name +
		" sslmode=" + c.Database.SSLMode
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return c.Redis.Host + ":" + c.Redis.Port
}

// SupabaseStorageEndpoint returns the S3 endpoint for Supabase storage
func (c *Config) SupabaseStorageEndpoint() string {
	if c.Supabase.StorageEndpoint != "" {
		return c.Supabase.StorageEndpoint
	}
	if c.Supabase.URL == "" {
		return ""
	}
	return c.Supabase.URL + "/storage/v1/s3"
}

// HasSupabase reports whether Supabase storage credentials are present
func (c *Config) HasSupabase() bool {
	return c.Supabase.URL != "" && c.Supabase.AccessKeyID != "" && c.Supabase.SecretAccessKey != ""
}
