package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	AWS          AWSConfig
	Email        EmailConfig
	Planner      PlannerConfig
	Campaign     CampaignConfig
	Integrations IntegrationsConfig
	Metrics      MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	PublicBaseURL      string // used to build public proposal links
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/commandcentered?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and the bucket for uploaded files.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	FilesBucket          string
	PresignExpireMinutes int
}

// EmailConfig for SMTP delivery of campaign steps.
type EmailConfig struct {
	FromAddress string
	FromName    string
	SMTPHost    string
	SMTPPort    int
	SMTPUser    string
	SMTPPass    string
}

// PlannerConfig holds the calendar drag-and-drop defaults. The pay defaults apply only
// to planner drops; direct assignment requires explicit pay fields.
type PlannerConfig struct {
	DefaultHourlyRate decimal.Decimal
	DefaultHours      decimal.Decimal
	DefaultShiftStart string // HH:MM
	DefaultShiftEnd   string // HH:MM
	DefaultShiftName  string
}

// CampaignConfig holds the campaign dispatcher schedule (worker only).
type CampaignConfig struct {
	DispatchCron string
}

// IntegrationsConfig holds third-party credentials. Empty values leave the integration unconfigured.
type IntegrationsConfig struct {
	GoogleCredentialsFile string
	DriveParentFolderID   string
	LivestreamAPIURL      string
	LivestreamAPIToken    string
	EnrichmentAPIURL      string
	EnrichmentAPIKey      string
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	rate, err := getEnvDecimal("PLANNER_DEFAULT_HOURLY_RATE", "50")
	if err != nil {
		return nil, err
	}
	hours, err := getEnvDecimal("PLANNER_DEFAULT_HOURS", "8")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			PublicBaseURL:      strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "commandcentered"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvInt("DB_MAX_CONNS", 10),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", ""),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			FilesBucket:          getEnv("AWS_S3_FILES_BUCKET", ""),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		Email: EmailConfig{
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:    getEnv("EMAIL_FROM_NAME", "CommandCentered"),
			SMTPHost:    getEnv("SMTP_HOST", ""),
			SMTPPort:    getEnvInt("SMTP_PORT", 587),
			SMTPUser:    getEnv("SMTP_USER", ""),
			SMTPPass:    getEnv("SMTP_PASS", ""),
		},
		Planner: PlannerConfig{
			DefaultHourlyRate: rate,
			DefaultHours:      hours,
			DefaultShiftStart: getEnv("PLANNER_DEFAULT_SHIFT_START", "09:00"),
			DefaultShiftEnd:   getEnv("PLANNER_DEFAULT_SHIFT_END", "17:00"),
			DefaultShiftName:  getEnv("PLANNER_DEFAULT_SHIFT_NAME", "Main Shift"),
		},
		Campaign: CampaignConfig{
			DispatchCron: getEnv("CAMPAIGN_DISPATCH_CRON", "*/15 * * * *"),
		},
		Integrations: IntegrationsConfig{
			GoogleCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
			DriveParentFolderID:   getEnv("GOOGLE_DRIVE_PARENT_FOLDER_ID", ""),
			LivestreamAPIURL:      getEnv("LIVESTREAM_API_URL", "https://api.vimeo.com"),
			LivestreamAPIToken:    getEnv("LIVESTREAM_API_TOKEN", ""),
			EnrichmentAPIURL:      getEnv("ENRICHMENT_API_URL", "https://api.apollo.io/v1"),
			EnrichmentAPIKey:      getEnv("ENRICHMENT_API_KEY", ""),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
		},
	}
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDecimal(key, fallback string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
