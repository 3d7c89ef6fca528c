package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database      DatabaseConfig
	Redis         RedisConfig
	CORS          CORSConfig
	Log           LogConfig
	Payments      PaymentsConfig
	Notifications NotificationsConfig
	Intake        IntakeConfig
	Exports       ExportsConfig
	YearDetails   YearDetailsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// PaymentsConfig tunes the overdue heuristic. The defaults mirror the
// long-standing 3 month / 50% rule; both knobs exist so the policy can be
// adjusted without a code change.
type PaymentsConfig struct {
	OverdueGraceMonths int
	OverdueMinRatio    float64
}

// NotificationsConfig configures the dispatch queue and the optional
// admin email fan-out.
type NotificationsConfig struct {
	Workers      int
	BufferSize   int
	MaxRetries   int
	RetryDelay   time.Duration
	EmailEnabled bool
	SMTPAddr     string
	SMTPFrom     string
	AdminEmails  []string
	SendTimeout  time.Duration
}

// IntakeConfig governs application import defaults.
type IntakeConfig struct {
	DefaultTotalFees float64
}

// ExportsConfig bounds statement rendering.
type ExportsConfig struct {
	RenderTimeout time.Duration
}

// YearDetailsConfig tunes the cached academic-year detail view.
type YearDetailsConfig struct {
	CacheTTL time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Payments = PaymentsConfig{
		OverdueGraceMonths: v.GetInt("PAYMENTS_OVERDUE_GRACE_MONTHS"),
		OverdueMinRatio:    v.GetFloat64("PAYMENTS_OVERDUE_MIN_RATIO"),
	}

	cfg.Notifications = NotificationsConfig{
		Workers:      v.GetInt("NOTIFICATIONS_WORKERS"),
		BufferSize:   v.GetInt("NOTIFICATIONS_BUFFER_SIZE"),
		MaxRetries:   v.GetInt("NOTIFICATIONS_MAX_RETRIES"),
		RetryDelay:   parseDuration(v.GetString("NOTIFICATIONS_RETRY_DELAY"), time.Second),
		EmailEnabled: v.GetBool("NOTIFICATIONS_EMAIL_ENABLED"),
		SMTPAddr:     v.GetString("NOTIFICATIONS_SMTP_ADDR"),
		SMTPFrom:     v.GetString("NOTIFICATIONS_SMTP_FROM"),
		AdminEmails:  splitAndTrim(v.GetString("NOTIFICATIONS_ADMIN_EMAILS")),
		SendTimeout:  parseDuration(v.GetString("NOTIFICATIONS_SEND_TIMEOUT"), 5*time.Second),
	}

	cfg.Intake = IntakeConfig{
		DefaultTotalFees: v.GetFloat64("INTAKE_DEFAULT_TOTAL_FEES"),
	}

	cfg.Exports = ExportsConfig{
		RenderTimeout: parseDuration(v.GetString("EXPORTS_RENDER_TIMEOUT"), 10*time.Second),
	}

	cfg.YearDetails = YearDetailsConfig{
		CacheTTL: parseDuration(v.GetString("YEAR_DETAILS_CACHE_TTL"), 5*time.Minute),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "golden_light_bo")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("PAYMENTS_OVERDUE_GRACE_MONTHS", 3)
	v.SetDefault("PAYMENTS_OVERDUE_MIN_RATIO", 0.5)

	v.SetDefault("NOTIFICATIONS_WORKERS", 2)
	v.SetDefault("NOTIFICATIONS_BUFFER_SIZE", 64)
	v.SetDefault("NOTIFICATIONS_MAX_RETRIES", 3)
	v.SetDefault("NOTIFICATIONS_RETRY_DELAY", "1s")
	v.SetDefault("NOTIFICATIONS_EMAIL_ENABLED", false)
	v.SetDefault("NOTIFICATIONS_SMTP_ADDR", "localhost:25")
	v.SetDefault("NOTIFICATIONS_SMTP_FROM", "noreply@goldenlight.local")
	v.SetDefault("NOTIFICATIONS_ADMIN_EMAILS", "")
	v.SetDefault("NOTIFICATIONS_SEND_TIMEOUT", "5s")

	v.SetDefault("INTAKE_DEFAULT_TOTAL_FEES", 0)

	v.SetDefault("EXPORTS_RENDER_TIMEOUT", "10s")
	v.SetDefault("YEAR_DETAILS_CACHE_TTL", "5m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
