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

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	Occurrences OccurrencesConfig
	Cache       CacheConfig
	Purge       PurgeConfig
	Exports     ExportsConfig
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
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig holds the shared secret used to verify bearer tokens. Tokens are issued elsewhere.
type JWTConfig struct {
	Secret string
	Issuer string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// OccurrencesConfig tunes listing and expansion of recurring series.
type OccurrencesConfig struct {
	MaxRangeDays      int
	DefaultPageSize   int
	MaxPageSize       int
	ExpansionWorkers  int
	Timezone          string
	PreviewMaxDates   int
	CalendarMaxSeries int
}

// CacheConfig governs the redis cache in front of occurrence listings.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
}

// PurgeConfig schedules hard deletion of long soft-deleted series.
type PurgeConfig struct {
	Enabled       bool
	Schedule      string
	Retention     time.Duration
	WorkerRetries int
}

// ExportsConfig toggles agenda exports.
type ExportsConfig struct {
	Enabled bool
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
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
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
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret: v.GetString("JWT_SECRET"),
		Issuer: v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Occurrences = OccurrencesConfig{
		MaxRangeDays:      positiveOr(v.GetInt("OCCURRENCES_MAX_RANGE_DAYS"), 366),
		DefaultPageSize:   positiveOr(v.GetInt("OCCURRENCES_DEFAULT_PAGE_SIZE"), 50),
		MaxPageSize:       positiveOr(v.GetInt("OCCURRENCES_MAX_PAGE_SIZE"), 200),
		ExpansionWorkers:  positiveOr(v.GetInt("OCCURRENCES_EXPANSION_WORKERS"), 4),
		Timezone:          v.GetString("OCCURRENCES_TIMEZONE"),
		PreviewMaxDates:   positiveOr(v.GetInt("OCCURRENCES_PREVIEW_MAX_DATES"), 100),
		CalendarMaxSeries: positiveOr(v.GetInt("OCCURRENCES_CALENDAR_MAX_SERIES"), 1000),
	}

	cfg.Cache = CacheConfig{
		Enabled: v.GetBool("ENABLE_OCCURRENCE_CACHE"),
		TTL:     parseDuration(v.GetString("OCCURRENCE_CACHE_TTL"), 2*time.Minute),
	}

	cfg.Purge = PurgeConfig{
		Enabled:       v.GetBool("ENABLE_PURGE"),
		Schedule:      v.GetString("PURGE_SCHEDULE"),
		Retention:     parseDuration(v.GetString("PURGE_RETENTION"), 30*24*time.Hour),
		WorkerRetries: v.GetInt("PURGE_WORKER_RETRIES"),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "recurring_todo")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("OCCURRENCES_MAX_RANGE_DAYS", 366)
	v.SetDefault("OCCURRENCES_DEFAULT_PAGE_SIZE", 50)
	v.SetDefault("OCCURRENCES_MAX_PAGE_SIZE", 200)
	v.SetDefault("OCCURRENCES_EXPANSION_WORKERS", 4)
	v.SetDefault("OCCURRENCES_TIMEZONE", "UTC")
	v.SetDefault("OCCURRENCES_PREVIEW_MAX_DATES", 100)
	v.SetDefault("OCCURRENCES_CALENDAR_MAX_SERIES", 1000)

	v.SetDefault("ENABLE_OCCURRENCE_CACHE", false)
	v.SetDefault("OCCURRENCE_CACHE_TTL", "2m")

	v.SetDefault("ENABLE_PURGE", false)
	v.SetDefault("PURGE_SCHEDULE", "0 3 * * *")
	v.SetDefault("PURGE_RETENTION", "720h")
	v.SetDefault("PURGE_WORKER_RETRIES", 3)

	v.SetDefault("ENABLE_EXPORTS", true)
}

func isMissingFile(err error) bool {
	return strings.Contains(err.Error(), "no such file or directory")
}

func positiveOr(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
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
