package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Mail providers understood by the mail transport factory.
const (
	MailProviderMailgun  = "mailgun"
	MailProviderSendGrid = "sendgrid"
	MailProviderLog      = "log"
)

type Config struct {
	Env           string
	Port          int
	APIPrefix     string
	PublicBaseURL string
	// APIBaseURL is the externally reachable origin of this API, used for
	// signed download links.
	APIBaseURL    string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Mail      MailConfig
	Storage   StorageConfig
	Publisher PublisherConfig
	Downloads DownloadsConfig
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
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig only carries what is needed to verify tokens issued elsewhere.
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience []string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// MailConfig selects and configures the outbound mail provider.
type MailConfig struct {
	Provider string
	From     string
	FromName string
	Timeout  time.Duration

	MailgunBaseURL string
	MailgunDomain  string
	MailgunAPIKey  string

	SendGridAPIKey string
	SendGridHost   string
}

// StorageConfig covers the file store and the quota monitor.
type StorageConfig struct {
	Root              string
	UsageCacheTTL     time.Duration
	SizeTimeout       time.Duration
	DefaultCapacityGB int
	AlertCooldown     time.Duration
	MaxUploadBytes    int64
	CheckWorkers      int
	CheckRetries      int
}

// PublisherConfig tunes the scheduled publication sweep.
type PublisherConfig struct {
	NotifyConcurrency int
	Interval          time.Duration
}

// DownloadsConfig controls signed links embedded in notification emails.
type DownloadsConfig struct {
	SignedURLSecret string
	SignedURLTTL    time.Duration
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

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.PublicBaseURL = strings.TrimRight(v.GetString("PUBLIC_BASE_URL"), "/")
	cfg.APIBaseURL = strings.TrimRight(v.GetString("API_BASE_URL"), "/")

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
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:   v.GetString("JWT_SECRET"),
		Issuer:   v.GetString("JWT_ISSUER"),
		Audience: splitAndTrim(v.GetString("JWT_AUDIENCE")),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Mail = MailConfig{
		Provider:       strings.ToLower(strings.TrimSpace(v.GetString("MAIL_PROVIDER"))),
		From:           v.GetString("MAIL_FROM"),
		FromName:       v.GetString("MAIL_FROM_NAME"),
		Timeout:        parseDuration(v.GetString("MAIL_TIMEOUT"), 10*time.Second),
		MailgunBaseURL: strings.TrimRight(v.GetString("MAILGUN_BASE_URL"), "/"),
		MailgunDomain:  v.GetString("MAILGUN_DOMAIN"),
		MailgunAPIKey:  v.GetString("MAILGUN_API_KEY"),
		SendGridAPIKey: v.GetString("SENDGRID_API_KEY"),
		SendGridHost:   v.GetString("SENDGRID_HOST"),
	}

	maxUpload := v.GetInt64("STORAGE_MAX_UPLOAD_BYTES")
	if maxUpload <= 0 {
		maxUpload = 50 * 1024 * 1024
	}
	capacity := v.GetInt("STORAGE_DEFAULT_CAPACITY_GB")
	if capacity <= 0 {
		capacity = 20
	}
	cfg.Storage = StorageConfig{
		Root:              v.GetString("STORAGE_ROOT"),
		UsageCacheTTL:     parseDuration(v.GetString("STORAGE_USAGE_CACHE_TTL"), 5*time.Minute),
		SizeTimeout:       parseDuration(v.GetString("STORAGE_SIZE_TIMEOUT"), time.Minute),
		DefaultCapacityGB: capacity,
		AlertCooldown:     parseDuration(v.GetString("STORAGE_ALERT_COOLDOWN"), 24*time.Hour),
		MaxUploadBytes:    maxUpload,
		CheckWorkers:      v.GetInt("STORAGE_CHECK_WORKERS"),
		CheckRetries:      v.GetInt("STORAGE_CHECK_RETRIES"),
	}

	cfg.Publisher = PublisherConfig{
		NotifyConcurrency: v.GetInt("PUBLISHER_NOTIFY_CONCURRENCY"),
		Interval:          parseDuration(v.GetString("PUBLISHER_INTERVAL"), time.Minute),
	}

	cfg.Downloads = DownloadsConfig{
		SignedURLSecret: v.GetString("DOWNLOADS_SIGNED_URL_SECRET"),
		SignedURLTTL:    parseDuration(v.GetString("DOWNLOADS_SIGNED_URL_TTL"), 7*24*time.Hour),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("PUBLIC_BASE_URL", "http://localhost:8000")
	v.SetDefault("API_BASE_URL", "http://localhost:8080")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "lms")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_ENABLED", true)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_ISSUER", "")
	v.SetDefault("JWT_AUDIENCE", "")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("MAIL_PROVIDER", "")
	v.SetDefault("MAIL_FROM", "")
	v.SetDefault("MAIL_FROM_NAME", "LMS")
	v.SetDefault("MAIL_TIMEOUT", "10s")
	v.SetDefault("MAILGUN_BASE_URL", "https://api.mailgun.net")
	v.SetDefault("MAILGUN_DOMAIN", "")
	v.SetDefault("MAILGUN_API_KEY", "")
	v.SetDefault("SENDGRID_API_KEY", "")
	v.SetDefault("SENDGRID_HOST", "https://api.sendgrid.com")

	v.SetDefault("STORAGE_ROOT", "./media")
	v.SetDefault("STORAGE_USAGE_CACHE_TTL", "5m")
	v.SetDefault("STORAGE_SIZE_TIMEOUT", "60s")
	v.SetDefault("STORAGE_DEFAULT_CAPACITY_GB", 20)
	v.SetDefault("STORAGE_ALERT_COOLDOWN", "24h")
	v.SetDefault("STORAGE_MAX_UPLOAD_BYTES", 50*1024*1024)
	v.SetDefault("STORAGE_CHECK_WORKERS", 1)
	v.SetDefault("STORAGE_CHECK_RETRIES", 1)

	v.SetDefault("PUBLISHER_NOTIFY_CONCURRENCY", 4)
	v.SetDefault("PUBLISHER_INTERVAL", "1m")

	v.SetDefault("DOWNLOADS_SIGNED_URL_SECRET", "dev_downloads_secret")
	v.SetDefault("DOWNLOADS_SIGNED_URL_TTL", "168h")
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

// viper reports a missing explicit config file as a plain fs error.
func isMissingFile(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
