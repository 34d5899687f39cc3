package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`

	LockBackend string        `mapstructure:"LOCK_BACKEND"`
	RedisURL    string        `mapstructure:"REDIS_URL"`
	LockTTL     time.Duration `mapstructure:"LOCK_TTL"`

	NotifyMode    string        `mapstructure:"NOTIFY_MODE"`
	NotifyTimeout time.Duration `mapstructure:"NOTIFY_TIMEOUT"`
	SMTPHost      string        `mapstructure:"SMTP_HOST"`
	SMTPPort      int           `mapstructure:"SMTP_PORT"`
	SMTPUsername  string        `mapstructure:"SMTP_USERNAME"`
	SMTPPassword  string        `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom      string        `mapstructure:"SMTP_FROM"`
	AMQPURL       string        `mapstructure:"AMQP_URL"`
	NotifyQueue   string        `mapstructure:"NOTIFY_QUEUE"`

	KBSource       string `mapstructure:"KB_SOURCE"`
	KBDir          string `mapstructure:"KB_DIR"`
	MinioEndpoint  string `mapstructure:"MINIO_ENDPOINT"`
	MinioAccessKey string `mapstructure:"MINIO_ACCESS_KEY"`
	MinioSecretKey string `mapstructure:"MINIO_SECRET_KEY"`
	MinioBucket    string `mapstructure:"MINIO_BUCKET"`
	MinioUseSSL    bool   `mapstructure:"MINIO_USE_SSL"`

	ClinicName   string `mapstructure:"CLINIC_NAME"`
	AuditActorID int64  `mapstructure:"AUDIT_ACTOR_ID"`
}

var envKeys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT",
	"LOCK_BACKEND", "REDIS_URL", "LOCK_TTL",
	"NOTIFY_MODE", "NOTIFY_TIMEOUT", "SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "SMTP_FROM",
	"AMQP_URL", "NOTIFY_QUEUE",
	"KB_SOURCE", "KB_DIR", "MINIO_ENDPOINT", "MINIO_ACCESS_KEY", "MINIO_SECRET_KEY", "MINIO_BUCKET", "MINIO_USE_SSL",
	"CLINIC_NAME", "AUDIT_ACTOR_ID",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPS", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)
	v.SetDefault("REQUEST_TIMEOUT", "15s")
	v.SetDefault("BODY_LIMIT", "64K")
	v.SetDefault("LOCK_BACKEND", "local")
	v.SetDefault("LOCK_TTL", "10s")
	v.SetDefault("NOTIFY_MODE", "log")
	v.SetDefault("NOTIFY_TIMEOUT", "20s")
	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("NOTIFY_QUEUE", "clinic_notifications")
	v.SetDefault("KB_SOURCE", "dir")
	v.SetDefault("KB_DIR", "data/kb")
	v.SetDefault("MINIO_BUCKET", "kb")
	v.SetDefault("CLINIC_NAME", "Medicare Hospital")
	v.SetDefault("AUDIT_ACTOR_ID", 1)

	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// The .env file is optional.
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = splitList(origins)
		}
	}
	if cfg.SMTPFrom == "" {
		cfg.SMTPFrom = cfg.SMTPUsername
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the selected backends have the settings they need.
func (c *Config) Validate() error {
	switch c.LockBackend {
	case "local":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when LOCK_BACKEND is \"redis\"")
		}
	default:
		return fmt.Errorf("LOCK_BACKEND must be \"local\" or \"redis\", got %q", c.LockBackend)
	}

	switch c.NotifyMode {
	case "log":
	case "smtp":
		if c.SMTPUsername == "" {
			return fmt.Errorf("SMTP_USERNAME is required when NOTIFY_MODE is \"smtp\"")
		}
	case "queue":
		if c.AMQPURL == "" {
			return fmt.Errorf("AMQP_URL is required when NOTIFY_MODE is \"queue\"")
		}
	default:
		return fmt.Errorf("NOTIFY_MODE must be \"log\", \"smtp\", or \"queue\", got %q", c.NotifyMode)
	}

	switch c.KBSource {
	case "dir":
	case "minio":
		if c.MinioEndpoint == "" {
			return fmt.Errorf("MINIO_ENDPOINT is required when KB_SOURCE is \"minio\"")
		}
	default:
		return fmt.Errorf("KB_SOURCE must be \"dir\" or \"minio\", got %q", c.KBSource)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	return nil
}
