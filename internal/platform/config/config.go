package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"volid/internal/volunteer/models"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string `validate:"required"`
	Environment   string `validate:"oneof=development test production"`
	LogLevel      string `validate:"oneof=debug info warn error"`
	JWTSigningKey string `validate:"required,min=16"`
	PublicBaseURL string `validate:"required,http_url"`

	Database     DatabaseConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	Identifier   IdentifierConfig
	Credential   CredentialConfig
	Notification NotificationConfig
	RateLimit    RateLimitConfig
	Audit        AuditConfig
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int `validate:"min=1"`
	MaxIdleConns    int `validate:"min=0"`
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL          string
	PoolSize     int `validate:"min=1"`
	MinIdleConns int `validate:"min=0"`
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	VerifyTTL    time.Duration `validate:"gt=0"`
}

type KafkaConfig struct {
	Brokers     []string
	ClientID    string
	NotifyTopic string `validate:"required_with=Brokers"`
}

type IdentifierConfig struct {
	Prefix         string `validate:"required"`
	MaxAttempts    int    `validate:"min=1,max=9000"`
	ReservationTTL time.Duration
}

type CredentialConfig struct {
	RenderTimeout time.Duration `validate:"gt=0"`
	Concurrency   int           `validate:"min=1,max=64"`
	LayoutPath    string
	// PhotoHosts limits profile photo downloads to these hosts and their
	// subdomains. Empty allows any public host.
	PhotoHosts []string `validate:"dive,hostname_rfc1123"`
}

type NotificationConfig struct {
	Workers     int           `validate:"min=1,max=64"`
	QueueSize   int           `validate:"min=1"`
	MaxAttempts int           `validate:"min=1,max=10"`
	DrainWindow time.Duration `validate:"gt=0"`
}

// RateLimitConfig bounds anonymous verification lookups per client IP.
// Zero disables the limit.
type RateLimitConfig struct {
	VerifyPerMinute int `validate:"min=0"`
}

// AuditConfig tunes the breaker in front of best-effort audit writes.
type AuditConfig struct {
	BreakerThreshold int           `validate:"min=1"`
	BreakerCooldown  time.Duration `validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// FromEnv reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func FromEnv() (*Server, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Server{
		Addr:          getString("VOLID_ADDR", ":8080"),
		Environment:   getString("VOLID_ENV", "development"),
		LogLevel:      strings.ToLower(getString("VOLID_LOG_LEVEL", "info")),
		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		PublicBaseURL: getString("PUBLIC_BASE_URL", "http://localhost:8080/id-card"),
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    getInt("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getDuration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			VerifyTTL:    getDuration("VOLID_VERIFY_CACHE_TTL", 60*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:     getList("KAFKA_BROKERS"),
			ClientID:    getString("KAFKA_CLIENT_ID", "volid"),
			NotifyTopic: getString("KAFKA_NOTIFY_TOPIC", "volid.notifications"),
		},
		Identifier: IdentifierConfig{
			Prefix:         strings.ToUpper(getString("VOLID_ID_PREFIX", "VOL")),
			MaxAttempts:    getInt("VOLID_ID_MAX_ATTEMPTS", 64),
			ReservationTTL: getDuration("VOLID_ID_RESERVATION_TTL", 2*time.Minute),
		},
		Credential: CredentialConfig{
			RenderTimeout: getDuration("VOLID_RENDER_TIMEOUT", 60*time.Second),
			Concurrency:   getInt("VOLID_RENDER_CONCURRENCY", 4),
			LayoutPath:    os.Getenv("VOLID_CARD_LAYOUT"),
			PhotoHosts:    getList("VOLID_PHOTO_HOSTS"),
		},
		Notification: NotificationConfig{
			Workers:     getInt("VOLID_NOTIFY_WORKERS", 2),
			QueueSize:   getInt("VOLID_NOTIFY_QUEUE", 256),
			MaxAttempts: getInt("VOLID_NOTIFY_MAX_ATTEMPTS", 3),
			DrainWindow: getDuration("VOLID_NOTIFY_DRAIN_WINDOW", 5*time.Second),
		},
		RateLimit: RateLimitConfig{
			VerifyPerMinute: getInt("VOLID_VERIFY_RATE_LIMIT", 60),
		},
		Audit: AuditConfig{
			BreakerThreshold: getInt("VOLID_AUDIT_BREAKER_THRESHOLD", 5),
			BreakerCooldown:  getDuration("VOLID_AUDIT_BREAKER_COOLDOWN", 30*time.Second),
		},
	}
	if cfg.JWTSigningKey == "" && cfg.Environment == "development" {
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks struct rules and the identifier prefix format.
func (c *Server) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if err := models.ValidatePrefix(c.Identifier.Prefix); err != nil {
		return fmt.Errorf("config validation failed: VOLID_ID_PREFIX: %w", err)
	}
	if c.Environment == "production" && c.Database.URL == "" {
		return fmt.Errorf("config validation failed: DATABASE_URL is required in production")
	}
	return nil
}

func getString(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func getList(key string) []string {
	var out []string
	for part := range strings.SplitSeq(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
