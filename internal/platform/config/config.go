package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Repository backends, in selection order.
const (
	BackendJSON     = "json"
	BackendScript   = "script"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Server captures the process level configuration. It is read once at
// startup; only the Crypto section is re-read on refresh.
type Server struct {
	Addr            string
	LogLevel        string
	ShutdownTimeout time.Duration

	Crypto Crypto
	Store  Store

	Retention       string
	ReminderDefault int64
	ReminderUnit    string

	Kafka       KafkaConfig
	AuditBuffer int
}

// Crypto is the consent payload protection section.
type Crypto struct {
	Enabled       bool
	Algorithm     string
	EncryptionKey string
	SigningKey    string
}

// Store selects and configures the consent repository.
type Store struct {
	JSONLocation   string
	ScriptLocation string
	ScriptArgs     []string
	Redis          RedisConfig
	Database       DatabaseConfig
}

// RedisConfig configures the Redis client backing the redis repository.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig configures the Postgres pool backing the postgres repository.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// KafkaConfig configures the audit event sink. Empty Brokers means audit
// events are written to the log instead.
type KafkaConfig struct {
	Brokers    string
	AuditTopic string
}

// Backend reports the repository selected by the store section. The first
// configured location wins.
func (s Store) Backend() string {
	switch {
	case s.JSONLocation != "":
		return BackendJSON
	case s.ScriptLocation != "":
		return BackendScript
	case s.Redis.URL != "":
		return BackendRedis
	case s.Database.URL != "":
		return BackendPostgres
	default:
		return BackendMemory
	}
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var p parser

	crypto, err := CryptoFromEnv()
	if err != nil {
		return Server{}, err
	}

	cfg := Server{
		Addr:            getenvDefault("CONSENT_ADDR", ":8080"),
		LogLevel:        getenvDefault("LOG_LEVEL", "info"),
		ShutdownTimeout: p.getDuration("CONSENT_SHUTDOWN_TIMEOUT", 10*time.Second),
		Crypto:          crypto,
		Store: Store{
			JSONLocation:   strings.TrimSpace(os.Getenv("CONSENT_JSON_LOCATION")),
			ScriptLocation: strings.TrimSpace(os.Getenv("CONSENT_SCRIPT_LOCATION")),
			ScriptArgs:     strings.Fields(os.Getenv("CONSENT_SCRIPT_ARGS")),
			Redis: RedisConfig{
				URL:          strings.TrimSpace(os.Getenv("CONSENT_REDIS_URL")),
				PoolSize:     p.getInt("CONSENT_REDIS_POOL_SIZE", 10),
				MinIdleConns: p.getInt("CONSENT_REDIS_MIN_IDLE_CONNS", 2),
				DialTimeout:  p.getDuration("CONSENT_REDIS_DIAL_TIMEOUT", 5*time.Second),
				ReadTimeout:  p.getDuration("CONSENT_REDIS_READ_TIMEOUT", 3*time.Second),
				WriteTimeout: p.getDuration("CONSENT_REDIS_WRITE_TIMEOUT", 3*time.Second),
			},
			Database: DatabaseConfig{
				URL:             strings.TrimSpace(os.Getenv("CONSENT_DATABASE_URL")),
				MaxOpenConns:    p.getInt("CONSENT_DATABASE_MAX_OPEN_CONNS", 25),
				MaxIdleConns:    p.getInt("CONSENT_DATABASE_MAX_IDLE_CONNS", 5),
				ConnMaxLifetime: p.getDuration("CONSENT_DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			},
		},
		Retention:       strings.ToLower(strings.TrimSpace(os.Getenv("CONSENT_RETENTION"))),
		ReminderDefault: int64(p.getInt("CONSENT_REMINDER_DEFAULT", 14)),
		ReminderUnit:    strings.ToUpper(getenvDefault("CONSENT_REMINDER_UNIT", "DAYS")),
		Kafka: KafkaConfig{
			Brokers:    strings.TrimSpace(os.Getenv("KAFKA_BROKERS")),
			AuditTopic: getenvDefault("CONSENT_AUDIT_TOPIC", "consent.audit"),
		},
		AuditBuffer: p.getInt("CONSENT_AUDIT_BUFFER", 256),
	}
	if p.err != nil {
		return Server{}, p.err
	}
	if cfg.ReminderDefault <= 0 {
		return Server{}, fmt.Errorf("CONSENT_REMINDER_DEFAULT must be positive, got %d", cfg.ReminderDefault)
	}
	return cfg, nil
}

// CryptoFromEnv reads only the crypto section. It backs configuration refresh.
func CryptoFromEnv() (Crypto, error) {
	enabled := true
	if v := strings.TrimSpace(os.Getenv("CONSENT_CRYPTO_ENABLED")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Crypto{}, fmt.Errorf("CONSENT_CRYPTO_ENABLED: %w", err)
		}
		enabled = b
	}
	return Crypto{
		Enabled:       enabled,
		Algorithm:     strings.ToUpper(getenvDefault("CONSENT_CRYPTO_ALG", "A256GCM")),
		EncryptionKey: strings.TrimSpace(os.Getenv("CONSENT_CRYPTO_ENCRYPTION_KEY")),
		SigningKey:    strings.TrimSpace(os.Getenv("CONSENT_CRYPTO_SIGNING_KEY")),
	}, nil
}

func getenvDefault(key, def string) string {
	v := os.Getenv(key)
	if strings.TrimSpace(v) == "" {
		return def
	}
	return strings.TrimSpace(v)
}

// parser keeps the first malformed value so FromEnv can report it once.
type parser struct {
	err error
}

func (p *parser) getInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		p.fail(fmt.Errorf("%s: invalid non-negative integer %q", key, v))
		return def
	}
	return n
}

func (p *parser) getDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		p.fail(fmt.Errorf("%s: invalid duration %q", key, v))
		return def
	}
	return d
}

func (p *parser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}
