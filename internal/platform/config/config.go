// Package config loads process configuration from, in increasing priority:
// built-in defaults, an optional YAML file named by IMMO_CONFIG_FILE, and
// environment variables (optionally seeded from a .env file).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"immo/pkg/platform/strings"
)

const devSigningKey = "dev-secret-key-change-in-production"

type Config struct {
	Server    Server          `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Signature SignatureConfig `yaml:"signature"`
	Audit     AuditConfig     `yaml:"audit"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
	// Units seeds the catalog at startup. The unit catalog is owned by an
	// external system; seeding keeps local and in-memory runs usable.
	Units []UnitSeed `yaml:"units"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `yaml:"addr"`
	Environment     string        `yaml:"environment"`
	JWTSigningKey   string        `yaml:"jwt_signing_key"`
	JWTIssuer       string        `yaml:"jwt_issuer"`
	JWTAudience     string        `yaml:"jwt_audience"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	MetricsToken    string        `yaml:"metrics_token"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig selects PostgreSQL when URL is set; otherwise stores are in memory.
type DatabaseConfig struct {
	URL          string        `yaml:"url"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	TxTimeout    time.Duration `yaml:"tx_timeout"`
	Migrate      bool          `yaml:"migrate"`
}

// RedisConfig selects the shared signature-code store when URL is set.
type RedisConfig struct {
	URL          string        `yaml:"url"`
	KeyPrefix    string        `yaml:"key_prefix"`
	PoolSize     int           `yaml:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type KafkaConfig struct {
	Brokers    []string `yaml:"brokers"`
	AuditTopic string   `yaml:"audit_topic"`
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type SignatureConfig struct {
	CodeTTL       time.Duration `yaml:"code_ttl"`
	MaxAttempts   int           `yaml:"max_attempts"`
	BlockDuration time.Duration `yaml:"block_duration"`
	BcryptCost    int           `yaml:"bcrypt_cost"`
}

type AuditConfig struct {
	BufferSize     int           `yaml:"buffer_size"`
	Workers        int           `yaml:"workers"`
	RelayInterval  time.Duration `yaml:"relay_interval"`
	RelayBatchSize int           `yaml:"relay_batch_size"`
}

// RateLimitConfig bounds API traffic per client IP and per user. The signing
// limit applies to code issuance and submission on top of the attempt lockout.
type RateLimitConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Window         time.Duration `yaml:"window"`
	WriteLimit     int           `yaml:"write_limit"`
	ReadLimit      int           `yaml:"read_limit"`
	SignatureLimit int           `yaml:"signature_limit"`
	KeyPrefix      string        `yaml:"key_prefix"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type UnitSeed struct {
	ID    string `yaml:"id"`
	Price string `yaml:"price"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() Config {
	return Config{
		Server: Server{
			Addr:            ":8080",
			Environment:     "development",
			JWTSigningKey:   devSigningKey,
			JWTIssuer:       "immo",
			JWTAudience:     "immo-api",
			ShutdownTimeout: 15 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 20,
			MaxIdleConns: 5,
			TxTimeout:    5 * time.Second,
			Migrate:      true,
		},
		Redis: RedisConfig{
			KeyPrefix:    "immo:sig:",
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{AuditTopic: "immo.audit"},
		Signature: SignatureConfig{
			CodeTTL:       300 * time.Second,
			MaxAttempts:   3,
			BlockDuration: 900 * time.Second,
			BcryptCost:    10,
		},
		Audit: AuditConfig{
			BufferSize:     1024,
			Workers:        2,
			RelayInterval:  time.Second,
			RelayBatchSize: 100,
		},
		RateLimit: RateLimitConfig{
			Enabled:        true,
			Window:         time.Minute,
			WriteLimit:     60,
			ReadLimit:      300,
			SignatureLimit: 10,
			KeyPrefix:      "immo:rl:",
		},
		Log: LogConfig{Level: "info", Format: "json"},
	}
}

// Load builds the process configuration. A missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv("IMMO_CONFIG_FILE"); path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadFile overlays the YAML document at path onto cfg. Keys absent from the
// file keep their current values.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Server.JWTSigningKey == "" {
		errs = append(errs, errors.New("server.jwt_signing_key is required"))
	}
	if c.Server.Environment == "production" && c.Server.JWTSigningKey == devSigningKey {
		errs = append(errs, errors.New("server.jwt_signing_key must be overridden in production"))
	}
	if c.Signature.CodeTTL <= 0 || c.Signature.BlockDuration <= 0 {
		errs = append(errs, errors.New("signature durations must be positive"))
	}
	if c.Signature.MaxAttempts < 1 {
		errs = append(errs, errors.New("signature.max_attempts must be at least 1"))
	}
	if c.RateLimit.Enabled {
		rl := c.RateLimit
		if rl.Window <= 0 {
			errs = append(errs, errors.New("rate_limit.window must be positive"))
		}
		if rl.ReadLimit < 1 || rl.WriteLimit < 1 || rl.SignatureLimit < 1 {
			errs = append(errs, errors.New("rate_limit limits must be at least 1"))
		}
	}
	if c.Kafka.Enabled() && c.Kafka.AuditTopic == "" {
		errs = append(errs, errors.New("kafka.audit_topic is required when brokers are set"))
	}
	return errors.Join(errs...)
}

type lookupFunc func(string) (string, bool)

// applyEnv overrides cfg from environment variables. Malformed numbers and
// durations are reported together.
func applyEnv(cfg *Config, lookup lookupFunc) error {
	e := envReader{lookup: lookup}

	e.str("IMMO_ADDR", &cfg.Server.Addr)
	e.str("IMMO_ENV", &cfg.Server.Environment)
	e.str("JWT_SIGNING_KEY", &cfg.Server.JWTSigningKey)
	e.str("JWT_ISSUER", &cfg.Server.JWTIssuer)
	e.str("JWT_AUDIENCE", &cfg.Server.JWTAudience)
	e.list("IMMO_CORS_ORIGINS", &cfg.Server.CORSOrigins)
	e.str("IMMO_METRICS_TOKEN", &cfg.Server.MetricsToken)
	e.duration("IMMO_SHUTDOWN_TIMEOUT", &cfg.Server.ShutdownTimeout)

	e.str("DATABASE_URL", &cfg.Database.URL)
	e.integer("DATABASE_MAX_OPEN_CONNS", &cfg.Database.MaxOpenConns)
	e.integer("DATABASE_MAX_IDLE_CONNS", &cfg.Database.MaxIdleConns)
	e.duration("DATABASE_TX_TIMEOUT", &cfg.Database.TxTimeout)
	e.boolean("DATABASE_MIGRATE", &cfg.Database.Migrate)

	e.str("REDIS_URL", &cfg.Redis.URL)
	e.str("REDIS_KEY_PREFIX", &cfg.Redis.KeyPrefix)
	e.integer("REDIS_POOL_SIZE", &cfg.Redis.PoolSize)

	e.list("KAFKA_BROKERS", &cfg.Kafka.Brokers)
	e.str("KAFKA_AUDIT_TOPIC", &cfg.Kafka.AuditTopic)

	e.duration("SIGNATURE_CODE_TTL", &cfg.Signature.CodeTTL)
	e.integer("SIGNATURE_MAX_ATTEMPTS", &cfg.Signature.MaxAttempts)
	e.duration("SIGNATURE_BLOCK_DURATION", &cfg.Signature.BlockDuration)
	e.integer("SIGNATURE_BCRYPT_COST", &cfg.Signature.BcryptCost)

	e.integer("AUDIT_BUFFER_SIZE", &cfg.Audit.BufferSize)
	e.integer("AUDIT_WORKERS", &cfg.Audit.Workers)

	e.boolean("RATE_LIMIT_ENABLED", &cfg.RateLimit.Enabled)
	e.duration("RATE_LIMIT_WINDOW", &cfg.RateLimit.Window)
	e.integer("RATE_LIMIT_WRITE", &cfg.RateLimit.WriteLimit)
	e.integer("RATE_LIMIT_READ", &cfg.RateLimit.ReadLimit)
	e.integer("RATE_LIMIT_SIGNATURE", &cfg.RateLimit.SignatureLimit)

	e.str("LOG_LEVEL", &cfg.Log.Level)
	e.str("LOG_FORMAT", &cfg.Log.Format)

	return errors.Join(e.errs...)
}

type envReader struct {
	lookup lookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) list(key string, dst *[]string) {
	if v, ok := e.get(key); ok {
		*dst = strings.SplitList(v)
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("%s: %w", key, err))
			return
		}
		*dst = d
	}
}
