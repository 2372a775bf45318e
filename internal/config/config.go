// Package config loads the expense server configuration from YAML and environment variables.
package config

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	goExpense "github.com/MrEthical07/goExpense"
	"github.com/MrEthical07/goExpense/password"
)

// DefaultPath is tried when neither an explicit path nor CONFIG_PATH is given.
const DefaultPath = "config/local.yaml"

// Config is the process configuration. Sources, highest priority first:
//  1. the path passed to Load (the -config flag);
//  2. CONFIG_PATH;
//  3. ./config/local.yaml;
//  4. environment variables only.
//
// cleanenv overlays environment variables on top of whichever file was read.
type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	LogLevel string         `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	HTTP     HTTPConfig     `yaml:"http"`
	Redis    RedisConfig    `yaml:"redis"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Postgres PostgresConfig `yaml:"postgres"`
	JWT      JWTConfig      `yaml:"jwt"`
	Session  SessionConfig  `yaml:"session"`
	Security SecurityConfig `yaml:"security"`
	Audit    AuditConfig    `yaml:"audit"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Password PasswordConfig `yaml:"password"`
}

type HTTPConfig struct {
	Host            string        `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port            string        `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"15s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"HTTP_SHUTDOWN_TIMEOUT" env-default:"10s"`
	// TrustProxyHeaders makes the client IP come from X-Forwarded-For / X-Real-IP.
	TrustProxyHeaders bool `yaml:"trust_proxy_headers" env:"HTTP_TRUST_PROXY_HEADERS" env-default:"false"`
}

// Addr returns host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type MongoConfig struct {
	URI      string `yaml:"uri" env:"MONGO_URI" env-default:"mongodb://localhost:27017"`
	Database string `yaml:"database" env:"MONGO_DATABASE" env-default:"expense_tracker"`
}

type PostgresConfig struct {
	DSN      string `yaml:"dsn" env:"POSTGRES_DSN"`
	MaxConns int32  `yaml:"max_conns" env:"POSTGRES_MAX_CONNS" env-default:"10"`
}

type JWTConfig struct {
	AccessTTL     time.Duration `yaml:"access_ttl" env:"JWT_ACCESS_TTL" env-default:"15m"`
	RefreshTTL    time.Duration `yaml:"refresh_ttl" env:"JWT_REFRESH_TTL" env-default:"60m"`
	SigningMethod string        `yaml:"signing_method" env:"JWT_SIGNING_METHOD" env-default:"ed25519"`
	// PrivateKeyFile and PublicKeyFile hold PEM or raw Ed25519 keys.
	PrivateKeyFile string `yaml:"private_key_file" env:"JWT_PRIVATE_KEY_FILE"`
	PublicKeyFile  string `yaml:"public_key_file" env:"JWT_PUBLIC_KEY_FILE"`
	// Secret is the HS256 key.
	Secret   string        `yaml:"secret" env:"JWT_SECRET"`
	Issuer   string        `yaml:"issuer" env:"JWT_ISSUER"`
	Audience string        `yaml:"audience" env:"JWT_AUDIENCE"`
	Leeway   time.Duration `yaml:"leeway" env:"JWT_LEEWAY" env-default:"0s"`
	KeyID    string        `yaml:"key_id" env:"JWT_KEY_ID"`
	// EphemeralKeys generates a fresh Ed25519 pair at startup. Tokens do not survive a restart.
	EphemeralKeys bool `yaml:"ephemeral_keys" env:"JWT_EPHEMERAL_KEYS" env-default:"false"`
}

type SessionConfig struct {
	RedisPrefix    string `yaml:"redis_prefix" env:"SESSION_REDIS_PREFIX" env-default:"gx"`
	SingleSession  bool   `yaml:"single_session" env:"SESSION_SINGLE" env-default:"false"`
	ValidationMode string `yaml:"validation_mode" env:"SESSION_VALIDATION_MODE" env-default:"strict"`
}

type SecurityConfig struct {
	MaxLoginAttempts      int           `yaml:"max_login_attempts" env:"SECURITY_MAX_LOGIN_ATTEMPTS" env-default:"5"`
	LoginCooldown         time.Duration `yaml:"login_cooldown" env:"SECURITY_LOGIN_COOLDOWN" env-default:"30m"`
	EnableIPThrottle      bool          `yaml:"enable_ip_throttle" env:"SECURITY_IP_THROTTLE" env-default:"false"`
	EnableRefreshThrottle bool          `yaml:"enable_refresh_throttle" env:"SECURITY_REFRESH_THROTTLE" env-default:"true"`
	MaxRefreshAttempts    int           `yaml:"max_refresh_attempts" env:"SECURITY_MAX_REFRESH_ATTEMPTS" env-default:"20"`
	RefreshCooldown       time.Duration `yaml:"refresh_cooldown" env:"SECURITY_REFRESH_COOLDOWN" env-default:"1m"`
}

type AuditConfig struct {
	Enabled    bool `yaml:"enabled" env:"AUDIT_ENABLED" env-default:"true"`
	BufferSize int  `yaml:"buffer_size" env:"AUDIT_BUFFER_SIZE" env-default:"1024"`
	DropIfFull bool `yaml:"drop_if_full" env:"AUDIT_DROP_IF_FULL" env-default:"true"`
	// Sink is "slog", "kafka" or "none".
	Sink         string   `yaml:"sink" env:"AUDIT_SINK" env-default:"slog"`
	KafkaBrokers []string `yaml:"kafka_brokers" env:"AUDIT_KAFKA_BROKERS" env-separator:","`
	KafkaTopic   string   `yaml:"kafka_topic" env:"AUDIT_KAFKA_TOPIC" env-default:"auth-audit"`
}

type MetricsConfig struct {
	Enabled           bool `yaml:"enabled" env:"METRICS_ENABLED" env-default:"true"`
	LatencyHistograms bool `yaml:"latency_histograms" env:"METRICS_LATENCY_HISTOGRAMS" env-default:"false"`
	// OTLPEndpoint enables OTLP/gRPC push when set, alongside the /metrics scrape endpoint.
	OTLPEndpoint string `yaml:"otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `yaml:"otlp_insecure" env:"OTEL_EXPORTER_OTLP_INSECURE" env-default:"false"`
	ServiceName  string `yaml:"service_name" env:"OTEL_SERVICE_NAME" env-default:"goexpense"`
}

type PasswordConfig struct {
	Memory      uint32 `yaml:"memory_kib" env:"PASSWORD_MEMORY_KIB" env-default:"65536"`
	Time        uint32 `yaml:"time" env:"PASSWORD_TIME" env-default:"3"`
	Parallelism uint8  `yaml:"parallelism" env:"PASSWORD_PARALLELISM" env-default:"2"`
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load resolves the configuration source by priority and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config

	readFile := func(p string) error {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("config file %q stat failed: %w", p, err)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return fmt.Errorf("failed to read config %q: %w", p, err)
		}
		return nil
	}

	switch {
	case path != "":
		if err := readFile(path); err != nil {
			return nil, err
		}
	case os.Getenv("CONFIG_PATH") != "":
		if err := readFile(os.Getenv("CONFIG_PATH")); err != nil {
			return nil, err
		}
	default:
		if _, err := os.Stat(DefaultPath); err == nil {
			if err := readFile(DefaultPath); err != nil {
				return nil, err
			}
		} else if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config not found: provide -config, CONFIG_PATH, %s or env vars: %w", DefaultPath, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Port == "" {
		return errors.New("http.port is required")
	}
	if c.Redis.Addr == "" {
		return errors.New("redis.addr is required")
	}
	if c.Mongo.URI == "" {
		return errors.New("mongo.uri is required")
	}
	if c.Postgres.DSN == "" {
		return errors.New("postgres.dsn is required")
	}
	switch c.Audit.Sink {
	case "slog", "none":
	case "kafka":
		if len(c.Audit.KafkaBrokers) == 0 || c.Audit.KafkaTopic == "" {
			return errors.New("audit.kafka_brokers and audit.kafka_topic are required for the kafka sink")
		}
	default:
		return fmt.Errorf("audit.sink must be slog, kafka or none, got %q", c.Audit.Sink)
	}
	if _, err := goExpense.ParseValidationMode(c.Session.ValidationMode); err != nil {
		return fmt.Errorf("session.validation_mode: %w", err)
	}
	return nil
}

// PasswordHasherConfig returns the argon2id parameters with the library's salt and key sizes.
func (c *Config) PasswordHasherConfig() password.Config {
	pc := password.DefaultConfig()
	if c.Password.Memory > 0 {
		pc.Memory = c.Password.Memory
	}
	if c.Password.Time > 0 {
		pc.Time = c.Password.Time
	}
	if c.Password.Parallelism > 0 {
		pc.Parallelism = c.Password.Parallelism
	}
	return pc
}

// ToEngineConfig maps the process configuration onto the session engine configuration, reading
// key files as needed. The result still goes through goExpense.Config.Validate at Build.
func (c *Config) ToEngineConfig() (goExpense.Config, error) {
	ec := goExpense.DefaultConfig()

	ec.JWT.AccessTTL = c.JWT.AccessTTL
	ec.JWT.RefreshTTL = c.JWT.RefreshTTL
	ec.JWT.SigningMethod = strings.ToLower(strings.TrimSpace(c.JWT.SigningMethod))
	ec.JWT.Issuer = c.JWT.Issuer
	ec.JWT.Audience = c.JWT.Audience
	ec.JWT.Leeway = c.JWT.Leeway
	ec.JWT.KeyID = c.JWT.KeyID

	switch ec.JWT.SigningMethod {
	case "hs256":
		if c.JWT.Secret == "" {
			return goExpense.Config{}, errors.New("jwt.secret is required for hs256")
		}
		ec.JWT.PrivateKey = []byte(c.JWT.Secret)
	case "ed25519":
		if c.JWT.EphemeralKeys {
			pub, priv, err := ed25519.GenerateKey(rand.Reader)
			if err != nil {
				return goExpense.Config{}, fmt.Errorf("generate ed25519 key: %w", err)
			}
			ec.JWT.PrivateKey, ec.JWT.PublicKey = priv, pub
			break
		}
		priv, err := readKey(c.JWT.PrivateKeyFile, "jwt.private_key_file")
		if err != nil {
			return goExpense.Config{}, err
		}
		pub, err := readKey(c.JWT.PublicKeyFile, "jwt.public_key_file")
		if err != nil {
			return goExpense.Config{}, err
		}
		ec.JWT.PrivateKey, ec.JWT.PublicKey = priv, pub
	default:
		return goExpense.Config{}, fmt.Errorf("unsupported jwt.signing_method %q", c.JWT.SigningMethod)
	}

	ec.Session.RedisPrefix = c.Session.RedisPrefix
	ec.Session.SingleSession = c.Session.SingleSession
	mode, err := goExpense.ParseValidationMode(c.Session.ValidationMode)
	if err != nil {
		return goExpense.Config{}, err
	}
	ec.ValidationMode = mode

	ec.Security.MaxLoginAttempts = c.Security.MaxLoginAttempts
	ec.Security.LoginCooldownDuration = c.Security.LoginCooldown
	ec.Security.EnableIPThrottle = c.Security.EnableIPThrottle
	ec.Security.EnableRefreshThrottle = c.Security.EnableRefreshThrottle
	ec.Security.MaxRefreshAttempts = c.Security.MaxRefreshAttempts
	ec.Security.RefreshCooldownDuration = c.Security.RefreshCooldown

	ec.Audit.Enabled = c.Audit.Enabled && c.Audit.Sink != "none"
	ec.Audit.BufferSize = c.Audit.BufferSize
	ec.Audit.DropIfFull = c.Audit.DropIfFull

	ec.Metrics.Enabled = c.Metrics.Enabled
	ec.Metrics.EnableLatencyHistograms = c.Metrics.LatencyHistograms

	return ec, nil
}

func readKey(path, field string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%s is required for ed25519 (or set jwt.ephemeral_keys)", field)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return b, nil
}
