// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Session store backends.
const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

// Authorization engines.
const (
	AuthzEngineBuiltin = "builtin"
	AuthzEngineOPA     = "opa"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address the gRPC health server listens on; empty disables it.
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// SessionStore selects where sessions live: "postgres" or "redis".
	SessionStore string `mapstructure:"SESSION_STORE"`
	// RedisURL is the redis:// URL used when SessionStore is "redis".
	RedisURL string `mapstructure:"REDIS_URL"`

	// JWTPrivateKey is the PEM-encoded private key (RSA or ECDSA) or path to file; used with JWT_PUBLIC_KEY for RS256/ES256.
	JWTPrivateKey string `mapstructure:"JWT_PRIVATE_KEY"`
	// JWTPublicKey is the PEM-encoded public key or path to file; used with JWT_PRIVATE_KEY.
	JWTPublicKey string `mapstructure:"JWT_PUBLIC_KEY"`
	// JWTSecret is the HS256 secret used when no key pair is configured.
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTIssuer is the iss claim (e.g. "qna-auth").
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim (e.g. "qna-api").
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`
	// SessionTTLRaw is the session lifetime (e.g. "8h").
	SessionTTLRaw string `mapstructure:"SESSION_TTL"`
	// EnforceSessionExpiry rejects expired sessions on every authenticated call.
	EnforceSessionExpiry bool `mapstructure:"ENFORCE_SESSION_EXPIRY"`

	// Argon2Time is the argon2id iteration count.
	Argon2Time uint32 `mapstructure:"ARGON2_TIME"`
	// Argon2MemoryKB is the argon2id memory cost in KiB.
	Argon2MemoryKB uint32 `mapstructure:"ARGON2_MEMORY_KB"`
	// Argon2Threads is the argon2id parallelism.
	Argon2Threads uint8 `mapstructure:"ARGON2_THREADS"`

	// AuthzEngine is "builtin" or "opa".
	AuthzEngine string `mapstructure:"AUTHZ_ENGINE"`
	// AuthzPolicyFile is an optional Rego module path for the opa engine; the bundled policy is used when empty.
	AuthzPolicyFile string `mapstructure:"AUTHZ_POLICY_FILE"`

	// OTelEndpoint is the OTLP gRPC collector endpoint; empty disables export.
	OTelEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTelInsecure disables TLS to the collector.
	OTelInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("SESSION_STORE", SessionStorePostgres)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_PRIVATE_KEY", "")
	v.SetDefault("JWT_PUBLIC_KEY", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_ISSUER", "qna-auth")
	v.SetDefault("JWT_AUDIENCE", "qna-api")
	v.SetDefault("SESSION_TTL", "8h")
	v.SetDefault("ENFORCE_SESSION_EXPIRY", false)
	v.SetDefault("ARGON2_TIME", 1)
	v.SetDefault("ARGON2_MEMORY_KB", 64*1024)
	v.SetDefault("ARGON2_THREADS", 4)
	v.SetDefault("AUTHZ_ENGINE", AuthzEngineBuiltin)
	v.SetDefault("AUTHZ_POLICY_FILE", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}

	cfg.SessionStore = strings.ToLower(strings.TrimSpace(cfg.SessionStore))
	switch cfg.SessionStore {
	case SessionStorePostgres:
	case SessionStoreRedis:
		if cfg.RedisURL == "" {
			return nil, errors.New("config: REDIS_URL must be set when SESSION_STORE=redis")
		}
	default:
		return nil, errors.New("config: SESSION_STORE must be postgres or redis")
	}

	cfg.AuthzEngine = strings.ToLower(strings.TrimSpace(cfg.AuthzEngine))
	if cfg.AuthzEngine != AuthzEngineBuiltin && cfg.AuthzEngine != AuthzEngineOPA {
		return nil, errors.New("config: AUTHZ_ENGINE must be builtin or opa")
	}

	if (cfg.JWTPrivateKey == "") != (cfg.JWTPublicKey == "") {
		return nil, errors.New("config: JWT_PRIVATE_KEY and JWT_PUBLIC_KEY must be set together")
	}
	if cfg.Env == "production" && cfg.JWTPrivateKey == "" && len(cfg.JWTSecret) < 32 {
		return nil, errors.New("config: production requires a JWT key pair or a JWT_SECRET of at least 32 bytes")
	}

	if cfg.Argon2Time == 0 || cfg.Argon2MemoryKB < 8 || cfg.Argon2Threads == 0 {
		return nil, errors.New("config: ARGON2_TIME, ARGON2_MEMORY_KB (>= 8) and ARGON2_THREADS must be positive")
	}

	return &cfg, nil
}

// SessionTTL parses SessionTTLRaw as a time.Duration. Returns 8h if unset or invalid.
func (c *Config) SessionTTL() time.Duration {
	d, err := time.ParseDuration(c.SessionTTLRaw)
	if err != nil || d <= 0 {
		return 8 * time.Hour
	}
	return d
}

// AuthEnabled reports whether token signing material is configured.
func (c *Config) AuthEnabled() bool {
	return c != nil && (c.JWTPrivateKey != "" || c.JWTSecret != "")
}
