package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// JWTConfig configures JWT verification against a JWKS endpoint.
type JWTConfig struct {
	Issuer   string `mapstructure:"issuer"`
	Audience string `mapstructure:"audience"`
	JWKSURL  string `mapstructure:"jwks_url"`

	ClockSkew              time.Duration `mapstructure:"clock_skew"`
	JWKSRefreshInterval    time.Duration `mapstructure:"jwks_refresh_interval"`
	JWKSMinRefreshInterval time.Duration `mapstructure:"jwks_min_refresh_interval"`

	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// LocalAuthConfig configures the built-in HS256 token issuer.
type LocalAuthConfig struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

type AuthConfig struct {
	// Mode is one of jwt, local or dev.
	Mode  string          `mapstructure:"mode"`
	JWT   JWTConfig       `mapstructure:"jwt"`
	Local LocalAuthConfig `mapstructure:"local"`
	Dev   struct {
		Subject string `mapstructure:"subject"`
	} `mapstructure:"dev"`
}

type RateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
	Burst    int           `mapstructure:"burst"`
}

type SeedConfig struct {
	OnStart         bool   `mapstructure:"on_start"`
	OfficerEmail    string `mapstructure:"officer_email"`
	OfficerPassword string `mapstructure:"officer_password"`
	OfficerName     string `mapstructure:"officer_name"`
}

// Config holds the service configuration aggregated from SHUTTLE_* env vars and an
// optional config.yaml.
type Config struct {
	Server struct {
		Port            int           `mapstructure:"port"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Storage struct {
		// Backend is memory or postgres.
		Backend string `mapstructure:"backend"`
	} `mapstructure:"storage"`
	Database struct {
		URL      string `mapstructure:"url"`
		MaxConns int32  `mapstructure:"max_conns"`
	} `mapstructure:"database"`
	Auth AuthConfig `mapstructure:"auth"`
	Log  struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
	Service struct {
		Timezone string `mapstructure:"timezone"`
	} `mapstructure:"service"`
	RateLimit struct {
		Login RateLimitConfig `mapstructure:"login"`
	} `mapstructure:"ratelimit"`
	Seed SeedConfig `mapstructure:"seed"`
}

// Load reads configuration from environment variables and an optional config file in the
// working directory.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}
	return load(v)
}

func load(v *viper.Viper) (Config, error) {
	v.SetEnvPrefix("SHUTTLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("auth.mode", "local")
	v.SetDefault("auth.jwt.issuer", "")
	v.SetDefault("auth.jwt.audience", "")
	v.SetDefault("auth.jwt.jwks_url", "")
	v.SetDefault("auth.jwt.clock_skew", 30*time.Second)
	// Refresh periodically to pick up key rotation even if an old key is still cached.
	v.SetDefault("auth.jwt.jwks_refresh_interval", 5*time.Minute)
	// Bound refresh frequency when a token presents an unknown kid.
	v.SetDefault("auth.jwt.jwks_min_refresh_interval", 10*time.Second)
	v.SetDefault("auth.jwt.http_timeout", 5*time.Second)
	v.SetDefault("auth.local.secret", "")
	v.SetDefault("auth.local.issuer", "campus-shuttle")
	v.SetDefault("auth.local.ttl", 8*time.Hour)
	v.SetDefault("auth.dev.subject", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("service.timezone", "UTC")

	v.SetDefault("ratelimit.login.requests", 10)
	v.SetDefault("ratelimit.login.window", time.Minute)
	v.SetDefault("ratelimit.login.burst", 5)

	v.SetDefault("seed.on_start", false)
	v.SetDefault("seed.officer_email", "")
	v.SetDefault("seed.officer_password", "")
	v.SetDefault("seed.officer_name", "Transport Officer")
}

// Validate checks cross-field requirements that defaults cannot satisfy.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if c.Database.URL == "" {
			return errors.New("database.url is required for the postgres backend (SHUTTLE_DATABASE_URL)")
		}
	default:
		return fmt.Errorf("storage.backend must be memory or postgres, got %q", c.Storage.Backend)
	}

	switch c.Auth.Mode {
	case "jwt":
		j := c.Auth.JWT
		if j.Issuer == "" || j.Audience == "" || j.JWKSURL == "" {
			return errors.New("missing required settings: auth.jwt.issuer, auth.jwt.audience, auth.jwt.jwks_url")
		}
	case "local":
		if len(c.Auth.Local.Secret) < 32 {
			return errors.New("auth.local.secret must be at least 32 bytes (SHUTTLE_AUTH_LOCAL_SECRET)")
		}
	case "dev":
	default:
		return fmt.Errorf("auth.mode must be jwt, local or dev, got %q", c.Auth.Mode)
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	return nil
}

// Location resolves service.timezone, which decides the calendar day used for expiry and
// the default availability window.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Service.Timezone)
	if err != nil {
		return nil, fmt.Errorf("service.timezone: %w", err)
	}
	return loc, nil
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
