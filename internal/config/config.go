// Package config loads backend configuration from an optional .env file, an
// optional YAML file and HABITS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"habits-backend/internal/auth"
)

// Session storage backends
const (
	SessionBackendSQL   = "sql"
	SessionBackendRedis = "redis"
)

type ServerConfig struct {
	Address     string   `mapstructure:"address"`
	TLS         bool     `mapstructure:"tls"`
	CertDir     string   `mapstructure:"cert_dir"`
	CORSOrigins []string `mapstructure:"cors_origins"`
	// TrustedProxies lists the IPs or CIDR ranges whose X-Forwarded-For
	// header is believed. Empty means the peer address is the client.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// TrustedProxyRanges parses TrustedProxies. A bare IP becomes a single-host
// range.
func (s ServerConfig) TrustedProxyRanges() ([]*net.IPNet, error) {
	ranges := make([]*net.IPNet, 0, len(s.TrustedProxies))
	for _, entry := range s.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", entry)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			ranges = append(ranges, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		ranges = append(ranges, ipNet)
	}
	return ranges, nil
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

type SessionConfig struct {
	CookieName    string        `mapstructure:"cookie_name"`
	TTLDays       int           `mapstructure:"ttl_days"`
	Backend       string        `mapstructure:"backend"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Window   time.Duration `mapstructure:"window"`
	Block    time.Duration `mapstructure:"block"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type Config struct {
	// Production turns on Secure cookies
	Production bool              `mapstructure:"production"`
	Server     ServerConfig      `mapstructure:"server"`
	Database   DatabaseConfig    `mapstructure:"database"`
	Session    SessionConfig     `mapstructure:"session"`
	Redis      RedisConfig       `mapstructure:"redis"`
	Argon2     auth.Argon2Params `mapstructure:"argon2"`
	RateLimit  RateLimitConfig   `mapstructure:"rate_limit"`
	Log        LogConfig         `mapstructure:"log"`
}

// SessionTTL is the configured session lifetime
func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.Session.TTLDays) * 24 * time.Hour
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("production", false)

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.tls", false)
	v.SetDefault("server.cert_dir", "./data/certs")
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.trusted_proxies", []string{})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/habits.db")
	v.SetDefault("database.dsn", "")

	v.SetDefault("session.cookie_name", "session_token")
	v.SetDefault("session.ttl_days", 30)
	v.SetDefault("session.backend", SessionBackendSQL)
	v.SetDefault("session.sweep_interval", time.Hour)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("argon2.memory", auth.DefaultArgon2Params.Memory)
	v.SetDefault("argon2.iterations", auth.DefaultArgon2Params.Iterations)
	v.SetDefault("argon2.parallelism", auth.DefaultArgon2Params.Parallelism)
	v.SetDefault("argon2.salt_length", auth.DefaultArgon2Params.SaltLength)
	v.SetDefault("argon2.key_length", auth.DefaultArgon2Params.KeyLength)

	v.SetDefault("rate_limit.attempts", 5)
	v.SetDefault("rate_limit.window", 15*time.Minute)
	v.SetDefault("rate_limit.block", 15*time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Load reads the configuration. path may be empty, in which case an optional
// habits.yaml in the working directory is used.
// Environment variables override the file, e.g. HABITS_SESSION_TTL_DAYS=7.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path == "" {
		v.SetConfigName("habits")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("HABITS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the combination of settings
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return errors.New("database.path is required for sqlite")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return errors.New("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}

	switch c.Session.Backend {
	case SessionBackendSQL:
	case SessionBackendRedis:
		if c.Redis.Addr == "" {
			return errors.New("redis.addr is required for the redis session backend")
		}
	default:
		return fmt.Errorf("unsupported session.backend %q", c.Session.Backend)
	}

	if c.Session.CookieName == "" {
		return errors.New("session.cookie_name must not be empty")
	}
	if c.Session.TTLDays <= 0 {
		return errors.New("session.ttl_days must be positive")
	}
	if c.RateLimit.Attempts <= 0 {
		return errors.New("rate_limit.attempts must be positive")
	}
	if c.Server.TLS && c.Server.CertDir == "" {
		return errors.New("server.cert_dir is required when tls is enabled")
	}
	if _, err := c.Server.TrustedProxyRanges(); err != nil {
		return fmt.Errorf("server.trusted_proxies: %w", err)
	}
	if err := c.Argon2.Validate(); err != nil {
		return fmt.Errorf("argon2: %w", err)
	}
	return nil
}
