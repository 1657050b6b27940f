// Package config lee la configuración del proceso desde variables de entorno.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	AuthDebug  = "debug"
	AuthJWT    = "jwt"
	AuthRemote = "remote"
)

type Config struct {
	Port  string `env:"PORT" envDefault:"8080"`
	DBDSN string `env:"DB_DSN"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	AppName   string `env:"APP_NAME" envDefault:"social-coordination"`

	Auth      AuthConfig
	Locations LocationsConfig
	Redis     RedisConfig
	Requests  RequestsConfig
	Scheduler SchedulerConfig
	RateLimit RateLimitConfig

	// DirectoryPassthrough: sin tabla de usuarios, username == user id (dev).
	DirectoryPassthrough bool `env:"DIRECTORY_PASSTHROUGH" envDefault:"true"`
}

type AuthConfig struct {
	Mode      string `env:"AUTH_MODE" envDefault:"debug"`
	JWTSecret string `env:"JWT_SECRET"`
	JWTIssuer string `env:"JWT_ISSUER"`
	BaseURL   string `env:"AUTH_BASE_URL"`
	APIKey    string `env:"AUTH_API_KEY"`
}

type LocationsConfig struct {
	BaseURL  string `env:"LOCATIONS_BASE_URL"`
	APIKey   string `env:"LOCATIONS_API_KEY"`
	AllowAll bool   `env:"ALLOW_ALL_LOCATIONS" envDefault:"true"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
	Prefix   string `env:"REDIS_PREFIX" envDefault:"social:stats"`
}

// RequestsConfig: 0 = el request no expira.
type RequestsConfig struct {
	FriendTTL time.Duration `env:"FRIEND_REQUEST_TTL" envDefault:"0s"`
	GroupTTL  time.Duration `env:"GROUP_REQUEST_TTL" envDefault:"168h"`
	EventTTL  time.Duration `env:"EVENT_REQUEST_TTL" envDefault:"48h"`
}

type SchedulerConfig struct {
	PollInterval time.Duration `env:"SCHEDULER_POLL_INTERVAL" envDefault:"1s"`
	Workers      int           `env:"SCHEDULER_WORKERS" envDefault:"4"`
}

// RateLimitConfig aplica a escrituras por actor. RPS <= 0 lo desactiva.
type RateLimitConfig struct {
	RPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"5"`
	Burst int     `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

// ParseEnv llena target con env vars usando los struct tags de caarlos0/env.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parsea y valida.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	c.Auth.Mode = strings.ToLower(strings.TrimSpace(c.Auth.Mode))
	switch c.Auth.Mode {
	case AuthDebug:
	case AuthJWT:
		if strings.TrimSpace(c.Auth.JWTSecret) == "" {
			return fmt.Errorf("config: JWT_SECRET is required when AUTH_MODE=jwt")
		}
	case AuthRemote:
		if strings.TrimSpace(c.Auth.BaseURL) == "" {
			return fmt.Errorf("config: AUTH_BASE_URL is required when AUTH_MODE=remote")
		}
	default:
		return fmt.Errorf("config: unknown AUTH_MODE %q", c.Auth.Mode)
	}
	if c.Requests.FriendTTL < 0 || c.Requests.GroupTTL < 0 || c.Requests.EventTTL < 0 {
		return fmt.Errorf("config: request TTLs cannot be negative")
	}
	if c.Scheduler.PollInterval <= 0 {
		return fmt.Errorf("config: SCHEDULER_POLL_INTERVAL must be positive")
	}
	if c.Scheduler.Workers <= 0 {
		return fmt.Errorf("config: SCHEDULER_WORKERS must be positive")
	}
	if !c.Locations.AllowAll && strings.TrimSpace(c.Locations.BaseURL) == "" {
		return fmt.Errorf("config: LOCATIONS_BASE_URL is required unless ALLOW_ALL_LOCATIONS=true")
	}
	return nil
}

func (c Config) Addr() string {
	return ":" + strings.TrimPrefix(strings.TrimSpace(c.Port), ":")
}
