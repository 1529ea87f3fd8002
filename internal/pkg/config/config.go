package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"

	CacheRedis  = "redis"
	CacheMemory = "memory"

	DBSQLite   = "sqlite"
	DBPostgres = "postgres"
)

// devSecret signs tokens in development when JWT_SECRET is unset.
const devSecret = "dev-only-insecure-secret"

type Config struct {
	Port           string        `env:"PORT,             default=8080"`
	Env            string        `env:"ENV,              default=development"`
	LogLevel       string        `env:"LOG_LEVEL,        default=info"`
	JWTSecret      string        `env:"JWT_SECRET"`
	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL, default=192h"`
	APIPrefix      string        `env:"API_PREFIX,       default=/api/v1"`
	CORSOrigins    []string      `env:"CORS_ORIGINS,     default=http://localhost:3000"`

	DB     DBConfig
	Cache  CacheConfig
	Redis  RedisConfig
	Search SearchConfig
	Admin  AdminConfig
}

type DBConfig struct {
	Driver string `env:"DB_DRIVER, default=sqlite"`
	DSN    string `env:"DB_DSN,    default=tasks.db"`
	Debug  bool   `env:"DB_DEBUG,  default=false"`
}

type CacheConfig struct {
	Backend         string `env:"CACHE_BACKEND,          default=redis"`
	InvalidateLists bool   `env:"CACHE_INVALIDATE_LISTS, default=false"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type SearchConfig struct {
	Enabled    bool   `env:"SEARCH_ENABLED,    default=true"`
	URI        string `env:"MONGO_URI,         default=mongodb://localhost:27017"`
	Database   string `env:"MONGO_DB,          default=task_tracker"`
	Collection string `env:"SEARCH_COLLECTION, default=tasks"`
}

// AdminConfig describes an optional account created at startup with the
// admin role. It is skipped unless all three fields are set.
type AdminConfig struct {
	Username string `env:"ADMIN_USERNAME"`
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

func (a AdminConfig) Enabled() bool {
	return a.Username != "" && a.Email != "" && a.Password != ""
}

// Load reads configuration from environment variables using go-envconfig and
// validates it.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerations and fills the development secret.
func (c *Config) Validate() error {
	var errs []error

	switch c.DB.Driver {
	case DBSQLite, DBPostgres:
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER must be %q or %q, got %q", DBSQLite, DBPostgres, c.DB.Driver))
	}

	switch c.Cache.Backend {
	case CacheRedis, CacheMemory:
	default:
		errs = append(errs, fmt.Errorf("CACHE_BACKEND must be %q or %q, got %q", CacheRedis, CacheMemory, c.Cache.Backend))
	}

	if c.AccessTokenTTL <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_TTL must be positive"))
	}

	if c.JWTSecret == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("JWT_SECRET is required in production"))
		} else {
			c.JWTSecret = devSecret
		}
	}

	if c.APIPrefix != "" && !strings.HasPrefix(c.APIPrefix, "/") {
		c.APIPrefix = "/" + c.APIPrefix
	}
	c.APIPrefix = strings.TrimSuffix(c.APIPrefix, "/")

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, EnvProduction)
}
