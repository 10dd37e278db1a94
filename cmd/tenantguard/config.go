package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/tenantguard/pkg/httpserver"
	"github.com/dmitrymomot/tenantguard/pkg/mongo"
	"github.com/dmitrymomot/tenantguard/pkg/pg"
	"github.com/dmitrymomot/tenantguard/pkg/ratelimiter"
	"github.com/dmitrymomot/tenantguard/pkg/redis"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

// Storage drivers.
const (
	driverPostgres = "postgres"
	driverMongo    = "mongo"
	driverMemory   = "memory"
	driverRedis    = "redis"
)

type appConfig struct {
	Env  string `env:"APP_ENV" envDefault:"development"`
	Name string `env:"APP_NAME" envDefault:"tenantguard"`

	JWTSecret   string `env:"JWT_SECRET,required"`
	JWTIssuer   string `env:"JWT_ISSUER"`
	JWTAudience string `env:"JWT_AUDIENCE"`

	StageTimeout      time.Duration `env:"AUTHZ_STAGE_TIMEOUT" envDefault:"5s"`
	TenantHeader      string        `env:"TENANT_HEADER" envDefault:"X-Tenant-Id"`
	RolesFile         string        `env:"RBAC_ROLES_FILE"`
	TrustProxyHeaders bool          `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	AuditDriver   string `env:"AUDIT_DRIVER"`

	AuditQueueSize    int           `env:"AUDIT_QUEUE_SIZE" envDefault:"1024"`
	AuditWriteTimeout time.Duration `env:"AUDIT_WRITE_TIMEOUT" envDefault:"5s"`

	RateLimitEnabled bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitStore   string `env:"RATE_LIMIT_STORE" envDefault:"memory"`

	Postgres  pg.Config
	Mongo     mongo.Config
	Redis     redis.Config
	RateLimit ratelimiter.Config
	HTTP      httpserver.Config
}

func (c *appConfig) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 bytes")
	}
	if c.StageTimeout <= 0 {
		return errors.New("AUTHZ_STAGE_TIMEOUT must be positive")
	}
	if c.TenantHeader == "" {
		c.TenantHeader = tenant.DefaultHeader
	}

	switch c.StorageDriver {
	case driverPostgres:
		if c.Postgres.ConnectionString == "" {
			return fmt.Errorf("PG_CONN_URL is required for STORAGE_DRIVER=%s", driverPostgres)
		}
	case driverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.AuditDriver == "" {
		c.AuditDriver = c.StorageDriver
	}
	switch c.AuditDriver {
	case driverPostgres:
		if c.StorageDriver != driverPostgres {
			return fmt.Errorf("AUDIT_DRIVER=%s requires STORAGE_DRIVER=%s", driverPostgres, driverPostgres)
		}
	case driverMongo:
		if c.Mongo.ConnectionURL == "" {
			return fmt.Errorf("MONGODB_URL is required for AUDIT_DRIVER=%s", driverMongo)
		}
	case driverMemory:
	default:
		return fmt.Errorf("unknown AUDIT_DRIVER %q", c.AuditDriver)
	}

	switch c.RateLimitStore {
	case driverMemory, driverRedis:
	default:
		return fmt.Errorf("unknown RATE_LIMIT_STORE %q", c.RateLimitStore)
	}
	return nil
}

// seedsDemo reports whether startup should fill the data store with demo
// records. An in-memory audit store alongside Postgres data is never seeded.
func (c appConfig) seedsDemo() bool {
	return c.StorageDriver == driverMemory
}
