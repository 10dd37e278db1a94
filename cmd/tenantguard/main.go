package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrymomot/tenantguard/pkg/api"
	"github.com/dmitrymomot/tenantguard/pkg/audit"
	"github.com/dmitrymomot/tenantguard/pkg/authn"
	"github.com/dmitrymomot/tenantguard/pkg/authz"
	"github.com/dmitrymomot/tenantguard/pkg/config"
	"github.com/dmitrymomot/tenantguard/pkg/httpserver"
	"github.com/dmitrymomot/tenantguard/pkg/jwt"
	"github.com/dmitrymomot/tenantguard/pkg/logger"
	"github.com/dmitrymomot/tenantguard/pkg/metrics"
	"github.com/dmitrymomot/tenantguard/pkg/mongo"
	"github.com/dmitrymomot/tenantguard/pkg/pg"
	"github.com/dmitrymomot/tenantguard/pkg/pipeline"
	"github.com/dmitrymomot/tenantguard/pkg/project"
	"github.com/dmitrymomot/tenantguard/pkg/ratelimiter"
	"github.com/dmitrymomot/tenantguard/pkg/rbac"
	"github.com/dmitrymomot/tenantguard/pkg/redis"
	"github.com/dmitrymomot/tenantguard/pkg/reqmeta"
	"github.com/dmitrymomot/tenantguard/pkg/storage/memory"
	"github.com/dmitrymomot/tenantguard/pkg/storage/postgres"
	"github.com/dmitrymomot/tenantguard/pkg/tenant"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		slog.Error("tenantguard stopped", logger.Error(err))
		os.Exit(1)
	}
}

// store is everything the pipeline and handlers read and write.
type store interface {
	authn.IdentityStore
	tenant.MembershipStore
	project.Store
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Env, cfg.Name),
		logger.WithContextExtractors(
			reqmeta.LoggerExtractor(),
			authn.LoggerExtractor(),
			tenant.LoggerExtractor(),
		),
	)
	slog.SetDefault(log)

	m := metrics.New()
	var (
		checks []httpserver.Check
		hooks  []httpserver.Option
	)

	var (
		data       store
		auditStore audit.Store
		mem        *memory.Store
	)
	switch cfg.StorageDriver {
	case driverPostgres:
		pool, err := pg.Connect(ctx, cfg.Postgres)
		if err != nil {
			return err
		}
		db := stdlib.OpenDBFromPool(pool)
		hooks = append(hooks, httpserver.WithShutdownHook(func(context.Context) error {
			err := db.Close()
			pool.Close()
			return err
		}))
		checks = append(checks, httpserver.Check{Name: "postgres", Ping: pg.Healthcheck(pool)})

		if cfg.Postgres.AutoMigrate {
			if err := pg.Migrate(ctx, db, postgres.Migrations, postgres.MigrationsDir, cfg.Postgres, log); err != nil {
				return err
			}
		}
		pgStore := postgres.New(db)
		data = pgStore
		if cfg.AuditDriver == driverPostgres {
			auditStore = pgStore
		}
	case driverMemory:
		mem = memory.New()
		data = mem
	}

	switch cfg.AuditDriver {
	case driverMongo:
		s, shutdown, check, err := connectMongoAudit(ctx, cfg.Mongo)
		if err != nil {
			return err
		}
		auditStore = s
		hooks = append(hooks, httpserver.WithShutdownHook(shutdown))
		checks = append(checks, check)
	case driverMemory:
		if mem == nil {
			mem = memory.New()
		}
		auditStore = mem
	}

	roles := rbac.NewInMemRoleSource(rbac.DefaultRoles())
	if cfg.RolesFile != "" {
		roles = rbac.NewFileRoleSource(cfg.RolesFile)
	}
	catalog, err := rbac.NewCatalog(ctx, roles)
	if err != nil {
		return fmt.Errorf("load roles: %w", err)
	}

	verifier, err := jwt.NewVerifier([]byte(cfg.JWTSecret),
		jwt.WithIssuer(cfg.JWTIssuer),
		jwt.WithAudience(cfg.JWTAudience),
	)
	if err != nil {
		return err
	}

	auditLog := audit.NewLogger(auditStore,
		audit.WithQueueSize(cfg.AuditQueueSize),
		audit.WithWriteTimeout(cfg.AuditWriteTimeout),
		audit.WithLogger(log),
		audit.WithRecorder(m),
		audit.WithRequestIDExtractor(reqmeta.RequestID),
		audit.WithIPExtractor(reqmeta.IP),
		audit.WithUserAgentExtractor(reqmeta.UserAgent),
	)
	// Drain the audit queue before closing the stores it writes to.
	hooks = append([]httpserver.Option{httpserver.WithShutdownHook(auditLog.Close)}, hooks...)

	resolver := tenant.NewResolver(data, catalog, tenant.WithLogger(log))
	p := pipeline.New(authn.New(verifier, data, authn.WithLogger(log)), resolver,
		pipeline.WithStageTimeout(cfg.StageTimeout),
		pipeline.WithSelector(tenant.HeaderSelector(cfg.TenantHeader)),
		pipeline.WithEnforcer(authz.NewEnforcer(authz.WithLogger(log), authz.WithRecorder(m))),
		pipeline.WithLogger(log),
	)

	var limiter ratelimiter.RateLimiter
	if cfg.RateLimitEnabled {
		l, shutdown, check, err := newRateLimiter(ctx, cfg)
		if err != nil {
			return err
		}
		limiter = l
		if shutdown != nil {
			hooks = append(hooks, httpserver.WithShutdownHook(shutdown))
		}
		if check != nil {
			checks = append(checks, *check)
		}
	}

	if cfg.seedsDemo() {
		if err := seedDemo(mem, cfg, log); err != nil {
			return err
		}
	}

	handler := api.NewRouter(api.Options{
		Pipeline:          p,
		Switcher:          resolver,
		Projects:          project.NewService(data, auditLog, project.WithLogger(log)),
		Audit:             audit.NewReader(auditStore),
		Metrics:           m,
		RateLimiter:       limiter,
		ReadinessChecks:   checks,
		StageTimeout:      cfg.StageTimeout,
		TrustProxyHeaders: cfg.TrustProxyHeaders,
		Logger:            log,
	})

	opts := append([]httpserver.Option{httpserver.WithLogger(log)}, hooks...)
	return httpserver.NewFromConfig(cfg.HTTP, opts...).Run(ctx, handler)
}

func connectMongoAudit(ctx context.Context, cfg mongo.Config) (audit.Store, httpserver.ShutdownHook, httpserver.Check, error) {
	client, err := mongo.New(ctx, cfg)
	if err != nil {
		return nil, nil, httpserver.Check{}, err
	}
	s := mongo.NewAuditStore(client.Database(cfg.Database).Collection(cfg.AuditCollection))
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, httpserver.Check{}, err
	}
	return s, client.Disconnect, httpserver.Check{Name: "mongodb", Ping: mongo.Healthcheck(client)}, nil
}

func newRateLimiter(ctx context.Context, cfg appConfig) (ratelimiter.RateLimiter, httpserver.ShutdownHook, *httpserver.Check, error) {
	var (
		s        ratelimiter.Store
		shutdown httpserver.ShutdownHook
		check    *httpserver.Check
	)
	switch cfg.RateLimitStore {
	case driverRedis:
		client, err := redis.Connect(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		s = ratelimiter.NewRedisStore(client)
		shutdown = func(context.Context) error { return client.Close() }
		check = &httpserver.Check{Name: "redis", Ping: redis.Healthcheck(client)}
	default:
		ms := ratelimiter.NewMemoryStore()
		s = ms
		shutdown = func(context.Context) error {
			ms.Close()
			return nil
		}
	}

	bucket, err := ratelimiter.NewBucket(s, cfg.RateLimit)
	if err != nil {
		if shutdown != nil {
			_ = shutdown(context.Background())
		}
		return nil, nil, nil, fmt.Errorf("rate limiter: %w", err)
	}
	return bucket, shutdown, check, nil
}

// seedDemo fills an in-memory store with one tenant and an owner, and logs
// a short-lived token for that owner.
func seedDemo(mem *memory.Store, cfg appConfig, log *slog.Logger) error {
	now := time.Now().UTC()
	mem.AddUser(authn.User{ID: "usr_demo", AuthSubjectID: "demo|owner", Email: "owner@demo.test"})
	mem.AddTenant(tenant.Tenant{ID: "org_demo", Name: "Demo", Slug: "demo", Plan: "free", CreatedAt: now, UpdatedAt: now})
	mem.AddMembership(tenant.Membership{
		ID: "mem_demo", TenantID: "org_demo", UserID: "usr_demo",
		Role: rbac.RoleOwner, JoinedAt: now, IsActive: true,
	})

	issuer, err := jwt.NewIssuer([]byte(cfg.JWTSecret), cfg.JWTIssuer)
	if err != nil {
		return err
	}
	var aud []string
	if cfg.JWTAudience != "" {
		aud = append(aud, cfg.JWTAudience)
	}
	token, err := issuer.Generate("demo|owner", "owner@demo.test", 24*time.Hour, aud...)
	if err != nil {
		return err
	}
	log.Info("in-memory storage seeded",
		logger.TenantID("org_demo"),
		logger.UserID("usr_demo"),
		slog.String("token", token),
	)
	return nil
}
