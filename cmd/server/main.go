package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"acceso/internal/admin"
	"acceso/internal/platform/config"
	"acceso/internal/platform/database"
	"acceso/internal/platform/httpserver"
	"acceso/internal/platform/logger"
	"acceso/internal/platform/redis"
	rolehandler "acceso/internal/role/handler"
	roleservice "acceso/internal/role/service"
	rolestore "acceso/internal/role/store"
	"acceso/internal/seed"
	httptransport "acceso/internal/transport/http"
	userhandler "acceso/internal/user/handler"
	usermetrics "acceso/internal/user/metrics"
	userservice "acceso/internal/user/service"
	userstore "acceso/internal/user/store"
	id "acceso/pkg/domain"
	"acceso/pkg/platform/audit"
	auditmetrics "acceso/pkg/platform/audit/metrics"
	auditmemory "acceso/pkg/platform/audit/store/memory"
	auditpostgres "acceso/pkg/platform/audit/store/postgres"
)

// main wires stores, services, and the HTTP surface, then runs the server
// until a termination signal arrives. Business logic lives in the internal
// service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.New(database.DefaultConfig(cfg.PostgresDSN))
	if err != nil {
		log.Error("database init failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if pool != nil {
		if err := pool.Migrate(ctx); err != nil {
			log.Error("migrations failed", "error", err)
			os.Exit(1)
		}
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis init failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	app, err := buildApp(ctx, cfg, log, pool, redisClient)
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer app.recorder.Close()

	health := map[string]httptransport.HealthChecker{}
	if pool != nil {
		health["postgres"] = pool
	}
	if redisClient != nil {
		health["redis"] = redisClient
	}

	router := httptransport.NewRouter(httptransport.Config{
		Handlers:   app.handlers,
		AdminToken: cfg.AdminToken,
		Logger:     log,
		Health:     health,
	})

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting http server",
		"addr", cfg.Addr,
		"postgres", pool != nil,
		"redis", redisClient != nil,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}

// application groups what main needs after wiring.
type application struct {
	handlers []httptransport.Registrar
	recorder *audit.Recorder
}

// roleStores is the union of the role store capabilities the wiring needs:
// the role service CRUD surface plus the existence check the user service
// validates role references against.
type roleStores interface {
	roleservice.Store
	ExistsByID(ctx context.Context, roleID id.RoleID) (bool, error)
}

// buildApp selects the storage backend, assembles the audit recorder, the
// services, and their HTTP handlers, and runs the seeder when enabled.
func buildApp(ctx context.Context, cfg config.Server, log *slog.Logger, pool *database.Pool, redisClient *redis.Client) (*application, error) {
	var (
		users      userservice.Store
		roles      roleStores
		auditStore audit.Store
		existence  userstore.ExistenceChecker
		usage      roleservice.UsageCounter
		seedUsers  seed.Users
		seedTx     seed.Tx = seed.NopTx{}
	)

	if pool != nil {
		pgUsers := userstore.NewPostgres(pool.DB())
		pgRoles := rolestore.NewPostgres(pool.DB())
		users = pgUsers
		roles = pgRoles
		auditStore = auditpostgres.New(pool.DB())
		existence = pgUsers
		usage = pgUsers
		seedUsers = pgUsers
		seedTx = newSeedPostgresTx(pool.DB())
	} else {
		memUsers := userstore.NewInMemoryStore()
		memRoles := rolestore.NewInMemoryStore()
		users = memUsers
		roles = memRoles
		auditStore = auditmemory.NewInMemoryStore()
		existence = memUsers
		usage = memUsers
		seedUsers = memUsers
	}

	var rawRedis *goredis.Client
	if redisClient != nil {
		rawRedis = redisClient.Client
	}
	actorCache := userstore.NewExistenceCache(existence, rawRedis, userstore.WithCacheLogger(log))

	recorderOpts := []audit.RecorderOption{
		audit.WithLogger(log),
		audit.WithMetrics(auditmetrics.New()),
	}
	if cfg.AuditBufferSize > 0 {
		recorderOpts = append(recorderOpts, audit.WithAsyncBuffer(cfg.AuditBufferSize))
	}
	recorder := audit.NewRecorder(auditStore, actorCache, recorderOpts...)

	if cfg.Seed {
		seeder := seed.New(roles, seedUsers, seedTx, seed.WithLogger(log))
		if _, err := seeder.Run(ctx, cfg.AdminPassword); err != nil {
			return nil, err
		}
	}

	userSvc := userservice.New(users, roles,
		userservice.WithLogger(log),
		userservice.WithRecorder(recorder),
		userservice.WithMetrics(usermetrics.New()),
		userservice.WithInvalidator(actorCache),
	)
	roleSvc := roleservice.New(roles, usage,
		roleservice.WithLogger(log),
		roleservice.WithRecorder(recorder),
	)

	return &application{
		handlers: []httptransport.Registrar{
			userhandler.New(userSvc, log),
			rolehandler.New(roleSvc, log),
			admin.New(auditStore, recorder, log),
		},
		recorder: recorder,
	}, nil
}
