// @title                       Task Tracker API
// @version                     1.0
// @description                 Task management API with cache-aside reads and full-text search.
// @BasePath                    /api/v1
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
// @description                 Type "Bearer" followed by a space and the access token.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/sirpyerre/task-tracker/internal/api"
	"github.com/sirpyerre/task-tracker/internal/api/handler"
	"github.com/sirpyerre/task-tracker/internal/core/ports"
	"github.com/sirpyerre/task-tracker/internal/core/repository"
	"github.com/sirpyerre/task-tracker/internal/core/service"
	"github.com/sirpyerre/task-tracker/internal/infrastructure/cache/memory"
	"github.com/sirpyerre/task-tracker/internal/infrastructure/db/mongo"
	"github.com/sirpyerre/task-tracker/internal/infrastructure/db/redis"
	"github.com/sirpyerre/task-tracker/internal/infrastructure/db/sqlstore"
	"github.com/sirpyerre/task-tracker/internal/infrastructure/security"
	"github.com/sirpyerre/task-tracker/internal/pkg/config"
	"github.com/sirpyerre/task-tracker/pkg/logger"
)

const (
	serviceName     = "task-tracker"
	startupTimeout  = 15 * time.Second
	shutdownTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load(context.Background())
	if err != nil {
		boot := logger.Init(logger.Options{Service: serviceName})
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	log := logger.Init(logger.OptionsFor(cfg.Env, cfg.LogLevel, serviceName))

	startCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	// --- Primary store ---
	db, err := sqlstore.Open(startCtx, sqlstore.Config{
		Driver: cfg.DB.Driver,
		DSN:    cfg.DB.DSN,
		Debug:  cfg.DB.Debug,
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("primary store unreachable")
	}
	if err := sqlstore.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}

	// --- Cache and search index (advisory: the service starts without them) ---
	cache, rdb := openCache(startCtx, cfg, log)
	index, mongoClient := openSearchIndex(startCtx, cfg, log)

	// --- Core ---
	repo := repository.NewTaskRepository(
		sqlstore.NewTaskStore(db),
		cache,
		index,
		repository.Options{InvalidateListPages: cfg.Cache.InvalidateLists},
		log,
	)
	if err := repo.EnsureSearchIndex(startCtx); err != nil && !mongo.IsDisabled(err) {
		log.Warn().Err(err).Msg("could not ensure search index; searches will fall back to the primary store")
	}

	taskService := service.NewTaskService(repo, log)
	authService := service.NewAuthService(
		sqlstore.NewUserRepository(db),
		security.NewBcryptHasher(bcrypt.DefaultCost),
		security.NewJWTIssuer(cfg.JWTSecret, serviceName),
		cfg.AccessTokenTTL,
		log,
	)
	if cfg.Admin.Enabled() {
		if _, err := authService.EnsureAdmin(startCtx, ports.RegisterInput{
			Email:    cfg.Admin.Email,
			Username: cfg.Admin.Username,
			Password: cfg.Admin.Password,
		}); err != nil {
			log.Error().Err(err).Str("username", cfg.Admin.Username).Msg("bootstrap admin failed")
		}
	}

	cancel()

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Tasks:  taskService,
		Auth:   authService,
		Logger: log,
		Health: []handler.Dependency{
			{Name: "database", Critical: true, Pinger: sqlstore.Pinger{DB: db}},
			{Name: "cache", Pinger: cache},
			{Name: "search", Pinger: index},
		},
		APIPrefix:   cfg.APIPrefix,
		CORSOrigins: cfg.CORSOrigins,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// Backends are closed only after the HTTP server has drained.
	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"api": func(ctx context.Context) error {
				errs := []error{e.Shutdown(ctx)}
				if rdb != nil {
					errs = append(errs, rdb.Close())
				}
				if mongoClient != nil {
					errs = append(errs, mongo.Disconnect(ctx, mongoClient, shutdownTimeout))
				}
				errs = append(errs, sqlstore.Close(db))
				return errors.Join(errs...)
			},
		},
	)

	exitCode := <-wait
	log.Info().Int("exit_code", exitCode).Msg("shutdown complete")
	os.Exit(exitCode)
}

// openCache returns the configured cache backend. An unreachable Redis is
// not fatal: the client reconnects lazily and, until then, every lookup is a
// miss.
func openCache(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.Cache, *goredis.Client) {
	if cfg.Cache.Backend == config.CacheMemory {
		log.Info().Msg("using in-process cache")
		return memory.New(memory.DefaultConfig()), nil
	}

	rcfg := redis.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}
	client, err := redis.Connect(ctx, rcfg)
	if err != nil {
		log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable at startup; serving from the primary store")
		client = redis.NewClient(rcfg)
	}
	return redis.NewCache(client), client
}

// openSearchIndex connects the Mongo-backed index. An unreachable Mongo is
// not fatal: the client keeps trying in the background and searches fall
// back to the primary store meanwhile. Search is disabled only when switched
// off or misconfigured.
func openSearchIndex(ctx context.Context, cfg *config.Config, log zerolog.Logger) (ports.SearchIndex, *mongodriver.Client) {
	if !cfg.Search.Enabled {
		log.Info().Msg("search disabled; searches use the primary store")
		return mongo.DisabledIndex{}, nil
	}

	mcfg := mongo.Config{
		URI:      cfg.Search.URI,
		Database: cfg.Search.Database,
		AppName:  serviceName,
	}
	client, db, err := mongo.Connect(ctx, mcfg)
	if err != nil {
		log.Warn().Err(err).Msg("search index unreachable at startup; searches use the primary store until it answers")
		if client, db, err = mongo.NewClient(mcfg); err != nil {
			log.Error().Err(err).Msg("invalid search configuration; search disabled")
			return mongo.DisabledIndex{}, nil
		}
	}
	return mongo.NewTaskIndex(db, cfg.Search.Collection, 0), client
}
