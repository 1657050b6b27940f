package main

// @title Social Coordination API
// @version 1.0
// @description Requests de amistad, ingreso a groups y events con vencimiento y cupo.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"social-coordination/internal/adapters/auth/jwt"
	authremote "social-coordination/internal/adapters/auth/remote"
	locremote "social-coordination/internal/adapters/locations/remote"
	"social-coordination/internal/adapters/stats/redisstats"
	mem "social-coordination/internal/adapters/storage/memory"
	pg "social-coordination/internal/adapters/storage/postgres"
	"social-coordination/internal/domain/admission"
	"social-coordination/internal/domain/timers"
	"social-coordination/internal/middleware"
	"social-coordination/internal/platform/config"
	"social-coordination/internal/platform/logger"
	"social-coordination/internal/platform/metrics"
	"social-coordination/internal/ports/auth"
	"social-coordination/internal/ports/locations"
	"social-coordination/internal/router"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{App: "social-coordination"}).Error("invalid config", map[string]any{"err": err.Error()})
		os.Exit(1)
	}

	log := logger.New(logger.Options{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: logger.ParseFormat(cfg.LogFormat),
		App:    cfg.AppName,
	})
	metrics.Register()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", map[string]any{"err": err.Error()})
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, log logger.Logger) error {
	opts := router.Options{
		Logger: log,
		Policy: admission.DeadlinePolicy{
			Friend: cfg.Requests.FriendTTL,
			Group:  cfg.Requests.GroupTTL,
			Event:  cfg.Requests.EventTTL,
		},
		Scheduler: timers.Options{
			PollInterval: cfg.Scheduler.PollInterval,
			Workers:      cfg.Scheduler.Workers,
		},
	}

	db, err := openDB(ctx, cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
		opts.DB = db
	} else {
		opts.Directory = mem.NewUserDirectory(cfg.DirectoryPassthrough)
	}

	if opts.AuthVerifier, err = authVerifier(cfg.Auth); err != nil {
		return err
	}
	if opts.Locations, err = locationChecker(cfg.Locations); err != nil {
		return err
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		stats := redisstats.NewStore(rdb, redisstats.WithPrefix(cfg.Redis.Prefix))
		if err := stats.Ping(ctx); err != nil {
			// Sin Redis seguimos; solo se pierden contadores.
			log.Warn("redis unavailable, stats disabled", map[string]any{"addr": cfg.Redis.Addr, "err": err.Error()})
		} else {
			opts.Stats = stats
		}
	}

	if cfg.RateLimit.RPS > 0 {
		opts.RateLimit = middleware.NewLimiterStore(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		opts.RateLimit.StartJanitor(ctx)
	}

	app := router.New(opts)

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      app.Handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := app.Scheduler.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Info("starting server", map[string]any{"addr": srv.Addr, "auth_mode": cfg.Auth.Mode, "postgres": db != nil})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func openDB(ctx context.Context, cfg config.Config, log logger.Logger) (*sql.DB, error) {
	if cfg.DBDSN == "" {
		log.Info("DB_DSN not set, using in-memory storage", nil)
		return nil, nil
	}
	db, err := pg.Open(cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := pg.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// authVerifier: en modo debug devuelve nil y se usa X-Debug-User-ID.
func authVerifier(cfg config.AuthConfig) (auth.AuthVerifier, error) {
	switch cfg.Mode {
	case config.AuthJWT:
		return jwt.NewVerifier(jwt.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, Leeway: 30 * time.Second})
	case config.AuthRemote:
		return authremote.NewVerifier(authremote.Config{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey})
	default:
		return nil, nil
	}
}

func locationChecker(cfg config.LocationsConfig) (locations.Checker, error) {
	if cfg.AllowAll {
		return locations.AllowAll{}, nil
	}
	return locremote.NewChecker(locremote.Config{BaseURL: cfg.BaseURL, APIKey: cfg.APIKey})
}
