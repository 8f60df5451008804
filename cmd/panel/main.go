package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/panelkit/panel/internal/app"
	"github.com/panelkit/panel/internal/auth"
	"github.com/panelkit/panel/internal/gate"
	jobmetrics "github.com/panelkit/panel/internal/jobs"
	"github.com/panelkit/panel/internal/menus"
	"github.com/panelkit/panel/internal/observability"
	"github.com/panelkit/panel/internal/platform/cache"
	"github.com/panelkit/panel/internal/platform/db"
	"github.com/panelkit/panel/internal/rbac"
	"github.com/panelkit/panel/internal/roles"
	"github.com/panelkit/panel/internal/session"
	"github.com/panelkit/panel/internal/sse"
	"github.com/panelkit/panel/internal/token"
	"github.com/panelkit/panel/internal/users"
	"github.com/panelkit/panel/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping server startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	pool, err := db.New(ctx, cfg.PGDSN, db.Options{MaxConns: cfg.PGMaxConns})
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()
	conn := db.SQL(pool)
	defer conn.Close()

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	codec, err := token.NewCodecFromPEM(cfg.JWTPrivateKey, cfg.JWTPublicKey, cfg.JWTExpirationTime, token.WithIssuer(cfg.JWTIssuer))
	if err != nil {
		logger.Error("load signing keys", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()
	sessions := session.NewStore(redisClient)
	resolver := rbac.NewResolver(
		rbac.NewRepository(conn),
		sessions,
		rbac.WithConcurrency(cfg.PermissionRefreshConcurrency),
		rbac.WithLogger(logger),
		rbac.WithObserver(metrics),
	)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	var refresher rbac.Refresher = resolver
	var inspector jobs.QueueInspector
	if cfg.PermissionRefreshAsync {
		client := jobs.NewClient(redisOpts, jobmetrics.NewMetrics(metrics.Registerer()))
		defer client.Close()
		refresher = jobs.NewAsyncRefresher(client)

		asynqInspector := asynq.NewInspector(redisOpts)
		defer asynqInspector.Close()
		inspector = asynqInspector
	}

	authService := auth.NewService(auth.NewRepository(conn), sessions, resolver, codec, auth.Config{MultiDeviceLogin: cfg.MultiDeviceLogin}, logger)
	usersService := users.NewService(users.NewRepository(conn), sessions, refresher, logger)
	rolesService := roles.NewService(roles.NewRepository(conn), refresher, logger)
	menusService := menus.NewService(menus.NewRepository(conn), resolver, refresher, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		Gate:          gate.New(codec, sessions, resolver, gate.Config{MultiDeviceLogin: cfg.MultiDeviceLogin}, logger, metrics),
		AuthHandler:   auth.NewHandler(logger, authService),
		UsersHandler:  users.NewHandler(logger, usersService),
		RolesHandler:  roles.NewHandler(logger, rolesService),
		MenusHandler:  menus.NewHandler(logger, menusService),
		StreamHandler: sse.NewHandler(logger, cfg.SSEHeartbeat),
		JobHandler:    jobs.NewHandler(inspector, refresher, logger),
		Metrics:       metrics,
		HealthChecks: map[string]app.HealthCheck{
			"postgres": pool.Ping,
			"redis":    sessions.Ping,
		},
	})

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           router,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		// No WriteTimeout: event streams stay open. Other routes are bounded by RequestTimeout.
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
