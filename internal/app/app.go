// Package app initializes and runs the cat finder web service.
// It configures logging, storage, sessions, the breed catalog client and
// routing, and handles graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/patric-chuzhbe/catfinder/internal/auth"
	"github.com/patric-chuzhbe/catfinder/internal/catalog"
	"github.com/patric-chuzhbe/catfinder/internal/config"
	"github.com/patric-chuzhbe/catfinder/internal/db/memorystorage"
	"github.com/patric-chuzhbe/catfinder/internal/db/postgresdb"
	"github.com/patric-chuzhbe/catfinder/internal/db/sqlitedb"
	"github.com/patric-chuzhbe/catfinder/internal/db/storage"
	"github.com/patric-chuzhbe/catfinder/internal/grpcserver"
	"github.com/patric-chuzhbe/catfinder/internal/ipchecker"
	"github.com/patric-chuzhbe/catfinder/internal/logger"
	"github.com/patric-chuzhbe/catfinder/internal/metrics"
	"github.com/patric-chuzhbe/catfinder/internal/models"
	"github.com/patric-chuzhbe/catfinder/internal/router"
	"github.com/patric-chuzhbe/catfinder/internal/service"
	"github.com/patric-chuzhbe/catfinder/internal/session"
	"github.com/patric-chuzhbe/catfinder/internal/web"
)

const shutdownTimeout = 10 * time.Second

// App encapsulates the configuration, HTTP handler, storage backend,
// session backend and the optional gRPC health server.
type App struct {
	cfg          *config.Config
	db           storage.Storage
	redisClient  *redis.Client
	httpHandler  http.Handler
	grpcServer   *grpc.Server
	grpcListener net.Listener
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and setting up storage and the session store
// - setting up metrics, the breed catalog client and the router
// - setting up the gRPC health server when GRPC_ADDRESS is set
func New(configOptions ...config.InitOption) (*App, error) {
	var err error
	app := &App{}

	app.cfg, err = config.New(configOptions...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	warnAboutDefaults(app.cfg)

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	sessionStore, err := app.getSessionStore()
	if err != nil {
		_ = app.closeBackends()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.New(registry)

	breeds := catalog.New(
		app.cfg.CatAPIBaseURL,
		catalog.WithAPIKey(app.cfg.CatAPIKey),
		catalog.WithTimeout(app.cfg.CatAPITimeout),
		catalog.WithCacheTTL(app.cfg.BreedsCacheTTL),
		catalog.WithMetrics(appMetrics),
	)

	svc := service.New(
		app.db,
		breeds,
		service.WithMetrics(appMetrics),
		service.WithImagesPerBreed(app.cfg.ImagesPerBreed),
	)

	sessions := session.NewManager(
		sessionStore,
		[]byte(app.cfg.SecretKey),
		session.WithCookieName(app.cfg.SessionCookieName),
		session.WithTTL(app.cfg.SessionTTL),
		session.WithSecureCookies(app.cfg.SecureCookies),
	)

	renderer, err := web.NewRenderer()
	if err != nil {
		_ = app.closeBackends()
		return nil, err
	}

	guard, err := ipchecker.New(app.cfg.TrustedSubnet)
	if err != nil {
		_ = app.closeBackends()
		return nil, err
	}

	app.httpHandler = router.New(
		svc,
		sessions,
		auth.New(app.db, sessions),
		renderer,
		guard,
		promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	)

	if app.cfg.GRPCAddr != "" {
		app.grpcServer, app.grpcListener, err = grpcserver.NewGRPCServer(app.cfg.GRPCAddr, app.db)
		if err != nil {
			_ = app.closeBackends()
			return nil, err
		}
	}

	return app, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpHandler
}

// Run starts the HTTP server with graceful shutdown support.
// It listens for system signals and cleans up resources upon termination.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Log.Infow("server running", "RunAddr", a.cfg.RunAddr)

	server := &http.Server{
		Addr:              a.cfg.RunAddr,
		Handler:           a.httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrCh := make(chan error, 2)
	go func() {
		serverErrCh <- server.ListenAndServe()
	}()

	if a.grpcServer != nil {
		logger.Log.Infow("gRPC health server running", "GRPCAddr", a.grpcListener.Addr().String())
		go func() {
			if err := a.grpcServer.Serve(a.grpcListener); err != nil {
				serverErrCh <- fmt.Errorf("gRPC: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		logger.Log.Infoln("Received shutdown signal. Closing storage and exiting...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		a.stopGRPC()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		return a.closeBackends()

	case err := <-serverErrCh:
		a.stopGRPC()
		_ = server.Close()
		_ = a.closeBackends()
		return fmt.Errorf("server error: %w", err)
	}
}

func (a *App) stopGRPC() {
	if a.grpcServer != nil {
		a.grpcServer.GracefulStop()
	}
}

// Close finalizes resources used by App such as logging.
func (a *App) Close() {
	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func (a *App) closeBackends() error {
	var errs []error
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			errs = append(errs, err)
		}
		a.redisClient = nil
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			errs = append(errs, err)
		}
		a.db = nil
	}

	return errors.Join(errs...)
}

func (a *App) getSessionStore() (session.Store, error) {
	if a.cfg.RedisURL == "" {
		return session.NewMemoryStore(), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.DBConnectionTimeout)
	defer cancel()

	client, err := session.NewRedisClient(ctx, a.cfg.RedisURL)
	if err != nil {
		logger.Log.Errorw("Error calling the `session.NewRedisClient()`", zap.Error(err))
		return nil, err
	}
	a.redisClient = client

	return session.NewRedisStore(client), nil
}

func warnAboutDefaults(cfg *config.Config) {
	if cfg.UsesDefaultSecretKey() {
		logger.Log.Warnw("SECRET_KEY is not set, session cookies are signed with the development default")
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	if cfg.DatabaseDSN != "" {
		return models.StorageTypePostgresql
	}

	if cfg.DBFileName != "" {
		return models.StorageTypeFile
	}

	return models.StorageTypeMemory
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypePostgresql:
		return postgresdb.New(
			context.Background(),
			cfg.DatabaseDSN,
			cfg.DBConnectionTimeout,
		)

	case models.StorageTypeFile:
		return sqlitedb.New(
			context.Background(),
			cfg.DBFileName,
			cfg.DBConnectionTimeout,
		)
	}

	return memorystorage.New()
}
