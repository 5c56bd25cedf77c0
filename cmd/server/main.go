package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liamcoop/churn/inference"
	"github.com/liamcoop/churn/internal/config"
	"github.com/liamcoop/churn/internal/logger"
	"github.com/liamcoop/churn/migrations"
	"github.com/liamcoop/churn/prediction"
)

type Server struct {
	platform *prediction.Platform
	cfg      config.ServerConfig
	log      logger.Logger
	router   *chi.Mux
	closers  []func() error
}

// NewServer loads the model, opens and migrates the database, prepares the
// storage directories and the results cache, and builds the router.
func NewServer(cfg *config.Config, log logger.Logger) (*Server, error) {
	model, err := inference.LoadBundle(cfg.Model.Path)
	if err != nil {
		return nil, err
	}
	log.Info("model loaded", map[string]interface{}{
		"path":             cfg.Model.Path,
		"kind":             model.Kind(),
		"required_columns": len(model.RequiredColumns()),
		"threshold":        model.Threshold(),
	})

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	files, err := prediction.NewFileStore(cfg.Storage.UploadsDir)
	if err != nil {
		return nil, err
	}

	db, dialect, err := prediction.OpenDatabase(cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := migrations.Up(db, string(dialect)); err != nil {
		db.Close()
		return nil, err
	}
	log.Info("database ready", map[string]interface{}{"dialect": string(dialect)})

	cache, closeCache := newResultsCache(cfg.Redis, log)

	platform := prediction.NewPlatform(
		prediction.NewService(model, log),
		prediction.NewSQLStore(db, dialect),
		files,
		cache,
		log,
	)

	s := NewServerWithDeps(platform, cfg.Server, log)
	s.closers = append(s.closers, closeCache, db.Close)
	return s, nil
}

// NewServerWithDeps builds a server around an existing platform.
func NewServerWithDeps(platform *prediction.Platform, cfg config.ServerConfig, log logger.Logger) *Server {
	s := &Server{
		platform: platform,
		cfg:      cfg,
		log:      log,
	}
	s.setupRoutes()
	return s
}

// newResultsCache returns the Redis cache when configured and reachable,
// the in-memory cache otherwise.
func newResultsCache(cfg config.RedisConfig, log logger.Logger) (prediction.ResultsCache, func() error) {
	cacheCfg := prediction.DefaultCacheConfig()
	if cfg.ResultsTTL > 0 {
		cacheCfg.TTL = cfg.ResultsTTL
	}

	if !cfg.Enabled() {
		return prediction.NewInMemoryResultsCache(cacheCfg), func() error { return nil }
	}

	client := prediction.NewRedisClient(prediction.RedisOptions{
		Address:  cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	cache := prediction.NewRedisResultsCache(client, cacheCfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cache.Ping(ctx); err != nil {
		log.WithError(err).Warn("redis unavailable, using in-memory results cache", map[string]interface{}{
			"address": cfg.Address,
		})
		client.Close()
		return prediction.NewInMemoryResultsCache(cacheCfg), func() error { return nil }
	}

	log.Info("redis results cache enabled", map[string]interface{}{"address": cfg.Address})
	return cache, client.Close
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.requestTimeout()))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.FrontendOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/", s.handleHealth)
	r.Get("/api/v1/health", s.handleHealth)

	// Predictions
	r.Post("/upload", s.handleUpload)
	r.Get("/results/{uploadId}", s.handleResults)

	r.Get("/api/v1/model", s.handleModel)
	r.Handle("/metrics", promhttp.Handler())

	s.router = r
}

func (s *Server) requestTimeout() time.Duration {
	if s.cfg.RequestTimeout <= 0 {
		return 60 * time.Second
	}
	return s.cfg.RequestTimeout
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close releases the cache client and the database.
func (s *Server) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			s.log.WithError(err).Warn("close failed", nil)
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)

	server, err := NewServer(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to create server", map[string]interface{}{
			"model_path": cfg.Model.Path,
		})
	}
	defer server.Close()

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: server.requestTimeout() + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Info("server starting", map[string]interface{}{
			"addr":        httpServer.Addr,
			"environment": cfg.App.Environment,
		})
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed to start", nil)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Info("shutting down server", nil)

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server shutdown error", nil)
	}

	log.Info("server stopped", nil)
}
