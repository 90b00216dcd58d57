package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihttp "github.com/happy-forks/ipcd/internal/api/http"
	"github.com/happy-forks/ipcd/internal/api/middleware"
	clip "github.com/happy-forks/ipcd/internal/clipboard"
	"github.com/happy-forks/ipcd/internal/config"
	"github.com/happy-forks/ipcd/internal/ipc"
	"github.com/happy-forks/ipcd/internal/logging"
	"github.com/happy-forks/ipcd/internal/monitoring"
	clipboardProvider "github.com/happy-forks/ipcd/internal/providers/clipboard"
	ipcProvider "github.com/happy-forks/ipcd/internal/providers/ipc"
	"github.com/happy-forks/ipcd/internal/service"
	"github.com/happy-forks/ipcd/internal/ws"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	manager  *ipc.Manager
	store    *clip.Store
	registry *service.Registry
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	var logger *logging.Logger
	if cfg.Logging.Development {
		logger = logging.NewDevelopment()
	} else {
		l, err := logging.New(logging.Config{
			Level:       cfg.Logging.Level,
			Development: false,
			OutputPaths: []string{"stdout"},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to build logger: %w", err)
		}
		logger = l
	}

	logger.Info("Initializing ipcd",
		zap.String("port", cfg.Server.Port),
		zap.String("host", cfg.Server.Host),
	)

	metrics := monitoring.NewMetrics()

	manager := ipc.NewManager(logger).WithMetrics(metrics)
	store := clip.NewStore(logger,
		clip.WithHistoryLimit(cfg.Clipboard.HistoryLimit),
		clip.WithGlobal(cfg.Clipboard.EnableGlobal),
		clip.WithMetrics(metrics),
	)

	registry := service.NewRegistry()
	if err := registry.Register(ipcProvider.NewProvider(manager)); err != nil {
		return nil, fmt.Errorf("failed to register ipc provider: %w", err)
	}
	if err := registry.Register(clipboardProvider.NewProvider(store)); err != nil {
		return nil, fmt.Errorf("failed to register clipboard provider: %w", err)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	handlers := apihttp.NewHandlers(registry, manager, store).WithMetrics(metrics)
	wsHandler := ws.NewHandler(store, logger)

	router.GET("/", handlers.Root)
	router.GET("/health", handlers.Health)

	// Service management
	router.GET("/services", handlers.ListServices)
	router.POST("/services/execute", handlers.ExecuteService)

	// Object and clipboard stats
	router.GET("/ipc/stats", handlers.IPCStats)
	router.GET("/clipboard/stats", handlers.ClipboardStats)

	// WebSocket clipboard stream
	router.GET("/ws/clipboard", wsHandler.HandleConnection)

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		manager:  manager,
		store:    store,
		registry: registry,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(ctx); err != nil {
			s.logger.Error("Failed to shut down HTTP server", zap.Error(err))
			return err
		}
	}

	s.logger.Sync()
	return nil
}
