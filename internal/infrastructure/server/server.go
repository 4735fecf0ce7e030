package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	apihttp "github.com/GriffinCanCode/ipc-visualizer/internal/api/http"
	"github.com/GriffinCanCode/ipc-visualizer/internal/api/middleware"
	"github.com/GriffinCanCode/ipc-visualizer/internal/api/ws"
	"github.com/GriffinCanCode/ipc-visualizer/internal/domain/sim"
	"github.com/GriffinCanCode/ipc-visualizer/internal/engine"
	"github.com/GriffinCanCode/ipc-visualizer/internal/infrastructure/config"
	"github.com/GriffinCanCode/ipc-visualizer/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ipc-visualizer/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ipc-visualizer/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/ipc-visualizer/internal/web"
)

const shutdownTimeout = 5 * time.Second

// Option customizes server construction.
type Option func(*options)

type options struct {
	logger    *logging.Logger
	scheduler engine.FrameScheduler
}

// WithLogger uses l instead of building a logger from the config
func WithLogger(l *logging.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithScheduler replaces the frame ticker
func WithScheduler(s engine.FrameScheduler) Option {
	return func(o *options) { o.scheduler = s }
}

// Server wraps the HTTP server and dependencies
type Server struct {
	router  *gin.Engine
	engine  *engine.Engine
	hub     *ws.Hub
	tracer  *tracing.Tracer
	logger  *logging.Logger
	config  *config.Config
	metrics *monitoring.Metrics

	mu     sync.Mutex
	addr   net.Addr
	closed bool
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	// Initialize logger
	logger := o.logger
	if logger == nil {
		l, err := logging.New(cfg.LoggerConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l
	}

	logger.Info("Initializing IPC visualizer",
		zap.String("addr", cfg.Addr()),
		zap.String("mechanism", cfg.Sim.Mechanism),
		zap.Int("frame_rate", cfg.Sim.FrameRate),
	)

	// Initialize metrics first (needed by other components)
	metrics := monitoring.NewMetrics()

	tracer := tracing.New("ipc-visualizer", logger.Logger)

	ctrl, err := sim.NewController(cfg.SimConfig())
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to initialize simulation: %w", err)
	}

	scheduler := o.scheduler
	if scheduler == nil {
		scheduler = engine.NewTickerScheduler(cfg.FrameInterval())
	}
	eng := engine.New(ctrl,
		engine.WithLogger(logger.Named("engine").Logger),
		engine.WithScheduler(scheduler),
		engine.WithRecorder(metrics),
	)

	hub := ws.NewHub(eng,
		ws.WithLogger(logger.Named("ws").Logger),
		ws.WithMetrics(metrics),
	)
	eng.Subscribe(hub)

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))

	handlers := apihttp.NewHandlers(eng, logger.Named("api").Logger, hub.Clients)

	// Register routes
	web.Register(router)
	handlers.Register(router)

	control := router.Group("")
	control.Use(middleware.BodyLimit(middleware.MaxBodySize))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		control.Use(middleware.RateLimit(rl))
	}
	handlers.RegisterControl(control)

	// WebSocket
	router.GET("/stream", hub.HandleConnection)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	logger.Info("Server initialized successfully")

	return &Server{
		router:  router,
		engine:  eng,
		hub:     hub,
		tracer:  tracer,
		logger:  logger,
		config:  cfg,
		metrics: metrics,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the bound address once Serve has started listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the engine, the hub and the HTTP server on ln. It returns after
// a graceful shutdown once ctx is cancelled, or when the HTTP server fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go s.hub.Run(ctx)
	go func() {
		if err := s.engine.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("Engine stopped", zap.Error(err))
		}
	}()

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()

	// Hijacked WebSocket connections are not tracked by Shutdown; cancelling
	// ctx has already told the hub to disconnect them.
	cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	<-s.engine.Done()
	return nil
}

// Close releases background resources and flushes the logger
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	s.tracer.Close()

	// Sync logger before exit. Syncing stdout fails on some platforms.
	_ = s.logger.Sync()
	return nil
}
