package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/itstheanurag/ligo-compiler-api/internal/api"
	"github.com/itstheanurag/ligo-compiler-api/internal/compiler"
	"github.com/itstheanurag/ligo-compiler-api/internal/config"
	"github.com/itstheanurag/ligo-compiler-api/internal/database"
	"github.com/itstheanurag/ligo-compiler-api/internal/executor"
	"github.com/itstheanurag/ligo-compiler-api/internal/health"
	"github.com/itstheanurag/ligo-compiler-api/internal/limiter"
	"github.com/itstheanurag/ligo-compiler-api/internal/mcpserver"
	"github.com/itstheanurag/ligo-compiler-api/internal/metrics"
	"github.com/itstheanurag/ligo-compiler-api/internal/operations"
	"github.com/itstheanurag/ligo-compiler-api/internal/queue"
	"github.com/itstheanurag/ligo-compiler-api/internal/sandbox"
	"github.com/itstheanurag/ligo-compiler-api/internal/share"
	"github.com/itstheanurag/ligo-compiler-api/internal/worker"
	"github.com/itstheanurag/ligo-compiler-api/internal/workspace"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

// Version is reported by the MCP server. Set at build time.
var Version = "dev"

const (
	limiterCleanupInterval = 5 * time.Minute
	memoryShareEntries     = 10000
	// workerDrainTimeout bounds the wait for workers to kill their
	// compilers once shutdown has cancelled them.
	workerDrainTimeout = 5 * time.Second
)

type Server struct {
	conf          *config.Config
	logger        *zerolog.Logger
	httpServer    *http.Server
	metricsServer *http.Server
	health        *health.Handler
	db            *database.Database
	docker        *sandbox.DockerSandbox
	queue         *queue.Manager
	workers       []*worker.Worker
	workersWG     sync.WaitGroup
	rateLimiter   *limiter.RateLimiter
	cancelFunc    context.CancelFunc
	stopCleanup   chan struct{}
	cleanupOnce   sync.Once
}

func New(
	ctx context.Context,
	conf *config.Config,
	logger *zerolog.Logger,
) (*Server, error) {
	s := &Server{
		conf:        conf,
		logger:      logger,
		health:      health.New(),
		stopCleanup: make(chan struct{}),
	}

	ws, err := workspace.New(conf.Compiler.DataDir, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare data dir: %w", err)
	}

	runner, err := s.newRunner()
	if err != nil {
		return nil, fmt.Errorf("failed to create sandbox: %w", err)
	}

	c, err := compiler.New(compiler.Config{
		Command:        conf.Compiler.Command,
		ScratchDir:     conf.Compiler.DataDir,
		Timeout:        conf.Compiler.Timeout,
		MaxOutputBytes: conf.Compiler.MaxOutputBytes,
	}, ws, runner, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create compiler: %w", err)
	}

	store, err := s.newShareStore(ctx)
	if err != nil {
		return nil, err
	}

	registry := operations.NewRegistry()
	exec := executor.NewExecutor(registry, c)
	s.queue = queue.NewManager(conf.Workers.QueueSize)

	s.rateLimiter = limiter.NewRateLimiter(
		conf.Limits.GlobalRPS,
		conf.Limits.PerIPRPS,
		conf.Limits.PerIPBurst,
		conf.Limits.MaxConcurrent,
	)
	s.rateLimiter.TrustForwardedFor = conf.Limits.TrustProxy

	s.workers = make([]*worker.Worker, conf.Workers.Count)
	for i := range s.workers {
		s.workers[i] = worker.NewWorker(i, exec, s.queue, logger)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.health.Healthz)
	mux.HandleFunc("GET /readyz", s.health.Readyz)

	handler := api.NewHandler(s.queue, registry, store, conf.Server.MaxBodyBytes, logger)
	handler.Register(mux, s.rateLimiter.Middleware)

	if conf.Mcp.Enabled {
		mcpSrv := mcpserver.New(s.queue, registry, Version)
		mux.Handle(conf.Mcp.Path, s.rateLimiter.Middleware(mcpserver.Handler(mcpSrv)))
		logger.Info().Str("path", conf.Mcp.Path).Msg("MCP endpoint enabled")
	}

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: conf.Cors.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Mcp-Session-Id"},
	})

	s.httpServer = &http.Server{
		Addr:         ":" + conf.Server.Port,
		Handler:      metrics.Middleware(corsHandler.Handler(api.AccessLog(logger)(mux))),
		ReadTimeout:  time.Duration(conf.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(conf.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(conf.Server.IdleTimeout) * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	s.metricsServer = &http.Server{
		Addr:              ":" + conf.Server.MetricsPort,
		Handler:           metricsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s, nil
}

func (s *Server) newRunner() (sandbox.Runner, error) {
	if s.conf.Compiler.Backend != config.BackendDocker {
		return sandbox.NewProcess(s.logger), nil
	}
	sb, err := sandbox.NewDockerSandbox(s.conf.Compiler.Image, s.logger)
	if err != nil {
		return nil, err
	}
	s.docker = sb
	return sb, nil
}

func (s *Server) newShareStore(ctx context.Context) (share.Store, error) {
	if s.conf.Db.Host == "" {
		s.logger.Info().Msg("no database configured, shared snapshots are kept in memory")
		return share.NewMemoryStore(memoryShareEntries), nil
	}

	db, err := database.New(ctx, s.conf.Db, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}
	store, err := share.NewPostgresStore(ctx, db.Pool)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create share store: %w", err)
	}
	s.db = db
	return store, nil
}

func (s *Server) Start() error {
	s.logger.Info().
		Str("port", s.conf.Server.Port).
		Str("backend", s.conf.Compiler.Backend).
		Str("data_dir", s.conf.Compiler.DataDir).
		Msg("starting HTTP server")

	if s.docker != nil {
		if err := s.docker.EnsureImage(context.Background()); err != nil {
			return fmt.Errorf("failed to ensure docker image: %w", err)
		}
	}

	s.startWorkers()

	go func() {
		s.logger.Info().Str("port", s.conf.Server.MetricsPort).Msg("starting metrics server")
		if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("metrics server failed")
		}
	}()

	s.health.SetReady()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}

	return nil
}

func (s *Server) startWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelFunc = cancel

	for _, w := range s.workers {
		s.workersWG.Add(1)
		go func() {
			defer s.workersWG.Done()
			w.Start(ctx)
		}()
	}
	s.rateLimiter.StartCleanup(limiterCleanupInterval, s.stopCleanup)
}

func (s *Server) stopLimiterCleanup() {
	s.cleanupOnce.Do(func() { close(s.stopCleanup) })
}

func (s *Server) waitWorkers() error {
	done := make(chan struct{})
	go func() {
		s.workersWG.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(workerDrainTimeout):
		return fmt.Errorf("workers did not stop within %s", workerDrainTimeout)
	}
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	s.health.SetNotReady()

	var errs []error
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown HTTP server: %w", err))
	}
	if err := s.metricsServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to shutdown metrics server: %w", err))
	}

	// Workers stop after in-flight requests have drained. Cancelling them
	// kills any compiler still running, which is in its own process group
	// and would otherwise outlive the service.
	if s.cancelFunc != nil {
		s.cancelFunc()
		if err := s.waitWorkers(); err != nil {
			errs = append(errs, err)
		}
	}
	s.stopLimiterCleanup()

	if s.db != nil {
		s.db.Close()
	}
	if s.docker != nil {
		if err := s.docker.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close docker client: %w", err))
		}
	}

	return errors.Join(errs...)
}
