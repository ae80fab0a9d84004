package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"rag-console/internal/config"
	"rag-console/internal/db"
	"rag-console/internal/handlers"
	"rag-console/internal/repositories"
	"rag-console/internal/routes"
	"rag-console/internal/services"
	"rag-console/internal/telemetry"
	"rag-console/internal/workers"
)

// Server owns the HTTP listener, storage connections and background workers
type Server struct {
	cfg        *config.Config
	logger     *log.Logger
	httpServer *http.Server
	redis      *db.RedisClient
	history    *sql.DB
	controller *services.PipelineController
	pool       *workers.WorkerPool
	shutdown   telemetry.ShutdownFunc
}

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		// Handle preflight requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// NewRouter builds the instrumented HTTP handler
func NewRouter(h *routes.Handlers, publicURL string) http.Handler {
	router := mux.NewRouter()
	routes.RegisterRoutes(router, h)

	docURL, err := url.JoinPath(publicURL, "/swagger/doc.json")
	if err != nil {
		docURL = "/swagger/doc.json"
	}
	routes.RegisterSwagger(router, docURL)

	return otelhttp.NewHandler(corsMiddleware(router), "rag-console")
}

// New connects storage and assembles every component. Nothing runs until Run.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	logger := log.New(os.Stdout, "[SERVER] ", log.LstdFlags)
	s := &Server{cfg: cfg, logger: logger, shutdown: telemetry.Noop}

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(cfg.Telemetry.ServiceName, nil, logger)
		if err != nil {
			return nil, fmt.Errorf("init tracing: %w", err)
		}
		s.shutdown = shutdown
	}

	redisConfig := cfg.RedisClientConfig()
	logger.Printf("Connecting to Redis: %s (DB: %d)", redisConfig.Addr(), redisConfig.DB)
	s.redis = db.NewRedisClient(redisConfig)
	if err := s.redis.WaitReady(ctx, 5, time.Second); err != nil {
		s.Close()
		return nil, err
	}
	logger.Println("✅ Redis connected successfully")

	history, err := db.OpenHistoryDB(ctx, cfg.History.Path)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.history = history
	logger.Printf("✅ Stage history at %s", cfg.History.Path)

	handler, err := s.assemble()
	if err != nil {
		s.Close()
		return nil, err
	}

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s, nil
}

// assemble creates repositories, services, workers and handlers
func (s *Server) assemble() (http.Handler, error) {
	cfg := s.cfg
	client := s.redis.GetClient()
	pipelineLogger := log.New(os.Stdout, "[PIPELINE] ", log.LstdFlags)
	webhookLogger := log.New(os.Stdout, "[WEBHOOK] ", log.LstdFlags)
	workerLogger := &workers.StdLogger{Logger: log.New(os.Stdout, "[WORKER] ", log.LstdFlags)}

	jobRepo := repositories.NewRedisJobRepository(client)
	docRepo := repositories.NewRedisDocumentRepository(client)
	execRepo := repositories.NewSQLiteStageExecutionRepository(s.history)
	events := services.NewRedisEventBus(client, pipelineLogger)

	s.controller = services.NewPipelineController(
		jobRepo,
		docRepo,
		execRepo,
		services.NewDocumentLocker(),
		events,
		pipelineLogger,
		services.ControllerConfig{DefaultPriority: cfg.Pipeline.DefaultPriority},
	)

	chainConfig := workers.DefaultWorkerConfig("chain-worker")
	chainConfig.Concurrency = cfg.Pipeline.ChainWorkers
	chainWorker := workers.NewChainWorker(workers.ChainWorkerConfig{
		WorkerConfig: chainConfig,
		Controller:   s.controller,
		QueueSize:    cfg.Pipeline.ChainQueueSize,
		Logger:       workerLogger,
	})

	ingestor, err := services.NewWebhookIngestor(s.controller, chainWorker, webhookLogger, services.IngestorConfig{
		Strict: cfg.Pipeline.StrictWebhooks,
	})
	if err != nil {
		return nil, fmt.Errorf("compile webhook schema: %w", err)
	}

	sweeperConfig := workers.DefaultWorkerConfig("stale-job-sweeper")
	sweeperConfig.PollInterval = cfg.Pipeline.SweepInterval

	s.pool = workers.NewWorkerPool()
	s.pool.AddWorker(chainWorker)
	s.pool.AddWorker(workers.NewStaleJobSweeper(workers.StaleJobSweeperConfig{
		WorkerConfig: sweeperConfig,
		Jobs:         jobRepo,
		Controller:   s.controller,
		MaxJobAge:    cfg.Pipeline.MaxJobAge,
		Retention:    cfg.Pipeline.JobRetention,
		Logger:       workerLogger,
	}))

	var stageClient services.StageWorkerClient
	if cfg.Workers.DispatchEnabled {
		stageClient = services.NewWorkerClient(services.WorkerClientConfig{
			BaseURL:      cfg.Workers.BaseURL,
			CallbackBase: cfg.Server.PublicURL,
			Timeout:      cfg.Workers.Timeout,
			Retries:      cfg.Workers.Retries,
		})

		dispatchConfig := workers.DefaultWorkerConfig("dispatch-worker")
		dispatchConfig.Concurrency = cfg.Workers.DispatchConcurrency
		dispatchConfig.PollInterval = cfg.Workers.DispatchInterval
		dispatchConfig.BatchSize = cfg.Workers.BatchSize
		s.pool.AddWorker(workers.NewDispatchWorker(workers.DispatchWorkerConfig{
			WorkerConfig: dispatchConfig,
			Jobs:         jobRepo,
			Documents:    docRepo,
			Controller:   s.controller,
			Client:       stageClient,
			Logger:       workerLogger,
		}))
		s.logger.Printf("Dispatching jobs to stage workers at %s", cfg.Workers.BaseURL)
	} else {
		s.logger.Println("⚠️  Push dispatch disabled; workers must poll /api/v1/jobs/candidates")
	}

	h := &routes.Handlers{
		Jobs:      handlers.NewJobHandler(jobRepo, s.controller, pipelineLogger),
		Documents: handlers.NewDocumentHandler(docRepo, s.controller, events, pipelineLogger),
		Webhooks:  handlers.NewWebhookHandler(ingestor, webhookLogger),
		Health:    handlers.NewHealthHandler(jobRepo, stageClient, s.pool, s.logger),
	}
	return NewRouter(h, cfg.Server.PublicURL), nil
}

// Run starts the workers and serves HTTP until ctx ends, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	if err := s.pool.StartAll(ctx); err != nil {
		return fmt.Errorf("start workers: %w", err)
	}
	s.logger.Printf("✅ %d background workers started", s.pool.Count())

	// continuations lost by a previous process
	if resumed, err := s.controller.RecoverChains(ctx); err != nil {
		s.logger.Printf("⚠️  Chain recovery failed: %v", err)
	} else if resumed > 0 {
		s.logger.Printf("Resumed %d document chains", resumed)
	}

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Printf("Listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	s.logger.Println("Shutting down...")
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Printf("HTTP shutdown: %v", err)
	}
	if err := s.pool.StopAll(shutdownCtx); err != nil {
		s.logger.Printf("Worker shutdown: %v", err)
	}
	if err := s.shutdown(shutdownCtx); err != nil {
		s.logger.Printf("Tracer shutdown: %v", err)
	}
	return runErr
}

// Handler exposes the HTTP handler, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Pool exposes the background workers
func (s *Server) Pool() *workers.WorkerPool {
	return s.pool
}

// Close releases storage connections. Run calls it on exit.
func (s *Server) Close() {
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			s.logger.Printf("Closing history db: %v", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Printf("Closing redis: %v", err)
		}
	}
}
