package workers

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// Worker is a background loop owned by the server
type Worker interface {
	Start(ctx context.Context) error
	// Stop cancels the loops and waits for them up to the shutdown timeout
	Stop(ctx context.Context) error
	Name() string
	IsRunning() bool
	Stats() WorkerStats
}

// WorkerStats represents statistics about a worker
type WorkerStats struct {
	WorkerName         string        `json:"worker_name"`
	JobsProcessed      int64         `json:"jobs_processed"`
	JobsSucceeded      int64         `json:"jobs_succeeded"`
	JobsFailed         int64         `json:"jobs_failed"`
	AverageProcessTime time.Duration `json:"average_process_time"`
	LastJobTime        time.Time     `json:"last_job_time,omitempty"`
	Uptime             time.Duration `json:"uptime"`
	IsRunning          bool          `json:"is_running"`
}

// WorkerConfig holds configuration for workers
type WorkerConfig struct {
	// WorkerName is a unique identifier for this worker instance
	WorkerName string

	// Concurrency is the number of loops started by Start
	Concurrency int

	// PollInterval is how often a polling loop wakes up
	PollInterval time.Duration

	// ShutdownTimeout bounds how long Stop waits for in-flight work
	ShutdownTimeout time.Duration

	// BatchSize caps the jobs handled per poll
	BatchSize int

	// EnableRecovery turns a panic in one job into a failed job instead of a crash
	EnableRecovery bool
}

// DefaultWorkerConfig returns a worker configuration with sensible defaults
func DefaultWorkerConfig(workerName string) WorkerConfig {
	return WorkerConfig{
		WorkerName:      workerName,
		Concurrency:     2,
		PollInterval:    2 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		BatchSize:       10,
		EnableRecovery:  true,
	}
}

// BaseWorker provides the lifecycle and stats shared by all workers
type BaseWorker struct {
	config  WorkerConfig
	running bool
	cancel  context.CancelFunc
	loops   sync.WaitGroup
	mu      sync.RWMutex

	// Stats tracking
	jobsProcessed    int64
	jobsSucceeded    int64
	jobsFailed       int64
	totalProcessTime time.Duration
	startTime        time.Time
	lastJobTime      time.Time
	statsMu          sync.RWMutex
}

// NewBaseWorker creates a new base worker
func NewBaseWorker(config WorkerConfig) *BaseWorker {
	if config.Concurrency <= 0 {
		config.Concurrency = 1
	}
	if config.PollInterval <= 0 {
		config.PollInterval = 2 * time.Second
	}
	if config.ShutdownTimeout <= 0 {
		config.ShutdownTimeout = 30 * time.Second
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 10
	}
	return &BaseWorker{
		config: config,
	}
}

// Name returns the worker's name
func (w *BaseWorker) Name() string {
	return w.config.WorkerName
}

// IsRunning returns whether the worker is currently running
func (w *BaseWorker) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

// Config returns the worker configuration
func (w *BaseWorker) Config() WorkerConfig {
	return w.config
}

// begin marks the worker running and derives the context its loops run under
func (w *BaseWorker) begin(ctx context.Context) (context.Context, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil, NewWorkerError(w.config.WorkerName, "start", nil, "worker already running")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.running = true
	w.startTime = time.Now()
	return loopCtx, nil
}

// spawn runs fn as one tracked loop
func (w *BaseWorker) spawn(ctx context.Context, fn func(ctx context.Context)) {
	w.loops.Add(1)
	go func() {
		defer w.loops.Done()
		fn(ctx)
	}()
}

// halt cancels the loops and waits for them to return
func (w *BaseWorker) halt(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		w.loops.Wait()
		close(done)
	}()

	shutdownCtx, stop := context.WithTimeout(ctx, w.config.ShutdownTimeout)
	defer stop()

	select {
	case <-done:
		return nil
	case <-shutdownCtx.Done():
		return NewWorkerError(w.config.WorkerName, "stop", shutdownCtx.Err(), "")
	}
}

// Stats returns worker statistics
func (w *BaseWorker) Stats() WorkerStats {
	w.statsMu.RLock()
	defer w.statsMu.RUnlock()

	var avgProcessTime time.Duration
	if w.jobsProcessed > 0 {
		avgProcessTime = w.totalProcessTime / time.Duration(w.jobsProcessed)
	}

	w.mu.RLock()
	var uptime time.Duration
	if w.running && !w.startTime.IsZero() {
		uptime = time.Since(w.startTime)
	}
	w.mu.RUnlock()

	return WorkerStats{
		WorkerName:         w.config.WorkerName,
		JobsProcessed:      w.jobsProcessed,
		JobsSucceeded:      w.jobsSucceeded,
		JobsFailed:         w.jobsFailed,
		AverageProcessTime: avgProcessTime,
		LastJobTime:        w.lastJobTime,
		Uptime:             uptime,
		IsRunning:          w.IsRunning(),
	}
}

// recordJobSuccess records a successful job completion
func (w *BaseWorker) recordJobSuccess(startTime time.Time) {
	w.recordJob(startTime, true)
}

// recordJobFailure records a failed job
func (w *BaseWorker) recordJobFailure(startTime time.Time) {
	w.recordJob(startTime, false)
}

func (w *BaseWorker) recordJob(startTime time.Time, ok bool) {
	w.statsMu.Lock()
	defer w.statsMu.Unlock()

	w.jobsProcessed++
	if ok {
		w.jobsSucceeded++
	} else {
		w.jobsFailed++
	}
	w.totalProcessTime += time.Since(startTime)
	w.lastJobTime = time.Now()
}

// guard runs fn, converting a panic into a WorkerPanicError when recovery is enabled
func (w *BaseWorker) guard(fn func() error) (err error) {
	if w.config.EnableRecovery {
		defer func() {
			if r := recover(); r != nil {
				err = &WorkerPanicError{Panic: r}
			}
		}()
	}
	return fn()
}

// WorkerPool manages multiple workers
type WorkerPool struct {
	workers []Worker
	mu      sync.RWMutex
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool() *WorkerPool {
	return &WorkerPool{
		workers: make([]Worker, 0),
	}
}

// AddWorker adds a worker to the pool
func (p *WorkerPool) AddWorker(worker Worker) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.workers = append(p.workers, worker)
}

// StartAll starts every worker, stopping the ones already started if one fails
func (p *WorkerPool) StartAll(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for i, worker := range p.workers {
		if err := worker.Start(ctx); err != nil {
			for _, started := range p.workers[:i] {
				_ = started.Stop(ctx)
			}
			return err
		}
	}
	return nil
}

// StopAll stops all workers in parallel and returns the first error
func (p *WorkerPool) StopAll(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var wg sync.WaitGroup
	errChan := make(chan error, len(p.workers))

	for _, worker := range p.workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			if err := w.Stop(ctx); err != nil {
				errChan <- err
			}
		}(worker)
	}

	wg.Wait()
	close(errChan)

	select {
	case err := <-errChan:
		return err
	default:
		return nil
	}
}

// GetWorker returns a worker by name
func (p *WorkerPool) GetWorker(name string) Worker {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, worker := range p.workers {
		if worker.Name() == name {
			return worker
		}
	}
	return nil
}

// GetAllStats returns statistics for all workers
func (p *WorkerPool) GetAllStats() []WorkerStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	stats := make([]WorkerStats, 0, len(p.workers))
	for _, worker := range p.workers {
		stats = append(stats, worker.Stats())
	}
	return stats
}

// Count returns the number of workers in the pool
func (p *WorkerPool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.workers)
}

// Logger defines the interface for logging
type Logger interface {
	Info(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Debug(msg string, args ...interface{})
}

// StdLogger adapts a *log.Logger to Logger
type StdLogger struct {
	Logger *log.Logger
}

func (l *StdLogger) Info(msg string, args ...interface{}) {
	l.Logger.Printf("[INFO] "+msg, args...)
}

func (l *StdLogger) Error(msg string, args ...interface{}) {
	l.Logger.Printf("[ERROR] "+msg, args...)
}

func (l *StdLogger) Warn(msg string, args ...interface{}) {
	l.Logger.Printf("[WARN] "+msg, args...)
}

func (l *StdLogger) Debug(msg string, args ...interface{}) {
	l.Logger.Printf("[DEBUG] "+msg, args...)
}

// WorkerError represents a worker-specific error
type WorkerError struct {
	WorkerName string
	Operation  string
	Err        error
	Message    string
}

func (e *WorkerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	prefix := e.WorkerName + ":" + e.Operation
	if e.Err != nil {
		return prefix + ": " + e.Err.Error()
	}
	return prefix + ": unknown error"
}

func (e *WorkerError) Unwrap() error {
	return e.Err
}

// NewWorkerError creates a new worker error
func NewWorkerError(workerName, operation string, err error, message string) *WorkerError {
	return &WorkerError{
		WorkerName: workerName,
		Operation:  operation,
		Err:        err,
		Message:    message,
	}
}

// WorkerPanicError represents a panic that occurred while handling a job
type WorkerPanicError struct {
	Panic interface{}
}

func (e *WorkerPanicError) Error() string {
	switch v := e.Panic.(type) {
	case string:
		return "worker panic: " + v
	case error:
		return "worker panic: " + v.Error()
	default:
		return fmt.Sprintf("worker panic: %v", v)
	}
}
