package workers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWorkerConfig(t *testing.T) {
	config := DefaultWorkerConfig("test-worker")

	assert.Equal(t, "test-worker", config.WorkerName)
	assert.Equal(t, 2, config.Concurrency)
	assert.Equal(t, 2*time.Second, config.PollInterval)
	assert.Equal(t, 30*time.Second, config.ShutdownTimeout)
	assert.Equal(t, 10, config.BatchSize)
	assert.True(t, config.EnableRecovery)
}

func TestNewBaseWorker_FillsDefaults(t *testing.T) {
	worker := NewBaseWorker(WorkerConfig{WorkerName: "bare"})

	config := worker.Config()
	assert.Equal(t, "bare", worker.Name())
	assert.Equal(t, 1, config.Concurrency)
	assert.Equal(t, 2*time.Second, config.PollInterval)
	assert.Equal(t, 10, config.BatchSize)
	assert.False(t, worker.IsRunning())
}

func TestBaseWorker_Lifecycle(t *testing.T) {
	worker := NewBaseWorker(DefaultWorkerConfig("loop-worker"))

	ctx, err := worker.begin(context.Background())
	require.NoError(t, err)
	assert.True(t, worker.IsRunning())

	_, err = worker.begin(context.Background())
	var workerErr *WorkerError
	require.ErrorAs(t, err, &workerErr)
	assert.Equal(t, "worker already running", workerErr.Error())

	exited := make(chan struct{})
	worker.spawn(ctx, func(ctx context.Context) {
		<-ctx.Done()
		close(exited)
	})

	require.NoError(t, worker.halt(context.Background()))
	assert.False(t, worker.IsRunning())
	select {
	case <-exited:
	default:
		t.Fatal("loop still running after halt")
	}

	// halting twice is a no-op
	assert.NoError(t, worker.halt(context.Background()))
}

func TestBaseWorker_HaltTimesOut(t *testing.T) {
	config := DefaultWorkerConfig("stuck-worker")
	config.ShutdownTimeout = 20 * time.Millisecond
	worker := NewBaseWorker(config)

	ctx, err := worker.begin(context.Background())
	require.NoError(t, err)

	release := make(chan struct{})
	defer close(release)
	worker.spawn(ctx, func(context.Context) { <-release })

	err = worker.halt(context.Background())
	var workerErr *WorkerError
	require.ErrorAs(t, err, &workerErr)
	assert.Equal(t, "stop", workerErr.Operation)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBaseWorker_Stats(t *testing.T) {
	worker := NewBaseWorker(DefaultWorkerConfig("test-worker"))

	stats := worker.Stats()
	assert.Equal(t, "test-worker", stats.WorkerName)
	assert.Equal(t, int64(0), stats.JobsProcessed)
	assert.False(t, stats.IsRunning)
	assert.Zero(t, stats.Uptime)

	_, err := worker.begin(context.Background())
	require.NoError(t, err)
	defer worker.halt(context.Background())

	startTime := time.Now()
	time.Sleep(10 * time.Millisecond)
	worker.recordJobSuccess(startTime)

	startTime = time.Now()
	time.Sleep(10 * time.Millisecond)
	worker.recordJobFailure(startTime)

	stats = worker.Stats()
	assert.Equal(t, int64(2), stats.JobsProcessed)
	assert.Equal(t, int64(1), stats.JobsSucceeded)
	assert.Equal(t, int64(1), stats.JobsFailed)
	assert.Greater(t, stats.AverageProcessTime, time.Duration(0))
	assert.False(t, stats.LastJobTime.IsZero())
	assert.True(t, stats.IsRunning)
	assert.Greater(t, stats.Uptime, time.Duration(0))
}

func TestBaseWorker_ConcurrentStats(t *testing.T) {
	worker := NewBaseWorker(DefaultWorkerConfig("concurrent-worker"))

	var wg sync.WaitGroup
	iterations := 100
	for i := 0; i < iterations; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.recordJobSuccess(time.Now())
		}()
	}
	wg.Wait()

	stats := worker.Stats()
	assert.Equal(t, int64(iterations), stats.JobsProcessed)
	assert.Equal(t, int64(iterations), stats.JobsSucceeded)
}

func TestBaseWorker_Guard(t *testing.T) {
	t.Run("normal execution", func(t *testing.T) {
		worker := NewBaseWorker(DefaultWorkerConfig("guarded"))
		assert.NoError(t, worker.guard(func() error { return nil }))
	})

	t.Run("error propagation", func(t *testing.T) {
		worker := NewBaseWorker(DefaultWorkerConfig("guarded"))
		assert.Equal(t, assert.AnError, worker.guard(func() error { return assert.AnError }))
	})

	t.Run("panic recovery", func(t *testing.T) {
		worker := NewBaseWorker(DefaultWorkerConfig("guarded"))
		err := worker.guard(func() error { panic("boom") })
		assert.IsType(t, &WorkerPanicError{}, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("recovery disabled", func(t *testing.T) {
		config := DefaultWorkerConfig("unguarded")
		config.EnableRecovery = false
		worker := NewBaseWorker(config)
		assert.Panics(t, func() { _ = worker.guard(func() error { panic("boom") }) })
	})
}

func TestWorkerPool(t *testing.T) {
	pool := NewWorkerPool()
	assert.Equal(t, 0, pool.Count())

	pool.AddWorker(NewMockWorker("worker-1"))
	pool.AddWorker(NewMockWorker("worker-2"))
	assert.Equal(t, 2, pool.Count())

	found := pool.GetWorker("worker-1")
	require.NotNil(t, found)
	assert.Equal(t, "worker-1", found.Name())
	assert.Nil(t, pool.GetWorker("non-existent"))

	require.NoError(t, pool.StartAll(context.Background()))
	for _, s := range pool.GetAllStats() {
		assert.True(t, s.IsRunning, s.WorkerName)
	}

	require.NoError(t, pool.StopAll(context.Background()))
	for _, s := range pool.GetAllStats() {
		assert.False(t, s.IsRunning, s.WorkerName)
	}
}

func TestWorkerPool_StartAllRollsBack(t *testing.T) {
	pool := NewWorkerPool()
	first := NewMockWorker("worker-1")
	broken := NewMockWorker("worker-2")
	broken.startErr = errors.New("port in use")
	pool.AddWorker(first)
	pool.AddWorker(broken)

	err := pool.StartAll(context.Background())
	assert.EqualError(t, err, "port in use")
	assert.False(t, first.IsRunning())
}

func TestWorkerPool_StopAllReturnsError(t *testing.T) {
	pool := NewWorkerPool()
	broken := NewMockWorker("worker-1")
	broken.stopErr = errors.New("stuck")
	pool.AddWorker(broken)
	pool.AddWorker(NewMockWorker("worker-2"))

	assert.EqualError(t, pool.StopAll(context.Background()), "stuck")
}

func TestWorkerError(t *testing.T) {
	t.Run("with message", func(t *testing.T) {
		err := NewWorkerError("worker-1", "start", nil, "custom message")
		assert.Equal(t, "custom message", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("with wrapped error", func(t *testing.T) {
		err := NewWorkerError("worker-1", "process", assert.AnError, "")
		assert.Contains(t, err.Error(), "worker-1:process")
		assert.Contains(t, err.Error(), assert.AnError.Error())
		assert.Equal(t, assert.AnError, err.Unwrap())
	})

	t.Run("minimal error", func(t *testing.T) {
		err := NewWorkerError("worker-1", "stop", nil, "")
		assert.Equal(t, "worker-1:stop: unknown error", err.Error())
	})
}

func TestWorkerPanicError(t *testing.T) {
	assert.Equal(t, "worker panic: string panic", (&WorkerPanicError{Panic: "string panic"}).Error())
	assert.Contains(t, (&WorkerPanicError{Panic: assert.AnError}).Error(), assert.AnError.Error())
	assert.Equal(t, "worker panic: 123", (&WorkerPanicError{Panic: 123}).Error())
}

// MockWorker is a Worker for pool tests
type MockWorker struct {
	name     string
	running  bool
	startErr error
	stopErr  error
	mu       sync.RWMutex
}

func NewMockWorker(name string) *MockWorker {
	return &MockWorker{name: name}
}

func (w *MockWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.startErr != nil {
		return w.startErr
	}
	w.running = true
	return nil
}

func (w *MockWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopErr != nil {
		return w.stopErr
	}
	w.running = false
	return nil
}

func (w *MockWorker) Name() string {
	return w.name
}

func (w *MockWorker) IsRunning() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.running
}

func (w *MockWorker) Stats() WorkerStats {
	return WorkerStats{WorkerName: w.name, IsRunning: w.IsRunning()}
}
