package loader

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

var ErrQueueFull = errors.New("apply queue is full")

// Task is one unit of apply work.
type Task func(ctx context.Context) error

// Config represents pool configuration
type Config struct {
	MaxWorkers  int           // maximum number of workers
	QueueSize   int           // task queue size
	TaskTimeout time.Duration // timeout for a single apply
}

// DefaultConfig returns default configuration
func DefaultConfig() *Config {
	return &Config{
		MaxWorkers:  4,
		QueueSize:   256,
		TaskTimeout: time.Minute,
	}
}

// Validate validates configuration
func (cfg *Config) Validate() error {
	if cfg.MaxWorkers < 1 {
		return errors.New("max workers must be greater than 0")
	}
	if cfg.QueueSize < 1 {
		return errors.New("queue size must be greater than 0")
	}
	if cfg.TaskTimeout < 0 {
		return errors.New("task timeout must be greater than or equal to 0")
	}
	return nil
}

// poolMetrics tracks the pool's operational counters.
type poolMetrics struct {
	activeWorkers  atomic.Int64
	pendingTasks   atomic.Int64
	completedTasks atomic.Int64
	failedTasks    atomic.Int64
	processingTime atomic.Int64 // nanoseconds
}

// Pool runs apply tasks on a bounded set of worker goroutines, keeping
// package validation off the coordinator's thread.
type Pool struct {
	maxWorkers  int
	queueSize   int
	taskTimeout time.Duration

	tasks   chan Task
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	metrics *poolMetrics
}

// NewPool creates a stopped pool with the given configuration.
func NewPool(cfg *Config) *Pool {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		maxWorkers:  cfg.MaxWorkers,
		queueSize:   cfg.QueueSize,
		taskTimeout: cfg.TaskTimeout,
		tasks:       make(chan Task, cfg.QueueSize),
		ctx:         ctx,
		cancel:      cancel,
		metrics:     &poolMetrics{},
	}
}

// Start starts the worker goroutines.
func (p *Pool) Start() {
	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Stop stops the pool, waiting for in-flight tasks until ctx expires.
func (p *Pool) Stop(ctx context.Context) {
	p.cancel()
	close(p.tasks)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
	}
}

// Submit queues a task. Returns ErrQueueFull when the queue is at capacity.
func (p *Pool) Submit(task Task) error {
	select {
	case p.tasks <- task:
		p.metrics.pendingTasks.Add(1)
		return nil
	default:
		return ErrQueueFull
	}
}

func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			p.runTask(task)
		}
	}
}

func (p *Pool) runTask(task Task) {
	start := time.Now()
	p.metrics.activeWorkers.Add(1)
	p.metrics.pendingTasks.Add(-1)

	defer func() {
		p.metrics.activeWorkers.Add(-1)
		p.metrics.processingTime.Add(time.Since(start).Nanoseconds())
		if r := recover(); r != nil {
			p.metrics.failedTasks.Add(1)
		}
	}()

	taskCtx, cancel := context.WithTimeout(p.ctx, p.taskTimeout)
	defer cancel()

	if err := task(taskCtx); err != nil {
		p.metrics.failedTasks.Add(1)
	} else {
		p.metrics.completedTasks.Add(1)
	}
}

// GetMetrics returns the current counters.
func (p *Pool) GetMetrics() map[string]int64 {
	return map[string]int64{
		"active_workers":  p.metrics.activeWorkers.Load(),
		"pending_tasks":   p.metrics.pendingTasks.Load(),
		"completed_tasks": p.metrics.completedTasks.Load(),
		"failed_tasks":    p.metrics.failedTasks.Load(),
		"processing_time": p.metrics.processingTime.Load(),
	}
}

// IsIdle returns whether no task is running.
func (p *Pool) IsIdle() bool {
	return p.metrics.activeWorkers.Load() == 0
}

// IsEmpty returns whether no task is queued.
func (p *Pool) IsEmpty() bool {
	return p.metrics.pendingTasks.Load() == 0
}
