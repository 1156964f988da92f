// Package anchor records committed state transitions on the ledger after the
// fact. Anchoring is best-effort: failures are logged, counted and published
// as outcomes, never returned to the operation that produced the task.
package anchor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"legitify/internal/ledger"
	dErrors "legitify/pkg/domain-errors"
	"legitify/pkg/platform/circuit"
)

// Task is one chaincode submission to perform as (Label, Org).
type Task struct {
	Function  string
	Label     string
	Org       string
	Args      []string
	Aggregate string
}

// Outcome reports how a task ended.
type Outcome struct {
	Function    string    `json:"function"`
	Aggregate   string    `json:"aggregate"`
	Org         string    `json:"org"`
	Succeeded   bool      `json:"succeeded"`
	Reason      string    `json:"reason,omitempty"`
	Error       string    `json:"error,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	CompletedAt time.Time `json:"completed_at"`
}

// OutcomePublisher receives task outcomes.
type OutcomePublisher interface {
	PublishOutcome(ctx context.Context, outcome Outcome) error
}

// Dispatcher runs anchoring tasks on a fixed pool of workers fed by a bounded queue.
type Dispatcher struct {
	connector   ledger.Connector
	queue       chan Task
	workers     int
	taskTimeout time.Duration
	publisher   OutcomePublisher
	breaker     *circuit.Breaker
	metrics     *Metrics
	logger      *slog.Logger

	mu      sync.RWMutex
	closed  bool
	started bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Option configures the Dispatcher.
type Option func(*Dispatcher)

func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Task, n)
		}
	}
}

func WithTaskTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.taskTimeout = timeout
		}
	}
}

func WithOutcomePublisher(p OutcomePublisher) Option {
	return func(d *Dispatcher) {
		d.publisher = p
	}
}

// WithBreaker replaces the default ledger breaker (5 failures to open, 3
// successes to close).
func WithBreaker(b *circuit.Breaker) Option {
	return func(d *Dispatcher) {
		if b != nil {
			d.breaker = b
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// New creates a dispatcher. Call Start before dispatching.
func New(connector ledger.Connector, opts ...Option) *Dispatcher {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		connector:   connector,
		queue:       make(chan Task, 256),
		workers:     4,
		taskTimeout: 30 * time.Second,
		breaker:     circuit.New("ledger"),
		logger:      slog.Default(),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the worker pool.
func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	for range d.workers {
		d.wg.Add(1)
		go d.run()
	}
}

// Dispatch enqueues task without blocking. It returns false when the task was
// dropped because the queue is full or the dispatcher is stopped.
func (d *Dispatcher) Dispatch(ctx context.Context, task Task) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(ctx, task, "dispatcher stopped")
		return false
	}
	select {
	case d.queue <- task:
		d.metrics.incQueued(task.Function)
		return true
	default:
		d.drop(ctx, task, "queue full")
		return false
	}
}

// Stop refuses new tasks and waits for queued tasks to finish. When ctx
// expires first, in-flight submissions are cancelled.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for task := range d.queue {
		d.process(task)
	}
}

func (d *Dispatcher) process(task Task) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(d.ctx, d.taskTimeout)
	defer cancel()

	_, err := ledger.Submit(ctx, d.connector, task.Label, task.Org, task.Function, task.Args...)

	outcome := Outcome{
		Function:    task.Function,
		Aggregate:   task.Aggregate,
		Org:         task.Org,
		Succeeded:   err == nil,
		DurationMS:  time.Since(start).Milliseconds(),
		CompletedAt: time.Now(),
	}
	if err != nil {
		outcome.Reason = string(dErrors.CodeOf(err))
		if outcome.Reason == string(dErrors.CodeInternal) {
			outcome.Reason = string(dErrors.CodeLedgerUnavailable)
		}
		outcome.Error = err.Error()
		d.logger.WarnContext(ctx, "ledger anchoring failed",
			"function", task.Function,
			"aggregate", task.Aggregate,
			"org", task.Org,
			"reason", outcome.Reason,
			"error", err,
		)
	} else {
		d.logger.InfoContext(ctx, "ledger anchoring committed",
			"function", task.Function,
			"aggregate", task.Aggregate,
			"org", task.Org,
		)
	}
	d.metrics.observe(task.Function, outcome.Succeeded, time.Since(start))
	d.recordHealth(ctx, err)

	if d.publisher != nil {
		if err := d.publisher.PublishOutcome(ctx, outcome); err != nil {
			d.logger.WarnContext(ctx, "failed to publish anchoring outcome",
				"function", task.Function,
				"aggregate", task.Aggregate,
				"error", err,
			)
		}
	}
}

// recordHealth feeds the breaker. Enrollment failures concern one identity,
// not the ledger, and are not counted.
func (d *Dispatcher) recordHealth(ctx context.Context, err error) {
	var transition circuit.Transition
	switch {
	case err == nil:
		transition = d.breaker.RecordSuccess()
	case dErrors.HasCode(err, dErrors.CodeEnrollment):
		return
	default:
		transition = d.breaker.RecordFailure()
	}

	switch transition {
	case circuit.Opened:
		d.metrics.setCircuitOpen(true)
		d.logger.ErrorContext(ctx, "ledger circuit opened after consecutive anchoring failures",
			"breaker", d.breaker.Name(),
		)
	case circuit.Closed:
		d.metrics.setCircuitOpen(false)
		d.logger.InfoContext(ctx, "ledger circuit closed", "breaker", d.breaker.Name())
	}
}

// Healthy fails while consecutive anchoring failures hold the breaker open.
func (d *Dispatcher) Healthy(context.Context) error {
	if d.breaker.IsOpen() {
		return dErrors.New(dErrors.CodeLedgerUnavailable, fmt.Sprintf("%s circuit open", d.breaker.Name()))
	}
	return nil
}

func (d *Dispatcher) drop(ctx context.Context, task Task, why string) {
	d.metrics.incDropped(task.Function)
	d.logger.WarnContext(ctx, "ledger anchoring task dropped",
		"function", task.Function,
		"aggregate", task.Aggregate,
		"reason", why,
	)
}
