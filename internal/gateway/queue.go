package gateway

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/pressroom/internal/telemetry"
)

// defaultMinDelay spaces consecutive gateway dispatches. The provider
// throttles uncoordinated callers; one queue with a fixed gap never exceeds
// its declared capacity.
const defaultMinDelay = 500 * time.Millisecond

// Dispatcher executes one command against the gateway.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd Command) (any, error)
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, cmd Command) (any, error)

// Dispatch calls the wrapped function.
func (f DispatcherFunc) Dispatch(ctx context.Context, cmd Command) (any, error) {
	return f(ctx, cmd)
}

// QueueConfig defines the inputs for a command queue.
type QueueConfig struct {
	// MinDelay is the minimum gap between the start of consecutive
	// dispatches; defaultMinDelay when zero.
	MinDelay time.Duration
	// Emitter records command failures; optional.
	Emitter *telemetry.Emitter
}

// Queue serializes all gateway traffic: commands dispatch strictly in
// submission order, at most one command is in flight, and consecutive
// dispatch starts are separated by at least MinDelay.
//
// All paths that touch the content store through the gateway must share one
// queue instance; independent queues in the same process void the
// rate-limiting guarantee.
type Queue struct {
	dispatcher Dispatcher
	minDelay   time.Duration
	emitter    *telemetry.Emitter
	tracer     trace.Tracer
	now        func() time.Time

	mu           sync.Mutex
	pending      []*queuedCommand
	draining     bool
	lastDispatch time.Time
}

// queuedCommand pairs a command with its settlement channel.
type queuedCommand struct {
	ctx  context.Context
	cmd  Command
	done chan settlement
}

// settlement is the one resolution or rejection a queued command receives.
type settlement struct {
	value any
	err   error
}

// NewQueue creates a command queue in the Idle state.
func NewQueue(dispatcher Dispatcher, config QueueConfig) (*Queue, error) {
	if dispatcher == nil {
		return nil, errors.New("queue dispatcher is required")
	}
	minDelay := config.MinDelay
	if minDelay <= 0 {
		minDelay = defaultMinDelay
	}
	return &Queue{
		dispatcher: dispatcher,
		minDelay:   minDelay,
		emitter:    config.Emitter,
		tracer:     otel.Tracer("pressroom/gateway"),
		now:        time.Now,
	}, nil
}

// Submit appends a command to the queue tail and blocks until it settles.
// Every submitted command settles exactly once: a failing command fails only
// its own caller, never commands queued behind it.
//
// Cancelling ctx abandons the wait but not the dispatch; once submitted a
// command always runs to completion so the content store is never left
// ambiguously half-applied.
func (q *Queue) Submit(ctx context.Context, cmd Command) (any, error) {
	if q == nil {
		return nil, errors.New("queue is not configured")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	qc := &queuedCommand{ctx: ctx, cmd: cmd, done: make(chan settlement, 1)}

	q.mu.Lock()
	q.pending = append(q.pending, qc)
	start := !q.draining
	if start {
		q.draining = true
	}
	q.mu.Unlock()

	if start {
		go q.drain()
	}

	select {
	case s := <-qc.done:
		return s.value, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// drain pops and dispatches commands until the queue empties, then returns
// the queue to Idle.
func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.pending) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		qc := q.pending[0]
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.waitForSlot()

		q.mu.Lock()
		q.lastDispatch = q.now()
		q.mu.Unlock()

		value, err := q.dispatch(qc)
		qc.done <- settlement{value: value, err: err}
	}
}

// waitForSlot sleeps until at least minDelay has passed since the previous
// dispatch start.
func (q *Queue) waitForSlot() {
	q.mu.Lock()
	last := q.lastDispatch
	q.mu.Unlock()

	if last.IsZero() {
		return
	}
	if remaining := q.minDelay - q.now().Sub(last); remaining > 0 {
		time.Sleep(remaining)
	}
}

// dispatch runs one command against the gateway under a trace span. The
// dispatch context survives caller cancellation so an in-flight call always
// completes.
func (q *Queue) dispatch(qc *queuedCommand) (any, error) {
	ctx := context.WithoutCancel(qc.ctx)
	ctx, span := q.tracer.Start(ctx, "gateway.dispatch",
		trace.WithAttributes(attribute.String("gateway.tool", qc.cmd.Tool)))
	defer span.End()

	value, err := q.dispatcher.Dispatch(ctx, qc.cmd)
	if err != nil {
		span.RecordError(err)
		_ = q.emitter.Emit(ctx, telemetry.Event{
			Severity:  telemetry.SeverityWarn,
			Component: "gateway",
			Message:   "command " + qc.cmd.Tool + " failed: " + err.Error(),
		})
	}
	return value, err
}
