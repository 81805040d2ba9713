package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Request is one unit of background work. The dispatcher replies exactly
// once on Reply; callers correlate stale answers by ID. There is no retry
// path: the work is deterministic and side-effect free, so a failure is
// simply reported back.
type Request struct {
	ID       string
	Type     string
	Payload  interface{}
	Reply    chan Result
	Enqueued time.Time
}

// Result carries the worker's answer (or error) back across the boundary.
type Result struct {
	ID      string
	Payload interface{}
	Err     error
}

// Handler computes the reply for a request.
type Handler func(context.Context, Request) (interface{}, error)

// DispatcherConfig configures worker pool behaviour.
type DispatcherConfig struct {
	Workers    int
	BufferSize int
	Logger     *zap.Logger
}

// Dispatcher is an in-memory request/reply worker pool backed by goroutines.
// Workers share no state with callers while a request is in flight.
type Dispatcher struct {
	name    string
	handler Handler

	workers    int
	bufferSize int
	logger     *zap.Logger

	requests chan Request
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.Mutex
	started  bool
}

// NewDispatcher builds a dispatcher with the provided handler.
func NewDispatcher(name string, handler Handler, cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Dispatcher{
		name:       name,
		handler:    handler,
		workers:    cfg.Workers,
		bufferSize: cfg.BufferSize,
		logger:     cfg.Logger,
		requests:   make(chan Request, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return
	}
	d.ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.started = true
	d.logger.Sugar().Infow("dispatcher started", "dispatcher", d.name, "workers", d.workers)
}

// Stop cancels workers and waits for them to exit.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.started {
		d.mu.Unlock()
		return
	}
	d.cancel()
	d.mu.Unlock()
	d.wg.Wait()
	d.logger.Sugar().Infow("dispatcher stopped", "dispatcher", d.name)
}

// Submit pushes a request onto the queue without blocking. A full queue is
// reported to the caller instead of queuing unboundedly.
func (d *Dispatcher) Submit(req Request) error {
	d.mu.Lock()
	ctx := d.ctx
	started := d.started
	d.mu.Unlock()

	if !started {
		return fmt.Errorf("dispatcher %s not started", d.name)
	}
	if req.Reply == nil {
		return fmt.Errorf("dispatcher %s: request %s has no reply channel", d.name, req.ID)
	}
	if req.Enqueued.IsZero() {
		req.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return fmt.Errorf("dispatcher %s stopped: %w", d.name, ctx.Err())
	case d.requests <- req:
		return nil
	default:
		return fmt.Errorf("dispatcher %s: queue full", d.name)
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for {
		select {
		case <-d.ctx.Done():
			return
		case req := <-d.requests:
			payload, err := d.handler(d.ctx, req)
			if err != nil {
				d.logger.Sugar().Warnw("request failed",
					"dispatcher", d.name, "request_id", req.ID, "type", req.Type, "error", err)
			}
			select {
			case req.Reply <- Result{ID: req.ID, Payload: payload, Err: err}:
			case <-d.ctx.Done():
				return
			}
		}
	}
}
