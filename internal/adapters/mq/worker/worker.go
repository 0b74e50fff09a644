// Package worker drains queued bot messages and hands them to a handler.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/tallybot/internal/domain/model"
	"github.com/okian/tallybot/pkg/logger"
	"github.com/okian/tallybot/pkg/metrics"
)

// Handler processes one inbound message.
type Handler interface {
	Process(ctx context.Context, in model.Inbound) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, in model.Inbound) error

func (f HandlerFunc) Process(ctx context.Context, in model.Inbound) error { return f(ctx, in) }

// Queue defines how workers receive messages.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Inbound
}

// Worker runs a single consume loop.
type Worker struct {
	queue   Queue
	handler Handler
	name    string
	logger  logger.Logger
	active  *atomic.Int64

	done chan struct{}
}

// NewWorker creates a worker reading from q.
func NewWorker(q Queue, h Handler, opts ...Option) *Worker {
	s := settings{name: "worker", logger: logger.Default()}
	for _, opt := range opts {
		opt(&s)
	}
	return &Worker{
		queue:   q,
		handler: h,
		name:    s.name,
		logger:  s.logger.Named(s.name),
		active:  new(atomic.Int64),
		done:    make(chan struct{}),
	}
}

// Run consumes until the queue channel closes or ctx is done.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)

	for in := range w.queue.Dequeue(ctx) {
		w.process(ctx, in)
	}
}

// Done is closed once Run returns.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) process(ctx context.Context, in model.Inbound) {
	metrics.UpdateWorkerActiveCount(int(w.active.Add(1)))
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
		metrics.UpdateWorkerActiveCount(int(w.active.Add(-1)))
	}()

	if err := w.handler.Process(ctx, in); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "handler_error")
		w.logger.Error(ctx, "message handling failed",
			logger.Int64("message_id", in.ID),
			logger.Int64("sender_id", in.SenderID),
			logger.Error(err),
		)
	}
}

// Closer is implemented by queues that can stop intake.
type Closer interface {
	Close() error
}

// Pool manages multiple workers sharing one queue.
type Pool struct {
	workers []*Worker
	queue   Queue
	logger  logger.Logger

	stopOnce sync.Once
}

// NewPool creates count workers. A non-positive count uses one per CPU.
func NewPool(count int, q Queue, h Handler, opts ...Option) *Pool {
	if count < 1 {
		count = runtime.NumCPU()
	}
	s := settings{logger: logger.Default()}
	for _, opt := range opts {
		opt(&s)
	}

	active := new(atomic.Int64)
	p := &Pool{
		workers: make([]*Worker, count),
		queue:   q,
		logger:  s.logger.Named("worker-pool"),
	}
	for i := range count {
		w := NewWorker(q, h, WithName("worker-"+strconv.Itoa(i)), WithLogger(s.logger))
		w.active = active
		p.workers[i] = w
	}
	metrics.UpdateWorkerCount(count)
	metrics.UpdateWorkerActiveCount(0)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue, if it can be closed, and waits for the
// workers to drain the backlog or for ctx to end.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.stopOnce.Do(func() {
		if c, ok := p.queue.(Closer); ok {
			if err := c.Close(); err != nil {
				p.logger.Error(ctx, "error closing queue", logger.Error(err))
			}
		}
	})

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("shutdown timed out: %w", ctx.Err())
		}
	}
	return nil
}
