package engine

import (
	"context"
	"log/slog"
)

// Invoker performs one engine op. *Handle implements it.
type Invoker interface {
	Invoke(ctx context.Context, op Op) (Result, error)
}

// Pending is the future result of a submitted op. It resolves exactly once.
type Pending struct {
	done chan struct{}
	res  Result
	err  error
}

func newPending() *Pending {
	return &Pending{done: make(chan struct{})}
}

func (p *Pending) resolve(res Result, err error) {
	p.res, p.err = res, err
	close(p.done)
}

// Done is closed once the result is available.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the op completed or ctx is done.
func (p *Pending) Wait(ctx context.Context) (Result, error) {
	select {
	case <-p.done:
		return p.res, p.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Dispatcher executes engine ops on a single worker goroutine, in the order
// they were posted.
//
// Thread-safety model:
//   - Post, Submit, Call, Flush, Close: safe from any goroutine
//   - Run: must be called from exactly one goroutine
type Dispatcher struct {
	inv     Invoker
	queue   *jobQueue
	onError func(Op, error)
	logger  *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithErrorHook registers fn for failures of ops posted without a waiter.
func WithErrorHook(fn func(Op, error)) DispatcherOption {
	return func(d *Dispatcher) {
		d.onError = fn
	}
}

// WithDispatcherLogger sets the dispatcher's logger.
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = l
	}
}

// NewDispatcher creates a dispatcher in front of inv. Call Run to start it.
func NewDispatcher(inv Invoker, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		inv:    inv,
		queue:  newJobQueue(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Post queues op without waiting for it. Failures go to the error hook.
func (d *Dispatcher) Post(op Op) {
	if !d.queue.Enqueue(job{op: op}) {
		d.report(op, ErrDispatcherClosed)
	}
}

// Submit queues op and returns a future for its result.
func (d *Dispatcher) Submit(op Op) *Pending {
	p := newPending()
	if !d.queue.Enqueue(job{op: op, pending: p}) {
		p.resolve(Result{}, ErrDispatcherClosed)
	}
	return p
}

// Call queues op behind everything already posted and waits for its result.
func (d *Dispatcher) Call(ctx context.Context, op Op) (Result, error) {
	return d.Submit(op).Wait(ctx)
}

// Flush waits until every op queued before it has run. It does not call the
// engine.
func (d *Dispatcher) Flush(ctx context.Context) error {
	p := newPending()
	if !d.queue.Enqueue(job{pending: p, barrier: true}) {
		return ErrDispatcherClosed
	}
	_, err := p.Wait(ctx)
	return err
}

// Start queues a start and waits for it.
func (d *Dispatcher) Start(ctx context.Context) error {
	_, err := d.Call(ctx, Start())
	return err
}

// Stop queues a stop and waits for it.
func (d *Dispatcher) Stop(ctx context.Context) error {
	_, err := d.Call(ctx, Stop())
	return err
}

// IsPlaying queues a playing-state query and waits for the answer.
func (d *Dispatcher) IsPlaying(ctx context.Context) (bool, error) {
	res, err := d.Call(ctx, QueryPlaying())
	return res.Playing, err
}

// Len returns the number of ops waiting to run.
func (d *Dispatcher) Len() int {
	return d.queue.Len()
}

// Run drains the queue until ctx is cancelled or Close is called.
//
// Close is graceful: ops queued before it still run. Cancelling ctx abandons
// queued ops; their futures resolve with the context error.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Debug("dispatcher starting")

	for {
		if j, ok := d.queue.TryDequeue(); ok {
			d.execute(ctx, j)
			continue
		}

		select {
		case <-ctx.Done():
			d.queue.Close()
			d.abandon(ctx.Err())
			d.logger.Debug("dispatcher stopping: context cancelled")
			return ctx.Err()

		case <-d.queue.Wait():
			// A closed queue keeps signalling; exit once it is empty.
			if d.queue.Len() == 0 {
				select {
				case _, open := <-d.queue.Wait():
					if !open {
						d.logger.Debug("dispatcher stopping: queue closed")
						return nil
					}
				default:
				}
			}
		}
	}
}

// Close closes the queue. Run returns after the remaining ops have run.
func (d *Dispatcher) Close() {
	d.queue.Close()
}

func (d *Dispatcher) execute(ctx context.Context, j job) {
	if j.barrier {
		j.pending.resolve(Result{}, nil)
		return
	}
	res, err := d.inv.Invoke(ctx, j.op)
	if j.pending != nil {
		j.pending.resolve(res, err)
		return
	}
	if err != nil {
		d.report(j.op, err)
	}
}

func (d *Dispatcher) abandon(err error) {
	for _, j := range d.queue.Drain() {
		if j.pending != nil {
			j.pending.resolve(Result{}, err)
		}
	}
}

func (d *Dispatcher) report(op Op, err error) {
	d.logger.Warn("engine call failed", "op", op.String(), "error", err)
	if d.onError != nil {
		d.onError(op, err)
	}
}
