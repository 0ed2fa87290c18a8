package notification

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	defaultWorkers     = 4
	defaultQueueSize   = 256
	defaultMaxAttempts = 3
	defaultSendTimeout = 10 * time.Second
	defaultDrainWindow = 5 * time.Second
	retryBackoff       = 200 * time.Millisecond
)

// Dispatcher is a bounded in-process work queue in front of a Sender.
//
// Enqueue never blocks: when the queue is full or the dispatcher has stopped the
// message is dropped and counted. Delivery failures are retried a few times,
// then logged. Nothing here reports back to the caller that enqueued.
type Dispatcher struct {
	sender      Sender
	queue       chan Message
	workers     int
	maxAttempts int
	sendTimeout time.Duration
	drainWindow time.Duration
	logger      *slog.Logger
	metrics     *Metrics

	mu      sync.RWMutex
	stopped bool
}

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
			d.queue = make(chan Message, n)
		}
	}
}

func WithMaxAttempts(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.maxAttempts = n
		}
	}
}

func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

// WithDrainWindow bounds how long Run keeps delivering queued messages after
// its context ends.
func WithDrainWindow(window time.Duration) Option {
	return func(d *Dispatcher) {
		if window > 0 {
			d.drainWindow = window
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func NewDispatcher(sender Sender, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sender:      sender,
		queue:       make(chan Message, defaultQueueSize),
		workers:     defaultWorkers,
		maxAttempts: defaultMaxAttempts,
		sendTimeout: defaultSendTimeout,
		drainWindow: defaultDrainWindow,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue hands msg to the workers. It reports whether the message was queued.
func (d *Dispatcher) Enqueue(ctx context.Context, msg Message) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.stopped {
		select {
		case d.queue <- msg:
			if d.metrics != nil {
				d.metrics.Queued.Inc()
			}
			return true
		default:
		}
	}

	if d.metrics != nil {
		d.metrics.Dropped.Inc()
	}
	d.logger.WarnContext(ctx, "notification dropped",
		"kind", msg.Kind,
		"record_id", msg.RecordID,
		"request_id", msg.RequestID,
		"stopped", d.stopped,
	)
	return false
}

// Run starts the workers and blocks until ctx is done. It then stops intake and
// delivers what is still queued within the drain window. Sends in flight when
// the window closes are cancelled and whatever is left in the queue is dropped.
func (d *Dispatcher) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for range d.workers {
		g.Go(func() error {
			d.work(gctx)
			return nil
		})
	}
	_ = g.Wait()

	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.drainWindow)
	defer cancel()
	for {
		select {
		case <-drainCtx.Done():
			d.abandon(drainCtx)
			return nil
		default:
		}
		select {
		case msg := <-d.queue:
			d.deliver(drainCtx, drainCtx, msg)
		default:
			return nil
		}
	}
}

func (d *Dispatcher) work(ctx context.Context) {
	// A send already started when shutdown begins gets its own timeout.
	sendParent := context.WithoutCancel(ctx)
	for {
		// Once shutdown starts, queued messages belong to the drain.
		if ctx.Err() != nil {
			return
		}
		select {
		case <-ctx.Done():
			return
		case msg := <-d.queue:
			d.deliver(ctx, sendParent, msg)
		}
	}
}

// abandon empties the queue once the drain window is spent.
func (d *Dispatcher) abandon(ctx context.Context) {
	var n int
	for {
		select {
		case <-d.queue:
			n++
			continue
		default:
		}
		break
	}
	if n == 0 {
		return
	}
	if d.metrics != nil {
		d.metrics.Dropped.Add(float64(n))
	}
	d.logger.WarnContext(ctx, "drain window expired, notifications dropped",
		"dropped", n,
		"drain_window", d.drainWindow,
	)
}

// deliver sends msg with retries. ctx stops the retry loop; each attempt's
// deadline is sendTimeout from sendParent, or sendParent's own deadline if
// that comes first.
func (d *Dispatcher) deliver(ctx, sendParent context.Context, msg Message) {
	var err error
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		sendCtx, cancel := context.WithTimeout(sendParent, d.sendTimeout)
		err = d.sender.Send(sendCtx, msg)
		cancel()
		if err == nil {
			if d.metrics != nil {
				d.metrics.Sent.WithLabelValues(string(msg.Kind)).Inc()
			}
			return
		}
		if attempt == d.maxAttempts || !sleep(ctx, retryBackoff*time.Duration(attempt)) {
			break
		}
	}

	if d.metrics != nil {
		d.metrics.Failed.WithLabelValues(string(msg.Kind)).Inc()
	}
	d.logger.ErrorContext(ctx, "notification delivery failed",
		"kind", msg.Kind,
		"record_id", msg.RecordID,
		"request_id", msg.RequestID,
		"error", err,
	)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
