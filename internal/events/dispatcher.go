package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var (
	ErrQueueFull        = errors.New("event queue full")
	ErrDispatcherClosed = errors.New("event dispatcher closed")
)

const (
	defaultQueueSize       = 256
	defaultDeliveryTimeout = 5 * time.Second
)

// Dispatcher hands events to a sink from a single background worker so the
// request path never waits on a broker or chat API. Publish only enqueues;
// when the queue is full the event is dropped.
type Dispatcher struct {
	sink    Sink
	timeout time.Duration
	log     *slog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	done   chan struct{}
}

func NewDispatcher(sink Sink, queueSize int, timeout time.Duration, log *slog.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if timeout <= 0 {
		timeout = defaultDeliveryTimeout
	}
	d := &Dispatcher{
		sink:    sink,
		timeout: timeout,
		log:     log,
		queue:   make(chan Event, queueSize),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) Publish(_ context.Context, evt Event) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	select {
	case d.queue <- evt:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for evt := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.sink.Publish(ctx, evt)
		cancel()
		if err != nil && d.log != nil {
			d.log.Warn("event delivery failed", "event_id", evt.ID, "type", evt.Type, "err", err)
		}
	}
}

// Close stops accepting events and waits for queued ones until ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
