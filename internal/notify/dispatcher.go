package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const sinkTimeout = 5 * time.Second

// Dispatcher queues events and delivers them to every sink on its own
// goroutine. Notify never blocks; events are dropped when the queue is full.
type Dispatcher struct {
	Logger *zap.Logger

	sinks   []Notifier
	ch      chan Event
	dropped atomic.Int64

	mu       sync.RWMutex
	closed   bool
	finished chan struct{}
}

func NewDispatcher(buffer int, logger *zap.Logger, sinks ...Notifier) *Dispatcher {
	if buffer <= 0 {
		buffer = 256
	}
	d := &Dispatcher{
		Logger:   logger,
		sinks:    sinks,
		ch:       make(chan Event, buffer),
		finished: make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) Notify(_ context.Context, ev Event) error {
	if d == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil
	}
	select {
	case d.ch <- ev:
	default:
		if n := d.dropped.Add(1); d.Logger != nil && n%100 == 1 {
			d.Logger.Warn("notify queue full, dropping events", zap.Int64("dropped", n))
		}
	}
	return nil
}

func (d *Dispatcher) Dropped() int64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.ch)
	}
	d.mu.Unlock()
	<-d.finished
}

func (d *Dispatcher) run() {
	defer close(d.finished)
	for ev := range d.ch {
		for _, sink := range d.sinks {
			d.deliver(sink, ev)
		}
	}
}

func (d *Dispatcher) deliver(sink Notifier, ev Event) {
	defer func() {
		if r := recover(); r != nil && d.Logger != nil {
			d.Logger.Error("notify sink panicked", zap.Any("panic", r))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()
	if err := sink.Notify(ctx, ev); err != nil && d.Logger != nil {
		d.Logger.Debug("notify sink failed", zap.String("type", ev.Type), zap.Error(err))
	}
}
