package fetcher

import (
	"sync"
)

// ProgressQueue runs progress callbacks on its own goroutine. Submit never
// blocks; callbacks are dropped when the buffer is full.
type ProgressQueue struct {
	ch     chan func()
	once   sync.Once
	closed chan struct{}
	done   chan struct{}
}

func NewProgressQueue(buffer int) *ProgressQueue {
	if buffer <= 0 {
		buffer = 64
	}
	q := &ProgressQueue{
		ch:     make(chan func(), buffer),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *ProgressQueue) run() {
	defer close(q.done)
	for {
		select {
		case fn := <-q.ch:
			q.call(fn)
		case <-q.closed:
			for {
				select {
				case fn := <-q.ch:
					q.call(fn)
				default:
					return
				}
			}
		}
	}
}

func (q *ProgressQueue) call(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

func (q *ProgressQueue) Submit(fn func()) bool {
	if q == nil || fn == nil {
		return false
	}
	select {
	case <-q.closed:
		return false
	default:
	}
	select {
	case q.ch <- fn:
		return true
	default:
		return false
	}
}

// Close drains pending callbacks and stops the worker.
func (q *ProgressQueue) Close() {
	if q == nil {
		return
	}
	q.once.Do(func() { close(q.closed) })
	<-q.done
}
