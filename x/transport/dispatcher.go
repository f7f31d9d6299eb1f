package transport

import (
	"sync"
)

type delivery struct {
	frame   Frame
	release func()
}

// Dispatcher runs one subscription's handler on its own goroutine, feeding it
// from an unbounded FIFO queue so the producer never waits on the consumer.
type Dispatcher struct {
	handler Handler

	mu     sync.Mutex
	queue  []delivery
	closed bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

// NewDispatcher starts the delivery goroutine for h.
func NewDispatcher(h Handler) *Dispatcher {
	d := &Dispatcher{
		handler: h,
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Enqueue schedules f. release runs once the handler is done with f, or
// immediately when the dispatcher is closed; it may be nil.
func (d *Dispatcher) Enqueue(f Frame, release func()) bool {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		if release != nil {
			release()
		}
		return false
	}
	d.queue = append(d.queue, delivery{frame: f, release: release})
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
	return true
}

// Pending returns the number of queued frames.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Close stops delivery. Queued frames are released without being handled.
// It does not wait for a handler that is already running.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()
	close(d.quit)
}

// Done is closed once the delivery goroutine has exited.
func (d *Dispatcher) Done() <-chan struct{} {
	return d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case <-d.quit:
			d.drain()
			return
		case <-d.wake:
		}

		for {
			next, ok := d.pop()
			if !ok {
				break
			}
			d.handler(next.frame)
			if next.release != nil {
				next.release()
			}
		}
	}
}

func (d *Dispatcher) pop() (delivery, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || len(d.queue) == 0 {
		return delivery{}, false
	}
	next := d.queue[0]
	d.queue[0] = delivery{}
	d.queue = d.queue[1:]
	return next, true
}

func (d *Dispatcher) drain() {
	d.mu.Lock()
	queue := d.queue
	d.queue = nil
	d.mu.Unlock()

	for _, q := range queue {
		if q.release != nil {
			q.release()
		}
	}
}
