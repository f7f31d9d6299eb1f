package payload

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Deliver hands a filled buffer to the transport. The transport calls ack
// once nothing references buf any more; ack may be called from any
// goroutine and more than once. If Deliver returns an error it must not
// keep buf.
type Deliver func(buf []byte, ack func()) error

// WriteResult describes one pooled write.
type WriteResult struct {
	Size int
	// Modified is set when the writer updated its previous buffer in place.
	Modified bool
	// AckTimedOut is set when the acknowledge timeout expired before the
	// transport released the buffer. The send still happened.
	AckTimedOut bool
}

type slot struct {
	buf  []byte
	last any
}

// Pool owns the buffers a zero-copy publisher writes into.
type Pool struct {
	cfg   Config
	slots chan *slot
	log   zerolog.Logger

	pending sync.WaitGroup
}

// NewPool creates a pool with cfg.BufferCount empty slots.
func NewPool(cfg Config, log zerolog.Logger) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pool{
		cfg:   cfg,
		slots: make(chan *slot, cfg.BufferCount),
		log:   log.With().Str("component", "payload-pool").Logger(),
	}
	for i := 0; i < cfg.BufferCount; i++ {
		p.slots <- &slot{}
	}
	return p, nil
}

// Config returns the pool configuration.
func (p *Pool) Config() Config { return p.cfg }

// Write acquires a buffer, lets w fill it and passes it to deliver. It then
// waits up to the acknowledge timeout for the transport to release the
// buffer. The slot goes back to the pool only after the ack, so a slow
// consumer stalls the next Write once every slot is in flight.
func (p *Pool) Write(ctx context.Context, w Writer, deliver Deliver) (WriteResult, error) {
	size := w.RequiredSize()
	if size < 0 {
		return WriteResult{}, fmt.Errorf("%w: negative required size %d", ErrSizeMismatch, size)
	}

	var s *slot
	select {
	case s = <-p.slots:
	case <-ctx.Done():
		return WriteResult{}, fmt.Errorf("waiting for payload buffer: %w", ctx.Err())
	}

	res := WriteResult{Size: size}
	write := w.WriteInto
	if mw, ok := w.(ModifyWriter); ok && cap(s.buf) == size && sameWriter(s.last, w) {
		write = mw.WriteModified
		res.Modified = true
	}
	if cap(s.buf) != size {
		s.buf = make([]byte, size)
		s.last = nil
	}
	buf := s.buf[:size:size]

	if err := fill(buf, write); err != nil {
		s.last = nil
		p.slots <- s
		return WriteResult{}, err
	}
	s.last = w

	done := make(chan struct{})
	var once sync.Once
	ack := func() { once.Do(func() { close(done) }) }

	if err := deliver(buf, ack); err != nil {
		p.slots <- s
		return WriteResult{}, err
	}

	if p.cfg.AcknowledgeTimeout == 0 {
		p.releaseOnAck(s, done)
		return res, nil
	}

	timer := time.NewTimer(p.cfg.AcknowledgeTimeout)
	defer timer.Stop()

	select {
	case <-done:
		p.slots <- s
		return res, nil
	case <-timer.C:
		res.AckTimedOut = true
		p.log.Warn().
			Int("size", size).
			Dur("timeout", p.cfg.AcknowledgeTimeout).
			Msg("Payload buffer not acknowledged in time")
		p.releaseOnAck(s, done)
		return res, nil
	case <-ctx.Done():
		// the frame is already out; only the wait for the ack is cut short
		p.releaseOnAck(s, done)
		return res, nil
	}
}

// Wait blocks until every buffer released in the background is back in the pool.
func (p *Pool) Wait() {
	p.pending.Wait()
}

func (p *Pool) releaseOnAck(s *slot, done <-chan struct{}) {
	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		<-done
		p.slots <- s
	}()
}

func sameWriter(last any, w Writer) bool {
	if last == nil {
		return false
	}
	t := reflect.TypeOf(w)
	if t != reflect.TypeOf(last) || !t.Comparable() {
		return false
	}
	return last == any(w)
}
