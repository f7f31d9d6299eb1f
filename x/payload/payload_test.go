package payload

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedWriter claims size bytes and reports writes bytes written.
type fixedWriter struct {
	size   int
	writes int
	seen   []int
}

func (w *fixedWriter) RequiredSize() int { return w.size }

func (w *fixedWriter) WriteInto(buf []byte) (int, error) {
	w.seen = append(w.seen, len(buf), cap(buf))
	for i := 0; i < len(buf) && i < w.writes; i++ {
		buf[i] = byte(i + 1)
	}
	return w.writes, nil
}

type overrunWriter struct{ size int }

func (w overrunWriter) RequiredSize() int { return w.size }

func (w overrunWriter) WriteInto(buf []byte) (int, error) {
	buf[w.size] = 1
	return w.size + 1, nil
}

type failingWriter struct{}

func (failingWriter) RequiredSize() int { return 4 }

func (failingWriter) WriteInto([]byte) (int, error) { return 0, errors.New("boom") }

func newPool(t *testing.T, cfg Config) *Pool {
	t.Helper()
	p, err := NewPool(cfg, zerolog.Nop())
	require.NoError(t, err)
	return p
}

func ackNow(buf []byte, ack func()) error {
	ack()
	return nil
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig().Validate())
	assert.Equal(t, 1, DefaultConfig().BufferCount)
	assert.Equal(t, 50*time.Millisecond, DefaultConfig().AcknowledgeTimeout)

	err := Config{BufferCount: 0}.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)

	err = Config{BufferCount: 1, AcknowledgeTimeout: -time.Millisecond}.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)

	_, err = NewPool(Config{}, zerolog.Nop())
	require.ErrorIs(t, err, ErrInvalidConfig)
}

func TestPool_SizeContract(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		w       Writer
		wantErr error
	}{
		{"zero size exact", &fixedWriter{size: 0, writes: 0}, nil},
		{"zero size claims one", &fixedWriter{size: 0, writes: 1}, ErrSizeMismatch},
		{"zero size overrun", overrunWriter{size: 0}, ErrSizeMismatch},
		{"one byte exact", &fixedWriter{size: 1, writes: 1}, nil},
		{"one byte short", &fixedWriter{size: 1, writes: 0}, ErrSizeMismatch},
		{"one byte overrun", overrunWriter{size: 1}, ErrSizeMismatch},
		{"negative size", &fixedWriter{size: -1}, ErrSizeMismatch},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := newPool(t, DefaultConfig())

			delivered := false
			_, err := p.Write(context.Background(), tt.w, func(buf []byte, ack func()) error {
				delivered = true
				ack()
				return nil
			})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.False(t, delivered)
				return
			}
			require.NoError(t, err)
			assert.True(t, delivered)
		})
	}
}

func TestPool_BufferIsExactlySized(t *testing.T) {
	t.Parallel()

	p := newPool(t, DefaultConfig())
	big := &fixedWriter{size: 16, writes: 16}
	small := &fixedWriter{size: 3, writes: 3}

	var got []byte
	_, err := p.Write(context.Background(), big, ackNow)
	require.NoError(t, err)
	_, err = p.Write(context.Background(), small, func(buf []byte, ack func()) error {
		got = append([]byte(nil), buf...)
		ack()
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []int{16, 16}, big.seen)
	assert.Equal(t, []int{3, 3}, small.seen)
	assert.Equal(t, []byte{1, 2, 3}, got)
}

func TestPool_WriterErrorReleasesSlot(t *testing.T) {
	t.Parallel()

	p := newPool(t, DefaultConfig())

	_, err := p.Write(context.Background(), failingWriter{}, ackNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	_, err = p.Write(context.Background(), &fixedWriter{size: 2, writes: 2}, ackNow)
	require.NoError(t, err)
}

func TestPool_DeliverErrorReleasesSlot(t *testing.T) {
	t.Parallel()

	p := newPool(t, DefaultConfig())
	errDown := errors.New("transport down")

	_, err := p.Write(context.Background(), &fixedWriter{size: 2, writes: 2}, func([]byte, func()) error {
		return errDown
	})
	require.ErrorIs(t, err, errDown)

	_, err = p.Write(context.Background(), &fixedWriter{size: 2, writes: 2}, ackNow)
	require.NoError(t, err)
}

func TestPool_AckTimeoutIsNotAnError(t *testing.T) {
	t.Parallel()

	p := newPool(t, Config{ZeroCopy: true, BufferCount: 1, AcknowledgeTimeout: 10 * time.Millisecond})

	var pendingAck func()
	res, err := p.Write(context.Background(), &fixedWriter{size: 4, writes: 4}, func(_ []byte, ack func()) error {
		pendingAck = ack
		return nil
	})
	require.NoError(t, err)
	assert.True(t, res.AckTimedOut)

	// the only slot is still in flight
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = p.Write(ctx, &fixedWriter{size: 4, writes: 4}, ackNow)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	pendingAck()
	p.Wait()

	res, err = p.Write(context.Background(), &fixedWriter{size: 4, writes: 4}, ackNow)
	require.NoError(t, err)
	assert.False(t, res.AckTimedOut)
}

func TestPool_CancelAfterDeliverIsNotAnError(t *testing.T) {
	t.Parallel()

	p := newPool(t, Config{ZeroCopy: true, BufferCount: 1, AcknowledgeTimeout: time.Minute})

	ctx, cancel := context.WithCancel(context.Background())
	var (
		delivered  []byte
		pendingAck func()
	)
	res, err := p.Write(ctx, &fixedWriter{size: 3, writes: 3}, func(buf []byte, ack func()) error {
		delivered = append([]byte(nil), buf...)
		pendingAck = ack
		cancel()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Size)
	assert.Equal(t, []byte{1, 2, 3}, delivered)

	// the slot comes back once the transport acks
	pendingAck()
	p.Wait()
	_, err = p.Write(context.Background(), &fixedWriter{size: 3, writes: 3}, ackNow)
	require.NoError(t, err)
}

func TestPool_MultipleBuffers(t *testing.T) {
	t.Parallel()

	p := newPool(t, Config{ZeroCopy: true, BufferCount: 3, AcknowledgeTimeout: 0})

	var acks []func()
	for i := 0; i < 3; i++ {
		_, err := p.Write(context.Background(), &fixedWriter{size: 8, writes: 8}, func(_ []byte, ack func()) error {
			acks = append(acks, ack)
			return nil
		})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := p.Write(ctx, &fixedWriter{size: 8, writes: 8}, ackNow)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	for _, ack := range acks {
		ack()
		ack()
	}
	p.Wait()

	_, err = p.Write(context.Background(), &fixedWriter{size: 8, writes: 8}, ackNow)
	require.NoError(t, err)
}

func TestPool_ModifyInPlace(t *testing.T) {
	t.Parallel()

	p := newPool(t, DefaultConfig())
	bp := NewBinaryPayload(32)

	var first, second []byte
	res, err := p.Write(context.Background(), bp, func(buf []byte, ack func()) error {
		first = append([]byte(nil), buf...)
		ack()
		return nil
	})
	require.NoError(t, err)
	assert.False(t, res.Modified)

	res, err = p.Write(context.Background(), bp, func(buf []byte, ack func()) error {
		second = append([]byte(nil), buf...)
		ack()
		return nil
	})
	require.NoError(t, err)
	assert.True(t, res.Modified)

	assert.Equal(t, byte(1), first[0])
	assert.Equal(t, byte(2), second[0])
	assert.Equal(t, first[8:], second[8:])
	assert.Equal(t, byte('*'), second[31])
	assert.Equal(t, uint64(2), bp.Counter())

	// a different writer of the same size gets a full write
	other := NewBinaryPayload(32)
	res, err = p.Write(context.Background(), other, ackNow)
	require.NoError(t, err)
	assert.False(t, res.Modified)
}

func TestBytes(t *testing.T) {
	t.Parallel()

	buf, err := Bytes(NewBinaryPayload(10))
	require.NoError(t, err)
	assert.Len(t, buf, 10)
	assert.Equal(t, byte('*'), buf[9])

	_, err = Bytes(&fixedWriter{size: 1, writes: 0})
	require.ErrorIs(t, err, ErrSizeMismatch)
}
