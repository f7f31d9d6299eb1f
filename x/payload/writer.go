// Package payload lets senders serialize straight into transport-owned
// buffers instead of materializing a byte slice per send.
package payload

import (
	"errors"
	"fmt"
)

var (
	ErrSizeMismatch  = errors.New("payload writer size mismatch")
	ErrInvalidConfig = errors.New("invalid payload config")
)

// Writer serializes a payload into a buffer provided by the transport.
//
// The buffer passed to WriteInto has length and capacity RequiredSize().
// It is only valid for the duration of the call and must not be retained.
// WriteInto reports how many bytes it wrote; anything other than
// len(buf) is a contract violation.
type Writer interface {
	RequiredSize() int
	WriteInto(buf []byte) (int, error)
}

// ModifyWriter is implemented by writers that can update a buffer they
// fully wrote on a previous send. The pool calls WriteModified instead of
// WriteInto when it hands back the same buffer, at the same size, that this
// writer filled last.
type ModifyWriter interface {
	Writer
	WriteModified(buf []byte) (int, error)
}

// Bytes runs w against a freshly allocated buffer. Transports use it when
// zero-copy is off.
func Bytes(w Writer) ([]byte, error) {
	size := w.RequiredSize()
	if size < 0 {
		return nil, fmt.Errorf("%w: negative required size %d", ErrSizeMismatch, size)
	}
	buf := make([]byte, size)
	if err := fill(buf, w.WriteInto); err != nil {
		return nil, err
	}
	return buf, nil
}

// fill invokes write on buf and enforces the size contract. A write that
// indexes past the end of buf panics; that is reported as a mismatch too.
func fill(buf []byte, write func([]byte) (int, error)) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: writer overran %d byte buffer: %v", ErrSizeMismatch, len(buf), r)
		}
	}()

	n, err := write(buf[:len(buf):len(buf)])
	if err != nil {
		return fmt.Errorf("payload writer failed: %w", err)
	}
	if n != len(buf) {
		return fmt.Errorf("%w: wrote %d of %d bytes", ErrSizeMismatch, n, len(buf))
	}
	return nil
}
