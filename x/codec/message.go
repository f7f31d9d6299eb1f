package codec

// Message holds one decoded payload. It is shared by every reader of a single
// received message and never changes after construction. Payloads that carry
// references (slices, maps, pointers) must be treated as read-only.
type Message[T any] struct {
	v *T
}

// NewMessage wraps v.
func NewMessage[T any](v T) Message[T] {
	return Message[T]{v: &v}
}

// Get returns the held value, or the zero value for an empty Message.
func (m Message[T]) Get() T {
	if m.v == nil {
		var zero T
		return zero
	}
	return *m.v
}

// IsZero reports whether the Message was never populated.
func (m Message[T]) IsZero() bool {
	return m.v == nil
}
