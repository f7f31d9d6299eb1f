package payload

// BinaryPayload is a fixed-size writer filled with a constant byte. On
// repeated sends into the same buffer it only bumps a counter at the front,
// which is what the throughput benchmark measures.
type BinaryPayload struct {
	size    int
	fill    byte
	counter uint64
}

// NewBinaryPayload returns a writer producing size bytes of '*'.
func NewBinaryPayload(size int) *BinaryPayload {
	return &BinaryPayload{size: size, fill: '*'}
}

func (b *BinaryPayload) RequiredSize() int { return b.size }

func (b *BinaryPayload) WriteInto(buf []byte) (int, error) {
	for i := range buf {
		buf[i] = b.fill
	}
	b.stamp(buf)
	return len(buf), nil
}

func (b *BinaryPayload) WriteModified(buf []byte) (int, error) {
	b.stamp(buf)
	return len(buf), nil
}

// Counter returns the number of writes performed so far.
func (b *BinaryPayload) Counter() uint64 { return b.counter }

func (b *BinaryPayload) stamp(buf []byte) {
	b.counter++
	c := b.counter
	for i := 0; i < len(buf) && i < 8; i++ {
		buf[i] = byte(c)
		c >>= 8
	}
}
