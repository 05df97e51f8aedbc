// Package history keeps bounded trend samples per measurement channel.
package history

import "github.com/kilianp07/substation/core/model"

// Ring is a fixed-capacity FIFO of samples. The zero value is unusable; use
// NewRing.
type Ring struct {
	buf   []float64
	start int
	n     int
}

// NewRing returns a ring holding at most capacity samples.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{buf: make([]float64, capacity)}
}

// Append adds v, evicting the oldest sample when full.
func (r *Ring) Append(v float64) {
	if r.n < len(r.buf) {
		r.buf[(r.start+r.n)%len(r.buf)] = v
		r.n++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

// Len returns the number of stored samples.
func (r *Ring) Len() int { return r.n }

// Cap returns the ring capacity.
func (r *Ring) Cap() int { return len(r.buf) }

// Values returns a copy of the samples, oldest first.
func (r *Ring) Values() []float64 {
	out := make([]float64, r.n)
	for i := 0; i < r.n; i++ {
		out[i] = r.buf[(r.start+i)%len(r.buf)]
	}
	return out
}

// Last returns the newest sample.
func (r *Ring) Last() (float64, bool) {
	if r.n == 0 {
		return 0, false
	}
	return r.buf[(r.start+r.n-1)%len(r.buf)], true
}

// Buffer holds one Ring per channel. It is not safe for concurrent use.
type Buffer struct {
	capacity int
	rings    map[model.Channel]*Ring
}

// New creates a Buffer with every substation channel preallocated.
func New(capacity int) *Buffer {
	b := &Buffer{capacity: capacity, rings: make(map[model.Channel]*Ring)}
	for _, c := range model.Channels() {
		b.rings[c] = NewRing(capacity)
	}
	return b
}

// Append records v on channel c. Unknown channels get their own ring.
func (b *Buffer) Append(c model.Channel, v float64) {
	r, ok := b.rings[c]
	if !ok {
		r = NewRing(b.capacity)
		b.rings[c] = r
	}
	r.Append(v)
}

// Snapshot returns the contents of c oldest first. Unknown channels yield an
// empty slice.
func (b *Buffer) Snapshot(c model.Channel) []float64 {
	r, ok := b.rings[c]
	if !ok {
		return []float64{}
	}
	return r.Values()
}

// Latest returns the newest sample of c.
func (b *Buffer) Latest(c model.Channel) (float64, bool) {
	r, ok := b.rings[c]
	if !ok {
		return 0, false
	}
	return r.Last()
}

// LatestOrDefault returns the newest sample of c or its gauge default.
func (b *Buffer) LatestOrDefault(c model.Channel) float64 {
	if v, ok := b.Latest(c); ok {
		return v
	}
	return model.GaugeDefault(c)
}

// All returns a copy of every channel.
func (b *Buffer) All() map[model.Channel][]float64 {
	out := make(map[model.Channel][]float64, len(b.rings))
	for c, r := range b.rings {
		out[c] = r.Values()
	}
	return out
}
