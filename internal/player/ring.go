package player

import "sync/atomic"

// Ring is a wait-free single-producer/single-consumer float32 stereo ring
// buffer. The producer (a channel's decoder goroutine) calls Write; the
// consumer (the audio thread) calls Read. Neither blocks nor allocates.
type Ring struct {
	l, r     []float32
	capacity uint64
	write    atomic.Uint64
	read     atomic.Uint64
}

// NewRing returns a Ring with room for capacity sample pairs.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring{
		l:        make([]float32, capacity),
		r:        make([]float32, capacity),
		capacity: uint64(capacity),
	}
}

// Avail returns the number of sample pairs ready to read.
func (rb *Ring) Avail() int {
	return int(rb.write.Load() - rb.read.Load())
}

// Free returns the number of sample pairs that can be written without
// overwriting unread data.
func (rb *Ring) Free() int {
	return int(rb.capacity) - rb.Avail()
}

// Write copies up to len(l) sample pairs into the ring, returning the
// number actually written (less than requested once the ring is full).
// Producer-only.
func (rb *Ring) Write(l, r []float32) int {
	n := len(l)
	if free := rb.Free(); n > free {
		n = free
	}
	if n <= 0 {
		return 0
	}
	w := rb.write.Load()
	for i := 0; i < n; i++ {
		idx := (w + uint64(i)) % rb.capacity
		rb.l[idx] = l[i]
		rb.r[idx] = r[i]
	}
	rb.write.Store(w + uint64(n))
	return n
}

// Read copies up to len(outL) sample pairs out of the ring into outL/outR,
// returning the number actually read. The caller is responsible for
// padding any shortfall with silence. Consumer-only.
func (rb *Ring) Read(outL, outR []float32) int {
	n := len(outL)
	if avail := rb.Avail(); n > avail {
		n = avail
	}
	if n <= 0 {
		return 0
	}
	rd := rb.read.Load()
	for i := 0; i < n; i++ {
		idx := (rd + uint64(i)) % rb.capacity
		outL[i] = rb.l[idx]
		outR[i] = rb.r[idx]
	}
	rb.read.Store(rd + uint64(n))
	return n
}

// Reset drops all buffered data, returning the ring to empty. Only safe
// when the producer is not concurrently writing (e.g. immediately after a
// track swap, before the new decoder starts).
func (rb *Ring) Reset() {
	rb.read.Store(rb.write.Load())
}

// PeekPair returns the sample pair offset sample-pairs ahead of the read
// cursor without advancing it, or (0,0) if offset is beyond what is
// available. Used by the speed-variance read path to interpolate between
// adjacent samples without disturbing the consumer-only Read contract.
func (rb *Ring) PeekPair(offset int) (l, r float32) {
	if offset < 0 || offset >= rb.Avail() {
		return 0, 0
	}
	idx := (rb.read.Load() + uint64(offset)) % rb.capacity
	return rb.l[idx], rb.r[idx]
}

// Advance consumes n sample pairs from the ring without copying them out,
// capped at Avail(). Consumer-only; pairs with PeekPair for resampled
// reads that only know how many whole pairs they crossed after the fact.
func (rb *Ring) Advance(n int) {
	if avail := rb.Avail(); n > avail {
		n = avail
	}
	if n <= 0 {
		return
	}
	rb.read.Store(rb.read.Load() + uint64(n))
}

// MoveTo drains up to dst's free capacity of this ring's unread content
// into dst, preserving order, and consumes exactly what it copied. Used to
// hand the tail of an outgoing track to a fade buffer on a gapless track
// swap. Not safe against a concurrent producer on rb (Channel.Play calls
// it before closing and replacing the outgoing decoder).
func (rb *Ring) MoveTo(dst *Ring) int {
	n := rb.Avail()
	if free := dst.Free(); n > free {
		n = free
	}
	if n <= 0 {
		return 0
	}
	l := make([]float32, n)
	r := make([]float32, n)
	rd := rb.read.Load()
	for i := 0; i < n; i++ {
		idx := (rd + uint64(i)) % rb.capacity
		l[i] = rb.l[idx]
		r[i] = rb.r[idx]
	}
	dst.Write(l, r)
	rb.Advance(n)
	return n
}
