package internal

import (
	"errors"
	"io"
)

var (
	errRingBufferFull = errors.New("lgate/ring: buffer full")
	errRingNoData     = errors.New("lgate/ring: empty write")
	errRingDiscard    = errors.New("lgate/ring: discard exceeds buffered")
)

// Ring is a fixed size byte FIFO over Buf. Writes are all or nothing so a
// record written in one call is never split by a full buffer.
type Ring struct {
	// Buf stores the ring data. Its capacity is unused.
	Buf []byte
	// Off is the index of the first readable byte in Buf.
	Off int
	// N is the amount of readable bytes starting at Off, wrapping around the end of Buf.
	N int
}

// Write appends all of b to the ring or nothing if b does not fit in [Ring.Free].
func (r *Ring) Write(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, errRingNoData
	} else if len(b) > r.Free() {
		return 0, errRingBufferFull
	}
	end := r.wrap(r.Off + r.N)
	n := copy(r.Buf[end:], b)
	copy(r.Buf, b[n:])
	r.N += len(b)
	return len(b), nil
}

// Read reads up to len(b) bytes and advances the read pointer. [io.EOF] is returned when empty.
func (r *Ring) Read(b []byte) (int, error) {
	n, err := r.ReadPeek(b)
	if err == nil {
		r.advance(n)
	}
	return n, err
}

// ReadPeek reads up to len(b) bytes without advancing the read pointer. [io.EOF] is returned when empty.
func (r *Ring) ReadPeek(b []byte) (int, error) {
	return r.ReadAt(b, 0)
}

// ReadAt reads up to len(b) bytes starting off bytes after the read pointer
// without advancing it. [io.EOF] is returned when no data lies at off.
func (r *Ring) ReadAt(b []byte, off int64) (int, error) {
	if off < 0 || off >= int64(r.N) {
		return 0, io.EOF
	}
	avail := r.N - int(off)
	if len(b) > avail {
		b = b[:avail]
	}
	start := r.wrap(r.Off + int(off))
	n := copy(b, r.Buf[start:])
	n += copy(b[n:], r.Buf)
	return n, nil
}

// ReadDiscard advances the read pointer n bytes without copying.
func (r *Ring) ReadDiscard(n int) error {
	if n < 0 || n > r.N {
		return errRingDiscard
	}
	r.advance(n)
	return nil
}

// Reset flushes all data from the ring.
func (r *Ring) Reset() {
	r.Off = 0
	r.N = 0
}

// Size returns the capacity of the ring buffer.
func (r *Ring) Size() int { return len(r.Buf) }

// Buffered returns the amount of readable bytes.
func (r *Ring) Buffered() int { return r.N }

// Free returns the amount of bytes that can be written.
func (r *Ring) Free() int { return len(r.Buf) - r.N }

func (r *Ring) advance(n int) {
	r.N -= n
	if r.N == 0 {
		r.Off = 0 // Keep next writes contiguous.
	} else {
		r.Off = r.wrap(r.Off + n)
	}
}

func (r *Ring) wrap(i int) int {
	if i >= len(r.Buf) {
		i -= len(r.Buf)
	}
	return i
}
