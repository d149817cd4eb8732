package pktbuf

import (
	"github.com/soypat/lgate"
)

// Buffer is a fixed size slot of the pool arena. The frame occupies the
// window [off,end). Bytes in front of the window are headroom where link
// headers of a different size can be written in place.
type Buffer struct {
	data     []byte
	off      int
	end      int
	headroom int
}

// ReceiveWindow returns the region a link adapter receives a frame into.
// Call [Buffer.Commit] with the amount of bytes received.
func (b *Buffer) ReceiveWindow() []byte {
	return b.data[b.headroom:]
}

// Commit sets the frame window to the first n bytes of the receive window.
func (b *Buffer) Commit(n int) error {
	if n < 0 || b.headroom+n > len(b.data) {
		return lgate.ErrCapacity
	}
	b.off = b.headroom
	b.end = b.headroom + n
	return nil
}

// Frame returns the bytes of the frame window.
func (b *Buffer) Frame() []byte { return b.data[b.off:b.end] }

// Off returns the offset of the frame window within the buffer.
func (b *Buffer) Off() int { return b.off }

// Len returns the length of the frame window.
func (b *Buffer) Len() int { return b.end - b.off }

// Cap returns the total buffer size including headroom.
func (b *Buffer) Cap() int { return len(b.data) }

// Raw returns the whole buffer, headroom included.
func (b *Buffer) Raw() []byte { return b.data }

// SetWindow moves the frame window to [off,end) of the whole buffer.
func (b *Buffer) SetWindow(off, end int) error {
	if off < 0 || end < off || end > len(b.data) {
		return lgate.ErrCapacity
	}
	b.off = off
	b.end = end
	return nil
}

// Reframe replaces the leading hdrLen bytes of the frame window by a header of
// newLen bytes, growing into headroom or shrinking as needed. The returned
// slice is the new header region followed by the unchanged remainder.
func (b *Buffer) Reframe(hdrLen, newLen int) ([]byte, error) {
	if hdrLen > b.Len() {
		return nil, lgate.ErrShortBuffer
	}
	off := b.off + hdrLen - newLen
	if off < 0 {
		return nil, lgate.ErrCapacity
	}
	b.off = off
	return b.data[b.off:b.end], nil
}

func (b *Buffer) reset() {
	clear(b.data)
	b.off = b.headroom
	b.end = b.headroom
}
