package link

import (
	"encoding/binary"
	"io"
	"sync"

	"github.com/soypat/lgate"
	"github.com/soypat/lgate/internal"
)

const sizePrefix = 2

// QueueConfig sizes a [Queue].
type QueueConfig struct {
	// Size is the amount of bytes reserved, length prefixes included.
	Size int
	// MaxFrame is the largest frame accepted by Push.
	MaxFrame int
}

// Queue is a fixed memory FIFO of frames. Each frame is stored in a ring buffer
// behind a 2 byte length prefix. Queue is safe for concurrent use by one
// producer and one consumer.
type Queue struct {
	mu       sync.Mutex
	ring     internal.Ring
	frames   int
	maxFrame int
	dropped  uint64
}

// Reset reserves the queue storage and empties it.
func (q *Queue) Reset(cfg QueueConfig) error {
	if cfg.MaxFrame <= 0 || cfg.MaxFrame > 0xffff || cfg.Size < cfg.MaxFrame+sizePrefix {
		return lgate.ErrInvalidConfig
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if cap(q.ring.Buf) < cfg.Size {
		q.ring.Buf = make([]byte, cfg.Size)
	}
	q.ring.Buf = q.ring.Buf[:cfg.Size]
	q.ring.Reset()
	q.frames = 0
	q.maxFrame = cfg.MaxFrame
	q.dropped = 0
	return nil
}

// Push appends a copy of frame to the queue. It returns [ErrBusy] when there is
// no room and [lgate.ErrCapacity] for frames longer than MaxFrame or empty frames.
// In both cases the frame is not queued and the drop counter is incremented.
func (q *Queue) Push(frame []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(frame) == 0 || len(frame) > q.maxFrame {
		q.dropped++
		return lgate.ErrCapacity
	} else if q.ring.Free() < sizePrefix+len(frame) {
		q.dropped++
		return ErrBusy
	}
	var prefix [sizePrefix]byte
	binary.BigEndian.PutUint16(prefix[:], uint16(len(frame)))
	q.ring.Write(prefix[:])
	q.ring.Write(frame)
	q.frames++
	return nil
}

// Pop removes the oldest frame and copies it into dst, following the
// [Adapter.TryReceive] contract.
func (q *Queue) Pop(dst []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.frames == 0 {
		return 0, ErrNoFrame
	}
	var prefix [sizePrefix]byte
	q.ring.Read(prefix[:])
	n := int(binary.BigEndian.Uint16(prefix[:]))
	q.frames--
	if dst == nil {
		q.ring.ReadDiscard(n)
		return 0, nil
	} else if len(dst) < n {
		q.ring.ReadDiscard(n)
		return 0, io.ErrShortBuffer
	}
	q.ring.Read(dst[:n])
	return n, nil
}

// Len returns the amount of queued frames.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.frames
}

// Dropped returns the amount of frames rejected by Push.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
