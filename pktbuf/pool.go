package pktbuf

import (
	"log/slog"
	"sync/atomic"

	"github.com/soypat/lgate"
	"github.com/soypat/lgate/internal"
)

const (
	DefaultBuffers  = 8
	// DefaultSize fits a maximum size Ethernet frame behind the default headroom.
	DefaultSize     = 1568
	DefaultHeadroom = 32
	maxBuffers      = 1 << 15
)

// Config sizes a [Pool]. All memory is reserved in [Pool.Reset].
type Config struct {
	Buffers  int
	Size     int // Total bytes per buffer, headroom included.
	Headroom int
	Logger   *slog.Logger
}

type slot struct {
	gen   uint16
	state State
	owner Owner
	iface uint8
}

// Pool is a fixed set of packet buffers carved from a single arena.
// Acquire and Release never allocate nor block. Pool is not safe for
// concurrent use: callers serialize access, the counters are safe to read from
// any goroutine.
type Pool struct {
	arena     []byte
	bufs      []Buffer
	slots     []slot
	free      []uint16 // Stack of free slot indices.
	exhausted atomic.Uint64
	nfree     atomic.Int32
	logger
}

// Reset reserves the pool storage. Handles from before the Reset are invalidated.
func (p *Pool) Reset(cfg Config) error {
	if cfg.Buffers <= 0 || cfg.Buffers > maxBuffers || cfg.Headroom < 0 || cfg.Size <= cfg.Headroom {
		return lgate.ErrInvalidConfig
	}
	total := cfg.Buffers * cfg.Size
	if cap(p.arena) < total {
		p.arena = make([]byte, total)
	} else {
		p.arena = p.arena[:total]
		clear(p.arena)
	}
	internal.SliceReuse(&p.bufs, cfg.Buffers)
	internal.SliceReuse(&p.slots, cfg.Buffers)
	internal.SliceReuse(&p.free, cfg.Buffers)
	for i := 0; i < cfg.Buffers; i++ {
		p.bufs = append(p.bufs, Buffer{
			data:     p.arena[i*cfg.Size : (i+1)*cfg.Size : (i+1)*cfg.Size],
			off:      cfg.Headroom,
			end:      cfg.Headroom,
			headroom: cfg.Headroom,
		})
		p.slots = append(p.slots, slot{gen: 1})
		// Lowest index is handed out first.
		p.free = append(p.free, uint16(cfg.Buffers-1-i))
	}
	p.exhausted.Store(0)
	p.nfree.Store(int32(cfg.Buffers))
	p.logger = logger{log: cfg.Logger}
	return nil
}

// Acquire takes a free buffer for owner. When no buffer is free
// [lgate.ErrExhausted] is returned, the exhaustion counter is incremented and
// no buffer is modified.
func (p *Pool) Acquire(owner Owner) (Handle, error) {
	if len(p.free) == 0 {
		p.exhausted.Add(1)
		p.debug("pktbuf:exhausted", slog.Int("owner", int(owner)))
		return Handle{}, lgate.ErrExhausted
	}
	last := len(p.free) - 1
	idx := p.free[last]
	p.free = p.free[:last]
	s := &p.slots[idx]
	if s.state != StateFree {
		panic("pktbuf: free list holds a used buffer")
	}
	s.state = StateOwned
	s.owner = owner
	p.nfree.Add(-1)
	p.trace("pktbuf:acquire", slog.Int("idx", int(idx)), slog.Int("owner", int(owner)))
	return Handle{idx: idx, gen: s.gen}, nil
}

// Buffer returns the buffer of a live handle. It panics on stale or zero handles.
func (p *Pool) Buffer(h Handle) *Buffer {
	p.mustLive(h)
	return &p.bufs[h.idx]
}

// Send marks an owned buffer as in flight on the interface iface.
// Any other transition is an invariant violation and panics.
func (p *Pool) Send(h Handle, iface uint8) {
	s := p.mustLive(h)
	if s.state != StateOwned {
		panic("pktbuf: send of buffer not owned")
	}
	s.state = StateInFlight
	s.iface = iface
}

// Release returns the buffer referenced by *h to the pool from either the owned
// or in-flight state. The buffer bytes are cleared, the slot generation bumped
// and *h is zeroed so the handle cannot be used again.
func (p *Pool) Release(h *Handle) {
	s := p.mustLive(*h)
	idx := h.idx
	p.bufs[idx].reset()
	s.state = StateFree
	s.owner = 0
	s.iface = 0
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	p.free = append(p.free, idx)
	p.nfree.Add(1)
	*h = Handle{}
	p.trace("pktbuf:release", slog.Int("idx", int(idx)))
}

// Owner returns the task owning the buffer referenced by h.
func (p *Pool) Owner(h Handle) Owner {
	return p.mustLive(h).owner
}

// Free returns the amount of free buffers. Safe for concurrent use.
func (p *Pool) Free() int { return int(p.nfree.Load()) }

// Len returns the total amount of buffers in the pool.
func (p *Pool) Len() int { return len(p.slots) }

// Exhausted returns how many times [Pool.Acquire] found no free buffer. Safe for concurrent use.
func (p *Pool) Exhausted() uint64 { return p.exhausted.Load() }

// State returns the state of slot i and the interface it is in flight on, if any.
func (p *Pool) State(i int) (state State, iface uint8) {
	s := p.slots[i]
	return s.state, s.iface
}

func (p *Pool) mustLive(h Handle) *slot {
	if h.gen == 0 || int(h.idx) >= len(p.slots) {
		panic("pktbuf: invalid handle")
	}
	s := &p.slots[h.idx]
	if s.gen != h.gen || s.state == StateFree {
		panic("pktbuf: stale handle")
	}
	return s
}

type logger struct {
	log *slog.Logger
}

func (l *logger) debug(msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, slog.LevelDebug, msg, attrs...)
}

func (l *logger) trace(msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, internal.LevelTrace, msg, attrs...)
}
