package link

import (
	"sync"
	"sync/atomic"
)

// Loopback is an in-memory [Adapter]. Its wire side is a pair of queues:
// frames injected with [Loopback.Inject] are received by the gateway and frames
// transmitted by the gateway are collected with [Loopback.Collect].
type Loopback struct {
	rx      Queue
	tx      Queue
	status  atomic.Uint32
	mu      sync.Mutex
	onRx    func()
	failErr error
	failN   int
}

var _ Adapter = (*Loopback)(nil)

// Reset sizes both queues with cfg and brings the link up.
func (l *Loopback) Reset(cfg QueueConfig) error {
	if err := l.rx.Reset(cfg); err != nil {
		return err
	}
	if err := l.tx.Reset(cfg); err != nil {
		return err
	}
	l.mu.Lock()
	l.failErr, l.failN = nil, 0
	l.mu.Unlock()
	l.status.Store(uint32(Up))
	return nil
}

// OnReceive sets a callback invoked after every injected frame, typically the
// Pend of the receive task source.
func (l *Loopback) OnReceive(fn func()) {
	l.mu.Lock()
	l.onRx = fn
	l.mu.Unlock()
}

// Inject queues frame as received from the wire.
func (l *Loopback) Inject(frame []byte) error {
	if err := l.rx.Push(frame); err != nil {
		return err
	}
	l.mu.Lock()
	fn := l.onRx
	l.mu.Unlock()
	if fn != nil {
		fn()
	}
	return nil
}

// Collect pops the oldest transmitted frame into dst.
func (l *Loopback) Collect(dst []byte) (int, error) { return l.tx.Pop(dst) }

// Transmitted returns the amount of transmitted frames not yet collected.
func (l *Loopback) Transmitted() int { return l.tx.Len() }

// Pending returns the amount of injected frames not yet received.
func (l *Loopback) Pending() int { return l.rx.Len() }

// SetStatus changes the link state.
func (l *Loopback) SetStatus(s Status) { l.status.Store(uint32(s)) }

// FailTransmit makes the next n calls to Transmit return err.
func (l *Loopback) FailTransmit(err error, n int) {
	l.mu.Lock()
	l.failErr, l.failN = err, n
	l.mu.Unlock()
}

func (l *Loopback) TryReceive(dst []byte) (int, error) {
	if l.Status() != Up {
		return 0, ErrNoFrame
	}
	return l.rx.Pop(dst)
}

func (l *Loopback) Transmit(frame []byte) error {
	if l.Status() != Up {
		return ErrLink
	}
	l.mu.Lock()
	if l.failN > 0 {
		l.failN--
		err := l.failErr
		l.mu.Unlock()
		return err
	}
	l.mu.Unlock()
	err := l.tx.Push(frame)
	if err != nil && err != ErrBusy {
		return ErrLink
	}
	return err
}

func (l *Loopback) Status() Status { return Status(l.status.Load()) }
