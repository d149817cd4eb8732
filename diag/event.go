package diag

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// MaxAttrs is the maximum amount of attributes an [Event] keeps. Extra attributes are discarded.
const MaxAttrs = 6

// Event is a recorded diagnostic with its attributes stored inline.
type Event struct {
	Kind  Kind
	Time  time.Time
	attrs [MaxAttrs]slog.Attr
	n     uint8
}

// NewEvent returns an event of kind at time t keeping up to [MaxAttrs] attributes.
func NewEvent(kind Kind, t time.Time, attrs ...slog.Attr) Event {
	e := Event{Kind: kind, Time: t}
	e.n = uint8(copy(e.attrs[:], attrs))
	return e
}

// Attrs returns the attributes of the event.
func (e *Event) Attrs() []slog.Attr { return e.attrs[:e.n] }

// Attr returns the value of the attribute with key and whether it was found.
func (e *Event) Attr(key string) (slog.Value, bool) {
	for _, a := range e.Attrs() {
		if a.Key == key {
			return a.Value, true
		}
	}
	return slog.Value{}, false
}

// Queue is a bounded event queue. Record never blocks: events recorded while
// the queue is full are counted and discarded.
type Queue struct {
	ch      chan Event
	dropped atomic.Uint64
}

// NewQueue returns a queue holding up to depth events.
func NewQueue(depth int) *Queue {
	if depth <= 0 {
		panic("diag: queue depth must be positive")
	}
	return &Queue{ch: make(chan Event, depth)}
}

func (q *Queue) Record(kind Kind, attrs ...slog.Attr) {
	select {
	case q.ch <- NewEvent(kind, time.Now(), attrs...):
	default:
		q.dropped.Add(1)
	}
}

// Events returns the channel events are consumed from.
func (q *Queue) Events() <-chan Event { return q.ch }

// Dropped returns the amount of events discarded due to a full queue.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// LogSink writes events to a [slog.Logger] from its own goroutine.
type LogSink struct {
	*Queue
	log *slog.Logger
}

// NewLogSink returns a sink that buffers up to depth events for logger. Call [LogSink.Run] to consume them.
func NewLogSink(logger *slog.Logger, depth int) *LogSink {
	return &LogSink{Queue: NewQueue(depth), log: logger}
}

// Run logs queued events until ctx is done.
func (s *LogSink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e := <-s.ch:
			s.log.LogAttrs(ctx, Level(e.Kind), e.Kind.String(), e.Attrs()...)
		}
	}
}

// Level returns the log level events of kind are logged at.
func Level(kind Kind) slog.Level {
	switch kind {
	case KindFault:
		return slog.LevelError
	case KindLink:
		return slog.LevelWarn
	case KindDrop, KindResolve, KindARP:
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Recorder is a Sink that keeps every event in memory. It is meant for tests.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Record(kind Kind, attrs ...slog.Attr) {
	r.mu.Lock()
	r.events = append(r.events, NewEvent(kind, time.Now(), attrs...))
	r.mu.Unlock()
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns the amount of recorded events of kind.
func (r *Recorder) Count(kind Kind) (n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.events {
		if r.events[i].Kind == kind {
			n++
		}
	}
	return n
}

// Reset discards recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = r.events[:0]
	r.mu.Unlock()
}
