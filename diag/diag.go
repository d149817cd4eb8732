// Package diag records gateway diagnostics: per-reason drop counters and
// structured events delivered to slow consumers without ever blocking the caller.
package diag

import (
	"log/slog"
	"sync/atomic"

	"github.com/soypat/lgate"
	"github.com/soypat/lgate/link"
)

//go:generate stringer -type=Kind -linecomment -output stringers.go .

// Kind classifies a diagnostic event.
type Kind uint8

const (
	KindBoot    Kind = iota // boot
	KindDrop                // drop
	KindResolve             // resolve
	KindLink                // link
	KindARP                 // arp
	KindFault               // fault
)

// Sink receives diagnostic events. Record must never block nor fail;
// implementations drop events they cannot take.
type Sink interface {
	Record(kind Kind, attrs ...slog.Attr)
}

// Discard is a Sink that drops every event.
type Discard struct{}

func (Discard) Record(Kind, ...slog.Attr) {}

type tee []Sink

// Tee returns a Sink that records every event to all sinks in order.
func Tee(sinks ...Sink) Sink {
	return tee(sinks)
}

func (t tee) Record(kind Kind, attrs ...slog.Attr) {
	for _, s := range t {
		s.Record(kind, attrs...)
	}
}

// Counters accounts drops per reason and frames per interface.
// All methods are safe for concurrent use.
type Counters struct {
	drops [lgate.NumDropReasons]atomic.Uint64
	rx    [link.NumIDs]atomic.Uint64
	tx    [link.NumIDs]atomic.Uint64
}

// Drop counts one frame dropped for reason.
func (c *Counters) Drop(reason lgate.DropReason) {
	if reason == lgate.DropNone {
		panic("diag: drop without reason")
	}
	c.drops[reason].Add(1)
}

// Received counts a frame received on id.
func (c *Counters) Received(id link.ID) { c.rx[id].Add(1) }

// Transmitted counts a frame handed to the adapter of id.
func (c *Counters) Transmitted(id link.ID) { c.tx[id].Add(1) }

// Drops returns the amount of frames dropped for reason.
func (c *Counters) Drops(reason lgate.DropReason) uint64 { return c.drops[reason].Load() }

// TotalDrops returns the amount of frames dropped for any reason.
func (c *Counters) TotalDrops() (total uint64) {
	for i := range c.drops {
		total += c.drops[i].Load()
	}
	return total
}

func (c *Counters) RxFrames(id link.ID) uint64 { return c.rx[id].Load() }

func (c *Counters) TxFrames(id link.ID) uint64 { return c.tx[id].Load() }
