// Package hostlink implements gateway link adapters over host devices: a linux
// TAP interface for the Ethernet side and a UDP multicast group standing in
// for the shared radio medium.
//
// Each adapter runs a reader goroutine that copies frames from the device into
// a fixed size queue and then signals the gateway. TryReceive only touches the queue.
package hostlink

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"sync/atomic"
	"time"

	"github.com/soypat/lgate/internal"
	"github.com/soypat/lgate/link"
)

const (
	defaultQueueSize = 32 * 1024
	maxFrame         = 2048

	retryMin = 10 * time.Millisecond
	retryMax = 2 * time.Second
)

// Config is common to host adapters.
type Config struct {
	// Queue sizes the receive queue. The zero value reserves 32kB for frames up to 2kB.
	Queue link.QueueConfig
	// OnReceive is called from the reader goroutine after every queued frame,
	// typically the interrupt of the receive task.
	OnReceive func()
	Logger    *slog.Logger
}

// port is the receive half shared by host adapters.
type port struct {
	rx       link.Queue
	status   atomic.Uint32
	onRx     func()
	received atomic.Uint64
	logger
}

func (p *port) reset(cfg Config) error {
	qcfg := cfg.Queue
	if qcfg == (link.QueueConfig{}) {
		qcfg = link.QueueConfig{Size: defaultQueueSize, MaxFrame: maxFrame}
	}
	if err := p.rx.Reset(qcfg); err != nil {
		return err
	}
	p.onRx = cfg.OnReceive
	p.logger = logger{log: cfg.Logger}
	p.status.Store(uint32(link.Up))
	return nil
}

// readLoop reads frames with read until ctx is done or the device is closed.
// Read errors bring the link down until the next successful read.
func (p *port) readLoop(ctx context.Context, name string, read func([]byte) (int, error)) error {
	buf := make([]byte, maxFrame)
	backoff := internal.NewBackoff(retryMin, retryMax)
	for {
		n, err := read(buf)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			if errors.Is(err, net.ErrClosed) || errors.Is(err, os.ErrClosed) || errors.Is(err, io.EOF) {
				p.status.Store(uint32(link.Down))
				return err
			}
			if p.status.Swap(uint32(link.Down)) == uint32(link.Up) {
				p.error("hostlink:read", slog.String("dev", name), slog.String("err", err.Error()))
			}
			if err := backoff.Miss(ctx); err != nil {
				return err
			}
			continue
		}
		backoff.Hit()
		if p.status.Swap(uint32(link.Up)) == uint32(link.Down) {
			p.info("hostlink:up", slog.String("dev", name))
		}
		if n == 0 {
			continue
		}
		if err := p.rx.Push(buf[:n]); err != nil {
			p.debug("hostlink:rx-drop", slog.String("dev", name), slog.Int("len", n), slog.String("err", err.Error()))
			continue
		}
		p.received.Add(1)
		if p.onRx != nil {
			p.onRx()
		}
	}
}

// TryReceive pops the oldest received frame.
func (p *port) TryReceive(dst []byte) (int, error) { return p.rx.Pop(dst) }

// Status reports the link down after a device read error.
func (p *port) Status() link.Status { return link.Status(p.status.Load()) }

// Received returns the amount of frames queued since the adapter was created.
func (p *port) Received() uint64 { return p.received.Load() }

// Dropped returns the amount of frames lost because the receive queue was full.
func (p *port) Dropped() uint64 { return p.rx.Dropped() }

type logger struct {
	log *slog.Logger
}

func (l logger) error(msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, slog.LevelError, msg, attrs...)
}

func (l logger) info(msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, slog.LevelInfo, msg, attrs...)
}

func (l logger) debug(msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, slog.LevelDebug, msg, attrs...)
}
