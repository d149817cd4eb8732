package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/soypat/lgate"
	"github.com/soypat/lgate/arp"
	"github.com/soypat/lgate/diag"
	"github.com/soypat/lgate/internal"
	"github.com/soypat/lgate/link"
	"github.com/soypat/lgate/pktbuf"
	"github.com/soypat/lgate/router"
	"github.com/soypat/lgate/sched"
)

// Gateway bridges an Ethernet and an IEEE 802.15.4 adapter. It owns the
// static task table: a low priority timer task ages the ARP cache and one
// receive task per adapter drains its frames through the router.
//
// The buffer pool, the ARP cache and the transmit path of each adapter are
// only reached through [sched.Lock].
type Gateway struct {
	sched  *sched.Scheduler
	pool   *sched.Resource[pktbuf.Pool]
	cache  *sched.Resource[arp.Cache]
	tx     [link.NumIDs]*sched.Resource[link.Adapter]
	links  [link.NumIDs]link.Adapter
	router router.Router
	// stats is the pool reached at boot, only its concurrency safe counters are read through it.
	stats *pktbuf.Pool

	counters diag.Counters
	sink     diag.Sink
	now      func() time.Time
	lastUp   [link.NumIDs]link.Status // Owned by the timer task.
	logger
}

// New validates cfg, reserves all gateway memory and builds the static task
// table over the Ethernet adapter eth and the radio adapter radio. Interrupts
// are signalled with [Gateway.Interrupt] and [Gateway.Tick].
func New(cfg Config, eth, radio link.Adapter) (*Gateway, error) {
	if eth == nil || radio == nil {
		return nil, fmt.Errorf("gateway: nil adapter: %w", lgate.ErrInvalidConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	g := &Gateway{
		links:  [link.NumIDs]link.Adapter{eth, radio},
		sink:   cfg.Sink,
		now:    cfg.Now,
		logger: logger{log: cfg.Logger},
	}
	if g.sink == nil {
		g.sink = diag.Discard{}
	}
	if g.now == nil {
		g.now = time.Now
	}
	err := g.router.Reset(cfg.routerConfig(g.linkStatus))
	if err != nil {
		return nil, err
	}
	all := []sched.ResourceID{ResourcePool, ResourceARP, ResourceEthernetTx, ResourceRadioTx}
	g.sched, err = sched.New(sched.Config{
		Tasks: []sched.Task{
			TaskTimer: {
				Name:     "timer",
				Priority: cfg.Priorities.Timer,
				Source:   SourceTimer,
				Uses:     []sched.ResourceID{ResourceARP},
				Run:      g.runTimer,
			},
			TaskEthernet: {
				Name:     "eth-rx",
				Priority: cfg.Priorities.Ethernet,
				Source:   SourceEthernet,
				Uses:     all,
				Run:      func(c *sched.Context) { g.drain(c, link.Ethernet) },
			},
			TaskRadio: {
				Name:     "radio-rx",
				Priority: cfg.Priorities.Radio,
				Source:   SourceRadio,
				Uses:     all,
				Run:      func(c *sched.Context) { g.drain(c, link.Radio) },
			},
		},
		Resources: resourceNames[:],
		Tracer:    cfg.Tracer,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, err
	}
	if g.pool, err = sched.NewResource(g.sched, ResourcePool, pktbuf.Pool{}); err != nil {
		return nil, err
	}
	if g.cache, err = sched.NewResource(g.sched, ResourceARP, arp.Cache{}); err != nil {
		return nil, err
	}
	for id, rid := range [link.NumIDs]sched.ResourceID{ResourceEthernetTx, ResourceRadioTx} {
		if g.tx[id], err = sched.NewResource(g.sched, rid, g.links[id]); err != nil {
			return nil, err
		}
	}
	g.sched.Init(func(c *sched.Context) {
		sched.Lock(c, g.pool, func(p *pktbuf.Pool) {
			err = p.Reset(pktbuf.Config{
				Buffers:  cfg.Buffers,
				Size:     cfg.BufferSize,
				Headroom: cfg.Headroom,
				Logger:   cfg.Logger,
			})
			g.stats = p
		})
		if err != nil {
			return
		}
		sched.Lock(c, g.cache, func(a *arp.Cache) {
			err = a.Reset(arp.CacheConfig{Size: cfg.ARPCacheSize, MaxAge: cfg.ARPMaxAge, Logger: cfg.Logger})
		})
	})
	if err != nil {
		return nil, err
	}
	for id := range g.lastUp {
		g.lastUp[id] = g.links[id].Status()
	}
	ethAddr, radioAddr := cfg.Ethernet.Addr().As4(), cfg.Radio.Addr().As4()
	g.sink.Record(diag.KindBoot,
		internal.SlogAddr4("eth", &ethAddr),
		internal.SlogAddr4("radio", &radioAddr),
		slog.Int("buffers", cfg.Buffers),
	)
	g.info("gateway:boot", slog.Int("buffers", cfg.Buffers), slog.Int("arp-cache", cfg.ARPCacheSize))
	return g, nil
}

// Interrupt signals that adapter id has frames available. Safe for concurrent use.
func (g *Gateway) Interrupt(id link.ID) {
	switch id {
	case link.Ethernet:
		g.sched.Pend(SourceEthernet)
	case link.Radio:
		g.sched.Pend(SourceRadio)
	default:
		panic("gateway: bad interface")
	}
}

// Tick pends the timer task. Safe for concurrent use.
func (g *Gateway) Tick() { g.sched.Pend(SourceTimer) }

// Run runs the scheduler until ctx is done. An invariant violation inside a
// task is recorded as a fault and returned as an error: the gateway must not
// be run again after a fault.
func (g *Gateway) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = g.fault(r)
		}
	}()
	return g.sched.Run(ctx)
}

// Poll dispatches pending tasks until none is pending without blocking and
// returns the amount of dispatches. Must not be called concurrently with Run.
func (g *Gateway) Poll() int { return g.sched.Poll() }

// Inspect runs fn with exclusive access to the pool and the ARP cache at boot
// priority. It must not be called concurrently with Run or Poll.
func (g *Gateway) Inspect(fn func(pool *pktbuf.Pool, cache *arp.Cache)) {
	g.sched.Init(func(c *sched.Context) {
		sched.Lock(c, g.pool, func(p *pktbuf.Pool) {
			sched.Lock(c, g.cache, func(a *arp.Cache) { fn(p, a) })
		})
	})
}

// Counters returns the per-reason drop and per-interface frame counters.
// Safe for concurrent use.
func (g *Gateway) Counters() *diag.Counters { return &g.counters }

// Scheduler returns the scheduler for introspection of task state.
func (g *Gateway) Scheduler() *sched.Scheduler { return g.sched }

// PoolFree returns the amount of free buffers. Safe for concurrent use.
func (g *Gateway) PoolFree() int { return g.stats.Free() }

// PoolExhausted returns how many times a receive task found the pool empty.
// Safe for concurrent use.
func (g *Gateway) PoolExhausted() uint64 { return g.stats.Exhausted() }

// Missed returns the sum of interrupts lost over all tasks. Safe for concurrent use.
func (g *Gateway) Missed() (total uint64) {
	for id := 0; id < g.sched.NumTasks(); id++ {
		total += uint64(g.sched.Missed(sched.TaskID(id)))
	}
	return total
}

func (g *Gateway) fault(r any) error {
	err := fmt.Errorf("gateway: fatal: %v", r)
	g.sink.Record(diag.KindFault, slog.String("panic", fmt.Sprint(r)))
	internal.LogAttrs(g.log, slog.LevelError, "fatal", slog.String("panic", fmt.Sprint(r)))
	return err
}

func (g *Gateway) linkStatus(id link.ID) link.Status { return g.links[id].Status() }

func (g *Gateway) runTimer(c *sched.Context) {
	now := g.now()
	var expired, left int
	sched.Lock(c, g.cache, func(cache *arp.Cache) {
		expired = cache.Expire(now)
		left = cache.Len()
	})
	if expired > 0 {
		g.sink.Record(diag.KindARP, slog.Int("expired", expired), slog.Int("entries", left))
	}
	for id := range g.lastUp {
		st := g.links[id].Status()
		if st == g.lastUp[id] {
			continue
		}
		g.lastUp[id] = st
		g.sink.Record(diag.KindLink, slog.String("iface", link.ID(id).String()), slog.String("status", st.String()))
		g.info("gateway:link", slog.String("iface", link.ID(id).String()), slog.String("status", st.String()))
	}
}

func owner(in link.ID) pktbuf.Owner { return pktbuf.Owner(TaskEthernet) + pktbuf.Owner(in) }

// drain receives frames from adapter in until it reports none available.
func (g *Gateway) drain(c *sched.Context, in link.ID) {
	for g.receive(c, in) {
	}
}

// receive handles a single frame of adapter in end to end. It reports false
// when the adapter has no more frames.
func (g *Gateway) receive(c *sched.Context, in link.ID) bool {
	var (
		h   pktbuf.Handle
		buf *pktbuf.Buffer
		err error
	)
	sched.Lock(c, g.pool, func(p *pktbuf.Pool) {
		h, err = p.Acquire(owner(in))
		if err == nil {
			buf = p.Buffer(h)
		}
	})
	if err != nil {
		// No buffer: pending frames are discarded by the adapter.
		for {
			if _, err := g.links[in].TryReceive(nil); err != nil {
				return false
			}
			g.drop(in, lgate.DropExhausted)
		}
	}
	defer g.release(c, &h)

	n, err := g.links[in].TryReceive(buf.ReceiveWindow())
	switch {
	case err == nil:
	case errors.Is(err, link.ErrNoFrame):
		return false
	case errors.Is(err, io.ErrShortBuffer):
		g.counters.Received(in)
		g.drop(in, lgate.DropMalformed)
		return true
	default:
		g.drop(in, lgate.DropLinkError)
		return false
	}
	g.counters.Received(in)
	if err := buf.Commit(n); err != nil {
		g.drop(in, lgate.DropMalformed) // Adapter reported more bytes than the window holds.
		return true
	}

	var d router.Decision
	sched.Lock(c, g.cache, func(cache *arp.Cache) {
		g.router.Observe(in, buf.Frame(), cache, g.now())
		d = g.router.Route(in, buf, cache)
	})
	if d.Action == router.ActionLocal {
		d = g.router.Deliver(in, buf)
	}
	switch d.Action {
	case router.ActionForward, router.ActionReply:
		g.transmit(c, h, buf, d.Iface)
	case router.ActionResolve:
		g.transmit(c, h, buf, d.Iface)
		g.sink.Record(diag.KindResolve, slog.String("in", in.String()), slog.String("out", d.Iface.String()))
		g.drop(in, d.Reason)
	case router.ActionDrop:
		g.drop(in, d.Reason)
	}
	return true
}

// transmit hands the frame window of buf to the adapter iface. Adapters copy
// the frame so the buffer is free to release once Transmit returns.
func (g *Gateway) transmit(c *sched.Context, h pktbuf.Handle, buf *pktbuf.Buffer, iface link.ID) {
	sched.Lock(c, g.pool, func(p *pktbuf.Pool) { p.Send(h, uint8(iface)) })
	var err error
	sched.Lock(c, g.tx[iface], func(a *link.Adapter) {
		err = (*a).Transmit(buf.Frame())
	})
	switch {
	case err == nil:
		g.counters.Transmitted(iface)
	case errors.Is(err, link.ErrBusy):
		g.drop(iface, lgate.DropBusy)
	default:
		g.drop(iface, lgate.DropLinkError)
	}
}

func (g *Gateway) release(c *sched.Context, h *pktbuf.Handle) {
	sched.Lock(c, g.pool, func(p *pktbuf.Pool) { p.Release(h) })
}

func (g *Gateway) drop(iface link.ID, reason lgate.DropReason) {
	g.counters.Drop(reason)
	g.sink.Record(diag.KindDrop, slog.String("iface", iface.String()), slog.String("reason", reason.String()))
	g.debug("gateway:drop", slog.String("iface", iface.String()), slog.String("reason", reason.String()))
}

type logger struct {
	log *slog.Logger
}

func (l logger) info(msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, slog.LevelInfo, msg, attrs...)
}

func (l logger) debug(msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, slog.LevelDebug, msg, attrs...)
}
