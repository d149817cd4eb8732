// Package promdiag exports gateway counters as Prometheus metrics.
package promdiag

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/soypat/lgate"
	"github.com/soypat/lgate/diag"
	"github.com/soypat/lgate/link"
)

// Config selects what the collector exports.
type Config struct {
	// Namespace prefixes metric names. Defaults to "lgate".
	Namespace string
	Counters  *diag.Counters
	// PoolFree, PoolExhausted and Missed are optional readers of pool and scheduler state.
	PoolFree      func() int
	PoolExhausted func() uint64
	Missed        func() uint64
	// Events is an optional reader of diagnostic events lost to overload.
	Events func() uint64
}

// Collector is a [prometheus.Collector] reading [diag.Counters] at scrape time.
type Collector struct {
	cfg           Config
	drops         *prometheus.Desc
	rx            *prometheus.Desc
	tx            *prometheus.Desc
	poolFree      *prometheus.Desc
	poolExhausted *prometheus.Desc
	missed        *prometheus.Desc
	events        *prometheus.Desc
}

var _ prometheus.Collector = (*Collector)(nil)

// NewCollector returns a collector for cfg. Register it with a [prometheus.Registerer].
func NewCollector(cfg Config) *Collector {
	if cfg.Counters == nil {
		panic("promdiag: nil counters")
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "lgate"
	}
	name := func(n string) string { return prometheus.BuildFQName(cfg.Namespace, "", n) }
	return &Collector{
		cfg:           cfg,
		drops:         prometheus.NewDesc(name("drops_total"), "Frames dropped per reason.", []string{"reason"}, nil),
		rx:            prometheus.NewDesc(name("frames_received_total"), "Frames received per interface.", []string{"iface"}, nil),
		tx:            prometheus.NewDesc(name("frames_transmitted_total"), "Frames handed to the interface transmit path.", []string{"iface"}, nil),
		poolFree:      prometheus.NewDesc(name("pool_free_buffers"), "Packet buffers currently free.", nil, nil),
		poolExhausted: prometheus.NewDesc(name("pool_exhausted_total"), "Buffer acquisitions that found the pool empty.", nil, nil),
		missed:        prometheus.NewDesc(name("sched_missed_total"), "Interrupt triggers coalesced while already pending.", nil, nil),
		events:        prometheus.NewDesc(name("diag_events_dropped_total"), "Diagnostic events discarded due to overload.", nil, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.drops
	ch <- c.rx
	ch <- c.tx
	if c.cfg.PoolFree != nil {
		ch <- c.poolFree
	}
	if c.cfg.PoolExhausted != nil {
		ch <- c.poolExhausted
	}
	if c.cfg.Missed != nil {
		ch <- c.missed
	}
	if c.cfg.Events != nil {
		ch <- c.events
	}
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	counters := c.cfg.Counters
	for r := lgate.DropReason(1); int(r) < lgate.NumDropReasons; r++ {
		ch <- prometheus.MustNewConstMetric(c.drops, prometheus.CounterValue, float64(counters.Drops(r)), r.String())
	}
	for id := link.ID(0); int(id) < link.NumIDs; id++ {
		ch <- prometheus.MustNewConstMetric(c.rx, prometheus.CounterValue, float64(counters.RxFrames(id)), id.String())
		ch <- prometheus.MustNewConstMetric(c.tx, prometheus.CounterValue, float64(counters.TxFrames(id)), id.String())
	}
	if c.cfg.PoolFree != nil {
		ch <- prometheus.MustNewConstMetric(c.poolFree, prometheus.GaugeValue, float64(c.cfg.PoolFree()))
	}
	if c.cfg.PoolExhausted != nil {
		ch <- prometheus.MustNewConstMetric(c.poolExhausted, prometheus.CounterValue, float64(c.cfg.PoolExhausted()))
	}
	if c.cfg.Missed != nil {
		ch <- prometheus.MustNewConstMetric(c.missed, prometheus.CounterValue, float64(c.cfg.Missed()))
	}
	if c.cfg.Events != nil {
		ch <- prometheus.MustNewConstMetric(c.events, prometheus.CounterValue, float64(c.cfg.Events()))
	}
}
