package gateway

import (
	"fmt"
	"log/slog"
	"net/netip"
	"time"

	"github.com/soypat/lgate"
	"github.com/soypat/lgate/diag"
	"github.com/soypat/lgate/ieee802154"
	"github.com/soypat/lgate/link"
	"github.com/soypat/lgate/pktbuf"
	"github.com/soypat/lgate/router"
	"github.com/soypat/lgate/sched"
)

// Build-time defaults of the gateway firmware.
const (
	DefaultARPCacheSize = 16
	DefaultARPMaxAge    = 5 * time.Minute
	DefaultPAN          = 0xbeef

	// minHeadroom fits an Ethernet header in front of any IPv4 packet received over radio.
	minHeadroom = 14
)

// Interrupt sources of the static task table.
const (
	SourceTimer sched.Source = iota
	SourceEthernet
	SourceRadio
)

// Tasks of the static task table, in table order.
const (
	TaskTimer sched.TaskID = iota
	TaskEthernet
	TaskRadio
)

// Shared resources guarded by the scheduler.
const (
	ResourcePool sched.ResourceID = iota
	ResourceARP
	ResourceEthernetTx
	ResourceRadioTx
	numResources
)

var resourceNames = [numResources]string{
	ResourcePool:       "pool",
	ResourceARP:        "arp",
	ResourceEthernetTx: "eth-tx",
	ResourceRadioTx:    "radio-tx",
}

// Priorities of the static tasks. Larger values preempt smaller ones.
type Priorities struct {
	Timer    sched.Priority
	Ethernet sched.Priority
	Radio    sched.Priority
}

// Config is the build-time configuration of a [Gateway].
type Config struct {
	// Ethernet is the gateway address and MAC on the Ethernet port.
	Ethernet     netip.Prefix
	HardwareAddr [6]byte
	// Radio is the gateway address on the radio port and its PAN and short address.
	Radio      netip.Prefix
	PAN        uint16
	ShortAddr  uint16
	Routes     []router.Route
	Neighbors  []router.Neighbor
	EchoPort   uint16
	Priorities Priorities

	Buffers    int
	BufferSize int // Headroom included.
	Headroom   int

	ARPCacheSize int
	ARPMaxAge    time.Duration

	// Now returns the time used for ARP confirmation and ageing. Defaults to time.Now.
	Now    func() time.Time
	Sink   diag.Sink
	Tracer sched.Tracer
	Logger *slog.Logger
}

// DefaultConfig returns the configuration compiled into the firmware.
func DefaultConfig() Config {
	return Config{
		Ethernet:     netip.MustParsePrefix("192.168.1.1/24"),
		HardwareAddr: [6]byte{0x02, 0x00, 0x00, 0x00, 0x00, 0x01},
		Radio:        netip.MustParsePrefix("10.0.0.1/24"),
		PAN:          DefaultPAN,
		ShortAddr:    0x0001,
		EchoPort:     router.DefaultEchoPort,
		Priorities: Priorities{
			Timer:    1,
			Ethernet: 2,
			Radio:    3,
		},
		Buffers:      pktbuf.DefaultBuffers,
		BufferSize:   pktbuf.DefaultSize,
		Headroom:     pktbuf.DefaultHeadroom,
		ARPCacheSize: DefaultARPCacheSize,
		ARPMaxAge:    DefaultARPMaxAge,
	}
}

func (cfg *Config) validate() error {
	switch {
	case cfg.Headroom < minHeadroom:
		return fmt.Errorf("gateway: headroom %d below %d: %w", cfg.Headroom, minHeadroom, lgate.ErrInvalidConfig)
	case cfg.BufferSize-cfg.Headroom < ieee802154.MaxFrameSize:
		return fmt.Errorf("gateway: receive window cannot hold a radio frame: %w", lgate.ErrInvalidConfig)
	case cfg.ARPMaxAge <= 0:
		return fmt.Errorf("gateway: ARP max age must be positive: %w", lgate.ErrInvalidConfig)
	}
	return nil
}

func (cfg *Config) routerConfig(status func(link.ID) link.Status) router.Config {
	var ports [link.NumIDs]router.Port
	ports[link.Ethernet] = router.Port{Addr: cfg.Ethernet, HardwareAddr: cfg.HardwareAddr}
	ports[link.Radio] = router.Port{Addr: cfg.Radio, PAN: cfg.PAN, Short: cfg.ShortAddr}
	return router.Config{
		Ports:     ports,
		Routes:    cfg.Routes,
		Neighbors: cfg.Neighbors,
		EchoPort:  cfg.EchoPort,
		Status:    status,
		Logger:    cfg.Logger,
	}
}
