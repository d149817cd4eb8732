package router

import (
	"fmt"
	"log/slog"
	"net/netip"
	"sort"

	"github.com/soypat/lgate"
	"github.com/soypat/lgate/ethernet"
	"github.com/soypat/lgate/link"
)

// DefaultEchoPort is the UDP port answered by the echo service.
const DefaultEchoPort = 1337

// Port is the configuration of one gateway interface.
type Port struct {
	// Addr is the gateway address on the interface and its on-link prefix, i.e. 192.168.1.1/24.
	Addr netip.Prefix
	// HardwareAddr is the Ethernet MAC address. Used by the Ethernet port only.
	HardwareAddr [6]byte
	// PAN and Short are the radio PAN identifier and short address. Used by the radio port only.
	PAN   uint16
	Short uint16
}

// Route sends packets destined to Prefix out of Iface. A valid Gateway is the next hop,
// otherwise the destination is on-link.
type Route struct {
	Prefix  netip.Prefix
	Iface   link.ID
	Gateway netip.Addr
}

// Neighbor maps an on-link radio IPv4 address to its short address.
type Neighbor struct {
	Addr  netip.Addr
	Short uint16
}

// Config is the static routing policy. Routes for the prefixes of each port are implied.
type Config struct {
	Ports     [link.NumIDs]Port
	Routes    []Route
	Neighbors []Neighbor
	// EchoPort enables the UDP echo service when non-zero.
	EchoPort uint16
	// Status reports egress link state. A nil Status reports every link up.
	Status func(link.ID) link.Status
	Logger *slog.Logger
}

type route struct {
	prefix  netip.Prefix
	iface   link.ID
	gateway [4]byte
	direct  bool
}

func (cfg *Config) validate() error {
	for id, p := range cfg.Ports {
		if !p.Addr.IsValid() || !p.Addr.Addr().Is4() || p.Addr.Bits() == 0 {
			return fmt.Errorf("router: port %s address %v: %w", link.ID(id), p.Addr, lgate.ErrInvalidAddr)
		}
	}
	eth := cfg.Ports[link.Ethernet].HardwareAddr
	if eth == [6]byte{} || ethernet.IsMulticastAddr(&eth) {
		return fmt.Errorf("router: ethernet hardware address: %w", lgate.ErrInvalidAddr)
	}
	radio := cfg.Ports[link.Radio]
	if radio.PAN == 0xffff || radio.Short >= 0xfffe {
		return fmt.Errorf("router: radio PAN/short address: %w", lgate.ErrInvalidAddr)
	}
	for _, rt := range cfg.Routes {
		if !rt.Prefix.IsValid() || !rt.Prefix.Addr().Is4() || int(rt.Iface) >= link.NumIDs {
			return fmt.Errorf("router: route %v: %w", rt.Prefix, lgate.ErrInvalidConfig)
		}
		if rt.Gateway.IsValid() && !cfg.Ports[rt.Iface].Addr.Contains(rt.Gateway) {
			return fmt.Errorf("router: route %v gateway %v not on-link: %w", rt.Prefix, rt.Gateway, lgate.ErrInvalidConfig)
		}
	}
	for _, nb := range cfg.Neighbors {
		if !nb.Addr.Is4() {
			return fmt.Errorf("router: neighbor %v: %w", nb.Addr, lgate.ErrInvalidAddr)
		}
	}
	return nil
}

// buildRoutes returns the connected and static routes sorted by descending
// prefix length so the first match is the longest.
func buildRoutes(dst []route, cfg *Config) []route {
	dst = dst[:0]
	for id, p := range cfg.Ports {
		dst = append(dst, route{prefix: p.Addr.Masked(), iface: link.ID(id), direct: true})
	}
	for _, rt := range cfg.Routes {
		r := route{prefix: rt.Prefix.Masked(), iface: rt.Iface, direct: !rt.Gateway.IsValid()}
		if !r.direct {
			r.gateway = rt.Gateway.As4()
		}
		dst = append(dst, r)
	}
	sort.SliceStable(dst, func(i, j int) bool {
		return dst[i].prefix.Bits() > dst[j].prefix.Bits()
	})
	return dst
}
