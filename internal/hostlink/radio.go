package hostlink

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/netip"
	"sync"

	"golang.org/x/net/ipv4"

	"github.com/soypat/lgate/ieee802154"
	"github.com/soypat/lgate/link"
)

// DefaultGroup is the multicast group carrying simulated radio frames.
var DefaultGroup = netip.MustParseAddrPort("239.0.21.54:15400")

// sizeNodeID prefixes every datagram on the medium so a node can discard its
// own transmissions looped back by the host.
const sizeNodeID = 4

// RadioConfig configures a [Radio].
type RadioConfig struct {
	Config
	// Group is the IPv4 multicast group and port of the medium. Zero uses [DefaultGroup].
	Group netip.AddrPort
	// Interface joins the group on the named host interface. Empty lets the host choose.
	Interface string
	// NodeID identifies this node on the medium. Zero picks a random identifier.
	NodeID uint32
}

// Radio is an IEEE 802.15.4 adapter over a UDP multicast group: every node
// joined to the group receives every frame, like nodes sharing a channel.
type Radio struct {
	port
	conn  *ipv4.PacketConn
	group *net.UDPAddr
	id    uint32
	mu    sync.Mutex
	txbuf [sizeNodeID + ieee802154.MaxFrameSize]byte
}

var _ link.Adapter = (*Radio)(nil)

// OpenRadio joins the multicast group of cfg.
func OpenRadio(cfg RadioConfig) (*Radio, error) {
	group := cfg.Group
	if !group.IsValid() {
		group = DefaultGroup
	}
	if !group.Addr().Is4() || !group.Addr().IsMulticast() {
		return nil, fmt.Errorf("hostlink: %s is not an IPv4 multicast group", group)
	}
	var ifi *net.Interface
	if cfg.Interface != "" {
		var err error
		ifi, err = net.InterfaceByName(cfg.Interface)
		if err != nil {
			return nil, err
		}
	}
	gaddr := net.UDPAddrFromAddrPort(group)
	c, err := net.ListenMulticastUDP("udp4", ifi, gaddr)
	if err != nil {
		return nil, fmt.Errorf("hostlink: join %s: %w", group, err)
	}
	conn := ipv4.NewPacketConn(c)
	for _, set := range []func() error{
		func() error { return conn.SetMulticastLoopback(true) },
		func() error { return conn.SetMulticastTTL(1) },
		func() error {
			if ifi == nil {
				return nil
			}
			return conn.SetMulticastInterface(ifi)
		},
	} {
		if err := set(); err != nil {
			c.Close()
			return nil, fmt.Errorf("hostlink: configure %s: %w", group, err)
		}
	}
	r := &Radio{conn: conn, group: gaddr, id: cfg.NodeID}
	if r.id == 0 {
		r.id = rand.Uint32() | 1
	}
	if err := r.reset(cfg.Config); err != nil {
		c.Close()
		return nil, err
	}
	return r, nil
}

// NodeID returns the identifier prefixed to frames sent by r.
func (r *Radio) NodeID() uint32 { return r.id }

// Run receives frames from the medium until ctx is done or r is closed.
// Frames sent by this node are ignored.
func (r *Radio) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		r.conn.Close()
	}()
	return r.readLoop(ctx, r.group.String(), r.readFrame)
}

func (r *Radio) readFrame(dst []byte) (int, error) {
	for {
		n, _, _, err := r.conn.ReadFrom(dst)
		if err != nil {
			return 0, err
		}
		frame, from, err := decodeMedium(dst[:n])
		if err != nil || from == r.id {
			continue
		}
		return copy(dst, frame), nil
	}
}

// Transmit sends frame to every node on the medium.
func (r *Radio) Transmit(frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, err := encodeMedium(r.txbuf[:], r.id, frame)
	if err != nil {
		return link.ErrLink
	}
	_, err = r.conn.WriteTo(r.txbuf[:n], nil, r.group)
	if err != nil {
		r.debug("hostlink:tx", slog.String("dev", r.group.String()), slog.String("err", err.Error()))
		return link.ErrLink
	}
	return nil
}

// Close leaves the group.
func (r *Radio) Close() error { return r.conn.Close() }

var errMedium = errors.New("hostlink: bad medium datagram")

func encodeMedium(dst []byte, id uint32, frame []byte) (int, error) {
	if len(frame) == 0 || len(frame) > ieee802154.MaxFrameSize || len(dst) < sizeNodeID+len(frame) {
		return 0, errMedium
	}
	binary.BigEndian.PutUint32(dst, id)
	return sizeNodeID + copy(dst[sizeNodeID:], frame), nil
}

func decodeMedium(datagram []byte) (frame []byte, id uint32, err error) {
	if len(datagram) <= sizeNodeID || len(datagram) > sizeNodeID+ieee802154.MaxFrameSize {
		return nil, 0, errMedium
	}
	return datagram[sizeNodeID:], binary.BigEndian.Uint32(datagram), nil
}
