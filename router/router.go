package router

import (
	"log/slog"
	"net/netip"
	"time"

	"github.com/soypat/lgate"
	"github.com/soypat/lgate/arp"
	"github.com/soypat/lgate/ethernet"
	"github.com/soypat/lgate/ieee802154"
	"github.com/soypat/lgate/internal"
	"github.com/soypat/lgate/ipv4"
	"github.com/soypat/lgate/ipv4/icmpv4"
	"github.com/soypat/lgate/link"
	"github.com/soypat/lgate/pktbuf"
	"github.com/soypat/lgate/udp"
)

const sizeEthernetHeader = 14

// Router decides the destination of frames received on either gateway port
// and rewrites their link headers in place. It holds no per-frame state:
// for a fixed configuration and ARP cache contents decisions depend only on the frame.
type Router struct {
	ports     [link.NumIDs]Port
	addrs     [link.NumIDs][4]byte
	bcast     [link.NumIDs][4]byte
	routes    []route
	neighbors []Neighbor
	echoPort  uint16
	status    func(link.ID) link.Status
	arp       arp.Handler
	logger
}

// Reset validates cfg and configures the router. Storage for the route table is reused.
func (r *Router) Reset(cfg Config) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	eth := cfg.Ports[link.Ethernet]
	err := r.arp.Reset(arp.HandlerConfig{
		HardwareAddr: eth.HardwareAddr,
		ProtocolAddr: eth.Addr.Addr().As4(),
	})
	if err != nil {
		return err
	}
	r.ports = cfg.Ports
	for id, p := range cfg.Ports {
		r.addrs[id] = p.Addr.Addr().As4()
		r.bcast[id] = directedBroadcast(p.Addr)
	}
	r.routes = buildRoutes(r.routes, &cfg)
	r.neighbors = append(r.neighbors[:0], cfg.Neighbors...)
	r.echoPort = cfg.EchoPort
	r.status = cfg.Status
	r.logger = logger{log: cfg.Logger}
	return nil
}

// ingress is the parsed link layer of a received frame.
type ingress struct {
	hdrLen int // link header length including radio dispatch.
	etype  ethernet.Type
	mcast  bool
	eth    ethernet.Frame
	radio  ieee802154.Frame
}

func (r *Router) parseLink(in link.ID, frame []byte) (ing ingress, reason lgate.DropReason) {
	switch in {
	case link.Ethernet:
		efrm, err := ethernet.Parse(frame)
		if err != nil {
			return ing, lgate.DropMalformed
		}
		if efrm.IsVLAN() {
			return ing, lgate.DropFiltered
		}
		dst := efrm.DestinationHardwareAddr()
		ing.mcast = ethernet.IsMulticastAddr(dst)
		if !ing.mcast && *dst != r.ports[link.Ethernet].HardwareAddr {
			return ing, lgate.DropFiltered
		}
		ing.eth = efrm
		ing.etype = efrm.EtherType()
		ing.hdrLen = efrm.HeaderLength()

	case link.Radio:
		frm, err := ieee802154.Parse(frame)
		if err != nil {
			return ing, lgate.DropMalformed
		}
		if frm.FrameControl().Type() != ieee802154.FrameData {
			return ing, lgate.DropFiltered
		}
		port := &r.ports[link.Radio]
		pan, dst := frm.DestinationPAN(), frm.Destination()
		ing.mcast = dst.IsBroadcast()
		if dst.Mode != ieee802154.AddrShort || (pan != port.PAN && pan != ieee802154.BroadcastPAN) ||
			(!ing.mcast && dst.Value != uint64(port.Short)) {
			return ing, lgate.DropFiltered
		}
		et, _, err := ieee802154.NetworkType(frm.Payload())
		if err != nil {
			return ing, lgate.DropMalformed
		}
		ing.radio = frm
		ing.etype = et
		ing.hdrLen = frm.HeaderLength() + ieee802154.SizeDispatch

	default:
		panic("router: bad interface")
	}
	return ing, lgate.DropNone
}

// Route decides what happens to the frame in buf received on interface in and
// rewrites the buffer accordingly. Route only reads cache. See [Decision] for
// what the caller must do with the buffer afterwards.
func (r *Router) Route(in link.ID, buf *pktbuf.Buffer, cache *arp.Cache) Decision {
	ing, reason := r.parseLink(in, buf.Frame())
	if reason != lgate.DropNone {
		r.trace("route:link", slog.String("in", in.String()), slog.String("reason", reason.String()))
		return drop(reason)
	}
	var d Decision
	switch ing.etype {
	case ethernet.TypeARP:
		d = r.routeARP(in, ing)
	case ethernet.TypeIPv4:
		d = r.routeIPv4(in, buf, ing, cache)
	default:
		d = drop(lgate.DropFiltered)
	}
	if internal.LogEnabled(r.log, internal.LevelTrace) {
		r.trace("route", slog.String("in", in.String()), slog.String("action", d.Action.String()),
			slog.String("iface", d.Iface.String()), slog.String("reason", d.Reason.String()))
	}
	return d
}

func (r *Router) routeARP(in link.ID, ing ingress) Decision {
	if in != link.Ethernet {
		return Decision{Action: ActionLocal}
	}
	afrm, err := arp.Parse(ing.eth.Payload())
	if err != nil {
		return drop(lgate.DropMalformed)
	}
	if !r.arp.IsRequestForUs(afrm) {
		return Decision{Action: ActionLocal}
	}
	r.arp.Respond(afrm)
	thw, _ := afrm.Target4()
	*ing.eth.DestinationHardwareAddr() = *thw
	*ing.eth.SourceHardwareAddr() = r.ports[link.Ethernet].HardwareAddr
	return Decision{Action: ActionReply, Iface: in}
}

func (r *Router) routeIPv4(in link.ID, buf *pktbuf.Buffer, ing ingress, cache *arp.Cache) Decision {
	ipOff := buf.Off() + ing.hdrLen
	ifrm, err := ipv4.Parse(buf.Raw()[ipOff:buf.Off()+buf.Len()])
	if err != nil {
		return drop(lgate.DropMalformed)
	}
	dst := ifrm.DestinationAddr()
	if ing.mcast || r.isLocal(dst) {
		return Decision{Action: ActionLocal}
	}
	if dst[0] >= 224 || *dst == [4]byte{} {
		return drop(lgate.DropFiltered) // Multicast, reserved and unspecified are never forwarded.
	}
	rt := r.lookup(dst)
	if rt == nil {
		r.debug("route:no-route", internal.SlogAddr4("dst", dst))
		return drop(lgate.DropNoRoute)
	}
	if rt.iface == in {
		return drop(lgate.DropFiltered)
	}
	if r.status != nil && r.status(rt.iface) != link.Up {
		return drop(lgate.DropLinkDown)
	}
	if ifrm.TTL() <= 1 {
		return drop(lgate.DropExpired)
	}
	ifrm.DecrementTTL()
	nextHop := *dst
	if !rt.direct {
		nextHop = rt.gateway
	}
	tl := int(ifrm.TotalLength())
	if err := buf.SetWindow(ipOff, ipOff+tl); err != nil {
		return drop(lgate.DropCapacity)
	}
	switch rt.iface {
	case link.Ethernet:
		return r.toEthernet(buf, nextHop, cache)
	default:
		return r.toRadio(buf, nextHop, ifrm.ID())
	}
}

// toEthernet writes the Ethernet header in front of the IP packet in the frame window
// or rewrites the whole buffer into an ARP request for nextHop on a cache miss.
func (r *Router) toEthernet(buf *pktbuf.Buffer, nextHop [4]byte, cache *arp.Cache) Decision {
	hw, ok := cache.Lookup(nextHop)
	if !ok {
		if err := r.putARPRequest(buf, nextHop); err != nil {
			return drop(lgate.DropCapacity)
		}
		r.debug("route:resolve", internal.SlogAddr4("nexthop", &nextHop))
		return Decision{Action: ActionResolve, Iface: link.Ethernet, Reason: lgate.DropUnresolved}
	}
	frame, err := buf.Reframe(0, sizeEthernetHeader)
	if err != nil {
		return drop(lgate.DropCapacity)
	}
	hdr := ethernet.Header{Destination: hw, Source: r.ports[link.Ethernet].HardwareAddr, Type: ethernet.TypeIPv4}
	if _, err := hdr.Put(frame, frame[sizeEthernetHeader:]); err != nil {
		return drop(lgate.DropCapacity)
	}
	return Decision{Action: ActionForward, Iface: link.Ethernet}
}

func (r *Router) putARPRequest(buf *pktbuf.Buffer, target [4]byte) error {
	if err := buf.SetWindow(0, sizeEthernetHeader+arp.SizeIPv4); err != nil {
		return err
	}
	frame := buf.Frame()
	if _, err := r.arp.PutRequest(frame[sizeEthernetHeader:], target); err != nil {
		return err
	}
	hdr := ethernet.Header{Destination: ethernet.BroadcastAddr(), Source: r.ports[link.Ethernet].HardwareAddr, Type: ethernet.TypeARP}
	_, err := hdr.Put(frame, frame[sizeEthernetHeader:])
	return err
}

// toRadio writes the MAC header and dispatch in front of the IP packet in the frame window.
func (r *Router) toRadio(buf *pktbuf.Buffer, nextHop [4]byte, id uint16) Decision {
	port := &r.ports[link.Radio]
	hdr := ieee802154.Header{
		Type:       ieee802154.FrameData,
		AckRequest: true,
		Version:    1,
		Seq:        dsn(id),
		DstPAN:     port.PAN,
		Dst:        ieee802154.ShortAddr(r.neighborShort(nextHop)),
		SrcPAN:     port.PAN,
		Src:        ieee802154.ShortAddr(port.Short),
	}
	return r.putRadio(buf, 0, hdr, link.Radio, ActionForward)
}

func (r *Router) putRadio(buf *pktbuf.Buffer, oldLen int, hdr ieee802154.Header, iface link.ID, action Action) Decision {
	hl := hdr.Len() + ieee802154.SizeDispatch
	if buf.Len()-oldLen+hl > ieee802154.MaxFrameSize {
		return drop(lgate.DropCapacity)
	}
	frame, err := buf.Reframe(oldLen, hl)
	if err != nil {
		return drop(lgate.DropCapacity)
	}
	ieee802154.PutNetworkType(frame[hdr.Len():], ethernet.TypeIPv4)
	if _, err := hdr.Put(frame, frame[hdr.Len():]); err != nil {
		return drop(lgate.DropCapacity)
	}
	return Decision{Action: action, Iface: iface}
}

// Observe learns address mappings from a frame received on in before it is
// routed: ARP senders other than probes, and on-link IPv4 sources of Ethernet
// frames sent from a unicast hardware address. Malformed frames are ignored.
func (r *Router) Observe(in link.ID, frame []byte, cache *arp.Cache, now time.Time) {
	if in != link.Ethernet {
		return
	}
	efrm, err := ethernet.Parse(frame)
	if err != nil || efrm.IsVLAN() {
		return
	}
	switch efrm.EtherType() {
	case ethernet.TypeARP:
		afrm, err := arp.Parse(efrm.Payload())
		if err == nil && r.arp.Learn(afrm, cache, now) {
			_, sip := afrm.Sender4()
			r.trace("observe:arp", internal.SlogAddr4("ip", sip))
		}
	case ethernet.TypeIPv4:
		ifrm, err := ipv4.Parse(efrm.Payload())
		if err != nil {
			return
		}
		src := ifrm.SourceAddr()
		if !r.ports[link.Ethernet].Addr.Contains(netip.AddrFrom4(*src)) || *src == r.addrs[link.Ethernet] {
			return
		}
		cache.Confirm(*src, *efrm.SourceHardwareAddr(), now)
	}
}

// Deliver consumes a frame routed to the gateway itself. ICMP echo requests and
// UDP datagrams to the echo port addressed to a gateway address are rewritten
// in place into their replies, which the caller transmits on in.
func (r *Router) Deliver(in link.ID, buf *pktbuf.Buffer) Decision {
	ing, reason := r.parseLink(in, buf.Frame())
	if reason != lgate.DropNone {
		return drop(reason)
	}
	if ing.etype != ethernet.TypeIPv4 {
		return Decision{Action: ActionLocal}
	}
	ipOff := buf.Off() + ing.hdrLen
	ifrm, err := ipv4.Parse(buf.Raw()[ipOff : buf.Off()+buf.Len()])
	if err != nil {
		return drop(lgate.DropMalformed)
	}
	if !r.isOwnAddr(ifrm.DestinationAddr()) || ifrm.Flags().IsFragment() {
		return Decision{Action: ActionLocal} // Fragments are not reassembled.
	}
	switch ifrm.Protocol() {
	case lgate.IPProtoICMP:
		cfrm, err := icmpv4.Parse(ifrm.Payload())
		if err != nil {
			return drop(lgate.DropMalformed)
		} else if cfrm.Type() != icmpv4.TypeEcho || cfrm.Echo().ReplyInPlace() != nil {
			return Decision{Action: ActionLocal}
		}
	case lgate.IPProtoUDP:
		ufrm, err := udp.Parse(ifrm.Payload())
		if err != nil {
			return drop(lgate.DropMalformed)
		} else if r.echoPort == 0 || ufrm.DestinationPort() != r.echoPort {
			return Decision{Action: ActionLocal}
		}
		ufrm.SwapPorts()
		ufrm.SetCRC(0)
	default:
		return Decision{Action: ActionLocal}
	}
	if err := buf.SetWindow(buf.Off(), ipOff+int(ifrm.TotalLength())); err != nil {
		return drop(lgate.DropCapacity)
	}
	r.trace("deliver:echo", slog.String("in", in.String()), internal.SlogAddr4("to", ifrm.SourceAddr()))
	ifrm.SwapAddrs()
	ifrm.SetTTL(ipv4.DefaultTTL)
	ifrm.SetCRC(ifrm.CalculateHeaderCRC())
	return r.replyLink(in, buf, ing, ifrm.ID())
}

// replyLink swaps the link addresses of a frame so it returns to its sender.
func (r *Router) replyLink(in link.ID, buf *pktbuf.Buffer, ing ingress, id uint16) Decision {
	if in == link.Ethernet {
		ing.eth.SwapAddrs()
		*ing.eth.SourceHardwareAddr() = r.ports[link.Ethernet].HardwareAddr
		return Decision{Action: ActionReply, Iface: in}
	}
	rx := ing.radio.Header()
	if rx.Src.Mode == ieee802154.AddrNone {
		return Decision{Action: ActionLocal}
	}
	port := &r.ports[link.Radio]
	hdr := ieee802154.Header{
		Type:       ieee802154.FrameData,
		AckRequest: !rx.Src.IsBroadcast(),
		Version:    rx.Version,
		Seq:        dsn(id),
		DstPAN:     rx.SrcPAN,
		Dst:        rx.Src,
		SrcPAN:     port.PAN,
		Src:        ieee802154.ShortAddr(port.Short),
	}
	return r.putRadio(buf, ing.hdrLen, hdr, in, ActionReply)
}

// isLocal reports whether dst is a gateway address, a directed broadcast of a port prefix or the limited broadcast.
func (r *Router) isLocal(dst *[4]byte) bool {
	if *dst == ipv4.BroadcastAddr() {
		return true
	}
	for id := range r.addrs {
		if *dst == r.addrs[id] || *dst == r.bcast[id] {
			return true
		}
	}
	return false
}

func (r *Router) isOwnAddr(dst *[4]byte) bool {
	for id := range r.addrs {
		if *dst == r.addrs[id] {
			return true
		}
	}
	return false
}

func (r *Router) lookup(dst *[4]byte) *route {
	addr := netip.AddrFrom4(*dst)
	for i := range r.routes {
		if r.routes[i].prefix.Contains(addr) {
			return &r.routes[i]
		}
	}
	return nil
}

// neighborShort returns the radio short address of an on-link IPv4 address.
// Addresses absent from the neighbor table map to their low 16 bits.
func (r *Router) neighborShort(ip [4]byte) uint16 {
	addr := netip.AddrFrom4(ip)
	for _, nb := range r.neighbors {
		if nb.Addr == addr {
			return nb.Short
		}
	}
	return uint16(ip[2])<<8 | uint16(ip[3])
}

// dsn derives the radio data sequence number from the IP identification so
// rewritten frames are a function of their content.
func dsn(id uint16) uint8 {
	return uint8(internal.Prand16(id | 1))
}

func directedBroadcast(p netip.Prefix) [4]byte {
	a := p.Addr().As4()
	bits := p.Bits()
	for i := range a {
		switch {
		case bits >= 8:
			bits -= 8
		default:
			a[i] |= 0xff >> bits
			bits = 0
		}
	}
	return a
}

type logger struct {
	log *slog.Logger
}

func (l logger) debug(msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, slog.LevelDebug, msg, attrs...)
}

func (l logger) trace(msg string, attrs ...slog.Attr) {
	internal.LogAttrs(l.log, internal.LevelTrace, msg, attrs...)
}
