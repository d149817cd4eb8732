// Package ltesto generates well formed frames for tests.
package ltesto

import (
	"math/rand"

	"github.com/soypat/lgate"
	"github.com/soypat/lgate/arp"
	"github.com/soypat/lgate/ethernet"
	"github.com/soypat/lgate/ieee802154"
	"github.com/soypat/lgate/ipv4"
	"github.com/soypat/lgate/ipv4/icmpv4"
	"github.com/soypat/lgate/tcp"
	"github.com/soypat/lgate/udp"
)

const (
	sizeHeaderIPv4 = 20
	sizeHeaderUDP  = 8
	sizeHeaderTCP  = 20
)

// PacketGen builds frames between two endpoints. Link addresses are used by
// the Ethernet or radio encapsulation, IP addresses and ports by the packet.
type PacketGen struct {
	SrcMAC, DstMAC     [6]byte // hardware address
	PAN                uint16
	SrcShort, DstShort uint16  // radio short address
	SrcIPv4, DstIPv4   [4]byte // address
	SrcPort, DstPort   uint16  // UDP or TCP ports

	// TTL of generated packets. Zero uses [ipv4.DefaultTTL].
	TTL uint8
	ID  uint16
}

func (gen *PacketGen) RandomizeAddrs(rng *rand.Rand) {
	rng.Read(gen.SrcIPv4[:])
	rng.Read(gen.DstIPv4[:])
	ports := rng.Uint32()
	gen.SrcPort = uint16(ports)
	gen.DstPort = uint16(ports >> 16)
	gen.ID = uint16(rng.Uint32())
}

func (gen *PacketGen) ipHeader(proto lgate.IPProto) ipv4.Header {
	ttl := gen.TTL
	if ttl == 0 {
		ttl = ipv4.DefaultTTL
	}
	return ipv4.Header{
		ID:       gen.ID,
		Flags:    ipv4.FlagDontFragment,
		TTL:      ttl,
		Protocol: proto,
		Src:      gen.SrcIPv4,
		Dst:      gen.DstIPv4,
	}
}

// AppendUDP appends an IPv4 packet carrying a UDP datagram with a valid checksum.
func (gen *PacketGen) AppendUDP(dst, payload []byte) []byte {
	off := len(dst)
	dst = append(dst, make([]byte, sizeHeaderIPv4+sizeHeaderUDP+len(payload))...)
	pkt := dst[off:]
	must(udp.Header{Src: gen.SrcPort, Dst: gen.DstPort}.Put(pkt[sizeHeaderIPv4:], payload))
	must(gen.ipHeader(lgate.IPProtoUDP).Put(pkt, pkt[sizeHeaderIPv4:]))
	ifrm, _ := ipv4.NewFrame(pkt)
	ufrm, _ := udp.NewFrame(ifrm.Payload())
	ufrm.SetCRC(ufrm.CalculateIPv4Checksum(ifrm))
	return dst
}

// AppendTCP appends an IPv4 packet carrying a TCP segment with random sequence
// numbers, an MSS option on SYN segments, datalen random bytes and a valid checksum.
func (gen *PacketGen) AppendTCP(dst []byte, rng *rand.Rand, flags tcp.Flags, datalen int) []byte {
	var opts []byte
	if flags.HasAny(tcp.FlagSYN) {
		opts = make([]byte, 4)
		must(tcp.PutOption16(opts, tcp.OptMaxSegmentSize, 1460))
	}
	hdr := tcp.Header{
		Src:     gen.SrcPort,
		Dst:     gen.DstPort,
		Seq:     rng.Uint32(),
		Ack:     rng.Uint32(),
		Flags:   flags,
		Window:  uint16(rng.Uint32()),
		Urgent:  uint16(rng.Uint32()),
		Options: opts,
	}
	off := len(dst)
	dst = append(dst, make([]byte, sizeHeaderIPv4+hdr.Len()+datalen)...)
	pkt := dst[off:]
	rng.Read(pkt[sizeHeaderIPv4+hdr.Len():])
	must(hdr.Put(pkt[sizeHeaderIPv4:], pkt[sizeHeaderIPv4+hdr.Len():]))
	must(gen.ipHeader(lgate.IPProtoTCP).Put(pkt, pkt[sizeHeaderIPv4:]))
	ifrm, _ := ipv4.NewFrame(pkt)
	tfrm, _ := tcp.NewFrame(ifrm.Payload())
	tfrm.SetCRC(tfrm.CalculateIPv4Checksum(ifrm))
	return dst
}

// AppendEcho appends an IPv4 packet carrying an ICMP echo request.
func (gen *PacketGen) AppendEcho(dst []byte, id, seq uint16, data []byte) []byte {
	off := len(dst)
	dst = append(dst, make([]byte, sizeHeaderIPv4+8+len(data))...)
	pkt := dst[off:]
	must(icmpv4.Header{Type: icmpv4.TypeEcho, ID: id, Seq: seq}.Put(pkt[sizeHeaderIPv4:], data))
	must(gen.ipHeader(lgate.IPProtoICMP).Put(pkt, pkt[sizeHeaderIPv4:]))
	return dst
}

// AppendEthernet appends an Ethernet frame from SrcMAC to DstMAC carrying pkt.
func (gen *PacketGen) AppendEthernet(dst []byte, etype ethernet.Type, pkt []byte) []byte {
	hdr := ethernet.Header{Destination: gen.DstMAC, Source: gen.SrcMAC, Type: etype}
	off := len(dst)
	dst = append(dst, make([]byte, hdr.Len()+len(pkt))...)
	must(hdr.Put(dst[off:], pkt))
	return dst
}

// AppendRadio appends an 802.15.4 data frame from SrcShort to DstShort within PAN carrying pkt
// after the network dispatch. The frame check sequence is not included.
func (gen *PacketGen) AppendRadio(dst []byte, etype ethernet.Type, seq uint8, pkt []byte) []byte {
	hdr := ieee802154.Header{
		Type:    ieee802154.FrameData,
		Version: 1,
		Seq:     seq,
		DstPAN:  gen.PAN,
		Dst:     ieee802154.ShortAddr(gen.DstShort),
		SrcPAN:  gen.PAN,
		Src:     ieee802154.ShortAddr(gen.SrcShort),
	}
	hl := hdr.Len()
	off := len(dst)
	dst = append(dst, make([]byte, hl+ieee802154.SizeDispatch+len(pkt))...)
	frame := dst[off:]
	copy(frame[hl+ieee802154.SizeDispatch:], pkt)
	ieee802154.PutNetworkType(frame[hl:], etype)
	must(hdr.Put(frame, frame[hl:]))
	return dst
}

// AppendARPRequest appends an ARP request from the source endpoint asking for DstIPv4.
func (gen *PacketGen) AppendARPRequest(dst []byte) []byte {
	return gen.appendARP(dst, arp.Header{
		Op:       arp.OpRequest,
		SenderHW: gen.SrcMAC,
		SenderIP: gen.SrcIPv4,
		TargetIP: gen.DstIPv4,
	})
}

// AppendARPReply appends an ARP reply announcing SrcIPv4 at SrcMAC to the destination endpoint.
func (gen *PacketGen) AppendARPReply(dst []byte) []byte {
	return gen.appendARP(dst, arp.Header{
		Op:       arp.OpReply,
		SenderHW: gen.SrcMAC,
		SenderIP: gen.SrcIPv4,
		TargetHW: gen.DstMAC,
		TargetIP: gen.DstIPv4,
	})
}

func (gen *PacketGen) appendARP(dst []byte, hdr arp.Header) []byte {
	off := len(dst)
	dst = append(dst, make([]byte, hdr.Len())...)
	must(hdr.Put(dst[off:], nil))
	return dst
}

func must(_ int, err error) {
	if err != nil {
		panic(err)
	}
}
