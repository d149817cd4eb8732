package router

import (
	"bytes"
	"errors"
	"math/rand"
	"net/netip"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/soypat/lgate"
	"github.com/soypat/lgate/arp"
	"github.com/soypat/lgate/ethernet"
	"github.com/soypat/lgate/ieee802154"
	"github.com/soypat/lgate/internal/ltesto"
	"github.com/soypat/lgate/ipv4"
	"github.com/soypat/lgate/ipv4/icmpv4"
	"github.com/soypat/lgate/link"
	"github.com/soypat/lgate/pktbuf"
	"github.com/soypat/lgate/tcp"
	"github.com/soypat/lgate/udp"
)

const (
	testPAN     = 0xbeef
	gwShort     = 0x0001
	radioShort  = 0x0005
	nbShort     = 0x0042
	testEchoUDP = 1337
)

var (
	gwHW        = [6]byte{0x02, 0, 0, 0, 0, 0x01}
	gwEthIP     = [4]byte{192, 168, 1, 1}
	gwRadioIP   = [4]byte{10, 0, 0, 1}
	hostHW      = [6]byte{0xc0, 0xff, 0xee, 0, 0, 0x02}
	hostIP      = [4]byte{192, 168, 1, 2}
	radioHostIP = [4]byte{10, 0, 0, 5}
	nbIP        = [4]byte{10, 0, 0, 9}
	upstreamIP  = [4]byte{192, 168, 1, 254}
)

type fixture struct {
	rt     Router
	cache  arp.Cache
	pool   pktbuf.Pool
	status [link.NumIDs]link.Status
}

func testConfig() Config {
	var cfg Config
	cfg.Ports[link.Ethernet] = Port{
		Addr:         netip.PrefixFrom(netip.AddrFrom4(gwEthIP), 24),
		HardwareAddr: gwHW,
	}
	cfg.Ports[link.Radio] = Port{
		Addr:  netip.PrefixFrom(netip.AddrFrom4(gwRadioIP), 24),
		PAN:   testPAN,
		Short: gwShort,
	}
	cfg.Routes = []Route{
		{Prefix: netip.MustParsePrefix("172.16.0.0/12"), Iface: link.Ethernet, Gateway: netip.AddrFrom4(upstreamIP)},
	}
	cfg.Neighbors = []Neighbor{{Addr: netip.AddrFrom4(nbIP), Short: nbShort}}
	cfg.EchoPort = testEchoUDP
	return cfg
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	f := &fixture{status: [link.NumIDs]link.Status{link.Up, link.Up}}
	cfg.Status = func(id link.ID) link.Status { return f.status[id] }
	if err := f.rt.Reset(cfg); err != nil {
		t.Fatal(err)
	}
	if err := f.cache.Reset(arp.CacheConfig{Size: 8, MaxAge: time.Minute}); err != nil {
		t.Fatal(err)
	}
	if err := f.pool.Reset(pktbuf.Config{Buffers: 8, Size: 256, Headroom: 32}); err != nil {
		t.Fatal(err)
	}
	return f
}

// load copies frame into a fresh buffer as a link adapter would.
func (f *fixture) load(t *testing.T, frame []byte) *pktbuf.Buffer {
	t.Helper()
	h, err := f.pool.Acquire(1)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.pool.Release(&h) })
	buf := f.pool.Buffer(h)
	n := copy(buf.ReceiveWindow(), frame)
	if n != len(frame) {
		t.Fatalf("frame of %d bytes does not fit buffer", len(frame))
	}
	if err := buf.Commit(n); err != nil {
		t.Fatal(err)
	}
	return buf
}

func ethGen(dst [4]byte) ltesto.PacketGen {
	return ltesto.PacketGen{
		SrcMAC:  hostHW,
		DstMAC:  gwHW,
		SrcIPv4: hostIP,
		DstIPv4: dst,
		SrcPort: 4000,
		DstPort: 5000,
		ID:      0x1234,
	}
}

func radioGen(dst [4]byte) ltesto.PacketGen {
	return ltesto.PacketGen{
		PAN:      testPAN,
		SrcShort: radioShort,
		DstShort: gwShort,
		SrcIPv4:  radioHostIP,
		DstIPv4:  dst,
		SrcPort:  6000,
		DstPort:  7000,
		ID:       0x4321,
	}
}

func TestForwardEthernetToRadio(t *testing.T) {
	f := newFixture(t, testConfig())
	gen := ethGen(radioHostIP)
	pkt := gen.AppendUDP(nil, []byte("hello radio"))
	buf := f.load(t, gen.AppendEthernet(nil, ethernet.TypeIPv4, pkt))

	d := f.rt.Route(link.Ethernet, buf, &f.cache)
	if d != (Decision{Action: ActionForward, Iface: link.Radio}) {
		t.Fatalf("unexpected decision %+v", d)
	}
	rfrm, err := ieee802154.Parse(buf.Frame())
	if err != nil {
		t.Fatal(err)
	}
	hdr := rfrm.Header()
	if hdr.Type != ieee802154.FrameData || hdr.DstPAN != testPAN ||
		hdr.Dst != ieee802154.ShortAddr(radioShort) || hdr.Src != ieee802154.ShortAddr(gwShort) {
		t.Fatalf("unexpected radio header %+v", hdr)
	}
	et, ipb, err := ieee802154.NetworkType(rfrm.Payload())
	if err != nil || et != ethernet.TypeIPv4 {
		t.Fatalf("bad dispatch %v %v", et, err)
	}
	ifrm, err := ipv4.Parse(ipb)
	if err != nil {
		t.Fatal("forwarded header checksum invalid:", err)
	}
	if ifrm.TTL() != ipv4.DefaultTTL-1 {
		t.Errorf("want TTL %d, got %d", ipv4.DefaultTTL-1, ifrm.TTL())
	}
	if !bytes.Equal(ifrm.Payload(), pkt[20:]) {
		t.Error("UDP datagram modified while forwarding")
	}
}

func TestForwardRadioToEthernet(t *testing.T) {
	f := newFixture(t, testConfig())
	gen := radioGen(hostIP)
	rng := rand.New(rand.NewSource(1))
	pkt := gen.AppendTCP(nil, rng, tcp.FlagSYN, 16)
	frame := gen.AppendRadio(nil, ethernet.TypeIPv4, 7, pkt)

	// Unresolved next hop turns the buffer into an ARP request.
	buf := f.load(t, frame)
	d := f.rt.Route(link.Radio, buf, &f.cache)
	if d != (Decision{Action: ActionResolve, Iface: link.Ethernet, Reason: lgate.DropUnresolved}) {
		t.Fatalf("unexpected decision %+v", d)
	}
	efrm, err := ethernet.Parse(buf.Frame())
	if err != nil {
		t.Fatal(err)
	}
	if !efrm.IsBroadcast() || efrm.EtherType() != ethernet.TypeARP || *efrm.SourceHardwareAddr() != gwHW {
		t.Fatalf("bad ARP request link header %+v", efrm.Header())
	}
	afrm, err := arp.Parse(efrm.Payload())
	if err != nil {
		t.Fatal(err)
	}
	want := arp.Header{Op: arp.OpRequest, SenderHW: gwHW, SenderIP: gwEthIP, TargetIP: hostIP}
	if got := afrm.Header(); got != want {
		t.Fatalf("want request %+v, got %+v", want, got)
	}

	// Resolved next hop gets an Ethernet header in front of the packet.
	f.cache.Confirm(hostIP, hostHW, time.Unix(0, 0))
	buf = f.load(t, frame)
	d = f.rt.Route(link.Radio, buf, &f.cache)
	if d != (Decision{Action: ActionForward, Iface: link.Ethernet}) {
		t.Fatalf("unexpected decision %+v", d)
	}
	p := gopacket.NewPacket(buf.Frame(), layers.LayerTypeEthernet, gopacket.Default)
	eth, _ := p.Layer(layers.LayerTypeEthernet).(*layers.Ethernet)
	ip, _ := p.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	tcpl, _ := p.Layer(layers.LayerTypeTCP).(*layers.TCP)
	if eth == nil || ip == nil || tcpl == nil {
		t.Fatal("gopacket failed to decode forwarded frame", p.ErrorLayer())
	}
	if !bytes.Equal(eth.DstMAC, hostHW[:]) || !bytes.Equal(eth.SrcMAC, gwHW[:]) {
		t.Errorf("bad link addresses %s -> %s", eth.SrcMAC, eth.DstMAC)
	}
	if ip.TTL != ipv4.DefaultTTL-1 || !tcpl.SYN {
		t.Errorf("unexpected packet ttl=%d syn=%v", ip.TTL, tcpl.SYN)
	}
	ifrm, err := ipv4.Parse(buf.Frame()[14:])
	if err != nil {
		t.Fatal(err)
	}
	tfrm, err := tcp.Parse(ifrm.Payload())
	if err != nil {
		t.Fatal(err)
	}
	if tfrm.CalculateIPv4Checksum(ifrm) != tfrm.CRC() {
		t.Error("TCP checksum invalid after forwarding")
	}
}

func TestRouteViaGateway(t *testing.T) {
	cfg := testConfig()
	// Shorter prefix than the radio port's connected route.
	cfg.Routes = append(cfg.Routes, Route{Prefix: netip.MustParsePrefix("10.0.0.0/8"), Iface: link.Ethernet, Gateway: netip.AddrFrom4(upstreamIP)})
	f := newFixture(t, cfg)
	for _, tc := range []struct {
		dst    [4]byte
		target [4]byte
	}{
		{dst: [4]byte{172, 16, 5, 5}, target: upstreamIP},
		{dst: [4]byte{10, 1, 2, 3}, target: upstreamIP},
	} {
		gen := radioGen(tc.dst)
		buf := f.load(t, gen.AppendRadio(nil, ethernet.TypeIPv4, 1, gen.AppendUDP(nil, nil)))
		d := f.rt.Route(link.Radio, buf, &f.cache)
		if d.Action != ActionResolve {
			t.Fatalf("%v: want resolve, got %+v", tc.dst, d)
		}
		afrm, err := arp.Parse(buf.Frame()[14:])
		if err != nil {
			t.Fatal(err)
		}
		if _, tip := afrm.Target4(); *tip != tc.target {
			t.Errorf("%v: want next hop %v, got %v", tc.dst, tc.target, *tip)
		}
	}

	// Connected radio prefix is longer than 10.0.0.0/8 and wins.
	gen := ethGen(nbIP)
	buf := f.load(t, gen.AppendEthernet(nil, ethernet.TypeIPv4, gen.AppendUDP(nil, nil)))
	d := f.rt.Route(link.Ethernet, buf, &f.cache)
	if d != (Decision{Action: ActionForward, Iface: link.Radio}) {
		t.Fatalf("unexpected decision %+v", d)
	}
	rfrm, err := ieee802154.Parse(buf.Frame())
	if err != nil {
		t.Fatal(err)
	}
	if rfrm.Destination() != ieee802154.ShortAddr(nbShort) {
		t.Errorf("neighbor table not used, got %+v", rfrm.Destination())
	}
}

func TestRouteDrops(t *testing.T) {
	for _, tc := range []struct {
		name   string
		in     link.ID
		want   lgate.DropReason
		frame  func() []byte
		modify func(f *fixture)
	}{
		{name: "ttl one", in: link.Ethernet, want: lgate.DropExpired, frame: func() []byte {
			gen := ethGen(radioHostIP)
			gen.TTL = 1
			return gen.AppendEthernet(nil, ethernet.TypeIPv4, gen.AppendUDP(nil, nil))
		}},
		{name: "no route", in: link.Ethernet, want: lgate.DropNoRoute, frame: func() []byte {
			gen := ethGen([4]byte{8, 8, 8, 8})
			return gen.AppendEthernet(nil, ethernet.TypeIPv4, gen.AppendUDP(nil, nil))
		}},
		{name: "link down", in: link.Ethernet, want: lgate.DropLinkDown, frame: func() []byte {
			gen := ethGen(radioHostIP)
			return gen.AppendEthernet(nil, ethernet.TypeIPv4, gen.AppendUDP(nil, nil))
		}, modify: func(f *fixture) { f.status[link.Radio] = link.Down }},
		{name: "hairpin", in: link.Ethernet, want: lgate.DropFiltered, frame: func() []byte {
			gen := ethGen([4]byte{192, 168, 1, 3})
			return gen.AppendEthernet(nil, ethernet.TypeIPv4, gen.AppendUDP(nil, nil))
		}},
		{name: "foreign hardware address", in: link.Ethernet, want: lgate.DropFiltered, frame: func() []byte {
			gen := ethGen(radioHostIP)
			gen.DstMAC = [6]byte{0x02, 1, 2, 3, 4, 5}
			return gen.AppendEthernet(nil, ethernet.TypeIPv4, gen.AppendUDP(nil, nil))
		}},
		{name: "multicast address", in: link.Ethernet, want: lgate.DropFiltered, frame: func() []byte {
			gen := ethGen([4]byte{224, 0, 0, 5})
			return gen.AppendEthernet(nil, ethernet.TypeIPv4, gen.AppendUDP(nil, nil))
		}},
		{name: "short frame", in: link.Ethernet, want: lgate.DropMalformed, frame: func() []byte {
			gen := ethGen(radioHostIP)
			return gen.AppendEthernet(nil, ethernet.TypeIPv4, gen.AppendUDP(nil, nil))[:10]
		}},
		{name: "bad header checksum", in: link.Ethernet, want: lgate.DropMalformed, frame: func() []byte {
			gen := ethGen(radioHostIP)
			frame := gen.AppendEthernet(nil, ethernet.TypeIPv4, gen.AppendUDP(nil, nil))
			frame[14+5] ^= 0xff // identification.
			return frame
		}},
		{name: "exceeds radio frame", in: link.Ethernet, want: lgate.DropCapacity, frame: func() []byte {
			gen := ethGen(radioHostIP)
			return gen.AppendEthernet(nil, ethernet.TypeIPv4, gen.AppendUDP(nil, make([]byte, 100)))
		}},
		{name: "other PAN", in: link.Radio, want: lgate.DropFiltered, frame: func() []byte {
			gen := radioGen(hostIP)
			gen.PAN = 0x1234
			return gen.AppendRadio(nil, ethernet.TypeIPv4, 1, gen.AppendUDP(nil, nil))
		}},
		{name: "unknown dispatch", in: link.Radio, want: lgate.DropFiltered, frame: func() []byte {
			gen := radioGen(hostIP)
			return gen.AppendRadio(nil, ethernet.TypeIPv6, 1, nil)
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, testConfig())
			if tc.modify != nil {
				tc.modify(f)
			}
			frame := tc.frame()
			buf := f.load(t, frame)
			d := f.rt.Route(tc.in, buf, &f.cache)
			if d != drop(tc.want) {
				t.Fatalf("want drop %v, got %+v", tc.want, d)
			}
		})
	}
}

func TestRouteLocal(t *testing.T) {
	f := newFixture(t, testConfig())
	for _, dst := range [][4]byte{gwEthIP, gwRadioIP, {192, 168, 1, 255}, {255, 255, 255, 255}} {
		gen := ethGen(dst)
		buf := f.load(t, gen.AppendEthernet(nil, ethernet.TypeIPv4, gen.AppendUDP(nil, nil)))
		if d := f.rt.Route(link.Ethernet, buf, &f.cache); d.Action != ActionLocal {
			t.Errorf("%v: want local, got %+v", dst, d)
		}
	}
	// Link broadcast carrying IPv4 is never forwarded.
	gen := ethGen(radioHostIP)
	gen.DstMAC = ethernet.BroadcastAddr()
	buf := f.load(t, gen.AppendEthernet(nil, ethernet.TypeIPv4, gen.AppendUDP(nil, nil)))
	if d := f.rt.Route(link.Ethernet, buf, &f.cache); d.Action != ActionLocal {
		t.Errorf("link broadcast: want local, got %+v", d)
	}
}

func TestRouteARPReply(t *testing.T) {
	f := newFixture(t, testConfig())
	gen := ethGen(gwEthIP)
	gen.DstMAC = ethernet.BroadcastAddr()
	buf := f.load(t, gen.AppendEthernet(nil, ethernet.TypeARP, gen.AppendARPRequest(nil)))
	d := f.rt.Route(link.Ethernet, buf, &f.cache)
	if d != (Decision{Action: ActionReply, Iface: link.Ethernet}) {
		t.Fatalf("unexpected decision %+v", d)
	}
	efrm, _ := ethernet.Parse(buf.Frame())
	if *efrm.DestinationHardwareAddr() != hostHW || *efrm.SourceHardwareAddr() != gwHW {
		t.Errorf("bad reply link addresses %+v", efrm.Header())
	}
	afrm, err := arp.Parse(efrm.Payload())
	if err != nil {
		t.Fatal(err)
	}
	want := arp.Header{Op: arp.OpReply, SenderHW: gwHW, SenderIP: gwEthIP, TargetHW: hostHW, TargetIP: hostIP}
	if got := afrm.Header(); got != want {
		t.Fatalf("want reply %+v, got %+v", want, got)
	}

	gen = ethGen(hostIP)
	buf = f.load(t, gen.AppendEthernet(nil, ethernet.TypeARP, gen.AppendARPReply(nil)))
	if d := f.rt.Route(link.Ethernet, buf, &f.cache); d.Action != ActionLocal {
		t.Errorf("ARP reply: want local, got %+v", d)
	}
}

func TestDeliverEcho(t *testing.T) {
	f := newFixture(t, testConfig())
	t.Run("icmp ethernet", func(t *testing.T) {
		gen := ethGen(gwEthIP)
		buf := f.load(t, gen.AppendEthernet(nil, ethernet.TypeIPv4, gen.AppendEcho(nil, 0xabcd, 3, []byte("ping"))))
		if d := f.rt.Route(link.Ethernet, buf, &f.cache); d.Action != ActionLocal {
			t.Fatalf("want local, got %+v", d)
		}
		d := f.rt.Deliver(link.Ethernet, buf)
		if d != (Decision{Action: ActionReply, Iface: link.Ethernet}) {
			t.Fatalf("unexpected decision %+v", d)
		}
		efrm, _ := ethernet.Parse(buf.Frame())
		if *efrm.DestinationHardwareAddr() != hostHW || *efrm.SourceHardwareAddr() != gwHW {
			t.Errorf("bad reply link addresses %+v", efrm.Header())
		}
		ifrm := mustIPv4(t, efrm.Payload())
		if *ifrm.SourceAddr() != gwEthIP || *ifrm.DestinationAddr() != hostIP {
			t.Errorf("bad reply addresses %v -> %v", *ifrm.SourceAddr(), *ifrm.DestinationAddr())
		}
		cfrm, err := icmpv4.Parse(ifrm.Payload())
		if err != nil {
			t.Fatal(err)
		}
		echo := cfrm.Echo()
		if cfrm.Type() != icmpv4.TypeEchoReply || echo.Identifier() != 0xabcd || echo.SequenceNumber() != 3 ||
			string(echo.Data()) != "ping" {
			t.Errorf("bad echo reply type=%v id=%#x seq=%d", cfrm.Type(), echo.Identifier(), echo.SequenceNumber())
		}
	})
	t.Run("icmp radio", func(t *testing.T) {
		gen := radioGen(gwRadioIP)
		buf := f.load(t, gen.AppendRadio(nil, ethernet.TypeIPv4, 9, gen.AppendEcho(nil, 1, 1, nil)))
		d := f.rt.Deliver(link.Radio, buf)
		if d != (Decision{Action: ActionReply, Iface: link.Radio}) {
			t.Fatalf("unexpected decision %+v", d)
		}
		rfrm, err := ieee802154.Parse(buf.Frame())
		if err != nil {
			t.Fatal(err)
		}
		if rfrm.Destination() != ieee802154.ShortAddr(radioShort) || rfrm.Source() != ieee802154.ShortAddr(gwShort) {
			t.Errorf("bad reply radio addresses %+v", rfrm.Header())
		}
		_, ipb, _ := ieee802154.NetworkType(rfrm.Payload())
		ifrm := mustIPv4(t, ipb)
		if *ifrm.DestinationAddr() != radioHostIP {
			t.Errorf("reply to %v", *ifrm.DestinationAddr())
		}
	})
	t.Run("udp echo port", func(t *testing.T) {
		gen := ethGen(gwEthIP)
		gen.DstPort = testEchoUDP
		buf := f.load(t, gen.AppendEthernet(nil, ethernet.TypeIPv4, gen.AppendUDP(nil, []byte("echo me"))))
		d := f.rt.Deliver(link.Ethernet, buf)
		if d != (Decision{Action: ActionReply, Iface: link.Ethernet}) {
			t.Fatalf("unexpected decision %+v", d)
		}
		ifrm := mustIPv4(t, buf.Frame()[14:])
		ufrm, err := udp.Parse(ifrm.Payload())
		if err != nil {
			t.Fatal(err)
		}
		if ufrm.SourcePort() != testEchoUDP || ufrm.DestinationPort() != gen.SrcPort || ufrm.CRC() != 0 ||
			string(ufrm.Payload()) != "echo me" {
			t.Errorf("bad UDP echo %+v payload %q", ufrm.Header(), ufrm.Payload())
		}
	})
	t.Run("udp other port", func(t *testing.T) {
		gen := ethGen(gwEthIP)
		frame := gen.AppendEthernet(nil, ethernet.TypeIPv4, gen.AppendUDP(nil, []byte("data")))
		buf := f.load(t, frame)
		if d := f.rt.Deliver(link.Ethernet, buf); d.Action != ActionLocal {
			t.Fatalf("want local, got %+v", d)
		}
		if !bytes.Equal(buf.Frame(), frame) {
			t.Error("consumed frame modified")
		}
	})
	t.Run("udp fragment", func(t *testing.T) {
		gen := ethGen(gwEthIP)
		gen.DstPort = testEchoUDP
		frame := gen.AppendEthernet(nil, ethernet.TypeIPv4, gen.AppendUDP(nil, []byte("first fragment")))
		ifrm := mustIPv4(t, frame[14:])
		ifrm.SetFlags(ipv4.FlagMoreFragments)
		ifrm.SetCRC(ifrm.CalculateHeaderCRC())
		buf := f.load(t, frame)
		if d := f.rt.Deliver(link.Ethernet, buf); d.Action != ActionLocal {
			t.Fatalf("want local, got %+v", d)
		}
		if !bytes.Equal(buf.Frame(), frame) {
			t.Error("fragment modified")
		}
	})
}

func TestObserve(t *testing.T) {
	f := newFixture(t, testConfig())
	now := time.Unix(100, 0)
	gen := ethGen(gwEthIP)
	f.rt.Observe(link.Ethernet, gen.AppendEthernet(nil, ethernet.TypeARP, gen.AppendARPReply(nil)), &f.cache, now)
	if hw, ok := f.cache.Lookup(hostIP); !ok || hw != hostHW {
		t.Fatalf("ARP sender not learned: %x %v", hw, ok)
	}

	probe := ethGen(gwEthIP)
	probe.SrcIPv4 = [4]byte{}
	probe.SrcMAC = [6]byte{0x02, 9, 9, 9, 9, 9}
	f.rt.Observe(link.Ethernet, probe.AppendEthernet(nil, ethernet.TypeARP, probe.AppendARPRequest(nil)), &f.cache, now)
	if f.cache.Len() != 1 {
		t.Error("probe learned")
	}

	onlink := ethGen(radioHostIP)
	onlink.SrcIPv4 = [4]byte{192, 168, 1, 77}
	onlink.SrcMAC = [6]byte{0x02, 7, 7, 7, 7, 7}
	f.rt.Observe(link.Ethernet, onlink.AppendEthernet(nil, ethernet.TypeIPv4, onlink.AppendUDP(nil, nil)), &f.cache, now)
	if hw, ok := f.cache.Lookup(onlink.SrcIPv4); !ok || hw != onlink.SrcMAC {
		t.Error("on-link IPv4 source not learned")
	}

	offlink := ethGen(radioHostIP)
	offlink.SrcIPv4 = [4]byte{172, 16, 0, 1}
	f.rt.Observe(link.Ethernet, offlink.AppendEthernet(nil, ethernet.TypeIPv4, offlink.AppendUDP(nil, nil)), &f.cache, now)
	if _, ok := f.cache.Lookup(offlink.SrcIPv4); ok {
		t.Error("off-link IPv4 source learned")
	}
	f.rt.Observe(link.Ethernet, []byte{1, 2, 3}, &f.cache, now) // Ignored.
}

// TestRouteDeterministic routes random traffic twice over identical state and
// expects identical decisions and identical rewritten frames.
func TestRouteDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	f1 := newFixture(t, testConfig())
	f2 := newFixture(t, testConfig())
	now := time.Unix(0, 0)
	for _, c := range []*arp.Cache{&f1.cache, &f2.cache} {
		c.Confirm(hostIP, hostHW, now)
		c.Confirm(upstreamIP, [6]byte{0x02, 0xaa, 0, 0, 0, 1}, now)
	}
	dsts := [][4]byte{hostIP, radioHostIP, nbIP, gwEthIP, {172, 20, 1, 1}, {192, 168, 1, 200}, {8, 8, 4, 4}, {10, 0, 0, 255}}
	for i := 0; i < 500; i++ {
		var frame []byte
		in := link.ID(rng.Intn(link.NumIDs))
		dst := dsts[rng.Intn(len(dsts))]
		if in == link.Ethernet {
			gen := ethGen(dst)
			gen.TTL = uint8(rng.Intn(4))
			gen.ID = uint16(rng.Uint32())
			frame = gen.AppendEthernet(nil, ethernet.TypeIPv4, gen.AppendTCP(nil, rng, tcp.FlagACK, rng.Intn(32)))
		} else {
			gen := radioGen(dst)
			gen.TTL = uint8(rng.Intn(4))
			gen.ID = uint16(rng.Uint32())
			frame = gen.AppendRadio(nil, ethernet.TypeIPv4, uint8(i), gen.AppendUDP(nil, make([]byte, rng.Intn(48))))
		}
		b1, h1 := f1.acquire(t, frame)
		b2, h2 := f2.acquire(t, frame)
		d1 := f1.rt.Route(in, b1, &f1.cache)
		d2 := f2.rt.Route(in, b2, &f2.cache)
		if d1 != d2 {
			t.Fatalf("iteration %d: decisions differ %+v != %+v", i, d1, d2)
		}
		if d1.Action != ActionDrop && !bytes.Equal(b1.Frame(), b2.Frame()) {
			t.Fatalf("iteration %d: rewritten frames differ", i)
		}
		f1.pool.Release(&h1)
		f2.pool.Release(&h2)
	}
}

func (f *fixture) acquire(t *testing.T, frame []byte) (*pktbuf.Buffer, pktbuf.Handle) {
	t.Helper()
	h, err := f.pool.Acquire(1)
	if err != nil {
		t.Fatal(err)
	}
	buf := f.pool.Buffer(h)
	copy(buf.ReceiveWindow(), frame)
	buf.Commit(len(frame))
	return buf, h
}

func TestResetInvalid(t *testing.T) {
	for _, tc := range []struct {
		name   string
		modify func(cfg *Config)
		want   error
	}{
		{name: "missing address", want: lgate.ErrInvalidAddr, modify: func(cfg *Config) {
			cfg.Ports[link.Radio].Addr = netip.Prefix{}
		}},
		{name: "multicast hardware address", want: lgate.ErrInvalidAddr, modify: func(cfg *Config) {
			cfg.Ports[link.Ethernet].HardwareAddr = ethernet.BroadcastAddr()
		}},
		{name: "broadcast short address", want: lgate.ErrInvalidAddr, modify: func(cfg *Config) {
			cfg.Ports[link.Radio].Short = ieee802154.BroadcastShort
		}},
		{name: "gateway off-link", want: lgate.ErrInvalidConfig, modify: func(cfg *Config) {
			cfg.Routes[0].Gateway = netip.MustParseAddr("10.9.9.9")
		}},
		{name: "bad interface", want: lgate.ErrInvalidConfig, modify: func(cfg *Config) {
			cfg.Routes[0].Iface = link.NumIDs
		}},
	} {
		cfg := testConfig()
		tc.modify(&cfg)
		var r Router
		if err := r.Reset(cfg); !errors.Is(err, tc.want) {
			t.Errorf("%s: want %v, got %v", tc.name, tc.want, err)
		}
	}
}

func TestDirectedBroadcast(t *testing.T) {
	for _, tc := range []struct {
		prefix string
		want   [4]byte
	}{
		{prefix: "192.168.1.1/24", want: [4]byte{192, 168, 1, 255}},
		{prefix: "10.1.2.3/8", want: [4]byte{10, 255, 255, 255}},
		{prefix: "172.16.5.1/20", want: [4]byte{172, 16, 15, 255}},
		{prefix: "10.0.0.1/32", want: [4]byte{10, 0, 0, 1}},
	} {
		if got := directedBroadcast(netip.MustParsePrefix(tc.prefix)); got != tc.want {
			t.Errorf("%s: want %v, got %v", tc.prefix, tc.want, got)
		}
	}
}

func mustIPv4(t *testing.T, b []byte) ipv4.Frame {
	t.Helper()
	ifrm, err := ipv4.Parse(b)
	if err != nil {
		t.Fatal(err)
	}
	return ifrm
}

func FuzzRoute(f *testing.F) {
	rng := rand.New(rand.NewSource(1))
	eth := ethGen(nbIP)
	f.Add(uint8(link.Ethernet), eth.AppendEthernet(nil, ethernet.TypeIPv4, eth.AppendUDP(nil, []byte("fwd"))))
	f.Add(uint8(link.Ethernet), eth.AppendEthernet(nil, ethernet.TypeIPv4, eth.AppendTCP(nil, rng, tcp.FlagSYN, 8)))
	eth.DstMAC = ethernet.BroadcastAddr()
	f.Add(uint8(link.Ethernet), eth.AppendEthernet(nil, ethernet.TypeARP, eth.AppendARPRequest(nil)))
	echo := ethGen(gwEthIP)
	f.Add(uint8(link.Ethernet), echo.AppendEthernet(nil, ethernet.TypeIPv4, echo.AppendEcho(nil, 1, 2, []byte("ping"))))
	radio := radioGen(hostIP)
	f.Add(uint8(link.Radio), radio.AppendRadio(nil, ethernet.TypeIPv4, 7, radio.AppendUDP(nil, []byte("up"))))
	radio = radioGen(gwRadioIP)
	radio.DstPort = testEchoUDP
	f.Add(uint8(link.Radio), radio.AppendRadio(nil, ethernet.TypeIPv4, 8, radio.AppendUDP(nil, []byte("echo"))))

	f.Fuzz(func(t *testing.T, iface uint8, frame []byte) {
		const window = 256 - 32 // Fixture buffer size minus headroom.
		if len(frame) > window {
			t.Skip()
		}
		fx := newFixture(t, testConfig())
		in := link.ID(iface % link.NumIDs)
		now := time.Unix(1, 0)
		fx.cache.Confirm(hostIP, hostHW, now)
		buf := fx.load(t, frame)
		fx.rt.Observe(in, buf.Frame(), &fx.cache, now)
		d := fx.rt.Route(in, buf, &fx.cache)
		if d.Action == ActionLocal {
			d = fx.rt.Deliver(in, buf)
		}
		switch d.Action {
		case ActionDrop:
			if d.Reason == lgate.DropNone {
				t.Fatal("drop without reason")
			}
			return
		case ActionLocal:
			return
		case ActionResolve:
			if d.Iface != link.Ethernet {
				t.Fatalf("resolve on %v", d.Iface)
			}
			return
		case ActionForward, ActionReply:
		default:
			t.Fatalf("unknown action %v", d.Action)
		}
		if d.Action == ActionReply && d.Iface != in {
			t.Fatalf("reply on %v for frame received on %v", d.Iface, in)
		}
		out := buf.Frame()
		switch d.Iface {
		case link.Ethernet:
			if _, err := ethernet.Parse(out); err != nil {
				t.Fatalf("%v emits unparsable Ethernet frame: %v", d.Action, err)
			}
		case link.Radio:
			if len(out) > ieee802154.MaxFrameSize {
				t.Fatalf("%v emits %d byte radio frame", d.Action, len(out))
			}
			if _, err := ieee802154.Parse(out); err != nil {
				t.Fatalf("%v emits unparsable radio frame: %v", d.Action, err)
			}
		default:
			t.Fatalf("bad egress interface %v", d.Iface)
		}
	})
}
