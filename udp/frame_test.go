package udp

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/soypat/lgate"
	"github.com/soypat/lgate/ipv4"
)

func TestHeaderPutParse(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	var buf [128]byte
	for i := 0; i < 100; i++ {
		payload := make([]byte, rng.Intn(64))
		rng.Read(payload)
		h := Header{Src: uint16(rng.Uint32()), Dst: uint16(rng.Uint32()), Checksum: uint16(rng.Uint32())}
		n, err := h.Put(buf[:], payload)
		if err != nil {
			t.Fatal(err)
		} else if n != sizeHeader+len(payload) {
			t.Fatalf("want %d bytes written, got %d", sizeHeader+len(payload), n)
		}
		// Trailing link padding is clipped off.
		ufrm, err := Parse(buf[:n+3])
		if err != nil {
			t.Fatal(err)
		}
		if got := ufrm.Header(); got != h {
			t.Fatalf("want %+v, got %+v", h, got)
		}
		if !bytes.Equal(ufrm.Payload(), payload) || len(ufrm.RawData()) != n {
			t.Fatal("payload mismatch")
		}
	}
}

func TestPutCapacity(t *testing.T) {
	var buf [10]byte
	n, err := Header{Src: 1, Dst: 2}.Put(buf[:], []byte{1, 2, 3})
	if err != lgate.ErrCapacity || n != 0 {
		t.Fatalf("want capacity error, got %d,%v", n, err)
	}
	if buf != [10]byte{} {
		t.Fatal("buffer written on capacity error")
	}
}

func TestParseMalformed(t *testing.T) {
	for _, buf := range [][]byte{
		{0, 1, 0, 2, 0},              // short.
		{0, 1, 0, 2, 0, 4, 0, 0},     // length below header size.
		{0, 1, 0, 2, 0, 12, 0, 0, 1}, // length beyond buffer.
	} {
		_, err := Parse(buf)
		if !errors.Is(err, lgate.ErrMalformed) {
			t.Errorf("%x: want malformed error, got %v", buf, err)
		}
	}
}

func TestGopacketChecksum(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for i := 0; i < 20; i++ {
		payload := make([]byte, 1+rng.Intn(40)) // Odd and even lengths.
		rng.Read(payload)
		ip := &layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolUDP,
			SrcIP:    []byte{10, 0, 0, byte(i)},
			DstIP:    []byte{10, 0, 1, 1},
		}
		ul := &layers.UDP{SrcPort: layers.UDPPort(1000 + i), DstPort: 1337}
		ul.SetNetworkLayerForChecksum(ip)
		sb := gopacket.NewSerializeBuffer()
		err := gopacket.SerializeLayers(sb, gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true},
			ip, ul, gopacket.Payload(payload))
		if err != nil {
			t.Fatal(err)
		}
		ifrm, err := ipv4.Parse(sb.Bytes())
		if err != nil {
			t.Fatal(err)
		}
		ufrm, err := Parse(ifrm.Payload())
		if err != nil {
			t.Fatal(err)
		}
		if got := ufrm.CalculateIPv4Checksum(ifrm); got != ufrm.CRC() {
			t.Errorf("checksum mismatch: gopacket %#x, calculated %#x", ufrm.CRC(), got)
		}
		if ufrm.DestinationPort() != 1337 || !bytes.Equal(ufrm.Payload(), payload) {
			t.Error("field mismatch")
		}
	}
}

func TestSwapPorts(t *testing.T) {
	var buf [sizeHeader]byte
	Header{Src: 5000, Dst: 1337}.Put(buf[:], nil)
	ufrm, _ := Parse(buf[:])
	ufrm.SwapPorts()
	if ufrm.SourcePort() != 1337 || ufrm.DestinationPort() != 5000 {
		t.Fatalf("ports not swapped: %d->%d", ufrm.SourcePort(), ufrm.DestinationPort())
	}
}
