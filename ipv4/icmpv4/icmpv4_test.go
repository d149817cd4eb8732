package icmpv4

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/soypat/lgate"
)

func TestEchoReplyInPlace(t *testing.T) {
	data := []byte("lgate ping payload!") // Odd length.
	var buf [64]byte
	n, err := Header{Type: TypeEcho, ID: 0x1234, Seq: 7}.Put(buf[:], data)
	if err != nil {
		t.Fatal(err)
	}
	frm, err := Parse(buf[:n])
	if err != nil {
		t.Fatal(err)
	}
	echo := frm.Echo()
	if err := echo.ReplyInPlace(); err != nil {
		t.Fatal(err)
	}
	if _, err := Parse(buf[:n]); err != nil {
		t.Fatalf("reply checksum invalid: %v", err)
	}
	if echo.Type() != TypeEchoReply || echo.Identifier() != 0x1234 || echo.SequenceNumber() != 7 {
		t.Errorf("unexpected reply fields type=%d id=%#x seq=%d", echo.Type(), echo.Identifier(), echo.SequenceNumber())
	}
	if !bytes.Equal(echo.Data(), data) {
		t.Error("echo data modified")
	}
	if err := echo.ReplyInPlace(); !errors.Is(err, lgate.ErrMalformed) {
		t.Errorf("replying to a reply: want malformed error, got %v", err)
	}
}

func TestParseBadChecksum(t *testing.T) {
	var buf [12]byte
	n, _ := Header{Type: TypeEcho, ID: 1, Seq: 1}.Put(buf[:], []byte{1, 2, 3, 4})
	buf[9] ^= 0xff
	_, err := Parse(buf[:n])
	if !errors.Is(err, lgate.ErrBadCRC) || !errors.Is(err, lgate.ErrMalformed) {
		t.Fatalf("want checksum error, got %v", err)
	}
	if _, err = Parse(buf[:4]); !errors.Is(err, lgate.ErrMalformed) {
		t.Fatalf("want short frame error, got %v", err)
	}
}

func TestGopacketDecodesEcho(t *testing.T) {
	var buf [32]byte
	n, err := Header{Type: TypeEcho, ID: 99, Seq: 3}.Put(buf[:], []byte{0xde, 0xad})
	if err != nil {
		t.Fatal(err)
	}
	pkt := gopacket.NewPacket(buf[:n], layers.LayerTypeICMPv4, gopacket.Default)
	icmp, ok := pkt.Layer(layers.LayerTypeICMPv4).(*layers.ICMPv4)
	if !ok {
		t.Fatal("gopacket failed to decode ICMP")
	}
	if icmp.TypeCode.Type() != layers.ICMPv4TypeEchoRequest || icmp.Id != 99 || icmp.Seq != 3 {
		t.Errorf("unexpected fields %+v", icmp)
	}
	if frm, _ := NewFrame(buf[:n]); icmp.Checksum != frm.CRC() {
		t.Errorf("checksum mismatch")
	}
}
