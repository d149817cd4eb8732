package ipv4

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/soypat/lgate"
)

// NewFrame returns a new IPv4 Frame with data set to buf.
// An error is returned if the buffer size is smaller than 20.
// Users should still call [Frame.ValidateSize] before working
// with payload/options of frames to avoid panics, or use [Parse].
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeader {
		return Frame{buf: nil}, errShort
	}
	return Frame{buf: buf}, nil
}

// Parse returns a validated view of the IPv4 packet in buf. Version, IHL,
// total length and header checksum are verified. The returned frame's buffer
// is clipped to the total length, removing link layer padding.
func Parse(buf []byte) (Frame, error) {
	ifrm, err := NewFrame(buf)
	if err != nil {
		return ifrm, err
	}
	var vld lgate.Validator
	ifrm.ValidateExceptCRC(&vld)
	if vld.HasError() {
		return Frame{}, vld.Err()
	}
	if ifrm.CalculateHeaderCRC() != ifrm.CRC() {
		return Frame{}, errBadCRC
	}
	return Frame{buf: buf[:ifrm.TotalLength()]}, nil
}

// Frame encapsulates the raw data of an IPv4 packet
// and provides methods for manipulating, validating and
// retreiving fields and payload data. See [RFC791].
//
// [RFC791]: https://tools.ietf.org/html/rfc791
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice with which the frame was created.
func (ifrm Frame) RawData() []byte { return ifrm.buf }

// HeaderLength returns the length of the IPv4 header as calculated using IHL. It includes IP options.
func (ifrm Frame) HeaderLength() int {
	return int(ifrm.ihl()) * 4
}

func (ifrm Frame) ihl() uint8     { return ifrm.buf[0] & 0xf }
func (ifrm Frame) version() uint8 { return ifrm.buf[0] >> 4 }

// VersionAndIHL returns the version and IHL fields in the IPv4 header. Version should always be 4.
func (ifrm Frame) VersionAndIHL() (version, IHL uint8) {
	v := ifrm.buf[0]
	return v >> 4, v & 0xf
}

// SetVersionAndIHL sets the version and IHL fields in the IPv4 header. Version should always be 4.
func (ifrm Frame) SetVersionAndIHL(version, IHL uint8) { ifrm.buf[0] = version<<4 | IHL&0xf }

// ToS (Type of Service) contains Differential Services Code Point (DSCP) and
// Explicit Congestion Notification (ECN) union data. See [ToS].
func (ifrm Frame) ToS() ToS {
	return ToS(ifrm.buf[1])
}

// SetToS sets ToS field. See [Frame.ToS].
func (ifrm Frame) SetToS(tos ToS) { ifrm.buf[1] = byte(tos) }

// TotalLength defines the entire packet size in bytes, including IP header and data.
// The minimum size is 20 bytes (IPv4 header without data) and the maximum is 65,535 bytes.
func (ifrm Frame) TotalLength() uint16 {
	return binary.BigEndian.Uint16(ifrm.buf[2:4])
}

// SetTotalLength sets TotalLength field. See [Frame.TotalLength].
func (ifrm Frame) SetTotalLength(tl uint16) { binary.BigEndian.PutUint16(ifrm.buf[2:4], tl) }

// ID is an identification field and is primarily used for uniquely
// identifying the group of fragments of a single IP datagram.
func (ifrm Frame) ID() uint16 {
	return binary.BigEndian.Uint16(ifrm.buf[4:6])
}

// SetID sets ID field. See [Frame.ID].
func (ifrm Frame) SetID(id uint16) { binary.BigEndian.PutUint16(ifrm.buf[4:6], id) }

// Flags returns the [Flags] of the IP packet.
func (ifrm Frame) Flags() Flags {
	return Flags(binary.BigEndian.Uint16(ifrm.buf[6:8]))
}

// SetFlags sets the IPv4 flags field. See [Flags].
func (ifrm Frame) SetFlags(flags Flags) {
	binary.BigEndian.PutUint16(ifrm.buf[6:8], uint16(flags))
}

// TTL is an eight-bit time to live field limits a datagram's lifetime to prevent
// network failure in the event of a routing loop. Routers decrement it by one on
// every hop and discard the packet instead of forwarding it when it would reach zero.
func (ifrm Frame) TTL() uint8 { return ifrm.buf[8] }

// SetTTL sets the IP frame's TTL field. See [Frame.TTL].
func (ifrm Frame) SetTTL(ttl uint8) { ifrm.buf[8] = ttl }

// DecrementTTL decrements the TTL by one and updates the header checksum
// incrementally (RFC 1624) without summing the header again. It returns the new TTL.
// DecrementTTL panics if the TTL is zero.
func (ifrm Frame) DecrementTTL() uint8 {
	ttl := ifrm.TTL()
	if ttl == 0 {
		panic("ipv4: decrement of zero TTL")
	}
	oldWord := binary.BigEndian.Uint16(ifrm.buf[8:10])
	ifrm.SetTTL(ttl - 1)
	newWord := binary.BigEndian.Uint16(ifrm.buf[8:10])
	ifrm.SetCRC(lgate.UpdateChecksum16(ifrm.CRC(), oldWord, newWord))
	return ttl - 1
}

// Protocol field defines the protocol used in the data portion of the IP datagram. TCP is 6, UDP is 17.
// See [lgate.IPProto].
func (ifrm Frame) Protocol() lgate.IPProto { return lgate.IPProto(ifrm.buf[9]) }

// SetProtocol sets protocol field. See [Frame.Protocol] and [lgate.IPProto].
func (ifrm Frame) SetProtocol(proto lgate.IPProto) { ifrm.buf[9] = uint8(proto) }

// CRC returns the cyclic-redundancy-check (checksum) field of the IPv4 header.
func (ifrm Frame) CRC() uint16 {
	return binary.BigEndian.Uint16(ifrm.buf[10:12])
}

// SetCRC sets the CRC field of the IP packet. See [Frame.CRC].
func (ifrm Frame) SetCRC(cs uint16) {
	binary.BigEndian.PutUint16(ifrm.buf[10:12], cs)
}

// CalculateHeaderCRC calculates the CRC for this IPv4 frame's header including options.
// The checksum field is treated as zero.
func (ifrm Frame) CalculateHeaderCRC() uint16 {
	var crc lgate.CRC791
	crc.WriteEven(ifrm.buf[0:10])
	crc.WriteEven(ifrm.buf[12:ifrm.HeaderLength()])
	return crc.Sum16()
}

// CRCWritePseudo writes the IPv4 pseudo header used by UDP and TCP checksums
// (source, destination, protocol and transport length) to crc.
func (ifrm Frame) CRCWritePseudo(crc *lgate.CRC791) {
	crc.WriteEven(ifrm.SourceAddr()[:])
	crc.WriteEven(ifrm.DestinationAddr()[:])
	crc.AddUint16(uint16(ifrm.Protocol()))
	crc.AddUint16(ifrm.TotalLength() - 4*uint16(ifrm.ihl()))
}

// SourceAddr returns pointer to the source IPv4 address in the IP header.
func (ifrm Frame) SourceAddr() *[4]byte {
	return (*[4]byte)(ifrm.buf[12:16])
}

// DestinationAddr returns pointer to the destination IPv4 address in the IP header.
func (ifrm Frame) DestinationAddr() *[4]byte {
	return (*[4]byte)(ifrm.buf[16:20])
}

// SwapAddrs swaps source and destination addresses. The header checksum is unchanged
// since ones' complement addition is commutative.
func (ifrm Frame) SwapAddrs() {
	src, dst := ifrm.SourceAddr(), ifrm.DestinationAddr()
	*src, *dst = *dst, *src
}

// Payload returns the contents of the IPv4 packet, which may be zero sized.
// Be sure to call [Frame.ValidateSize] beforehand to avoid panic.
func (ifrm Frame) Payload() []byte {
	off := ifrm.HeaderLength()
	l := ifrm.TotalLength()
	return ifrm.buf[off:l]
}

// Options returns the options portion of the IPv4 header. May be zero lengthed.
// Be sure to call [Frame.ValidateSize] beforehand to avoid panic.
func (ifrm Frame) Options() []byte {
	off := ifrm.HeaderLength()
	return ifrm.buf[sizeHeader:off]
}

// ClearHeader zeros out the fixed(non-variable) header contents.
func (ifrm Frame) ClearHeader() {
	for i := range ifrm.buf[:sizeHeader] {
		ifrm.buf[i] = 0
	}
}

// Header returns a copy of the header fields. Options alias the frame buffer.
func (ifrm Frame) Header() Header {
	return Header{
		ToS:      ifrm.ToS(),
		ID:       ifrm.ID(),
		Flags:    ifrm.Flags(),
		TTL:      ifrm.TTL(),
		Protocol: ifrm.Protocol(),
		Src:      *ifrm.SourceAddr(),
		Dst:      *ifrm.DestinationAddr(),
		Options:  ifrm.Options(),
	}
}

// Header is the value representation of an IPv4 header. Total length, IHL
// and checksum are derived when serializing.
type Header struct {
	ToS      ToS
	ID       uint16
	Flags    Flags
	TTL      uint8
	Protocol lgate.IPProto
	Src      [4]byte
	Dst      [4]byte
	// Options must be padded to a multiple of 4 bytes and at most 40 bytes long.
	Options []byte
}

// Len returns the serialized header length.
func (h Header) Len() int { return sizeHeader + len(h.Options) }

// Put writes the header to dst followed by payload and returns the amount of
// bytes written. The header checksum is computed. payload may alias dst at
// offset [Header.Len]. If dst cannot hold the packet nothing is written and
// [lgate.ErrCapacity] is returned.
func (h Header) Put(dst, payload []byte) (int, error) {
	hl := h.Len()
	if len(h.Options)%4 != 0 || hl > sizeMaxHeader {
		return 0, errBadOptions
	}
	n := hl + len(payload)
	if n > 0xffff {
		return 0, errBadTL
	} else if len(dst) < n {
		return 0, lgate.ErrCapacity
	}
	copy(dst[hl:], payload)
	ifrm := Frame{buf: dst}
	ifrm.SetVersionAndIHL(4, uint8(hl/4))
	ifrm.SetToS(h.ToS)
	ifrm.SetTotalLength(uint16(n))
	ifrm.SetID(h.ID)
	ifrm.SetFlags(h.Flags)
	ifrm.SetTTL(h.TTL)
	ifrm.SetProtocol(h.Protocol)
	*ifrm.SourceAddr() = h.Src
	*ifrm.DestinationAddr() = h.Dst
	copy(dst[sizeHeader:hl], h.Options)
	ifrm.SetCRC(ifrm.CalculateHeaderCRC())
	return n, nil
}

// Encode is an alias of [Header.Put].
func (h Header) Encode(dst, payload []byte) (int, error) { return h.Put(dst, payload) }

//
// Validation API.
//

var (
	errBadTL      = lgate.Malformed("ipv4: bad total length")
	errShort      = lgate.Malformed("ipv4: short data")
	errBadIHL     = lgate.Malformed("ipv4: bad IHL")
	errBadVersion = lgate.Malformed("ipv4: bad version")
	errEvil       = lgate.Malformed("ipv4: evil packet")
	errBadOptions = lgate.Malformed("ipv4: bad options length")
	errBadCRC     = lgate.BadCRC("ipv4: header checksum mismatch")
)

// ValidateSize checks the frame's size fields and compares with the actual buffer
// the frame. It adds an error to v on finding an inconsistency.
func (ifrm Frame) ValidateSize(v *lgate.Validator) {
	ihl := ifrm.ihl()
	tl := ifrm.TotalLength()
	if ihl < 5 {
		v.AddError(errBadIHL)
	}
	if tl < sizeHeader || int(tl) < 4*int(ihl) {
		v.AddError(errBadTL)
	}
	if int(tl) > len(ifrm.RawData()) || 4*int(ihl) > len(ifrm.RawData()) {
		v.AddError(errShort)
	}
}

// ValidateExceptCRC checks for invalid frame values but does not check CRC.
func (ifrm Frame) ValidateExceptCRC(v *lgate.Validator) {
	ifrm.ValidateSize(v)
	flags := ifrm.Flags()
	if ifrm.version() != 4 {
		v.AddError(errBadVersion)
	}
	if v.Flags()&lgate.ValidateEvilBit != 0 && flags.IsEvil() {
		v.AddError(errEvil)
	}
}

func (ifrm Frame) String() string {
	dst := netip.AddrFrom4(*ifrm.DestinationAddr())
	src := netip.AddrFrom4(*ifrm.SourceAddr())

	hl := ifrm.HeaderLength()
	tl := int(ifrm.TotalLength())
	ttl := ifrm.TTL()
	id := ifrm.ID()
	proto := ifrm.Protocol()
	tos := ifrm.ToS()
	return fmt.Sprintf("IP %s SRC=%s DST=%s LEN=%d OPT=%d TTL=%d ID=%d ToS=0x%x", proto.String(), src.String(), dst.String(), tl, hl-sizeHeader, ttl, id, tos)
}
