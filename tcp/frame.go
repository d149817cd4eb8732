package tcp

import (
	"encoding/binary"
	"fmt"

	"github.com/soypat/lgate"
	"github.com/soypat/lgate/ipv4"
)

const (
	sizeHeaderTCP    = 20
	sizeMaxHeaderTCP = 60
)

// NewFrame returns a new Frame with data set to buf.
// An error is returned if the buffer size is smaller than 20.
// Users should still call [Frame.ValidateSize] before working
// with payload/options of frames to avoid panics, or use [Parse].
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeaderTCP {
		return Frame{buf: nil}, errShort
	}
	return Frame{buf: buf}, nil
}

// Parse returns a view of the TCP segment in buf with its data offset validated.
// The checksum is not verified, see [Frame.CalculateIPv4Checksum].
func Parse(buf []byte) (Frame, error) {
	tfrm, err := NewFrame(buf)
	if err != nil {
		return tfrm, err
	}
	var vld lgate.Validator
	tfrm.ValidateSize(&vld)
	if vld.HasError() {
		return Frame{}, vld.Err()
	}
	return tfrm, nil
}

// Frame encapsulates the raw data of a TCP segment
// and provides methods for manipulating, validating and
// retrieving fields and payload data. See [RFC9293].
//
// [RFC9293]: https://datatracker.ietf.org/doc/html/rfc9293
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice with which the frame was created.
func (tfrm Frame) RawData() []byte { return tfrm.buf }

// SourcePort identifies the sending port of the TCP packet.
func (tfrm Frame) SourcePort() uint16 {
	return binary.BigEndian.Uint16(tfrm.buf[0:2])
}

// SetSourcePort sets TCP source port. See [Frame.SourcePort]
func (tfrm Frame) SetSourcePort(src uint16) {
	binary.BigEndian.PutUint16(tfrm.buf[0:2], src)
}

// DestinationPort identifies the receiving port for the TCP packet.
func (tfrm Frame) DestinationPort() uint16 {
	return binary.BigEndian.Uint16(tfrm.buf[2:4])
}

// SetDestinationPort sets TCP destination port. See [Frame.DestinationPort]
func (tfrm Frame) SetDestinationPort(dst uint16) {
	binary.BigEndian.PutUint16(tfrm.buf[2:4], dst)
}

// Seq returns sequence number of the first data octet in this segment (except when SYN present)
// If SYN present this is the Initial Sequence Number (ISN) and the first data octet would be ISN+1.
func (tfrm Frame) Seq() uint32 {
	return binary.BigEndian.Uint32(tfrm.buf[4:8])
}

// SetSeq sets Seq field. See [Frame.Seq].
func (tfrm Frame) SetSeq(v uint32) {
	binary.BigEndian.PutUint32(tfrm.buf[4:8], v)
}

// Ack is the next sequence number the sender is expecting to receive (when ACK is present).
func (tfrm Frame) Ack() uint32 {
	return binary.BigEndian.Uint32(tfrm.buf[8:12])
}

// SetAck sets Ack field. See [Frame.Ack].
func (tfrm Frame) SetAck(v uint32) {
	binary.BigEndian.PutUint32(tfrm.buf[8:12], v)
}

// OffsetAndFlags returns the offset and flag fields of TCP header.
// Offset is amount of 32-bit words used for TCP header including TCP options (see [Frame.HeaderLength]).
func (tfrm Frame) OffsetAndFlags() (offset uint8, flags Flags) {
	v := binary.BigEndian.Uint16(tfrm.buf[12:14])
	offset = uint8(v >> 12)
	flags = Flags(v).Mask()
	return offset, flags
}

// SetOffsetAndFlags sets offset and flag fields of TCP header. See [Frame.OffsetAndFlags].
func (tfrm Frame) SetOffsetAndFlags(offset uint8, flags Flags) {
	v := uint16(offset)<<12 | uint16(flags.Mask())
	binary.BigEndian.PutUint16(tfrm.buf[12:14], v)
}

// HeaderLength uses Offset field to calculate the total length of
// the TCP header including options. Performs no validation.
func (tfrm Frame) HeaderLength() (lengthInBytes int) {
	offset, _ := tfrm.OffsetAndFlags()
	return 4 * int(offset)
}

func (tfrm Frame) WindowSize() uint16 { return binary.BigEndian.Uint16(tfrm.buf[14:16]) }
func (tfrm Frame) SetWindowSize(v uint16) {
	binary.BigEndian.PutUint16(tfrm.buf[14:16], v)
}

// CRC returns the checksum field in the TCP header.
func (tfrm Frame) CRC() uint16 {
	return binary.BigEndian.Uint16(tfrm.buf[16:18])
}

// SetCRC sets the checksum field of the TCP header. See [Frame.CRC].
func (tfrm Frame) SetCRC(checksum uint16) {
	binary.BigEndian.PutUint16(tfrm.buf[16:18], checksum)
}

func (tfrm Frame) UrgentPtr() uint16      { return binary.BigEndian.Uint16(tfrm.buf[18:20]) }
func (tfrm Frame) SetUrgentPtr(up uint16) { binary.BigEndian.PutUint16(tfrm.buf[18:20], up) }

// Payload returns the payload content section of the TCP packet (not including TCP options).
// Be sure to call [Frame.ValidateSize] beforehand to avoid panic.
func (tfrm Frame) Payload() []byte {
	return tfrm.buf[tfrm.HeaderLength():]
}

// Options returns the TCP option buffer portion of the frame. The returned slice may be zero length.
// Be sure to call [Frame.ValidateSize] beforehand to avoid panic.
func (tfrm Frame) Options() []byte {
	return tfrm.buf[sizeHeaderTCP:tfrm.HeaderLength()]
}

// CalculateIPv4Checksum returns the segment checksum using the pseudo header of
// ifrm. The segment must span the rest of the IPv4 payload. The checksum field is treated as zero.
func (tfrm Frame) CalculateIPv4Checksum(ifrm ipv4.Frame) uint16 {
	var crc lgate.CRC791
	ifrm.CRCWritePseudo(&crc)
	crc.WriteEven(tfrm.buf[0:16])
	crc.AddUint16(tfrm.UrgentPtr())
	crc.Write(tfrm.buf[sizeHeaderTCP:])
	return crc.Sum16()
}

// ClearHeader zeros out the fixed(non-variable) header contents.
func (tfrm Frame) ClearHeader() {
	for i := range tfrm.buf[:sizeHeaderTCP] {
		tfrm.buf[i] = 0
	}
}

// Header returns a copy of the header fields. Options alias the frame buffer.
func (tfrm Frame) Header() Header {
	_, flags := tfrm.OffsetAndFlags()
	return Header{
		Src:      tfrm.SourcePort(),
		Dst:      tfrm.DestinationPort(),
		Seq:      tfrm.Seq(),
		Ack:      tfrm.Ack(),
		Flags:    flags,
		Window:   tfrm.WindowSize(),
		Checksum: tfrm.CRC(),
		Urgent:   tfrm.UrgentPtr(),
		Options:  tfrm.Options(),
	}
}

func (tfrm Frame) String() string {
	_, flags := tfrm.OffsetAndFlags()
	return fmt.Sprintf("TCP :%d -> :%d <SEQ=%d><ACK=%d>%s", tfrm.SourcePort(), tfrm.DestinationPort(), tfrm.Seq(), tfrm.Ack(), flags.String())
}

// Header is the value representation of a TCP header. The data offset is
// derived from the options length when serializing.
type Header struct {
	Src      uint16
	Dst      uint16
	Seq      uint32
	Ack      uint32
	Flags    Flags
	Window   uint16
	Checksum uint16
	Urgent   uint16
	// Options must be padded to a multiple of 4 bytes and at most 40 bytes long.
	Options []byte
}

// Len returns the serialized header length.
func (h Header) Len() int { return sizeHeaderTCP + len(h.Options) }

// Put writes the header to dst followed by payload. payload may alias dst at
// offset [Header.Len]. If dst is too small nothing is written and [lgate.ErrCapacity] is returned.
func (h Header) Put(dst, payload []byte) (int, error) {
	hl := h.Len()
	if len(h.Options)%4 != 0 || hl > sizeMaxHeaderTCP {
		return 0, errBadOffset
	}
	n := hl + len(payload)
	if len(dst) < n {
		return 0, lgate.ErrCapacity
	}
	copy(dst[hl:], payload)
	tfrm := Frame{buf: dst}
	tfrm.SetSourcePort(h.Src)
	tfrm.SetDestinationPort(h.Dst)
	tfrm.SetSeq(h.Seq)
	tfrm.SetAck(h.Ack)
	tfrm.SetOffsetAndFlags(uint8(hl/4), h.Flags)
	tfrm.SetWindowSize(h.Window)
	tfrm.SetCRC(h.Checksum)
	tfrm.SetUrgentPtr(h.Urgent)
	copy(dst[sizeHeaderTCP:hl], h.Options)
	return n, nil
}

// Encode is an alias of [Header.Put].
func (h Header) Encode(dst, payload []byte) (int, error) { return h.Put(dst, payload) }

//
// Validation API
//

var (
	errShort     = lgate.Malformed("tcp: short buffer")
	errBadOffset = lgate.Malformed("tcp: bad data offset")
)

// ValidateSize checks the frame's size fields and compares with the actual buffer
// the frame. It adds an error to v on finding an inconsistency.
func (tfrm Frame) ValidateSize(v *lgate.Validator) {
	off := tfrm.HeaderLength()
	if off < sizeHeaderTCP {
		v.AddError(errBadOffset)
	}
	if off > len(tfrm.RawData()) {
		v.AddError(errShort)
	}
}
