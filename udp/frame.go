package udp

import (
	"encoding/binary"

	"github.com/soypat/lgate"
	"github.com/soypat/lgate/ipv4"
)

const sizeHeader = 8

// NewFrame returns a new Frame with data set to buf.
// An error is returned if the buffer size is smaller than 8.
// Users should still call [Frame.ValidateSize] before working
// with payload of frames to avoid panics, or use [Parse].
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeader {
		return Frame{buf: nil}, errShort
	}
	return Frame{buf: buf}, nil
}

// Parse returns a view of the UDP datagram in buf with its length field
// validated. The returned frame's buffer is clipped to the datagram length.
// The checksum is not verified since it depends on the network header, see [Frame.CalculateIPv4Checksum].
func Parse(buf []byte) (Frame, error) {
	ufrm, err := NewFrame(buf)
	if err != nil {
		return ufrm, err
	}
	var vld lgate.Validator
	ufrm.ValidateSize(&vld)
	if vld.HasError() {
		return Frame{}, vld.Err()
	}
	return Frame{buf: buf[:ufrm.Length()]}, nil
}

// Frame encapsulates the raw data of a UDP datagram
// and provides methods for manipulating, validating and
// retrieving fields and payload data. See [RFC768].
//
// [RFC768]: https://tools.ietf.org/html/rfc768
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice with which the frame was created.
func (ufrm Frame) RawData() []byte { return ufrm.buf }

// SourcePort identifies the sending port for the UDP packet.
func (ufrm Frame) SourcePort() uint16 {
	return binary.BigEndian.Uint16(ufrm.buf[0:2])
}

// SetSourcePort sets UDP source port. See [Frame.SourcePort]
func (ufrm Frame) SetSourcePort(src uint16) {
	binary.BigEndian.PutUint16(ufrm.buf[0:2], src)
}

// DestinationPort identifies the receiving port for the UDP packet.
func (ufrm Frame) DestinationPort() uint16 {
	return binary.BigEndian.Uint16(ufrm.buf[2:4])
}

// SetDestinationPort sets UDP destination port. See [Frame.DestinationPort]
func (ufrm Frame) SetDestinationPort(dst uint16) {
	binary.BigEndian.PutUint16(ufrm.buf[2:4], dst)
}

// SwapPorts exchanges source and destination ports in place.
func (ufrm Frame) SwapPorts() {
	src, dst := ufrm.SourcePort(), ufrm.DestinationPort()
	ufrm.SetSourcePort(dst)
	ufrm.SetDestinationPort(src)
}

// Length specifies length in bytes of UDP header and UDP payload. The minimum length
// is 8 bytes (UDP header length). This field should match the result of the IP header
// TotalLength field minus the IP header size: udp.Length == ip.TotalLength - 4*ip.IHL
func (ufrm Frame) Length() uint16 {
	return binary.BigEndian.Uint16(ufrm.buf[4:6])
}

// SetLength sets the UDP header's length field. See [Frame.Length].
func (ufrm Frame) SetLength(length uint16) {
	binary.BigEndian.PutUint16(ufrm.buf[4:6], length)
}

// CRC returns the checksum field in the UDP header. Zero means no checksum was computed.
func (ufrm Frame) CRC() uint16 {
	return binary.BigEndian.Uint16(ufrm.buf[6:8])
}

// SetCRC sets the UDP header's CRC field. See [Frame.CRC].
func (ufrm Frame) SetCRC(checksum uint16) {
	binary.BigEndian.PutUint16(ufrm.buf[6:8], checksum)
}

// Payload returns the payload content section of the UDP packet.
// Be sure to call [Frame.ValidateSize] beforehand to avoid panic.
func (ufrm Frame) Payload() []byte {
	l := ufrm.Length()
	return ufrm.buf[sizeHeader:l]
}

// CalculateIPv4Checksum returns the checksum of the datagram using the pseudo
// header of ifrm. The checksum field is treated as zero. A computed zero is
// transmitted as all ones.
func (ufrm Frame) CalculateIPv4Checksum(ifrm ipv4.Frame) uint16 {
	var crc lgate.CRC791
	ifrm.CRCWritePseudo(&crc)
	crc.AddUint16(ufrm.SourcePort())
	crc.AddUint16(ufrm.DestinationPort())
	crc.AddUint16(ufrm.Length())
	crc.Write(ufrm.Payload())
	return lgate.NeverZeroChecksum(crc.Sum16())
}

// ClearHeader zeros out the header contents.
func (ufrm Frame) ClearHeader() {
	for i := range ufrm.buf[:sizeHeader] {
		ufrm.buf[i] = 0
	}
}

// Header returns a copy of the header fields.
func (ufrm Frame) Header() Header {
	return Header{
		Src:      ufrm.SourcePort(),
		Dst:      ufrm.DestinationPort(),
		Checksum: ufrm.CRC(),
	}
}

// Header is the value representation of a UDP header. The length field is
// derived from the payload when serializing.
type Header struct {
	Src uint16
	Dst uint16
	// Checksum is written as is. Zero disables the checksum over IPv4.
	Checksum uint16
}

// Len returns the serialized header length.
func (h Header) Len() int { return sizeHeader }

// Put writes the header to dst followed by payload. payload may alias dst at
// offset 8. If dst is too small nothing is written and [lgate.ErrCapacity] is returned.
func (h Header) Put(dst, payload []byte) (int, error) {
	n := sizeHeader + len(payload)
	if n > 0xffff {
		return 0, errBadLen
	} else if len(dst) < n {
		return 0, lgate.ErrCapacity
	}
	copy(dst[sizeHeader:], payload)
	ufrm := Frame{buf: dst}
	ufrm.SetSourcePort(h.Src)
	ufrm.SetDestinationPort(h.Dst)
	ufrm.SetLength(uint16(n))
	ufrm.SetCRC(h.Checksum)
	return n, nil
}

// Encode is an alias of [Header.Put].
func (h Header) Encode(dst, payload []byte) (int, error) { return h.Put(dst, payload) }

//
// Validation API.
//

var (
	errBadLen = lgate.Malformed("udp: bad UDP length")
	errShort  = lgate.Malformed("udp: short buffer")
)

// ValidateSize checks the frame's size fields and compares with the actual buffer
// the frame. It adds an error to v on finding an inconsistency.
func (ufrm Frame) ValidateSize(v *lgate.Validator) {
	ul := ufrm.Length()
	if ul < sizeHeader {
		v.AddError(errBadLen)
	}
	if int(ul) > len(ufrm.RawData()) {
		v.AddError(errShort)
	}
}
