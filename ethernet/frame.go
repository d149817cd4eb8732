package ethernet

import (
	"encoding/binary"

	"github.com/soypat/lgate"
)

// NewFrame returns a Frame with data set to buf.
// An error is returned if the buffer size is smaller than 14.
// Users should still call [Frame.ValidateSize] before working
// with payload of frames to avoid panics, or use [Parse].
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeaderNoVLAN {
		return Frame{buf: nil}, errShort
	}
	return Frame{buf: buf}, nil
}

// Parse returns a validated view of the Ethernet frame in buf. Accessors of a
// Frame returned by Parse without error never read out of bounds.
func Parse(buf []byte) (Frame, error) {
	efrm, err := NewFrame(buf)
	if err != nil {
		return efrm, err
	}
	var vld lgate.Validator
	efrm.ValidateSize(&vld)
	if vld.HasError() {
		return Frame{}, vld.Err()
	}
	return efrm, nil
}

// Frame encapsulates the raw data of an Ethernet frame
// without including preamble (first byte is start of destination address)
// and provides methods for manipulating, validating and
// retrieving fields and payload data. See [IEEE 802.3].
//
// [IEEE 802.3]: https://standards.ieee.org/ieee/802.3/7071/
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice with which the frame was created.
func (efrm Frame) RawData() []byte { return efrm.buf }

// HeaderLength returns the length of the ethernet packet header. Nominally returns 14; or 18 for VLAN packets.
func (efrm Frame) HeaderLength() int {
	if efrm.IsVLAN() {
		return sizeHeaderVLAN
	}
	return sizeHeaderNoVLAN
}

// Payload returns the data portion of the ethernet packet with correct handling of VLAN packets.
// For 802.3 length framing the payload is clipped to the length field, dropping padding.
func (efrm Frame) Payload() []byte {
	hl := efrm.HeaderLength()
	et := efrm.EtherType()
	if et.IsSize() {
		return efrm.buf[hl : hl+int(et)]
	}
	return efrm.buf[hl:]
}

// DestinationHardwareAddr returns the target's MAC/hardware address for the ethernet packet.
func (efrm Frame) DestinationHardwareAddr() (dst *[6]byte) {
	return (*[6]byte)(efrm.buf[0:6])
}

// IsBroadcast returns true if the destination is the broadcast address ff:ff:ff:ff:ff:ff, false otherwise.
func (efrm Frame) IsBroadcast() bool {
	return IsBroadcastAddr(efrm.DestinationHardwareAddr())
}

// SourceHardwareAddr returns the sender's MAC/hardware address of the ethernet packet.
func (efrm Frame) SourceHardwareAddr() (src *[6]byte) {
	return (*[6]byte)(efrm.buf[6:12])
}

// EtherTypeOrSize returns the EtherType/Size field at octet 12 of the ethernet packet.
// Caller should check if the field is actually a valid EtherType or if it represents the Ethernet payload size with [Type.IsSize].
func (efrm Frame) EtherTypeOrSize() Type {
	return Type(binary.BigEndian.Uint16(efrm.buf[12:14]))
}

// EtherType returns the protocol type of the payload, looking past the VLAN tag
// if one is present.
func (efrm Frame) EtherType() Type {
	if efrm.IsVLAN() {
		return efrm.VLANEtherType()
	}
	return efrm.EtherTypeOrSize()
}

// SetEtherType sets the EtherType field of the ethernet packet. See [Type] and [Frame.EtherTypeOrSize].
func (efrm Frame) SetEtherType(v Type) {
	binary.BigEndian.PutUint16(efrm.buf[12:14], uint16(v))
}

// VLANTag returns the VLAN tag field following the TPID=0x8100. See [VLANTag]. Call [Frame.ValidateSize] to ensure this function does not panic.
func (efrm Frame) VLANTag() VLANTag { return VLANTag(binary.BigEndian.Uint16(efrm.buf[14:16])) }

// SetVLAN sets following 3 fields:
//   - 12:14 ethernet frame type set to constant [TypeVLAN].
//   - 14:16 set to VLANTag argument value vt
//   - 16:18 set to the VLAN ether type vlanType.
func (efrm Frame) SetVLAN(tag VLANTag, vlanType Type) {
	efrm.SetEtherType(TypeVLAN)
	binary.BigEndian.PutUint16(efrm.buf[14:16], uint16(tag))
	binary.BigEndian.PutUint16(efrm.buf[16:18], uint16(vlanType))
}

// VLANEtherType returns the [Type] for a VLAN ethernet frame (octet position 16). Call [Frame.ValidateSize] to ensure this function does not panic.
func (efrm Frame) VLANEtherType() Type {
	return Type(binary.BigEndian.Uint16(efrm.buf[16:18]))
}

// IsVLAN returns true if the SizeOrEtherType is set to the VLAN tag 0x8100. This
// indicates the field contains the first two octets of a 4 octet 802.1Q VLAN tag
// and the actual EtherType follows the tag.
func (efrm Frame) IsVLAN() bool {
	return efrm.EtherTypeOrSize() == TypeVLAN
}

// SwapAddrs swaps source and destination hardware addresses in place.
func (efrm Frame) SwapAddrs() {
	dst, src := efrm.DestinationHardwareAddr(), efrm.SourceHardwareAddr()
	*dst, *src = *src, *dst
}

// Header returns a copy of the frame's header fields.
func (efrm Frame) Header() Header {
	h := Header{
		Destination: *efrm.DestinationHardwareAddr(),
		Source:      *efrm.SourceHardwareAddr(),
		Type:        efrm.EtherTypeOrSize(),
	}
	if h.Type == TypeVLAN {
		h.Tagged = true
		h.VLAN = efrm.VLANTag()
		h.Type = efrm.VLANEtherType()
	}
	return h
}

// ClearHeader zeros out the fixed(non-variable) header contents.
func (efrm Frame) ClearHeader() {
	for i := range efrm.buf[:sizeHeaderNoVLAN] {
		efrm.buf[i] = 0
	}
}

// Header is the value representation of an Ethernet header.
type Header struct {
	Destination [6]byte
	Source      [6]byte
	// Type is the EtherType of the payload (or 802.3 length). When Tagged is
	// set it is written after the VLAN tag.
	Type   Type
	VLAN   VLANTag
	Tagged bool
}

// Len returns the serialized header length.
func (h Header) Len() int {
	if h.Tagged {
		return sizeHeaderVLAN
	}
	return sizeHeaderNoVLAN
}

// Put writes the header to dst followed by payload and returns the amount of
// bytes written. payload may alias dst at offset [Header.Len], in which case it
// is not copied. If dst cannot hold the frame nothing is written and
// [lgate.ErrCapacity] is returned.
func (h Header) Put(dst, payload []byte) (int, error) {
	hl := h.Len()
	n := hl + len(payload)
	if len(dst) < n {
		return 0, lgate.ErrCapacity
	}
	copy(dst[hl:], payload)
	efrm := Frame{buf: dst}
	*efrm.DestinationHardwareAddr() = h.Destination
	*efrm.SourceHardwareAddr() = h.Source
	if h.Tagged {
		efrm.SetVLAN(h.VLAN, h.Type)
	} else {
		efrm.SetEtherType(h.Type)
	}
	return n, nil
}

// Encode is an alias of [Header.Put].
func (h Header) Encode(dst, payload []byte) (int, error) { return h.Put(dst, payload) }

//
// Validation API.
//

var (
	errShort     = lgate.Malformed("ethernet: too short")
	errShortVLAN = lgate.Malformed("ethernet: short VLAN")
	errBadSize   = lgate.Malformed("ethernet: 802.3 length exceeds frame")
)

// ValidateSize checks the frame's size fields and compares with the actual buffer
// the frame. It adds an error to v on finding an inconsistency.
func (efrm Frame) ValidateSize(v *lgate.Validator) {
	if len(efrm.buf) < sizeHeaderNoVLAN {
		v.AddError(errShort)
		return
	}
	hl := sizeHeaderNoVLAN
	sz := efrm.EtherTypeOrSize()
	if sz == TypeVLAN {
		if len(efrm.buf) < sizeHeaderVLAN {
			v.AddError(errShortVLAN)
			return
		}
		hl = sizeHeaderVLAN
		sz = efrm.VLANEtherType()
	}
	if sz.IsSize() && len(efrm.buf)-hl < int(sz) {
		v.AddError(errBadSize)
	}
}
