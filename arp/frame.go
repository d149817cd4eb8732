package arp

import (
	"encoding/binary"

	"github.com/soypat/lgate"
	"github.com/soypat/lgate/ethernet"
)

// NewFrame returns a Frame with data set to buf.
// An error is returned if the buffer size is smaller than 28 (IPv4 min size).
// Users should still call [Frame.ValidateSize] before working
// with addresses of frames to avoid panics.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeaderv4 {
		return Frame{buf: nil}, errShortARP
	}
	return Frame{buf: buf}, nil
}

// Parse returns a validated view of an IPv4-over-Ethernet ARP packet. Other
// hardware or protocol types and operations other than request and reply are rejected.
func Parse(buf []byte) (Frame, error) {
	afrm, err := NewFrame(buf)
	if err != nil {
		return afrm, err
	}
	var vld lgate.Validator
	afrm.ValidateSize(&vld)
	afrm.ValidateIPv4(&vld)
	if vld.HasError() {
		return Frame{}, vld.Err()
	}
	return afrm, nil
}

// Frame encapsulates the raw data of an ARP packet
// and provides methods for manipulating, validating and
// retrieving fields and payload data. See [RFC826].
//
// [RFC826]: https://tools.ietf.org/html/rfc826
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice with which the frame was created.
func (afrm Frame) RawData() []byte { return afrm.buf }

// Hardware returns the network link protocol type and hardware address length. Example: Ethernet is 1.
func (afrm Frame) Hardware() (Type uint16, length uint8) {
	Type = binary.BigEndian.Uint16(afrm.buf[0:2])
	return Type, afrm.hwlen()
}

func (afrm Frame) hwlen() uint8 {
	return afrm.buf[4]
}

// SetHardware sets the network link protocol type. See [Frame.Hardware].
func (afrm Frame) SetHardware(Type uint16, length uint8) {
	binary.BigEndian.PutUint16(afrm.buf[0:2], Type)
	afrm.buf[4] = length
}

// Protocol returns the internet protocol type and length. See [ethernet.Type].
func (afrm Frame) Protocol() (Type ethernet.Type, length uint8) {
	Type = ethernet.Type(binary.BigEndian.Uint16(afrm.buf[2:4]))
	return Type, afrm.protolen()
}

func (afrm Frame) protolen() uint8 { return afrm.buf[5] }

// SetProtocol sets the protocol type and length fields of the ARP frame. See [Frame.Protocol].
func (afrm Frame) SetProtocol(Type ethernet.Type, length uint8) {
	binary.BigEndian.PutUint16(afrm.buf[2:4], uint16(Type))
	afrm.buf[5] = length
}

// Operation returns the ARP header operation field. See [Operation].
func (afrm Frame) Operation() Operation { return Operation(binary.BigEndian.Uint16(afrm.buf[6:8])) }

// SetOperation sets the ARP header operation field. See [Operation].
func (afrm Frame) SetOperation(op Operation) { binary.BigEndian.PutUint16(afrm.buf[6:8], uint16(op)) }

// Sender returns the hardware (MAC) and protocol addresses of sender of ARP packet.
// In an ARP request MAC address is used to indicate
// the address of the host sending the request. In an ARP reply MAC address is
// used to indicate the address of the host that the request was looking for.
func (afrm Frame) Sender() (hardwareAddr []byte, proto []byte) {
	_, hlen := afrm.Hardware()
	_, ilen := afrm.Protocol()
	return afrm.buf[8 : 8+hlen], afrm.buf[8+hlen : 8+hlen+ilen]
}

// Target returns the hardware (MAC) and protocol addresses of target of ARP packet.
// In an ARP request MAC target is ignored. In ARP reply MAC is used to indicate the address of host that originated request.
func (afrm Frame) Target() (hardwareAddr []byte, proto []byte) {
	_, hlen := afrm.Hardware()
	_, ilen := afrm.Protocol()
	toff := 8 + hlen + ilen
	return afrm.buf[toff : toff+hlen], afrm.buf[toff+hlen : toff+hlen+ilen]
}

// Sender4 returns the IPv4 sender addresses. See [Frame.Sender].
func (afrm Frame) Sender4() (hardwareAddr *[6]byte, proto *[4]byte) {
	return (*[6]byte)(afrm.buf[8:14]), (*[4]byte)(afrm.buf[14:18])
}

// Target4 returns the IPv4 target addresses. See [Frame.Target].
func (afrm Frame) Target4() (hardwareAddr *[6]byte, proto *[4]byte) {
	return (*[6]byte)(afrm.buf[18:24]), (*[4]byte)(afrm.buf[24:28])
}

// IsProbe reports whether the packet is an address probe (RFC 5227) with an unspecified sender address.
func (afrm Frame) IsProbe() bool {
	_, proto := afrm.Sender4()
	return *proto == [4]byte{}
}

// ClearHeader zeros out the fixed(non-variable) header contents.
func (afrm Frame) ClearHeader() {
	for i := range afrm.buf[:sizeHeader] {
		afrm.buf[i] = 0
	}
}

// Clip returns the frame with its buffer limited to the length of the ARP packet,
// removing link layer padding.
func (afrm Frame) Clip() Frame {
	return Frame{buf: afrm.buf[:sizeHeader+2*int(afrm.hwlen())+2*int(afrm.protolen())]}
}

// SwapTargetSender swaps the sender and target address fields in place.
func (afrm Frame) SwapTargetSender() {
	hwTarget, protoTarget := afrm.Target()
	hwSender, protoSender := afrm.Sender()
	for i := range hwTarget {
		hwTarget[i], hwSender[i] = hwSender[i], hwTarget[i]
	}
	for i := range protoTarget {
		protoTarget[i], protoSender[i] = protoSender[i], protoTarget[i]
	}
}

// Header returns a copy of the IPv4-over-Ethernet fields. Call on frames returned by [Parse].
func (afrm Frame) Header() Header {
	shw, sip := afrm.Sender4()
	thw, tip := afrm.Target4()
	return Header{
		Op:       afrm.Operation(),
		SenderHW: *shw,
		SenderIP: *sip,
		TargetHW: *thw,
		TargetIP: *tip,
	}
}

// Header is the value representation of an IPv4-over-Ethernet ARP packet.
type Header struct {
	Op       Operation
	SenderHW [6]byte
	SenderIP [4]byte
	TargetHW [6]byte
	TargetIP [4]byte
}

// Len returns the serialized packet length.
func (h Header) Len() int { return sizeHeaderv4 }

// Put writes the ARP packet to dst. ARP carries no payload so payload must be
// empty. If dst is too small nothing is written and [lgate.ErrCapacity] is returned.
func (h Header) Put(dst, payload []byte) (int, error) {
	if len(payload) != 0 {
		panic("arp: packet has no payload")
	}
	if len(dst) < sizeHeaderv4 {
		return 0, lgate.ErrCapacity
	}
	afrm := Frame{buf: dst}
	afrm.SetHardware(HardwareEthernet, 6)
	afrm.SetProtocol(ethernet.TypeIPv4, 4)
	afrm.SetOperation(h.Op)
	shw, sip := afrm.Sender4()
	*shw, *sip = h.SenderHW, h.SenderIP
	thw, tip := afrm.Target4()
	*thw, *tip = h.TargetHW, h.TargetIP
	return sizeHeaderv4, nil
}

// Encode is an alias of [Header.Put].
func (h Header) Encode(dst, payload []byte) (int, error) { return h.Put(dst, payload) }

//
// Validation API.
//

// ValidateSize checks the frame's size fields and compares with the actual buffer
// the frame. It adds an error to v on finding an inconsistency.
func (afrm Frame) ValidateSize(v *lgate.Validator) {
	if len(afrm.buf) < sizeHeader {
		v.AddError(errShortARP)
		return
	}
	_, hlen := afrm.Hardware()
	_, ilen := afrm.Protocol()
	minLen := sizeHeader + 2*(int(hlen)+int(ilen))
	if len(afrm.buf) < minLen {
		v.AddError(errShortARP)
	}
}

// ValidateIPv4 checks the frame is an IPv4-over-Ethernet request or reply.
func (afrm Frame) ValidateIPv4(v *lgate.Validator) {
	htype, hlen := afrm.Hardware()
	ptype, plen := afrm.Protocol()
	if htype != HardwareEthernet || hlen != 6 {
		v.AddError(errBadHardware)
	}
	if ptype != ethernet.TypeIPv4 || plen != 4 {
		v.AddError(errBadProtocol)
	}
	if op := afrm.Operation(); op != OpRequest && op != OpReply {
		v.AddError(errBadOperation)
	}
}
