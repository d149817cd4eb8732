package ieee802154

import (
	"encoding/binary"

	"github.com/soypat/lgate"
	"github.com/soypat/lgate/ethernet"
)

// NewFrame returns a Frame with data set to buf.
// An error is returned if the buffer size is smaller than 3.
// Users should still call [Frame.ValidateSize] before working
// with addresses or payload of frames to avoid panics, or use [Parse].
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeMinHeader {
		return Frame{buf: nil}, errShort
	}
	return Frame{buf: buf}, nil
}

// Parse returns a validated view of the MAC frame in buf, which must not include the FCS.
// Frames with security enabled or reserved addressing modes are rejected.
func Parse(buf []byte) (Frame, error) {
	frm, err := NewFrame(buf)
	if err != nil {
		return frm, err
	}
	var vld lgate.Validator
	frm.ValidateSize(&vld)
	if vld.HasError() {
		return Frame{}, vld.Err()
	}
	return frm, nil
}

// Frame encapsulates the raw data of an IEEE 802.15.4 MAC frame (MPDU) without
// the trailing FCS and provides methods for manipulating, validating and
// retrieving fields and payload data.
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice with which the frame was created.
func (frm Frame) RawData() []byte { return frm.buf }

// FrameControl returns the frame control field.
func (frm Frame) FrameControl() FrameControl {
	return FrameControl(binary.LittleEndian.Uint16(frm.buf[0:2]))
}

// SetFrameControl sets the frame control field. Changing addressing modes changes the header layout.
func (frm Frame) SetFrameControl(fc FrameControl) {
	binary.LittleEndian.PutUint16(frm.buf[0:2], uint16(fc))
}

// Seq returns the data sequence number.
func (frm Frame) Seq() uint8 { return frm.buf[2] }

// SetSeq sets the data sequence number.
func (frm Frame) SetSeq(seq uint8) { frm.buf[2] = seq }

// HeaderLength returns the length of the MAC header as implied by the frame control field.
func (frm Frame) HeaderLength() int { return frm.FrameControl().headerLength() }

// offsets returns the offsets of the addressing fields or -1 for absent fields.
func (frm Frame) offsets() (dstPAN, dst, srcPAN, src int) {
	fc := frm.FrameControl()
	dm, sm := fc.DstAddrMode(), fc.SrcAddrMode()
	dstPAN, dst, srcPAN, src = -1, -1, -1, -1
	off := sizeMinHeader
	if dm != AddrNone {
		dstPAN = off
		dst = off + sizePANID
		off = dst + dm.Len()
	}
	if sm != AddrNone {
		if fc.PANIDCompression() && dm != AddrNone {
			srcPAN = dstPAN
		} else {
			srcPAN = off
			off += sizePANID
		}
		src = off
	}
	return dstPAN, dst, srcPAN, src
}

// DestinationPAN returns the destination PAN identifier, or 0 if absent.
func (frm Frame) DestinationPAN() uint16 {
	off, _, _, _ := frm.offsets()
	if off < 0 {
		return 0
	}
	return binary.LittleEndian.Uint16(frm.buf[off:])
}

// SourcePAN returns the source PAN identifier which equals the destination
// PAN identifier when PAN ID compression is set. Returns 0 if absent.
func (frm Frame) SourcePAN() uint16 {
	_, _, off, _ := frm.offsets()
	if off < 0 {
		return 0
	}
	return binary.LittleEndian.Uint16(frm.buf[off:])
}

// Destination returns the destination address.
func (frm Frame) Destination() Addr {
	_, off, _, _ := frm.offsets()
	return frm.addr(frm.FrameControl().DstAddrMode(), off)
}

// Source returns the source address.
func (frm Frame) Source() Addr {
	_, _, _, off := frm.offsets()
	return frm.addr(frm.FrameControl().SrcAddrMode(), off)
}

func (frm Frame) addr(mode AddrMode, off int) Addr {
	switch mode {
	case AddrShort:
		return ShortAddr(binary.LittleEndian.Uint16(frm.buf[off:]))
	case AddrExtended:
		return ExtendedAddr(binary.LittleEndian.Uint64(frm.buf[off:]))
	}
	return Addr{}
}

// Payload returns the MAC payload following the header.
func (frm Frame) Payload() []byte {
	return frm.buf[frm.HeaderLength():]
}

// Header returns a copy of the frame's header fields.
func (frm Frame) Header() Header {
	fc := frm.FrameControl()
	return Header{
		Type:       fc.Type(),
		Pending:    fc.FramePending(),
		AckRequest: fc.AckRequest(),
		Version:    fc.Version(),
		Seq:        frm.Seq(),
		DstPAN:     frm.DestinationPAN(),
		Dst:        frm.Destination(),
		SrcPAN:     frm.SourcePAN(),
		Src:        frm.Source(),
	}
}

// Header is the value representation of an IEEE 802.15.4 MAC header without
// auxiliary security header.
type Header struct {
	Type       FrameType
	Pending    bool
	AckRequest bool
	Version    uint8
	Seq        uint8
	DstPAN     uint16
	Dst        Addr
	SrcPAN     uint16
	Src        Addr
}

// FrameControl returns the frame control field Put would write. PAN ID
// compression is used when both addresses are present and share a PAN.
func (h Header) FrameControl() FrameControl {
	compress := h.Dst.Mode != AddrNone && h.Src.Mode != AddrNone && h.DstPAN == h.SrcPAN
	return NewFrameControl(h.Type, false, h.Pending, h.AckRequest, compress, h.Dst.Mode, h.Src.Mode, h.Version)
}

// Len returns the serialized header length.
func (h Header) Len() int { return h.FrameControl().headerLength() }

// Put writes the header to dst followed by payload and returns the amount of
// bytes written. payload may alias dst at offset [Header.Len]. If dst cannot hold
// the frame nothing is written and [lgate.ErrCapacity] is returned. Frames
// longer than [MaxFrameSize] also return [lgate.ErrCapacity].
func (h Header) Put(dst, payload []byte) (int, error) {
	if h.Dst.Mode == addrReserved || h.Src.Mode == addrReserved {
		return 0, errReservedMode
	}
	fc := h.FrameControl()
	hl := fc.headerLength()
	n := hl + len(payload)
	if len(dst) < n || n > MaxFrameSize {
		return 0, lgate.ErrCapacity
	}
	copy(dst[hl:], payload)
	frm := Frame{buf: dst}
	frm.SetFrameControl(fc)
	frm.SetSeq(h.Seq)
	dstPAN, dstOff, srcPAN, srcOff := frm.offsets()
	if dstPAN >= 0 {
		binary.LittleEndian.PutUint16(dst[dstPAN:], h.DstPAN)
		putAddr(dst[dstOff:], h.Dst)
	}
	if srcPAN >= 0 {
		binary.LittleEndian.PutUint16(dst[srcPAN:], h.SrcPAN)
		putAddr(dst[srcOff:], h.Src)
	}
	return n, nil
}

// Encode is an alias of [Header.Put].
func (h Header) Encode(dst, payload []byte) (int, error) { return h.Put(dst, payload) }

func putAddr(dst []byte, a Addr) {
	switch a.Mode {
	case AddrShort:
		binary.LittleEndian.PutUint16(dst, uint16(a.Value))
	case AddrExtended:
		binary.LittleEndian.PutUint64(dst, a.Value)
	}
}

// NetworkType splits a data frame payload into its network protocol dispatch
// and the network packet that follows it.
func NetworkType(payload []byte) (ethernet.Type, []byte, error) {
	if len(payload) < SizeDispatch {
		return 0, nil, errShortDispatch
	}
	return ethernet.Type(binary.BigEndian.Uint16(payload)), payload[SizeDispatch:], nil
}

// PutNetworkType writes the network protocol dispatch to the start of dst.
func PutNetworkType(dst []byte, t ethernet.Type) {
	binary.BigEndian.PutUint16(dst[:SizeDispatch], uint16(t))
}

//
// Validation API.
//

var (
	errShort         = lgate.Malformed("ieee802154: short frame")
	errShortDispatch = lgate.Malformed("ieee802154: short dispatch")
	errTooLong       = lgate.Malformed("ieee802154: frame exceeds PHY payload")
	errSecurity      = lgate.Malformed("ieee802154: security not supported")
	errReservedMode  = lgate.Malformed("ieee802154: reserved addressing mode")
	errBadVersion    = lgate.Malformed("ieee802154: unsupported frame version")
	errCompression   = lgate.Malformed("ieee802154: PAN ID compression without both addresses")
)

// ValidateSize checks the frame control field and compares the implied header
// length with the actual buffer of the frame.
func (frm Frame) ValidateSize(v *lgate.Validator) {
	if len(frm.buf) < sizeMinHeader {
		v.AddError(errShort)
		return
	}
	fc := frm.FrameControl()
	dm, sm := fc.DstAddrMode(), fc.SrcAddrMode()
	switch {
	case len(frm.buf) > MaxFrameSize:
		v.AddError(errTooLong)
	case fc.SecurityEnabled():
		v.AddError(errSecurity)
	case dm == addrReserved || sm == addrReserved:
		v.AddError(errReservedMode)
	case fc.Version() > 1:
		v.AddError(errBadVersion)
	case fc.PANIDCompression() && (dm == AddrNone || sm == AddrNone):
		v.AddError(errCompression)
	case len(frm.buf) < fc.headerLength():
		v.AddError(errShort)
	}
}
