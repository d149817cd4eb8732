package ieee802154

//go:generate stringer -type=FrameType,AddrMode -linecomment -output stringers.go .

const (
	// MaxPHYPacketSize is aMaxPHYPacketSize, the largest PSDU the radio carries including FCS.
	MaxPHYPacketSize = 127
	// SizeFCS is the length of the 16 bit frame check sequence.
	SizeFCS = 2
	// MaxFrameSize is the largest MAC frame excluding FCS. The radio transceiver
	// generates and checks the FCS in hardware.
	MaxFrameSize = MaxPHYPacketSize - SizeFCS
	// SizeDispatch is the length of the network protocol dispatch that precedes
	// the network packet in data frames exchanged by the gateway.
	SizeDispatch = 2

	sizeFC           = 2
	sizeMinHeader    = sizeFC + 1 // frame control + sequence number
	BroadcastPAN     = 0xffff
	BroadcastShort   = 0xffff
	sizeShortAddr    = 2
	sizeExtendedAddr = 8
	sizePANID        = 2
)

// FrameType is the 3 bit frame type subfield of the frame control field.
type FrameType uint8

const (
	FrameBeacon  FrameType = 0 // beacon
	FrameData    FrameType = 1 // data
	FrameAck     FrameType = 2 // ack
	FrameCommand FrameType = 3 // MAC command
)

// AddrMode is the 2 bit addressing mode subfield of the frame control field.
type AddrMode uint8

const (
	AddrNone     AddrMode = 0 // none
	addrReserved AddrMode = 1 // reserved
	AddrShort    AddrMode = 2 // short
	AddrExtended AddrMode = 3 // extended
)

// Len returns the length in bytes of an address with this mode.
func (m AddrMode) Len() int {
	switch m {
	case AddrShort:
		return sizeShortAddr
	case AddrExtended:
		return sizeExtendedAddr
	}
	return 0
}

// Addr is a radio link address. Value holds the 16 bit short address or the
// 64 bit extended address depending on Mode.
type Addr struct {
	Mode  AddrMode
	Value uint64
}

// ShortAddr returns a 16 bit short address.
func ShortAddr(short uint16) Addr { return Addr{Mode: AddrShort, Value: uint64(short)} }

// ExtendedAddr returns a 64 bit extended address.
func ExtendedAddr(ext uint64) Addr { return Addr{Mode: AddrExtended, Value: ext} }

// IsBroadcast reports whether a is the 0xffff short broadcast address.
func (a Addr) IsBroadcast() bool {
	return a.Mode == AddrShort && a.Value == BroadcastShort
}

// FrameControl is the 16 bit frame control field, stored in host order.
// On the wire it is transmitted little endian.
type FrameControl uint16

const (
	fcTypeMask       = 0b111
	fcSecurity       = 1 << 3
	fcPending        = 1 << 4
	fcAckRequest     = 1 << 5
	fcPANCompression = 1 << 6
	fcDstModeShift   = 10
	fcVersionShift   = 12
	fcSrcModeShift   = 14
)

// NewFrameControl packs the frame control subfields.
func NewFrameControl(ft FrameType, security, pending, ackRequest, panCompression bool, dst, src AddrMode, version uint8) FrameControl {
	fc := FrameControl(ft & fcTypeMask)
	if security {
		fc |= fcSecurity
	}
	if pending {
		fc |= fcPending
	}
	if ackRequest {
		fc |= fcAckRequest
	}
	if panCompression {
		fc |= fcPANCompression
	}
	fc |= FrameControl(dst&0b11)<<fcDstModeShift | FrameControl(version&0b11)<<fcVersionShift | FrameControl(src&0b11)<<fcSrcModeShift
	return fc
}

func (fc FrameControl) Type() FrameType        { return FrameType(fc & fcTypeMask) }
func (fc FrameControl) SecurityEnabled() bool  { return fc&fcSecurity != 0 }
func (fc FrameControl) FramePending() bool     { return fc&fcPending != 0 }
func (fc FrameControl) AckRequest() bool       { return fc&fcAckRequest != 0 }
func (fc FrameControl) PANIDCompression() bool { return fc&fcPANCompression != 0 }
func (fc FrameControl) DstAddrMode() AddrMode  { return AddrMode(fc>>fcDstModeShift) & 0b11 }
func (fc FrameControl) SrcAddrMode() AddrMode  { return AddrMode(fc>>fcSrcModeShift) & 0b11 }

// Version returns the frame version. 0 is IEEE 802.15.4-2003, 1 is IEEE 802.15.4-2006.
func (fc FrameControl) Version() uint8 { return uint8(fc>>fcVersionShift) & 0b11 }

// headerLength returns the MAC header length implied by the frame control field.
func (fc FrameControl) headerLength() int {
	n := sizeMinHeader
	dm, sm := fc.DstAddrMode(), fc.SrcAddrMode()
	if dm != AddrNone {
		n += sizePANID + dm.Len()
	}
	if sm != AddrNone {
		if !(fc.PANIDCompression() && dm != AddrNone) {
			n += sizePANID
		}
		n += sm.Len()
	}
	return n
}
