package ethernet

import (
	"strconv"
)

//go:generate stringer -type=Type -linecomment -output stringers.go .

const (
	sizeHeaderNoVLAN = 14
	sizeHeaderVLAN   = 18
	// MinFrameSize is the minimum Ethernet frame size on the wire, excluding FCS.
	MinFrameSize = 60
	// MaxFrameSize is the maximum untagged Ethernet frame size, excluding FCS.
	MaxFrameSize = 1514
	// SizeFCS is the length of the frame check sequence trailer.
	SizeFCS = 4
)

// Type is the EtherType field of an Ethernet header. Values of 1500 and
// below are 802.3 payload lengths rather than protocol identifiers.
type Type uint16

// IsSize returns true if the EtherType is actually the size of the payload
// and should NOT be interpreted as an EtherType.
func (et Type) IsSize() bool { return et <= 1500 }

// Ethernet type flags
const (
	TypeIPv4        Type = 0x0800 // IPv4
	TypeARP         Type = 0x0806 // ARP
	TypeWakeOnLAN   Type = 0x0842 // wake on LAN
	TypeRARP        Type = 0x8035 // RARP
	TypeVLAN        Type = 0x8100 // VLAN
	TypeIPv6        Type = 0x86DD // IPv6
	TypeFlowControl Type = 0x8808 // EthernetFlowCtl
	TypeLLDP        Type = 0x88CC // LLDP
	TypeServiceVLAN Type = 0x88a8 // service VLAN
)

// VLANTag holds priority (PCP) Drop indicator (DEI) and VLAN ID bits of the VLAN tag field.
type VLANTag uint16

// NewVLANTag packs the priority code point, drop eligible indicator and VLAN identifier.
func NewVLANTag(pcp uint8, dei bool, vid uint16) VLANTag {
	vt := VLANTag(pcp&0b111)<<13 | VLANTag(vid&0xfff)
	if dei {
		vt |= 1 << 12
	}
	return vt
}

// DropEligibleIndicator returns true if the DEI bit is set.
// DEI may be used separately or in conjunction with PCP to indicate frames eligible to be dropped in the presence of congestion.
func (vt VLANTag) DropEligibleIndicator() bool { return vt&(1<<12) != 0 }

// PriorityCodePoint is 3-bit field which refers to the IEEE 802.1p class of service (CoS) and maps to the frame priority level.
func (vt VLANTag) PriorityCodePoint() uint8 { return uint8(vt >> 13) }

// VLANIdentifier 12 bit field which specifies which VLAN the frame belongs to. Values of 0 and 4095 are reserved.
func (vt VLANTag) VLANIdentifier() uint16 { return uint16(vt) & 0xfff }

// AppendAddr appends the text representation of the hardware address to the destination buffer.
func AppendAddr(dst []byte, hwAddr [6]byte) []byte {
	for i, b := range hwAddr {
		if i != 0 {
			dst = append(dst, ':')
		}
		if b < 16 {
			dst = append(dst, '0')
		}
		dst = strconv.AppendUint(dst, uint64(b), 16)
	}
	return dst
}

// BroadcastAddr returns the all 0xff's broadcast hardware/MAC/EUI/OUI address.
func BroadcastAddr() [6]byte {
	return [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
}

// IsBroadcastAddr reports whether addr is the all 0xff's broadcast address.
func IsBroadcastAddr(addr *[6]byte) bool {
	return *addr == [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}
}

// IsMulticastAddr reports whether the group bit of addr is set. Broadcast is a multicast address.
func IsMulticastAddr(addr *[6]byte) bool {
	return addr[0]&1 != 0
}
