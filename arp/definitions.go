package arp

import "github.com/soypat/lgate"

//go:generate stringer -type=Operation -linecomment -output stringers.go .

const (
	sizeHeader   = 8
	sizeHeaderv4 = sizeHeader + 6*2 + 4*2

	// HardwareEthernet is the ARP hardware type of Ethernet.
	HardwareEthernet = 1
	// SizeIPv4 is the size of an IPv4-over-Ethernet ARP packet.
	SizeIPv4 = sizeHeaderv4
)

var (
	errShortARP      = lgate.Malformed("arp: packet too short")
	errBadHardware   = lgate.Malformed("arp: unsupported hardware")
	errBadProtocol   = lgate.Malformed("arp: unsupported protocol")
	errBadOperation  = lgate.Malformed("arp: unsupported operation")
	errNotRequest    = lgate.Malformed("arp: not a request")
	errInvalidConfig = lgate.ErrInvalidConfig
)

// Operation represents the type of ARP packet, either request or reply/response.
type Operation uint16

const (
	OpRequest Operation = 1 // request
	OpReply   Operation = 2 // reply
)
