package lgate

//go:generate stringer -type=IPProto -linecomment -output stringers_ipproto.go .

// DropReason classifies why the gateway discarded a frame. Every drop is
// accounted under exactly one reason.
type DropReason uint8

const (
	DropNone       DropReason = iota // none
	DropMalformed                    // malformed
	DropCapacity                     // capacity
	DropExhausted                    // exhausted
	DropNoRoute                      // no route
	DropExpired                      // expired
	DropLinkDown                     // link down
	DropLinkError                    // link error
	DropBusy                         // busy
	DropUnresolved                   // unresolved
	DropFiltered                     // filtered
	numDropReasons
)

// NumDropReasons is the amount of distinct drop reasons including [DropNone].
const NumDropReasons = int(numDropReasons)

// IPProto represents the IP protocol number.
type IPProto uint8

// IP protocol numbers seen by the gateway.
const (
	IPProtoHopByHop IPProto = 0   // IPv6 Hop-by-Hop Option [RFC8200]
	IPProtoICMP     IPProto = 1   // Internet Control Message [RFC792]
	IPProtoIGMP     IPProto = 2   // Internet Group Management [RFC1112]
	IPProtoIPv4     IPProto = 4   // IPv4 encapsulation [RFC2003]
	IPProtoTCP      IPProto = 6   // Transmission Control [RFC793]
	IPProtoUDP      IPProto = 17  // User Datagram [RFC768]
	IPProtoIPv6     IPProto = 41  // IPv6 encapsulation [RFC2473]
	IPProtoGRE      IPProto = 47  // Generic Routing Encapsulation [RFC2784]
	IPProtoESP      IPProto = 50  // Encap Security Payload [RFC4303]
	IPProtoAH       IPProto = 51  // Authentication Header [RFC4302]
	IPProtoIPv6ICMP IPProto = 58  // ICMP for IPv6 [RFC8200]
	IPProtoSCTP     IPProto = 132 // Stream Control Transmission Protocol
	IPProtoUDPLite  IPProto = 136 // UDPLite
)
