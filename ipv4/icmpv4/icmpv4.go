package icmpv4

import (
	"encoding/binary"

	"github.com/soypat/lgate"
)

type Type uint8

const (
	TypeEchoReply Type = 0 // echo reply
	TypeEcho      Type = 8 // echo

	TypeDestinationUnreachable Type = 3 // destination unreachable
	TypeSourceQuench           Type = 4 // source quench
	TypeRedirect               Type = 5 // redirect

	TypeTimeExceeded     Type = 11 // time exceeded
	TypeParameterProblem Type = 12 // parameter problem

	TypeTimestamp      Type = 13 // timestamp
	TypeTimestampReply Type = 14 // timestamp reply

	TypeInfoRequest      Type = 15 // information request
	TypeInfoRequestReply Type = 16 // information request reply
)

type CodeTimeExceeded uint8

const (
	CodeExceededInTransit  CodeTimeExceeded = iota // TTL exceeded in transit
	CodeFragmentReassembly                         // fragment reassembly time exceeded
)

type CodeDestinationUnreachable uint8

const (
	CodeNetUnreachable     CodeDestinationUnreachable = iota // net unreachable
	CodeHostUnreachable                                      // host unreachable
	CodeProtoUnreachable                                     // protocol unreachable
	CodePortUnreachable                                      // port unreachable
	CodeFragNeededAndDFSet                                   // fragmentation needed and DF set
	CodeSourceRouteFailed                                    // source route failed
)

type CodeRedirect uint8

const (
	CodeRedirectForNetwork       CodeRedirect = iota // redirect for network
	CodeRedirectForHost                              // redirect for host
	CodeRedirectForToSAndNetwork                     // redirect for ToS+network
	CodeRedirectToSAndHost                           // redirect for ToS+host
)

var (
	errShortFrame = lgate.Malformed("icmpv4: short frame")
	errBadCRC     = lgate.BadCRC("icmpv4: checksum mismatch")
	errNotEcho    = lgate.Malformed("icmpv4: not an echo request")
)

// NewFrame returns a Frame with data set to buf.
// An error is returned if the buffer size is smaller than 8.
func NewFrame(buf []byte) (Frame, error) {
	if len(buf) < sizeHeader {
		return Frame{}, errShortFrame
	}
	return Frame{buf: buf}, nil
}

// Parse returns a view of the ICMP message in buf after verifying its checksum,
// which covers the whole message.
func Parse(buf []byte) (Frame, error) {
	frm, err := NewFrame(buf)
	if err != nil {
		return frm, err
	}
	var crc lgate.CRC791
	crc.Write(buf)
	if crc.Sum16() != 0 {
		return Frame{}, errBadCRC
	}
	return frm, nil
}

const sizeHeader = 8

// Frame encapsulates the raw data of an ICMP message. See [RFC792].
//
// [RFC792]: https://tools.ietf.org/html/rfc792
type Frame struct {
	buf []byte
}

// RawData returns the underlying slice with which the frame was created.
func (frm Frame) RawData() []byte { return frm.buf }

func (frm Frame) Type() Type { return Type(frm.buf[0]) }

func (frm Frame) SetType(t Type) { frm.buf[0] = uint8(t) }

func (frm Frame) Code() uint8 { return frm.buf[1] }

func (frm Frame) SetCode(code uint8) { frm.buf[1] = code }

// CRC returns the checksum field of the frame.
func (frm Frame) CRC() uint16 {
	return binary.BigEndian.Uint16(frm.buf[2:4])
}

// SetCRC sets the checksum field of the frame.
func (frm Frame) SetCRC(crc uint16) {
	binary.BigEndian.PutUint16(frm.buf[2:4], crc)
}

// CRCWrite calculates the checksum of the ICMP packet. Treats the checksum field as zero as per RFC 792.
func (frm Frame) CRCWrite(crc *lgate.CRC791) {
	crc.AddUint16(binary.BigEndian.Uint16(frm.buf[0:2]))
	crc.Write(frm.buf[4:])
}

// Echo returns the frame as an echo request or reply.
func (frm Frame) Echo() FrameEcho { return FrameEcho{Frame: frm} }

type FrameDestinationUnreachable struct {
	Frame
}

func (frm FrameDestinationUnreachable) Code() CodeDestinationUnreachable {
	return CodeDestinationUnreachable(frm.Frame.Code())
}

func (frm FrameDestinationUnreachable) SetCode(code CodeDestinationUnreachable) {
	frm.Frame.SetCode(uint8(code))
}

// FrameEcho is an echo request or echo reply message.
type FrameEcho struct {
	Frame
}

func (frm FrameEcho) Identifier() uint16 {
	return binary.BigEndian.Uint16(frm.buf[4:6])
}

func (frm FrameEcho) SetIdentifier(id uint16) {
	binary.BigEndian.PutUint16(frm.buf[4:6], id)
}

func (frm FrameEcho) SequenceNumber() uint16 {
	return binary.BigEndian.Uint16(frm.buf[6:8])
}

func (frm FrameEcho) SetSequenceNumber(seq uint16) {
	binary.BigEndian.PutUint16(frm.buf[6:8], seq)
}

func (frm FrameEcho) Data() []byte {
	return frm.buf[8:]
}

// ReplyInPlace turns an echo request into its echo reply, keeping identifier,
// sequence number and data. The checksum is updated incrementally.
func (frm FrameEcho) ReplyInPlace() error {
	if frm.Type() != TypeEcho || frm.Code() != 0 {
		return errNotEcho
	}
	oldWord := binary.BigEndian.Uint16(frm.buf[0:2])
	frm.SetType(TypeEchoReply)
	newWord := binary.BigEndian.Uint16(frm.buf[0:2])
	frm.SetCRC(lgate.UpdateChecksum16(frm.CRC(), oldWord, newWord))
	return nil
}

// Header is the value representation of the ICMP header. ID and Seq are the
// rest-of-header words used by echo messages.
type Header struct {
	Type Type
	Code uint8
	ID   uint16
	Seq  uint16
}

// Len returns the serialized header length.
func (h Header) Len() int { return sizeHeader }

// Put writes the message to dst with a computed checksum. payload may alias dst
// at offset 8. If dst is too small nothing is written and [lgate.ErrCapacity] is returned.
func (h Header) Put(dst, payload []byte) (int, error) {
	n := sizeHeader + len(payload)
	if len(dst) < n {
		return 0, lgate.ErrCapacity
	}
	copy(dst[sizeHeader:], payload)
	frm := FrameEcho{Frame{buf: dst[:n]}}
	frm.SetType(h.Type)
	frm.SetCode(h.Code)
	frm.SetIdentifier(h.ID)
	frm.SetSequenceNumber(h.Seq)
	var crc lgate.CRC791
	frm.CRCWrite(&crc)
	frm.SetCRC(crc.Sum16())
	return n, nil
}

// Encode is an alias of [Header.Put].
func (h Header) Encode(dst, payload []byte) (int, error) { return h.Put(dst, payload) }
