package tcp

import (
	"github.com/soypat/lgate"
)

// OptionKind is the kind byte of a TCP option.
type OptionKind uint8

const (
	OptEnd            OptionKind = 0  // end of option list
	OptNop            OptionKind = 1  // no-operation
	OptMaxSegmentSize OptionKind = 2  // maximum segment size
	OptWindowScale    OptionKind = 3  // window scale
	OptSACKPermitted  OptionKind = 4  // SACK permitted
	OptSACK           OptionKind = 5  // SACK
	OptTimestamps     OptionKind = 8  // timestamps
	OptUserTimeout    OptionKind = 28 // user timeout
	OptFastOpenCookie OptionKind = 34 // fast open cookie
)

var (
	errOptionShort = lgate.Malformed("tcp: truncated option")
	errOptionSize  = lgate.Malformed("tcp: bad option length")
	errOptionKind  = lgate.Malformed("tcp: option kind has no length")
)

// PutOption writes a kind-length-data option to dst. End and no-operation
// options are single bytes and must be written directly.
func PutOption(dst []byte, kind OptionKind, data ...byte) (int, error) {
	putSize := 2 + len(data)
	if kind == OptNop || kind == OptEnd {
		return 0, errOptionKind
	} else if putSize > 255 {
		return 0, errOptionSize
	} else if len(dst) < putSize {
		return 0, lgate.ErrCapacity
	}
	dst[0] = byte(kind)
	dst[1] = byte(putSize)
	copy(dst[2:], data)
	return putSize, nil
}

// PutOption16 writes an option with a 16 bit big endian value, i.e. maximum segment size.
func PutOption16(dst []byte, kind OptionKind, v uint16) (int, error) {
	return PutOption(dst, kind, byte(v>>8), byte(v))
}

// ForEachOption calls fn for every option in opts until the end of option list.
// No-operation padding is skipped. Options of known kinds are checked for their fixed size.
func ForEachOption(opts []byte, fn func(OptionKind, []byte) error) error {
	off := 0
	for off < len(opts) && opts[off] != byte(OptEnd) {
		kind := OptionKind(opts[off])
		off++
		if kind == OptNop {
			continue
		}
		if off >= len(opts) {
			return errOptionShort
		}
		size := int(opts[off])
		off++
		dataLen := size - 2
		if dataLen < 0 || len(opts[off:]) < dataLen {
			return errOptionShort
		}
		expectSize := -1
		switch kind {
		case OptTimestamps:
			expectSize = 10
		case OptMaxSegmentSize, OptUserTimeout:
			expectSize = 4
		case OptWindowScale:
			expectSize = 3
		case OptSACKPermitted:
			expectSize = 2
		}
		if expectSize != -1 && size != expectSize {
			return errOptionSize
		}
		if err := fn(kind, opts[off:off+dataLen]); err != nil {
			return err
		}
		off += dataLen
	}
	return nil
}
