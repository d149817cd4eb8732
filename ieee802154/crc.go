package ieee802154

import "encoding/binary"

// crcTable is the reflected ITU-T CRC-16 table (polynomial x^16+x^12+x^5+1).
var crcTable = makeCRCTable(0x8408)

func makeCRCTable(poly uint16) (tbl [256]uint16) {
	for i := range tbl {
		crc := uint16(i)
		for range 8 {
			if crc&1 != 0 {
				crc = crc>>1 ^ poly
			} else {
				crc >>= 1
			}
		}
		tbl[i] = crc
	}
	return tbl
}

// CRC16 calculates the frame check sequence of a MAC frame, a CRC-16/KERMIT
// over the MAC header and payload.
func CRC16(data []byte) uint16 {
	var crc uint16
	for _, b := range data {
		crc = crc>>8 ^ crcTable[byte(crc)^b]
	}
	return crc
}

// AppendFCS appends the little-endian FCS of frame to dst, for transceivers
// that do not generate it in hardware.
func AppendFCS(dst, frame []byte) []byte {
	return binary.LittleEndian.AppendUint16(dst, CRC16(frame))
}

// ValidFCS reports whether the last 2 bytes of frameWithFCS hold the correct FCS.
func ValidFCS(frameWithFCS []byte) bool {
	n := len(frameWithFCS) - SizeFCS
	if n < 0 {
		return false
	}
	return CRC16(frameWithFCS[:n]) == binary.LittleEndian.Uint16(frameWithFCS[n:])
}
