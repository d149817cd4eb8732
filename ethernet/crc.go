package ethernet

import (
	"encoding/binary"
	"hash/crc32"
)

// crcTable is the IEEE CRC-32 table used for Ethernet FCS calculation.
var crcTable = crc32.MakeTable(crc32.IEEE)

// CRC32 calculates the Ethernet Frame Check Sequence (FCS) for the given data.
// The CRC is computed using the IEEE 802.3 CRC-32 polynomial.
// The input should be the frame data from destination MAC through payload,
// excluding any existing FCS.
func CRC32(data []byte) uint32 {
	return crc32.Checksum(data, crcTable)
}

// AppendFCS appends the little-endian frame check sequence of frame to dst.
// Transceivers that do not generate the FCS in hardware need it appended before transmission.
func AppendFCS(dst, frame []byte) []byte {
	return binary.LittleEndian.AppendUint32(dst, CRC32(frame))
}

// ValidFCS reports whether the last 4 bytes of frameWithFCS hold the correct FCS for the preceding bytes.
func ValidFCS(frameWithFCS []byte) bool {
	n := len(frameWithFCS) - SizeFCS
	if n < 0 {
		return false
	}
	return CRC32(frameWithFCS[:n]) == binary.LittleEndian.Uint32(frameWithFCS[n:])
}
