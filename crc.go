package lgate

import (
	"encoding/binary"
)

// CRC791 function as defined by RFC 791. The Checksum field for TCP+IP
// is the 16-bit ones' complement of the ones' complement sum of
// all 16-bit words in the header. In case of uneven number of octet the
// last word is LSB padded with zeros.
//
// CRC791 is streaming: data may be written in segments of any length,
// including odd lengths, and the result equals the checksum of the
// concatenated segments. The zero value of CRC791 is ready to use.
type CRC791 struct {
	sum uint32
	// odd is set when the last written byte occupies the high half of a word.
	odd bool
}

func checksum16(sum uint32) uint16 {
	sum = (sum & 0xffff) + sum>>16
	// the max value of sum at this point is 0x1fffe, so an additional round is enough
	return ^uint16(sum + sum>>16)
}

func fold(sum uint32) uint32 {
	sum = (sum & 0xffff) + sum>>16
	return (sum & 0xffff) + sum>>16
}

func checksumWriteEven(sum uint32, buff []byte) uint32 {
	for len(buff) >= 2 {
		sum += uint32(binary.BigEndian.Uint16(buff))
		buff = buff[2:]
		if sum&0x8000_0000 != 0 {
			sum = fold(sum)
		}
	}
	return sum
}

// Write adds the bytes in buff to the running checksum. It never returns an error.
// Successive writes need not be word aligned.
func (c *CRC791) Write(buff []byte) (int, error) {
	n := len(buff)
	if n == 0 {
		return 0, nil
	}
	if c.odd {
		c.sum += uint32(buff[0])
		c.odd = false
		buff = buff[1:]
	}
	odd := len(buff) & 1
	c.sum = fold(checksumWriteEven(c.sum, buff[:len(buff)-odd]))
	if odd != 0 {
		c.sum += uint32(buff[len(buff)-1]) << 8
		c.odd = true
	}
	return n, nil
}

// WriteEven adds the bytes in buff to the running checksum. The stream must be
// word aligned and the buffer size must be even or the function will panic.
func (c *CRC791) WriteEven(buff []byte) {
	if c.odd || len(buff)&1 != 0 {
		panic("CRC791: unaligned WriteEven")
	}
	c.sum = fold(checksumWriteEven(c.sum, buff))
}

// AddUint32 adds a 32 bit value to the running checksum interpreted as BigEndian (network order).
func (c *CRC791) AddUint32(value uint32) {
	c.AddUint16(uint16(value >> 16))
	c.AddUint16(uint16(value))
}

// AddUint16 adds a 16 bit value to the running checksum interpreted as BigEndian (network order).
// The stream must be word aligned.
func (c *CRC791) AddUint16(value uint16) {
	if c.odd {
		panic("CRC791: unaligned AddUint16")
	}
	c.sum = fold(c.sum + uint32(value))
}

// Sum16 calculates the checksum with the data written to c thus far.
func (c *CRC791) Sum16() uint16 {
	return checksum16(c.sum)
}

// PayloadSum16 returns the checksum resulting by adding the bytes in buff to the running checksum.
// c is not modified.
func (c *CRC791) PayloadSum16(buff []byte) uint16 {
	c2 := *c
	c2.Write(buff)
	return c2.Sum16()
}

// Reset zeros out the CRC791, resetting it to the initial state.
func (c *CRC791) Reset() { *c = CRC791{} }

// NeverZeroChecksum ensures that the given checksum is not zero, by returning 0xffff instead.
func NeverZeroChecksum(sum16 uint16) uint16 {
	// 0x0000 and 0xffff are the same number in ones' complement math
	if sum16 == 0 {
		return 0xffff
	}
	return sum16
}

// UpdateChecksum16 returns the checksum that results from replacing the
// 16 bit word oldWord with newWord in data whose checksum is sum, as
// described by RFC 1624 (HC' = ~(~HC + ~m + m')).
func UpdateChecksum16(sum, oldWord, newWord uint16) uint16 {
	s := uint32(^sum) + uint32(^oldWord) + uint32(newWord)
	s = fold(s)
	return ^uint16(s)
}

// UpdateChecksum32 is like [UpdateChecksum16] for a 32 bit aligned field such as an IPv4 address.
func UpdateChecksum32(sum uint16, oldValue, newValue uint32) uint16 {
	sum = UpdateChecksum16(sum, uint16(oldValue>>16), uint16(newValue>>16))
	return UpdateChecksum16(sum, uint16(oldValue), uint16(newValue))
}
