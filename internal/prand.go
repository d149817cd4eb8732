package internal

// Prand16 generates a pseudo random number from a seed using a 16 bit xorshift.
func Prand16(seed uint16) uint16 {
	seed ^= seed << 7
	seed ^= seed >> 9
	seed ^= seed << 8
	return seed
}
