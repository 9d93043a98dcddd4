package protocol

const crcSeed = 0xFFFF

// CRC16 computes the CCITT checksum of data as carried in frame trailers.
func CRC16(data []byte) uint16 {
	crc := uint16(crcSeed)
	for _, b := range data {
		crc = crcStep(crc, b)
	}
	return crc
}

// crcStep folds one byte into a running checksum.
func crcStep(crc uint16, b byte) uint16 {
	x := b ^ byte(crc)
	x ^= x << 4
	w := uint16(x)
	return (w<<8 | crc>>8) ^ (w >> 4) ^ (w << 3)
}
