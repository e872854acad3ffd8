package llp

// crc16Init is the initial register value of the CRC-16/CCITT-FALSE variant.
const crc16Init uint16 = 0xFFFF

// crc16Poly is the generator polynomial of the CRC-16/CCITT-FALSE variant.
const crc16Poly uint16 = 0x1021

// CRC16 computes the CRC-16/CCITT-FALSE checksum of data.
//
// The variant uses initial value 0xFFFF, polynomial 0x1021, no input or
// output reflection and no final XOR. The check value for the standard
// test vector "123456789" is 0x29B1.
//
// This exact bit-level procedure is part of the LLP wire contract; every
// peer must reproduce it identically to interoperate.
func CRC16(data []byte) uint16 {
	return CRC16Update(crc16Init, data)
}

// CRC16Update continues a CRC-16/CCITT-FALSE computation with additional data.
//
// It allows the frame checksum to be computed over the header and payload
// without concatenating them into a single buffer:
//
//	crc := llp.CRC16(header)
//	crc = llp.CRC16Update(crc, payload)
func CRC16Update(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ crc16Poly
			} else {
				crc <<= 1
			}
		}
	}

	return crc
}
