package llp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRC16_KnownVectors(t *testing.T) {
	tests := []struct {
		description string
		input       []byte
		expected    uint16
	}{
		{
			description: "standard check vector",
			input:       []byte("123456789"),
			expected:    0x29B1,
		},
		{
			description: "empty input returns the initial register",
			input:       []byte{},
			expected:    0xFFFF,
		},
		{
			description: "nil input",
			input:       nil,
			expected:    0xFFFF,
		},
		{
			description: "single byte",
			input:       []byte("A"),
			expected:    0xB915,
		},
		{
			description: "single zero byte",
			input:       []byte{0x00},
			expected:    0xE1F0,
		},
		{
			description: "24 zero bytes",
			input:       make([]byte, 24),
			expected:    0xEF8A,
		},
		{
			description: "ascii text",
			input:       []byte("Hello, LLP!"),
			expected:    0x163B,
		},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			require.Equal(t, test.expected, CRC16(test.input))
		})
	}
}

func TestCRC16Update_SplitEqualsWhole(t *testing.T) {
	require := require.New(t)

	data := []byte("123456789")
	whole := CRC16(data)

	for split := 0; split <= len(data); split++ {
		crc := CRC16(data[:split])
		crc = CRC16Update(crc, data[split:])
		require.Equal(whole, crc, "split at %d", split)
	}
}

func TestCRC16_SingleBitSensitivity(t *testing.T) {
	require := require.New(t)

	base := []byte("The quick brown fox jumps over the lazy dog")
	expected := CRC16(base)

	// Flipping any single bit must change the checksum; CRC16 detects all
	// single-bit errors by construction.
	for i := range base {
		for bit := 0; bit < 8; bit++ {
			mutated := make([]byte, len(base))
			copy(mutated, base)
			mutated[i] ^= 1 << bit

			require.NotEqual(expected, CRC16(mutated), "byte %d bit %d", i, bit)
		}
	}
}
