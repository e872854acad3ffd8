package llp

import (
	"encoding/binary"
	"fmt"

	"github.com/arloliu/go-llp/internal/util"
)

// DecodePacket decodes an LLP frame from the given byte slice.
//
// data must contain exactly one frame: the 24-byte header followed by the
// payload, whose length is implied by the total frame length.
//
// Decode failures are reported with distinct sentinel errors so callers
// can choose how to react:
//   - ErrTooShort if the frame is shorter than the fixed header,
//   - ErrBadMagic if the protocol identifier does not match ProtocolID,
//   - ErrChecksumMismatch if the transmitted checksum does not match the
//     checksum recomputed over header[0:22] plus the payload.
//
// None of these failures is fatal to the connection by default; framing is
// purely offset based, so a rejected frame does not corrupt later frames.
//
// Reserved packet type codes decode successfully and are carried as-is;
// rejecting them here would make future extension codes undeployable.
func DecodePacket(data []byte) (*Packet, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooShort, len(data))
	}

	protocolID := binary.BigEndian.Uint16(data[0:2])
	if protocolID != ProtocolID {
		return nil, fmt.Errorf("%w: 0x%04X", ErrBadMagic, protocolID)
	}

	p := &Packet{
		header:  util.CloneSlice(data[:HeaderSize], HeaderSize),
		payload: util.CloneSlice(data[HeaderSize:], 0),
	}

	if !p.VerifyChecksum() {
		return nil, fmt.Errorf("%w: expected 0x%04X, got 0x%04X",
			ErrChecksumMismatch, p.computeChecksum(), p.Checksum())
	}

	return p, nil
}
