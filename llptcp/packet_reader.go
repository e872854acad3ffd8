package llptcp

import (
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/arloliu/go-llp/llp"
)

// packetReader reads and decodes individual LLP frames from a net.Conn.
//
// LLP carries no length field; a frame is delimited by a single transport
// read, matching the reference peers byte-for-byte:
//  1. Optionally arm a read deadline (zero timeout allows idle connections)
//  2. Read once into a bounded buffer of maxFrameSize bytes
//  3. Decode the chunk into a Packet via llp.DecodePacket
//
// A zero-length read signals peer closure and surfaces llp.ErrConnClosed.
// Decode failures keep their distinct llp sentinel errors so the caller can
// choose to drop the frame or tear the connection down.
//
// packetReader is NOT goroutine-safe. The caller must ensure that only one
// ReadPacket call is active at a time, consistent with the single-receiver
// design of an LLP connection.
type packetReader struct {
	buf []byte
}

func newPacketReader(maxFrameSize int) *packetReader {
	return &packetReader{buf: make([]byte, maxFrameSize)}
}

// ReadPacket reads one LLP frame from conn.
//
// timeout bounds the read; a non-positive timeout clears any deadline and
// blocks until a frame arrives or the peer closes. On success it returns
// the decoded packet; the packet owns its bytes, so the reader's buffer may
// be reused on the next call.
func (pr *packetReader) ReadPacket(conn net.Conn, timeout time.Duration) (*llp.Packet, error) {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, fmt.Errorf("set read deadline: %w", err)
	}

	n, err := conn.Read(pr.buf)
	if n == 0 {
		if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, llp.ErrConnClosed
		}

		return nil, fmt.Errorf("read frame: %w", err)
	}

	// A short read with a trailing error still carries one frame; decode it
	// and let the next ReadPacket surface the error.
	return llp.DecodePacket(pr.buf[:n])
}
