package llp

import "fmt"

// StreamID identifies a logical stream grouping packets within a session.
//
// Stream 0 is the control stream carrying handshake, keepalive and
// disconnect packets. Streams are wire fields only at this layer; LLP
// does not reorder or deduplicate per stream.
type StreamID uint16

// ControlStream is the reserved default/control stream.
const ControlStream StreamID = 0

// IsControl reports whether the stream is the control stream.
func (s StreamID) IsControl() bool {
	return s == ControlStream
}

// String returns the string representation of the stream identifier.
func (s StreamID) String() string {
	return fmt.Sprintf("stream(%d)", uint16(s))
}
