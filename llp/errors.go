package llp

import "errors"

var (
	// ErrTooShort indicates that a frame is shorter than the fixed 24-byte header.
	ErrTooShort = errors.New("frame shorter than header")

	// ErrBadMagic indicates that the protocol identifier of a frame does not
	// match the LLP magic constant.
	ErrBadMagic = errors.New("protocol identifier mismatch")

	// ErrChecksumMismatch indicates that the transmitted checksum of a frame
	// does not match the checksum recomputed over its contents.
	//
	// A checksum mismatch is a per-frame integrity failure; it does not imply
	// that the connection is unusable. Callers decide whether to drop the
	// frame or terminate the session.
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrPayloadTooLarge indicates that a payload exceeds the maximum frame size.
	ErrPayloadTooLarge = errors.New("payload exceeds maximum frame size")
)

var (
	// ErrUnexpectedPacketType indicates that a peer replied with a packet type
	// other than the one the protocol exchange expects.
	ErrUnexpectedPacketType = errors.New("unexpected packet type")

	// ErrConnClosed indicates that the transport signaled end-of-stream while
	// a response was expected.
	ErrConnClosed = errors.New("connection closed")

	// ErrNotEstablished indicates that an operation requiring an established
	// session was attempted before the handshake completed.
	ErrNotEstablished = errors.New("session not established")

	// ErrHandshakeFailed indicates that the session handshake did not complete.
	ErrHandshakeFailed = errors.New("handshake failed")

	// ErrVersionMismatch indicates that the peer requested an unsupported
	// protocol version during the handshake.
	ErrVersionMismatch = errors.New("unsupported protocol version")
)

var (
	// ErrInvalidTransition is returned when an attempt is made to transition the
	// session state to an invalid state.
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrConnConfigNil indicates that a nil connection configuration was provided.
	ErrConnConfigNil = errors.New("connection config is nil")
)
