package llp

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
)

// ProtocolVersion is the LLP protocol version this implementation speaks.
const ProtocolVersion uint8 = 1

// NonceSize is the size of the handshake random nonce in bytes.
const NonceSize = 32

// ClientHello is the structured payload of a HandshakeInit packet.
//
// The nonce is a fixed-size byte array so it encodes as a JSON array of
// numbers, matching the reference peer's externally-tagged encoding.
type ClientHello struct {
	ClientRandom    [NonceSize]byte `json:"client_random"`
	ProtocolVersion uint8           `json:"protocol_version"`
}

// ServerHello is the structured payload of a HandshakeRsp packet.
//
// SessionID is an opaque identifier assigned by the responder; LLP does
// not interpret it beyond carrying it back to the initiator.
type ServerHello struct {
	ServerRandom    [NonceSize]byte `json:"server_random"`
	SessionID       string          `json:"session_id"`
	ProtocolVersion uint8           `json:"protocol_version,omitempty"`
}

// HandshakeMessage is the externally-tagged union of handshake payload
// variants. Exactly one field is set.
type HandshakeMessage struct {
	ClientHello *ClientHello `json:"ClientHello,omitempty"`
	ServerHello *ServerHello `json:"ServerHello,omitempty"`
}

// NewClientHello creates a ClientHello with a freshly generated
// cryptographically random nonce and the supported protocol version.
func NewClientHello() (*ClientHello, error) {
	hello := &ClientHello{ProtocolVersion: ProtocolVersion}
	if err := GenerateNonce(hello.ClientRandom[:]); err != nil {
		return nil, err
	}

	return hello, nil
}

// NewServerHello creates a ServerHello with a freshly generated responder
// nonce and the given session identifier.
func NewServerHello(sessionID string) (*ServerHello, error) {
	hello := &ServerHello{SessionID: sessionID, ProtocolVersion: ProtocolVersion}
	if err := GenerateNonce(hello.ServerRandom[:]); err != nil {
		return nil, err
	}

	return hello, nil
}

// GenerateNonce fills buf with cryptographically secure random bytes.
func GenerateNonce(buf []byte) error {
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return fmt.Errorf("%w: generate nonce: %w", ErrHandshakeFailed, err)
	}

	return nil
}

// EncodeHandshake serializes a handshake message into the structured text
// payload carried by a handshake packet.
func EncodeHandshake(msg *HandshakeMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("%w: encode payload: %w", ErrHandshakeFailed, err)
	}

	return data, nil
}

// DecodeHandshake deserializes a handshake packet payload.
func DecodeHandshake(data []byte) (*HandshakeMessage, error) {
	msg := &HandshakeMessage{}
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, fmt.Errorf("%w: decode payload: %w", ErrHandshakeFailed, err)
	}

	return msg, nil
}

// EncodeClientHello serializes a ClientHello into a HandshakeInit payload.
func EncodeClientHello(hello *ClientHello) ([]byte, error) {
	return EncodeHandshake(&HandshakeMessage{ClientHello: hello})
}

// EncodeServerHello serializes a ServerHello into a HandshakeRsp payload.
func EncodeServerHello(hello *ServerHello) ([]byte, error) {
	return EncodeHandshake(&HandshakeMessage{ServerHello: hello})
}

// DecodeClientHello deserializes a HandshakeInit payload and validates the
// requested protocol version.
//
// It returns ErrVersionMismatch if the initiator speaks a version other
// than ProtocolVersion; the responder must not establish such sessions.
func DecodeClientHello(data []byte) (*ClientHello, error) {
	msg, err := DecodeHandshake(data)
	if err != nil {
		return nil, err
	}

	if msg.ClientHello == nil {
		return nil, fmt.Errorf("%w: expected ClientHello payload", ErrHandshakeFailed)
	}

	if msg.ClientHello.ProtocolVersion != ProtocolVersion {
		return nil, fmt.Errorf("%w: %d", ErrVersionMismatch, msg.ClientHello.ProtocolVersion)
	}

	return msg.ClientHello, nil
}

// DecodeServerHello deserializes a HandshakeRsp payload.
func DecodeServerHello(data []byte) (*ServerHello, error) {
	msg, err := DecodeHandshake(data)
	if err != nil {
		return nil, err
	}

	if msg.ServerHello == nil {
		return nil, fmt.Errorf("%w: expected ServerHello payload", ErrHandshakeFailed)
	}

	return msg.ServerHello, nil
}
