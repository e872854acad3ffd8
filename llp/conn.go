package llp

import (
	"github.com/arloliu/go-llp/logger"
)

// DataHandler is a function type that represents a handler for received
// LLP data packets.
//
// The handler function receives two arguments:
//   - p: The received Data packet.
//   - session: The Session associated with the received packet.
type DataHandler func(p *Packet, session Session)

// Connection defines the interface for an LLP connection.
type Connection interface {
	// Open establishes the LLP connection.
	// If waitEstablished is true, it blocks until the session handshake
	// completes or an error occurs.
	// If waitEstablished is false, it returns immediately after initiating the
	// connection process.
	Open(waitEstablished bool) error

	// Close closes the LLP connection.
	Close() error

	// Session returns the session associated with the connection.
	Session() Session

	// State returns the current session state of the connection.
	State() ConnState

	// GetLogger returns the logger associated with the LLP connection.
	GetLogger() logger.Logger
}

// Session defines the interface of an LLP session within a connection.
//
// All request/reply methods are synchronous: a send is immediately followed
// by a blocking receive where a reply is expected. Concurrent callers are
// serialized internally so partial frames never interleave.
type Session interface {
	// ID returns the session identifier assigned by the responder during the
	// handshake, or an empty string before the session is established.
	ID() string

	// Keepalive sends a Keepalive packet and blocks for the reply.
	//
	// It returns true if the peer replied with a Keepalive packet. A reply of
	// any other packet type, or a decode failure of the reply, is reported as
	// liveness failure (false with a nil error); the caller decides whether
	// to abort. Transport errors are returned as non-nil errors.
	Keepalive() (bool, error)

	// SendData sends a Data packet on the given stream. No reply is awaited.
	SendData(streamID uint16, flags byte, payload []byte) error

	// SendDisconnect sends a Disconnect packet with an empty payload.
	// It is fire-and-forget; no response is expected.
	SendDisconnect() error

	// AddConnStateChangeHandler adds one or more ConnStateChangeHandler
	// functions to be invoked when the session state changes.
	AddConnStateChangeHandler(handlers ...ConnStateChangeHandler)

	// AddDataHandler adds one or more DataHandler functions to be invoked
	// when a data packet is received.
	AddDataHandler(handlers ...DataHandler)
}
