// Package llptcp implements the LLP protocol over TCP, providing active
// (initiator/client) and passive (responder/server) connection modes.
//
// An active connection dials the remote peer, performs the single-shot
// session handshake (HandshakeInit → HandshakeRsp) and optionally runs an
// automatic keepalive task. A passive connection listens for peers, answers
// their handshakes with freshly minted session identifiers, echoes
// keepalives, dispatches data packets to registered handlers and honors
// graceful disconnects; established peer sessions are tracked in a
// concurrent registry keyed by session id.
//
// The package follows the protocol's synchronous model: every exchange that
// expects a reply blocks until the reply arrives or the transport aborts
// the read, and concurrent senders are serialized per session so partial
// frames never interleave.
//
// Basic active usage:
//
//	cfg, err := llptcp.NewConnectionConfig("127.0.0.1", 8443,
//		llptcp.WithActive(),
//		llptcp.WithKeepaliveInterval(10*time.Second),
//	)
//	if err != nil {
//		// handle error
//	}
//
//	conn, err := llptcp.NewConnection(ctx, cfg)
//	if err != nil {
//		// handle error
//	}
//
//	if err := conn.Open(true); err != nil {
//		// handshake failed
//	}
//	defer conn.Close()
//
//	alive, err := conn.Session().Keepalive()
package llptcp
