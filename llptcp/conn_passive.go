package llptcp

import (
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"

	"github.com/arloliu/go-llp/llp"
)

// openPassive starts listening on the configured address and serves each
// accepted peer on its own goroutine.
func (c *Connection) openPassive() error {
	addr := c.addr()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}

	c.listenerMu.Lock()
	c.listener = listener
	c.listenerMu.Unlock()

	c.logger.Info("listening for LLP peers", "addr", addr)

	c.wg.Add(1)
	go c.acceptLoop(listener)

	return nil
}

func (c *Connection) acceptLoop(listener net.Listener) {
	defer c.wg.Done()
	defer c.logger.Debug("accept loop terminated")

	for {
		conn, err := listener.Accept()
		if err != nil {
			if c.shutdown.Load() || errors.Is(err, net.ErrClosed) {
				return
			}

			c.logger.Error("accept failed", "error", err)

			continue
		}

		c.logger.Debug("peer connected", "peer", conn.RemoteAddr().String())

		sess := c.newBoundSession(conn)
		if err := sess.stateMgr.ToIdle(); err != nil {
			c.logger.Error("failed to initialize peer session", "error", err)
			sess.closeConn()

			continue
		}

		c.wg.Add(1)
		go c.serveSession(sess)
	}
}

// serveSession runs the responder loop for one peer: answer the handshake,
// echo keepalives, dispatch data packets and honor disconnects.
//
// Per-frame decode failures (short frame, bad magic, checksum mismatch) are
// logged and dropped without tearing the peer down; framing is offset
// based, so later frames are unaffected. Any packet other than a
// HandshakeInit received before the session is established terminates the
// peer.
func (c *Connection) serveSession(sess *Session) {
	defer c.wg.Done()
	defer c.removeSession(sess)

	peer := sess.conn.RemoteAddr().String()

	for {
		if c.shutdown.Load() {
			return
		}

		// No deadline between frames; idle peers stay connected and are
		// policed by their own keepalive traffic.
		pkt, err := sess.readPacket(0)
		if err != nil {
			if isDecodeError(err) {
				c.metrics.incDecodeErrCount()
				c.logger.Warn("frame dropped by decode failure", "peer", peer, "error", err)

				continue
			}

			if !errors.Is(err, llp.ErrConnClosed) && !c.shutdown.Load() {
				c.logger.Warn("peer read failed", "peer", peer, "error", err)
			}

			return
		}

		if !sess.stateMgr.IsEstablished() && pkt.Type() != llp.HandshakeInitType {
			c.logger.Warn("packet received before handshake, closing peer",
				llp.PacketInfo(pkt, "peer", peer)...,
			)

			return
		}

		switch pkt.Type() {
		case llp.HandshakeInitType:
			if err := c.handleHandshakeInit(sess, pkt); err != nil {
				c.metrics.incHandshakeErrCount()
				c.logger.Warn("handshake failed", "peer", peer, "error", err)

				return
			}

		case llp.KeepaliveType:
			rsp, err := llp.NewKeepaliveRsp(pkt)
			if err != nil {
				c.logger.Error("failed to build keepalive reply", "peer", peer, "error", err)
				return
			}

			sess.txMu.Lock()
			err = sess.writePacket(rsp)
			sess.txMu.Unlock()

			if err != nil {
				c.logger.Warn("failed to reply keepalive", "peer", peer, "error", err)
				return
			}

			c.metrics.incKeepaliveRecvCount()
			c.logger.Debug("keepalive echoed", "peer", peer, "session_id", sess.ID())

		case llp.DisconnectType:
			c.logger.Info("peer disconnected gracefully", "peer", peer, "session_id", sess.ID())
			return

		case llp.DataType:
			c.metrics.incDataRecvCount()
			sess.invokeDataHandlers(pkt)

		case llp.AckType:
			// Reserved code: carried but without semantics at this layer.
			c.logger.Debug("ack packet ignored", llp.PacketInfo(pkt, "peer", peer)...)

		default:
			c.logger.Warn("undefined packet type dropped",
				"peer", peer, "raw_type", pkt.RawType(),
			)
		}
	}
}

// handleHandshakeInit performs the responder side of the handshake: decode
// and validate the ClientHello, mint a session identifier, reply with a
// ServerHello and establish the session.
func (c *Connection) handleHandshakeInit(sess *Session, pkt *llp.Packet) error {
	if err := sess.stateMgr.ToHelloReceived(); err != nil {
		// A second HandshakeInit on an established session is a protocol
		// violation; there is no renegotiation.
		return fmt.Errorf("%w: %w", llp.ErrHandshakeFailed, err)
	}

	clientHello, err := llp.DecodeClientHello(pkt.Payload())
	if err != nil {
		return err
	}

	sessionID := uuid.NewString()

	serverHello, err := llp.NewServerHello(sessionID)
	if err != nil {
		return err
	}

	payload, err := llp.EncodeServerHello(serverHello)
	if err != nil {
		return err
	}

	rsp, err := llp.NewHandshakeRsp(pkt, payload)
	if err != nil {
		return err
	}

	sess.txMu.Lock()
	err = sess.writePacket(rsp)
	sess.txMu.Unlock()

	if err != nil {
		return fmt.Errorf("%w: %w", llp.ErrHandshakeFailed, err)
	}

	sess.setID(sessionID)

	if err := sess.stateMgr.ToEstablished(); err != nil {
		return err
	}

	c.sessions.Store(sessionID, sess)
	c.metrics.incHandshakeCount()
	c.metrics.incSessionGauge()

	c.logger.Info("peer session established",
		"peer", sess.conn.RemoteAddr().String(),
		"session_id", sessionID,
		"version", clientHello.ProtocolVersion,
	)

	return nil
}

// removeSession tears a peer session down and unregisters it.
func (c *Connection) removeSession(sess *Session) {
	if id := sess.ID(); id != "" {
		if _, ok := c.sessions.LoadAndDelete(id); ok {
			c.metrics.decSessionGauge()
		}
	}

	sess.closeConn()
}
