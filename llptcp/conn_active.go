package llptcp

import (
	"fmt"
	"net"

	"github.com/arloliu/go-llp/internal/pool"
	"github.com/arloliu/go-llp/llp"
)

// openActive dials the remote peer and performs the initiator handshake.
//
// The handshake is single-shot: a failure is surfaced and the connection is
// torn down; there is no automatic retry or renegotiation at this layer.
func (c *Connection) openActive(waitEstablished bool) error {
	addr := c.addr()

	c.logger.Debug("connecting to remote peer", "addr", addr)

	conn, err := net.DialTimeout("tcp", addr, c.cfg.connectRemoteTimeout)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", addr, err)
	}

	sess := c.newBoundSession(conn)

	c.sessionMu.Lock()
	c.session = sess
	c.sessionMu.Unlock()

	if err := sess.stateMgr.ToIdle(); err != nil {
		sess.closeConn()
		return err
	}

	if waitEstablished {
		return c.establishSession(sess)
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		if err := c.establishSession(sess); err != nil {
			c.logger.Error("failed to establish session", "addr", addr, "error", err)
		}
	}()

	return nil
}

// establishSession runs the handshake on sess and starts the automatic
// keepalive task when enabled.
func (c *Connection) establishSession(sess *Session) error {
	if err := sess.handshake(); err != nil {
		c.metrics.incHandshakeErrCount()
		sess.closeConn()

		return err
	}

	c.metrics.incHandshakeCount()
	c.metrics.incSessionGauge()

	if c.cfg.AutoKeepalive() {
		c.wg.Add(1)
		go c.keepaliveTask(sess)
	}

	return nil
}

// keepaliveTask sends periodic keepalive requests until the context is
// done or a liveness failure occurs.
//
// A liveness failure (non-keepalive reply, malformed reply, or transport
// fault) stops the task and transitions the session to not-connected; the
// caller owns the decision to reconnect.
func (c *Connection) keepaliveTask(sess *Session) {
	defer c.wg.Done()
	defer c.logger.Debug("keepalive task terminated")

	for {
		timer := pool.GetTimer(c.cfg.KeepaliveInterval())

		select {
		case <-c.ctx.Done():
			pool.PutTimer(timer)
			return

		case <-timer.C:
			pool.PutTimer(timer)

			alive, err := sess.Keepalive()
			if err != nil {
				c.logger.Warn("keepalive failed", "error", err)
				sess.stateMgr.ToNotConnectedAsync()

				return
			}

			if !alive {
				c.logger.Warn("peer reported not alive, stop keepalive task", "session_id", sess.ID())
				sess.stateMgr.ToNotConnectedAsync()

				return
			}

			c.logger.Debug("keepalive round-trip ok", "session_id", sess.ID())
		}
	}
}

// Keepalive performs one synchronous keepalive round-trip on the initiator
// session. It is a convenience wrapper over Session.Keepalive for callers
// that disabled automatic keepalive.
func (c *Connection) Keepalive() (bool, error) {
	sess := c.Session()
	if sess == nil {
		return false, llp.ErrNotEstablished
	}

	return sess.Keepalive()
}
