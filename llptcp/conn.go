package llptcp

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-llp/internal/pool"

	"github.com/arloliu/go-llp/llp"
	"github.com/arloliu/go-llp/logger"
)

// Connection is an LLP connection over TCP.
//
// In active mode it dials the configured remote peer, performs the session
// handshake and optionally runs automatic keepalive. In passive mode it
// listens on the configured address, serves each accepted peer on its own
// goroutine and tracks live sessions in a registry keyed by session id.
type Connection struct {
	cfg       *ConnectionConfig
	ctx       context.Context
	ctxCancel context.CancelFunc
	logger    logger.Logger
	metrics   ConnectionMetrics
	shutdown  atomic.Bool
	wg        sync.WaitGroup

	// active mode: the single initiator session.
	sessionMu sync.RWMutex
	session   *Session

	// passive mode: listener and established peer sessions by session id.
	listenerMu sync.Mutex
	listener   net.Listener
	sessions   *xsync.MapOf[string, *Session]

	handlerMu     sync.Mutex
	dataHandlers  []llp.DataHandler
	stateHandlers []llp.ConnStateChangeHandler
}

// ensure Connection implements the llp.Connection interface.
var _ llp.Connection = (*Connection)(nil)

// NewConnection creates a new LLP TCP connection with the given
// configuration. Call Open to start it.
func NewConnection(ctx context.Context, cfg *ConnectionConfig) (*Connection, error) {
	if cfg == nil {
		return nil, llp.ErrConnConfigNil
	}

	cctx, cancel := context.WithCancel(ctx)

	c := &Connection{
		cfg:       cfg,
		ctx:       cctx,
		ctxCancel: cancel,
		logger:    cfg.logger,
		sessions:  xsync.NewMapOf[string, *Session](),
	}

	return c, nil
}

// Open establishes the LLP connection.
//
// In active mode it dials the remote peer and performs the handshake; if
// waitEstablished is true it blocks until the session is established or the
// handshake fails, otherwise the handshake proceeds in the background.
//
// In passive mode it starts listening and returns; waitEstablished is
// ignored since peers arrive asynchronously.
func (c *Connection) Open(waitEstablished bool) error {
	if c.shutdown.Load() {
		return llp.ErrConnClosed
	}

	if c.cfg.IsActive() {
		return c.openActive(waitEstablished)
	}

	return c.openPassive()
}

// Close closes the LLP connection, all live sessions and, in passive mode,
// the listener. It is safe to call more than once.
func (c *Connection) Close() error {
	if !c.shutdown.CompareAndSwap(false, true) {
		return nil
	}

	c.logger.Debug("closing LLP connection")

	c.sessionMu.RLock()
	if c.session != nil {
		c.session.closeConn()
	}
	c.sessionMu.RUnlock()

	c.listenerMu.Lock()
	if c.listener != nil {
		_ = c.listener.Close()
	}
	c.listenerMu.Unlock()

	c.sessions.Range(func(_ string, sess *Session) bool {
		sess.closeConn()
		return true
	})

	c.ctxCancel()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	timer := pool.GetTimer(c.cfg.closeConnTimeout)
	defer pool.PutTimer(timer)

	select {
	case <-done:
		return nil
	case <-timer.C:
		return fmt.Errorf("close connection: %w", context.DeadlineExceeded)
	}
}

// Session returns the initiator session in active mode. In passive mode it
// returns nil; peer sessions are delivered to registered handlers and are
// reachable through GetSession and RangeSessions.
func (c *Connection) Session() llp.Session {
	c.sessionMu.RLock()
	defer c.sessionMu.RUnlock()

	if c.session == nil {
		return nil
	}

	return c.session
}

// State returns the session state of the initiator session in active mode,
// or NotConnectedState when no session exists.
func (c *Connection) State() llp.ConnState {
	c.sessionMu.RLock()
	defer c.sessionMu.RUnlock()

	if c.session == nil {
		return llp.NotConnectedState
	}

	return c.session.State()
}

// GetLogger returns the logger associated with the LLP connection.
func (c *Connection) GetLogger() logger.Logger {
	return c.logger
}

// Metrics returns the connection metrics.
func (c *Connection) Metrics() *ConnectionMetrics {
	return &c.metrics
}

// GetSession returns the established peer session with the given session
// id, if any. It is only meaningful in passive mode.
func (c *Connection) GetSession(sessionID string) (*Session, bool) {
	return c.sessions.Load(sessionID)
}

// RangeSessions iterates the established peer sessions. The iteration stops
// when f returns false.
func (c *Connection) RangeSessions(f func(sessionID string, sess *Session) bool) {
	c.sessions.Range(f)
}

// AddDataHandler adds one or more DataHandler functions invoked when a data
// packet is received. Handlers registered before Open apply to every
// session the connection creates or accepts.
func (c *Connection) AddDataHandler(handlers ...llp.DataHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.dataHandlers = append(c.dataHandlers, handlers...)
}

// AddConnStateChangeHandler adds one or more ConnStateChangeHandler
// functions invoked when a session state changes. Handlers registered
// before Open apply to every session the connection creates or accepts.
func (c *Connection) AddConnStateChangeHandler(handlers ...llp.ConnStateChangeHandler) {
	c.handlerMu.Lock()
	defer c.handlerMu.Unlock()
	c.stateHandlers = append(c.stateHandlers, handlers...)
}

// newBoundSession creates a session over conn with the connection's
// registered handlers applied.
func (c *Connection) newBoundSession(conn net.Conn) *Session {
	sess := newSession(c.ctx, c, conn)

	c.handlerMu.Lock()
	sess.AddDataHandler(c.dataHandlers...)
	sess.AddConnStateChangeHandler(c.stateHandlers...)
	c.handlerMu.Unlock()

	return sess
}

func (c *Connection) addr() string {
	return net.JoinHostPort(c.cfg.host, strconv.Itoa(c.cfg.port))
}
