package llptcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/arloliu/go-llp/llp"
	"github.com/arloliu/go-llp/logger"
)

// Session represents one LLP session over a single TCP connection.
//
// In active mode a Connection owns exactly one Session; in passive mode a
// Session is created per accepted peer and handed to registered handlers.
//
// All request/reply exchanges are synchronous and serialized by a
// transaction mutex: a send is immediately followed by a blocking receive
// where a reply is expected, and concurrent callers never interleave
// partial frames on the stream.
type Session struct {
	conn     net.Conn
	cfg      *ConnectionConfig
	logger   logger.Logger
	metrics  *ConnectionMetrics
	stateMgr *llp.ConnStateMgr
	seqGen   *llp.SeqGenerator
	reader   *packetReader

	// txMu serializes send and send-then-receive transactions.
	txMu sync.Mutex

	idMu sync.RWMutex
	id   string

	handlerMu    sync.Mutex
	dataHandlers []llp.DataHandler
}

// ensure Session implements the llp.Session interface.
var _ llp.Session = (*Session)(nil)

func newSession(ctx context.Context, owner *Connection, conn net.Conn) *Session {
	s := &Session{
		conn:    conn,
		cfg:     owner.cfg,
		logger:  owner.logger,
		metrics: &owner.metrics,
		seqGen:  llp.NewSeqGenerator(),
		reader:  newPacketReader(owner.cfg.maxFrameSize),
	}
	s.stateMgr = llp.NewConnStateMgr(ctx, owner)

	return s
}

// ID returns the session identifier assigned by the responder during the
// handshake, or an empty string before the session is established.
func (s *Session) ID() string {
	s.idMu.RLock()
	defer s.idMu.RUnlock()

	return s.id
}

func (s *Session) setID(id string) {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	s.id = id
}

// State returns the current session state.
func (s *Session) State() llp.ConnState {
	return s.stateMgr.State()
}

// AddConnStateChangeHandler adds one or more ConnStateChangeHandler
// functions to be invoked when the session state changes.
func (s *Session) AddConnStateChangeHandler(handlers ...llp.ConnStateChangeHandler) {
	s.stateMgr.AddHandler(handlers...)
}

// AddDataHandler adds one or more DataHandler functions to be invoked when
// a data packet is received.
func (s *Session) AddDataHandler(handlers ...llp.DataHandler) {
	s.handlerMu.Lock()
	defer s.handlerMu.Unlock()
	s.dataHandlers = append(s.dataHandlers, handlers...)
}

// Keepalive sends a Keepalive packet on the control stream and blocks for
// the reply.
//
// It returns true when the peer replies with a Keepalive packet. A reply of
// any other packet type, or a reply that fails to decode, reports liveness
// failure as (false, nil); the caller decides whether to abort the loop.
// Transport failures (including peer closure) are returned as errors.
func (s *Session) Keepalive() (bool, error) {
	if !s.stateMgr.IsEstablished() {
		return false, llp.ErrNotEstablished
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	req := llp.NewKeepalive(s.seqGen.Next(uint16(llp.ControlStream)))
	if err := s.writePacket(req); err != nil {
		s.metrics.incKeepaliveErrCount()
		return false, err
	}
	s.metrics.incKeepaliveSendCount()

	rsp, err := s.readPacket(s.cfg.ResponseTimeout())
	if err != nil {
		s.metrics.incKeepaliveErrCount()

		// A malformed reply is a liveness failure, not a transport fault:
		// framing is offset based, so the next frame is unaffected.
		if isDecodeError(err) {
			s.logger.Warn("keepalive reply dropped by decode failure", "error", err)
			return false, nil
		}

		return false, fmt.Errorf("keepalive: %w", err)
	}

	if rsp.Type() != llp.KeepaliveType {
		s.metrics.incKeepaliveErrCount()
		s.logger.Warn("keepalive reply has unexpected packet type",
			llp.PacketInfo(rsp, "method", "Keepalive")...,
		)

		return false, nil
	}

	s.metrics.incKeepaliveRecvCount()

	return true, nil
}

// SendData sends a Data packet on the given stream. No reply is awaited;
// peers deliver inbound data packets through registered data handlers.
func (s *Session) SendData(streamID uint16, flags byte, payload []byte) error {
	if !s.stateMgr.IsEstablished() {
		return llp.ErrNotEstablished
	}

	if llp.HeaderSize+len(payload) > s.cfg.MaxFrameSize() {
		return fmt.Errorf("%w: %d bytes", llp.ErrPayloadTooLarge, len(payload))
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	pkt := llp.NewDataPacket(streamID, s.seqGen.Next(streamID), flags, payload)
	if err := s.writePacket(pkt); err != nil {
		s.metrics.incDataErrCount()
		return err
	}
	s.metrics.incDataSendCount()

	return nil
}

// SendDisconnect sends a Disconnect packet with an empty payload on the
// control stream. It is fire-and-forget: no response is expected and no
// local state change is tracked.
func (s *Session) SendDisconnect() error {
	if !s.stateMgr.IsEstablished() {
		return llp.ErrNotEstablished
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	return s.writePacket(llp.NewDisconnect(s.seqGen.Next(uint16(llp.ControlStream))))
}

// handshake performs the initiator side of the single-shot session
// handshake: transmit a HandshakeInit carrying a fresh ClientHello, block
// for the HandshakeRsp, extract the session identifier and transition to
// the established state.
//
// There is no retry or renegotiation; any failure is surfaced to the
// caller and the session stays un-established.
func (s *Session) handshake() error {
	hello, err := llp.NewClientHello()
	if err != nil {
		return err
	}

	payload, err := llp.EncodeClientHello(hello)
	if err != nil {
		return err
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	// The handshake always travels on the control stream with sequence 0.
	initPkt := llp.NewHandshakeInit(payload)
	initPkt.SetSequenceNumber(s.seqGen.Next(uint16(llp.ControlStream)))

	if err := s.writePacket(initPkt); err != nil {
		return fmt.Errorf("%w: %w", llp.ErrHandshakeFailed, err)
	}

	if err := s.stateMgr.ToHelloSent(); err != nil {
		return err
	}

	rsp, err := s.readPacket(s.cfg.ResponseTimeout())
	if err != nil {
		return fmt.Errorf("%w: %w", llp.ErrHandshakeFailed, err)
	}

	if rsp.Type() != llp.HandshakeRspType {
		return fmt.Errorf("%w: %w: got %s",
			llp.ErrHandshakeFailed, llp.ErrUnexpectedPacketType, llp.TypeName(rsp.Type()))
	}

	serverHello, err := llp.DecodeServerHello(rsp.Payload())
	if err != nil {
		return err
	}

	s.setID(serverHello.SessionID)

	if err := s.stateMgr.ToEstablished(); err != nil {
		return err
	}

	s.logger.Info("session established", "session_id", serverHello.SessionID)

	return nil
}

// invokeDataHandlers delivers a received data packet to the registered
// handlers. Handlers run in the receiver's goroutine; long-running
// handlers delay subsequent frames.
func (s *Session) invokeDataHandlers(pkt *llp.Packet) {
	s.handlerMu.Lock()
	handlers := make([]llp.DataHandler, len(s.dataHandlers))
	copy(handlers, s.dataHandlers)
	s.handlerMu.Unlock()

	for _, handler := range handlers {
		if handler != nil {
			handler(pkt, s)
		}
	}
}

func (s *Session) writePacket(pkt *llp.Packet) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(s.cfg.ResponseTimeout())); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}

	if _, err := s.conn.Write(pkt.ToBytes()); err != nil {
		return fmt.Errorf("write %s frame: %w", llp.TypeName(pkt.Type()), err)
	}

	s.logger.Debug("packet sent", llp.PacketInfo(pkt)...)

	return nil
}

func (s *Session) readPacket(timeout time.Duration) (*llp.Packet, error) {
	return s.reader.ReadPacket(s.conn, timeout)
}

// closeConn closes the underlying socket and resets the session state.
func (s *Session) closeConn() {
	_ = s.conn.Close()
	s.stateMgr.ToNotConnected()
}

// isDecodeError reports whether err is a per-frame decode failure rather
// than a transport fault.
func isDecodeError(err error) bool {
	return errors.Is(err, llp.ErrTooShort) ||
		errors.Is(err, llp.ErrBadMagic) ||
		errors.Is(err, llp.ErrChecksumMismatch)
}
