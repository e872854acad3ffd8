package llp

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/arloliu/go-llp/logger"
)

// ConnState represents the stages of an LLP session.
type ConnState uint32

// LLP session states.
const (
	// NotConnectedState indicates that the transport connection is not established.
	NotConnectedState ConnState = iota
	// IdleState indicates that the transport is connected but no handshake
	// has been attempted yet.
	IdleState
	// HelloSentState indicates that the initiator sent a HandshakeInit and is
	// waiting for the HandshakeRsp.
	HelloSentState
	// HelloReceivedState indicates that the responder received a HandshakeInit
	// and is about to reply.
	HelloReceivedState
	// EstablishedState indicates that the handshake completed and the session
	// is ready for data, keepalive and disconnect exchange.
	EstablishedState
)

// IsNotConnected returns if the current state is not connected.
func (cs ConnState) IsNotConnected() bool { return cs == NotConnectedState }

// IsIdle returns if the current state is idle.
func (cs ConnState) IsIdle() bool { return cs == IdleState }

// IsEstablished returns if the current state is established.
func (cs ConnState) IsEstablished() bool { return cs == EstablishedState }

// String returns string representation of the current state.
func (cs ConnState) String() string {
	switch cs {
	case NotConnectedState:
		return "not-connected"
	case IdleState:
		return "idle"
	case HelloSentState:
		return "hello-sent"
	case HelloReceivedState:
		return "hello-received"
	case EstablishedState:
		return "established"
	default:
		return "unknown"
	}
}

// ConnStateChangeHandler is a function type that represents a handler for
// session state changes. It is invoked when the state of an LLP session
// changes.
//
// Note: the handler will be invoked in a blocking mode. Take care with
// long-running implementations.
//
// The handler function receives two arguments:
//   - prevState: The previous session state.
//   - newState: The current session state.
type ConnStateChangeHandler func(conn Connection, prevState ConnState, newState ConnState)

// ConnStateMgr manages the session state of an LLP connection.
//
// It makes illegal handshake sequences unrepresentable: every transition is
// guarded, and an attempt to skip a stage (e.g. establishing a session that
// never sent a hello) fails with ErrInvalidTransition. State transitions
// are safe for concurrent use.
type ConnStateMgr struct {
	mu               sync.Mutex
	ctx              context.Context
	cond             *sync.Cond
	state            atomic.Uint32
	conn             Connection
	logger           logger.Logger
	asyncStateChange chan ConnState
	handlers         []ConnStateChangeHandler
}

// NewConnStateMgr creates a new ConnStateMgr instance, initializing it to
// the NotConnectedState.
//
// It accepts optional ConnStateChangeHandler functions that will be invoked
// when the session state changes.
func NewConnStateMgr(ctx context.Context, conn Connection, handlers ...ConnStateChangeHandler) *ConnStateMgr {
	mgr := &ConnStateMgr{
		ctx:              ctx,
		conn:             conn,
		asyncStateChange: make(chan ConnState, 10),
		handlers:         make([]ConnStateChangeHandler, 0, len(handlers)),
	}

	mgr.handlers = append(mgr.handlers, handlers...)

	if conn != nil {
		mgr.logger = conn.GetLogger()
	} else {
		mgr.logger = logger.GetLogger()
	}

	mgr.state.Store(uint32(NotConnectedState))
	mgr.cond = sync.NewCond(&mgr.mu)

	go mgr.asyncStateChangeTask()

	return mgr
}

// State returns the current session state.
func (cs *ConnStateMgr) State() ConnState {
	return ConnState(cs.state.Load())
}

// AddHandler adds one or more ConnStateChangeHandler functions to be
// invoked on state changes.
func (cs *ConnStateMgr) AddHandler(handlers ...ConnStateChangeHandler) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.handlers = append(cs.handlers, handlers...)
}

// WaitState waits for the session state to reach the specified state or
// until the context is done. It returns nil if the desired state is
// reached, or an error if the context is canceled or times out.
func (cs *ConnStateMgr) WaitState(ctx context.Context, state ConnState) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.State() == state {
		return nil
	}

	stopFunc := context.AfterFunc(ctx, func() {
		cs.cond.Broadcast()
	})
	defer stopFunc()

	for cs.State() != state {
		select {
		case <-ctx.Done():
			cs.logger.Debug("wait session state canceled", "cur_state", cs.State(), "desired_state", state)
			return ctx.Err()
		default:
			cs.cond.Wait()
		}
	}

	return nil
}

// ToNotConnected transitions the session state to NotConnectedState.
// This transition is allowed from any state and represents a disconnection
// or a reset of the connection.
func (cs *ConnStateMgr) ToNotConnected() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	curState := cs.State()

	if curState == NotConnectedState {
		return // Already in NotConnectedState, no need to transition
	}

	// change state to not connected BEFORE the handlers run, so handlers
	// observing State() see the disconnected session.
	cs.setState(NotConnectedState)

	cs.invokeHandlers(curState, NotConnectedState)
}

// ToIdle transitions the session state to IdleState.
//
// This transition is only allowed from NotConnectedState and indicates that
// the transport connection is established but the handshake has not started.
// If the state is already IdleState, the function is a no-op.
//
// Returns nil on success, or ErrInvalidTransition otherwise.
func (cs *ConnStateMgr) ToIdle() error {
	return cs.transition(IdleState, NotConnectedState)
}

// ToHelloSent transitions the session state to HelloSentState.
//
// This transition is only allowed from IdleState and indicates that the
// initiator transmitted a HandshakeInit packet.
//
// Returns nil on success, or ErrInvalidTransition otherwise.
func (cs *ConnStateMgr) ToHelloSent() error {
	return cs.transition(HelloSentState, IdleState)
}

// ToHelloReceived transitions the session state to HelloReceivedState.
//
// This transition is only allowed from IdleState and indicates that the
// responder received a HandshakeInit packet.
//
// Returns nil on success, or ErrInvalidTransition otherwise.
func (cs *ConnStateMgr) ToHelloReceived() error {
	return cs.transition(HelloReceivedState, IdleState)
}

// ToEstablished transitions the session state to EstablishedState.
//
// This transition is only allowed from HelloSentState (initiator) or
// HelloReceivedState (responder) and indicates that the handshake completed.
//
// Returns nil on success, or ErrInvalidTransition otherwise.
func (cs *ConnStateMgr) ToEstablished() error {
	return cs.transition(EstablishedState, HelloSentState, HelloReceivedState)
}

// ToNotConnectedAsync transitions the session state to NotConnectedState
// asynchronously.
//
// It notifies a background goroutine which performs the transition.
// If the state is the same as the current state, the function is a no-op.
func (cs *ConnStateMgr) ToNotConnectedAsync() {
	cs.changeStateAsync(NotConnectedState)
}

// ToEstablishedAsync transitions the session state to EstablishedState
// asynchronously.
//
// It notifies a background goroutine which performs the transition.
// If the state is the same as the current state, the function is a no-op.
func (cs *ConnStateMgr) ToEstablishedAsync() {
	cs.changeStateAsync(EstablishedState)
}

// IsNotConnected returns if the current state is not connected.
func (cs *ConnStateMgr) IsNotConnected() bool {
	return cs.State().IsNotConnected()
}

// IsEstablished returns if the current state is established.
func (cs *ConnStateMgr) IsEstablished() bool {
	return cs.State().IsEstablished()
}

// transition performs a guarded transition to newState, allowed only from
// one of the listed states. A transition to the current state is a no-op.
func (cs *ConnStateMgr) transition(newState ConnState, allowedFrom ...ConnState) error {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	curState := cs.State()

	if curState == newState {
		return nil // No-op
	}

	allowed := false
	for _, s := range allowedFrom {
		if curState == s {
			allowed = true
			break
		}
	}

	if !allowed {
		return ErrInvalidTransition
	}

	cs.invokeHandlers(curState, newState)
	// change state after all handlers finished
	cs.setState(newState)

	return nil
}

// setState atomically sets the current state to newState. It also
// broadcasts a signal to any waiting goroutines.
func (cs *ConnStateMgr) setState(newState ConnState) {
	cs.state.Store(uint32(newState))
	cs.cond.Broadcast()
}

// invokeHandlers invokes all registered ConnStateChangeHandler functions
// with the previous and new states.
func (cs *ConnStateMgr) invokeHandlers(prevState ConnState, newState ConnState) {
	for _, handler := range cs.handlers {
		if handler != nil {
			handler(cs.conn, prevState, newState)
		}
	}
}

// changeStateAsync transitions to the desired session state asynchronously.
func (cs *ConnStateMgr) changeStateAsync(state ConnState) {
	if cs.State() == state {
		return
	}

	cs.asyncStateChange <- state
}

// asyncStateChangeTask handles state changing in the background.
func (cs *ConnStateMgr) asyncStateChangeTask() {
	defer cs.logger.Debug("asyncStateChangeTask terminated")

	for {
		select {
		case <-cs.ctx.Done():
			return

		case desiredState := <-cs.asyncStateChange:
			prevState := cs.State()
			if desiredState == prevState {
				break
			}

			var err error
			switch desiredState {
			case NotConnectedState:
				cs.ToNotConnected()
			case IdleState:
				err = cs.ToIdle()
			case HelloSentState:
				err = cs.ToHelloSent()
			case HelloReceivedState:
				err = cs.ToHelloReceived()
			case EstablishedState:
				err = cs.ToEstablished()
			}

			if err != nil {
				cs.logger.Error("async session state transition failed",
					"prevState", prevState, "desiredState", desiredState, "error", err,
				)
				if errors.Is(err, ErrInvalidTransition) {
					cs.asyncStateChange <- NotConnectedState
				}
			}
		}
	}
}
