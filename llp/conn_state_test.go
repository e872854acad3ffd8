package llp

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConnState_String(t *testing.T) {
	require := require.New(t)

	require.Equal("not-connected", NotConnectedState.String())
	require.Equal("idle", IdleState.String())
	require.Equal("hello-sent", HelloSentState.String())
	require.Equal("hello-received", HelloReceivedState.String())
	require.Equal("established", EstablishedState.String())
	require.Equal("unknown", ConnState(99).String())
}

func TestConnStateMgr_InitiatorPath(t *testing.T) {
	require := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := NewConnStateMgr(ctx, nil)
	require.True(mgr.IsNotConnected())

	require.NoError(mgr.ToIdle())
	require.Equal(IdleState, mgr.State())

	require.NoError(mgr.ToHelloSent())
	require.Equal(HelloSentState, mgr.State())

	require.NoError(mgr.ToEstablished())
	require.True(mgr.IsEstablished())

	mgr.ToNotConnected()
	require.True(mgr.IsNotConnected())
}

func TestConnStateMgr_ResponderPath(t *testing.T) {
	require := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := NewConnStateMgr(ctx, nil)

	require.NoError(mgr.ToIdle())
	require.NoError(mgr.ToHelloReceived())
	require.Equal(HelloReceivedState, mgr.State())
	require.NoError(mgr.ToEstablished())
	require.True(mgr.IsEstablished())
}

func TestConnStateMgr_InvalidTransitions(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tests := []struct {
		description string
		setup       func(mgr *ConnStateMgr)
		attempt     func(mgr *ConnStateMgr) error
	}{
		{
			description: "established without handshake",
			setup:       func(mgr *ConnStateMgr) {},
			attempt:     func(mgr *ConnStateMgr) error { return mgr.ToEstablished() },
		},
		{
			description: "established from idle skips hello",
			setup: func(mgr *ConnStateMgr) {
				_ = mgr.ToIdle()
			},
			attempt: func(mgr *ConnStateMgr) error { return mgr.ToEstablished() },
		},
		{
			description: "hello sent without transport",
			setup:       func(mgr *ConnStateMgr) {},
			attempt:     func(mgr *ConnStateMgr) error { return mgr.ToHelloSent() },
		},
		{
			description: "hello received without transport",
			setup:       func(mgr *ConnStateMgr) {},
			attempt:     func(mgr *ConnStateMgr) error { return mgr.ToHelloReceived() },
		},
		{
			description: "idle from established",
			setup: func(mgr *ConnStateMgr) {
				_ = mgr.ToIdle()
				_ = mgr.ToHelloSent()
				_ = mgr.ToEstablished()
			},
			attempt: func(mgr *ConnStateMgr) error { return mgr.ToIdle() },
		},
		{
			description: "hello sent after hello received",
			setup: func(mgr *ConnStateMgr) {
				_ = mgr.ToIdle()
				_ = mgr.ToHelloReceived()
			},
			attempt: func(mgr *ConnStateMgr) error { return mgr.ToHelloSent() },
		},
	}

	for _, test := range tests {
		t.Run(test.description, func(t *testing.T) {
			require := require.New(t)

			mgr := NewConnStateMgr(ctx, nil)
			test.setup(mgr)
			prev := mgr.State()

			require.ErrorIs(test.attempt(mgr), ErrInvalidTransition)
			require.Equal(prev, mgr.State(), "failed transition must not change state")
		})
	}
}

func TestConnStateMgr_SameStateIsNoop(t *testing.T) {
	require := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	mgr := NewConnStateMgr(ctx, nil, func(conn Connection, prev ConnState, cur ConnState) {
		calls.Add(1)
	})

	require.NoError(mgr.ToIdle())
	require.NoError(mgr.ToIdle())
	require.Equal(int32(1), calls.Load())

	mgr.ToNotConnected()
	mgr.ToNotConnected()
	require.Equal(int32(2), calls.Load())
}

func TestConnStateMgr_Handlers(t *testing.T) {
	require := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	type change struct {
		prev ConnState
		cur  ConnState
	}

	var changes []change
	mgr := NewConnStateMgr(ctx, nil, func(conn Connection, prev ConnState, cur ConnState) {
		changes = append(changes, change{prev: prev, cur: cur})
	})

	require.NoError(mgr.ToIdle())
	require.NoError(mgr.ToHelloSent())
	require.NoError(mgr.ToEstablished())
	mgr.ToNotConnected()

	require.Equal([]change{
		{prev: NotConnectedState, cur: IdleState},
		{prev: IdleState, cur: HelloSentState},
		{prev: HelloSentState, cur: EstablishedState},
		{prev: EstablishedState, cur: NotConnectedState},
	}, changes)
}

func TestConnStateMgr_AddHandler(t *testing.T) {
	require := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := NewConnStateMgr(ctx, nil)
	require.NoError(mgr.ToIdle())

	var calls atomic.Int32
	mgr.AddHandler(func(conn Connection, prev ConnState, cur ConnState) {
		calls.Add(1)
	})

	require.NoError(mgr.ToHelloSent())
	require.Equal(int32(1), calls.Load())
}

func TestConnStateMgr_WaitState(t *testing.T) {
	require := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := NewConnStateMgr(ctx, nil)

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = mgr.ToIdle()
		_ = mgr.ToHelloSent()
		_ = mgr.ToEstablished()
	}()

	waitCtx, waitCancel := context.WithTimeout(ctx, 3*time.Second)
	defer waitCancel()

	require.NoError(mgr.WaitState(waitCtx, EstablishedState))
	require.True(mgr.IsEstablished())
}

func TestConnStateMgr_WaitStateAlreadyReached(t *testing.T) {
	require := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := NewConnStateMgr(ctx, nil)
	require.NoError(mgr.WaitState(ctx, NotConnectedState))
}

func TestConnStateMgr_WaitStateTimeout(t *testing.T) {
	require := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := NewConnStateMgr(ctx, nil)

	waitCtx, waitCancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer waitCancel()

	err := mgr.WaitState(waitCtx, EstablishedState)
	require.ErrorIs(err, context.DeadlineExceeded)
}

func TestConnStateMgr_AsyncTransitions(t *testing.T) {
	require := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mgr := NewConnStateMgr(ctx, nil)
	require.NoError(mgr.ToIdle())
	require.NoError(mgr.ToHelloSent())

	mgr.ToEstablishedAsync()

	waitCtx, waitCancel := context.WithTimeout(ctx, 3*time.Second)
	defer waitCancel()
	require.NoError(mgr.WaitState(waitCtx, EstablishedState))

	mgr.ToNotConnectedAsync()

	waitCtx2, waitCancel2 := context.WithTimeout(ctx, 3*time.Second)
	defer waitCancel2()
	require.NoError(mgr.WaitState(waitCtx2, NotConnectedState))
}
