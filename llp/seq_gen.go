package llp

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// SeqGenerator assigns monotonically increasing sequence numbers scoped to
// a stream.
//
// Each stream's counter starts at 0, so the first packet sent on any
// stream carries sequence number 0; the handshake on the control stream
// therefore carries sequence 0 as the protocol requires.
//
// SeqGenerator is safe for concurrent use.
type SeqGenerator struct {
	counters *xsync.MapOf[uint16, *atomic.Uint64]
}

// NewSeqGenerator creates a SeqGenerator with all stream counters at 0.
func NewSeqGenerator() *SeqGenerator {
	return &SeqGenerator{counters: xsync.NewMapOf[uint16, *atomic.Uint64]()}
}

// Next returns the next sequence number for the given stream and advances
// the stream's counter.
func (g *SeqGenerator) Next(streamID uint16) uint64 {
	counter, _ := g.counters.LoadOrCompute(streamID, func() *atomic.Uint64 {
		return &atomic.Uint64{}
	})

	return counter.Add(1) - 1
}

// Current returns the sequence number the stream's next packet will carry,
// without advancing the counter.
func (g *SeqGenerator) Current(streamID uint16) uint64 {
	counter, ok := g.counters.Load(streamID)
	if !ok {
		return 0
	}

	return counter.Load()
}

// Reset resets every stream counter to 0. It is intended for reuse of a
// generator across sessions, not for concurrent use with Next.
func (g *SeqGenerator) Reset() {
	g.counters.Clear()
}
