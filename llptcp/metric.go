package llptcp

import (
	"sync/atomic"
)

// ConnectionMetrics contains atomic metrics for a connection.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type ConnectionMetrics struct {
	// HandshakeCount indicates the number of completed handshakes.
	HandshakeCount atomic.Uint64
	// HandshakeErrCount indicates the number of failed handshakes.
	HandshakeErrCount atomic.Uint64

	// KeepaliveSendCount indicates the number of keepalive requests sent.
	KeepaliveSendCount atomic.Uint64
	// KeepaliveRecvCount indicates the number of keepalive packets received.
	KeepaliveRecvCount atomic.Uint64
	// KeepaliveErrCount indicates the number of keepalive failures.
	KeepaliveErrCount atomic.Uint64

	// DataSendCount indicates the number of data packets sent.
	DataSendCount atomic.Uint64
	// DataRecvCount indicates the number of data packets received.
	DataRecvCount atomic.Uint64
	// DataErrCount indicates the number of data packet errors.
	DataErrCount atomic.Uint64

	// DecodeErrCount indicates the number of frames dropped by decode failures.
	DecodeErrCount atomic.Uint64

	// SessionGauge indicates the number of live sessions.
	SessionGauge atomic.Int64
}

func (m *ConnectionMetrics) incHandshakeCount() {
	m.HandshakeCount.Add(1)
}

func (m *ConnectionMetrics) incHandshakeErrCount() {
	m.HandshakeErrCount.Add(1)
}

func (m *ConnectionMetrics) incKeepaliveSendCount() {
	m.KeepaliveSendCount.Add(1)
}

func (m *ConnectionMetrics) incKeepaliveRecvCount() {
	m.KeepaliveRecvCount.Add(1)
}

func (m *ConnectionMetrics) incKeepaliveErrCount() {
	m.KeepaliveErrCount.Add(1)
}

func (m *ConnectionMetrics) incDataSendCount() {
	m.DataSendCount.Add(1)
}

func (m *ConnectionMetrics) incDataRecvCount() {
	m.DataRecvCount.Add(1)
}

func (m *ConnectionMetrics) incDataErrCount() {
	m.DataErrCount.Add(1)
}

func (m *ConnectionMetrics) incDecodeErrCount() {
	m.DecodeErrCount.Add(1)
}

func (m *ConnectionMetrics) incSessionGauge() {
	m.SessionGauge.Add(1)
}

func (m *ConnectionMetrics) decSessionGauge() {
	m.SessionGauge.Add(-1)
}
