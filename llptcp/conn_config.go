package llptcp

import (
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/arloliu/go-llp/llp"
	"github.com/arloliu/go-llp/logger"
)

// ConnectionConfig represents the configuration parameters for an LLP
// connection over TCP.
type ConnectionConfig struct {
	mu sync.RWMutex

	// host specifies the host of the remote LLP peer (active mode) or the
	// local bind address (passive mode).
	host string

	// port specifies the TCP port number for the LLP connection.
	port int

	// isActive indicates whether the connection should be established in
	// active/initiator (true) or passive/responder (false) mode.
	// Defaults to true (active mode).
	isActive bool

	// autoKeepalive indicates whether the active side sends periodic
	// keepalive requests automatically after the session is established.
	// This helps to ensure that the connection remains alive and to detect
	// potential communication issues.
	// Defaults to true.
	autoKeepalive bool
	// keepaliveInterval defines the interval between automatic keepalive
	// requests. This field is only relevant when autoKeepalive is true.
	// Defaults to 10 seconds.
	keepaliveInterval time.Duration

	// responseTimeout defines how long a blocking receive waits for the
	// reply to a handshake or keepalive request before the transport aborts
	// the read. The protocol core defines no timeout of its own; this is the
	// transport-level abort behavior it relies on.
	// It should be between 1 and 120 seconds. Defaults to 45 seconds.
	responseTimeout time.Duration

	// connectRemoteTimeout defines the timeout for establishing a connection
	// in active mode. It should be between 1 and 30 seconds.
	// Defaults to 3 seconds.
	connectRemoteTimeout time.Duration

	// closeConnTimeout defines the timeout for closing the whole LLP
	// connection. It should be between 1 and 30 seconds.
	// Defaults to 3 seconds.
	closeConnTimeout time.Duration

	// maxFrameSize bounds the size of a single LLP frame. A frame is
	// delimited by one transport read, so this is also the read buffer size.
	// Defaults to 4096 bytes.
	maxFrameSize int

	// logger provides a logger instance for logging LLP-related events and errors.
	logger logger.Logger
}

// NewConnectionConfig creates a new LLP connection configuration with the
// given host, port number, and optional functional options.
//
// It initializes a ConnectionConfig struct with default values and then
// applies the provided options to customize the configuration.
//
// The host parameter specifies the host of the remote LLP peer in active
// mode, or the local listen address in passive mode.
// The port parameter specifies the TCP port number for the LLP connection.
//
// Returns a pointer to the initialized ConnectionConfig and an error if any
// occurred during the configuration process.
func NewConnectionConfig(host string, port int, opts ...ConnOption) (*ConnectionConfig, error) {
	cfg := &ConnectionConfig{
		isActive:             true,
		autoKeepalive:        true,
		keepaliveInterval:    10 * time.Second,
		responseTimeout:      45 * time.Second,
		connectRemoteTimeout: 3 * time.Second,
		closeConnTimeout:     3 * time.Second,
		maxFrameSize:         4096,
		logger:               logger.GetLogger(),
	}

	if err := withHost(host).apply(cfg); err != nil {
		return cfg, err
	}

	if err := withPort(port).apply(cfg); err != nil {
		return cfg, err
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

// IsActive reports whether the connection is configured in active mode.
func (cfg *ConnectionConfig) IsActive() bool {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.isActive
}

// AutoKeepalive reports whether automatic keepalive is enabled.
func (cfg *ConnectionConfig) AutoKeepalive() bool {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.autoKeepalive
}

// KeepaliveInterval returns the automatic keepalive interval.
func (cfg *ConnectionConfig) KeepaliveInterval() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.keepaliveInterval
}

// ResponseTimeout returns the reply wait timeout.
func (cfg *ConnectionConfig) ResponseTimeout() time.Duration {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.responseTimeout
}

// MaxFrameSize returns the maximum LLP frame size in bytes.
func (cfg *ConnectionConfig) MaxFrameSize() int {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	return cfg.maxFrameSize
}

// ConnOption represents a functional option for configuring a ConnectionConfig.
type ConnOption interface {
	apply(*ConnectionConfig) error
}

type connOptFunc struct {
	name      string
	runtime   bool
	applyFunc func(*ConnectionConfig) error
}

func (c *connOptFunc) apply(cfg *ConnectionConfig) error { return c.applyFunc(cfg) }

func newConnOptFunc(name string, runtime bool, f func(*ConnectionConfig) error) *connOptFunc {
	return &connOptFunc{
		name:      name,
		runtime:   runtime,
		applyFunc: f,
	}
}

// withHost sets the host for the LLP connection.
// It returns a ConnOption that validates the host and updates the configuration.
func withHost(host string) ConnOption {
	return newConnOptFunc("withHost", false, func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return llp.ErrConnConfigNil
		}

		// Check if it's a valid IP address
		if ip := net.ParseIP(host); ip != nil {
			cfg.host = host
			return nil
		}

		// If not an IP, check if it's a valid domain name
		host = strings.TrimPrefix(host, ".")
		host = strings.TrimSuffix(host, ".")
		if _, err := net.LookupHost(host); err == nil {
			cfg.host = host
			return nil
		}

		return errors.New("invalid host")
	})
}

// withPort sets the TCP port for the LLP connection.
func withPort(port int) ConnOption {
	return newConnOptFunc("withPort", false, func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return llp.ErrConnConfigNil
		}

		if port < 1 || port > 65535 {
			return errors.New("invalid port, should be in range of [1, 65535]")
		}

		cfg.port = port

		return nil
	})
}

// WithActive configures the connection in active (initiator) mode: it dials
// the remote peer and performs the session handshake.
func WithActive() ConnOption {
	return newConnOptFunc("WithActive", false, func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return llp.ErrConnConfigNil
		}

		cfg.isActive = true

		return nil
	})
}

// WithPassive configures the connection in passive (responder) mode: it
// listens for peers and answers their handshake, keepalive and disconnect
// packets.
func WithPassive() ConnOption {
	return newConnOptFunc("WithPassive", false, func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return llp.ErrConnConfigNil
		}

		cfg.isActive = false

		return nil
	})
}

// WithAutoKeepalive enables or disables automatic keepalive on the active side.
func WithAutoKeepalive(enabled bool) ConnOption {
	return newConnOptFunc("WithAutoKeepalive", true, func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return llp.ErrConnConfigNil
		}

		cfg.mu.Lock()
		defer cfg.mu.Unlock()
		cfg.autoKeepalive = enabled

		return nil
	})
}

// WithKeepaliveInterval sets the interval between automatic keepalive
// requests. The interval should be between 100 milliseconds and 10 minutes.
func WithKeepaliveInterval(interval time.Duration) ConnOption {
	return newConnOptFunc("WithKeepaliveInterval", true, func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return llp.ErrConnConfigNil
		}

		if interval < 100*time.Millisecond || interval > 10*time.Minute {
			return errors.New("invalid keepalive interval, should be between 100ms and 10m")
		}

		cfg.mu.Lock()
		defer cfg.mu.Unlock()
		cfg.keepaliveInterval = interval

		return nil
	})
}

// WithResponseTimeout sets the reply wait timeout for handshake and
// keepalive exchanges. It should be between 100 milliseconds and 120 seconds.
func WithResponseTimeout(timeout time.Duration) ConnOption {
	return newConnOptFunc("WithResponseTimeout", true, func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return llp.ErrConnConfigNil
		}

		if timeout < 100*time.Millisecond || timeout > 120*time.Second {
			return errors.New("invalid response timeout, should be between 100ms and 120s")
		}

		cfg.mu.Lock()
		defer cfg.mu.Unlock()
		cfg.responseTimeout = timeout

		return nil
	})
}

// WithConnectRemoteTimeout sets the timeout for establishing a connection
// in active mode. It should be between 100 milliseconds and 30 seconds.
func WithConnectRemoteTimeout(timeout time.Duration) ConnOption {
	return newConnOptFunc("WithConnectRemoteTimeout", false, func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return llp.ErrConnConfigNil
		}

		if timeout < 100*time.Millisecond || timeout > 30*time.Second {
			return errors.New("invalid connect remote timeout, should be between 100ms and 30s")
		}

		cfg.connectRemoteTimeout = timeout

		return nil
	})
}

// WithCloseConnTimeout sets the timeout for closing the whole LLP
// connection. It should be between 1 and 30 seconds.
func WithCloseConnTimeout(timeout time.Duration) ConnOption {
	return newConnOptFunc("WithCloseConnTimeout", false, func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return llp.ErrConnConfigNil
		}

		if timeout < time.Second || timeout > 30*time.Second {
			return errors.New("invalid close connection timeout, should be between 1s and 30s")
		}

		cfg.closeConnTimeout = timeout

		return nil
	})
}

// WithMaxFrameSize bounds the size of a single LLP frame. It should be
// between llp.HeaderSize and 1 MiB.
func WithMaxFrameSize(size int) ConnOption {
	return newConnOptFunc("WithMaxFrameSize", false, func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return llp.ErrConnConfigNil
		}

		if size < llp.HeaderSize || size > 1<<20 {
			return errors.New("invalid max frame size, should be between 24 bytes and 1MiB")
		}

		cfg.maxFrameSize = size

		return nil
	})
}

// WithLogger sets the logger instance for the LLP connection.
func WithLogger(l logger.Logger) ConnOption {
	return newConnOptFunc("WithLogger", false, func(cfg *ConnectionConfig) error {
		if cfg == nil {
			return llp.ErrConnConfigNil
		}

		if l == nil {
			return errors.New("logger is nil")
		}

		cfg.logger = l

		return nil
	})
}
