// Package client talks to a running lombridge host: Manager speaks the TCP
// command protocol and StatusClient reads the HTTP gateway.
package client

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/lombridge/config"
	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/logging"
	"github.com/grovetools/lombridge/pkg/profiling"
	"github.com/grovetools/lombridge/pkg/protocol"
)

// State is the connection state seen by the Manager.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// probeReadWait bounds how long a probe listens for the peer closing.
const probeReadWait = 20 * time.Millisecond

// Manager owns one connection to the host and sends one command at a time.
// It reconnects lazily after any failure.
type Manager struct {
	cfg    config.ClientConfig
	logger *logrus.Entry
	dial   func(ctx context.Context, network, addr string) (net.Conn, error)

	// mu serializes commands and probes on conn.
	mu     sync.Mutex
	conn   net.Conn
	frames *protocol.FrameReader

	stateMu sync.RWMutex
	state   State
}

// New creates a Manager for cfg.Address. No connection is made until needed.
func New(cfg config.ClientConfig) *Manager {
	if cfg.Address == "" {
		cfg.Address = config.DefaultListen
	}
	d := &net.Dialer{Timeout: cfg.DialTimeout.Std()}
	return &Manager{
		cfg:    cfg,
		logger: logging.NewLogger("client").WithField("address", cfg.Address),
		dial:   d.DialContext,
	}
}

// Address returns the host address the Manager dials.
func (m *Manager) Address() string { return m.cfg.Address }

// State returns the current connection state.
func (m *Manager) State() State {
	m.stateMu.RLock()
	defer m.stateMu.RUnlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.stateMu.Lock()
	m.state = s
	m.stateMu.Unlock()
}

// EnsureConnected verifies the connection with a liveness probe, replacing
// it when the probe fails.
func (m *Manager) EnsureConnected(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ensureConnectedLocked(ctx)
}

func (m *Manager) ensureConnectedLocked(ctx context.Context) error {
	if m.conn != nil {
		if err := m.probe(); err == nil {
			return nil
		}
		m.logger.Debug("Probe failed, reconnecting")
		m.demote()
	}
	return m.connect(ctx)
}

func (m *Manager) connect(ctx context.Context) error {
	m.setState(Connecting)
	conn, err := m.dial(ctx, "tcp", m.cfg.Address)
	if err != nil {
		m.setState(Disconnected)
		return errors.Connection(m.cfg.Address, err)
	}
	if tcp, ok := conn.(*net.TCPConn); ok {
		_ = tcp.SetNoDelay(true)
	}
	m.conn = conn
	m.frames = protocol.NewFrameReader(conn, 0)
	m.setState(Connected)
	return nil
}

// probe writes the "\n" keepalive and briefly listens for the peer closing.
// A stray frame found while listening is discarded.
func (m *Manager) probe() error {
	_ = m.conn.SetWriteDeadline(time.Now().Add(m.writeTimeout()))
	if _, err := m.conn.Write([]byte("\n")); err != nil {
		return err
	}
	_ = m.conn.SetReadDeadline(time.Now().Add(probeReadWait))
	defer m.conn.SetReadDeadline(time.Time{})

	raw, err := m.frames.Next()
	if err == nil {
		m.logger.WithField("frame", string(raw)).Warn("Discarded unsolicited frame")
		return nil
	}
	if isTimeout(err) {
		return nil
	}
	return err
}

func (m *Manager) writeTimeout() time.Duration {
	if d := m.cfg.DialTimeout.Std(); d > 0 {
		return d
	}
	return 5 * time.Second
}

// demote drops the connection after a failure.
func (m *Manager) demote() {
	if m.conn != nil {
		_ = m.conn.Close()
	}
	m.conn = nil
	m.frames = nil
	m.setState(Disconnected)
}

// SendCommand sends one command and waits for its response. It returns the
// result on success, a CommandFailed error carrying the host message on an
// error response, and a Connection or Timeout error on transport failure.
func (m *Manager) SendCommand(ctx context.Context, commandType string, params map[string]interface{}) (interface{}, error) {
	if params == nil {
		params = map[string]interface{}{}
	}
	cmd := protocol.Command{Type: commandType, Params: params}
	timeout := m.cfg.TimeoutFor(commandType)
	modifying := m.cfg.IsModifying(commandType)
	log := m.logger.WithField("command", commandType)

	m.mu.Lock()
	defer m.mu.Unlock()
	defer profiling.Start(commandType).Stop()

	if m.conn == nil {
		if err := m.connect(ctx); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	if err := protocol.NewFrameWriter(m.deadlineWriter()).Write(cmd); err != nil {
		m.demote()
		if errors.Is(err, errors.ErrCodeProtocol) {
			return nil, err
		}
		return nil, errors.Connection(m.cfg.Address, err)
	}
	if modifying {
		if err := m.settle(ctx); err != nil {
			// The reply is still unread; drop the connection with it.
			m.demote()
			return nil, err
		}
	}

	resp, err := m.receive(ctx, commandType, timeout)
	if err != nil {
		log.WithError(err).Debug("Command transport failed")
		return nil, err
	}
	log.WithField("duration", time.Since(start).Round(time.Microsecond)).Debug("Command answered")

	if modifying {
		if err := m.settle(ctx); err != nil {
			return nil, err
		}
	}
	if !resp.OK() {
		return nil, errors.CommandFailed(commandType, resp.Message)
	}
	return resp.Result, nil
}

func (m *Manager) deadlineWriter() io.Writer {
	_ = m.conn.SetWriteDeadline(time.Now().Add(m.writeTimeout()))
	return m.conn
}

// receive reads one response frame, bounded by timeout and ctx. Any failure
// demotes the connection so a late reply is never read as the answer to a
// later command.
func (m *Manager) receive(ctx context.Context, commandType string, timeout time.Duration) (protocol.Response, error) {
	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = m.conn.SetReadDeadline(deadline)
	conn := m.conn
	stop := context.AfterFunc(ctx, func() { _ = conn.SetReadDeadline(time.Now()) })
	defer stop()

	raw, err := m.frames.Next()
	if err != nil {
		m.demote()
		switch {
		case ctx.Err() != nil:
			return protocol.Response{}, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout,
				fmt.Sprintf("%s interrupted", commandType))
		case isTimeout(err):
			return protocol.Response{}, errors.Timeout(commandType, timeout)
		case errors.Is(err, errors.ErrCodeProtocol):
			return protocol.Response{}, err
		default:
			return protocol.Response{}, errors.Connection(m.cfg.Address, err)
		}
	}
	_ = m.conn.SetReadDeadline(time.Time{})

	resp, err := protocol.DecodeResponse(raw)
	if err != nil {
		m.demote()
		return protocol.Response{}, err
	}
	return resp, nil
}

func (m *Manager) settle(ctx context.Context) error {
	d := m.cfg.SettleDelay.Std()
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "interrupted while settling")
	}
}

// Monitor probes the host every MonitorInterval until ctx is canceled,
// logging only when reachability changes. A probe is skipped while a
// command holds the connection.
func (m *Manager) Monitor(ctx context.Context) {
	interval := m.cfg.MonitorInterval.Std()
	if interval <= 0 {
		interval = config.DefaultMonitorInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	wasConnected := false
	check := func() {
		if !m.mu.TryLock() {
			return
		}
		err := m.ensureConnectedLocked(ctx)
		m.mu.Unlock()

		switch {
		case err == nil && !wasConnected:
			m.logger.Info("Host reachable")
			wasConnected = true
		case err != nil && wasConnected:
			m.logger.WithError(err).Error("Lost connection to host")
			wasConnected = false
		case err != nil:
			m.logger.Debug("Waiting for host")
		}
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

// Close drops the connection.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.demote()
	return nil
}

func isTimeout(err error) bool {
	var ne net.Error
	return stderrors.As(err, &ne) && ne.Timeout()
}
