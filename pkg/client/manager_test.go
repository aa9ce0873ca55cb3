package client

import (
	"context"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/lombridge/config"
	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/internal/daemon/dispatch"
	"github.com/grovetools/lombridge/internal/daemon/handler"
	"github.com/grovetools/lombridge/internal/daemon/server"
	"github.com/grovetools/lombridge/internal/liveset"
	"github.com/grovetools/lombridge/pkg/protocol"
)

func clientConfig(addr string) config.ClientConfig {
	cfg := config.Default().Client
	cfg.Address = addr
	cfg.DialTimeout = config.Duration(time.Second)
	cfg.DefaultTimeout = config.Duration(time.Second)
	cfg.SettleDelay = config.SettleDisabled
	cfg.MonitorInterval = config.Duration(20 * time.Millisecond)
	return cfg
}

// fakeHost accepts connections and hands each one to serve.
type fakeHost struct {
	listener net.Listener
	mu       sync.Mutex
	received []protocol.Command
}

func newFakeHost(t *testing.T, serve func(h *fakeHost, conn net.Conn)) *fakeHost {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	h := &fakeHost{listener: l}
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go serve(h, conn)
		}
	}()
	t.Cleanup(func() { _ = l.Close() })
	return h
}

func (h *fakeHost) addr() string { return h.listener.Addr().String() }

func (h *fakeHost) record(raw []byte) protocol.Command {
	cmd, _ := protocol.DecodeCommand(raw)
	h.mu.Lock()
	h.received = append(h.received, cmd)
	h.mu.Unlock()
	return cmd
}

func (h *fakeHost) commands() []protocol.Command {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]protocol.Command(nil), h.received...)
}

// replyWith answers every command with reply(cmd).
func replyWith(reply func(cmd protocol.Command) protocol.Response) func(*fakeHost, net.Conn) {
	return func(h *fakeHost, conn net.Conn) {
		defer conn.Close()
		frames := protocol.NewFrameReader(conn, 0)
		out := protocol.NewFrameWriter(conn)
		for {
			raw, err := frames.Next()
			if err != nil {
				return
			}
			if err := out.Write(reply(h.record(raw))); err != nil {
				return
			}
		}
	}
}

func TestSendCommandSuccess(t *testing.T) {
	host := newFakeHost(t, replyWith(func(cmd protocol.Command) protocol.Response {
		return protocol.Success(map[string]interface{}{"echo": cmd.Type})
	}))
	m := New(clientConfig(host.addr()))
	defer m.Close()

	assert.Equal(t, Disconnected, m.State())
	res, err := m.SendCommand(context.Background(), "get_session_info", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"echo": "get_session_info"}, res)
	assert.Equal(t, Connected, m.State())

	cmds := host.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, map[string]interface{}{}, cmds[0].Params)
}

func TestSendCommandHostError(t *testing.T) {
	host := newFakeHost(t, replyWith(func(protocol.Command) protocol.Response {
		return protocol.Response{Status: protocol.StatusError, Message: "device 'Theremin' not found"}
	}))
	m := New(clientConfig(host.addr()))
	defer m.Close()

	_, err := m.SendCommand(context.Background(), "load_device", map[string]interface{}{"device_name": "Theremin"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeCommandFailed))
	assert.Contains(t, err.Error(), "device 'Theremin' not found")
	assert.Equal(t, Connected, m.State(), "an error response keeps the connection")
}

func TestSendCommandFragmentedResponse(t *testing.T) {
	host := newFakeHost(t, func(h *fakeHost, conn net.Conn) {
		defer conn.Close()
		frames := protocol.NewFrameReader(conn, 0)
		for {
			raw, err := frames.Next()
			if err != nil {
				return
			}
			h.record(raw)
			reply := `{"status": "success", "result": [1, 2.5, "x"]}`
			for i := 0; i < len(reply); i++ {
				if _, err := conn.Write([]byte{reply[i]}); err != nil {
					return
				}
			}
		}
	})
	m := New(clientConfig(host.addr()))
	defer m.Close()

	res, err := m.SendCommand(context.Background(), "universal_accessor", nil)
	require.NoError(t, err)
	assert.Equal(t, []interface{}{1, 2.5, "x"}, res)
}

func TestSendCommandTimeoutDemotes(t *testing.T) {
	host := newFakeHost(t, func(h *fakeHost, conn net.Conn) {
		defer conn.Close()
		_, _ = io.Copy(io.Discard, conn)
	})
	cfg := clientConfig(host.addr())
	cfg.CommandTimeouts = map[string]config.Duration{"slow": config.Duration(50 * time.Millisecond)}
	m := New(cfg)
	defer m.Close()

	start := time.Now()
	_, err := m.SendCommand(context.Background(), "slow", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeTimeout))
	assert.Less(t, time.Since(start), 900*time.Millisecond)
	assert.Equal(t, Disconnected, m.State())
}

func TestSendCommandContextCanceled(t *testing.T) {
	host := newFakeHost(t, func(h *fakeHost, conn net.Conn) {
		defer conn.Close()
		_, _ = io.Copy(io.Discard, conn)
	})
	m := New(clientConfig(host.addr()))
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := m.SendCommand(ctx, "get_session_info", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeTimeout))
}

func TestSendCommandNoHost(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	m := New(clientConfig(addr))
	_, err = m.SendCommand(context.Background(), "get_session_info", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConnection))
	assert.Equal(t, Disconnected, m.State())
}

func TestSettleDelayForModifyingCommands(t *testing.T) {
	host := newFakeHost(t, replyWith(func(protocol.Command) protocol.Response {
		return protocol.Success(true)
	}))
	cfg := clientConfig(host.addr())
	cfg.SettleDelay = config.Duration(40 * time.Millisecond)
	m := New(cfg)
	defer m.Close()

	start := time.Now()
	_, err := m.SendCommand(context.Background(), "get_session_info", nil)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 40*time.Millisecond)

	start = time.Now()
	_, err = m.SendCommand(context.Background(), "set_device_param", nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestCanceledSettleDropsPendingReply(t *testing.T) {
	host := newFakeHost(t, replyWith(func(cmd protocol.Command) protocol.Response {
		return protocol.Success(cmd.Type)
	}))
	cfg := clientConfig(host.addr())
	cfg.SettleDelay = config.Duration(100 * time.Millisecond)
	m := New(cfg)
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.SendCommand(ctx, "set_device_param", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeTimeout))
	assert.Equal(t, Disconnected, m.State())

	result, err := m.SendCommand(context.Background(), "get_session_info", nil)
	require.NoError(t, err)
	assert.Equal(t, "get_session_info", result)
	assert.Equal(t, Connected, m.State())
}

func TestEnsureConnectedDetectsClosedPeer(t *testing.T) {
	var mu sync.Mutex
	var conns []net.Conn
	host := newFakeHost(t, func(h *fakeHost, conn net.Conn) {
		mu.Lock()
		conns = append(conns, conn)
		mu.Unlock()
	})
	m := New(clientConfig(host.addr()))
	defer m.Close()

	require.NoError(t, m.EnsureConnected(context.Background()))
	require.NoError(t, m.EnsureConnected(context.Background()))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(conns) == 1
	}, time.Second, 5*time.Millisecond, "a healthy connection is reused")

	mu.Lock()
	_ = conns[0].Close()
	mu.Unlock()

	require.NoError(t, m.EnsureConnected(context.Background()))
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(conns) == 2
	}, time.Second, 5*time.Millisecond, "a dead connection is replaced")
	assert.Equal(t, Connected, m.State())
}

func startRealHost(t *testing.T, addr string) (*server.Server, func()) {
	t.Helper()
	log := logrus.NewEntry(logrus.New())
	log.Logger.SetOutput(io.Discard)
	set := liveset.NewDefault()
	h := handler.New(set, config.Default().Search, log)
	d := dispatch.New(h.Handle, time.Millisecond, nil, log)

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	srv := server.NewTCP(d, server.Options{Addr: addr, Logger: log})
	require.NoError(t, srv.Listen())
	go func() { _ = srv.Serve(ctx) }()

	stop := func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}
	return srv, stop
}

func TestReconnectAfterHostRestart(t *testing.T) {
	srv, stop := startRealHost(t, "127.0.0.1:0")
	addr := srv.Addr()
	m := New(clientConfig(addr))
	defer m.Close()

	res, err := m.SendCommand(context.Background(), "universal_accessor",
		map[string]interface{}{"action": "get", "path": "tracks 0.name"})
	require.NoError(t, err)
	assert.Equal(t, "Bass", res)

	stop()

	_, err = m.SendCommand(context.Background(), "get_session_info", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConnection))
	assert.Equal(t, Disconnected, m.State())

	_, stop = startRealHost(t, addr)
	defer stop()

	res, err = m.SendCommand(context.Background(), "get_session_info", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, res.(map[string]interface{})["tracks"])
	assert.Equal(t, Connected, m.State())
}

func TestMonitorLogsTransitionsOnly(t *testing.T) {
	host := newFakeHost(t, replyWith(func(protocol.Command) protocol.Response {
		return protocol.Success(true)
	}))
	m := New(clientConfig(host.addr()))
	defer m.Close()

	logger, hook := test.NewNullLogger()
	m.logger = logrus.NewEntry(logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Monitor(ctx)
		close(done)
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()
	<-done

	reachable := 0
	for _, e := range hook.AllEntries() {
		if e.Message == "Host reachable" {
			reachable++
		}
	}
	assert.Equal(t, 1, reachable)
	assert.Equal(t, Connected, m.State())
}
