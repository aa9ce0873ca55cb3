// Package server exposes the dispatcher over TCP, websocket and HTTP.
package server

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/internal/daemon/metrics"
	"github.com/grovetools/lombridge/internal/daemon/store"
	"github.com/grovetools/lombridge/logging"
	"github.com/grovetools/lombridge/pkg/protocol"
)

// Submitter queues a command on the graph owner and waits for the result.
type Submitter interface {
	Submit(ctx context.Context, cmd protocol.Command, timeout time.Duration) (protocol.Response, error)
}

// Options configures a Server.
type Options struct {
	Addr            string
	DispatchTimeout time.Duration
	MaxFrameBytes   int
	AcceptRate      float64
	Metrics         *metrics.Metrics
	Store           *store.Store
	Logger          *logrus.Entry
}

// Server speaks the framed JSON protocol over TCP. Each connection is
// served by its own goroutine, one command at a time.
type Server struct {
	opts      Options
	submitter Submitter
	logger    *logrus.Entry

	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
	mu       sync.Mutex
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewTCP creates a TCP protocol server.
func NewTCP(submitter Submitter, opts Options) *Server {
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = 30 * time.Second
	}
	if opts.AcceptRate <= 0 {
		opts.AcceptRate = 10
	}
	if opts.Logger == nil {
		opts.Logger = logging.NewLogger("host")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		opts:      opts,
		submitter: submitter,
		logger:    opts.Logger.WithField("transport", "tcp"),
		conns:     make(map[net.Conn]struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Listen binds the listening socket. It is separate from Serve so callers
// can learn the bound address before accepting.
func (s *Server) Listen() error {
	listener, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return errors.Connection(s.opts.Addr, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	return nil
}

// Serve accepts connections until ctx is canceled or Shutdown is called.
// Call Shutdown afterwards to close the listener and open connections.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	if listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
		listener = s.getListener()
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.WithField("addr", listener.Addr().String()).Info("Host listening")
	go s.acceptLoop(listener)

	select {
	case <-ctx.Done():
		s.cancel()
	case <-s.ctx.Done():
	}
	return nil
}

func (s *Server) getListener() net.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listener
}

// Shutdown closes the listener and every connection, then waits for the
// connection goroutines to exit or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	s.mu.Lock()
	s.closed = true
	if s.listener != nil {
		_ = s.listener.Close()
	}
	for conn := range s.conns {
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Debug("TCP server stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Addr returns the bound address, or the configured one before Listen.
func (s *Server) Addr() string {
	if l := s.getListener(); l != nil {
		return l.Addr().String()
	}
	return s.opts.Addr
}

func (s *Server) acceptLoop(listener net.Listener) {
	defer s.wg.Done()
	limiter := rate.NewLimiter(rate.Limit(s.opts.AcceptRate), 1)

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			if stderrors.Is(err, net.ErrClosed) {
				return
			}
			s.logger.WithError(err).Warn("Accept failed")
			if werr := limiter.Wait(s.ctx); werr != nil {
				return
			}
			continue
		}

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			_ = conn.Close()
			return
		}
		s.conns[conn] = struct{}{}
		s.wg.Add(1)
		s.mu.Unlock()

		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.wg.Done()
	log := s.logger.WithField("remote", conn.RemoteAddr().String())
	s.opts.Metrics.ConnectionOpened("tcp")
	s.track(1)
	log.Debug("Client connected")

	defer func() {
		_ = conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		s.opts.Metrics.ConnectionClosed("tcp")
		s.track(-1)
		log.Debug("Client disconnected")
	}()

	frames := protocol.NewFrameReader(conn, s.opts.MaxFrameBytes)
	out := protocol.NewFrameWriter(conn)

	for {
		raw, err := frames.Next()
		if err != nil {
			if errors.Is(err, errors.ErrCodeProtocol) {
				s.opts.Metrics.RecordProtocolError()
				log.WithError(err).Warn("Discarding malformed frame")
				if werr := out.WriteResponse(protocol.Failure(err)); werr != nil {
					return
				}
				continue
			}
			if err != io.EOF && !stderrors.Is(err, net.ErrClosed) {
				log.WithError(err).Debug("Connection read ended")
			}
			return
		}

		resp := Execute(s.ctx, s.submitter, raw, s.opts.DispatchTimeout, s.opts.Store, "tcp", log)
		if err := out.WriteResponse(resp); err != nil {
			log.WithError(err).Debug("Response write failed")
			return
		}
	}
}

func (s *Server) track(delta int) {
	if s.opts.Store == nil {
		return
	}
	s.opts.Store.ApplyUpdate(store.Update{Type: store.UpdateConnection, Source: "tcp", Payload: delta})
}

// Execute decodes one framed command, runs it through submitter and
// returns the response to send. It never returns an error: failures are
// rendered as error responses.
func Execute(ctx context.Context, submitter Submitter, raw []byte, timeout time.Duration, st *store.Store, source string, log *logrus.Entry) protocol.Response {
	cmd, err := protocol.DecodeCommand(raw)
	if err != nil {
		log.WithError(err).Warn("Rejected request")
		return protocol.Failure(err)
	}

	entry := log.WithFields(logrus.Fields{
		"request_id": uuid.NewString(),
		"command":    cmd.Type,
	})
	start := time.Now()

	resp, err := submitter.Submit(ctx, cmd, timeout)
	if err != nil {
		resp = protocol.Failure(err)
	}
	if st != nil {
		st.ApplyUpdate(store.Update{Type: store.UpdateCommand, Source: source, Payload: cmd.Type})
	}

	entry = entry.WithField("duration", time.Since(start).Round(time.Microsecond))
	if resp.OK() {
		entry.Debug("Command completed")
	} else {
		entry.WithField("message", resp.Message).Info("Command failed")
	}
	return resp
}
