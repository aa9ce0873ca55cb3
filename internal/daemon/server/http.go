package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/lombridge/internal/daemon/metrics"
	"github.com/grovetools/lombridge/internal/daemon/store"
	"github.com/grovetools/lombridge/logging"
	"github.com/grovetools/lombridge/pkg/protocol"
)

// RunningConfig holds the active settings of the host.
// This is exposed via the /api/config endpoint so clients can verify what config is active.
type RunningConfig struct {
	Listen          string        `json:"listen"`
	HTTPAddr        string        `json:"http_addr"`
	Tick            time.Duration `json:"tick"`
	DispatchTimeout time.Duration `json:"dispatch_timeout"`
	MaxFrameBytes   int           `json:"max_frame_bytes"`
	ConfigFile      string        `json:"config_file,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
}

// HTTPServer serves health, status, metrics and the websocket gateway.
type HTTPServer struct {
	logger        *logrus.Entry
	server        *http.Server
	submitter     Submitter
	store         *store.Store
	metrics       *metrics.Metrics
	runningConfig *RunningConfig
	timeout       time.Duration
	upgrader      websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewHTTP creates an HTTP server backed by submitter.
func NewHTTP(submitter Submitter, opts Options) *HTTPServer {
	if opts.DispatchTimeout <= 0 {
		opts.DispatchTimeout = 30 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewLogger("host")
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &HTTPServer{
		logger:    logger.WithField("transport", "http"),
		submitter: submitter,
		store:     opts.Store,
		metrics:   opts.Metrics,
		timeout:   opts.DispatchTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetRunningConfig sets the running configuration for the server.
func (s *HTTPServer) SetRunningConfig(cfg *RunningConfig) {
	s.runningConfig = cfg
}

// Handler returns the route table.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/api/state", s.handleGetState)
	mux.HandleFunc("/api/stream", s.handleStreamState)
	mux.HandleFunc("/api/config", s.handleGetConfig)
	mux.HandleFunc("/api/command", s.handleCommand)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

// ListenAndServe serves on addr until Shutdown.
func (s *HTTPServer) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = listener.Close()
		return nil
	}
	s.server = srv
	s.mu.Unlock()

	s.logger.WithField("addr", listener.Addr().String()).Info("HTTP gateway listening")
	err = srv.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server and closes websocket sessions.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.logger.Debug("Shutting down HTTP gateway")
	s.mu.Lock()
	s.closed = true
	srv := s.server
	s.mu.Unlock()
	s.cancel()

	var err error
	if srv != nil {
		err = srv.Shutdown(ctx)
	}
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		if err == nil {
			err = ctx.Err()
		}
	}
	return err
}

// handleGetState returns the host status as JSON.
func (s *HTTPServer) handleGetState(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "store not initialized", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.store.Get())
}

// handleStreamState provides Server-Sent Events for status updates.
func (s *HTTPServer) handleStreamState(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "store not initialized", http.StatusServiceUnavailable)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.store.Subscribe()
	defer s.store.Unsubscribe(ch)

	fmt.Fprintf(w, ": connected\n\n")
	if data, err := json.Marshal(store.Update{Type: "initial", Payload: s.store.Get()}); err == nil {
		fmt.Fprintf(w, "data: %s\n\n", data)
	}
	flusher.Flush()
	s.logger.Debug("SSE client connected")

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("SSE client disconnected")
			return
		case <-s.ctx.Done():
			return
		case update, open := <-ch:
			if !open {
				return
			}
			data, err := json.Marshal(update)
			if err != nil {
				s.logger.WithError(err).Error("Failed to marshal update")
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// handleGetConfig returns the running configuration as JSON.
func (s *HTTPServer) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	if s.runningConfig == nil {
		http.Error(w, "config not initialized", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.runningConfig)
}

// handleCommand runs one command posted as the request body.
func (s *HTTPServer) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 8<<20))
	if err != nil {
		http.Error(w, "cannot read request body", http.StatusBadRequest)
		return
	}
	resp := Execute(r.Context(), s.submitter, body, s.timeout, s.store, "http", s.logger)
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(append(protocol.EncodeResponse(resp), '\n'))
}
