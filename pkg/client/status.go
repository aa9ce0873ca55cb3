package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/internal/daemon/server"
	"github.com/grovetools/lombridge/internal/daemon/store"
	"github.com/grovetools/lombridge/version"
)

// StatusClient reads the host's HTTP gateway.
type StatusClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewStatusClient creates a client for the gateway at addr (host:port).
func NewStatusClient(addr string) *StatusClient {
	return &StatusClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    "http://" + addr,
	}
}

// IsRunning returns true if the gateway answers its health check.
func (c *StatusClient) IsRunning(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// State returns the host status snapshot.
func (c *StatusClient) State(ctx context.Context) (*store.State, error) {
	var state store.State
	if err := c.getJSON(ctx, "/api/state", &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// RunningConfig returns the settings the host is running with.
func (c *StatusClient) RunningConfig(ctx context.Context) (*server.RunningConfig, error) {
	var cfg server.RunningConfig
	if err := c.getJSON(ctx, "/api/config", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *StatusClient) getJSON(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to create request")
	}
	req.Header.Set("User-Agent", version.UserAgent())
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Connection(c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.New(errors.ErrCodeConnection, fmt.Sprintf("gateway returned status %d for %s", resp.StatusCode, path))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Protocol("cannot decode "+path, err)
	}
	return nil
}

// StreamState subscribes to status updates via Server-Sent Events. The
// channel is closed when ctx is canceled or the stream ends.
func (c *StatusClient) StreamState(ctx context.Context) (<-chan store.Update, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/stream", nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to create stream request")
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "text/event-stream")

	// No timeout for streaming.
	streamClient := &http.Client{}
	resp, err := streamClient.Do(req)
	if err != nil {
		return nil, errors.Connection(c.baseURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.New(errors.ErrCodeConnection, fmt.Sprintf("stream returned status %d", resp.StatusCode))
	}

	ch := make(chan store.Update, 10)
	go func() {
		defer resp.Body.Close()
		defer close(ch)

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var update store.Update
			if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &update); err != nil {
				continue
			}
			select {
			case ch <- update:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

// Close releases idle connections.
func (c *StatusClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
