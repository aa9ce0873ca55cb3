// Package dispatch serializes command execution onto a single goroutine
// that owns the host graph.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/internal/daemon/metrics"
	"github.com/grovetools/lombridge/pkg/protocol"
)

// HandleFunc executes one command on the owning goroutine.
type HandleFunc func(cmd protocol.Command) (interface{}, error)

type task struct {
	cmd       protocol.Command
	submitted time.Time
	// result has capacity 1 so a task finishing after its caller gave up
	// never blocks the owner.
	result chan protocol.Response
}

// Dispatcher queues commands and runs them in FIFO order, draining the
// queue once per tick.
type Dispatcher struct {
	handle  HandleFunc
	tick    time.Duration
	metrics *metrics.Metrics
	logger  *logrus.Entry

	mu      sync.Mutex
	queue   []*task
	stopped bool
}

// New returns a Dispatcher. Call Run to start the owning goroutine.
func New(handle HandleFunc, tick time.Duration, m *metrics.Metrics, logger *logrus.Entry) *Dispatcher {
	if tick <= 0 {
		tick = 10 * time.Millisecond
	}
	return &Dispatcher{handle: handle, tick: tick, metrics: m, logger: logger}
}

// Submit enqueues cmd and waits for its response. It returns a Timeout
// error when no result arrives within timeout; the task still runs.
func (d *Dispatcher) Submit(ctx context.Context, cmd protocol.Command, timeout time.Duration) (protocol.Response, error) {
	t := &task{cmd: cmd, submitted: time.Now(), result: make(chan protocol.Response, 1)}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return protocol.Response{}, errors.New(errors.ErrCodeInternal, "dispatcher is stopped")
	}
	d.queue = append(d.queue, t)
	depth := len(d.queue)
	d.mu.Unlock()
	d.metrics.SetQueueDepth(depth)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-t.result:
		return resp, nil
	case <-timer.C:
		d.metrics.RecordTimeout()
		d.logger.WithField("command", cmd.Type).WithField("timeout", timeout).Warn("Command timed out waiting for the graph owner")
		return protocol.Response{}, errors.Timeout("command "+cmd.Type, timeout)
	case <-ctx.Done():
		return protocol.Response{}, errors.Wrap(ctx.Err(), errors.ErrCodeTimeout, "command "+cmd.Type+" abandoned")
	}
}

// Pending returns the number of queued tasks.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Run owns the graph until ctx is canceled. Tasks still queued at that
// point are failed.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.tick)
	defer ticker.Stop()

	d.logger.WithField("tick", d.tick).Debug("Dispatcher started")
	for {
		select {
		case <-ctx.Done():
			d.stop()
			return
		case <-ticker.C:
			d.drain()
		}
	}
}

// drain runs the tasks queued before this tick. Tasks submitted while it
// runs wait for the next tick.
func (d *Dispatcher) drain() {
	d.mu.Lock()
	batch := d.queue
	d.queue = nil
	d.mu.Unlock()
	if len(batch) == 0 {
		return
	}
	d.metrics.SetQueueDepth(0)

	for _, t := range batch {
		resp := d.execute(t.cmd)
		d.metrics.RecordCommand(t.cmd.Type, resp.OK(), time.Since(t.submitted))
		t.result <- resp
	}
}

func (d *Dispatcher) execute(cmd protocol.Command) (resp protocol.Response) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.RecordPanic()
			d.logger.WithField("command", cmd.Type).
				WithField("panic", r).
				WithField("stack", string(debug.Stack())).
				Error("Command panicked")
			resp = protocol.Failure(errors.New(errors.ErrCodeInternal, fmt.Sprintf("%s panicked: %v", cmd.Type, r)))
		}
	}()

	result, err := d.handle(cmd)
	if err != nil {
		d.logger.WithField("command", cmd.Type).WithError(err).Debug("Command failed")
		return protocol.Failure(err)
	}
	return protocol.Success(result)
}

func (d *Dispatcher) stop() {
	d.mu.Lock()
	d.stopped = true
	batch := d.queue
	d.queue = nil
	d.mu.Unlock()

	for _, t := range batch {
		t.result <- protocol.Failure(errors.New(errors.ErrCodeInternal, "host is shutting down"))
	}
	d.metrics.SetQueueDepth(0)
	d.logger.WithField("abandoned", len(batch)).Debug("Dispatcher stopped")
}
