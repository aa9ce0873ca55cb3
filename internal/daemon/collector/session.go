package collector

import (
	"context"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/lombridge/internal/daemon/store"
	"github.com/grovetools/lombridge/internal/liveset"
	"github.com/grovetools/lombridge/pkg/protocol"
)

// Submitter queues a command on the graph owner.
type Submitter interface {
	Submit(ctx context.Context, cmd protocol.Command, timeout time.Duration) (protocol.Response, error)
}

// SessionCollector snapshots the session summary through the dispatcher.
type SessionCollector struct {
	submitter Submitter
	interval  time.Duration
	logger    *logrus.Entry
}

// NewSessionCollector creates a new SessionCollector.
func NewSessionCollector(submitter Submitter, interval time.Duration, logger *logrus.Entry) *SessionCollector {
	if interval <= 0 {
		interval = time.Second
	}
	return &SessionCollector{submitter: submitter, interval: interval, logger: logger}
}

// Name returns the collector's name.
func (c *SessionCollector) Name() string { return "session" }

// Run starts the session polling loop.
func (c *SessionCollector) Run(ctx context.Context, st *store.Store, updates chan<- store.Update) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	scan := func() {
		resp, err := c.submitter.Submit(ctx, protocol.Command{Type: "get_session_info"}, c.interval)
		if err != nil || !resp.OK() {
			c.logger.WithError(err).WithField("message", resp.Message).Debug("Session snapshot failed")
			return
		}
		var info liveset.Info
		if err := decodeJSONTags(resp.Result, &info); err != nil {
			c.logger.WithError(err).Debug("Session snapshot has unexpected shape")
			return
		}

		select {
		case updates <- store.Update{Type: store.UpdateSession, Source: c.Name(), Payload: info}:
		case <-ctx.Done():
		}
	}

	scan()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			scan()
		}
	}
}

func decodeJSONTags(in interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
