package collector

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/lombridge/internal/daemon/store"
	"github.com/grovetools/lombridge/internal/liveset"
	"github.com/grovetools/lombridge/pkg/protocol"
)

type stubSubmitter struct {
	resp protocol.Response
	err  error
	seen chan string
}

func (s *stubSubmitter) Submit(ctx context.Context, cmd protocol.Command, timeout time.Duration) (protocol.Response, error) {
	select {
	case s.seen <- cmd.Type:
	default:
	}
	return s.resp, s.err
}

func quiet() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestSessionCollectorEmitsSnapshot(t *testing.T) {
	sub := &stubSubmitter{
		resp: protocol.Success(map[string]interface{}{
			"tempo": 124.0, "tracks": 3, "scenes": 4, "is_playing": true, "signature": "4/4",
		}),
		seen: make(chan string, 1),
	}
	c := NewSessionCollector(sub, time.Hour, quiet())
	assert.Equal(t, "session", c.Name())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	updates := make(chan store.Update, 1)
	go func() { _ = c.Run(ctx, store.New(), updates) }()

	select {
	case u := <-updates:
		assert.Equal(t, store.UpdateSession, u.Type)
		assert.Equal(t, liveset.Info{Tempo: 124, Tracks: 3, Scenes: 4, IsPlaying: true, Signature: "4/4"}, u.Payload)
	case <-time.After(2 * time.Second):
		require.Fail(t, "no snapshot emitted")
	}
	assert.Equal(t, "get_session_info", <-sub.seen)
}

func TestSessionCollectorSkipsFailures(t *testing.T) {
	sub := &stubSubmitter{resp: protocol.Response{Status: protocol.StatusError, Message: "boom"}, seen: make(chan string, 1)}
	c := NewSessionCollector(sub, time.Hour, quiet())

	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan store.Update, 1)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx, store.New(), updates) }()

	<-sub.seen
	cancel()
	require.NoError(t, <-done)
	assert.Empty(t, updates)
}
