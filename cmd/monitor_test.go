package cmd

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/pkg/client"
)

type fakeProber struct {
	state   client.State
	connErr error
	result  interface{}
}

func (f *fakeProber) Address() string      { return "127.0.0.1:9877" }
func (f *fakeProber) State() client.State { return f.state }

func (f *fakeProber) EnsureConnected(ctx context.Context) error {
	if f.connErr != nil {
		f.state = client.Disconnected
		return f.connErr
	}
	f.state = client.Connected
	return nil
}

func (f *fakeProber) SendCommand(ctx context.Context, commandType string, params map[string]interface{}) (interface{}, error) {
	return f.result, nil
}

func TestMonitorShowsSession(t *testing.T) {
	p := &fakeProber{result: map[string]interface{}{
		"tempo":      124.0,
		"tracks":     3,
		"scenes":     2,
		"is_playing": true,
		"signature":  "4/4",
	}}
	m := newMonitorModel(p, time.Second)

	msg := m.poll()()
	probe, ok := msg.(probeMsg)
	require.True(t, ok)
	require.NoError(t, probe.err)

	_, cmd := m.Update(probe)
	assert.NotNil(t, cmd, "next poll is scheduled")

	view := m.View()
	assert.Contains(t, view, "connected")
	assert.Contains(t, view, "124.00 BPM")
	assert.Contains(t, view, "4/4")
	assert.Contains(t, view, "127.0.0.1:9877")
}

func TestMonitorShowsConnectionError(t *testing.T) {
	p := &fakeProber{connErr: errors.Connection("127.0.0.1:9877", nil)}
	m := newMonitorModel(p, time.Second)

	m.Update(m.poll()())

	view := m.View()
	assert.Contains(t, view, "disconnected")
	assert.Contains(t, view, "127.0.0.1:9877")
	assert.Nil(t, m.info)
}

func TestMonitorQuit(t *testing.T) {
	m := newMonitorModel(&fakeProber{}, time.Second)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, m.View())
}
