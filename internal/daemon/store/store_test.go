package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/lombridge/internal/liveset"
)

func TestApplyUpdate(t *testing.T) {
	st := New()

	st.ApplyUpdate(Update{Type: UpdateSession, Payload: liveset.Info{Tempo: 128, Tracks: 3}})
	st.ApplyUpdate(Update{Type: UpdateConnection, Payload: 1})
	st.ApplyUpdate(Update{Type: UpdateConnection, Payload: 1})
	st.ApplyUpdate(Update{Type: UpdateConnection, Payload: -1})
	st.ApplyUpdate(Update{Type: UpdateCommand, Payload: "set_tempo"})
	st.ApplyUpdate(Update{Type: UpdateCommand, Payload: "get_session_info"})
	st.BroadcastConfigReload("/tmp/lombridge.yml")

	got := st.Get()
	assert.Equal(t, 128.0, got.Session.Tempo)
	assert.Equal(t, 3, got.Session.Tracks)
	assert.Equal(t, 1, got.Connections)
	assert.Equal(t, uint64(2), got.Commands)
	assert.Equal(t, "get_session_info", got.LastCommand)
	assert.Equal(t, "/tmp/lombridge.yml", got.ConfigFile)
	assert.False(t, got.UpdatedAt.Before(got.StartedAt))
}

func TestConnectionsNeverNegative(t *testing.T) {
	st := New()
	st.ApplyUpdate(Update{Type: UpdateConnection, Payload: -1})
	assert.Equal(t, 0, st.Get().Connections)
}

func TestSubscribersReceiveUpdates(t *testing.T) {
	st := New()
	ch := st.Subscribe()

	st.ApplyUpdate(Update{Type: UpdateCommand, Source: "tcp", Payload: "fire_clip"})

	select {
	case u := <-ch:
		assert.Equal(t, UpdateCommand, u.Type)
		assert.Equal(t, "tcp", u.Source)
	default:
		require.Fail(t, "no update delivered")
	}

	st.Unsubscribe(ch)
	st.Unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open)
}
