package lom

import (
	"testing"

	"github.com/grovetools/lombridge/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"tracks 0.name", "tracks[0].name"},
		{"live_set tracks 2 name", "song.tracks[2].name"},
		{"live_set.tracks[1].mute", "song.tracks[1].mute"},
		{"  song  tracks 0   mixer_device volume value ", "song.tracks[0].mixer_device.volume.value"},
		{"app browser instruments", "app.browser.instruments"},
		{"live_settings.x", "live_settings.x"},
		{"clip_slots 12.clip", "clip_slots[12].clip"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestResolveShorthandPath(t *testing.T) {
	engine, _, _ := fakeEngine()

	target, err := engine.Resolver().Resolve("tracks 0.name")
	require.NoError(t, err)
	assert.Equal(t, "song.tracks[0].name", target.Path)
	assert.Equal(t, RootSession, target.Root)

	got, err := engine.Apply(ActionGet, "tracks 0.name", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bass", got)
}

func TestResolveRoots(t *testing.T) {
	song, app, browser, _ := fakeSet()
	r := NewResolver(Roots{Session: song, Application: app, Browser: browser})

	tests := []struct {
		path   string
		root   RootKind
		parent Node
		attr   string
	}{
		{"app.browser.instruments", RootBrowser, browser, "instruments"},
		{"application.browser.instruments", RootBrowser, browser, "instruments"},
		{"browser.instruments", RootBrowser, browser, "instruments"},
		{"app.version", RootApplication, app, "version"},
		{"application.version", RootApplication, app, "version"},
		{"song.tempo", RootSession, song, "tempo"},
		{"tempo", RootSession, song, "tempo"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			target, err := r.Resolve(tt.path)
			require.NoError(t, err)
			assert.Equal(t, tt.root, target.Root)
			assert.Same(t, tt.parent, target.Parent)
			require.NotNil(t, target.Final)
			assert.Equal(t, tt.attr, target.Final.Name)
		})
	}
}

func TestResolveEmptyPathReturnsRoot(t *testing.T) {
	engine, _, _ := fakeEngine()

	for _, path := range []string{"", "song", "live_set", "..."} {
		got, err := engine.Apply(ActionGet, path, nil)
		require.NoError(t, err, path)
		assert.Equal(t, "Fake(Song)", got, path)
	}
	got, err := engine.Apply(ActionGet, "app", nil)
	require.NoError(t, err)
	assert.Equal(t, "Fake(Application)", got)
}

func TestResolveErrors(t *testing.T) {
	engine, _, _ := fakeEngine()

	tests := []struct {
		name string
		path string
	}{
		{"missing attribute", "song.scenes[0].name"},
		{"index out of range", "song.tracks[7].name"},
		{"negative index", "song.tracks[-1].name"},
		{"bad segment", "song.tr@cks.name"},
		{"scalar intermediate", "song.tempo.value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Resolver().Resolve(tt.path)
			require.Error(t, err)
			assert.Equal(t, errors.ErrCodeResolution, errors.GetCode(err))
		})
	}
}

func TestResolveIsDeterministic(t *testing.T) {
	engine, _, _ := fakeEngine()
	paths := []string{"tracks 1 name", "song.tracks[0].mixer_device.volume.value", "app browser instruments"}

	for _, p := range paths {
		first, err := engine.Resolver().Resolve(p)
		require.NoError(t, err)
		second, err := engine.Resolver().Resolve(p)
		require.NoError(t, err)
		assert.Same(t, first.Parent, second.Parent)
		assert.Equal(t, first.Path, second.Path)
	}
}
