package handler

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/lombridge/config"
	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/internal/liveset"
	"github.com/grovetools/lombridge/pkg/protocol"
)

func newTestHandler(t *testing.T) (*Handler, *liveset.LiveSet) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	set := liveset.NewDefault()
	return New(set, config.Default().Search, logrus.NewEntry(logger)), set
}

func run(h *Handler, typ string, params map[string]interface{}) (interface{}, error) {
	return h.Handle(protocol.Command{Type: typ, Params: params})
}

func TestUniversalAccessorClampsVolume(t *testing.T) {
	h, set := newTestHandler(t)

	res, err := run(h, "universal_accessor", map[string]interface{}{
		"action": "set",
		"path":   "song.tracks[0].mixer_device.volume.value",
		"value":  5.0,
	})
	require.NoError(t, err)
	assert.Equal(t, true, res)
	assert.Equal(t, 1.0, set.Song.Tracks[0].Mixer.Volume.Value)

	res, err = run(h, "universal_accessor", map[string]interface{}{"action": "GET", "path": "tracks 0.name"})
	require.NoError(t, err)
	assert.Equal(t, "Bass", res)
}

func TestUniversalAccessorErrors(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name   string
		params map[string]interface{}
		code   errors.ErrorCode
	}{
		{"bad action", map[string]interface{}{"action": "delete", "path": "song.tempo"}, errors.ErrCodeInvalidInput},
		{"missing segment", map[string]interface{}{"action": "get", "path": "song.tracks[7].name"}, errors.ErrCodeResolution},
		{"missing attribute", map[string]interface{}{"action": "get", "path": "song.volume"}, errors.ErrCodeAccessor},
		{"read-only", map[string]interface{}{"action": "set", "path": "song.tracks", "value": 1}, errors.ErrCodeAccessor},
		{"indexed set", map[string]interface{}{"action": "set", "path": "song.tracks[0]", "value": 1}, errors.ErrCodeAccessor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(h, "universal_accessor", tt.params)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
		})
	}
}

func TestUnknownCommand(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := run(h, "make_it_sound_good", nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeUnknownCommand, errors.GetCode(err))
	assert.Contains(t, Commands(), "universal_accessor")
	assert.Contains(t, Commands(), "load_device")
}

func TestLoadDevice(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"alias after stripping", "Drum Rack", "Loaded: 909 Core Kit"},
		{"strip plugin qualifier", "Serum VST3", "Loaded: Serum"},
		{"exact beats earlier fuzzy", "analog", "Loaded: Analog"},
		{"fuzzy fallback", "grand", "Loaded: Grand Piano"},
		{"later root", "reverb", "Loaded: Reverb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, set := newTestHandler(t)
			before := len(set.Song.Tracks[2].Devices)

			res, err := run(h, "load_device", map[string]interface{}{"track_index": 2, "device_name": tt.input})
			require.NoError(t, err)
			assert.Equal(t, tt.want, res)
			assert.Len(t, set.Song.Tracks[2].Devices, before+1)
			assert.Same(t, set.Song.Tracks[2], set.Application.View.SelectedTrack)
		})
	}
}

func TestLoadDeviceFailures(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := run(h, "load_device", map[string]interface{}{"track_index": 0, "device_name": "Theremin"})
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))

	_, err = run(h, "load_device", map[string]interface{}{"track_index": 0, "device_name": "VST"})
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))

	_, err = run(h, "load_device", map[string]interface{}{"device_name": "Analog"})
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))

	_, err = run(h, "load_device", map[string]interface{}{"track_index": 12, "device_name": "Analog"})
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
}

func TestUpdateSearchAppliesNewAliases(t *testing.T) {
	h, set := newTestHandler(t)

	search := config.Default().Search
	search.Aliases = map[string]string{"fm": "operator"}
	h.UpdateSearch(search)

	res, err := run(h, "load_instrument", map[string]interface{}{"track_index": "1", "device_name": "FM"})
	require.NoError(t, err)
	assert.Equal(t, "Loaded: Operator", res)
	assert.Equal(t, "Operator", set.Song.Tracks[1].Devices[2].Title)
}

func TestLoadSample(t *testing.T) {
	h, set := newTestHandler(t)

	res, err := run(h, "load_sample", map[string]interface{}{"track_index": 2, "clip_index": 1, "sample_name": "Rain"})
	require.NoError(t, err)
	assert.Equal(t, "Sample loaded: rain.wav", res)
	require.NotNil(t, set.Song.Tracks[2].ClipSlots[1].Clip)
	assert.Equal(t, "rain", set.Song.Tracks[2].ClipSlots[1].Clip.Title)

	_, err = run(h, "load_sample", map[string]interface{}{"track_index": 2, "clip_index": 0, "sample_name": "cowbell"})
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))

	_, err = run(h, "load_sample", map[string]interface{}{"track_index": 0, "clip_index": 1, "sample_name": "kick_01.wav"})
	assert.Equal(t, errors.ErrCodeCommandFailed, errors.GetCode(err))
}

func TestDeleteDevice(t *testing.T) {
	h, set := newTestHandler(t)

	res, err := run(h, "delete_device", map[string]interface{}{"track_index": 1, "device_name": "REV"})
	require.NoError(t, err)
	assert.Equal(t, "Deleted 1 device(s)", res)
	require.Len(t, set.Song.Tracks[1].Devices, 1)
	assert.Equal(t, "Analog", set.Song.Tracks[1].Devices[0].Title)

	_, err = run(h, "delete_device", map[string]interface{}{"track_index": 1, "device_name": "compressor"})
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))

	res, err = run(h, "delete_device", map[string]interface{}{"track_index": 0, "device_name": "all"})
	require.NoError(t, err)
	assert.Equal(t, "Deleted 1 device(s)", res)
	assert.Empty(t, set.Song.Tracks[0].Devices)
}

func TestSetDeviceParamClamps(t *testing.T) {
	h, set := newTestHandler(t)

	res, err := run(h, "set_device_param", map[string]interface{}{
		"track_index": 1, "device_name": "analog", "param_name": "FREQ", "value": 99999,
	})
	require.NoError(t, err)
	assert.Equal(t, "Filter Freq set to 20000", res)
	assert.Equal(t, 20000.0, set.Song.Tracks[1].Devices[0].FindParameter("freq").Value)

	_, err = run(h, "set_device_param", map[string]interface{}{
		"track_index": 1, "device_name": "analog", "param_name": "cutoff", "value": 1,
	})
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
}

func TestAddAutomationMapsNormalizedValues(t *testing.T) {
	h, set := newTestHandler(t)

	res, err := run(h, "add_automation", map[string]interface{}{
		"track_index": 0, "clip_index": 0, "device_name": "operator", "param_name": "algorithm",
		"points": []interface{}{
			map[string]interface{}{"time": 0, "value": 0},
			map[string]interface{}{"time": 1, "value": 0.5},
			map[string]interface{}{"time": 2, "value": 3},
			map[string]interface{}{"time": 3},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Automation added on Algorithm (4 points)", res)

	clip := set.Song.Tracks[0].ClipSlots[0].Clip
	param := set.Song.Tracks[0].Devices[0].FindParameter("algorithm")
	env := clip.AutomationEnvelope(param)
	assert.Equal(t, []liveset.EnvelopeEvent{
		{Time: 0, Value: 0},
		{Time: 1, Value: 5},
		{Time: 2, Value: 10},
		{Time: 3, Value: 5},
	}, env.Events)

	_, err = run(h, "add_automation", map[string]interface{}{
		"track_index": 0, "clip_index": 3, "device_name": "operator", "param_name": "volume",
	})
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
}

func TestMIDINotesRoundTrip(t *testing.T) {
	h, _ := newTestHandler(t)

	_, err := run(h, "create_clip", map[string]interface{}{"track_index": 1, "clip_index": 2, "length": 8})
	require.NoError(t, err)

	res, err := run(h, "add_midi_notes", map[string]interface{}{
		"track_index": 1, "clip_index": 2,
		"notes": []interface{}{
			map[string]interface{}{"pitch": 64, "start_time": 1.0, "duration": 0.5, "velocity": 300},
			map[string]interface{}{"time": 0, "length": 1, "vel": 0, "mute": true},
			map[string]interface{}{"pitch": 67, "start": 2},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Added 3 notes", res)

	res, err = run(h, "read_midi_notes", map[string]interface{}{"track_index": 1, "clip_index": 2})
	require.NoError(t, err)
	assert.Equal(t, []interface{}{
		map[string]interface{}{"pitch": 60, "start": 0.0, "dur": 1.0, "vel": 1, "mute": true},
		map[string]interface{}{"pitch": 64, "start": 1.0, "dur": 0.5, "vel": 127, "mute": false},
		map[string]interface{}{"pitch": 67, "start": 2.0, "dur": 0.25, "vel": 100, "mute": false},
	}, res)

	_, err = run(h, "clear_midi_notes", map[string]interface{}{"track_index": 1, "clip_index": 2})
	require.NoError(t, err)
	res, err = run(h, "read_midi_notes", map[string]interface{}{"track_index": 1, "clip_index": 2})
	require.NoError(t, err)
	assert.Empty(t, res)

	_, err = run(h, "read_midi_notes", map[string]interface{}{"track_index": 1, "clip_index": 3})
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))
}

func TestSessionCommands(t *testing.T) {
	h, set := newTestHandler(t)

	_, err := run(h, "set_tempo", map[string]interface{}{"tempo": 5000})
	require.NoError(t, err)
	assert.Equal(t, 999.0, set.Song.Tempo)

	_, err = run(h, "create_midi_track", nil)
	require.NoError(t, err)
	_, err = run(h, "create_audio_track", map[string]interface{}{"index": 0})
	require.NoError(t, err)
	_, err = run(h, "rename_track", map[string]interface{}{"track_index": 0, "name": "Vox"})
	require.NoError(t, err)
	_, err = run(h, "start_playback", nil)
	require.NoError(t, err)

	res, err := run(h, "get_session_info", nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{
		"tempo":      999.0,
		"tracks":     5,
		"scenes":     4,
		"is_playing": true,
		"signature":  "4/4",
	}, res)
	assert.Equal(t, "Vox", set.Song.Tracks[0].Title)
	assert.False(t, set.Song.Tracks[0].MIDI)

	_, err = run(h, "create_midi_track", map[string]interface{}{"index": 42})
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.GetCode(err))
}

func TestClipCommands(t *testing.T) {
	h, set := newTestHandler(t)

	res, err := run(h, "get_clip_length", map[string]interface{}{"track_index": 0, "clip_index": 0})
	require.NoError(t, err)
	assert.Equal(t, 4.0, res)

	_, err = run(h, "fire_clip", map[string]interface{}{"track_index": 0, "clip_index": 0})
	require.NoError(t, err)
	assert.True(t, set.Song.Tracks[0].ClipSlots[0].Clip.Playing)

	_, err = run(h, "stop_clip", map[string]interface{}{"track_index": 0, "clip_index": 0})
	require.NoError(t, err)
	assert.False(t, set.Song.Tracks[0].ClipSlots[0].Clip.Playing)

	_, err = run(h, "fire_clip", map[string]interface{}{"track_index": 0, "clip_index": 1})
	assert.Equal(t, errors.ErrCodeNotFound, errors.GetCode(err))

	_, err = run(h, "create_clip", map[string]interface{}{"track_index": 0, "clip_index": 0})
	assert.Equal(t, errors.ErrCodeCommandFailed, errors.GetCode(err))
}
