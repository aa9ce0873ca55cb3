// Package handler executes protocol commands against the host graph.
//
// A Handler is not safe for concurrent use except for UpdateSearch; the
// dispatcher calls Handle from its single owning goroutine.
package handler

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/mitchellh/mapstructure"
	"github.com/sirupsen/logrus"

	"github.com/grovetools/lombridge/config"
	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/internal/liveset"
	"github.com/grovetools/lombridge/pkg/lom"
	"github.com/grovetools/lombridge/pkg/protocol"
)

type commandFunc func(h *Handler, params map[string]interface{}) (interface{}, error)

var commands = map[string]commandFunc{
	"universal_accessor": (*Handler).universalAccessor,
	"get_session_info":   (*Handler).sessionInfo,

	"create_midi_track": (*Handler).createMIDITrack,
	"create_audio_track": (*Handler).createAudioTrack,
	"create_scene":       (*Handler).createScene,
	"rename_track":       (*Handler).renameTrack,
	"set_tempo":          (*Handler).setTempo,
	"start_playback":     (*Handler).startPlayback,
	"stop_playback":      (*Handler).stopPlayback,

	"create_clip":     (*Handler).createClip,
	"fire_clip":       (*Handler).fireClip,
	"stop_clip":       (*Handler).stopClip,
	"get_clip_length": (*Handler).clipLength,

	"add_midi_notes":   (*Handler).addMIDINotes,
	"read_midi_notes":  (*Handler).readMIDINotes,
	"clear_midi_notes": (*Handler).clearMIDINotes,

	"load_device":      (*Handler).loadDevice,
	"load_instrument":  (*Handler).loadDevice,
	"load_sample":      (*Handler).loadSample,
	"delete_device":    (*Handler).deleteDevice,
	"set_device_param": (*Handler).setDeviceParam,
	"add_automation":   (*Handler).addAutomation,
}

// Commands lists every command type the handler accepts, sorted.
func Commands() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type searchSettings struct {
	policy      *lom.NamePolicy
	deviceRoots []string
	sampleRoots []string
}

// Handler maps command types onto operations over a live set.
type Handler struct {
	set    *liveset.LiveSet
	engine *lom.Engine
	search atomic.Pointer[searchSettings]
	logger *logrus.Entry
}

// New returns a Handler over set using the given search settings.
func New(set *liveset.LiveSet, search config.SearchConfig, logger *logrus.Entry) *Handler {
	h := &Handler{
		set:    set,
		engine: lom.NewEngine(lom.NewResolver(set.Roots())),
		logger: logger,
	}
	h.UpdateSearch(search)
	return h
}

// UpdateSearch swaps the name policy and search roots. It is safe to call
// from any goroutine.
func (h *Handler) UpdateSearch(search config.SearchConfig) {
	h.search.Store(&searchSettings{
		policy:      lom.NewNamePolicy(search.StripWords, search.Aliases),
		deviceRoots: append([]string(nil), search.DeviceRoots...),
		sampleRoots: append([]string(nil), search.SampleRoots...),
	})
}

// Handle runs cmd and returns its result.
func (h *Handler) Handle(cmd protocol.Command) (interface{}, error) {
	fn, ok := commands[cmd.Type]
	if !ok {
		return nil, errors.UnknownCommand(cmd.Type)
	}
	params := cmd.Params
	if params == nil {
		params = map[string]interface{}{}
	}
	return fn(h, params)
}

// decodeParams fills out from params, matching on json tags and accepting
// loosely typed input such as "3" for an int.
func decodeParams(params map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to build parameter decoder")
	}
	if err := dec.Decode(params); err != nil {
		return errors.InvalidInput("params", err.Error())
	}
	return nil
}

func required(field string, v *int) (int, error) {
	if v == nil {
		return 0, errors.InvalidInput(field, "required")
	}
	return *v, nil
}

func (h *Handler) track(index *int) (*liveset.Track, error) {
	i, err := required("track_index", index)
	if err != nil {
		return nil, err
	}
	t, err := h.set.Track(i)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeNotFound, fmt.Sprintf("track %d not found", i))
	}
	return t, nil
}

func (h *Handler) slot(trackIndex, clipIndex *int) (*liveset.ClipSlot, error) {
	t, err := h.track(trackIndex)
	if err != nil {
		return nil, err
	}
	ci, err := required("clip_index", clipIndex)
	if err != nil {
		return nil, err
	}
	s, err := t.Slot(ci)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeNotFound, fmt.Sprintf("clip slot %d not found", ci))
	}
	return s, nil
}

func (h *Handler) clip(trackIndex, clipIndex *int) (*liveset.Clip, error) {
	s, err := h.slot(trackIndex, clipIndex)
	if err != nil {
		return nil, err
	}
	if s.Clip == nil {
		return nil, errors.NotFound("clip", fmt.Sprintf("track %d slot %d", *trackIndex, *clipIndex))
	}
	return s.Clip, nil
}

func hostError(command string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*errors.BridgeError); ok {
		return err
	}
	return errors.Wrap(err, errors.ErrCodeCommandFailed, command+" failed")
}
