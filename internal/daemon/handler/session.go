package handler

import (
	"fmt"

	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/pkg/lom"
)

func (h *Handler) universalAccessor(params map[string]interface{}) (interface{}, error) {
	var p struct {
		Action string      `json:"action"`
		Path   string      `json:"path"`
		Value  interface{} `json:"value"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	action, err := lom.ParseAction(p.Action)
	if err != nil {
		return nil, err
	}
	return h.engine.Apply(action, p.Path, p.Value)
}

func (h *Handler) sessionInfo(map[string]interface{}) (interface{}, error) {
	info := h.set.Info()
	return map[string]interface{}{
		"tempo":      info.Tempo,
		"tracks":     info.Tracks,
		"scenes":     info.Scenes,
		"is_playing": info.IsPlaying,
		"signature":  info.Signature,
	}, nil
}

type indexParams struct {
	Index *int `json:"index"`
}

func (h *Handler) createTrack(params map[string]interface{}, midi bool) (interface{}, error) {
	var p indexParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	index := -1
	if p.Index != nil {
		index = *p.Index
	}
	t, err := h.set.Song.CreateTrack(index, midi)
	if err != nil {
		return nil, errors.InvalidInput("index", err.Error())
	}
	return fmt.Sprintf("Created track %q", t.Title), nil
}

func (h *Handler) createMIDITrack(params map[string]interface{}) (interface{}, error) {
	return h.createTrack(params, true)
}

func (h *Handler) createAudioTrack(params map[string]interface{}) (interface{}, error) {
	return h.createTrack(params, false)
}

func (h *Handler) createScene(params map[string]interface{}) (interface{}, error) {
	var p struct {
		Index *int   `json:"index"`
		Name  string `json:"name"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	index := -1
	if p.Index != nil {
		index = *p.Index
	}
	sc, err := h.set.Song.CreateScene(index)
	if err != nil {
		return nil, errors.InvalidInput("index", err.Error())
	}
	sc.Title = p.Name
	return fmt.Sprintf("Created scene %d", h.set.Song.SceneIndex(sc)), nil
}

func (h *Handler) renameTrack(params map[string]interface{}) (interface{}, error) {
	var p struct {
		TrackIndex *int   `json:"track_index"`
		Name       string `json:"name"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	t, err := h.track(p.TrackIndex)
	if err != nil {
		return nil, err
	}
	if p.Name == "" {
		return nil, errors.InvalidInput("name", "required")
	}
	t.Title = p.Name
	return fmt.Sprintf("Renamed track to %q", p.Name), nil
}

func (h *Handler) setTempo(params map[string]interface{}) (interface{}, error) {
	var p struct {
		Tempo *float64 `json:"tempo"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	if p.Tempo == nil {
		return nil, errors.InvalidInput("tempo", "required")
	}
	if _, err := lom.Set(h.set.Song, "tempo", *p.Tempo); err != nil {
		return nil, err
	}
	return fmt.Sprintf("Tempo set to %.2f", h.set.Song.Tempo), nil
}

func (h *Handler) startPlayback(map[string]interface{}) (interface{}, error) {
	h.set.Song.Playing = true
	return "Playback started", nil
}

func (h *Handler) stopPlayback(map[string]interface{}) (interface{}, error) {
	h.set.Song.Playing = false
	return "Playback stopped", nil
}

type clipParams struct {
	TrackIndex *int `json:"track_index"`
	ClipIndex  *int `json:"clip_index"`
}

func (h *Handler) createClip(params map[string]interface{}) (interface{}, error) {
	var p struct {
		TrackIndex *int     `json:"track_index"`
		ClipIndex  *int     `json:"clip_index"`
		Length     *float64 `json:"length"`
	}
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	slot, err := h.slot(p.TrackIndex, p.ClipIndex)
	if err != nil {
		return nil, err
	}
	length := 4.0
	if p.Length != nil {
		length = *p.Length
	}
	if _, err := slot.CreateClip(length); err != nil {
		return nil, hostError("create_clip", err)
	}
	return fmt.Sprintf("Created %.2f beat clip", length), nil
}

func (h *Handler) fireClip(params map[string]interface{}) (interface{}, error) {
	var p clipParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	slot, err := h.slot(p.TrackIndex, p.ClipIndex)
	if err != nil {
		return nil, err
	}
	if slot.Clip == nil {
		return nil, errors.NotFound("clip", fmt.Sprintf("track %d slot %d", *p.TrackIndex, *p.ClipIndex))
	}
	slot.Fire()
	return "Clip fired", nil
}

func (h *Handler) stopClip(params map[string]interface{}) (interface{}, error) {
	var p clipParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	slot, err := h.slot(p.TrackIndex, p.ClipIndex)
	if err != nil {
		return nil, err
	}
	slot.Stop()
	return "Clip stopped", nil
}

func (h *Handler) clipLength(params map[string]interface{}) (interface{}, error) {
	var p clipParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	c, err := h.clip(p.TrackIndex, p.ClipIndex)
	if err != nil {
		return nil, err
	}
	return c.Length, nil
}
