package handler

import (
	"fmt"

	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/internal/liveset"
	"github.com/grovetools/lombridge/pkg/lom"
)

type notesParams struct {
	TrackIndex *int                     `json:"track_index"`
	ClipIndex  *int                     `json:"clip_index"`
	Notes      []map[string]interface{} `json:"notes"`
}

// firstNumber returns the first of keys present in n as a float.
func firstNumber(n map[string]interface{}, def float64, keys ...string) (float64, error) {
	for _, k := range keys {
		v, ok := n[k]
		if !ok || v == nil {
			continue
		}
		f, ok := lom.ToFloat(v)
		if !ok {
			return 0, errors.InvalidInput(k, fmt.Sprintf("%v is not a number", v))
		}
		return f, nil
	}
	return def, nil
}

func parseNote(n map[string]interface{}) (liveset.Note, error) {
	start, err := firstNumber(n, 0, "start_time", "start", "time")
	if err != nil {
		return liveset.Note{}, err
	}
	dur, err := firstNumber(n, 0.25, "duration", "dur", "length")
	if err != nil {
		return liveset.Note{}, err
	}
	vel, err := firstNumber(n, 100, "velocity", "vel")
	if err != nil {
		return liveset.Note{}, err
	}
	pitch, err := firstNumber(n, 60, "pitch")
	if err != nil {
		return liveset.Note{}, err
	}
	mute, _ := n["mute"].(bool)
	return liveset.Note{
		Pitch:    int(pitch),
		Start:    start,
		Duration: dur,
		Velocity: int(lom.Clamp(float64(int(vel)), 1, 127)),
		Mute:     mute,
	}, nil
}

func (h *Handler) addMIDINotes(params map[string]interface{}) (interface{}, error) {
	var p notesParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	c, err := h.clip(p.TrackIndex, p.ClipIndex)
	if err != nil {
		return nil, err
	}
	notes := make([]liveset.Note, 0, len(p.Notes))
	for _, raw := range p.Notes {
		n, err := parseNote(raw)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	if err := c.AddNotes(notes); err != nil {
		return nil, hostError("add_midi_notes", err)
	}
	return fmt.Sprintf("Added %d notes", len(notes)), nil
}

func (h *Handler) readMIDINotes(params map[string]interface{}) (interface{}, error) {
	var p notesParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	c, err := h.clip(p.TrackIndex, p.ClipIndex)
	if err != nil {
		return nil, err
	}
	notes := c.Notes()
	out := make([]interface{}, len(notes))
	for i, n := range notes {
		out[i] = map[string]interface{}{
			"pitch": n.Pitch,
			"start": n.Start,
			"dur":   n.Duration,
			"vel":   n.Velocity,
			"mute":  n.Mute,
		}
	}
	return out, nil
}

func (h *Handler) clearMIDINotes(params map[string]interface{}) (interface{}, error) {
	var p notesParams
	if err := decodeParams(params, &p); err != nil {
		return nil, err
	}
	c, err := h.clip(p.TrackIndex, p.ClipIndex)
	if err != nil {
		return nil, err
	}
	c.RemoveNotes()
	return "Clip cleared", nil
}
