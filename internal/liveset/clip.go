package liveset

import (
	"fmt"
	"sort"
)

// ClipSlot is one cell of the session grid.
type ClipSlot struct {
	object

	Clip  *Clip
	track *Track
}

func newClipSlot(t *Track) *ClipSlot {
	cs := &ClipSlot{object: newObject("ClipSlot"), track: t}
	cs.prop("has_clip", func() interface{} { return cs.Clip != nil }, nil)
	cs.prop("clip", func() interface{} {
		if cs.Clip == nil {
			return nil
		}
		return cs.Clip
	}, nil)
	cs.prop("is_playing", func() interface{} { return cs.Clip != nil && cs.Clip.Playing }, nil)

	cs.method("create_clip", func(args []interface{}) (interface{}, error) {
		length, err := argFloat(args, 0, 4)
		if err != nil {
			return nil, err
		}
		return cs.CreateClip(length)
	})
	cs.method("delete_clip", func([]interface{}) (interface{}, error) {
		return nil, cs.DeleteClip()
	})
	cs.method("fire", func([]interface{}) (interface{}, error) {
		cs.Fire()
		return nil, nil
	})
	cs.method("stop", func([]interface{}) (interface{}, error) {
		cs.Stop()
		return nil, nil
	})
	return cs
}

func (cs *ClipSlot) String() string {
	if cs.Clip == nil {
		return "ClipSlot(empty)"
	}
	return fmt.Sprintf("ClipSlot(%q)", cs.Clip.Title)
}

// CreateClip puts a new MIDI clip of length beats into an empty slot.
func (cs *ClipSlot) CreateClip(length float64) (*Clip, error) {
	if cs.Clip != nil {
		return nil, fmt.Errorf("clip slot already has a clip")
	}
	if length <= 0 {
		return nil, fmt.Errorf("clip length must be positive, got %v", length)
	}
	if !cs.track.MIDI {
		return nil, fmt.Errorf("cannot create a MIDI clip on audio track %q", cs.track.Title)
	}
	cs.Clip = newClip("", length, true)
	return cs.Clip, nil
}

// DeleteClip empties the slot.
func (cs *ClipSlot) DeleteClip() error {
	if cs.Clip == nil {
		return fmt.Errorf("clip slot is empty")
	}
	cs.Clip = nil
	return nil
}

// Fire starts the clip, stopping any other clip on the same track.
func (cs *ClipSlot) Fire() {
	if cs.Clip == nil {
		return
	}
	cs.track.StopAllClips()
	cs.Clip.Playing = true
}

// Stop halts the clip in this slot.
func (cs *ClipSlot) Stop() {
	if cs.Clip != nil {
		cs.Clip.Playing = false
	}
}

// Note is a single MIDI note in a clip.
type Note struct {
	Pitch    int     `json:"pitch"`
	Start    float64 `json:"start"`
	Duration float64 `json:"dur"`
	Velocity int     `json:"vel"`
	Mute     bool    `json:"mute"`
}

// Clip is a MIDI or audio clip.
type Clip struct {
	object

	Title     string
	Length    float64
	Looping   bool
	LoopStart float64
	LoopEnd   float64
	Playing   bool
	MIDIClip  bool
	FilePath  string

	notes     []Note
	envelopes map[*DeviceParameter]*Envelope
}

func newClip(name string, length float64, midi bool) *Clip {
	c := &Clip{
		object:    newObject("Clip"),
		Title:     name,
		Length:    length,
		Looping:   true,
		LoopEnd:   length,
		MIDIClip:  midi,
		envelopes: map[*DeviceParameter]*Envelope{},
	}
	c.prop("name", func() interface{} { return c.Title }, setString("name", &c.Title))
	c.prop("length", func() interface{} { return c.Length }, nil)
	c.prop("looping", func() interface{} { return c.Looping }, setBool("looping", &c.Looping))
	c.prop("loop_start", func() interface{} { return c.LoopStart }, setFloat("loop_start", &c.LoopStart))
	c.prop("loop_end", func() interface{} { return c.LoopEnd }, setFloat("loop_end", &c.LoopEnd))
	c.prop("is_playing", func() interface{} { return c.Playing }, nil)
	c.prop("is_midi_clip", func() interface{} { return c.MIDIClip }, nil)
	c.prop("is_audio_clip", func() interface{} { return !c.MIDIClip }, nil)
	c.prop("file_path", func() interface{} { return c.FilePath }, nil)

	c.method("fire", func([]interface{}) (interface{}, error) {
		c.Playing = true
		return nil, nil
	})
	c.method("stop", func([]interface{}) (interface{}, error) {
		c.Playing = false
		return nil, nil
	})
	c.method("remove_notes", func([]interface{}) (interface{}, error) {
		c.RemoveNotes()
		return nil, nil
	})
	return c
}

// Name implements lom.Named.
func (c *Clip) Name() string { return c.Title }

func (c *Clip) String() string { return fmt.Sprintf("Clip(%q, %.2f beats)", c.Title, c.Length) }

// AddNotes merges notes into the clip.
func (c *Clip) AddNotes(notes []Note) error {
	if !c.MIDIClip {
		return fmt.Errorf("clip %q is not a MIDI clip", c.Title)
	}
	for _, n := range notes {
		if n.Pitch < 0 || n.Pitch > 127 {
			return fmt.Errorf("pitch %d out of range 0..127", n.Pitch)
		}
		if n.Velocity < 0 || n.Velocity > 127 {
			return fmt.Errorf("velocity %d out of range 0..127", n.Velocity)
		}
		if n.Duration <= 0 {
			return fmt.Errorf("note duration must be positive, got %v", n.Duration)
		}
	}
	c.notes = append(c.notes, notes...)
	sort.SliceStable(c.notes, func(i, j int) bool {
		if c.notes[i].Start != c.notes[j].Start {
			return c.notes[i].Start < c.notes[j].Start
		}
		return c.notes[i].Pitch < c.notes[j].Pitch
	})
	return nil
}

// Notes returns a copy of the clip's notes ordered by start then pitch.
func (c *Clip) Notes() []Note {
	out := make([]Note, len(c.notes))
	copy(out, c.notes)
	return out
}

// RemoveNotes clears every note.
func (c *Clip) RemoveNotes() {
	c.notes = nil
}

// AutomationEnvelope returns the envelope for p, creating it on first use.
func (c *Clip) AutomationEnvelope(p *DeviceParameter) *Envelope {
	env, ok := c.envelopes[p]
	if !ok {
		env = &Envelope{Parameter: p}
		c.envelopes[p] = env
	}
	return env
}

// EnvelopeEvent is one automation breakpoint.
type EnvelopeEvent struct {
	Time  float64 `json:"time"`
	Value float64 `json:"value"`
}

// Envelope is the automation of one parameter within a clip.
type Envelope struct {
	Parameter *DeviceParameter
	Events    []EnvelopeEvent
}

// Clear removes all breakpoints.
func (e *Envelope) Clear() { e.Events = nil }

// InsertStep adds a breakpoint, keeping events ordered by time and
// replacing any existing event at the same time.
func (e *Envelope) InsertStep(time, value float64) {
	for i, ev := range e.Events {
		if ev.Time == time {
			e.Events[i].Value = value
			return
		}
		if ev.Time > time {
			e.Events = append(e.Events[:i], append([]EnvelopeEvent{{time, value}}, e.Events[i:]...)...)
			return
		}
	}
	e.Events = append(e.Events, EnvelopeEvent{Time: time, Value: value})
}
