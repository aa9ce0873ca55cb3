package liveset

import (
	"fmt"
)

// Tempo limits accepted by the transport.
const (
	MinTempo = 20.0
	MaxTempo = 999.0
)

// Song is the session root: transport state, tracks and scenes.
type Song struct {
	object

	Tempo       float64
	Numerator   int
	Denominator int
	Playing     bool
	Tracks      []*Track
	Scenes      []*Scene
	Master      *Track

	nextTrack int
}

// NewSong returns an empty song at 120 BPM in 4/4.
func NewSong() *Song {
	s := &Song{object: newObject("Song"), Tempo: 120, Numerator: 4, Denominator: 4}
	s.Master = newTrack(s, "Master", false)

	s.prop("tempo", func() interface{} { return s.Tempo }, setFloat("tempo", &s.Tempo))
	s.bound("tempo", func() (float64, float64) { return MinTempo, MaxTempo })
	s.prop("signature_numerator", func() interface{} { return s.Numerator }, setInt("signature_numerator", &s.Numerator))
	s.prop("signature_denominator", func() interface{} { return s.Denominator }, setInt("signature_denominator", &s.Denominator))
	s.prop("is_playing", func() interface{} { return s.Playing }, setBool("is_playing", &s.Playing))
	s.prop("master_track", func() interface{} { return s.Master }, nil)
	s.collection("tracks", func() []interface{} { return nodes(s.Tracks) })
	s.collection("visible_tracks", func() []interface{} { return nodes(s.Tracks) })
	s.collection("scenes", func() []interface{} { return nodes(s.Scenes) })

	s.method("create_midi_track", func(args []interface{}) (interface{}, error) {
		i, err := argInt(args, 0, -1)
		if err != nil {
			return nil, err
		}
		return s.CreateTrack(i, true)
	})
	s.method("create_audio_track", func(args []interface{}) (interface{}, error) {
		i, err := argInt(args, 0, -1)
		if err != nil {
			return nil, err
		}
		return s.CreateTrack(i, false)
	})
	s.method("delete_track", func(args []interface{}) (interface{}, error) {
		i, err := argInt(args, 0, -1)
		if err != nil {
			return nil, err
		}
		return nil, s.DeleteTrack(i)
	})
	s.method("create_scene", func(args []interface{}) (interface{}, error) {
		i, err := argInt(args, 0, -1)
		if err != nil {
			return nil, err
		}
		return s.CreateScene(i)
	})
	s.method("start_playing", func([]interface{}) (interface{}, error) {
		s.Playing = true
		return nil, nil
	})
	s.method("stop_playing", func([]interface{}) (interface{}, error) {
		s.Playing = false
		return nil, nil
	})
	s.method("stop_all_clips", func([]interface{}) (interface{}, error) {
		s.StopAllClips()
		return nil, nil
	})
	return s
}

// Name implements lom.Named.
func (s *Song) Name() string { return "Song" }

func (s *Song) String() string {
	return fmt.Sprintf("Song(%.2f BPM, %d tracks, %d scenes)", s.Tempo, len(s.Tracks), len(s.Scenes))
}

// CreateTrack inserts a track at index, or appends when index is -1. The
// new track gets one clip slot per scene.
func (s *Song) CreateTrack(index int, midi bool) (*Track, error) {
	if index < -1 || index > len(s.Tracks) {
		return nil, fmt.Errorf("track index %d out of range (0..%d)", index, len(s.Tracks))
	}
	s.nextTrack++
	kind := "Audio"
	if midi {
		kind = "MIDI"
	}
	t := newTrack(s, fmt.Sprintf("%d-%s", s.nextTrack, kind), midi)
	for range s.Scenes {
		t.ClipSlots = append(t.ClipSlots, newClipSlot(t))
	}
	if index == -1 {
		s.Tracks = append(s.Tracks, t)
	} else {
		s.Tracks = append(s.Tracks[:index], append([]*Track{t}, s.Tracks[index:]...)...)
	}
	return t, nil
}

// DeleteTrack removes the track at index.
func (s *Song) DeleteTrack(index int) error {
	if index < 0 || index >= len(s.Tracks) {
		return fmt.Errorf("track index %d out of range (0..%d)", index, len(s.Tracks)-1)
	}
	s.Tracks = append(s.Tracks[:index], s.Tracks[index+1:]...)
	return nil
}

// CreateScene inserts a scene at index, or appends when index is -1, and
// adds the matching clip slot to every track.
func (s *Song) CreateScene(index int) (*Scene, error) {
	if index < -1 || index > len(s.Scenes) {
		return nil, fmt.Errorf("scene index %d out of range (0..%d)", index, len(s.Scenes))
	}
	pos := index
	if pos == -1 {
		pos = len(s.Scenes)
	}
	sc := newScene(s, "")
	s.Scenes = append(s.Scenes[:pos], append([]*Scene{sc}, s.Scenes[pos:]...)...)
	for _, t := range s.Tracks {
		slot := newClipSlot(t)
		t.ClipSlots = append(t.ClipSlots[:pos], append([]*ClipSlot{slot}, t.ClipSlots[pos:]...)...)
	}
	return sc, nil
}

// SceneIndex returns the position of sc, or -1.
func (s *Song) SceneIndex(sc *Scene) int {
	for i, candidate := range s.Scenes {
		if candidate == sc {
			return i
		}
	}
	return -1
}

// TrackIndex returns the position of t, or -1.
func (s *Song) TrackIndex(t *Track) int {
	for i, candidate := range s.Tracks {
		if candidate == t {
			return i
		}
	}
	return -1
}

// StopAllClips stops every playing clip.
func (s *Song) StopAllClips() {
	for _, t := range s.Tracks {
		t.StopAllClips()
	}
}

// Scene is a row of clip slots across all tracks.
type Scene struct {
	object

	Title string
	song  *Song
}

func newScene(song *Song, name string) *Scene {
	sc := &Scene{object: newObject("Scene"), Title: name, song: song}
	sc.prop("name", func() interface{} { return sc.Title }, setString("name", &sc.Title))
	sc.method("fire", func([]interface{}) (interface{}, error) {
		sc.Fire()
		return nil, nil
	})
	return sc
}

// Name implements lom.Named.
func (sc *Scene) Name() string { return sc.Title }

func (sc *Scene) String() string { return fmt.Sprintf("Scene(%q)", sc.Title) }

// Fire launches every clip in this scene's row.
func (sc *Scene) Fire() {
	row := sc.song.SceneIndex(sc)
	if row < 0 {
		return
	}
	for _, t := range sc.song.Tracks {
		if row < len(t.ClipSlots) {
			t.ClipSlots[row].Fire()
		}
	}
	sc.song.Playing = true
}
