package liveset

import (
	"fmt"

	"github.com/grovetools/lombridge/pkg/lom"
)

// Host version reported by Application.
const (
	MajorVersion = 12
	MinorVersion = 1
)

// Application is the top-level host object owning the view and browser.
type Application struct {
	object

	View    *View
	Browser *Browser

	song *Song
}

func newApplication(song *Song) *Application {
	a := &Application{object: newObject("Application"), song: song}
	a.View = newView()
	a.Browser = newBrowser(a)

	a.prop("view", func() interface{} { return a.View }, nil)
	a.prop("browser", func() interface{} { return a.Browser }, nil)
	a.method("get_major_version", func([]interface{}) (interface{}, error) { return MajorVersion, nil })
	a.method("get_minor_version", func([]interface{}) (interface{}, error) { return MinorVersion, nil })
	return a
}

func (a *Application) String() string { return fmt.Sprintf("Application(%d.%d)", MajorVersion, MinorVersion) }

// View tracks the user's current selection.
type View struct {
	object

	SelectedTrack *Track
	SelectedScene *Scene
}

func newView() *View {
	v := &View{object: newObject("View")}
	v.prop("selected_track", func() interface{} {
		if v.SelectedTrack == nil {
			return nil
		}
		return v.SelectedTrack
	}, func(val interface{}) error {
		t, ok := val.(*Track)
		if !ok {
			return lom.InvalidValue("selected_track", val)
		}
		v.SelectedTrack = t
		return nil
	})
	v.prop("selected_scene", func() interface{} {
		if v.SelectedScene == nil {
			return nil
		}
		return v.SelectedScene
	}, func(val interface{}) error {
		sc, ok := val.(*Scene)
		if !ok {
			return lom.InvalidValue("selected_scene", val)
		}
		v.SelectedScene = sc
		return nil
	})
	return v
}

func (v *View) String() string { return "View" }

// LiveSet bundles the three graph roots.
type LiveSet struct {
	Song        *Song
	Application *Application
}

// New returns an empty set with no tracks or scenes.
func New() *LiveSet {
	song := NewSong()
	return &LiveSet{Song: song, Application: newApplication(song)}
}

// Browser is shorthand for the application's browser.
func (ls *LiveSet) Browser() *Browser { return ls.Application.Browser }

// Roots returns the resolver roots for this set.
func (ls *LiveSet) Roots() lom.Roots {
	return lom.Roots{Session: ls.Song, Application: ls.Application, Browser: ls.Application.Browser}
}

// Track returns the track at index.
func (ls *LiveSet) Track(index int) (*Track, error) {
	if index < 0 || index >= len(ls.Song.Tracks) {
		return nil, fmt.Errorf("track index %d out of range (0..%d)", index, len(ls.Song.Tracks)-1)
	}
	return ls.Song.Tracks[index], nil
}

// Select points the view at a track and, when row is a valid scene index,
// at that scene.
func (ls *LiveSet) Select(t *Track, row int) {
	ls.Application.View.SelectedTrack = t
	if row >= 0 && row < len(ls.Song.Scenes) {
		ls.Application.View.SelectedScene = ls.Song.Scenes[row]
	}
}

// Info summarizes the session transport and size.
type Info struct {
	Tempo     float64 `json:"tempo"`
	Tracks    int     `json:"tracks"`
	Scenes    int     `json:"scenes"`
	IsPlaying bool    `json:"is_playing"`
	Signature string  `json:"signature"`
}

// Info returns the current session summary.
func (ls *LiveSet) Info() Info {
	s := ls.Song
	return Info{
		Tempo:     s.Tempo,
		Tracks:    len(s.Tracks),
		Scenes:    len(s.Scenes),
		IsPlaying: s.Playing,
		Signature: fmt.Sprintf("%d/%d", s.Numerator, s.Denominator),
	}
}
