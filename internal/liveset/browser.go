package liveset

import (
	"fmt"
	"strings"

	"github.com/grovetools/lombridge/pkg/lom"
)

// ItemKind says what loading a browser item produces.
type ItemKind int

const (
	KindFolder ItemKind = iota
	KindDevice
	KindSample
)

// BrowserItem is a node of the browser tree.
type BrowserItem struct {
	object

	Title    string
	Kind     ItemKind
	Loadable bool
	URI      string
	Items    []*BrowserItem

	// device builds a fresh device instance for KindDevice items.
	device func() *Device
}

func newBrowserItem(name string, kind ItemKind, children ...*BrowserItem) *BrowserItem {
	it := &BrowserItem{
		object:   newObject("BrowserItem"),
		Title:    name,
		Kind:     kind,
		Loadable: kind != KindFolder,
		Items:    children,
	}
	it.prop("name", func() interface{} { return it.Title }, nil)
	it.prop("is_loadable", func() interface{} { return it.Loadable }, nil)
	it.prop("is_folder", func() interface{} { return it.Kind == KindFolder }, nil)
	it.prop("is_device", func() interface{} { return it.Kind == KindDevice }, nil)
	it.prop("uri", func() interface{} { return it.URI }, nil)
	it.collection("children", func() []interface{} { return nodes(it.Items) })
	return it
}

// Folder returns a non-loadable item grouping children.
func Folder(name string, children ...*BrowserItem) *BrowserItem {
	return newBrowserItem(name, KindFolder, children...)
}

// DeviceItem returns a loadable item that inserts a fresh device with params.
func DeviceItem(name, className string, params ...ParamSpec) *BrowserItem {
	it := newBrowserItem(name, KindDevice)
	it.URI = "query:" + className + "#" + strings.ReplaceAll(name, " ", "%20")
	it.device = func() *Device {
		ps := make([]*DeviceParameter, len(params))
		for i, spec := range params {
			ps[i] = NewParameter(spec.Name, spec.Min, spec.Max, spec.Value)
		}
		return NewDevice(name, className, ps...)
	}
	return it
}

// SampleItem returns a loadable audio file.
func SampleItem(name string) *BrowserItem {
	it := newBrowserItem(name, KindSample)
	it.URI = "userfile:" + name
	return it
}

// ParamSpec describes a parameter a device item creates.
type ParamSpec struct {
	Name            string
	Min, Max, Value float64
}

// Name implements lom.BrowserNode and lom.Named.
func (it *BrowserItem) Name() string { return it.Title }

// IsLoadable implements lom.BrowserNode.
func (it *BrowserItem) IsLoadable() bool { return it.Loadable }

// Children implements lom.BrowserNode.
func (it *BrowserItem) Children() []lom.BrowserNode {
	out := make([]lom.BrowserNode, len(it.Items))
	for i, c := range it.Items {
		out[i] = c
	}
	return out
}

func (it *BrowserItem) String() string { return fmt.Sprintf("BrowserItem(%q)", it.Title) }

// Browser is the media library: fixed categories plus user folders.
type Browser struct {
	object

	Instruments  *BrowserItem
	Drums        *BrowserItem
	AudioEffects *BrowserItem
	MIDIEffects  *BrowserItem
	Plugins      *BrowserItem
	MaxForLive   *BrowserItem
	UserLibrary  *BrowserItem
	Packs        *BrowserItem
	UserFolders  []*BrowserItem

	app *Application
}

func newBrowser(app *Application) *Browser {
	b := &Browser{
		object:       newObject("Browser"),
		Instruments:  Folder("Instruments"),
		Drums:        Folder("Drums"),
		AudioEffects: Folder("Audio Effects"),
		MIDIEffects:  Folder("MIDI Effects"),
		Plugins:      Folder("Plugins"),
		MaxForLive:   Folder("Max for Live"),
		UserLibrary:  Folder("User Library"),
		Packs:        Folder("Packs"),
		app:          app,
	}
	b.prop("instruments", func() interface{} { return b.Instruments }, nil)
	b.prop("drums", func() interface{} { return b.Drums }, nil)
	b.prop("audio_effects", func() interface{} { return b.AudioEffects }, nil)
	b.prop("midi_effects", func() interface{} { return b.MIDIEffects }, nil)
	b.prop("plugins", func() interface{} { return b.Plugins }, nil)
	b.prop("max_for_live", func() interface{} { return b.MaxForLive }, nil)
	b.prop("user_library", func() interface{} { return b.UserLibrary }, nil)
	b.prop("packs", func() interface{} { return b.Packs }, nil)
	b.collection("user_folders", func() []interface{} { return nodes(b.UserFolders) })

	b.method("load_item", func(args []interface{}) (interface{}, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("load_item takes one browser item, got %d arguments", len(args))
		}
		it, ok := args[0].(*BrowserItem)
		if !ok {
			return nil, fmt.Errorf("load_item argument is not a browser item: %v", args[0])
		}
		return nil, b.LoadItem(it)
	})
	return b
}

func (b *Browser) String() string { return "Browser" }

// Category returns the named top-level category, or nil.
func (b *Browser) Category(name string) *BrowserItem {
	switch name {
	case "instruments":
		return b.Instruments
	case "drums":
		return b.Drums
	case "audio_effects":
		return b.AudioEffects
	case "midi_effects":
		return b.MIDIEffects
	case "plugins":
		return b.Plugins
	case "max_for_live":
		return b.MaxForLive
	case "user_library":
		return b.UserLibrary
	case "packs":
		return b.Packs
	}
	return nil
}

// Roots expands root names into search roots. "user_folders" expands to
// every user folder in order; unknown names are skipped.
func (b *Browser) Roots(names []string) []lom.BrowserNode {
	var roots []lom.BrowserNode
	for _, name := range names {
		if name == "user_folders" {
			for _, f := range b.UserFolders {
				roots = append(roots, f)
			}
			continue
		}
		if c := b.Category(name); c != nil {
			roots = append(roots, c)
		}
	}
	return roots
}

// LoadItem loads it onto the view's selected track. Devices are appended
// to the chain; samples become an audio clip in the selected scene's slot.
func (b *Browser) LoadItem(it *BrowserItem) error {
	if !it.Loadable {
		return fmt.Errorf("browser item %q is not loadable", it.Title)
	}
	view := b.app.View
	track := view.SelectedTrack
	if track == nil {
		return fmt.Errorf("no track selected")
	}
	switch it.Kind {
	case KindDevice:
		track.AddDevice(it.device())
		return nil
	case KindSample:
		if track.MIDI {
			return fmt.Errorf("cannot load sample %q onto MIDI track %q", it.Title, track.Title)
		}
		row := 0
		if view.SelectedScene != nil {
			row = b.app.song.SceneIndex(view.SelectedScene)
		}
		slot, err := track.Slot(row)
		if err != nil {
			return err
		}
		clip := newClip(strings.TrimSuffix(it.Title, fileExt(it.Title)), 4, false)
		clip.FilePath = it.URI
		slot.Clip = clip
		return nil
	}
	return fmt.Errorf("browser item %q has no loader", it.Title)
}

func fileExt(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[i:]
	}
	return ""
}
