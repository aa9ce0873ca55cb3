package lom

import "fmt"

// fakeNode is a map-backed Node for tests.
type fakeNode struct {
	name       string
	attrs      map[string]interface{}
	bounds     map[string][2]float64
	methods    map[string]func(args []interface{}) (interface{}, error)
	rejectInts map[string]bool
	readOnly   map[string]bool
	calls      [][]interface{}
}

func newFake(name string, attrs map[string]interface{}) *fakeNode {
	if attrs == nil {
		attrs = map[string]interface{}{}
	}
	return &fakeNode{
		name:       name,
		attrs:      attrs,
		bounds:     map[string][2]float64{},
		methods:    map[string]func([]interface{}) (interface{}, error){},
		rejectInts: map[string]bool{},
		readOnly:   map[string]bool{},
	}
}

func (f *fakeNode) Name() string   { return f.name }
func (f *fakeNode) String() string { return "Fake(" + f.name + ")" }

func (f *fakeNode) GetAttribute(name string) (interface{}, error) {
	v, ok := f.attrs[name]
	if !ok {
		return nil, NoAttribute(name)
	}
	return v, nil
}

func (f *fakeNode) SetAttribute(name string, value interface{}) error {
	if _, ok := f.attrs[name]; !ok {
		return NoAttribute(name)
	}
	if f.readOnly[name] {
		return fmt.Errorf("%w: %s", ErrReadOnly, name)
	}
	if f.rejectInts[name] {
		if _, isInt := value.(int); isInt {
			return InvalidValue(name, value)
		}
	}
	f.attrs[name] = value
	return nil
}

func (f *fakeNode) Invoke(name string, args []interface{}) (interface{}, error) {
	m, ok := f.methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotCallable, name)
	}
	f.calls = append(f.calls, args)
	return m(args)
}

func (f *fakeNode) IndexInto(name string, index int) (interface{}, error) {
	v, ok := f.attrs[name]
	if !ok {
		return nil, NoAttribute(name)
	}
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("%s is not a collection", name)
	}
	if index < 0 || index >= len(items) {
		return nil, IndexOutOfRange(name, index, len(items))
	}
	return items[index], nil
}

func (f *fakeNode) AttributeBounds(name string) (float64, float64, bool) {
	b, ok := f.bounds[name]
	return b[0], b[1], ok
}

// fakeBrowserItem is a BrowserNode for search tests.
type fakeBrowserItem struct {
	name     string
	loadable bool
	children []BrowserNode
}

func item(name string, children ...BrowserNode) *fakeBrowserItem {
	return &fakeBrowserItem{name: name, loadable: len(children) == 0, children: children}
}

func folder(name string, children ...BrowserNode) *fakeBrowserItem {
	return &fakeBrowserItem{name: name, children: children}
}

func (b *fakeBrowserItem) Name() string             { return b.name }
func (b *fakeBrowserItem) IsLoadable() bool         { return b.loadable }
func (b *fakeBrowserItem) Children() []BrowserNode { return b.children }

// fakeSet builds a small session graph:
//
//	song.tracks[0] "Bass" with mixer_device.volume (0..1)
//	song.tracks[1] "Drums"
//	song.tempo bounded 20..999
func fakeSet() (song, app, browser *fakeNode, volume *fakeNode) {
	volume = newFake("Track Volume", map[string]interface{}{"value": 0.85, "min": 0.0, "max": 1.0})
	volume.bounds["value"] = [2]float64{0, 1}

	mixer := newFake("Mixer", map[string]interface{}{"volume": volume})
	bass := newFake("Bass", map[string]interface{}{"name": "Bass", "mixer_device": mixer, "mute": false, "color": nil})
	drums := newFake("Drums", map[string]interface{}{"name": "Drums", "mute": true})

	song = newFake("Song", map[string]interface{}{
		"tracks": []interface{}{bass, drums},
		"tempo":  120.0,
	})
	song.bounds["tempo"] = [2]float64{20, 999}

	browser = newFake("Browser", map[string]interface{}{"instruments": newFake("Instruments", nil)})
	app = newFake("Application", map[string]interface{}{"browser": browser, "version": "12.1"})
	return song, app, browser, volume
}

func fakeEngine() (*Engine, *fakeNode, *fakeNode) {
	song, app, browser, volume := fakeSet()
	return NewEngine(NewResolver(Roots{Session: song, Application: app, Browser: browser})), song, volume
}
