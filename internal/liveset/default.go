package liveset

// NewDefault returns a demo set: two MIDI tracks and one audio track over
// four scenes, a couple of devices, and a populated browser.
func NewDefault() *LiveSet {
	ls := New()
	song := ls.Song

	for i := 0; i < 4; i++ {
		sc, _ := song.CreateScene(-1)
		sc.Title = []string{"Intro", "Verse", "Chorus", "Outro"}[i]
	}

	bass, _ := song.CreateTrack(-1, true)
	bass.Title = "Bass"
	keys, _ := song.CreateTrack(-1, true)
	keys.Title = "Keys"
	loops, _ := song.CreateTrack(-1, false)
	loops.Title = "Loops"

	populateBrowser(ls.Browser())

	bass.AddDevice(ls.Browser().Instruments.Items[1].device())
	keys.AddDevice(ls.Browser().Instruments.Items[0].device())
	keys.AddDevice(ls.Browser().AudioEffects.Items[0].device())

	clip, _ := bass.ClipSlots[0].CreateClip(4)
	clip.Title = "Bassline"
	_ = clip.AddNotes([]Note{
		{Pitch: 36, Start: 0, Duration: 0.5, Velocity: 100},
		{Pitch: 36, Start: 1, Duration: 0.5, Velocity: 90},
		{Pitch: 43, Start: 2, Duration: 0.5, Velocity: 100},
		{Pitch: 41, Start: 3, Duration: 0.5, Velocity: 90},
	})

	ls.Select(bass, 0)
	return ls
}

func filter() []ParamSpec {
	return []ParamSpec{
		{Name: "Filter Freq", Min: 20, Max: 20000, Value: 18000},
		{Name: "Filter Res", Min: 0, Max: 1, Value: 0.2},
	}
}

func populateBrowser(b *Browser) {
	b.Instruments.Items = []*BrowserItem{
		DeviceItem("Analog", "UltraAnalog", filter()...),
		DeviceItem("Operator", "Operator", ParamSpec{Name: "Algorithm", Min: 0, Max: 10, Value: 0}, ParamSpec{Name: "Volume", Min: 0, Max: 1, Value: 0.7}),
		DeviceItem("Wavetable", "InstrumentVector", filter()...),
		DeviceItem("Drift", "Drift", filter()...),
		Folder("Instrument Rack",
			DeviceItem("Analogue Lead", "InstrumentGroupDevice", ParamSpec{Name: "Macro 1", Min: 0, Max: 127, Value: 0}),
			DeviceItem("Grand Piano", "InstrumentGroupDevice", ParamSpec{Name: "Macro 1", Min: 0, Max: 127, Value: 0}),
		),
	}
	b.Drums.Items = []*BrowserItem{
		Folder("Drum Rack",
			DeviceItem("909 Core Kit", "DrumGroupDevice", ParamSpec{Name: "Macro 1", Min: 0, Max: 127, Value: 0}),
			DeviceItem("808 Core Kit", "DrumGroupDevice", ParamSpec{Name: "Macro 1", Min: 0, Max: 127, Value: 0}),
		),
		DeviceItem("Drum Sampler", "DrumCell", ParamSpec{Name: "Gain", Min: -70, Max: 24, Value: 0}),
	}
	b.AudioEffects.Items = []*BrowserItem{
		DeviceItem("Reverb", "Reverb", ParamSpec{Name: "Decay Time", Min: 200, Max: 60000, Value: 1200}, ParamSpec{Name: "Dry/Wet", Min: 0, Max: 1, Value: 0.3}),
		DeviceItem("Auto Filter", "AutoFilter", filter()...),
		DeviceItem("EQ Eight", "Eq8", ParamSpec{Name: "1 Gain A", Min: -15, Max: 15, Value: 0}),
		DeviceItem("Compressor", "Compressor2", ParamSpec{Name: "Threshold", Min: -70, Max: 6, Value: 0}, ParamSpec{Name: "Ratio", Min: 1, Max: 100, Value: 4}),
		DeviceItem("Delay", "Delay", ParamSpec{Name: "Feedback", Min: 0, Max: 0.95, Value: 0.5}, ParamSpec{Name: "Dry/Wet", Min: 0, Max: 1, Value: 0.3}),
	}
	b.MIDIEffects.Items = []*BrowserItem{
		DeviceItem("Arpeggiator", "MidiArpeggiator", ParamSpec{Name: "Rate", Min: 0, Max: 20, Value: 8}),
		DeviceItem("Chord", "MidiChord", ParamSpec{Name: "Shift1", Min: -36, Max: 36, Value: 0}),
	}
	b.Plugins.Items = []*BrowserItem{
		Folder("VST3",
			DeviceItem("Serum", "PluginDevice", ParamSpec{Name: "Master Volume", Min: 0, Max: 1, Value: 0.7}),
			DeviceItem("Massive", "PluginDevice", ParamSpec{Name: "Master Volume", Min: 0, Max: 1, Value: 0.7}),
		),
	}
	b.MaxForLive.Items = []*BrowserItem{
		DeviceItem("LFO", "MxDeviceAudioEffect", ParamSpec{Name: "Rate", Min: 0.01, Max: 40, Value: 1}),
	}
	b.UserLibrary.Items = []*BrowserItem{
		Folder("Samples",
			SampleItem("kick_01.wav"),
			SampleItem("snare_tight.wav"),
			SampleItem("hat_open.wav"),
		),
	}
	b.UserFolders = []*BrowserItem{
		Folder("Field Recordings", SampleItem("rain.wav"), SampleItem("street ambience.wav")),
	}
	b.Packs.Items = []*BrowserItem{
		Folder("Core Library", SampleItem("Break 120.wav"), SampleItem("Kick 909.wav")),
	}
}
