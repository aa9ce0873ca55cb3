package liveset

import (
	"fmt"
)

// Track holds devices, a mixer and one clip slot per scene.
type Track struct {
	object

	Title     string
	Mute      bool
	Solo      bool
	Arm       bool
	Color     int
	MIDI      bool
	Devices   []*Device
	ClipSlots []*ClipSlot
	Mixer     *MixerDevice

	song *Song
}

func newTrack(song *Song, name string, midi bool) *Track {
	t := &Track{object: newObject("Track"), Title: name, MIDI: midi, song: song}
	t.Mixer = newMixerDevice()

	t.prop("name", func() interface{} { return t.Title }, setString("name", &t.Title))
	t.prop("mute", func() interface{} { return t.Mute }, setBool("mute", &t.Mute))
	t.prop("solo", func() interface{} { return t.Solo }, setBool("solo", &t.Solo))
	t.prop("arm", func() interface{} { return t.Arm }, setBool("arm", &t.Arm))
	t.prop("color", func() interface{} { return t.Color }, setInt("color", &t.Color))
	t.prop("has_midi_input", func() interface{} { return t.MIDI }, nil)
	t.prop("has_audio_input", func() interface{} { return !t.MIDI }, nil)
	t.prop("mixer_device", func() interface{} { return t.Mixer }, nil)
	t.collection("devices", func() []interface{} { return nodes(t.Devices) })
	t.collection("clip_slots", func() []interface{} { return nodes(t.ClipSlots) })

	t.method("delete_device", func(args []interface{}) (interface{}, error) {
		i, err := argInt(args, 0, -1)
		if err != nil {
			return nil, err
		}
		return nil, t.DeleteDevice(i)
	})
	t.method("stop_all_clips", func([]interface{}) (interface{}, error) {
		t.StopAllClips()
		return nil, nil
	})
	return t
}

// Name implements lom.Named.
func (t *Track) Name() string { return t.Title }

func (t *Track) String() string { return fmt.Sprintf("Track(%q)", t.Title) }

// AddDevice appends d to the device chain.
func (t *Track) AddDevice(d *Device) {
	t.Devices = append(t.Devices, d)
}

// DeleteDevice removes the device at index.
func (t *Track) DeleteDevice(index int) error {
	if index < 0 || index >= len(t.Devices) {
		return fmt.Errorf("device index %d out of range (0..%d)", index, len(t.Devices)-1)
	}
	t.Devices = append(t.Devices[:index], t.Devices[index+1:]...)
	return nil
}

// StopAllClips stops every clip on the track.
func (t *Track) StopAllClips() {
	for _, slot := range t.ClipSlots {
		slot.Stop()
	}
}

// Slot returns the clip slot at index.
func (t *Track) Slot(index int) (*ClipSlot, error) {
	if index < 0 || index >= len(t.ClipSlots) {
		return nil, fmt.Errorf("clip slot %d out of range (0..%d) on track %q", index, len(t.ClipSlots)-1, t.Title)
	}
	return t.ClipSlots[index], nil
}

// MixerDevice carries the track volume and panning parameters.
type MixerDevice struct {
	object

	Volume  *DeviceParameter
	Panning *DeviceParameter
}

func newMixerDevice() *MixerDevice {
	m := &MixerDevice{
		object:  newObject("MixerDevice"),
		Volume:  NewParameter("Track Volume", 0, 1, 0.85),
		Panning: NewParameter("Track Panning", -1, 1, 0),
	}
	m.prop("volume", func() interface{} { return m.Volume }, nil)
	m.prop("panning", func() interface{} { return m.Panning }, nil)
	m.collection("sends", func() []interface{} { return []interface{}{} })
	return m
}

func (m *MixerDevice) String() string { return "MixerDevice" }
