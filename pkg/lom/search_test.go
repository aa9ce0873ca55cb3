package lom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindLoadableExactBeatsPriority(t *testing.T) {
	instruments := folder("Instruments", folder("Synths", item("Analogue Lead")))
	drums := folder("Drums", item("Analog"))

	found := FindLoadable([]BrowserNode{instruments, drums}, "analog")
	require.NotNil(t, found)
	assert.Equal(t, "Analog", found.Name())
}

func TestFindLoadableExactInFirstRoot(t *testing.T) {
	instruments := folder("Instruments", item("Analog"))
	drums := folder("Drums", item("Analogue Lead"))

	found := FindLoadable([]BrowserNode{instruments, drums}, "Analog")
	require.NotNil(t, found)
	assert.Same(t, instruments.children[0], found)
}

func TestFindLoadableFuzzyFollowsPriority(t *testing.T) {
	instruments := folder("Instruments", item("Wavetable Pad"))
	effects := folder("Audio Effects", item("Pad Reverb"))

	found := FindLoadable([]BrowserNode{effects, instruments}, "pad")
	require.NotNil(t, found)
	assert.Equal(t, "Pad Reverb", found.Name())
}

func TestFindLoadablePreOrderAndLoadableOnly(t *testing.T) {
	// The folder named "Operator" is not loadable; the first loadable
	// match in pre-order is the nested preset.
	root := folder("Instruments",
		folder("Operator",
			item("Operator Bass"),
		),
		item("Operator"),
	)

	found := FindLoadable([]BrowserNode{root}, "operator")
	require.NotNil(t, found)
	assert.Equal(t, "Operator", found.Name())
	assert.True(t, found.IsLoadable())

	fuzzy := FindLoadable([]BrowserNode{root}, "bass")
	require.NotNil(t, fuzzy)
	assert.Equal(t, "Operator Bass", fuzzy.Name())
}

func TestFindLoadableNotFound(t *testing.T) {
	root := folder("Instruments", item("Operator"))
	assert.Nil(t, FindLoadable([]BrowserNode{root}, "serum"))
	assert.Nil(t, FindLoadable([]BrowserNode{root}, "   "))
	assert.Nil(t, FindLoadable(nil, "operator"))
}

func TestNamePolicy(t *testing.T) {
	policy := NewNamePolicy(
		[]string{"vsti", "vst3", "vst", "plugin", "audio unit", "au"},
		map[string]string{"drum rack": "909 core kit", "Drums": "909 core kit"},
	)

	tests := []struct {
		in   string
		want string
	}{
		{"Serum VST3", "serum"},
		{"Massive  VSTi plugin", "massive"},
		{"Audio Unit Alchemy", "alchemy"},
		{"Auto Filter", "auto filter"},
		{"Drum Rack", "909 core kit"},
		{"drum rack vst", "909 core kit"},
		{"DRUMS", "909 core kit"},
		{"Operator", "operator"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, policy.Apply(tt.in))
		})
	}
}
