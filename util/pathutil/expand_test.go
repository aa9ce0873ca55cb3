package pathutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpand(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("LOMBRIDGE_TEST_DIR", "/tmp/lombridge")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"~", home},
		{"~/logs/host.log", filepath.Join(home, "logs", "host.log")},
		{"$LOMBRIDGE_TEST_DIR/batch.yml", "/tmp/lombridge/batch.yml"},
		{"/abs/path", "/abs/path"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Expand(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	rel, err := Expand("session.yml")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(rel))
}
