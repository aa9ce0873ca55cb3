package paths

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHomeOverride(t *testing.T) {
	root := t.TempDir()
	t.Setenv("LOMBRIDGE_HOME", root)

	assert.Equal(t, filepath.Join(root, "config", "lombridge"), ConfigDir())
	assert.Equal(t, filepath.Join(root, "state", "lombridge"), StateDir())
	assert.Equal(t, filepath.Join(root, "state", "lombridge", "logs"), LogDir())
	assert.Equal(t, filepath.Join(root, "config", "lombridge", "lombridge.yml"), GlobalConfigFile())
	assert.Equal(t, filepath.Join(root, "state", "lombridge", "host.pid"), PidFilePath())

	require.NoError(t, EnsureDirs())
	assert.DirExists(t, LogDir())
}

func TestXDGFallback(t *testing.T) {
	root := t.TempDir()
	t.Setenv("LOMBRIDGE_HOME", "")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(root, "cfg"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(root, "st"))

	assert.Equal(t, filepath.Join(root, "cfg", "lombridge"), ConfigDir())
	assert.Equal(t, filepath.Join(root, "st", "lombridge"), StateDir())
}
