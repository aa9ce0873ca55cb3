package profiling

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderDisabledIsNoop(t *testing.T) {
	r := &Recorder{}
	r.Start("set_tempo").Stop()

	var buf bytes.Buffer
	r.Summarize(&buf)
	assert.Empty(t, buf.String())
}

func TestRecorderAggregatesByName(t *testing.T) {
	r := &Recorder{}
	r.Enable()

	r.record("load_device", 30*time.Millisecond)
	r.record("set_tempo", 2*time.Millisecond)
	r.record("set_tempo", 4*time.Millisecond)

	span := r.Start("get_session_info")
	span.Stop()
	span.Stop()

	var buf bytes.Buffer
	r.Summarize(&buf)
	out := buf.String()

	assert.Contains(t, out, "- load_device x1 (total 30ms, avg 30ms, max 30ms)")
	assert.Contains(t, out, "- set_tempo x2 (total 6ms, avg 3ms, max 4ms)")
	assert.Contains(t, out, "- get_session_info x1")
	assert.Less(t, strings.Index(out, "load_device"), strings.Index(out, "set_tempo"))
}

func TestCobraProfilerWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	cmd := &cobra.Command{Use: "test"}
	p := NewCobraProfiler()
	p.AddFlags(cmd)

	cpu := filepath.Join(dir, "cpu.out")
	mem := filepath.Join(dir, "mem.out")
	require.NoError(t, cmd.PersistentFlags().Set("cpu-profile", cpu))
	require.NoError(t, cmd.PersistentFlags().Set("mem-profile", mem))

	var stderr bytes.Buffer
	cmd.SetErr(&stderr)

	require.NoError(t, p.PreRun(cmd, nil))
	p.PostRun(cmd, nil)

	assert.FileExists(t, cpu)
	assert.FileExists(t, mem)
	assert.Contains(t, stderr.String(), "CPU profile written to "+cpu)
	assert.Contains(t, stderr.String(), "Memory profile written to "+mem)
}
