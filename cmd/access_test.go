package cmd

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovetools/lombridge/config"
	"github.com/grovetools/lombridge/errors"
	"github.com/grovetools/lombridge/internal/daemon/dispatch"
	"github.com/grovetools/lombridge/internal/daemon/handler"
	"github.com/grovetools/lombridge/internal/daemon/server"
	"github.com/grovetools/lombridge/internal/liveset"
)

// startHost runs an in-process host on a random port and isolates the
// config and state directories.
func startHost(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("LOMBRIDGE_HOME", dir)
	t.Chdir(dir)

	l := logrus.New()
	l.SetOutput(io.Discard)
	log := logrus.NewEntry(l)

	h := handler.New(liveset.NewDefault(), config.Default().Search, log)
	d := dispatch.New(h.Handle, time.Millisecond, nil, log)
	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)

	srv := server.NewTCP(d, server.Options{Addr: "127.0.0.1:0", Logger: log})
	require.NoError(t, srv.Listen())
	go func() { _ = srv.Serve(ctx) }()

	t.Cleanup(func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	})
	return srv.Addr()
}

func run(t *testing.T, addr string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append(args, "--address", addr))
	err := root.Execute()
	return strings.TrimSpace(out.String()), err
}

func TestGetSetThroughCLI(t *testing.T) {
	addr := startHost(t)

	out, err := run(t, addr, "get", "tracks 0.name")
	require.NoError(t, err)
	assert.Equal(t, "Bass", out)

	_, err = run(t, addr, "set", "song.tempo", "124")
	require.NoError(t, err)
	out, err = run(t, addr, "get", "song.tempo")
	require.NoError(t, err)
	assert.Equal(t, "124", out)

	_, err = run(t, addr, "set", "tracks 1.name", "Lead Synth")
	require.NoError(t, err)
	out, err = run(t, addr, "get", "tracks 1.name")
	require.NoError(t, err)
	assert.Equal(t, "Lead Synth", out)
}

func TestSendAndSession(t *testing.T) {
	addr := startHost(t)

	out, err := run(t, addr, "send", "set_tempo", `{"tempo": 90}`)
	require.NoError(t, err)
	assert.Equal(t, "Tempo set to 90.00", out)

	out, err = run(t, addr, "session", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"tempo": 90`)
	assert.Contains(t, out, `"tracks": 3`)

	_, err = run(t, addr, "send", "set_tempo", `[1]`)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
}

func TestHostErrorsReachCLI(t *testing.T) {
	addr := startHost(t)

	_, err := run(t, addr, "get", "tracks 9.name")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeCommandFailed))

	_, err = run(t, addr, "send", "nope")
	require.Error(t, err)
	assert.Contains(t, errors.Describe(err), "unknown command: nope")
}

func TestParseValue(t *testing.T) {
	v, ok := parseValue("0.5")
	assert.True(t, ok)
	assert.Equal(t, 0.5, v)

	v, ok = parseValue("4")
	assert.True(t, ok)
	assert.Equal(t, 4, v)

	v, ok = parseValue("Lead Synth")
	assert.False(t, ok)
	assert.Equal(t, "Lead Synth", v)

	v, ok = parseValue(`"quoted"`)
	assert.True(t, ok)
	assert.Equal(t, "quoted", v)
}
