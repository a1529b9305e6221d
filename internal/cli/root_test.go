package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colinhebe/htmlserve/internal/session"
	"github.com/colinhebe/htmlserve/internal/testutil"
)

func execute(t *testing.T, opts *options, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand(opts)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	for _, flag := range []string{"--version", "-v"} {
		out, _, err := execute(t, &options{}, flag)
		require.NoError(t, err)
		assert.Equal(t, "dev\n", out)
	}
}

func TestHelp(t *testing.T) {
	out, _, err := execute(t, &options{}, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "htmlserve <file.html>")
	assert.Contains(t, out, "--no-open")
	assert.NotContains(t, out, "heartbeat-timeout", "tuning flags stay hidden")
}

func TestMissingArgument(t *testing.T) {
	_, _, err := execute(t, &options{})
	assert.ErrorIs(t, err, errMissingFile)

	_, _, err = execute(t, &options{}, "a.html", "b.html")
	assert.ErrorContains(t, err, "expected one HTML file")
}

func TestInvalidTarget(t *testing.T) {
	dir := testutil.TempSite(t, map[string]string{"notes.txt": "x"})

	for _, path := range []string{filepath.Join(dir, "missing.html"), filepath.Join(dir, "notes.txt")} {
		_, _, err := execute(t, &options{}, path)
		var verr *session.ValidationError
		assert.True(t, errors.As(err, &verr), "%s: got %v", path, err)
	}
}

func TestInvalidTuningFlags(t *testing.T) {
	dir := testutil.TempSite(t, testutil.PreviewPage())
	_, _, err := execute(t, &options{}, "--heartbeat-timeout", "1ms", filepath.Join(dir, "index.html"))
	assert.ErrorContains(t, err, "heartbeat timeout")
}

func TestServeUntilInterrupted(t *testing.T) {
	dir := testutil.TempSite(t, testutil.PreviewPage())
	sigs := make(chan os.Signal, 1)
	sigs <- os.Interrupt

	opts := &options{sessionOpts: []session.Option{session.WithSignals(sigs)}}
	out, logs, err := execute(t, opts, "--no-open", "--verbose", filepath.Join(dir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, out, "Serving http://127.0.0.1:")
	assert.Contains(t, out, "Stopped (os-signal).")
	assert.Contains(t, logs, "session_closed")
}
