//go:build unix

package session

import (
	"io"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colinhebe/htmlserve/internal/browser"
	"github.com/colinhebe/htmlserve/internal/lifecycle"
	"github.com/colinhebe/htmlserve/internal/testutil"
)

// The interrupt arrives while the browser is being launched, before the
// forwarder goroutine is guaranteed to run. It must end the session
// cleanly instead of killing the process.
func TestRun_InterruptDuringStartupIsForwarded(t *testing.T) {
	target := resolveFixture(t, testutil.PreviewPage(), "index.html")
	opener := browser.OpenerFunc(func(string) error {
		return syscall.Kill(os.Getpid(), syscall.SIGINT)
	})

	s, err := New(testConfig(), target, WithOpener(opener), WithStdout(io.Discard))
	require.NoError(t, err)

	reason, err := runSession(t, s)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.ReasonOSSignal, reason)
}
