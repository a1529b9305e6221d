package log

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewWritesConsoleLines(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, false)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("page loaded", Event(EventPageLoaded))
	logger.Debug("hidden at info level")
	_ = logger.Sync()

	out := buf.String()
	if !strings.Contains(out, "page loaded") {
		t.Errorf("expected message in output, got %q", out)
	}
	if !strings.Contains(out, EventPageLoaded) {
		t.Errorf("expected event name in output, got %q", out)
	}
	if strings.Contains(out, "hidden at info level") {
		t.Errorf("debug line should be suppressed without verbose, got %q", out)
	}
}

func TestNewVerboseEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(&buf, true)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Debug("heartbeat", Event(EventHeartbeat))
	_ = logger.Sync()

	if !strings.Contains(buf.String(), "heartbeat") {
		t.Errorf("expected debug line with verbose, got %q", buf.String())
	}
}

func TestNewRejectsNilWriter(t *testing.T) {
	if _, err := New(nil, false); err == nil {
		t.Error("expected error for nil writer")
	}
}
