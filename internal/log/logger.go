// Package log provides structured event logging.
// This file builds the zap logger used by every htmlserve component.
package log

import (
	"fmt"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Event type constants. Every lifecycle log line carries one of these in
// its "event" field.
const (
	EventSessionStarted   = "session_started"
	EventServing          = "serving"
	EventBrowserOpened    = "browser_opened"
	EventBrowserFailed    = "browser_failed"
	EventPageLoaded       = "page_loaded"
	EventHeartbeat        = "heartbeat"
	EventUnloadReceived   = "unload_received"
	EventHeartbeatTimeout = "heartbeat_timeout"
	EventForceTimeout     = "force_timeout"
	EventOSSignal         = "os_signal"
	EventShuttingDown     = "shutting_down"
	EventSessionClosed    = "session_closed"
	EventTargetModified   = "target_modified"
	EventNotInstrumented  = "not_instrumented"
	EventRequest          = "request"
)

// Event returns the zap field naming a lifecycle event.
func Event(name string) zap.Field {
	return zap.String("event", name)
}

// New creates a console logger writing to w. Debug output is enabled
// when verbose is set.
func New(w io.Writer, verbose bool) (*zap.Logger, error) {
	if w == nil {
		return nil, fmt.Errorf("log: nil writer")
	}

	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.EncoderConfig.CallerKey = ""
	cfg.EncoderConfig.StacktraceKey = ""

	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg.EncoderConfig),
		zapcore.AddSync(w),
		level,
	)
	return zap.New(core).Named("htmlserve"), nil
}
