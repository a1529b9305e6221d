// Package lifecycle decides when a preview session is over. The Monitor
// tracks whether the browser page has loaded, whether it is still sending
// heartbeats, and whether it said goodbye; it also enforces a hard ceiling on
// the session's lifetime.
package lifecycle

import "time"

// Endpoint paths the instrumented page posts to.
const (
	PathPrefix    = "/__htmlserve_"
	LoadedPath    = "/__htmlserve_loaded__"
	HeartbeatPath = "/__htmlserve_heartbeat__"
	UnloadPath    = "/__htmlserve_unload__"
)

// State is a position in the monitor's state machine.
type State int

const (
	AwaitingLoad State = iota
	Active
	Terminating
	Terminated
)

var stateNames = map[State]string{
	AwaitingLoad: "awaiting-load",
	Active:       "active",
	Terminating:  "terminating",
	Terminated:   "terminated",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// Reason explains why a session ended.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonHeartbeatTimeout Reason = "heartbeat-timeout"
	ReasonExplicitUnload   Reason = "explicit-unload"
	ReasonForceTimeout     Reason = "force-timeout"
	ReasonOSSignal         Reason = "os-signal"
)

func (r Reason) String() string {
	if r == ReasonNone {
		return "none"
	}
	return string(r)
}

// Kind identifies a lifecycle signal.
type Kind int

const (
	KindLoaded Kind = iota
	KindHeartbeat
	KindUnload
	KindInterrupt
)

var kindNames = map[Kind]string{
	KindLoaded:    "loaded",
	KindHeartbeat: "heartbeat",
	KindUnload:    "unload",
	KindInterrupt: "interrupt",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Signal is one lifecycle event with the time it was received.
type Signal struct {
	Kind Kind
	At   time.Time
	// Detail is free-form context for logs, e.g. the page's unload trigger
	// or the OS signal name.
	Detail string
}
