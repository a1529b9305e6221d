package lifecycle

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/colinhebe/htmlserve/internal/config"
	hlog "github.com/colinhebe/htmlserve/internal/log"
)

// signalBuffer absorbs bursts of signals (e.g. the page's three unload
// transports) while the loop is busy.
const signalBuffer = 16

// Monitor is the lifecycle state machine of one serve session.
//
// All transitions happen on the goroutine running Run; HTTP handlers and the
// OS signal forwarder only post Signals. State, Reason and Done are safe to
// call from any goroutine.
type Monitor struct {
	cfg     config.LifecycleConfig
	logger  *zap.Logger
	signals chan Signal
	done    chan struct{}
	runOnce sync.Once

	// Owned by the Run goroutine.
	pageLoaded      bool
	lastHeartbeatAt time.Time

	mu     sync.Mutex
	state  State
	reason Reason
}

// NewMonitor creates a monitor in the AwaitingLoad state.
func NewMonitor(cfg config.LifecycleConfig, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		cfg:     cfg,
		logger:  logger,
		signals: make(chan Signal, signalBuffer),
		done:    make(chan struct{}),
		state:   AwaitingLoad,
	}
}

// Notify posts a signal to the monitor. It never blocks once the monitor
// has started terminating, so late or duplicate signals are harmless.
func (m *Monitor) Notify(sig Signal) {
	if sig.At.IsZero() {
		sig.At = time.Now()
	}
	select {
	case <-m.done:
		return
	default:
	}
	select {
	case m.signals <- sig:
	case <-m.done:
	}
}

// Loaded reports that the page finished loading.
func (m *Monitor) Loaded() { m.Notify(Signal{Kind: KindLoaded}) }

// Heartbeat reports that the page is still alive.
func (m *Monitor) Heartbeat() { m.Notify(Signal{Kind: KindHeartbeat}) }

// Unload reports that the page is going away. trigger names the browser
// event that caused it.
func (m *Monitor) Unload(trigger string) {
	m.Notify(Signal{Kind: KindUnload, Detail: trigger})
}

// Interrupt reports an OS interrupt or terminate request.
func (m *Monitor) Interrupt(name string) {
	m.Notify(Signal{Kind: KindInterrupt, Detail: name})
}

// Done is closed when the monitor enters Terminating.
func (m *Monitor) Done() <-chan struct{} {
	return m.done
}

// State returns the current state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Reason returns why the monitor terminated, or ReasonNone while running.
func (m *Monitor) Reason() Reason {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reason
}

// MarkTerminated records that the owner finished its shutdown sequence.
func (m *Monitor) MarkTerminated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == Terminating {
		m.state = Terminated
	}
}

// Run processes signals and timers until a terminal condition fires and
// returns its reason. Cancelling ctx also stops the monitor, with
// ReasonNone. Only the first call runs the loop; later calls wait for it and
// return the same reason. The check ticker and force-exit timer are stopped
// before Run returns.
func (m *Monitor) Run(ctx context.Context) Reason {
	ran := false
	var reason Reason
	m.runOnce.Do(func() {
		ran = true
		reason = m.loop(ctx)
	})
	if !ran {
		<-m.done
		return m.Reason()
	}
	return reason
}

func (m *Monitor) loop(ctx context.Context) Reason {
	check := time.NewTicker(m.cfg.CheckInterval)
	defer check.Stop()
	force := time.NewTimer(m.cfg.ForceExitAfter)
	defer force.Stop()

	for {
		select {
		case <-ctx.Done():
			return m.terminate(ReasonNone)

		case sig := <-m.signals:
			if reason, stop := m.handle(sig); stop {
				return m.terminate(reason)
			}

		case now := <-check.C:
			if !m.pageLoaded {
				continue
			}
			if silence := now.Sub(m.lastHeartbeatAt); silence > m.cfg.HeartbeatTimeout {
				m.logger.Info("no heartbeat from page, shutting down",
					hlog.Event(hlog.EventHeartbeatTimeout),
					zap.Duration("silence", silence.Round(time.Millisecond)))
				return m.terminate(ReasonHeartbeatTimeout)
			}

		case <-force.C:
			m.logger.Info("maximum session lifetime reached, shutting down",
				hlog.Event(hlog.EventForceTimeout),
				zap.Duration("after", m.cfg.ForceExitAfter))
			return m.terminate(ReasonForceTimeout)
		}
	}
}

// handle applies one signal. It returns a reason and true when the signal
// ends the session.
func (m *Monitor) handle(sig Signal) (Reason, bool) {
	switch sig.Kind {
	case KindLoaded:
		m.lastHeartbeatAt = sig.At
		if !m.pageLoaded {
			m.pageLoaded = true
			m.setState(Active)
			m.logger.Info("page loaded", hlog.Event(hlog.EventPageLoaded))
		} else {
			m.logger.Info("page reloaded", hlog.Event(hlog.EventPageLoaded))
		}

	case KindHeartbeat:
		// Only loaded activates the monitor; before it, silence is not enforced.
		m.lastHeartbeatAt = sig.At
		m.logger.Debug("heartbeat", hlog.Event(hlog.EventHeartbeat))

	case KindUnload:
		m.logger.Info("page closed, shutting down",
			hlog.Event(hlog.EventUnloadReceived), zap.String("trigger", sig.Detail))
		return ReasonExplicitUnload, true

	case KindInterrupt:
		m.logger.Info("received OS signal, shutting down",
			hlog.Event(hlog.EventOSSignal), zap.String("signal", sig.Detail))
		return ReasonOSSignal, true
	}
	return ReasonNone, false
}

func (m *Monitor) setState(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

// terminate enters Terminating. Only the loop calls it, and the loop returns
// right after, so it runs once.
func (m *Monitor) terminate(reason Reason) Reason {
	m.mu.Lock()
	m.state = Terminating
	m.reason = reason
	m.mu.Unlock()
	close(m.done)
	return reason
}
