package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/colinhebe/htmlserve/internal/browser"
	"github.com/colinhebe/htmlserve/internal/config"
	"github.com/colinhebe/htmlserve/internal/inject"
	"github.com/colinhebe/htmlserve/internal/lifecycle"
	hlog "github.com/colinhebe/htmlserve/internal/log"
	"github.com/colinhebe/htmlserve/internal/port"
	"github.com/colinhebe/htmlserve/internal/server"
	"github.com/colinhebe/htmlserve/internal/ui"
	"github.com/colinhebe/htmlserve/internal/watch"
)

// ErrAlreadyRun is returned when Run is called on a session more than once.
var ErrAlreadyRun = errors.New("session: already run")

// State is the phase of a session.
type State int

const (
	Starting State = iota
	Serving
	ShuttingDown
	Closed
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Serving:
		return "serving"
	case ShuttingDown:
		return "shutting-down"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Option customises a Session.
type Option func(*Session)

// WithOpener replaces the system browser launcher.
func WithOpener(o browser.Opener) Option {
	return func(s *Session) { s.opener = o }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithSignals makes the session read OS signals from c instead of
// subscribing to SIGINT and SIGTERM itself.
func WithSignals(c <-chan os.Signal) Option {
	return func(s *Session) { s.signals = c }
}

// WithStdout sets where user-facing status lines go. The default is
// os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(s *Session) { s.stdout = w }
}

// Session serves one target until the page goes away.
type Session struct {
	ID string

	cfg     *config.Config
	target  Target
	logger  *zap.Logger
	opener  browser.Opener
	signals <-chan os.Signal
	stdout  io.Writer
	printer *ui.Printer
	monitor *lifecycle.Monitor

	started      atomic.Bool
	shutdownOnce sync.Once

	mu    sync.Mutex
	state State
	url   string
}

// New creates a session for target. Nothing is bound until Run.
func New(cfg *config.Config, target Target, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		ID:     uuid.NewString(),
		cfg:    cfg,
		target: target,
		stdout: os.Stdout,
		state:  Starting,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.opener == nil {
		s.opener = browser.NewSystem()
	}
	s.logger = s.logger.With(zap.String("session", s.ID))
	s.printer = ui.NewPrinter(s.stdout)
	s.monitor = lifecycle.NewMonitor(cfg.Lifecycle, s.logger)
	return s, nil
}

// State returns the current phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// URL returns the served URL once the session is serving.
func (s *Session) URL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// Run serves the target, opens it in the browser and blocks until the
// lifecycle monitor ends the session. The listener is closed before Run
// returns. Cancelling ctx ends the session with lifecycle.ReasonNone and
// ctx's error.
func (s *Session) Run(ctx context.Context) (lifecycle.Reason, error) {
	if !s.started.CompareAndSwap(false, true) {
		return lifecycle.ReasonNone, ErrAlreadyRun
	}
	defer s.setState(Closed)

	s.logger.Info("session started",
		hlog.Event(hlog.EventSessionStarted), zap.String("path", s.target.Path))

	// Subscribe before binding so an early Ctrl+C is forwarded, not fatal.
	sigs, release := s.subscribeSignals()
	defer release()

	srv, ln, err := s.start()
	if err != nil {
		return lifecycle.ReasonNone, err
	}

	g, gctx := errgroup.WithContext(ctx)
	runCtx, stop := context.WithCancel(gctx)
	defer stop()

	g.Go(func() error { return srv.Serve(ln) })
	g.Go(func() error { return s.forwardSignals(runCtx, sigs, release) })
	if w := s.newWatcher(); w != nil {
		g.Go(func() error { return w.Run(runCtx) })
	}

	s.setState(Serving)
	s.logger.Info("serving", hlog.Event(hlog.EventServing),
		zap.String("url", s.URL()), zap.String("dir", s.target.Dir))
	s.printer.Serving(s.URL(), s.target.Path)
	s.openBrowser()

	reason := s.monitor.Run(runCtx)

	if reason == lifecycle.ReasonExplicitUnload {
		// Let the page's remaining unload transports get their response.
		time.Sleep(s.cfg.Lifecycle.UnloadGrace)
	}
	s.shutdown(srv, reason)
	stop()

	err = g.Wait()
	s.monitor.MarkTerminated()
	if err == nil && reason == lifecycle.ReasonNone {
		err = ctx.Err()
	}

	s.logger.Info("session closed", hlog.Event(hlog.EventSessionClosed),
		zap.Stringer("reason", reason))
	s.printer.Stopped(reason.String())
	return reason, err
}

// start instruments the target and binds its port. On error nothing is left
// open.
func (s *Session) start() (*server.Server, net.Listener, error) {
	raw, err := os.ReadFile(s.target.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", s.target.Path, err)
	}

	lc := s.cfg.Lifecycle
	script, err := inject.Script(inject.ScriptOptions{
		LoadedPath:        lifecycle.LoadedPath,
		HeartbeatPath:     lifecycle.HeartbeatPath,
		UnloadPath:        lifecycle.UnloadPath,
		HeartbeatInterval: lc.HeartbeatInterval,
		HiddenGrace:       lc.HiddenGrace,
	})
	if err != nil {
		return nil, nil, err
	}
	page := inject.Inject(raw, script)
	if !inject.Contains(page) {
		s.logger.Warn("no closing body tag, serving the page uninstrumented",
			hlog.Event(hlog.EventNotInstrumented), zap.String("path", s.target.Path))
		s.printer.NotInstrumented(s.target.Filename)
	}

	p, err := port.Allocate()
	if err != nil {
		return nil, nil, err
	}

	srv, err := server.New(server.Options{
		Dir:      s.target.Dir,
		Filename: s.target.Filename,
		Page:     page,
		Signals:  s.monitor,
		Logger:   s.logger,
	})
	if err != nil {
		return nil, nil, err
	}

	ln, err := port.Listen(s.cfg.Server.Host, p)
	if err != nil {
		_ = srv.Shutdown(context.Background())
		return nil, nil, err
	}

	s.mu.Lock()
	s.url = (&url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(s.cfg.Server.Host, strconv.Itoa(p)),
		Path:   "/" + s.target.Filename,
	}).String()
	s.mu.Unlock()
	return srv, ln, nil
}

func (s *Session) openBrowser() {
	if !s.cfg.Server.OpenBrowser {
		return
	}
	u := s.URL()
	if err := s.opener.Open(u); err != nil {
		s.logger.Warn("could not open browser", hlog.Event(hlog.EventBrowserFailed), zap.Error(err))
		s.printer.ManualOpen(u, err)
		return
	}
	s.logger.Debug("browser opened", hlog.Event(hlog.EventBrowserOpened))
}

// subscribeSignals returns the channel OS signals arrive on and a function
// that restores their default handling. It is safe to call release twice.
func (s *Session) subscribeSignals() (<-chan os.Signal, func()) {
	if s.signals != nil {
		return s.signals, func() {}
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
	var once sync.Once
	return ch, func() { once.Do(func() { signal.Stop(ch) }) }
}

// forwardSignals turns the first signal on sigs into a monitor interrupt.
// Later signals get the default behaviour again.
func (s *Session) forwardSignals(ctx context.Context, sigs <-chan os.Signal, release func()) error {
	select {
	case <-ctx.Done():
	case sig := <-sigs:
		s.monitor.Interrupt(sig.String())
		release()
	}
	return nil
}

func (s *Session) newWatcher() *watch.Watcher {
	w, err := watch.New(s.target.Path, s.logger, s.printer.Modified)
	if err != nil {
		s.logger.Debug("target watcher unavailable", zap.Error(err))
		return nil
	}
	return w
}

// shutdown closes the listener and waits for in-flight requests, at most
// ShutdownTimeout. It runs once per session.
func (s *Session) shutdown(srv *server.Server, reason lifecycle.Reason) {
	s.shutdownOnce.Do(func() {
		s.setState(ShuttingDown)
		s.logger.Info("shutting down", hlog.Event(hlog.EventShuttingDown),
			zap.Stringer("reason", reason))

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Warn("forced close after shutdown timeout", zap.Error(err))
		}
	})
}
