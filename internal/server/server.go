// Package server is the loopback HTTP surface of a preview session: the
// instrumented target page, its sibling assets, and the lifecycle endpoints
// the page reports to.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/colinhebe/htmlserve/internal/lifecycle"
	hlog "github.com/colinhebe/htmlserve/internal/log"
)

// maxSignalBody caps how much of a lifecycle request body is read.
const maxSignalBody = 4 << 10

// SignalSink receives the page's lifecycle signals.
type SignalSink interface {
	Loaded()
	Heartbeat()
	Unload(trigger string)
}

// Options configures a Server.
type Options struct {
	// Dir is the directory whose files are served as static assets.
	Dir string
	// Filename is the target file's base name inside Dir.
	Filename string
	// Page is the instrumented content returned for the target's route.
	Page    []byte
	Signals SignalSink
	Logger  *zap.Logger
}

// Server serves one target page and its directory.
type Server struct {
	filename string
	page     []byte
	signals  SignalSink
	logger   *zap.Logger
	root     *os.Root
	engine   *gin.Engine
	http     *http.Server
}

// New creates a server for opts. The directory is opened once; requests can
// never reach files outside it.
func New(opts Options) (*Server, error) {
	if opts.Filename == "" {
		return nil, errors.New("server: target filename is empty")
	}
	if opts.Signals == nil {
		return nil, errors.New("server: signal sink is nil")
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	root, err := os.OpenRoot(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("server: opening serving directory: %w", err)
	}

	s := &Server{
		filename: opts.Filename,
		page:     opts.Page,
		signals:  opts.Signals,
		logger:   opts.Logger,
		root:     root,
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:    []string{"Content-Type"},
		MaxAge:          time.Hour,
	}))
	r.Use(corsHeaders)

	r.POST(lifecycle.LoadedPath, s.handleLoaded)
	r.POST(lifecycle.HeartbeatPath, s.handleHeartbeat)
	r.POST(lifecycle.UnloadPath, s.handleUnload)

	// The target and static files are resolved by hand rather than through
	// gin's router, since file names may contain ':' or '*'.
	r.NoRoute(s.handleFile)

	s.engine = r
	s.http = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Serve accepts connections on l until Shutdown or Close is called.
func (s *Server) Serve(l net.Listener) error {
	if err := s.http.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: serving: %w", err)
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
// If ctx expires first the remaining connections are closed forcibly.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	if err != nil {
		_ = s.http.Close()
	}
	if cerr := s.root.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// --- Lifecycle handlers ---

func (s *Server) handleLoaded(c *gin.Context) {
	drain(c)
	s.signals.Loaded()
	c.String(http.StatusOK, "OK")
}

func (s *Server) handleHeartbeat(c *gin.Context) {
	drain(c)
	s.signals.Heartbeat()
	c.String(http.StatusOK, "OK")
}

func (s *Server) handleUnload(c *gin.Context) {
	s.signals.Unload(readReason(c))
	c.String(http.StatusOK, "OK")
}

// --- File handlers ---

func (s *Server) handleFile(c *gin.Context) {
	reqPath := c.Request.URL.Path

	if strings.HasPrefix(reqPath, lifecycle.PathPrefix) {
		notFound(c)
		return
	}
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		notFound(c)
		return
	}
	if reqPath == "/"+s.filename {
		s.servePage(c)
		return
	}

	name := strings.TrimPrefix(path.Clean(reqPath), "/")
	if name == "" || name == "." {
		notFound(c)
		return
	}

	f, info, resolved, err := s.open(name)
	if err != nil {
		notFound(c)
		return
	}
	defer f.Close()

	// Extension fallback may land on the target itself.
	if resolved == s.filename {
		s.servePage(c)
		return
	}

	c.Header("Cache-Control", "no-cache")
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}

func (s *Server) servePage(c *gin.Context) {
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "text/html; charset=utf-8", s.page)
}

// open resolves name inside the serving directory. Names without an
// extension fall back to name.html and name.htm. Directories are never
// served.
func (s *Server) open(name string) (*os.File, os.FileInfo, string, error) {
	candidates := []string{name}
	if path.Ext(name) == "" {
		candidates = append(candidates, name+".html", name+".htm")
	}

	for _, candidate := range candidates {
		f, err := s.root.Open(filepath.FromSlash(candidate))
		if err != nil {
			continue
		}
		info, err := f.Stat()
		if err != nil || info.IsDir() {
			_ = f.Close()
			continue
		}
		return f, info, candidate, nil
	}
	return nil, nil, "", os.ErrNotExist
}

// --- Helpers ---

func notFound(c *gin.Context) {
	c.String(http.StatusNotFound, "File not found: %s", c.Request.URL.Path)
}

func drain(c *gin.Context) {
	if c.Request.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(c.Request.Body, maxSignalBody))
}

// readReason extracts the optional {"reason": "..."} body the page sends.
// Malformed or missing bodies yield an empty reason, never an error.
func readReason(c *gin.Context) string {
	if c.Request.Body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxSignalBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	return body.Reason
}

// corsHeaders sets the permissive CORS headers on every response.
// gin-contrib/cors only handles requests whose Origin differs from the
// host; this covers navigations and same-origin fetches too.
func corsHeaders(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			hlog.Event(hlog.EventRequest),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
