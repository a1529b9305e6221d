// Package session runs one preview of a local HTML file, from resolving the
// path to closing the listener.
// This file implements target resolution and validation.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Target is a validated HTML file to serve.
type Target struct {
	Path     string // absolute path to the file
	Dir      string // directory served as static assets
	Filename string // base name, the route of the instrumented page
}

// ValidationError reports a target that cannot be served.
type ValidationError struct {
	Path   string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// Resolve checks that path names an existing regular .html or .htm file and
// returns its absolute location.
func Resolve(path string) (Target, error) {
	if strings.TrimSpace(path) == "" {
		return Target{}, &ValidationError{Reason: "no HTML file given"}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return Target{}, &ValidationError{Path: path, Reason: err.Error()}
	}

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return Target{}, &ValidationError{Path: path, Reason: "file not found"}
	case err != nil:
		return Target{}, &ValidationError{Path: path, Reason: err.Error()}
	case !info.Mode().IsRegular():
		return Target{}, &ValidationError{Path: path, Reason: "not a regular file"}
	}

	switch strings.ToLower(filepath.Ext(abs)) {
	case ".html", ".htm":
	default:
		return Target{}, &ValidationError{Path: path, Reason: "not an HTML file (expected .html or .htm)"}
	}

	return Target{
		Path:     abs,
		Dir:      filepath.Dir(abs),
		Filename: filepath.Base(abs),
	}, nil
}
