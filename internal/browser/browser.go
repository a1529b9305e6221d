// Package browser opens URLs in the user's default browser.
package browser

import (
	"errors"
	"fmt"
	"os/exec"
)

// ErrNoLauncher is returned when no known URL launcher is installed.
var ErrNoLauncher = errors.New("no browser launcher found")

// Opener opens a URL for the user.
type Opener interface {
	Open(url string) error
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(url string) error

// Open calls f(url).
func (f OpenerFunc) Open(url string) error { return f(url) }

// launcher is one platform command able to open a URL.
type launcher struct {
	name string
	args []string // the URL is appended
}

// System opens URLs with the platform's launcher command. It returns once
// the launcher has been spawned; it does not wait for the browser.
type System struct {
	lookPath func(string) (string, error)
}

// NewSystem returns an Opener backed by the platform launcher.
func NewSystem() *System {
	return &System{lookPath: exec.LookPath}
}

// Open spawns the first launcher found on PATH.
func (s *System) Open(url string) error {
	name, args, err := s.command(url)
	if err != nil {
		return err
	}

	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("browser: starting %s: %w", name, err)
	}
	// Reap the launcher; it usually exits as soon as it hands off the URL.
	go func() { _ = cmd.Wait() }()
	return nil
}

// command resolves the launcher binary and arguments for url.
func (s *System) command(url string) (string, []string, error) {
	for _, l := range launchers() {
		path, err := s.lookPath(l.name)
		if err != nil {
			continue
		}
		args := append(append([]string{}, l.args...), url)
		return path, args, nil
	}
	return "", nil, ErrNoLauncher
}
