package session

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colinhebe/htmlserve/internal/testutil"
)

func TestResolve(t *testing.T) {
	dir := testutil.TempSite(t, map[string]string{
		"index.html":  "<p>hi</p>",
		"legacy.HTM":  "<p>old</p>",
		"notes.txt":   "text",
		"sub/a.html":  "<p>a</p>",
		"noextension": "<p>?</p>",
	})

	t.Run("valid html", func(t *testing.T) {
		target, err := Resolve(filepath.Join(dir, "index.html"))
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "index.html"), target.Path)
		assert.Equal(t, dir, target.Dir)
		assert.Equal(t, "index.html", target.Filename)
	})

	t.Run("extension is case-insensitive", func(t *testing.T) {
		target, err := Resolve(filepath.Join(dir, "legacy.HTM"))
		require.NoError(t, err)
		assert.Equal(t, "legacy.HTM", target.Filename)
	})

	t.Run("relative path becomes absolute", func(t *testing.T) {
		t.Chdir(dir)
		target, err := Resolve(filepath.Join("sub", "a.html"))
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(target.Path))
		assert.Equal(t, "a.html", target.Filename)
		assert.Equal(t, filepath.Base(filepath.Join(dir, "sub")), filepath.Base(target.Dir))
	})

	invalid := []struct {
		name   string
		path   string
		reason string
	}{
		{"empty", "", "no HTML file given"},
		{"missing", filepath.Join(dir, "missing.html"), "file not found"},
		{"directory", filepath.Join(dir, "sub"), "not a regular file"},
		{"wrong extension", filepath.Join(dir, "notes.txt"), "not an HTML file (expected .html or .htm)"},
		{"no extension", filepath.Join(dir, "noextension"), "not an HTML file (expected .html or .htm)"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.path)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Equal(t, tt.reason, verr.Reason)
			assert.Equal(t, tt.path, verr.Path)
		})
	}
}

func TestResolve_DirectoryNamedLikeHTML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "site.html"), 0755))

	_, err := Resolve(filepath.Join(dir, "site.html"))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "not a regular file", verr.Reason)
}

func TestValidationErrorMessage(t *testing.T) {
	assert.Equal(t, "a.txt: not an HTML file", (&ValidationError{Path: "a.txt", Reason: "not an HTML file"}).Error())
	assert.Equal(t, "no HTML file given", (&ValidationError{Reason: "no HTML file given"}).Error())
}
