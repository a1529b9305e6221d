// Package testutil provides test helper utilities for htmlserve tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// TempSite creates a temporary directory with the given files and returns its path.
// Files is a map of relative path -> content. Directories are created as needed.
// The directory is automatically cleaned up when the test finishes.
func TempSite(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	for relPath, content := range files {
		absPath := filepath.Join(dir, filepath.FromSlash(relPath))
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", relPath, err)
		}
		if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", relPath, err)
		}
	}

	return dir
}

// Symlink creates link pointing at target, skipping the test where the
// platform does not allow it.
func Symlink(t *testing.T, target, link string) {
	t.Helper()
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
}

// PreviewPage returns a small page with a stylesheet and an image next to it.
func PreviewPage() map[string]string {
	return map[string]string{
		"index.html": `<!DOCTYPE html>
<html>
<head>
  <title>Preview</title>
  <link rel="stylesheet" href="style.css">
</head>
<body>
  <h1>Hello</h1>
  <img src="img/dot.svg" alt="">
</body>
</html>
`,
		"style.css":   "h1 { color: teal; }\n",
		"img/dot.svg": `<svg xmlns="http://www.w3.org/2000/svg" width="1" height="1"></svg>`,
	}
}

// FragmentPage returns a page without a closing body tag.
func FragmentPage() map[string]string {
	return map[string]string{
		"fragment.html": "<h1>No body element here</h1>\n",
	}
}
