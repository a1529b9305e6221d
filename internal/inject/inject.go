// Package inject instruments an HTML document with the lifecycle script
// that reports page load, liveness and departure back to the server.
package inject

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"
	"time"

	"golang.org/x/net/html"
)

// Marker is the attribute carried by the injected script element.
const Marker = `data-htmlserve="lifecycle"`

//go:embed lifecycle.js.tmpl
var scriptSource string

var scriptTmpl = template.Must(template.New("lifecycle").Parse(scriptSource))

// ScriptOptions configures the rendered lifecycle script.
type ScriptOptions struct {
	LoadedPath        string
	HeartbeatPath     string
	UnloadPath        string
	HeartbeatInterval time.Duration
	HiddenGrace       time.Duration
}

// Script renders the lifecycle script block.
func Script(opts ScriptOptions) ([]byte, error) {
	if opts.LoadedPath == "" || opts.HeartbeatPath == "" || opts.UnloadPath == "" {
		return nil, fmt.Errorf("inject: lifecycle endpoints must be set")
	}
	if opts.HeartbeatInterval <= 0 {
		return nil, fmt.Errorf("inject: heartbeat interval must be positive")
	}

	data := struct {
		ScriptOptions
		MarkerAttr        string
		HeartbeatMillis   int64
		HiddenGraceMillis int64
	}{
		ScriptOptions:     opts,
		MarkerAttr:        Marker,
		HeartbeatMillis:   opts.HeartbeatInterval.Milliseconds(),
		HiddenGraceMillis: opts.HiddenGrace.Milliseconds(),
	}

	var buf bytes.Buffer
	if err := scriptTmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("inject: rendering script: %w", err)
	}
	return buf.Bytes(), nil
}

// Inject returns a copy of doc with script inserted immediately before the
// first closing body tag. Documents without one are returned unchanged.
func Inject(doc, script []byte) []byte {
	at := closingBodyOffset(doc)
	if at < 0 {
		return doc
	}

	out := make([]byte, 0, len(doc)+len(script))
	out = append(out, doc[:at]...)
	out = append(out, script...)
	out = append(out, doc[at:]...)
	return out
}

// Contains reports whether doc already carries the lifecycle script.
func Contains(doc []byte) bool {
	return bytes.Contains(doc, []byte(Marker))
}

// closingBodyOffset returns the byte offset of the first </body> end tag,
// or -1. Tokenizing skips look-alikes inside comments and raw-text
// elements such as <script> and <textarea>.
func closingBodyOffset(doc []byte) int {
	z := html.NewTokenizer(bytes.NewReader(doc))
	offset := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			return -1
		}
		n := len(z.Raw())
		if tt == html.EndTagToken {
			name, _ := z.TagName()
			if string(name) == "body" {
				// Raw offsets must line up with the source bytes.
				if !bytes.HasPrefix(doc[offset:], []byte("</")) {
					return -1
				}
				return offset
			}
		}
		offset += n
	}
}
