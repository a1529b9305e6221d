//go:build windows

package browser

// rundll32 avoids cmd.exe re-parsing '&' in query strings.
func launchers() []launcher {
	return []launcher{
		{name: "rundll32", args: []string{"url.dll,FileProtocolHandler"}},
		{name: "cmd", args: []string{"/c", "start", ""}},
	}
}
