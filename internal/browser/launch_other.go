//go:build !darwin && !windows

package browser

func launchers() []launcher {
	return []launcher{
		{name: "xdg-open"},
		{name: "wslview"},
		{name: "sensible-browser"},
	}
}
