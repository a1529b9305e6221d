//go:build darwin

package browser

func launchers() []launcher {
	return []launcher{{name: "open"}}
}
