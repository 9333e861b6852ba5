// Package browser opens a generated gallery or a preview URL in the user's browser,
// including from inside WSL where the browser lives on the Windows side.
package browser

import (
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Replaceable in tests.
var (
	goos      = runtime.GOOS
	procPath  = "/proc/version"
	runOutput = func(name string, args ...string) ([]byte, error) {
		return exec.Command(name, args...).Output()
	}
	start = func(name string, args ...string) error {
		return exec.Command(name, args...).Start()
	}
)

// IsWSL reports whether the process runs under Windows Subsystem for Linux.
func IsWSL() bool {
	if goos != "linux" {
		return false
	}
	b, err := os.ReadFile(procPath)
	if err != nil {
		return false
	}
	return strings.Contains(strings.ToLower(string(b)), "microsoft")
}

// OpenFile opens a local file, usually index.html.
func OpenFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(abs); err != nil {
		return err
	}

	switch {
	case IsWSL():
		out, err := runOutput("wslpath", "-wa", abs)
		if err != nil {
			return fmt.Errorf("failed to convert WSL path: %w", err)
		}
		return start("explorer.exe", strings.TrimSpace(string(out)))
	case goos == "windows":
		return start("explorer.exe", abs)
	}
	return OpenURL((&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String())
}

// OpenURL opens u with the platform's default handler.
func OpenURL(u string) error {
	switch {
	case IsWSL(), goos == "windows":
		return start("explorer.exe", u)
	case goos == "darwin":
		return start("open", u)
	default:
		return start("xdg-open", u)
	}
}
