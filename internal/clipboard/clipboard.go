// Package clipboard copies text to the system clipboard through the
// platform's command-line tools.
package clipboard

import (
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ErrClipboardUnavailable is returned when no clipboard tool is installed.
var ErrClipboardUnavailable = errors.New("clipboard unavailable")

// tool is one clipboard writer command.
type tool struct {
	name string
	args []string
}

// tools lists the writers tried per platform, in order of preference.
var tools = map[string][]tool{
	"darwin": {{name: "pbcopy"}},
	"linux": {
		{name: "wl-copy"},
		{name: "xclip", args: []string{"-selection", "clipboard"}},
		{name: "xsel", args: []string{"--clipboard", "--input"}},
	},
	"windows": {{name: "clip.exe"}},
}

// lookPath is replaced in tests.
var lookPath = exec.LookPath

// find returns the first installed writer for goos.
func find(goos string) (tool, bool) {
	for _, t := range tools[goos] {
		if _, err := lookPath(t.name); err == nil {
			return t, true
		}
	}
	return tool{}, false
}

// IsAvailable reports whether a clipboard writer is installed.
func IsAvailable() bool {
	_, ok := find(runtime.GOOS)
	return ok
}

// Copy writes text to the system clipboard.
// Returns ErrClipboardUnavailable if no writer is installed.
func Copy(text string) error {
	t, ok := find(runtime.GOOS)
	if !ok {
		return ErrClipboardUnavailable
	}

	cmd := exec.Command(t.name, t.args...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", t.name, err, strings.TrimSpace(string(out)))
	}
	return nil
}
