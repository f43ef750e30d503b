//go:build !windows

package repl

import (
	"os"

	"golang.org/x/sys/unix"
)

// terminalWidth returns the current width of stdout, or 0 when stdout is not
// a terminal.
func terminalWidth() int {
	ws, err := unix.IoctlGetWinsize(int(os.Stdout.Fd()), unix.TIOCGWINSZ)
	if err != nil {
		return 0
	}
	return int(ws.Col)
}
