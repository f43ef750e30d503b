//go:build windows

package repl

func terminalWidth() int { return 0 }
