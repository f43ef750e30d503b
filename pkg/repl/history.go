package repl

import (
	"os"
	"path/filepath"
	"strings"
)

const maxHistoryEntries = 1000

// historyFilePath resolves the history file location: $PROMPLETE_HISTORY,
// then the user's home directory, then the working directory.
func historyFilePath() string {
	if p := os.Getenv("PROMPLETE_HISTORY"); p != "" {
		return p
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".promplete_history")
	}
	if cwd, err := os.Getwd(); err == nil && cwd != "" {
		return filepath.Join(cwd, ".promplete_history")
	}
	return ".promplete_history"
}

// loadHistoryFile reads non-empty lines from the history file, keeping only
// the newest maxHistoryEntries.
func loadHistoryFile(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var out []string
	for _, ln := range strings.Split(string(data), "\n") {
		ln = strings.TrimSpace(strings.TrimRight(ln, "\r"))
		if ln != "" {
			out = append(out, ln)
		}
	}
	if len(out) > maxHistoryEntries {
		out = out[len(out)-maxHistoryEntries:]
	}
	return out
}

// appendHistoryFile appends a single query to the history file. Failures are
// silent; history persistence is best effort.
func appendHistoryFile(path, query string) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()
	_, _ = f.WriteString(query + "\n")
}

// RecentMatching returns the history entries starting with prefix, newest
// first. Duplicates are preserved for one-to-one navigation.
func RecentMatching(prefix string, history []string) []string {
	out := make([]string, 0, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		if prefix == "" || strings.HasPrefix(history[i], prefix) {
			out = append(out, history[i])
		}
	}
	return out
}
