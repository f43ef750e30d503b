//go:build prompt

package repl

// RunInteractive starts the go-prompt based session loop.
func (s *Session) RunInteractive() error {
	return s.runPrompt()
}
