//go:build !prompt

package repl

// RunInteractive starts the readline-based session loop.
func (s *Session) RunInteractive() error {
	return s.runReadline()
}
