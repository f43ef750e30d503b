package repl

import (
	"context"
	"strings"

	"github.com/promql-tools/promplete/pkg/complete"
)

// Completer adapts a complete.Strategy to readline's AutoCompleter.
type Completer struct {
	strategy complete.Strategy
}

// NewCompleter wraps a strategy for use with readline.
func NewCompleter(strategy complete.Strategy) *Completer {
	return &Completer{strategy: strategy}
}

// Do implements readline.AutoCompleter. readline wants candidate suffixes
// relative to the word being completed, plus the length of that word.
func (c *Completer) Do(line []rune, pos int) ([][]rune, int) {
	text := string(line)
	bytePos := len(string(line[:pos]))

	res, err := c.strategy.Complete(context.Background(), complete.Request{Text: text, Pos: bytePos})
	if err != nil || res == nil {
		return nil, 0
	}
	if res.From < 0 || res.From > bytePos {
		return nil, 0
	}
	word := text[res.From:bytePos]

	seen := make(map[string]struct{}, len(res.Options))
	var out [][]rune
	for _, o := range res.Options {
		insert := o.InsertText
		if insert == "" {
			insert = o.Label
		}
		if !strings.HasPrefix(insert, word) {
			continue
		}
		if _, dup := seen[insert]; dup {
			continue
		}
		seen[insert] = struct{}{}
		out = append(out, []rune(insert[len(word):]))
	}
	return out, len([]rune(word))
}
