//go:build prompt

package repl

import (
	"context"
	"fmt"
	"os"
	"strings"

	prompt "github.com/c-bata/go-prompt"

	"github.com/promql-tools/promplete/pkg/complete"
)

func (s *Session) runPrompt() error {
	if !s.cfg.Silent {
		fmt.Println("Enter PromQL queries ('quit' to exit):")
	}
	p := prompt.New(
		s.promptExecutor,
		s.promptCompleter,
		prompt.OptionPrefix("PromQL> "),
		prompt.OptionTitle("promplete"),
		prompt.OptionMaxSuggestion(20),
		prompt.OptionCompletionWordSeparator("(){}[]\" \t\n,="),
	)
	p.Run()
	return nil
}

func (s *Session) promptExecutor(line string) {
	query := strings.TrimSpace(line)
	if query == "" {
		return
	}
	if query == "quit" || query == "exit" {
		fmt.Println("Bye!")
		os.Exit(0)
	}
	s.execute(query)
	s.remember(query)
}

func (s *Session) promptCompleter(d prompt.Document) []prompt.Suggest {
	before := d.TextBeforeCursor()
	res, err := s.strategy.Complete(context.Background(), complete.Request{
		Text: before,
		Pos:  len(before),
	})
	if err != nil || res == nil {
		return nil
	}
	suggestions := make([]prompt.Suggest, 0, len(res.Options))
	for _, o := range res.Options {
		insert := o.InsertText
		if insert == "" {
			insert = o.Label
		}
		suggestions = append(suggestions, prompt.Suggest{
			Text:        insert,
			Description: o.Detail,
		})
	}
	return prompt.FilterHasPrefix(suggestions, d.GetWordBeforeCursor(), true)
}
