// Package repl provides an interactive PromQL session with syntax-aware,
// history-augmented completion. The default backend is readline; building
// with the "prompt" tag switches to go-prompt.
package repl

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/chzyer/readline"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/prometheus/promql/parser"

	"github.com/promql-tools/promplete/pkg/complete"
	"github.com/promql-tools/promplete/pkg/promapi"
)

const queryTimeout = 30 * time.Second

// Config describes a session.
type Config struct {
	// Meta supplies label/metric metadata for completion. Required.
	Meta promapi.API
	// QueryAPI, when set, executes submitted queries remotely. Without it
	// the session runs offline and only resolves selectors against Meta.
	QueryAPI v1.API
	// HistoryFile overrides the default history file location.
	HistoryFile string
	// Silent suppresses the startup banner.
	Silent bool
}

// Session holds the interactive state: the completion strategy and the
// executed-query history feeding it.
type Session struct {
	cfg      Config
	strategy *complete.History
	history  []string
}

// NewSession loads persisted history and builds the completion stack: a
// syntax-aware strategy over cfg.Meta, decorated with past queries.
func NewSession(cfg Config) *Session {
	if cfg.HistoryFile == "" {
		cfg.HistoryFile = historyFilePath()
	}
	s := &Session{cfg: cfg}
	s.history = loadHistoryFile(cfg.HistoryFile)
	s.strategy = complete.NewHistory(complete.NewSyntax(cfg.Meta), RecentMatching("", s.history))
	return s
}

func (s *Session) runReadline() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "PromQL> ",
		HistoryFile:     s.cfg.HistoryFile,
		AutoComplete:    NewCompleter(s.strategy),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer func() { _ = rl.Close() }()

	if !s.cfg.Silent {
		fmt.Println("Enter PromQL queries ('quit' to exit):")
	}
	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			if err == io.EOF {
				break
			}
			return fmt.Errorf("reading input: %w", err)
		}
		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}
		if query == "quit" || query == "exit" {
			break
		}
		s.execute(query)
		s.remember(query)
	}
	return nil
}

// remember records an executed query and refreshes the completion strategy
// with the newest-first view of the history.
func (s *Session) remember(query string) {
	if len(s.history) == 0 || s.history[len(s.history)-1] != query {
		s.history = append(s.history, query)
		appendHistoryFile(s.cfg.HistoryFile, query)
	}
	s.strategy.SetEntries(RecentMatching("", s.history))
}

func (s *Session) execute(query string) {
	expr, err := parser.ParseExpr(query)
	if err != nil {
		fmt.Printf("parse error: %v\n", err)
		return
	}
	if s.cfg.QueryAPI == nil {
		s.printMatchingSeries(expr)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()
	val, warnings, err := s.cfg.QueryAPI.Query(ctx, query, time.Now())
	if err != nil {
		fmt.Printf("query failed: %v\n", err)
		return
	}
	for _, w := range warnings {
		fmt.Printf("warning: %s\n", w)
	}
	printValue(val)
}

// printMatchingSeries is the offline fallback: list the series each vector
// selector in the expression matches against the metadata source.
func (s *Session) printMatchingSeries(expr parser.Expr) {
	total := 0
	parser.Inspect(expr, func(node parser.Node, _ []parser.Node) error {
		vs, ok := node.(*parser.VectorSelector)
		if !ok {
			return nil
		}
		for _, ls := range s.cfg.Meta.Series(context.Background(), "", vs.LabelMatchers, "") {
			fmt.Println(clipLine(ls.String()))
			total++
		}
		return nil
	})
	if total == 0 {
		fmt.Println("(no matching series)")
	}
}
