// Package complete provides completion strategies for PromQL editors: a
// Strategy capability, a history decorator that recalls previously executed
// queries, and a syntax-aware strategy backed by a metadata API.
package complete

import (
	"context"
	"regexp"

	"github.com/prometheus/prometheus/promql/parser"
)

// Request describes the editor state at completion time: the full text and
// the cursor offset within it.
type Request struct {
	Text string
	Pos  int
}

// Option is a single completion candidate. InsertText is what gets inserted;
// Label is what the dropdown shows, which may be a shortened form.
type Option struct {
	Label      string
	Detail     string
	InsertText string
	Info       string
}

// Result is a positioned, ordered list of options replacing [From, To).
// ValidFor, when set, tells the editor which continued input keeps the
// options valid without a new completion request.
type Result struct {
	From     int
	To       int
	Options  []Option
	ValidFor *regexp.Regexp
}

// Strategy produces completions for a request. A nil result means "no
// completions here". Implementations may suspend on network I/O; errors from
// an inner strategy are propagated, not swallowed.
type Strategy interface {
	Complete(ctx context.Context, req Request) (*Result, error)
}

// identValidFor matches contiguous runs of letters, digits, underscore or
// colon, the characters a PromQL identifier may continue with.
var identValidFor = regexp.MustCompile(`^[a-zA-Z0-9_:]+$`)

// StartOfExpr returns the start offset of the innermost syntax node covering
// pos. When the text does not parse (the common case while typing), it falls
// back to scanning back over identifier characters.
func StartOfExpr(text string, pos int) int {
	if pos > len(text) {
		pos = len(text)
	}
	expr, err := parser.ParseExpr(text)
	if err != nil || expr == nil {
		return identStart(text, pos)
	}
	start := 0
	parser.Inspect(expr, func(node parser.Node, _ []parser.Node) error {
		if node == nil {
			return nil
		}
		r := node.PositionRange()
		if int(r.Start) <= pos && pos <= int(r.End) {
			start = int(r.Start)
		}
		return nil
	})
	return start
}

func identStart(text string, pos int) int {
	i := pos
	for i > 0 && isIdentByte(text[i-1]) {
		i--
	}
	return i
}

func isIdentByte(b byte) bool {
	return b == '_' || b == ':' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
