package complete

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/prometheus/prometheus/promql/parser"

	"github.com/promql-tools/promplete/pkg/promapi"
)

// wordSeparators end a PromQL token for completion purposes.
const wordSeparators = "(){}[]\" \t\n,="

// maxOptions caps the number of options a single completion returns.
const maxOptions = 100

type contextKind int

const (
	ctxDefault contextKind = iota
	ctxRangeDuration
	ctxLabelName
	ctxLabelValue
	ctxFunctionArg
	ctxAfterOperator
	ctxAggregation
)

// exprContext classifies the cursor position within a partial expression.
type exprContext struct {
	kind       contextKind
	metricName string
	labelName  string
}

var labelValueRe = regexp.MustCompile(`([a-zA-Z_][a-zA-Z0-9_]*)\s*(!?[=~])\s*"?([^"]*)$`)

var binaryOperators = []string{
	"+", "-", "*", "/", "^", "%", "and", "or", "unless",
	">", "<", ">=", "<=", "==", "!=", "by", "without",
}

// analyze inspects the text before the cursor and decides what kind of token
// is being typed. It deliberately works on unbalanced, partial input: the
// parser only assists for the aggregation case.
func analyze(text string) exprContext {
	ec := exprContext{kind: ctxDefault}

	// Unclosed '[' means a range selector duration.
	if open := strings.LastIndex(text, "["); open != -1 && open > strings.LastIndex(text, "]") {
		ec.kind = ctxRangeDuration
		ec.metricName = wordBefore(text, open)
		return ec
	}

	// Unclosed '{' means a label matcher list.
	if open := strings.LastIndex(text, "{"); open != -1 && open > strings.LastIndex(text, "}") {
		labelPart := text[open+1:]
		if m := labelValueRe.FindStringSubmatch(labelPart); len(m) > 1 {
			ec.kind = ctxLabelValue
			ec.labelName = m[1]
		} else {
			ec.kind = ctxLabelName
		}
		ec.metricName = strings.TrimSpace(wordBefore(text, open))
		return ec
	}

	// Unclosed '(' preceded by a name means we are inside function args.
	if open := strings.LastIndex(text, "("); open != -1 && open > strings.LastIndex(text, ")") {
		if fn := wordBefore(text, open); fn != "" {
			ec.kind = ctxFunctionArg
		}
		return ec
	}

	trimmed := strings.TrimRight(text, " \t")
	for _, op := range binaryOperators {
		if strings.HasSuffix(trimmed, op) {
			ec.kind = ctxAfterOperator
			return ec
		}
	}

	if _, err := parser.ParseExpr(text); err != nil && strings.Contains(err.Error(), "aggregation") {
		ec.kind = ctxAggregation
	}
	return ec
}

// wordBefore returns the token immediately left of end.
func wordBefore(text string, end int) string {
	start := end
	for start > 0 && !strings.ContainsRune(wordSeparators, rune(text[start-1])) {
		start--
	}
	return text[start:end]
}

var rangeDurations = []Option{
	{Label: "30s]", Detail: "30 seconds"},
	{Label: "1m]", Detail: "1 minute"},
	{Label: "5m]", Detail: "5 minutes"},
	{Label: "15m]", Detail: "15 minutes"},
	{Label: "30m]", Detail: "30 minutes"},
	{Label: "1h]", Detail: "1 hour"},
	{Label: "6h]", Detail: "6 hours"},
	{Label: "12h]", Detail: "12 hours"},
	{Label: "1d]", Detail: "1 day"},
	{Label: "7d]", Detail: "7 days"},
}

var aggregators = []Option{
	{Label: "avg", Detail: "calculate average"},
	{Label: "bottomk", Detail: "smallest k elements"},
	{Label: "count", Detail: "count series"},
	{Label: "count_values", Detail: "count by value"},
	{Label: "group", Detail: "group series"},
	{Label: "max", Detail: "select maximum"},
	{Label: "min", Detail: "select minimum"},
	{Label: "quantile", Detail: "calculate quantile"},
	{Label: "stddev", Detail: "standard deviation"},
	{Label: "stdvar", Detail: "standard variance"},
	{Label: "sum", Detail: "calculate sum"},
	{Label: "topk", Detail: "largest k elements"},
}

// Syntax is a syntax-aware completion strategy backed by a metadata source.
// It is stateless; every request fetches fresh metadata.
type Syntax struct {
	api promapi.API
}

// NewSyntax returns a strategy reading metric and label metadata from api.
func NewSyntax(api promapi.API) *Syntax {
	return &Syntax{api: api}
}

// Complete implements Strategy.
func (s *Syntax) Complete(ctx context.Context, req Request) (*Result, error) {
	pos := req.Pos
	if pos > len(req.Text) {
		pos = len(req.Text)
	}
	before := req.Text[:pos]
	from := pos - len(wordBefore(before, pos))
	word := before[from:pos]
	ec := analyze(before)

	var opts []Option
	switch ec.kind {
	case ctxRangeDuration:
		opts = staticOptions(rangeDurations, word)
	case ctxLabelName:
		for _, name := range s.api.LabelNames(ctx, ec.metricName) {
			opts = append(opts, Option{Label: name, Detail: "label", InsertText: name})
		}
		opts = filterOptions(opts, word)
	case ctxLabelValue:
		quoted := from > 0 && before[from-1] == '"'
		for _, value := range s.api.LabelValues(ctx, ec.labelName, ec.metricName, nil) {
			insert := `"` + value + `"`
			if quoted {
				insert = value + `"`
			}
			opts = append(opts, Option{Label: value, Detail: "value", InsertText: insert})
		}
		opts = filterOptions(opts, word)
	case ctxAggregation:
		opts = staticOptions(aggregators, word)
	case ctxAfterOperator:
		opts = s.metricOptions(ctx, word)
	default:
		opts = append(s.metricOptions(ctx, word), functionOptions(word)...)
	}

	if len(opts) == 0 {
		return nil, nil
	}
	if len(opts) > maxOptions {
		opts = opts[:maxOptions]
	}
	return &Result{From: from, To: pos, Options: opts, ValidFor: identValidFor}, nil
}

// metricOptions lists metric names matching the prefix, with help text from
// the metadata endpoint as detail where available.
func (s *Syntax) metricOptions(ctx context.Context, prefix string) []Option {
	names := s.api.MetricNames(ctx)
	sort.Strings(names)
	meta := s.api.Metadata(ctx)

	var opts []Option
	for _, name := range names {
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		detail := "(metric)"
		if recs := meta[name]; len(recs) > 0 && recs[0].Help != "" {
			detail = recs[0].Help
		}
		opts = append(opts, Option{Label: name, Detail: detail, InsertText: name})
		if len(opts) >= maxOptions {
			break
		}
	}
	return opts
}

// functionOptions lists PromQL functions from the parser's own table.
func functionOptions(prefix string) []Option {
	names := make([]string, 0, len(parser.Functions))
	for name := range parser.Functions {
		names = append(names, name)
	}
	sort.Strings(names)

	var opts []Option
	for _, name := range names {
		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}
		opts = append(opts, Option{Label: name + "(", Detail: "function", InsertText: name + "("})
	}
	return opts
}

func staticOptions(all []Option, prefix string) []Option {
	var opts []Option
	for _, o := range all {
		if prefix != "" && !strings.HasPrefix(o.Label, prefix) {
			continue
		}
		if o.InsertText == "" {
			o.InsertText = o.Label
		}
		opts = append(opts, o)
	}
	return opts
}

func filterOptions(opts []Option, prefix string) []Option {
	if prefix == "" {
		return opts
	}
	var out []Option
	for _, o := range opts {
		if strings.HasPrefix(o.Label, prefix) {
			out = append(out, o)
		}
	}
	return out
}
