package complete

import "context"

const (
	historyDetail = "past query"

	// Labels longer than maxHistoryLabel are shortened for display; the
	// full query still lands in InsertText and Info.
	maxHistoryLabel = 80
	shortLabelLen   = 76
)

// History decorates an inner strategy with completions drawn from previously
// executed queries. History options are only offered at the very start of an
// expression, the position where the user is typing a bare top-level token
// and recalling a whole query makes sense.
type History struct {
	inner     Strategy
	entries   []string
	nodeStart func(req Request) int
}

// NewHistory wraps inner with the given history entries. The entry order is
// preserved as supplied; entries are not deduplicated or reordered. inner may
// be nil, in which case only history options are produced.
func NewHistory(inner Strategy, entries []string) *History {
	return &History{
		inner:   inner,
		entries: entries,
		nodeStart: func(req Request) int {
			return StartOfExpr(req.Text, req.Pos)
		},
	}
}

// SetEntries replaces the history list for subsequent completions.
func (h *History) SetEntries(entries []string) {
	h.entries = entries
}

// Complete implements Strategy. Inner errors propagate unmodified.
func (h *History) Complete(ctx context.Context, req Request) (*Result, error) {
	var inner *Result
	if h.inner != nil {
		res, err := h.inner.Complete(ctx, req)
		if err != nil {
			return nil, err
		}
		inner = res
	}

	start := 0
	if inner != nil {
		start = inner.From
	} else {
		start = h.nodeStart(req)
	}
	if start != 0 {
		return inner, nil
	}

	opts := make([]Option, 0, len(h.entries))
	for _, q := range h.entries {
		o := Option{Label: q, Detail: historyDetail, InsertText: q}
		if len(q) > maxHistoryLabel {
			o.Label = q[:shortLabelLen] + "..."
			o.Info = q
		}
		opts = append(opts, o)
	}

	if inner != nil {
		merged := *inner
		merged.Options = append(opts, inner.Options...)
		return &merged, nil
	}
	return &Result{From: start, To: req.Pos, Options: opts, ValidFor: identValidFor}, nil
}
