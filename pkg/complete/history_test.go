package complete

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeStrategy returns a fixed result or error.
type fakeStrategy struct {
	res *Result
	err error
}

func (f *fakeStrategy) Complete(context.Context, Request) (*Result, error) {
	return f.res, f.err
}

func TestHistoryAtStartOfExpression(t *testing.T) {
	h := NewHistory(nil, []string{"up", "rate(x[5m])"})

	res, err := h.Complete(context.Background(), Request{Text: "", Pos: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res == nil {
		t.Fatal("expected a result")
	}
	if res.From != 0 {
		t.Fatalf("From = %d, want 0", res.From)
	}
	if len(res.Options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(res.Options))
	}
	for i, want := range []string{"up", "rate(x[5m])"} {
		o := res.Options[i]
		if o.Label != want || o.InsertText != want {
			t.Fatalf("option %d = %#v, want label/insert %q", i, o, want)
		}
		if o.Info != "" {
			t.Fatalf("option %d should have no info, got %q", i, o.Info)
		}
		if o.Detail != "past query" {
			t.Fatalf("option %d detail = %q", i, o.Detail)
		}
	}
	if !res.ValidFor.MatchString("rate_5m:rec") {
		t.Fatal("ValidFor should match identifier runs")
	}
	if res.ValidFor.MatchString("a-b") {
		t.Fatal("ValidFor should reject non-identifier characters")
	}
}

func TestHistoryLabelTruncation(t *testing.T) {
	exact := strings.Repeat("a", 80)
	long := strings.Repeat("b", 81)
	h := NewHistory(nil, []string{exact, long})

	res, err := h.Complete(context.Background(), Request{Text: "", Pos: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := res.Options[0]; got.Label != exact || got.Info != "" {
		t.Fatalf("80-char entry should be verbatim with no info, got %#v", got)
	}
	got := res.Options[1]
	if want := strings.Repeat("b", 76) + "..."; got.Label != want {
		t.Fatalf("81-char label = %q, want %q", got.Label, want)
	}
	if got.Info != long || got.InsertText != long {
		t.Fatalf("truncated entry must keep full text in info and insert, got %#v", got)
	}
}

func TestHistoryPrependsToInnerOptions(t *testing.T) {
	inner := &Result{
		From:    0,
		To:      2,
		Options: []Option{{Label: "up_total", InsertText: "up_total", Detail: "(metric)"}},
	}
	h := NewHistory(&fakeStrategy{res: inner}, []string{"up"})

	res, err := h.Complete(context.Background(), Request{Text: "up", Pos: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Options) != 2 {
		t.Fatalf("expected 2 options, got %d", len(res.Options))
	}
	if res.Options[0].Label != "up" || res.Options[1].Label != "up_total" {
		t.Fatalf("history options must come first: %#v", res.Options)
	}
	if res.From != 0 || res.To != 2 {
		t.Fatalf("inner range must be preserved, got [%d,%d)", res.From, res.To)
	}
	// The inner result itself is untouched.
	if len(inner.Options) != 1 {
		t.Fatalf("inner result was mutated: %#v", inner.Options)
	}
}

func TestHistorySkippedPastStart(t *testing.T) {
	inner := &Result{From: 4, Options: []Option{{Label: "rate("}}}
	h := NewHistory(&fakeStrategy{res: inner}, []string{"up"})

	res, err := h.Complete(context.Background(), Request{Text: "sum(ra", Pos: 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != inner {
		t.Fatalf("nonzero offset must return the inner result unchanged, got %#v", res)
	}
}

func TestHistorySkippedPastStartWithoutInner(t *testing.T) {
	h := NewHistory(nil, []string{"up"})

	// Cursor sits inside "ra", whose token starts at offset 4.
	res, err := h.Complete(context.Background(), Request{Text: "sum(ra", Pos: 6})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res != nil {
		t.Fatalf("expected no completions mid-expression, got %#v", res)
	}
}

func TestHistoryPropagatesInnerError(t *testing.T) {
	boom := errors.New("inner failed")
	h := NewHistory(&fakeStrategy{err: boom}, []string{"up"})

	_, err := h.Complete(context.Background(), Request{Text: "", Pos: 0})
	if !errors.Is(err, boom) {
		t.Fatalf("expected inner error to propagate, got %v", err)
	}
}

func TestHistorySetEntries(t *testing.T) {
	h := NewHistory(nil, nil)
	h.SetEntries([]string{"sum(up)"})

	res, err := h.Complete(context.Background(), Request{Text: "", Pos: 0})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Options) != 1 || res.Options[0].Label != "sum(up)" {
		t.Fatalf("unexpected options: %#v", res.Options)
	}
}
