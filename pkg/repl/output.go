package repl

import (
	"fmt"
	"time"

	"github.com/prometheus/common/model"
)

// printValue renders a query result the way the API client decodes it.
func printValue(val model.Value) {
	switch v := val.(type) {
	case model.Vector:
		if len(v) == 0 {
			fmt.Println("(empty result)")
			return
		}
		for _, sample := range v {
			fmt.Println(clipLine(fmt.Sprintf("%s => %v @ %s",
				sample.Metric, sample.Value, formatTime(sample.Timestamp))))
		}
	case model.Matrix:
		if len(v) == 0 {
			fmt.Println("(empty result)")
			return
		}
		for _, series := range v {
			fmt.Println(clipLine(series.Metric.String()))
			for _, p := range series.Values {
				fmt.Printf("  %v @ %s\n", p.Value, formatTime(p.Timestamp))
			}
		}
	case *model.Scalar:
		fmt.Printf("scalar: %v @ %s\n", v.Value, formatTime(v.Timestamp))
	case *model.String:
		fmt.Println(v.Value)
	default:
		fmt.Printf("%v\n", val)
	}
}

func formatTime(t model.Time) string {
	return t.Time().UTC().Format(time.RFC3339)
}

// clipLine shortens a line to the terminal width so wide series don't wrap.
func clipLine(s string) string {
	w := terminalWidth()
	if w <= 3 || len(s) <= w {
		return s
	}
	return s[:w-3] + "..."
}
