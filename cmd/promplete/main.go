package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"

	"github.com/peterbourgon/ff/v3/ffcli"
	papi "github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	promparser "github.com/prometheus/prometheus/promql/parser"

	"github.com/promql-tools/promplete/pkg/metastore"
	"github.com/promql-tools/promplete/pkg/promapi"
	"github.com/promql-tools/promplete/pkg/repl"
)

// Version info. Overridden at build time via -ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// headerFlags collects repeatable --header key=value flags.
type headerFlags map[string]string

func (h headerFlags) String() string {
	parts := make([]string, 0, len(h))
	for k, v := range h {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

func (h headerFlags) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("header must be key=value, got %q", s)
	}
	h[strings.TrimSpace(k)] = strings.TrimSpace(v)
	return nil
}

// normalizeLongOpts converts GNU-style "--long" options to stdlib-flag style "-long".
// It leaves the "--" end-of-flags marker intact and doesn't touch single-dash or positional args.
func normalizeLongOpts(args []string) []string {
	out := make([]string, 0, len(args))
	seenTerminator := false
	for _, a := range args {
		if seenTerminator {
			out = append(out, a)
			continue
		}
		if a == "--" {
			seenTerminator = true
			out = append(out, a)
			continue
		}
		if strings.HasPrefix(a, "--") && len(a) > 2 {
			out = append(out, "-"+a[2:])
			continue
		}
		out = append(out, a)
	}
	return out
}

func main() {
	// Root (global) flags
	rootFlags := flag.NewFlagSet("promplete", flag.ContinueOnError)
	server := rootFlags.String("server", "http://localhost:9090", "Prometheus server URL (env PROMPLETE_SERVER)")
	method := rootFlags.String("method", http.MethodPost, "HTTP method for metadata requests: GET|POST")
	lookback := rootFlags.Duration("lookback", promapi.DefaultLookback, "metadata lookback window")
	prefix := rootFlags.String("prefix", promapi.DefaultPrefix, "API path prefix")
	silent := rootFlags.Bool("silent", false, "suppress startup output and metadata errors")
	rootFlags.BoolVar(silent, "s", *silent, "shorthand for --silent")
	headers := headerFlags{}
	rootFlags.Var(headers, "header", "extra HTTP header as key=value (repeatable)")

	if env := os.Getenv("PROMPLETE_SERVER"); env != "" {
		*server = env
	}

	newClient := func() *promapi.Client {
		onError := func(err error) {
			fmt.Fprintf(os.Stderr, "metadata query failed: %v\n", err)
		}
		if *silent {
			onError = nil
		}
		c := promapi.NewClient(promapi.Config{
			Address:  *server,
			Method:   strings.ToUpper(*method),
			Lookback: *lookback,
			Prefix:   *prefix,
			OnError:  onError,
		})
		for k, v := range headers {
			c.SetHeader(k, v)
		}
		return c
	}

	printList := func(items []string) {
		for _, it := range items {
			fmt.Println(it)
		}
	}

	labelsCmd := &ffcli.Command{
		Name:       "labels",
		ShortUsage: "promplete [flags] labels [<metric>]",
		Exec: func(ctx context.Context, args []string) error {
			metric := ""
			if len(args) > 0 {
				metric = args[0]
			}
			printList(newClient().LabelNames(ctx, metric))
			return nil
		},
	}

	valuesCmd := &ffcli.Command{
		Name:       "values",
		ShortUsage: "promplete [flags] values <label> [<metric>]",
		Exec: func(ctx context.Context, args []string) error {
			if len(args) < 1 {
				return fmt.Errorf("values requires <label>")
			}
			metric := ""
			if len(args) > 1 {
				metric = args[1]
			}
			printList(newClient().LabelValues(ctx, args[0], metric, nil))
			return nil
		},
	}

	seriesCmd := &ffcli.Command{
		Name:       "series",
		ShortUsage: "promplete [flags] series <selector>",
		Exec: func(ctx context.Context, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("series requires <selector>")
			}
			matchers, err := promparser.ParseMetricSelector(args[0])
			if err != nil {
				return fmt.Errorf("invalid selector: %w", err)
			}
			for _, ls := range newClient().Series(ctx, "", matchers, "") {
				fmt.Println(ls.String())
			}
			return nil
		},
	}

	metadataCmd := &ffcli.Command{
		Name:       "metadata",
		ShortUsage: "promplete [flags] metadata",
		Exec: func(ctx context.Context, _ []string) error {
			meta := newClient().Metadata(ctx)
			names := make([]string, 0, len(meta))
			for name := range meta {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				for _, m := range meta[name] {
					fmt.Printf("%s\t%s\t%s\n", name, m.Type, m.Help)
				}
			}
			return nil
		},
	}

	flagsCmd := &ffcli.Command{
		Name:       "flags",
		ShortUsage: "promplete [flags] flags",
		Exec: func(ctx context.Context, _ []string) error {
			fl := newClient().Flags(ctx)
			names := make([]string, 0, len(fl))
			for name := range fl {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				fmt.Printf("%s=%s\n", name, fl[name])
			}
			return nil
		},
	}

	replFlags := flag.NewFlagSet("repl", flag.ContinueOnError)
	metricsFile := replFlags.String("metrics", "", "run offline against a Prometheus exposition file instead of a server")
	historyFile := replFlags.String("history", "", "history file location")
	replCmd := &ffcli.Command{
		Name:       "repl",
		ShortUsage: "promplete [flags] repl [--metrics file.prom]",
		FlagSet:    replFlags,
		Exec: func(ctx context.Context, _ []string) error {
			cfg := repl.Config{HistoryFile: *historyFile, Silent: *silent}
			if *metricsFile != "" {
				store := metastore.New()
				f, err := os.Open(*metricsFile)
				if err != nil {
					return fmt.Errorf("opening metrics file: %w", err)
				}
				loadErr := store.LoadFromReader(f)
				_ = f.Close()
				if loadErr != nil {
					return fmt.Errorf("loading metrics: %w", loadErr)
				}
				cfg.Meta = store
				if !*silent {
					fmt.Printf("Loaded metrics from %s (%d metrics)\n",
						*metricsFile, len(store.MetricNames(ctx)))
				}
			} else {
				cfg.Meta = newClient()
				qc, err := papi.NewClient(papi.Config{Address: *server})
				if err != nil {
					return fmt.Errorf("connecting to %s: %w", *server, err)
				}
				cfg.QueryAPI = v1.NewAPI(qc)
			}
			return repl.NewSession(cfg).RunInteractive()
		},
	}

	versionCmd := &ffcli.Command{
		Name: "version",
		Exec: func(ctx context.Context, _ []string) error { printVersion(); return nil },
	}

	root := &ffcli.Command{
		Name:       "promplete",
		ShortUsage: "promplete [--server=URL] <subcommand> [flags]",
		FlagSet:    rootFlags,
		Subcommands: []*ffcli.Command{
			labelsCmd, valuesCmd, seriesCmd, metadataCmd, flagsCmd, replCmd, versionCmd,
		},
		Exec: func(ctx context.Context, _ []string) error { return flag.ErrHelp },
	}

	// Normalize GNU-style long options ("--long") to stdlib format ("-long")
	norm := normalizeLongOpts(os.Args[1:])
	if err := root.ParseAndRun(context.Background(), norm); err != nil {
		if err == flag.ErrHelp {
			root.FlagSet.Usage()
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printVersion prints a human-readable version string.
func printVersion() {
	fmt.Printf("promplete %s\n", version)
	fmt.Printf("  commit: %s\n", commit)
	fmt.Printf("  date:   %s\n", date)
}
