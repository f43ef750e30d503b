// Package metastore is an in-memory metadata source fed by Prometheus text
// exposition format. It answers the same six operations as the HTTP-backed
// promapi.Client, which makes it usable for offline sessions and as a
// drop-in substitute in tests.
package metastore

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"github.com/prometheus/common/model"
	"github.com/prometheus/prometheus/model/labels"

	"github.com/promql-tools/promplete/pkg/promapi"
)

// Store indexes series label sets and per-metric metadata.
type Store struct {
	series []model.LabelSet
	meta   map[string][]promapi.Metadata
}

var _ promapi.API = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{meta: make(map[string][]promapi.Metadata)}
}

// LoadFromReader parses text exposition format and indexes every series'
// label set plus its HELP/TYPE metadata. Loading is additive; the same
// reader content loaded twice produces duplicate series entries.
func (s *Store) LoadFromReader(r io.Reader) error {
	parser := expfmt.NewTextParser(model.UTF8Validation)
	families, err := parser.TextToMetricFamilies(r)
	if err != nil {
		return fmt.Errorf("parsing exposition format: %w", err)
	}
	for name, mf := range families {
		s.addFamily(name, mf)
	}
	return nil
}

func (s *Store) addFamily(name string, mf *dto.MetricFamily) {
	help := strings.TrimSpace(strings.ReplaceAll(mf.GetHelp(), "\n", " "))
	s.meta[name] = []promapi.Metadata{{Type: metricType(mf.GetType()), Help: help}}
	for _, m := range mf.GetMetric() {
		ls := model.LabelSet{model.MetricNameLabel: model.LabelValue(name)}
		for _, lp := range m.GetLabel() {
			ls[model.LabelName(lp.GetName())] = model.LabelValue(lp.GetValue())
		}
		s.series = append(s.series, ls)
	}
}

func metricType(t dto.MetricType) model.MetricType {
	switch t {
	case dto.MetricType_COUNTER:
		return model.MetricTypeCounter
	case dto.MetricType_GAUGE:
		return model.MetricTypeGauge
	case dto.MetricType_SUMMARY:
		return model.MetricTypeSummary
	case dto.MetricType_HISTOGRAM:
		return model.MetricTypeHistogram
	default:
		return model.MetricTypeUnknown
	}
}

// LabelNames implements promapi.API.
func (s *Store) LabelNames(_ context.Context, metricName string) []string {
	set := make(map[string]struct{})
	for _, ls := range s.series {
		if metricName != "" && string(ls[model.MetricNameLabel]) != metricName {
			continue
		}
		for name := range ls {
			if name != model.MetricNameLabel {
				set[string(name)] = struct{}{}
			}
		}
	}
	return sorted(set)
}

// LabelValues implements promapi.API.
func (s *Store) LabelValues(ctx context.Context, labelName, metricName string, matchers []*labels.Matcher) []string {
	set := make(map[string]struct{})
	if metricName == "" {
		for _, ls := range s.series {
			if v, ok := ls[model.LabelName(labelName)]; ok {
				set[string(v)] = struct{}{}
			}
		}
		return sorted(set)
	}
	for _, ls := range s.Series(ctx, metricName, matchers, labelName) {
		if v, ok := ls[model.LabelName(labelName)]; ok {
			set[string(v)] = struct{}{}
		}
	}
	return sorted(set)
}

// Series implements promapi.API. A non-empty labelName acts as an existence
// constraint, mirroring the selector the HTTP client sends.
func (s *Store) Series(_ context.Context, metricName string, matchers []*labels.Matcher, labelName string) []model.LabelSet {
	out := []model.LabelSet{}
	for _, ls := range s.series {
		if metricName != "" && string(ls[model.MetricNameLabel]) != metricName {
			continue
		}
		if labelName != "" && ls[model.LabelName(labelName)] == "" {
			continue
		}
		match := true
		for _, m := range matchers {
			if !m.Matches(string(ls[model.LabelName(m.Name)])) {
				match = false
				break
			}
		}
		if match {
			out = append(out, ls)
		}
	}
	return out
}

// MetricNames implements promapi.API.
func (s *Store) MetricNames(ctx context.Context) []string {
	return s.LabelValues(ctx, model.MetricNameLabel, "", nil)
}

// Metadata implements promapi.API.
func (s *Store) Metadata(context.Context) map[string][]promapi.Metadata {
	return s.meta
}

// Flags implements promapi.API. A local store has no runtime flags.
func (s *Store) Flags(context.Context) map[string]string {
	return map[string]string{}
}

func sorted(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
