// Package promapi implements a client for the Prometheus HTTP metadata API
// (labels, label values, series, metric metadata, runtime flags).
//
// Every public operation degrades to a typed empty result on failure: the
// configured error callback is notified once and the caller gets an empty
// list or map back, never an error. An interactive editor stays usable when
// the backend is down; failures are only observable through the callback.
package promapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/common/model"
	"github.com/prometheus/prometheus/model/labels"
)

const (
	// DefaultLookback is the time span before "now" used to scope metadata
	// queries when the config does not set one.
	DefaultLookback = 12 * time.Hour

	// DefaultPrefix is the standard Prometheus API path prefix.
	DefaultPrefix = "/api/v1"
)

// Doer issues a single HTTP request. *http.Client satisfies it; tests
// substitute fakes.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Metadata is one metadata record for a metric, as returned by the
// /metadata endpoint.
type Metadata struct {
	Type model.MetricType `json:"type"`
	Help string           `json:"help"`
	Unit string           `json:"unit"`
}

// API is the capability surface of a metadata source. The HTTP-backed Client
// and the in-memory metastore.Store both satisfy it, with the same
// degrade-to-empty failure semantics.
type API interface {
	// LabelNames returns the label names seen within the lookback window.
	// With a metric name it is derived from Series, excluding __name__.
	LabelNames(ctx context.Context, metricName string) []string
	// LabelValues returns the values of labelName, optionally scoped to a
	// metric and extra matchers (scoping goes through Series).
	LabelValues(ctx context.Context, labelName, metricName string, matchers []*labels.Matcher) []string
	// Series returns the label sets matching the selector built from
	// metricName, matchers and, when non-empty, a labelName!="" constraint.
	Series(ctx context.Context, metricName string, matchers []*labels.Matcher, labelName string) []model.LabelSet
	// MetricNames returns all metric names, i.e. the values of __name__.
	MetricNames(ctx context.Context) []string
	// Metadata returns metric metadata keyed by metric name.
	Metadata(ctx context.Context) map[string][]Metadata
	// Flags returns the runtime flags of the server.
	Flags(ctx context.Context) map[string]string
}

// Config holds the immutable part of a Client's configuration.
type Config struct {
	// Address is the base URL of the server, e.g. http://localhost:9090.
	Address string
	// Lookback bounds the metadata time window; defaults to DefaultLookback.
	Lookback time.Duration
	// Method is http.MethodGet or http.MethodPost (the default). GET
	// serializes parameters into the query string, POST form-encodes them
	// into the body. The label values, metadata and flags endpoints are
	// served by the API via GET only and ignore this setting.
	Method string
	// Prefix is the API path prefix; defaults to DefaultPrefix.
	Prefix string
	// Client is the transport; defaults to http.DefaultClient.
	Client Doer
	// OnError, when set, receives every failure a public operation swallows.
	OnError func(error)
}

// Client implements API against a remote Prometheus-compatible server.
type Client struct {
	cfg     Config
	headers http.Header
	now     func() time.Time
}

var _ API = (*Client)(nil)

// NewClient returns a Client with config defaults applied.
func NewClient(cfg Config) *Client {
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultLookback
	}
	if cfg.Method == "" {
		cfg.Method = http.MethodPost
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}
	if cfg.Client == nil {
		cfg.Client = http.DefaultClient
	}
	return &Client{cfg: cfg, headers: make(http.Header), now: time.Now}
}

// SetHeader sets a header sent with every subsequent request. Headers are
// read at dispatch time with no per-request snapshot: mutating one while a
// request is in flight does not affect that request, only later ones. The
// client assumes a single logical caller; concurrent mutation is not
// synchronized.
func (c *Client) SetHeader(name, value string) {
	c.headers.Set(name, value)
}

// RemoveHeader removes a previously set header.
func (c *Client) RemoveHeader(name string) {
	c.headers.Del(name)
}

// apiResponse is the envelope every endpoint wraps its payload in.
type apiResponse struct {
	Status   string          `json:"status"`
	Data     json.RawMessage `json:"data,omitempty"`
	Error    string          `json:"error,omitempty"`
	Warnings []string        `json:"warnings,omitempty"`
}

// Non-2xx statuses that may still carry a meaningful JSON error body.
var toleratedStatus = map[int]bool{
	http.StatusBadRequest:          true,
	http.StatusUnprocessableEntity: true,
	http.StatusServiceUnavailable:  true,
}

// fetch issues one request with the given method and unwraps the response
// envelope. GET-only endpoints pass http.MethodGet explicitly; the rest pass
// the configured method.
func (c *Client) fetch(ctx context.Context, method, endpoint string, params url.Values) (json.RawMessage, error) {
	u := strings.TrimRight(c.cfg.Address, "/") + c.cfg.Prefix + endpoint
	var (
		req *http.Request
		err error
	)
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.URL.RawQuery = params.Encode()
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(params.Encode()))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for name, vals := range c.headers {
		for _, v := range vals {
			req.Header.Add(name, v)
		}
	}

	resp, err := c.cfg.Client.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok && !toleratedStatus[resp.StatusCode] {
		return nil, &TransportError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var env apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &TransportError{Err: fmt.Errorf("decoding response from %s: %w", endpoint, err)}
	}
	if env.Status == "error" {
		msg := env.Error
		if msg == "" {
			msg = `missing "error" field in response JSON`
		}
		return nil, &APIError{Message: msg}
	}
	if env.Data == nil {
		return nil, ErrMissingData
	}
	return env.Data, nil
}

// fetchInto fetches and decodes the envelope's data field into out.
func (c *Client) fetchInto(ctx context.Context, method, endpoint string, params url.Values, out any) error {
	data, err := c.fetch(ctx, method, endpoint, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s data: %w", endpoint, err)
	}
	return nil
}

// window recomputes the lookback window from the wall clock at call time.
func (c *Client) window() url.Values {
	end := c.now()
	v := url.Values{}
	v.Set("start", end.Add(-c.cfg.Lookback).UTC().Format(time.RFC3339))
	v.Set("end", end.UTC().Format(time.RFC3339))
	return v
}

func (c *Client) report(err error) {
	if c.cfg.OnError != nil {
		c.cfg.OnError(err)
	}
}

// LabelNames implements API.
func (c *Client) LabelNames(ctx context.Context, metricName string) []string {
	if metricName == "" {
		var names []string
		if err := c.fetchInto(ctx, c.cfg.Method, "/labels", c.window(), &names); err != nil {
			c.report(err)
			return []string{}
		}
		return names
	}
	// Series already reports its own failures and yields an empty slice.
	names := make(map[string]struct{})
	for _, rec := range c.Series(ctx, metricName, nil, "") {
		for name := range rec {
			if name != model.MetricNameLabel {
				names[string(name)] = struct{}{}
			}
		}
	}
	return sortedKeys(names)
}

// LabelValues implements API.
func (c *Client) LabelValues(ctx context.Context, labelName, metricName string, matchers []*labels.Matcher) []string {
	if metricName == "" {
		// The values endpoint is GET-only; parameters always travel in the
		// query string no matter how the client is configured.
		var values []string
		endpoint := "/label/" + url.PathEscape(labelName) + "/values"
		if err := c.fetchInto(ctx, http.MethodGet, endpoint, c.window(), &values); err != nil {
			c.report(err)
			return []string{}
		}
		return values
	}
	values := make(map[string]struct{})
	for _, rec := range c.Series(ctx, metricName, matchers, labelName) {
		for name, value := range rec {
			if name == model.MetricNameLabel {
				continue
			}
			if string(name) == labelName {
				values[string(value)] = struct{}{}
			}
		}
	}
	return sortedKeys(values)
}

// Series implements API.
func (c *Client) Series(ctx context.Context, metricName string, matchers []*labels.Matcher, labelName string) []model.LabelSet {
	params := c.window()
	params.Set("match[]", seriesSelector(metricName, matchers, labelName))
	var series []model.LabelSet
	if err := c.fetchInto(ctx, c.cfg.Method, "/series", params, &series); err != nil {
		c.report(err)
		return []model.LabelSet{}
	}
	return series
}

// MetricNames implements API.
func (c *Client) MetricNames(ctx context.Context) []string {
	return c.LabelValues(ctx, model.MetricNameLabel, "", nil)
}

// Metadata implements API.
func (c *Client) Metadata(ctx context.Context) map[string][]Metadata {
	var md map[string][]Metadata
	if err := c.fetchInto(ctx, http.MethodGet, "/metadata", url.Values{}, &md); err != nil {
		c.report(err)
		return map[string][]Metadata{}
	}
	return md
}

// Flags implements API.
func (c *Client) Flags(ctx context.Context) map[string]string {
	var flags map[string]string
	if err := c.fetchInto(ctx, http.MethodGet, "/status/flags", url.Values{}, &flags); err != nil {
		c.report(err)
		return map[string]string{}
	}
	return flags
}

// seriesSelector builds the match[] selector string for a series query.
// labelName, when non-empty, is added as an existence constraint so the
// result only contains series that actually carry that label.
func seriesSelector(metricName string, matchers []*labels.Matcher, labelName string) string {
	parts := make([]string, 0, len(matchers)+1)
	for _, m := range matchers {
		parts = append(parts, m.String())
	}
	if labelName != "" {
		parts = append(parts, labelName+`!=""`)
	}
	if len(parts) == 0 {
		return metricName
	}
	return metricName + "{" + strings.Join(parts, ",") + "}"
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
