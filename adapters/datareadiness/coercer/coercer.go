package coercer

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/core"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/series"
)

// NullPolicy selects what happens to a sample whose value is missing.
type NullPolicy int

const (
	// DropNulls removes the sample entirely (reducer path).
	DropNulls NullPolicy = iota
	// ZeroNulls keeps the sample with a value of 0 (reconstructor path).
	ZeroNulls
)

func (p NullPolicy) String() string {
	switch p {
	case DropNulls:
		return "drop"
	case ZeroNulls:
		return "zero"
	default:
		return fmt.Sprintf("NullPolicy(%d)", int(p))
	}
}

// TypeCoercer turns heterogeneous timestamp and value tokens into canonical samples
type TypeCoercer struct {
	config CoercionConfig
}

// CoercionConfig defines the coercion rules
type CoercionConfig struct {
	SecondsCutoff    float64  `json:"seconds_cutoff"`    // numeric timestamps at or below this are epoch seconds
	TimestampFormats []string `json:"timestamp_formats"` // layouts tried for non-numeric timestamps, in order
	MaxIssues        int      `json:"max_issues"`        // cap on recorded drop reasons per call
}

// DefaultCoercionConfig returns sensible defaults
func DefaultCoercionConfig() CoercionConfig {
	return CoercionConfig{
		SecondsCutoff: core.SecondsCutoff,
		TimestampFormats: []string{
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02T15:04:05.000",
			"2006-01-02T15:04:05",
			"2006-01-02 15:04:05",
			"2006-01-02 15:04",
			"2006-01-02",
			"2006/01/02 15:04:05",
			"2006/01/02",
		},
		MaxIssues: 32,
	}
}

// NewTypeCoercer creates a coercer with the given config
func NewTypeCoercer(config CoercionConfig) *TypeCoercer {
	if config.SecondsCutoff <= 0 {
		config.SecondsCutoff = core.SecondsCutoff
	}
	if len(config.TimestampFormats) == 0 {
		config.TimestampFormats = DefaultCoercionConfig().TimestampFormats
	}
	return &TypeCoercer{config: config}
}

// Report describes what normalization dropped.
type Report struct {
	Total             int     `json:"total"`
	Kept              int     `json:"kept"`
	InvalidTimestamps int     `json:"invalid_timestamps"`
	MissingValues     int     `json:"missing_values"`
	Issues            []error `json:"-"`
}

func (r *Report) record(limit int, err error) {
	if len(r.Issues) < limit {
		r.Issues = append(r.Issues, err)
	}
}

// Normalize pairs timestamp and value tokens, drops entries whose timestamp
// cannot be parsed, applies the null policy and returns the samples stably
// sorted by timestamp. Lists of unequal length are truncated to the shorter.
func (c *TypeCoercer) Normalize(timestamps, values []any, policy NullPolicy) ([]series.Sample, Report) {
	n := min(len(timestamps), len(values))
	report := Report{Total: n}
	out := make([]series.Sample, 0, n)

	for i := 0; i < n; i++ {
		t, ok := c.CoerceTimestamp(timestamps[i])
		if !ok {
			report.InvalidTimestamps++
			report.record(c.config.MaxIssues, core.NewInvalidTimestampError(i, timestamps[i]))
			continue
		}

		v, ok := c.CoerceValue(values[i])
		if !ok {
			report.MissingValues++
			if policy == DropNulls {
				continue
			}
			v = 0
		}
		out = append(out, series.NewSample(t, v))
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].T < out[j].T
	})

	report.Kept = len(out)
	return out, report
}

// NormalizeEvents is Normalize on the reconstructor path: missing states read as 0.
func (c *TypeCoercer) NormalizeEvents(timestamps, values []any) ([]series.EventPair, Report) {
	samples, report := c.Normalize(timestamps, values, ZeroNulls)
	events := make([]series.EventPair, len(samples))
	for i, s := range samples {
		events[i] = series.EventPair{T: s.T, State: *s.V}
	}
	return events, report
}

// CoerceTimestamp converts a raw token to epoch milliseconds.
func (c *TypeCoercer) CoerceTimestamp(raw any) (int64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case time.Time:
		if v.IsZero() {
			return 0, false
		}
		return v.UnixMilli(), true
	case core.Millis:
		return v.Int64(), true
	case string:
		return c.parseTimestampString(v)
	case json.Number:
		return c.parseTimestampString(v.String())
	}

	if f, ok := toFloat(raw); ok {
		return c.numericTimestamp(f)
	}
	return 0, false
}

func (c *TypeCoercer) numericTimestamp(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if math.Abs(f) > c.config.SecondsCutoff {
		return int64(math.Round(f)), true
	}
	return int64(math.Round(f * 1000)), true
}

func (c *TypeCoercer) parseTimestampString(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return c.numericTimestamp(f)
	}

	for _, layout := range c.config.TimestampFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UnixMilli(), true
		}
	}
	return 0, false
}

// CoerceValue converts a raw token to a finite float. Booleans map to 1 and 0;
// nil, empty, "null" and anything non-numeric report false.
func (c *TypeCoercer) CoerceValue(raw any) (float64, bool) {
	switch v := raw.(type) {
	case nil:
		return 0, false
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	case *float64:
		if v == nil {
			return 0, false
		}
		return finite(*v)
	case string:
		return c.parseValueString(v)
	case json.Number:
		return c.parseValueString(v.String())
	}

	if f, ok := toFloat(raw); ok {
		return finite(f)
	}
	return 0, false
}

func (c *TypeCoercer) parseValueString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "", "null", "nan", "none", "undefined":
		return 0, false
	case "true", "on":
		return 1, true
	case "false", "off":
		return 0, true
	}

	s = strings.ReplaceAll(s, " ", "")
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return finite(f)
	}
	return 0, false
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// toFloat widens the built-in numeric kinds
func toFloat(val any) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
