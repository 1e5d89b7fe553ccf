// Package series holds the value types passed between the normalizer, the
// reducer and the reconstructor. Everything here is transient and owned by
// the caller.
package series

import (
	"math"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/core"
)

// Sample is one raw observation. A nil V marks a missing value.
type Sample struct {
	T int64
	V *float64
}

// NewSample builds a present sample
func NewSample(t int64, v float64) Sample {
	return Sample{T: t, V: &v}
}

// MissingSample builds a sample without a value
func MissingSample(t int64) Sample {
	return Sample{T: t}
}

// Valid reports whether the sample carries a finite value.
func (s Sample) Valid() bool {
	return s.V != nil && !math.IsNaN(*s.V) && !math.IsInf(*s.V, 0)
}

// Point is a canonical (timestamp, value) pair.
type Point struct {
	T int64   `json:"t"`
	V float64 `json:"v"`
}

// ReductionRequest asks for at most Threshold points of Series.
type ReductionRequest struct {
	Series    []Sample
	Threshold int
	KeepEnds  bool
}

// ReductionResult is always a subsequence of the request's valid points.
type ReductionResult struct {
	Series []Point
}

// Len returns the number of retained points
func (r ReductionResult) Len() int {
	return len(r.Series)
}

// Split returns the timestamps and values as parallel slices.
func (r ReductionResult) Split() ([]int64, []float64) {
	return SplitPoints(r.Series)
}

// EventPair means "state changed to State at T".
type EventPair struct {
	T     int64
	State float64
}

// Window is a closed reconstruction interval on the minute grid.
type Window struct {
	Start int64
	End   int64
}

// Inverted reports start > end
func (w Window) Inverted() bool {
	return w.Start > w.End
}

// Len is the number of minute boundaries covered by the window, saturating
// at math.MaxInt.
func (w Window) Len() int {
	if w.Inverted() {
		return 0
	}
	minutes := core.MinutesBetween(w.Start, w.End)
	if uint64(minutes) >= uint64(math.MaxInt) {
		return math.MaxInt
	}
	return int(minutes) + 1
}

// DenseSeries is one point per minute across a Window.
type DenseSeries []Point

// Split returns the timestamps and states as parallel slices.
func (d DenseSeries) Split() ([]int64, []float64) {
	return SplitPoints(d)
}

// ActiveSpan is the half-open interval [X1, X2) on the minute grid.
type ActiveSpan struct {
	X1 int64 `json:"x1"`
	X2 int64 `json:"x2"`
}

// Contains reports whether t falls inside the span.
func (s ActiveSpan) Contains(t int64) bool {
	return t >= s.X1 && t < s.X2
}

// Minutes is the number of grid minutes covered.
func (s ActiveSpan) Minutes() int64 {
	return core.MinutesBetween(s.X1, s.X2)
}

// SplitPoints separates points into parallel slices.
func SplitPoints(points []Point) ([]int64, []float64) {
	ts := make([]int64, len(points))
	vs := make([]float64, len(points))
	for i, p := range points {
		ts[i] = p.T
		vs[i] = p.V
	}
	return ts, vs
}
