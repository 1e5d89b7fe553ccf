// Package contracts defines the request/response messages exchanged with the
// reduction engine. They are transport independent; JSON tags are the wire
// names used by the HTTP and websocket surfaces.
package contracts

import (
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/series"
)

// ReduceRequest asks for a bounded, shape-preserving subset of (X, Y).
// A nil Y entry is a missing sample.
type ReduceRequest struct {
	X         []int64    `json:"x"`
	Y         []*float64 `json:"y"`
	MaxPoints uint32     `json:"max_points"`
	KeepEnds  bool       `json:"keep_ends"`
}

// Samples pairs X and Y; unmatched trailing entries are ignored.
func (r ReduceRequest) Samples() []series.Sample {
	n := min(len(r.X), len(r.Y))
	out := make([]series.Sample, n)
	for i := 0; i < n; i++ {
		out[i] = series.Sample{T: r.X[i], V: r.Y[i]}
	}
	return out
}

// ReduceResponse carries the retained points.
type ReduceResponse struct {
	X []int64   `json:"x"`
	Y []float64 `json:"y"`
}

// Len returns the number of retained points
func (r ReduceResponse) Len() int {
	return len(r.X)
}

// Points re-pairs X and Y
func (r ReduceResponse) Points() []series.Point {
	out := make([]series.Point, len(r.X))
	for i := range r.X {
		out[i] = series.Point{T: r.X[i], V: r.Y[i]}
	}
	return out
}

// ReconstructRequest asks for the per-minute state across [WindowStart, WindowEnd].
type ReconstructRequest struct {
	EventsT     []int64   `json:"events_t"`
	EventsV     []float64 `json:"events_v"`
	WindowStart int64     `json:"window_start"`
	WindowEnd   int64     `json:"window_end"`
}

// Events pairs EventsT and EventsV; unmatched trailing entries are ignored.
func (r ReconstructRequest) Events() []series.EventPair {
	n := min(len(r.EventsT), len(r.EventsV))
	out := make([]series.EventPair, n)
	for i := 0; i < n; i++ {
		out[i] = series.EventPair{T: r.EventsT[i], State: r.EventsV[i]}
	}
	return out
}

// Window returns the requested window
func (r ReconstructRequest) Window() series.Window {
	return series.Window{Start: r.WindowStart, End: r.WindowEnd}
}

// ReconstructResponse carries the dense series and its active spans.
type ReconstructResponse struct {
	DenseT []int64             `json:"dense_t"`
	DenseV []float64           `json:"dense_v"`
	Spans  []series.ActiveSpan `json:"spans"`
}

// RawReduceRequest is a ReduceRequest whose tokens still need normalizing:
// timestamps may be epoch seconds, epoch milliseconds or date strings and
// values may be numbers, booleans, numeric strings or null.
type RawReduceRequest struct {
	X         []any  `json:"x"`
	Y         []any  `json:"y"`
	MaxPoints uint32 `json:"max_points"`
	KeepEnds  bool   `json:"keep_ends"`
}

// RawReconstructRequest is the unnormalized form of ReconstructRequest.
type RawReconstructRequest struct {
	EventsT     []any `json:"events_t"`
	EventsV     []any `json:"events_v"`
	WindowStart int64 `json:"window_start"`
	WindowEnd   int64 `json:"window_end"`
}

// Kind names the operation carried by an Envelope.
type Kind string

const (
	KindReduce      Kind = "reduce"
	KindReconstruct Kind = "reconstruct"
)

// Envelope is one queued request. Generation orders requests from a single
// consumer; the worker assigns one when it is left at zero.
type Envelope struct {
	Generation  uint64              `json:"generation"`
	Kind        Kind                `json:"kind"`
	Reduce      *ReduceRequest      `json:"reduce,omitempty"`
	Reconstruct *ReconstructRequest `json:"reconstruct,omitempty"`
}

// Reply is the answer to the Envelope with the same Generation.
type Reply struct {
	Generation  uint64               `json:"generation"`
	Kind        Kind                 `json:"kind"`
	Reduce      *ReduceResponse      `json:"reduce,omitempty"`
	Reconstruct *ReconstructResponse `json:"reconstruct,omitempty"`
	Error       string               `json:"error,omitempty"`
	ElapsedMs   float64              `json:"elapsed_ms"`
}
