package temporal

import (
	"sort"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/core"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/series"
)

// ============================================================================
// STATE RECONSTRUCTION
// ============================================================================
// Turns sparse "state changed at t" events into one value per minute across a
// closed window. State carries forward between events, and the window opens
// with whatever state the history up to its start implies.
// ============================================================================

// Reconstruct produces the dense carry-forward series for w.
//
// Events should be sorted by T; unsorted input is stably sorted on a copy.
// Events sharing a timestamp resolve to the last one in input order. An
// inverted window yields an empty series.
func Reconstruct(events []series.EventPair, w series.Window) series.DenseSeries {
	if w.Inverted() {
		return series.DenseSeries{}
	}

	ordered := sortedEvents(events)
	n := w.Len()
	dense := make(series.DenseSeries, n)

	// baseline: last event at or before the window start
	state := 0.0
	k := 0
	for ; k < len(ordered) && ordered[k].T <= w.Start; k++ {
		state = ordered[k].State
	}

	for i := 0; i < n; i++ {
		tk := w.Start + int64(i)*core.MinuteMs
		for ; k < len(ordered) && ordered[k].T <= tk; k++ {
			state = ordered[k].State
		}
		dense[i] = series.Point{T: tk, V: state}
	}

	return dense
}

// Baseline returns the state in force at start: the state of the last event
// with T <= start, or 0 if there is none.
func Baseline(events []series.EventPair, start int64) float64 {
	state := 0.0
	for _, e := range sortedEvents(events) {
		if e.T > start {
			break
		}
		state = e.State
	}
	return state
}

// StateAt is the reconstructed value at a single instant.
func StateAt(events []series.EventPair, t int64) float64 {
	return Baseline(events, t)
}

func sortedEvents(events []series.EventPair) []series.EventPair {
	isSorted := sort.SliceIsSorted(events, func(i, j int) bool {
		return events[i].T < events[j].T
	})
	if isSorted {
		return events
	}

	ordered := make([]series.EventPair, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].T < ordered[j].T
	})
	return ordered
}
