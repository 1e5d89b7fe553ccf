package temporal

import (
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/core"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/series"
)

// ExtractSpans returns the maximal runs of strictly positive minutes in dense
// as half-open [X1, X2) intervals, where X2 is one minute past the last
// active minute of the run. The result is never nil.
func ExtractSpans(dense series.DenseSeries) []series.ActiveSpan {
	spans := make([]series.ActiveSpan, 0)

	open := false
	var x1, last int64
	for _, p := range dense {
		if p.V > 0 {
			if !open {
				open = true
				x1 = p.T
			}
			last = p.T
			continue
		}
		if open {
			spans = append(spans, series.ActiveSpan{X1: x1, X2: last + core.MinuteMs})
			open = false
		}
	}

	if open {
		spans = append(spans, series.ActiveSpan{X1: x1, X2: last + core.MinuteMs})
	}
	return spans
}

// ActiveMinutes sums the minutes covered by spans.
func ActiveMinutes(spans []series.ActiveSpan) int64 {
	var total int64
	for _, s := range spans {
		total += s.Minutes()
	}
	return total
}
