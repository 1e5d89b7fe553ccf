// Package lttb implements Largest-Triangle-Three-Buckets downsampling.
//
// The reducer keeps a subsequence of the input's valid points: it never
// interpolates, never reorders and never reinserts missing samples.
package lttb

import (
	"math"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/series"
)

// Reduce returns at most threshold points of s chosen to preserve its visual shape.
//
// Samples with missing or non-finite values are removed first. If the
// remaining m points fit (m <= threshold) or threshold <= 0, they are
// returned unchanged. With keepEnds the first and last valid points are
// always part of the output. A threshold of 1 or 2 degrades to the first and
// last valid points in both modes.
func Reduce(s []series.Sample, threshold int, keepEnds bool) series.ReductionResult {
	return ReducePoints(Valid(s), threshold, keepEnds)
}

// ReduceRequest runs Reduce on a ReductionRequest.
func ReduceRequest(req series.ReductionRequest) series.ReductionResult {
	return Reduce(req.Series, req.Threshold, req.KeepEnds)
}

// ReducePoints is Reduce for input that is already known to be valid.
func ReducePoints(points []series.Point, threshold int, keepEnds bool) series.ReductionResult {
	m := len(points)
	if threshold <= 0 || m <= threshold {
		return series.ReductionResult{Series: points}
	}

	if threshold < 3 {
		return series.ReductionResult{Series: []series.Point{points[0], points[m-1]}}
	}
	if keepEnds {
		return series.ReductionResult{Series: withEnds(points, threshold)}
	}
	return series.ReductionResult{Series: withoutEnds(points, threshold)}
}

// Valid copies out the samples carrying finite values.
func Valid(s []series.Sample) []series.Point {
	out := make([]series.Point, 0, len(s))
	for _, sample := range s {
		if sample.Valid() {
			out = append(out, series.Point{T: sample.T, V: *sample.V})
		}
	}
	return out
}

// withEnds pins points[0] and points[m-1] and fills threshold-2 buckets
// over the interior. Requires m > threshold >= 3.
func withEnds(points []series.Point, threshold int) []series.Point {
	m := len(points)
	sampled := make([]series.Point, 0, threshold)
	bucketSize := float64(m-2) / float64(threshold-2)

	a := 0
	sampled = append(sampled, points[a])

	for i := 0; i < threshold-2; i++ {
		avgStart := int(math.Floor(float64(i+1)*bucketSize)) + 1
		avgEnd := min(int(math.Floor(float64(i+2)*bucketSize))+1, m)
		avgX, avgY := centroid(points, avgStart, avgEnd)

		rangeStart := int(math.Floor(float64(i)*bucketSize)) + 1
		rangeEnd := int(math.Floor(float64(i+1)*bucketSize)) + 1

		next := largestTriangle(points, a, rangeStart, rangeEnd, avgX, avgY)
		sampled = append(sampled, points[next])
		a = next
	}

	return append(sampled, points[m-1])
}

// withoutEnds spreads all threshold slots over the full range. The pivot for
// the first bucket is points[0] and the last bucket looks ahead to points[m-1].
// Requires m > threshold >= 3.
func withoutEnds(points []series.Point, threshold int) []series.Point {
	m := len(points)
	sampled := make([]series.Point, 0, threshold)
	bucketSize := float64(m) / float64(threshold)

	a := 0
	for i := 0; i < threshold; i++ {
		rangeStart := int(math.Floor(float64(i) * bucketSize))
		rangeEnd := min(int(math.Floor(float64(i+1)*bucketSize)), m)
		if i == threshold-1 {
			rangeEnd = m
		}

		avgStart := rangeEnd
		avgEnd := min(int(math.Floor(float64(i+2)*bucketSize)), m)
		var avgX, avgY float64
		if avgStart >= m {
			avgX, avgY = float64(points[m-1].T), points[m-1].V
		} else {
			avgX, avgY = centroid(points, avgStart, avgEnd)
		}

		next := largestTriangle(points, a, rangeStart, rangeEnd, avgX, avgY)
		sampled = append(sampled, points[next])
		a = next
	}

	return sampled
}

// centroid averages points[start:end]. An empty range averages over a
// denominator of 1, which yields the origin.
func centroid(points []series.Point, start, end int) (float64, float64) {
	var sumX, sumY float64
	for j := start; j < end; j++ {
		sumX += float64(points[j].T)
		sumY += points[j].V
	}
	n := max(end-start, 1)
	return sumX / float64(n), sumY / float64(n)
}

// largestTriangle picks the index in [start, end) whose triangle with pivot a
// and the centroid (avgX, avgY) has the largest area. Ties keep the earliest index.
func largestTriangle(points []series.Point, a, start, end int, avgX, avgY float64) int {
	ax, ay := float64(points[a].T), points[a].V

	best := start
	maxArea := -1.0
	for j := start; j < end; j++ {
		area := math.Abs((ax-avgX)*(points[j].V-ay) - (ax-float64(points[j].T))*(avgY-ay))
		if area > maxArea {
			maxArea = area
			best = j
		}
	}
	return best
}
