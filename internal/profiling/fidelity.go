package profiling

import (
	"math"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/series"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
)

// FidelityReport compares a reduced series with the series it came from.
type FidelityReport struct {
	InputPoints  int     `json:"input_points"`
	OutputPoints int     `json:"output_points"`
	Ratio        float64 `json:"ratio"` // output / input

	PeakRetained   bool `json:"peak_retained"`
	TroughRetained bool `json:"trough_retained"`
	EndsRetained   bool `json:"ends_retained"`

	InputSummary  Summary `json:"input_summary"`
	OutputSummary Summary `json:"output_summary"`

	MeanDrift   float64 `json:"mean_drift"`   // |mean(out) - mean(in)|
	StdDevDrift float64 `json:"stddev_drift"` // |sd(out) - sd(in)|
	P95Drift    float64 `json:"p95_drift"`
}

// Summary holds the value statistics of one series
type Summary struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	P95    float64 `json:"p95"`
}

// FidelityAnalyzer builds fidelity reports
type FidelityAnalyzer struct{}

// NewFidelityAnalyzer creates a new fidelity analyzer
func NewFidelityAnalyzer() *FidelityAnalyzer {
	return &FidelityAnalyzer{}
}

// Compare reports how much of the input's shape survived in output. Both
// slices are expected to contain valid points only.
func (fa *FidelityAnalyzer) Compare(input, output []series.Point) (FidelityReport, error) {
	report := FidelityReport{
		InputPoints:  len(input),
		OutputPoints: len(output),
	}
	if len(input) == 0 {
		return report, nil
	}
	report.Ratio = float64(len(output)) / float64(len(input))
	if len(output) == 0 {
		return report, nil
	}

	_, inValues := series.SplitPoints(input)
	_, outValues := series.SplitPoints(output)

	var err error
	if report.InputSummary, err = summarize(inValues); err != nil {
		return report, err
	}
	if report.OutputSummary, err = summarize(outValues); err != nil {
		return report, err
	}

	report.PeakRetained = report.OutputSummary.Max == report.InputSummary.Max
	report.TroughRetained = report.OutputSummary.Min == report.InputSummary.Min
	report.EndsRetained = output[0] == input[0] && output[len(output)-1] == input[len(input)-1]

	report.MeanDrift = math.Abs(report.OutputSummary.Mean - report.InputSummary.Mean)
	report.StdDevDrift = math.Abs(report.OutputSummary.StdDev - report.InputSummary.StdDev)
	report.P95Drift = math.Abs(report.OutputSummary.P95 - report.InputSummary.P95)

	return report, nil
}

func summarize(values []float64) (Summary, error) {
	s := Summary{
		Min: floats.Min(values),
		Max: floats.Max(values),
	}

	mean, err := stats.Mean(values)
	if err != nil {
		return s, err
	}
	stdDev, err := stats.StandardDeviation(values)
	if err != nil {
		return s, err
	}
	p95, err := stats.Percentile(values, 95)
	if err != nil {
		return s, err
	}

	s.Mean = mean
	s.StdDev = stdDev
	s.P95 = p95
	return s, nil
}

// DutyCycle is the fraction of minutes in dense with a positive state.
func DutyCycle(dense series.DenseSeries) float64 {
	if len(dense) == 0 {
		return 0
	}
	_, states := dense.Split()
	active := make([]float64, len(states))
	for i, v := range states {
		if v > 0 {
			active[i] = 1
		}
	}
	return floats.Sum(active) / float64(len(active))
}
