package app

import (
	"time"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/adapters/datareadiness/coercer"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/adapters/stats/lttb"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/adapters/stats/temporal"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/contracts"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/core"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/series"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/config"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/profiling"
)

// EngineService answers the reduce and reconstruct contracts. It holds only
// configuration, so one instance may serve any number of goroutines.
type EngineService struct {
	cfg      config.EngineConfig
	coercer  *coercer.TypeCoercer
	fidelity *profiling.FidelityAnalyzer
	logger   *internal.Logger
}

// NewEngineService creates an engine service
func NewEngineService(cfg config.EngineConfig, logger *internal.Logger) *EngineService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &EngineService{
		cfg:      cfg,
		coercer:  coercer.NewTypeCoercer(coercer.DefaultCoercionConfig()),
		fidelity: profiling.NewFidelityAnalyzer(),
		logger:   logger.With("Engine"),
	}
}

// Threshold resolves a requested max_points against the configured floor
// and default.
func (s *EngineService) Threshold(maxPoints uint32) int {
	if maxPoints == 0 {
		return s.cfg.DefaultMaxPoints
	}
	return max(int(maxPoints), s.cfg.MinMaxPoints)
}

// Reduce implements ports.EnginePort
func (s *EngineService) Reduce(req contracts.ReduceRequest) contracts.ReduceResponse {
	return s.reduceSamples(req.Samples(), req.MaxPoints, req.KeepEnds)
}

// ReduceRaw normalizes heterogeneous tokens, dropping nulls, before reducing.
func (s *EngineService) ReduceRaw(req contracts.RawReduceRequest) contracts.ReduceResponse {
	return s.Reduce(s.NormalizeReduce(req))
}

// NormalizeReduce converts raw tokens into a typed request with epoch
// millisecond timestamps in ascending order.
func (s *EngineService) NormalizeReduce(req contracts.RawReduceRequest) contracts.ReduceRequest {
	samples, report := s.coercer.Normalize(req.X, req.Y, coercer.DropNulls)
	s.logNormalize("reduce", report)

	out := contracts.ReduceRequest{
		X:         make([]int64, len(samples)),
		Y:         make([]*float64, len(samples)),
		MaxPoints: req.MaxPoints,
		KeepEnds:  req.KeepEnds,
	}
	for i, sample := range samples {
		out.X[i], out.Y[i] = sample.T, sample.V
	}
	return out
}

func (s *EngineService) reduceSamples(samples []series.Sample, maxPoints uint32, keepEnds bool) contracts.ReduceResponse {
	start := time.Now()
	threshold := s.Threshold(maxPoints)

	result := lttb.ReduceRequest(series.ReductionRequest{
		Series:    samples,
		Threshold: threshold,
		KeepEnds:  keepEnds,
	})
	x, y := result.Split()
	valid := lttb.Valid(samples)

	for _, cond := range DiagnoseReduce(len(valid), int(maxPoints), threshold) {
		s.logger.Debug("%v", cond)
	}
	if s.logger.Enabled(internal.LogLevelDebug) {
		if report, err := s.fidelity.Compare(valid, result.Series); err == nil {
			s.logger.Debug("reduced %d -> %d points in %v (peak kept=%v, trough kept=%v, mean drift=%.4g)",
				report.InputPoints, report.OutputPoints, time.Since(start),
				report.PeakRetained, report.TroughRetained, report.MeanDrift)
		}
	}

	return contracts.ReduceResponse{X: x, Y: y}
}

// Reconstruct implements ports.EnginePort
func (s *EngineService) Reconstruct(req contracts.ReconstructRequest) contracts.ReconstructResponse {
	return s.reconstructEvents(req.Events(), req.Window())
}

// ReconstructRaw normalizes event tokens, reading missing states as 0.
func (s *EngineService) ReconstructRaw(req contracts.RawReconstructRequest) contracts.ReconstructResponse {
	return s.Reconstruct(s.NormalizeReconstruct(req))
}

// NormalizeReconstruct converts raw event tokens into a typed request.
func (s *EngineService) NormalizeReconstruct(req contracts.RawReconstructRequest) contracts.ReconstructRequest {
	events, report := s.coercer.NormalizeEvents(req.EventsT, req.EventsV)
	s.logNormalize("reconstruct", report)

	out := contracts.ReconstructRequest{
		EventsT:     make([]int64, len(events)),
		EventsV:     make([]float64, len(events)),
		WindowStart: req.WindowStart,
		WindowEnd:   req.WindowEnd,
	}
	for i, e := range events {
		out.EventsT[i], out.EventsV[i] = e.T, e.State
	}
	return out
}

func (s *EngineService) reconstructEvents(events []series.EventPair, w series.Window) contracts.ReconstructResponse {
	if w.Inverted() {
		s.logger.Debug("%v", core.NewWindowError(w.Start, w.End))
		return contracts.ReconstructResponse{
			DenseT: []int64{},
			DenseV: []float64{},
			Spans:  []series.ActiveSpan{},
		}
	}

	w = s.ClampWindow(w)
	dense := temporal.Reconstruct(events, w)
	spans := temporal.ExtractSpans(dense)
	t, v := dense.Split()

	s.logger.Trace("reconstructed %d minutes from %d events, %d spans, duty cycle %.3f",
		len(dense), len(events), len(spans), profiling.DutyCycle(dense))

	return contracts.ReconstructResponse{DenseT: t, DenseV: v, Spans: spans}
}

// ClampWindow truncates windows longer than the configured maximum, keeping
// the start.
func (s *EngineService) ClampWindow(w series.Window) series.Window {
	limit := s.cfg.MaxWindowMinutes
	if limit <= 0 || core.MinutesBetween(w.Start, w.End) < limit {
		return w
	}
	clamped := series.Window{Start: w.Start, End: w.Start + (limit-1)*core.MinuteMs}
	s.logger.Warn("%v: %d minutes requested, truncated to %d",
		core.ErrWindowTooLarge, core.MinutesBetween(w.Start, w.End)+1, limit)
	return clamped
}

// Fidelity compares a response against the request it answered.
func (s *EngineService) Fidelity(req contracts.ReduceRequest, resp contracts.ReduceResponse) (profiling.FidelityReport, error) {
	return s.fidelity.Compare(lttb.Valid(req.Samples()), resp.Points())
}

func (s *EngineService) logNormalize(kind string, report coercer.Report) {
	if report.InvalidTimestamps == 0 && report.MissingValues == 0 {
		return
	}
	s.logger.Debug("%s: normalized %d of %d entries (%d bad timestamps, %d missing values)",
		kind, report.Kept, report.Total, report.InvalidTimestamps, report.MissingValues)
	for _, issue := range report.Issues {
		s.logger.Trace("%s: %v", kind, issue)
	}
}

// DiagnoseReduce lists the degrade-gracefully conditions that applied to a
// reduce request with the given number of valid points.
func DiagnoseReduce(valid, requested, threshold int) []error {
	var conds []error
	if valid == 0 {
		conds = append(conds, core.ErrEmptyInput)
	}
	if requested > 0 && requested < threshold {
		conds = append(conds, core.NewThresholdError(requested, valid))
	}
	return conds
}
