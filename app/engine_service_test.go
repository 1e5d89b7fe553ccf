package app

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/adapters/stats/temporal"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/contracts"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/core"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/series"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/config"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/testkit"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.EnginePort = (*EngineService)(nil)
var _ ports.RawEnginePort = (*EngineService)(nil)

func newTestService(t *testing.T) (*EngineService, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logger := internal.NewLoggerTo(internal.LogLevelTrace, &buf)
	return NewEngineService(config.Default().Engine, logger), &buf
}

func f(v float64) *float64 { return &v }

func sineRequest(n int, maxPoints uint32) contracts.ReduceRequest {
	req := contracts.ReduceRequest{MaxPoints: maxPoints, KeepEnds: true}
	for i := 0; i < n; i++ {
		req.X = append(req.X, int64(i)*core.MinuteMs)
		req.Y = append(req.Y, f(math.Sin(float64(i)/40)))
	}
	return req
}

func TestReduce_Contract(t *testing.T) {
	svc, logs := newTestService(t)
	req := sineRequest(100_000, 500)

	resp := svc.Reduce(req)

	require.Equal(t, 500, resp.Len())
	require.Len(t, resp.Y, 500)
	assert.Equal(t, req.X[0], resp.X[0])
	assert.Equal(t, req.X[len(req.X)-1], resp.X[499])
	assert.Contains(t, logs.String(), "reduced 100000 -> 500 points")

	report, err := svc.Fidelity(req, resp)
	require.NoError(t, err)
	assert.True(t, report.EndsRetained)
	assert.InDelta(t, 1.0, report.OutputSummary.Max, 0.02)
	assert.InDelta(t, -1.0, report.OutputSummary.Min, 0.02)
}

func TestReduce_ClampsMaxPointsToFloor(t *testing.T) {
	svc, logs := newTestService(t)

	resp := svc.Reduce(sineRequest(1000, 2))

	assert.Equal(t, 8, resp.Len())
	assert.Contains(t, logs.String(), core.ErrThresholdTooSmall.Error())
}

func TestReduce_DefaultMaxPoints(t *testing.T) {
	svc, _ := newTestService(t)
	resp := svc.Reduce(sineRequest(2000, 0))
	assert.Equal(t, config.Default().Engine.DefaultMaxPoints, resp.Len())
}

func TestReduce_NullsDroppedAndSmallInputKept(t *testing.T) {
	svc, _ := newTestService(t)

	resp := svc.Reduce(contracts.ReduceRequest{
		X:         []int64{0, 1, 2, 3, 4},
		Y:         []*float64{f(1), nil, f(3), nil, f(5)},
		MaxPoints: 10,
		KeepEnds:  true,
	})

	assert.Equal(t, []int64{0, 2, 4}, resp.X)
	assert.Equal(t, []float64{1, 3, 5}, resp.Y)
}

func TestReduce_EmptyRequest(t *testing.T) {
	svc, logs := newTestService(t)

	resp := svc.Reduce(contracts.ReduceRequest{MaxPoints: 100})

	assert.NotNil(t, resp.X)
	assert.NotNil(t, resp.Y)
	assert.Zero(t, resp.Len())
	assert.Contains(t, logs.String(), core.ErrEmptyInput.Error())
}

func TestReduceRaw_NormalizesTokens(t *testing.T) {
	svc, logs := newTestService(t)

	resp := svc.ReduceRaw(contracts.RawReduceRequest{
		X:         []any{"1970-01-01T00:02:00Z", 60, "bogus", 0},
		Y:         []any{"4.5", true, 9.0, nil},
		MaxPoints: 50,
	})

	assert.Equal(t, []int64{60_000, 120_000}, resp.X)
	assert.Equal(t, []float64{1, 4.5}, resp.Y)
	assert.Contains(t, logs.String(), "1 bad timestamps, 1 missing values")
}

func TestReconstruct_Contract(t *testing.T) {
	svc, _ := newTestService(t)

	resp := svc.Reconstruct(contracts.ReconstructRequest{
		EventsT:     []int64{0, 600_000, 1_800_000},
		EventsV:     []float64{0, 1, 0},
		WindowStart: 0,
		WindowEnd:   3_600_000,
	})

	require.Len(t, resp.DenseT, 61)
	require.Len(t, resp.DenseV, 61)
	for i, v := range resp.DenseV {
		if i >= 10 && i <= 29 {
			assert.Equal(t, 1.0, v)
		} else {
			assert.Equal(t, 0.0, v)
		}
	}
	assert.Equal(t, []series.ActiveSpan{{X1: 600_000, X2: 1_800_000}}, resp.Spans)
}

func TestReconstruct_EmptyEvents(t *testing.T) {
	svc, _ := newTestService(t)

	resp := svc.Reconstruct(contracts.ReconstructRequest{WindowStart: 0, WindowEnd: 120_000})

	assert.Equal(t, []int64{0, 60_000, 120_000}, resp.DenseT)
	assert.Equal(t, []float64{0, 0, 0}, resp.DenseV)
	assert.NotNil(t, resp.Spans)
	assert.Empty(t, resp.Spans)
}

func TestReconstruct_InvertedWindow(t *testing.T) {
	svc, logs := newTestService(t)

	resp := svc.Reconstruct(contracts.ReconstructRequest{WindowStart: 10, WindowEnd: 0})

	assert.Empty(t, resp.DenseT)
	assert.NotNil(t, resp.DenseT)
	assert.NotNil(t, resp.Spans)
	assert.Contains(t, logs.String(), core.ErrInvalidWindow.Error())
}

func TestReconstruct_WindowClamped(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default().Engine
	cfg.MaxWindowMinutes = 10
	svc := NewEngineService(cfg, internal.NewLoggerTo(internal.LogLevelWarn, &buf))

	resp := svc.Reconstruct(contracts.ReconstructRequest{
		EventsT: []int64{0}, EventsV: []float64{1},
		WindowStart: 0, WindowEnd: 60 * core.MinuteMs,
	})

	assert.Len(t, resp.DenseT, 10)
	assert.Equal(t, []series.ActiveSpan{{X1: 0, X2: 10 * core.MinuteMs}}, resp.Spans)
	assert.Contains(t, buf.String(), "[WARN] [Engine]")
}

func TestReconstructRaw_ZeroFillsMissingStates(t *testing.T) {
	svc, _ := newTestService(t)

	resp := svc.ReconstructRaw(contracts.RawReconstructRequest{
		EventsT:     []any{"1970-01-01T00:01:00Z", 180},
		EventsV:     []any{"on", nil},
		WindowStart: 0,
		WindowEnd:   4 * core.MinuteMs,
	})

	assert.Equal(t, []float64{0, 1, 1, 0, 0}, resp.DenseV)
	assert.Equal(t, []series.ActiveSpan{{X1: 60_000, X2: 180_000}}, resp.Spans)
}

func TestThreshold(t *testing.T) {
	svc, _ := newTestService(t)
	assert.Equal(t, 500, svc.Threshold(0))
	assert.Equal(t, 8, svc.Threshold(1))
	assert.Equal(t, 8, svc.Threshold(8))
	assert.Equal(t, 1000, svc.Threshold(1000))
}

func TestDiagnoseReduce(t *testing.T) {
	conds := DiagnoseReduce(0, 2, 8)
	require.Len(t, conds, 2)
	assert.True(t, errors.Is(conds[0], core.ErrEmptyInput))
	assert.True(t, errors.Is(conds[1], core.ErrThresholdTooSmall))

	assert.Empty(t, DiagnoseReduce(100, 50, 50))
}

func TestEngine_SyntheticWeek(t *testing.T) {
	svc, _ := newTestService(t)
	gen := testkit.NewTelemetryGenerator(testkit.DefaultTelemetryConfig())

	req := gen.GenerateSeries(500)
	resp := svc.Reduce(req)
	require.Len(t, resp.X, 500)

	first, last := -1, -1
	for i := range req.Y {
		if req.Y[i] != nil {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	assert.Equal(t, req.X[first], resp.X[0])
	assert.Equal(t, req.X[last], resp.X[len(resp.X)-1])
	for i := 1; i < len(resp.X); i++ {
		require.Less(t, resp.X[i-1], resp.X[i])
	}

	pump := svc.Reconstruct(gen.GeneratePumpEvents())
	require.Len(t, pump.DenseT, 7*24*60)
	assert.NotEmpty(t, pump.Spans)
	assert.LessOrEqual(t, len(pump.Spans), testkit.DefaultTelemetryConfig().PumpCycles)

	var on int64
	for _, v := range pump.DenseV {
		if v > 0 {
			on++
		}
	}
	assert.Equal(t, on, temporal.ActiveMinutes(pump.Spans))
}

func TestReconstruct_WideWindowIsClampedNotOverflowed(t *testing.T) {
	svc, _ := newTestService(t)

	resp := svc.Reconstruct(contracts.ReconstructRequest{
		EventsT:     []int64{0},
		EventsV:     []float64{1},
		WindowStart: -5e18,
		WindowEnd:   5e18,
	})
	require.Len(t, resp.DenseT, int(config.Default().Engine.MaxWindowMinutes))
	assert.Len(t, resp.DenseV, len(resp.DenseT))
	for i := 1; i < len(resp.DenseT); i++ {
		require.Equal(t, core.MinuteMs, resp.DenseT[i]-resp.DenseT[i-1])
	}
	assert.Empty(t, resp.Spans)
}
