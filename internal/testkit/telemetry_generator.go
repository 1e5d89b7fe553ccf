package testkit

import (
	"encoding/csv"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/contracts"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/core"
)

// TelemetryGeneratorConfig configures the synthetic instrument data generator
type TelemetryGeneratorConfig struct {
	SampleCount int           `json:"sample_count"`
	Cadence     time.Duration `json:"cadence"`
	StartDate   time.Time     `json:"start_date"`
	Seed        int64         `json:"seed"`

	BaseLevel  float64 `json:"base_level"`
	DailySwing float64 `json:"daily_swing"` // amplitude of the 24h cycle
	NoiseLevel float64 `json:"noise_level"` // stddev of gaussian noise
	SpikeRate  float64 `json:"spike_rate"`  // probability a sample is a spike
	NullRate   float64 `json:"null_rate"`   // probability a sample is missing

	PumpCycles int           `json:"pump_cycles"`  // on/off cycles across the range
	MinRunTime time.Duration `json:"min_run_time"` // shortest on period
	MaxRunTime time.Duration `json:"max_run_time"` // longest on period
	RepeatRate float64       `json:"repeat_rate"`  // probability an event is reported twice
}

// DefaultTelemetryConfig returns one week of one-minute flow readings with a
// pump switching a few times a day
func DefaultTelemetryConfig() TelemetryGeneratorConfig {
	return TelemetryGeneratorConfig{
		SampleCount: 7 * 24 * 60,
		Cadence:     time.Minute,
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Seed:        42,
		BaseLevel:   40,
		DailySwing:  15,
		NoiseLevel:  1.5,
		SpikeRate:   0.001,
		NullRate:    0.01,
		PumpCycles:  21,
		MinRunTime:  20 * time.Minute,
		MaxRunTime:  3 * time.Hour,
		RepeatRate:  0.1,
	}
}

// TelemetryGenerator generates realistic sensor series and pump state events
type TelemetryGenerator struct {
	config TelemetryGeneratorConfig
	rng    *rand.Rand
}

// NewTelemetryGenerator creates a new telemetry generator
func NewTelemetryGenerator(config TelemetryGeneratorConfig) *TelemetryGenerator {
	if config.Cadence <= 0 {
		config.Cadence = time.Minute
	}
	return &TelemetryGenerator{
		config: config,
		rng:    rand.New(rand.NewSource(config.Seed)),
	}
}

// End returns the timestamp of the last sample
func (g *TelemetryGenerator) End() time.Time {
	return g.config.StartDate.Add(time.Duration(max(g.config.SampleCount-1, 0)) * g.config.Cadence)
}

// GenerateSeries produces a reduce request: a daily cycle plus noise, with
// occasional spikes and missing samples.
func (g *TelemetryGenerator) GenerateSeries(maxPoints uint32) contracts.ReduceRequest {
	n := g.config.SampleCount
	req := contracts.ReduceRequest{
		X:         make([]int64, n),
		Y:         make([]*float64, n),
		MaxPoints: maxPoints,
		KeepEnds:  true,
	}

	start := g.config.StartDate.UnixMilli()
	step := g.config.Cadence.Milliseconds()
	for i := 0; i < n; i++ {
		t := start + int64(i)*step
		req.X[i] = t

		if g.rng.Float64() < g.config.NullRate {
			continue
		}
		v := g.level(t)
		if g.rng.Float64() < g.config.SpikeRate {
			v += g.spike()
		}
		req.Y[i] = &v
	}
	return req
}

func (g *TelemetryGenerator) level(t int64) float64 {
	day := float64(24 * time.Hour / time.Millisecond)
	phase := 2 * math.Pi * float64(t%int64(day)) / day
	return g.config.BaseLevel + g.config.DailySwing*math.Sin(phase) + g.rng.NormFloat64()*g.config.NoiseLevel
}

func (g *TelemetryGenerator) spike() float64 {
	size := g.config.DailySwing*2 + g.rng.Float64()*g.config.DailySwing*4
	if g.rng.Float64() < 0.5 {
		return -size
	}
	return size
}

// GeneratePumpEvents produces on/off events for a pump over the generator's
// range, sorted by time. Each cycle is an "on" event followed by an "off"
// event; some events are reported twice with the same timestamp.
func (g *TelemetryGenerator) GeneratePumpEvents() contracts.ReconstructRequest {
	start := g.config.StartDate
	end := g.End()
	req := contracts.ReconstructRequest{
		EventsT:     []int64{start.UnixMilli()},
		EventsV:     []float64{0},
		WindowStart: core.NewMillis(start).TruncateMinute().Int64(),
		WindowEnd:   core.NewMillis(end).TruncateMinute().Int64(),
	}
	if g.config.PumpCycles <= 0 {
		return req
	}

	slot := end.Sub(start) / time.Duration(g.config.PumpCycles)
	for i := 0; i < g.config.PumpCycles; i++ {
		slotStart := start.Add(time.Duration(i) * slot)
		run := g.randomDuration(g.config.MinRunTime, min(g.config.MaxRunTime, slot/2))
		on := g.randomTimeInRange(slotStart, slotStart.Add(slot-run))
		off := on.Add(run)

		g.appendEvent(&req, on, 1)
		g.appendEvent(&req, off, 0)
	}
	return req
}

func (g *TelemetryGenerator) appendEvent(req *contracts.ReconstructRequest, at time.Time, state float64) {
	req.EventsT = append(req.EventsT, at.UnixMilli())
	req.EventsV = append(req.EventsV, state)
	if g.rng.Float64() < g.config.RepeatRate {
		req.EventsT = append(req.EventsT, at.UnixMilli())
		req.EventsV = append(req.EventsV, state)
	}
}

// WriteSeriesCSV writes a series as timestamp,value rows with RFC3339
// timestamps; missing samples are written as empty cells.
func (g *TelemetryGenerator) WriteSeriesCSV(path string, req contracts.ReduceRequest) error {
	rows := [][]string{{"timestamp", "value"}}
	for i, t := range req.X {
		value := ""
		if i < len(req.Y) && req.Y[i] != nil {
			value = strconv.FormatFloat(*req.Y[i], 'f', -1, 64)
		}
		rows = append(rows, []string{core.Millis(t).String(), value})
	}
	return writeCSV(path, rows)
}

// WriteEventsCSV writes events as timestamp,state rows
func (g *TelemetryGenerator) WriteEventsCSV(path string, req contracts.ReconstructRequest) error {
	rows := [][]string{{"timestamp", "state"}}
	for i, t := range req.EventsT {
		rows = append(rows, []string{core.Millis(t).String(), strconv.FormatFloat(req.EventsV[i], 'f', -1, 64)})
	}
	return writeCSV(path, rows)
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// Helper methods for random value generation

func (g *TelemetryGenerator) randomTimeInRange(start, end time.Time) time.Time {
	if start.After(end) {
		start, end = end, start
	}
	duration := end.Sub(start)
	if duration <= 0 {
		return start
	}
	return start.Add(time.Duration(g.rng.Int63n(int64(duration))))
}

func (g *TelemetryGenerator) randomDuration(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return max(lo, time.Minute)
	}
	return lo + time.Duration(g.rng.Int63n(int64(hi-lo)))
}
