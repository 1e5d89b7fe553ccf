package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/adapters/datareadiness/coercer"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/adapters/excel"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/app"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/contracts"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/domain/core"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/config"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/errors"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/internal/testkit"
	"github.com/RDLSMODERNIZACION/DiracInstrumentacion-sub001/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "tsreduce-cli",
		Short: "Reduce and reconstruct time series from a workbook or CSV file",
	}

	rootCmd.AddCommand(
		newReduceCmd(),
		newReconstructCmd(),
		newGenerateCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// sourceFlags select the columns to read from a file
type sourceFlags struct {
	sheet       string
	timeColumn  string
	valueColumn string
	serialDates bool
}

func (f *sourceFlags) register(cmd *cobra.Command, valueDefault string) {
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "Worksheet name (default: first sheet)")
	cmd.Flags().StringVar(&f.timeColumn, "time-col", "timestamp", "Header of the timestamp column")
	cmd.Flags().StringVar(&f.valueColumn, "value-col", valueDefault, "Header of the value column")
	cmd.Flags().BoolVar(&f.serialDates, "serial-dates", false, "Treat numeric workbook timestamps as Excel serial dates")
}

func (f *sourceFlags) reader(path string, logger *internal.Logger) ports.SeriesReaderPort {
	return excel.NewDataReader(excel.ExcelConfig{
		FilePath:    path,
		Sheet:       f.sheet,
		TimeColumn:  f.timeColumn,
		ValueColumn: f.valueColumn,
		SerialDates: f.serialDates,
	}, logger)
}

func newEngine() (*app.EngineService, *internal.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger := internal.NewLoggerTo(internal.ParseLogLevel(cfg.LogLevel), os.Stderr)
	return app.NewEngineService(cfg.Engine, logger), logger, nil
}

func newReduceCmd() *cobra.Command {
	var source sourceFlags
	var maxPoints uint32
	var keepEnds, report bool

	cmd := &cobra.Command{
		Use:   "reduce [file]",
		Short: "Downsample a series with LTTB",
		Long: `Read a timestamp and a value column and print the reduced series as JSON.

Example: tsreduce-cli reduce flow.xlsx --value-col flow --max-points 500`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, logger, err := newEngine()
			if err != nil {
				return err
			}

			ts, vs, err := source.reader(args[0], logger).ReadColumns(source.timeColumn, source.valueColumn)
			if err != nil {
				return err
			}
			return runReduce(cmd.OutOrStdout(), engine, contracts.RawReduceRequest{
				X: ts, Y: vs, MaxPoints: maxPoints, KeepEnds: keepEnds,
			}, report)
		},
	}

	source.register(cmd, "value")
	cmd.Flags().Uint32Var(&maxPoints, "max-points", 0, "Maximum points to keep (0 uses DEFAULT_MAX_POINTS)")
	cmd.Flags().BoolVar(&keepEnds, "keep-ends", true, "Always keep the first and last point")
	cmd.Flags().BoolVar(&report, "report", false, "Include a fidelity report")

	return cmd
}

func runReduce(out io.Writer, engine *app.EngineService, raw contracts.RawReduceRequest, withReport bool) error {
	req := engine.NormalizeReduce(raw)
	resp := engine.Reduce(req)

	if !withReport {
		return writeJSON(out, resp)
	}
	report, err := engine.Fidelity(req, resp)
	if err != nil {
		return err
	}
	return writeJSON(out, map[string]any{
		"x":      resp.X,
		"y":      resp.Y,
		"report": report,
	})
}

func newReconstructCmd() *cobra.Command {
	var source sourceFlags
	var start, end string

	cmd := &cobra.Command{
		Use:   "reconstruct [file]",
		Short: "Rebuild a per-minute state series and its active spans from events",
		Long: `Read event timestamps and states, carry each state forward minute by minute
across the window and print the dense series and active spans as JSON.
The window defaults to the minutes spanned by the events.

Example: tsreduce-cli reconstruct pump.csv --value-col state --start 2024-01-01T00:00:00Z --end 2024-01-02T00:00:00Z`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, logger, err := newEngine()
			if err != nil {
				return err
			}

			ts, vs, err := source.reader(args[0], logger).ReadColumns(source.timeColumn, source.valueColumn)
			if err != nil {
				return err
			}
			return runReconstruct(cmd.OutOrStdout(), engine, ts, vs, start, end)
		},
	}

	source.register(cmd, "state")
	cmd.Flags().StringVar(&start, "start", "", "Window start (epoch seconds, epoch ms or RFC3339)")
	cmd.Flags().StringVar(&end, "end", "", "Window end (epoch seconds, epoch ms or RFC3339)")

	return cmd
}

func runReconstruct(out io.Writer, engine *app.EngineService, ts, vs []any, start, end string) error {
	req := engine.NormalizeReconstruct(contracts.RawReconstructRequest{EventsT: ts, EventsV: vs})

	window, err := resolveWindow(req.EventsT, start, end)
	if err != nil {
		return err
	}
	req.WindowStart, req.WindowEnd = window[0], window[1]

	return writeJSON(out, engine.Reconstruct(req))
}

// resolveWindow parses the flag values, falling back to the minute-aligned
// range of the (sorted) event timestamps.
func resolveWindow(events []int64, start, end string) ([2]int64, error) {
	var window [2]int64
	if len(events) > 0 {
		window[0] = core.Millis(events[0]).TruncateMinute().Int64()
		window[1] = core.Millis(events[len(events)-1]).TruncateMinute().Int64()
	}

	c := coercer.NewTypeCoercer(coercer.DefaultCoercionConfig())
	for i, flag := range []string{start, end} {
		if flag == "" {
			continue
		}
		ms, ok := c.CoerceTimestamp(flag)
		if !ok {
			return window, errors.WithCode(errors.CodeInvalidInput, fmt.Errorf("%w: %q", core.ErrInvalidTimestamp, flag))
		}
		window[i] = ms
	}
	return window, nil
}

func newGenerateCmd() *cobra.Command {
	telemetry := testkit.DefaultTelemetryConfig()
	var days int

	cmd := &cobra.Command{
		Use:   "generate [dir]",
		Short: "Write synthetic flow.csv and pump.csv fixtures",
		Long: `Generate a synthetic one-minute flow series and matching pump on/off events.

Example: tsreduce-cli generate ./fixtures --days 30 --seed 7`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			telemetry.SampleCount = days * 24 * 60
			return runGenerate(cmd.OutOrStdout(), args[0], telemetry)
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Days of one-minute samples")
	cmd.Flags().Int64Var(&telemetry.Seed, "seed", telemetry.Seed, "Random seed for deterministic output")
	cmd.Flags().IntVar(&telemetry.PumpCycles, "pump-cycles", telemetry.PumpCycles, "Pump on/off cycles across the range")
	cmd.Flags().Float64Var(&telemetry.NullRate, "null-rate", telemetry.NullRate, "Fraction of missing samples")

	return cmd
}

func runGenerate(out io.Writer, dir string, telemetry testkit.TelemetryGeneratorConfig) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", dir)
	}
	gen := testkit.NewTelemetryGenerator(telemetry)

	flow := filepath.Join(dir, "flow.csv")
	if err := gen.WriteSeriesCSV(flow, gen.GenerateSeries(0)); err != nil {
		return err
	}
	pump := filepath.Join(dir, "pump.csv")
	if err := gen.WriteEventsCSV(pump, gen.GeneratePumpEvents()); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "wrote %s and %s\n", flow, pump)
	return err
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
