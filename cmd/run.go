package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kilianp07/loadshift/app"
	"github.com/kilianp07/loadshift/core/events"
	"github.com/kilianp07/loadshift/core/report"
	"github.com/kilianp07/loadshift/infra/logger"
	"github.com/kilianp07/loadshift/internal/eventbus"
	"github.com/kilianp07/loadshift/pkg/eventio"
	"github.com/kilianp07/loadshift/pkg/export"
)

var runOpts struct {
	household string
	tariff    string
	out       string
	format    string
	stats     string
}

var runCmd = &cobra.Command{
	Use:   "run <events.csv>",
	Short: "Schedule the events of one household",
	Args:  cobra.ExactArgs(1),
	RunE:  runHousehold,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runOpts.household, "household", "", "household id, defaults to the file name")
	f.StringVar(&runOpts.tariff, "tariff", "", "tariff plan, overrides inputs.tariff")
	f.StringVarP(&runOpts.out, "out", "o", "", "schedule output file, stdout when empty")
	f.StringVar(&runOpts.format, "format", "csv", "schedule output format: csv or json")
	f.StringVar(&runOpts.stats, "stats", "", "write filter statistics as JSON to this file")
	rootCmd.AddCommand(runCmd)
}

func runHousehold(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New("run")
	bus := eventbus.NewTypedWithBuffer[events.StageEvent](64)
	svc, err := app.New(ctx, cfg, bus)
	if err != nil {
		return err
	}
	stagesDone := logStages(bus, log)
	defer func() {
		bus.Close()
		<-stagesDone
		if err := svc.Close(); err != nil {
			log.Errorf("service close: %v", err)
		}
	}()

	tbl, err := eventio.ReadFile(args[0])
	if err != nil {
		return err
	}
	id := runOpts.household
	if id == "" {
		base := filepath.Base(args[0])
		id = strings.TrimSuffix(base, filepath.Ext(base))
	}
	out, err := svc.Run(ctx, app.Input{ID: id, Tariff: runOpts.tariff, Events: tbl})
	if err != nil {
		return err
	}

	rows := export.Rows(out.Results, out.Costs)
	if err := writeTo(runOpts.out, cmd.OutOrStdout(), func(w io.Writer) error {
		switch runOpts.format {
		case "json":
			return export.WriteJSON(w, rows)
		case "csv":
			return export.WriteCSV(w, rows)
		default:
			return fmt.Errorf("unsupported format: %s", runOpts.format)
		}
	}); err != nil {
		return err
	}
	if runOpts.stats != "" {
		if err := writeTo(runOpts.stats, nil, func(w io.Writer) error {
			return export.WriteStats(w, out.Filter.Overall)
		}); err != nil {
			return err
		}
	}
	if runOpts.out != "" {
		return report.WriteTable(cmd.OutOrStdout(), report.Summarize([]report.Household{out.Household}))
	}
	return nil
}

// writeTo writes to path, or to fallback when path is empty.
func writeTo(path string, fallback io.Writer, fn func(io.Writer) error) error {
	if path == "" {
		return fn(fallback)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}
