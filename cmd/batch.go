package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/kilianp07/loadshift/app"
	"github.com/kilianp07/loadshift/core/events"
	"github.com/kilianp07/loadshift/core/report"
	"github.com/kilianp07/loadshift/infra/logger"
	"github.com/kilianp07/loadshift/infra/metrics"
	"github.com/kilianp07/loadshift/internal/eventbus"
)

var batchOpts struct {
	parallel int
	asJSON   bool
}

var batchCmd = &cobra.Command{
	Use:   "batch <dir>",
	Short: "Schedule every household CSV file in a directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runBatch,
}

func init() {
	batchCmd.Flags().IntVarP(&batchOpts.parallel, "parallel", "p", 0, "households run at once, overrides batch.max_parallel")
	batchCmd.Flags().BoolVar(&batchOpts.asJSON, "json", false, "print the batch report as JSON")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New("batch")
	bus := eventbus.NewTypedWithBuffer[events.StageEvent](256)
	svc, err := app.New(ctx, cfg, bus)
	if err != nil {
		return err
	}
	stagesDone := logStages(bus, log)
	collectorDone := metrics.StartStageCollector(ctx, bus, svc.Sink, log)
	defer func() {
		bus.Close()
		<-stagesDone
		<-collectorDone
		if err := svc.Close(); err != nil {
			log.Errorf("service close: %v", err)
		}
	}()
	if addr := cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				log.Errorf("prom server: %v", err)
			}
		}()
	}

	parallel := cfg.Batch.MaxParallel
	if batchOpts.parallel > 0 {
		parallel = batchOpts.parallel
	}
	b, err := svc.BatchDir(ctx, args[0], parallel)
	if err != nil {
		return err
	}
	if batchOpts.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(b)
	}
	return report.WriteTable(cmd.OutOrStdout(), b)
}
