package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kilianp07/loadshift/config"
	"github.com/kilianp07/loadshift/core/events"
	"github.com/kilianp07/loadshift/infra/logger"
	"github.com/kilianp07/loadshift/internal/eventbus"
)

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:           "loadshift",
	Short:         "Household appliance load shifting against time-of-use tariffs",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "configuration file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level, overrides logging.level")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

// loadConfig reads the configuration file, or the defaults when none is
// given, and applies the logging settings.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if cfgPath == "" {
		cfg, err = config.Default()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	if err := logger.SetLevel(level); err != nil {
		return nil, err
	}
	if cfg.Logging.File != "" {
		logger.RotateTo(cfg.Logging.File, cfg.Logging.MaxSizeMB, cfg.Logging.MaxBackups)
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// logStages writes every stage event at debug level until the bus closes.
func logStages(bus eventbus.EventBus[events.StageEvent], log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	ch := bus.Subscribe()
	go func() {
		defer close(done)
		for ev := range ch {
			if ev.Failed() {
				log.Warnf("%s %s failed after %s: %v", ev.Household, ev.Stage, ev.Elapsed, ev.Err)
				continue
			}
			log.Debugw("stage done", map[string]any{
				"run_id":    ev.RunID,
				"household": ev.Household,
				"stage":     string(ev.Stage),
				"count":     ev.Count,
				"total":     ev.Total,
				"elapsed":   ev.Elapsed.String(),
			})
		}
	}()
	return done
}
