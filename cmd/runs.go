package cmd

import (
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/loadshift/api/runs"
	"github.com/kilianp07/loadshift/infra/store"
)

var runsOpts struct {
	household string
	tariff    string
	since     time.Duration
	addr      string
	token     string
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect stored household runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print stored runs as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		q := store.RunQuery{Household: runsOpts.household, Tariff: runsOpts.tariff}
		if runsOpts.since > 0 {
			q.Start = time.Now().Add(-runsOpts.since)
		}
		recs, err := s.Query(cmd.Context(), q)
		if err != nil {
			return err
		}
		if recs == nil {
			recs = []store.RunRecord{}
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	},
}

var runsServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve stored runs on GET /api/runs",
	Args:  cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signalContext()
		defer stop()
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()
		token := runsOpts.token
		if token == "" {
			token = os.Getenv("LOADSHIFT_API_TOKEN")
		}
		return runs.Serve(ctx, runsOpts.addr, runs.NewHandler(s, token))
	},
}

func init() {
	runsListCmd.Flags().StringVar(&runsOpts.household, "household", "", "only runs of this household")
	runsListCmd.Flags().StringVar(&runsOpts.tariff, "tariff", "", "only runs against this tariff")
	runsListCmd.Flags().DurationVar(&runsOpts.since, "since", 0, "only runs newer than this")
	runsServeCmd.Flags().StringVar(&runsOpts.addr, "addr", ":8090", "listen address")
	runsServeCmd.Flags().StringVar(&runsOpts.token, "token", "", "bearer token, defaults to LOADSHIFT_API_TOKEN")
	runsCmd.AddCommand(runsListCmd, runsServeCmd)
	rootCmd.AddCommand(runsCmd)
}

func openStore() (store.RunStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	s, err := store.Open(cfg.Store)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.New("no run store configured, set store.backend")
	}
	return s, nil
}
