package cli

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"userload/internal/config"
	"userload/internal/logging"
	"userload/internal/pipeline"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		mode      string
		batchSize int
		migrate   bool
	)
	cmd := &cobra.Command{
		Use:   "run [input.csv]",
		Short: "Parse, clean and load the input, then run the report queries",
		Example: `  userload run users.csv
  USERLOAD_DSN=postgres://db:5432/app userload run --mode append users.csv
  userload run -c configs/userload.json --migrate`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				a.cfg.Source.File.Path = args[0]
			}
			if cmd.Flags().Changed("mode") {
				a.cfg.Runtime.Mode = mode
			}
			if cmd.Flags().Changed("batch-size") {
				a.cfg.Runtime.BatchSize = batchSize
			}
			if migrate {
				a.cfg.Storage.DB.Migrate = true
			}
			return a.run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "load mode: truncate or append (overrides runtime.mode)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "rows per insert batch (overrides runtime.batch_size)")
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply schema migrations before loading")
	return cmd
}

func (a *app) run(ctx context.Context) error {
	issues := config.ValidatePipeline(a.cfg)
	for _, iss := range issues {
		logging.LogWarn(a.log.WithField("path", iss.Path), fmt.Sprintf("config %s: %s", iss.Severity, iss.Message))
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid")
	}

	opts, err := pipeline.FromConfig(a.cfg)
	if err != nil {
		return err
	}

	flush, err := setupMetrics(a.cfg, a.log)
	if err != nil {
		return err
	}
	defer flush()

	a.log.WithFields(logrus.Fields{
		"job":     a.cfg.Job,
		"input":   opts.Source.Name(),
		"storage": a.cfg.Storage.Kind,
		"dsn":     config.RedactDSN(opts.Storage.DSN),
		"table":   opts.Storage.Table,
	}).Info("run: starting")

	sum, err := pipeline.Run(ctx, opts, a.log)
	sum.Log(a.log.WithField("run_id", sum.RunID))
	if err != nil {
		logging.LogError(a.log.WithField("run_id", sum.RunID), "run failed", err)
		return err
	}
	logging.LogInfo(a.log.WithField("run_id", sum.RunID), "run: completed")
	return nil
}
