// Package cli implements the userload command line.
package cli

import (
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"userload/internal/config"
	"userload/internal/logging"
)

// app carries state shared by every subcommand, filled in by the root
// command's PersistentPreRunE.
type app struct {
	cfgPath   string
	envFile   string
	logLevel  string
	logFormat string

	cfg config.Pipeline
	log *logrus.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "userload",
		Short: "Load a users CSV into a relational table and run the report queries",
		Long: `userload reads a users CSV (user_id,name,email,signup_date), drops rows
with an invalid date, email or user_id, loads the rest into the destination
table and then runs the fixed report and cleanup statements.

Configuration comes from an optional JSON file (--config), a .env file and
USERLOAD_* environment variables. JDBC_URL, POSTGRES_USER, POSTGRES_TABLE and
SECRET_POSTGRES_PASSWORD_PATH are honored as well.

Exit Codes:
  0  - Success (query failures are reported, not fatal)
  1  - Fatal error or invalid configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgPath, "config", "c", "", "pipeline config JSON path")
	pf.StringVar(&a.envFile, "env-file", "", "env file to load (default ./.env when present)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level (overrides log.level)")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: text or json (overrides log.format)")

	root.AddCommand(
		newRunCmd(a),
		newValidateCmd(a),
		newMigrateCmd(a),
		newGenerateCmd(a),
	)
	return root
}

// Execute runs the root command against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func (a *app) setup(stderr io.Writer) error {
	var envFiles []string
	if a.envFile != "" {
		envFiles = append(envFiles, a.envFile)
	}
	if err := config.LoadEnvFiles(envFiles...); err != nil {
		return err
	}

	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	a.cfg = cfg

	log, err := logging.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	a.log = log
	return nil
}
