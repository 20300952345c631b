package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"userload/internal/config"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [input.csv]",
		Short: "Check the configuration and exit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				a.cfg.Source.File.Path = args[0]
			}
			out := cmd.OutOrStdout()
			issues := config.ValidatePipeline(a.cfg)
			for _, iss := range issues {
				fmt.Fprintf(out, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
			}
			if config.HasErrors(issues) {
				return fmt.Errorf("configuration is invalid")
			}
			fmt.Fprintf(out, "configuration is valid (storage=%s table=%s dsn=%s)\n",
				a.cfg.Storage.Kind, a.cfg.Storage.DB.Table, config.RedactDSN(a.cfg.Storage.DB.DSN))
			return nil
		},
	}
}
