package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"userload/internal/config"
	"userload/internal/pipeline"
	"userload/internal/schema"
	"userload/internal/storage"
)

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the users table by applying the embedded migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scfg, err := a.storageConfig()
			if err != nil {
				return err
			}
			applied, err := schema.Migrate(cmd.Context(), scfg, a.log)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", len(applied))
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List the embedded migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			scfg, err := a.storageConfig()
			if err != nil {
				return err
			}
			st, err := schema.Current(cmd.Context(), scfg)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tFILE\tAPPLIED")
			for _, s := range st {
				when := "pending"
				if s.Applied {
					when = s.AppliedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(tw, "%d\t%s\t%s\n", s.Version, s.Path, when)
			}
			return tw.Flush()
		},
	})
	return cmd
}

// storageConfig validates only the storage part of the configuration; the
// migrate commands need no input file.
func (a *app) storageConfig() (storage.Config, error) {
	var errs []string
	for _, iss := range config.ValidatePipeline(a.cfg) {
		if iss.Severity == config.SeverityError && strings.HasPrefix(iss.Path, "storage.") {
			errs = append(errs, iss.Path+": "+iss.Message)
		}
	}
	if len(errs) > 0 {
		return storage.Config{}, fmt.Errorf("configuration is invalid: %s", strings.Join(errs, "; "))
	}
	return pipeline.StorageConfig(a.cfg)
}
