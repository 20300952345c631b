package cli

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"userload/internal/datasource/file"
	"userload/internal/generator"
)

func newGenerateCmd(a *app) *cobra.Command {
	var (
		start string
		end   string
		seed  int64
		force bool
	)
	cmd := &cobra.Command{
		Use:   "generate <file> <count>",
		Short: "Write a CSV of fake users",
		Example: `  userload generate users.csv 1000
  userload generate users.csv 50000 --start -1y --end now --force`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			count, err := strconv.Atoi(args[1])
			if err != nil || count < 0 {
				return fmt.Errorf("count must be a non-negative integer, got %q", args[1])
			}

			now := time.Now()
			from, err := generator.ParseBound(start, now)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			to, err := generator.ParseBound(end, now)
			if err != nil {
				return fmt.Errorf("--end: %w", err)
			}

			w, err := file.Create(cmd.Context(), path, force)
			if errors.Is(err, file.ErrExists) {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err != nil {
				return err
			}
			genErr := generator.Write(w, generator.Options{Count: count, Start: from, End: to, Seed: seed}, a.log)
			if cerr := w.Close(); genErr == nil {
				genErr = cerr
			}
			if genErr != nil {
				return genErr
			}
			a.log.WithField("file", path).WithField("records", count).Info("generate: done")
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "-5y", "earliest signup time (now, -5y, -1m, -2w, -3d or YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "now", "latest signup time")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (0 = random)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	return cmd
}
