package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newBackfillCmd(g *globals) *cobra.Command {
	var (
		from, to string
		step     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Correlate a past range window by window",
		Long: `backfill splits [from, to) into windows of --step, correlates them
concurrently and reports them in window order. Event IDs already seen by this
process are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := time.Parse(time.RFC3339, from)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}
			end, err := time.Parse(time.RFC3339, to)
			if err != nil {
				return fmt.Errorf("invalid --to: %w", err)
			}

			svc, err := g.newService(cmd.OutOrStdout(), true)
			if err != nil {
				return err
			}
			_, err = svc.Backfill(cmd.Context(), start, end, step)
			return err
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "range start, RFC3339")
	cmd.Flags().StringVar(&to, "to", "", "range end, RFC3339")
	cmd.Flags().DurationVar(&step, "step", time.Hour, "window length")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
