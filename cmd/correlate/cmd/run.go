package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/correlate/internal/domain/model"
)

func newRunCmd(g *globals) *cobra.Command {
	var window time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Correlate the trailing window once and print the groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if window <= 0 {
				window = g.cfg.Window()
			}
			svc, err := g.newService(cmd.OutOrStdout(), true)
			if err != nil {
				return err
			}
			_, err = svc.Execute(cmd.Context(), model.LastWindow(time.Now(), window, g.cfg.Query))
			return err
		},
	}
	cmd.Flags().DurationVar(&window, "window", 0, "lookback (default: window_seconds from config)")
	return cmd
}
