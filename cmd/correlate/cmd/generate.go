package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/correlate/internal/testevents"
)

func newGenerateCmd(g *globals) *cobra.Command {
	var (
		c     testevents.Config
		start string
		seed  int64
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic alert storm and optionally replay it",
		Long: `generate writes a seeded storm of alerts, each incident firing on several
hosts, to --output. With --url it also posts the storm to a running correlate
API and reports how cleanly the groups match the incidents.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if start != "" {
				t, err := time.Parse(time.RFC3339, start)
				if err != nil {
					return fmt.Errorf("invalid --start: %w", err)
				}
				c.Start = t
			}
			if c.OutputFile == "" && c.BaseURL == "" {
				return fmt.Errorf("nothing to do: set --output or --url")
			}
			c.Seed = uint64(seed)
			if cmd.Flags().Changed("threshold") {
				th := g.cfg.Threshold
				c.Threshold = &th
			}

			stats, err := testevents.Run(cmd.Context(), &c)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "events:    %d\n", stats.EventsGenerated)
			fmt.Fprintf(out, "incidents: %d\n", stats.Incidents)
			if c.BaseURL != "" {
				fmt.Fprintf(out, "groups:    %d (%d pure)\n", stats.Groups, stats.PureGroups)
				fmt.Fprintf(out, "split:     %d\n", stats.SplitIncidents)
			}
			fmt.Fprintf(out, "duration:  %s\n", stats.Duration)
			return nil
		},
	}
	cmd.Flags().IntVar(&c.Hosts, "hosts", testevents.DefaultHosts, "hosts each incident fires on")
	cmd.Flags().IntVar(&c.Repeats, "repeats", testevents.DefaultRepeats, "alerts per incident per host")
	cmd.Flags().StringSliceVar(&c.Incidents, "incident", nil, "incident templates to use (default: all)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	cmd.Flags().StringVar(&start, "start", "", "timestamp of the first alert, RFC3339 (default: an hour ago)")
	cmd.Flags().DurationVar(&c.Spacing, "spacing", testevents.DefaultSpacing, "gap between alerts")
	cmd.Flags().StringVarP(&c.OutputFile, "output", "o", "", "write the storm to this file")
	cmd.Flags().StringVar(&c.BaseURL, "url", "", "correlate API to replay the storm against")
	cmd.Flags().DurationVar(&c.Timeout, "timeout", testevents.DefaultTimeout, "HTTP request timeout")
	return cmd
}
