package cmd

import (
	"github.com/spf13/cobra"

	"github.com/okian/correlate/internal/adapters/source"
	"github.com/okian/correlate/internal/domain/model"
)

func newGroupCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "group FILE...",
		Short: "Group the events in YAML or JSON files, in file order",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var events []model.Event
			for _, path := range args {
				evs, err := source.LoadEvents(path)
				if err != nil {
					return err
				}
				events = append(events, evs...)
			}

			svc, err := g.newService(cmd.OutOrStdout(), false)
			if err != nil {
				return err
			}
			run, err := svc.Correlate(cmd.Context(), events)
			if err != nil {
				return err
			}
			return svc.Report(cmd.Context(), run)
		},
	}
}
