package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fieldops/console/pkg/opsctl/output"
)

func newLaddersCommand(rt *runtimeState) *cobra.Command {
	return &cobra.Command{
		Use:   "ladders",
		Short: "Show the configured escalation ladders",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := rt.format()
			if err != nil {
				return err
			}
			cl, err := rt.client()
			if err != nil {
				return err
			}
			ladders, err := cl.Ladders(cmd.Context())
			if err != nil {
				return err
			}
			if format == output.FormatTable {
				output.WriteLadderTable(rt.writer, ladders)
				return nil
			}
			return output.WriteObject(rt.writer, format, ladders)
		},
	}
}
