package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldops/console/pkg/opsctl/output"
)

func newJobsCommand(rt *runtimeState) *cobra.Command {
	jobs := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and trigger scheduled jobs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List registered job names",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := rt.format()
			if err != nil {
				return err
			}
			cl, err := rt.client()
			if err != nil {
				return err
			}
			names, err := cl.Jobs(cmd.Context())
			if err != nil {
				return err
			}
			if format == output.FormatTable {
				for _, name := range names {
					fmt.Fprintln(rt.writer, name)
				}
				return nil
			}
			return output.WriteObject(rt.writer, format, names)
		},
	}

	run := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a job immediately, optionally for a single tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := rt.format()
			if err != nil {
				return err
			}
			cl, err := rt.client()
			if err != nil {
				return err
			}
			results, err := cl.RunJob(cmd.Context(), args[0], rt.tenant)
			if err != nil {
				return err
			}
			if format == output.FormatTable {
				output.WriteJobResultTable(rt.writer, results)
				return nil
			}
			return output.WriteObject(rt.writer, format, results)
		},
	}

	jobs.AddCommand(list, run)
	return jobs
}
