package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldops/console/pkg/opsctl/output"
)

func newTasksCommand(rt *runtimeState) *cobra.Command {
	tasks := &cobra.Command{
		Use:   "tasks",
		Short: "List and manage tenant tasks",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List tasks with their timeliness grades",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := rt.requireTenant(); err != nil {
				return err
			}
			format, err := rt.format()
			if err != nil {
				return err
			}
			cl, err := rt.client()
			if err != nil {
				return err
			}
			items, err := cl.Tasks(cmd.Context(), rt.tenant)
			if err != nil {
				return err
			}
			if format == output.FormatTable {
				output.WriteTaskTable(rt.writer, items)
				return nil
			}
			return output.WriteObject(rt.writer, format, items)
		},
	}

	acknowledge := &cobra.Command{
		Use:   "acknowledge <task-id>",
		Short: "Mark a task submitted now",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.requireTenant(); err != nil {
				return err
			}
			cl, err := rt.client()
			if err != nil {
				return err
			}
			if err := cl.AcknowledgeTask(cmd.Context(), rt.tenant, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(rt.writer, "task %s acknowledged\n", args[0])
			return nil
		},
	}

	del := &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Soft-delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.requireTenant(); err != nil {
				return err
			}
			cl, err := rt.client()
			if err != nil {
				return err
			}
			if err := cl.DeleteTask(cmd.Context(), rt.tenant, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(rt.writer, "task %s deleted\n", args[0])
			return nil
		},
	}

	tasks.AddCommand(list, acknowledge, del)
	return tasks
}
