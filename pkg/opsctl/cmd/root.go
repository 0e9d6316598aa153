// Package cmd assembles the opsctl command tree.
package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fieldops/console/pkg/opsctl/client"
	"github.com/fieldops/console/pkg/opsctl/output"
)

type runtimeState struct {
	server       string
	outputFormat string
	tenant       string
	timeout      time.Duration
	writer       io.Writer
}

func (rt *runtimeState) client() (*client.Client, error) {
	if rt.server == "" {
		return nil, fmt.Errorf("server is required, set --server or OPSCTL_SERVER")
	}
	return client.New(rt.server, "opsctl", rt.timeout)
}

func (rt *runtimeState) format() (output.Format, error) {
	return output.ParseFormat(rt.outputFormat)
}

// requireTenant errors when a tenant-scoped command runs without one.
func (rt *runtimeState) requireTenant() error {
	if rt.tenant == "" {
		return fmt.Errorf("tenant is required, set --tenant or OPSCTL_TENANT")
	}
	return nil
}

// NewRootCommand builds the opsctl root with all subcommands attached.
// The writer defaults to stdout and is overridable for tests.
func NewRootCommand(writer io.Writer) *cobra.Command {
	if writer == nil {
		writer = os.Stdout
	}
	rt := &runtimeState{writer: writer, timeout: 30 * time.Second}

	root := &cobra.Command{
		Use:          "opsctl",
		Short:        "FieldOps Console CLI",
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if rt.server == "" {
				rt.server = os.Getenv("OPSCTL_SERVER")
			}
			if rt.outputFormat == "" {
				rt.outputFormat = os.Getenv("OPSCTL_OUTPUT")
			}
			if rt.tenant == "" {
				rt.tenant = os.Getenv("OPSCTL_TENANT")
			}
		},
	}

	root.PersistentFlags().StringVar(&rt.server, "server", "", "Console server base URL")
	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: table, json, yaml")
	root.PersistentFlags().StringVarP(&rt.tenant, "tenant", "t", "", "Tenant ID for tenant-scoped commands")

	root.AddCommand(
		newVersionCommand(rt),
		newTasksCommand(rt),
		newJobsCommand(rt),
		newLaddersCommand(rt),
		newFeaturesCommand(rt),
		newPreferencesCommand(rt),
	)
	return root
}
