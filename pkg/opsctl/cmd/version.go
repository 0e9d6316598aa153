package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldops/console/pkg/opsctl/output"
	"github.com/fieldops/console/pkg/version"
)

func newVersionCommand(rt *runtimeState) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show client and server version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, err := rt.format()
			if err != nil {
				return err
			}
			info := map[string]any{"client": version.GetBuildInfo()}
			if rt.server != "" {
				cl, err := rt.client()
				if err != nil {
					return err
				}
				server, err := cl.Version(cmd.Context())
				if err != nil {
					return err
				}
				info["server"] = server
			}
			if format == output.FormatTable {
				fmt.Fprintf(rt.writer, "client: %s %s\n", version.Product, version.Version)
				if server, ok := info["server"].(map[string]any); ok {
					fmt.Fprintf(rt.writer, "server: %v %v\n", server["product"], server["version"])
				}
				return nil
			}
			return output.WriteObject(rt.writer, format, info)
		},
	}
}
