package cmd

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fieldops/console/pkg/opsctl/client"
	"github.com/fieldops/console/pkg/opsctl/output"
)

func newFeaturesCommand(rt *runtimeState) *cobra.Command {
	features := &cobra.Command{
		Use:   "features",
		Short: "Inspect and change tenant feature overrides",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Show the tenant's override row and effective feature set",
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
			settings, err := cl.Features(cmd.Context(), rt.tenant)
			if err != nil {
				return err
			}
			if format == output.FormatTable {
				writeFeatureTable(rt, settings)
				return nil
			}
			return output.WriteObject(rt.writer, format, settings)
		},
	}

	set := &cobra.Command{
		Use:   "set <key>=<true|false|inherit> ...",
		Short: "Replace the tenant's feature override row",
		Long:  "Replaces the whole override row. Keys not named inherit from the global override or the environment default.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rt.requireTenant(); err != nil {
				return err
			}
			format, err := rt.format()
			if err != nil {
				return err
			}
			override, err := parseOverrides(args)
			if err != nil {
				return err
			}
			cl, err := rt.client()
			if err != nil {
				return err
			}
			settings, err := cl.SetFeatures(cmd.Context(), rt.tenant, override)
			if err != nil {
				return err
			}
			if format == output.FormatTable {
				writeFeatureTable(rt, settings)
				return nil
			}
			return output.WriteObject(rt.writer, format, settings)
		},
	}

	features.AddCommand(get, set)
	return features
}

func parseOverrides(args []string) (map[string]*bool, error) {
	override := make(map[string]*bool, len(args))
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("expected <key>=<value>, got %q", arg)
		}
		switch strings.ToLower(value) {
		case "true":
			v := true
			override[key] = &v
		case "false":
			v := false
			override[key] = &v
		case "inherit":
			override[key] = nil
		default:
			return nil, fmt.Errorf("value for %s must be true, false or inherit, got %q", key, value)
		}
	}
	return override, nil
}

func writeFeatureTable(rt *runtimeState, settings *client.FeatureSettings) {
	keys := make([]string, 0, len(settings.Effective))
	for key := range settings.Effective {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	tw := tabwriter.NewWriter(rt.writer, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "FEATURE\tOVERRIDE\tEFFECTIVE")
	for _, key := range keys {
		fmt.Fprintf(tw, "%s\t%s\t%t\n", key, overrideFor(settings, key), settings.Effective[key])
	}
	tw.Flush()
}

func overrideFor(settings *client.FeatureSettings, key string) string {
	var value *bool
	switch key {
	case "reminders":
		value = settings.Override.Reminders
	case "escalations":
		value = settings.Override.Escalations
	case "weeklyDigest":
		value = settings.Override.WeeklyDigest
	}
	if value == nil {
		return "inherit"
	}
	return fmt.Sprintf("%t", *value)
}
