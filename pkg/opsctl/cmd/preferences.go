package cmd

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fieldops/console/pkg/opsctl/client"
	"github.com/fieldops/console/pkg/opsctl/output"
)

func newPreferencesCommand(rt *runtimeState) *cobra.Command {
	preferences := &cobra.Command{
		Use:   "preferences",
		Short: "Inspect and change tenant notification preferences",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Show the tenant's notification preferences",
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
			prefs, err := cl.Preferences(cmd.Context(), rt.tenant)
			if err != nil {
				return err
			}
			if format == output.FormatTable {
				writePreferenceTable(rt, prefs)
				return nil
			}
			return output.WriteObject(rt.writer, format, prefs)
		},
	}

	set := &cobra.Command{
		Use:   "set <key>=<value> ...",
		Short: "Change notification preference fields",
		Long:  "Fetches the current preferences, applies the given fields and writes the row back. Keys: emailEnabled, smsEnabled, dailyDigest, weeklyDigest, timezone, escalationAfterHours.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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
			prefs, err := cl.Preferences(cmd.Context(), rt.tenant)
			if err != nil {
				return err
			}
			if err := applyPreferenceArgs(prefs, args); err != nil {
				return err
			}
			saved, err := cl.SetPreferences(cmd.Context(), rt.tenant, *prefs)
			if err != nil {
				return err
			}
			if format == output.FormatTable {
				writePreferenceTable(rt, saved)
				return nil
			}
			return output.WriteObject(rt.writer, format, saved)
		},
	}

	preferences.AddCommand(get, set)
	return preferences
}

func applyPreferenceArgs(prefs *client.Preferences, args []string) error {
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found || key == "" {
			return fmt.Errorf("expected <key>=<value>, got %q", arg)
		}
		switch key {
		case "emailEnabled", "smsEnabled", "dailyDigest", "weeklyDigest":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("value for %s must be a boolean, got %q", key, value)
			}
			switch key {
			case "emailEnabled":
				prefs.EmailEnabled = b
			case "smsEnabled":
				prefs.SMSEnabled = b
			case "dailyDigest":
				prefs.DailyDigest = b
			case "weeklyDigest":
				prefs.WeeklyDigest = b
			}
		case "timezone":
			prefs.Timezone = value
		case "escalationAfterHours":
			n, err := strconv.Atoi(value)
			if err != nil || n < 0 {
				return fmt.Errorf("value for %s must be a non-negative integer, got %q", key, value)
			}
			prefs.EscalationAfterHours = n
		default:
			return fmt.Errorf("unknown preference key %q", key)
		}
	}
	return nil
}

func writePreferenceTable(rt *runtimeState, prefs *client.Preferences) {
	tw := tabwriter.NewWriter(rt.writer, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PREFERENCE\tVALUE")
	fmt.Fprintf(tw, "emailEnabled\t%t\n", prefs.EmailEnabled)
	fmt.Fprintf(tw, "smsEnabled\t%t\n", prefs.SMSEnabled)
	fmt.Fprintf(tw, "dailyDigest\t%t\n", prefs.DailyDigest)
	fmt.Fprintf(tw, "weeklyDigest\t%t\n", prefs.WeeklyDigest)
	fmt.Fprintf(tw, "timezone\t%s\n", prefs.Timezone)
	fmt.Fprintf(tw, "escalationAfterHours\t%d\n", prefs.EscalationAfterHours)
	tw.Flush()
}
