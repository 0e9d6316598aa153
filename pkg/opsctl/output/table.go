package output

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fieldops/console/pkg/opsctl/client"
)

func WriteTaskTable(w io.Writer, tasks []client.TaskSummary) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tKIND\tTITLE\tDUE\tSUBMITTED\tGRADE")
	for _, t := range tasks {
		submitted := "-"
		if t.SubmittedAt != nil {
			submitted = formatTime(*t.SubmittedAt)
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.Kind, t.Title, formatTime(t.DueAt), submitted, t.GradeLabel)
	}
	_ = tw.Flush()
}

func WriteLadderTable(w io.Writer, ladders []client.Ladder) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CATEGORY\tTRIGGER_HOURS\tSTEPS")
	for _, l := range ladders {
		steps := make([]string, 0, len(l.Steps))
		for _, s := range l.Steps {
			steps = append(steps, fmt.Sprintf("%s@%dh", s.Role, s.HourThreshold))
		}
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%s\n", l.Category, l.DefaultHours, strings.Join(steps, ","))
	}
	_ = tw.Flush()
}

func WriteJobResultTable(w io.Writer, results []client.JobTenantResult) {
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "TENANT\tOUTCOME\tREASON")
	for _, r := range results {
		reason := r.Reason
		if reason == "" {
			reason = "-"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", r.TenantID, r.Outcome, reason)
	}
	_ = tw.Flush()
}

func formatTime(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}
