package output

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/fieldops/console/pkg/opsctl/client"
)

func TestWriteTaskTable(t *testing.T) {
	due := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	submitted := due.Add(-2 * time.Hour)
	tasks := []client.TaskSummary{
		{ID: "task-1", Kind: "UPDATE", Title: "Weekly status", DueAt: due, GradeLabel: "AMBER"},
		{ID: "task-2", Kind: "CHANGE_REQUEST", Title: "Scope change", DueAt: due, SubmittedAt: &submitted, GradeLabel: "GREEN"},
	}

	var buf bytes.Buffer
	WriteTaskTable(&buf, tasks)

	out := buf.String()
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "GRADE")
	assert.Contains(t, out, "task-1")
	assert.Contains(t, out, "AMBER")
	assert.Contains(t, out, "task-2")

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 3)
	// open task shows a dash in the submitted column
	assert.Contains(t, lines[1], "-")
}

func TestWriteLadderTable(t *testing.T) {
	ladders := []client.Ladder{
		{
			Category:     "demolition",
			DefaultHours: 2,
			Steps: []client.LadderStep{
				{Role: "safety_supervisor", HourThreshold: 1},
				{Role: "site_manager", HourThreshold: 4},
			},
		},
	}

	var buf bytes.Buffer
	WriteLadderTable(&buf, ladders)

	out := buf.String()
	assert.Contains(t, out, "demolition")
	assert.Contains(t, out, "safety_supervisor@1h,site_manager@4h")
}

func TestWriteJobResultTable(t *testing.T) {
	results := []client.JobTenantResult{
		{TenantID: "acme", Outcome: "completed"},
		{TenantID: "globex", Outcome: "skipped", Reason: "feature_disabled"},
	}

	var buf bytes.Buffer
	WriteJobResultTable(&buf, results)

	out := buf.String()
	assert.Contains(t, out, "acme")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "feature_disabled")
}

func TestWriteTaskTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	WriteTaskTable(&buf, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 1)
}
