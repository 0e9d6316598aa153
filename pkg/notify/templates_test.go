package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderEscalation(t *testing.T) {
	body, err := RenderEscalation(EscalationMailParams{
		TenantName:   "Acme Builders",
		ProjectName:  "North Yard Teardown",
		TaskTitle:    "Weekly progress report",
		TaskKind:     "CHANGE_REQUEST",
		DueAt:        "Mon, 09 Mar 2026 12:00:00 UTC",
		OverdueHours: "5",
		Role:         "site_manager",
		BrandingName: "FieldOps Console",
	})
	require.NoError(t, err)

	assert.Contains(t, body, "Weekly progress report")
	assert.Contains(t, body, "North Yard Teardown")
	assert.Contains(t, body, "Site Manager", "role renders in plain language")
	assert.Contains(t, body, "change request", "kind renders in plain language")
	assert.Contains(t, body, "5 hours")
	assert.NotContains(t, body, "CHANGE_REQUEST", "raw enum values never reach recipients")
}

func TestRenderEscalationEscapesHTML(t *testing.T) {
	body, err := RenderEscalation(EscalationMailParams{
		TaskTitle: `<script>alert("x")</script>`,
	})
	require.NoError(t, err)
	assert.NotContains(t, body, "<script>")
}

func TestRenderReminder(t *testing.T) {
	body, err := RenderReminder(ReminderMailParams{
		TenantName:  "Acme Builders",
		ProjectName: "Riverside Build",
		TaskTitle:   "Scope change approval",
		TaskKind:    "UPDATE",
		DueAt:       "Tue, 10 Mar 2026 15:00:00 UTC",
		GradeLabel:  "Due soon",
	})
	require.NoError(t, err)

	assert.Contains(t, body, "Scope change approval")
	assert.Contains(t, body, "Due soon")
	assert.Contains(t, body, "FieldOps Console", "empty branding falls back to the default")
}

func TestRenderDigest(t *testing.T) {
	params := DigestMailParams{
		TenantName:  "Acme Builders",
		WindowStart: "Tue, 03 Mar 2026",
		WindowEnd:   "Tue, 17 Mar 2026",
		Groups: []DigestGroup{
			{
				ProjectName: "Alders Court",
				Rows: []DigestRow{
					{Title: "Weekly update", Kind: "UPDATE", DueAt: "Mon, 09 Mar 09:00", GradeLabel: "Late"},
					{Title: "Permit renewal", Kind: "CHANGE_REQUEST", DueAt: "Wed, 11 Mar 12:00", GradeLabel: "On time"},
				},
			},
		},
		GreenCount: 1,
		AmberCount: 0,
		RedCount:   1,
	}
	body, err := RenderDigest(params)
	require.NoError(t, err)

	assert.Contains(t, body, "Alders Court")
	assert.Contains(t, body, "Weekly update")
	assert.Contains(t, body, "1 on time")
	assert.Contains(t, body, "1 late")
}

func TestRenderDigestEmptyWindow(t *testing.T) {
	body, err := RenderDigest(DigestMailParams{TenantName: "Acme Builders"})
	require.NoError(t, err)
	assert.Contains(t, body, "No tasks fall inside this window")
}
