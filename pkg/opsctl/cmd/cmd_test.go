package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/console/pkg/opsctl/client"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/version", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]string{"product": "fieldops-console", "version": "1.2.3"})
	})
	mux.HandleFunc("GET /api/jobs", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"jobs": []string{"digest", "escalations", "reminders"}})
	})
	mux.HandleFunc("POST /api/jobs/escalations/run", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"job": "escalations",
			"results": []map[string]string{
				{"tenantId": r.URL.Query().Get("tenant"), "outcome": "completed"},
			},
		})
	})
	mux.HandleFunc("GET /api/tenants/acme/tasks", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"tasks": []map[string]any{
				{"id": "task-1", "kind": "UPDATE", "title": "Weekly status", "dueAt": "2026-03-10T12:00:00Z", "gradeLabel": "RED"},
			},
		})
	})
	mux.HandleFunc("GET /api/ladders", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"ladders": []map[string]any{
				{"category": "demolition", "defaultHours": 2, "steps": []map[string]any{{"role": "site_manager", "hourThreshold": 4}}},
			},
		})
	})
	mux.HandleFunc("GET /api/tenants/acme/settings/features", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"override":  map[string]any{"reminders": false},
			"effective": map[string]bool{"reminders": false, "escalations": true, "weeklyDigest": true},
		})
	})
	mux.HandleFunc("GET /api/tenants/acme/settings/preferences", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"tenantId": "acme", "emailEnabled": true, "smsEnabled": false,
			"dailyDigest": false, "weeklyDigest": true,
			"timezone": "America/Chicago", "escalationAfterHours": 4,
		})
	})
	mux.HandleFunc("PUT /api/tenants/acme/settings/preferences", func(w http.ResponseWriter, r *http.Request) {
		var prefs map[string]any
		_ = json.NewDecoder(r.Body).Decode(&prefs)
		writeJSON(w, prefs)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func writeJSON(w http.ResponseWriter, obj any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(obj)
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	root := NewRootCommand(&buf)
	root.SetArgs(args)
	root.SetOut(&buf)
	root.SetErr(&buf)
	err := root.Execute()
	return buf.String(), err
}

func TestVersionCommandClientOnly(t *testing.T) {
	t.Setenv("OPSCTL_SERVER", "")
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "client: fieldops-console")
	assert.NotContains(t, out, "server:")
}

func TestVersionCommandWithServer(t *testing.T) {
	server := newTestServer(t)
	out, err := runCommand(t, "version", "--server", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "client: fieldops-console")
	assert.Contains(t, out, "server: fieldops-console 1.2.3")
}

func TestJobsListCommand(t *testing.T) {
	server := newTestServer(t)
	out, err := runCommand(t, "jobs", "list", "--server", server.URL)
	require.NoError(t, err)
	assert.Contains(t, out, "digest")
	assert.Contains(t, out, "escalations")
	assert.Contains(t, out, "reminders")
}

func TestJobsRunCommand(t *testing.T) {
	server := newTestServer(t)
	out, err := runCommand(t, "jobs", "run", "escalations", "--server", server.URL, "--tenant", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "acme")
	assert.Contains(t, out, "completed")
}

func TestTasksListCommand(t *testing.T) {
	server := newTestServer(t)
	out, err := runCommand(t, "tasks", "list", "--server", server.URL, "--tenant", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "task-1")
	assert.Contains(t, out, "RED")
}

func TestTasksListRequiresTenant(t *testing.T) {
	server := newTestServer(t)
	t.Setenv("OPSCTL_TENANT", "")
	_, err := runCommand(t, "tasks", "list", "--server", server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tenant is required")
}

func TestLaddersCommandJSON(t *testing.T) {
	server := newTestServer(t)
	out, err := runCommand(t, "ladders", "--server", server.URL, "-o", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"category": "demolition"`)
	assert.Contains(t, out, `"site_manager"`)
}

func TestFeaturesGetCommand(t *testing.T) {
	server := newTestServer(t)
	out, err := runCommand(t, "features", "get", "--server", server.URL, "--tenant", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "reminders")
	assert.Contains(t, out, "false")
	assert.Contains(t, out, "inherit")
}

func TestCommandsRequireServer(t *testing.T) {
	t.Setenv("OPSCTL_SERVER", "")
	_, err := runCommand(t, "jobs", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server is required")
}

func TestServerFromEnv(t *testing.T) {
	server := newTestServer(t)
	t.Setenv("OPSCTL_SERVER", server.URL)
	out, err := runCommand(t, "jobs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "escalations")
}

func TestPreferencesGetCommand(t *testing.T) {
	server := newTestServer(t)
	out, err := runCommand(t, "preferences", "get", "--server", server.URL, "--tenant", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "emailEnabled")
	assert.Contains(t, out, "America/Chicago")
	assert.Contains(t, out, "escalationAfterHours")
}

func TestPreferencesSetCommand(t *testing.T) {
	server := newTestServer(t)
	out, err := runCommand(t, "preferences", "set", "smsEnabled=true", "escalationAfterHours=6",
		"--server", server.URL, "--tenant", "acme")
	require.NoError(t, err)
	assert.Contains(t, out, "smsEnabled")
	assert.Contains(t, out, "true")
	assert.Contains(t, out, "6")
}

func TestApplyPreferenceArgs(t *testing.T) {
	prefs := &client.Preferences{Timezone: "UTC", EscalationAfterHours: 4}

	require.NoError(t, applyPreferenceArgs(prefs, []string{
		"emailEnabled=true", "weeklyDigest=false", "timezone=Europe/Berlin", "escalationAfterHours=8",
	}))
	assert.True(t, prefs.EmailEnabled)
	assert.False(t, prefs.WeeklyDigest)
	assert.Equal(t, "Europe/Berlin", prefs.Timezone)
	assert.Equal(t, 8, prefs.EscalationAfterHours)

	require.Error(t, applyPreferenceArgs(prefs, []string{"smsEnabled=maybe"}))
	require.Error(t, applyPreferenceArgs(prefs, []string{"escalationAfterHours=-1"}))
	require.Error(t, applyPreferenceArgs(prefs, []string{"color=blue"}))
}

func TestParseOverrides(t *testing.T) {
	override, err := parseOverrides([]string{"reminders=true", "escalations=false", "weeklyDigest=inherit"})
	require.NoError(t, err)
	require.NotNil(t, override["reminders"])
	assert.True(t, *override["reminders"])
	require.NotNil(t, override["escalations"])
	assert.False(t, *override["escalations"])
	val, ok := override["weeklyDigest"]
	assert.True(t, ok)
	assert.Nil(t, val)

	_, err = parseOverrides([]string{"reminders"})
	require.Error(t, err)

	_, err = parseOverrides([]string{"reminders=maybe"})
	require.Error(t, err)
}
