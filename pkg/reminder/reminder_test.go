package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/console/pkg/audit"
	"github.com/fieldops/console/pkg/notify"
	"github.com/fieldops/console/pkg/store"
	"github.com/fieldops/console/pkg/system"
)

type fakeTasks struct {
	tasks []store.Task
	err   error
}

func (f *fakeTasks) ListDueBetween(_ context.Context, tenantID string, from, to time.Time) ([]store.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []store.Task
	for _, t := range f.tasks {
		if t.TenantID == tenantID && !t.DueAt.Before(from) && !t.DueAt.After(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeProjects struct {
	projects map[string]store.Project
}

func (f *fakeProjects) MapByID(_ context.Context, _ string) (map[string]store.Project, error) {
	return f.projects, nil
}

type fakeNotifier struct {
	emails   [][]string
	subjects []string
	bodies   []string
}

func (f *fakeNotifier) SendEmail(_ context.Context, recipients []string, subject, htmlBody string) []notify.Delivery {
	f.emails = append(f.emails, recipients)
	f.subjects = append(f.subjects, subject)
	f.bodies = append(f.bodies, htmlBody)
	out := make([]notify.Delivery, 0, len(recipients))
	for _, r := range recipients {
		out = append(out, notify.Delivery{Recipient: r, Channel: notify.ChannelEmail, Outcome: notify.OutcomeSent})
	}
	return out
}

var testTenant = store.Tenant{ID: "tenant-1", Name: "Acme Builders"}

func testProject() store.Project {
	return store.Project{
		ID:           "proj-1",
		TenantID:     testTenant.ID,
		Name:         "Riverside Build",
		ManagerEmail: "manager@acme.example",
		OwnerEmail:   "owner@acme.example",
	}
}

func dueTask(id string, due time.Time) store.Task {
	return store.Task{
		ID:        id,
		ProjectID: "proj-1",
		TenantID:  testTenant.ID,
		Kind:      store.KindChangeRequest,
		Title:     "Scope change approval",
		DueAt:     due,
	}
}

func newTestEngine(tasks *fakeTasks, projects *fakeProjects, notifier *fakeNotifier, now time.Time) *Engine {
	log := system.NewTestLogger()
	e := NewEngine(tasks, projects, notifier, audit.NewService(nil, log), "FieldOps Console", log)
	return e.WithClock(func() time.Time { return now })
}

func TestRunRemindsDueSoonTasks(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tasks := &fakeTasks{tasks: []store.Task{dueTask("task-1", now.Add(6*time.Hour))}}
	projects := &fakeProjects{projects: map[string]store.Project{"proj-1": testProject()}}
	notifier := &fakeNotifier{}
	engine := newTestEngine(tasks, projects, notifier, now)

	summary, err := engine.Run(context.Background(), testTenant, store.DefaultPreferences(testTenant.ID))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Scanned)
	assert.Equal(t, 1, summary.Reminded)
	require.Len(t, notifier.emails, 1)
	assert.ElementsMatch(t, []string{"manager@acme.example", "owner@acme.example"}, notifier.emails[0])
	// one delivery outcome per recipient
	assert.Equal(t, len(notifier.emails[0]), summary.Sent)
	assert.Contains(t, notifier.subjects[0], "Due soon")
	assert.Contains(t, notifier.bodies[0], "Scope change approval")
}

func TestRunIgnoresTasksOutsideWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tasks := &fakeTasks{tasks: []store.Task{
		dueTask("task-far", now.Add(80*time.Hour)),
		dueTask("task-past", now.Add(-2*time.Hour)),
	}}
	projects := &fakeProjects{projects: map[string]store.Project{"proj-1": testProject()}}
	notifier := &fakeNotifier{}
	engine := newTestEngine(tasks, projects, notifier, now)

	summary, err := engine.Run(context.Background(), testTenant, store.DefaultPreferences(testTenant.ID))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Reminded, "tasks outside the warn window are not reminded")
	assert.Empty(t, notifier.emails)
}

func TestRunSkipsSubmittedTasks(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	task := dueTask("task-1", now.Add(6*time.Hour))
	submitted := now.Add(-time.Hour)
	task.SubmittedAt = &submitted
	tasks := &fakeTasks{tasks: []store.Task{task}}
	projects := &fakeProjects{projects: map[string]store.Project{"proj-1": testProject()}}
	notifier := &fakeNotifier{}
	engine := newTestEngine(tasks, projects, notifier, now)

	summary, err := engine.Run(context.Background(), testTenant, store.DefaultPreferences(testTenant.ID))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Reminded)
	assert.Empty(t, notifier.emails)
}

func TestRunHonorsEmailPreference(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tasks := &fakeTasks{tasks: []store.Task{dueTask("task-1", now.Add(6*time.Hour))}}
	projects := &fakeProjects{projects: map[string]store.Project{"proj-1": testProject()}}
	notifier := &fakeNotifier{}
	engine := newTestEngine(tasks, projects, notifier, now)

	prefs := store.DefaultPreferences(testTenant.ID)
	prefs.EmailEnabled = false

	summary, err := engine.Run(context.Background(), testTenant, prefs)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Scanned, "listing is skipped entirely")
	assert.Empty(t, notifier.emails)
}

func TestRunIsolatesOrphanTasks(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	orphan := dueTask("task-orphan", now.Add(6*time.Hour))
	orphan.ProjectID = "proj-missing"
	tasks := &fakeTasks{tasks: []store.Task{orphan, dueTask("task-ok", now.Add(6*time.Hour))}}
	projects := &fakeProjects{projects: map[string]store.Project{"proj-1": testProject()}}
	notifier := &fakeNotifier{}
	engine := newTestEngine(tasks, projects, notifier, now)

	summary, err := engine.Run(context.Background(), testTenant, store.DefaultPreferences(testTenant.ID))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Reminded)
	assert.Equal(t, 1, summary.Errors)
}

func TestRunReturnsErrorWhenListFails(t *testing.T) {
	tasks := &fakeTasks{err: errors.New("timeout")}
	engine := newTestEngine(tasks, &fakeProjects{}, &fakeNotifier{}, time.Now())

	_, err := engine.Run(context.Background(), testTenant, store.DefaultPreferences(testTenant.ID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}
