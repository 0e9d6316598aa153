package digest

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

func (f *fakeTasks) ListWindow(_ context.Context, tenantID string, from, to time.Time) ([]store.Task, error) {
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
	projects []store.Project
	err      error
}

func (f *fakeProjects) ListByTenant(_ context.Context, _ string) ([]store.Project, error) {
	return f.projects, f.err
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

// Projects are listed name-ascending by the store; the fixtures mirror
// that ordering.
func testProjects() []store.Project {
	return []store.Project{
		{
			ID: "proj-b", TenantID: testTenant.ID, Name: "Alders Court",
			ManagerEmail: "alders-pm@acme.example",
			Contacts: []store.Contact{
				{Role: "safety_supervisor", Name: "Lee", Email: "lee@acme.example"},
			},
		},
		{
			ID: "proj-a", TenantID: testTenant.ID, Name: "Birch Plaza",
			ManagerEmail: "birch-pm@acme.example",
		},
	}
}

func task(id, projectID, title string, due time.Time) store.Task {
	return store.Task{
		ID:        id,
		ProjectID: projectID,
		TenantID:  testTenant.ID,
		Kind:      store.KindUpdate,
		Title:     title,
		DueAt:     due,
	}
}

func newTestAggregator(tasks *fakeTasks, projects *fakeProjects, notifier *fakeNotifier, now time.Time) *Aggregator {
	log := system.NewTestLogger()
	a := NewAggregator(tasks, projects, notifier, audit.NewService(nil, log), "FieldOps Console", log)
	return a.WithClock(func() time.Time { return now })
}

func TestRunGroupsByProjectNameThenDue(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tasks := &fakeTasks{tasks: []store.Task{
		task("t3", "proj-a", "Pour inspection", now.Add(48*time.Hour)),
		task("t1", "proj-b", "Weekly update", now.Add(-3*time.Hour)),
		task("t2", "proj-a", "Permit renewal", now.Add(24*time.Hour)),
	}}
	projects := &fakeProjects{projects: testProjects()}
	notifier := &fakeNotifier{}
	agg := newTestAggregator(tasks, projects, notifier, now)

	summary, err := agg.Run(context.Background(), testTenant, store.DefaultPreferences(testTenant.ID))
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Scanned)
	assert.Equal(t, 2, summary.Projects)
	require.Len(t, notifier.bodies, 1)

	body := notifier.bodies[0]
	// Alders Court sorts before Birch Plaza; within Birch Plaza the
	// earlier due date comes first.
	aldersIdx := indexOf(t, body, "Alders Court")
	birchIdx := indexOf(t, body, "Birch Plaza")
	assert.Less(t, aldersIdx, birchIdx)
	assert.Less(t, indexOf(t, body, "Permit renewal"), indexOf(t, body, "Pour inspection"))
}

func indexOf(t *testing.T, haystack, needle string) int {
	t.Helper()
	idx := -1
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			idx = i
			break
		}
	}
	require.GreaterOrEqual(t, idx, 0, "expected %q in digest body", needle)
	return idx
}

func TestRunRecipientsAreLeadUnion(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tasks := &fakeTasks{tasks: []store.Task{task("t1", "proj-a", "Weekly update", now.Add(time.Hour))}}
	projects := &fakeProjects{projects: testProjects()}
	notifier := &fakeNotifier{}
	agg := newTestAggregator(tasks, projects, notifier, now)

	summary, err := agg.Run(context.Background(), testTenant, store.DefaultPreferences(testTenant.ID))
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Recipients)
	require.Len(t, notifier.emails, 1)
	assert.ElementsMatch(t,
		[]string{"alders-pm@acme.example", "lee@acme.example", "birch-pm@acme.example"},
		notifier.emails[0],
		"managers plus supervisor contacts across all projects")
}

func TestRunRecipientsDedupIgnoresCase(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tasks := &fakeTasks{tasks: []store.Task{task("t1", "proj-a", "Weekly update", now.Add(time.Hour))}}
	projects := testProjects()
	projects[1].ManagerEmail = "Alders-PM@acme.example"
	notifier := &fakeNotifier{}
	agg := newTestAggregator(tasks, &fakeProjects{projects: projects}, notifier, now)

	summary, err := agg.Run(context.Background(), testTenant, store.DefaultPreferences(testTenant.ID))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Recipients,
		"a manager address differing only in case is one recipient")
}

func TestRunSkipsTenantsWithoutTasks(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	notifier := &fakeNotifier{}
	agg := newTestAggregator(&fakeTasks{}, &fakeProjects{projects: testProjects()}, notifier, now)

	summary, err := agg.Run(context.Background(), testTenant, store.DefaultPreferences(testTenant.ID))
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Sent)
	assert.Empty(t, notifier.emails, "empty window sends nothing")
}

func TestRunHonorsEmailPreference(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tasks := &fakeTasks{tasks: []store.Task{task("t1", "proj-a", "Weekly update", now.Add(time.Hour))}}
	notifier := &fakeNotifier{}
	agg := newTestAggregator(tasks, &fakeProjects{projects: testProjects()}, notifier, now)

	prefs := store.DefaultPreferences(testTenant.ID)
	prefs.EmailEnabled = false

	_, err := agg.Run(context.Background(), testTenant, prefs)
	require.NoError(t, err)
	assert.Empty(t, notifier.emails)
}

func TestRunCountsGrades(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	late := task("t-late", "proj-a", "Old update", now.Add(-30*time.Hour))
	amber := task("t-amber", "proj-a", "Slightly late", now.Add(-90*time.Minute))
	green := task("t-green", "proj-a", "Future update", now.Add(24*time.Hour))
	tasks := &fakeTasks{tasks: []store.Task{late, amber, green}}
	notifier := &fakeNotifier{}
	agg := newTestAggregator(tasks, &fakeProjects{projects: testProjects()}, notifier, now)

	_, err := agg.Run(context.Background(), testTenant, store.DefaultPreferences(testTenant.ID))
	require.NoError(t, err)

	require.Len(t, notifier.subjects, 1)
	assert.Contains(t, notifier.subjects[0], "1 late")
	assert.Contains(t, notifier.subjects[0], "1 due soon")
}

func TestRunUsesProjectSLAOverrides(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	// With a 30-minute red threshold a task 90 minutes late is RED
	// instead of the default AMBER.
	redMinutes := 30
	atRisk := 10
	projects := testProjects()
	projects[1].AtRiskMinutes = &atRisk
	projects[1].RedMinutes = &redMinutes

	tasks := &fakeTasks{tasks: []store.Task{task("t1", "proj-a", "Slightly late", now.Add(-90*time.Minute))}}
	notifier := &fakeNotifier{}
	agg := newTestAggregator(tasks, &fakeProjects{projects: projects}, notifier, now)

	_, err := agg.Run(context.Background(), testTenant, store.DefaultPreferences(testTenant.ID))
	require.NoError(t, err)
	require.Len(t, notifier.subjects, 1)
	assert.Contains(t, notifier.subjects[0], "1 late")
}

func TestRunReturnsErrorWhenListFails(t *testing.T) {
	tasks := &fakeTasks{err: errors.New("connection reset")}
	agg := newTestAggregator(tasks, &fakeProjects{}, &fakeNotifier{}, time.Now())

	_, err := agg.Run(context.Background(), testTenant, store.DefaultPreferences(testTenant.ID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}
