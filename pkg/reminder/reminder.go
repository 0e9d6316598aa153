// Package reminder sends due-soon notices for tasks that are inside
// the warning window but not yet overdue. Reminders are advisory and
// fire at most once per scheduler tick per task; the job keeps no
// per-task state.
package reminder

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fieldops/console/pkg/audit"
	"github.com/fieldops/console/pkg/grading"
	"github.com/fieldops/console/pkg/metrics"
	"github.com/fieldops/console/pkg/notify"
	"github.com/fieldops/console/pkg/store"
)

// DefaultWarnWindow is how far ahead of the due time a task becomes
// eligible for a reminder.
const DefaultWarnWindow = 24 * time.Hour

// TaskSource is the slice of the task repository the job needs.
type TaskSource interface {
	ListDueBetween(ctx context.Context, tenantID string, from, to time.Time) ([]store.Task, error)
}

// ProjectSource resolves a tenant's projects for recipient lookup.
type ProjectSource interface {
	MapByID(ctx context.Context, tenantID string) (map[string]store.Project, error)
}

// Notifier is the slice of the dispatcher the job needs.
type Notifier interface {
	SendEmail(ctx context.Context, recipients []string, subject, htmlBody string) []notify.Delivery
}

// Summary is the JSON result of one reminder run over one tenant.
type Summary struct {
	Scanned  int `json:"scanned"`
	Reminded int `json:"reminded"`
	Sent     int `json:"sent"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

// Engine finds a tenant's due-soon tasks and mails the project leads.
type Engine struct {
	tasks      TaskSource
	projects   ProjectSource
	notifier   Notifier
	audit      *audit.Service
	log        *zap.SugaredLogger
	branding   string
	warnWindow time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewEngine creates a reminder Engine with the default warning window.
func NewEngine(tasks TaskSource, projects ProjectSource, notifier Notifier,
	auditSvc *audit.Service, branding string, log *zap.SugaredLogger,
) *Engine {
	return &Engine{
		tasks:      tasks,
		projects:   projects,
		notifier:   notifier,
		audit:      auditSvc,
		log:        log,
		branding:   branding,
		warnWindow: DefaultWarnWindow,
		now:        time.Now,
	}
}

// Run mails one reminder per due-soon task. Single-task failures are
// counted and logged; they never abort the batch.
func (e *Engine) Run(ctx context.Context, tenant store.Tenant, prefs store.Preferences) (Summary, error) {
	now := e.now()
	summary := Summary{}

	if !prefs.EmailEnabled {
		e.log.Debugw("Email disabled for tenant, skipping reminders", "tenant", tenant.ID)
		return summary, nil
	}

	tasks, err := e.tasks.ListDueBetween(ctx, tenant.ID, now, now.Add(e.warnWindow))
	if err != nil {
		return summary, fmt.Errorf("listing due-soon tasks for tenant %s: %w", tenant.ID, err)
	}
	projects, err := e.projects.MapByID(ctx, tenant.ID)
	if err != nil {
		return summary, fmt.Errorf("listing projects for tenant %s: %w", tenant.ID, err)
	}

	warnMinutes := int(e.warnWindow.Minutes())
	for _, task := range tasks {
		summary.Scanned++
		metrics.TasksScanned.WithLabelValues("reminders", tenant.ID).Inc()

		if grading.BinaryWindow(task.DueAt, task.SubmittedAt, warnMinutes, now) != grading.GradeAtRisk {
			continue
		}
		if err := e.remind(ctx, tenant, projects, task, &summary); err != nil {
			summary.Errors++
			e.log.Errorw("Failed to send reminder",
				"tenant", tenant.ID, "task", task.ID, "error", err)
		}
	}

	e.log.Infow("Reminder run finished",
		"tenant", tenant.ID,
		"scanned", summary.Scanned,
		"reminded", summary.Reminded,
		"errors", summary.Errors)
	return summary, nil
}

func (e *Engine) remind(ctx context.Context, tenant store.Tenant,
	projects map[string]store.Project, task store.Task, summary *Summary,
) error {
	project, ok := projects[task.ProjectID]
	if !ok {
		return fmt.Errorf("task %s references unknown project %s", task.ID, task.ProjectID)
	}

	recipients := leadEmails(project)
	if len(recipients) == 0 {
		e.log.Warnw("Project has no lead emails, skipping reminder",
			"tenant", tenant.ID, "task", task.ID, "project", project.Name)
		return nil
	}

	body, err := notify.RenderReminder(notify.ReminderMailParams{
		TenantName:   tenant.Name,
		ProjectName:  project.Name,
		TaskTitle:    task.Title,
		TaskKind:     string(task.Kind),
		DueAt:        task.DueAt.Format(time.RFC1123),
		GradeLabel:   grading.GradeAtRisk.Label(),
		BrandingName: e.branding,
	})
	if err != nil {
		return fmt.Errorf("rendering reminder mail: %w", err)
	}
	subject := fmt.Sprintf("[%s] Due soon: %s", project.Name, task.Title)

	deliveries := e.notifier.SendEmail(ctx, recipients, subject, body)
	sent, skipped, failed := notify.CountOutcomes(deliveries)
	summary.Reminded++
	summary.Sent += sent
	summary.Skipped += skipped
	summary.Errors += failed
	metrics.RemindersSent.WithLabelValues(tenant.ID).Inc()

	e.audit.Record(ctx, audit.Event{
		Type:      audit.EventReminderSent,
		TenantID:  tenant.ID,
		ProjectID: project.ID,
		TaskID:    task.ID,
		Details: map[string]string{
			"dueAt":      task.DueAt.Format(time.RFC3339),
			"recipients": fmt.Sprintf("%d", len(recipients)),
		},
	})
	return nil
}

// leadEmails returns the project's manager and owner emails, deduped.
func leadEmails(project store.Project) []string {
	var out []string
	seen := map[string]struct{}{}
	for _, addr := range []string{project.ManagerEmail, project.OwnerEmail} {
		if addr == "" {
			continue
		}
		key := strings.ToLower(addr)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	return out
}

// WithWarnWindow overrides the warning window. Test hook.
func (e *Engine) WithWarnWindow(d time.Duration) *Engine {
	e.warnWindow = d
	return e
}

// WithClock overrides the engine's clock. Test hook.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}
