package escalation

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

// TaskSource is the slice of the task repository the engine needs.
type TaskSource interface {
	ListOverdue(ctx context.Context, tenantID string, now time.Time) ([]store.Task, error)
	MarkEscalated(ctx context.Context, id string, now time.Time, cooldown time.Duration) (bool, error)
}

// ProjectSource resolves a tenant's projects for recipient lookup.
type ProjectSource interface {
	MapByID(ctx context.Context, tenantID string) (map[string]store.Project, error)
}

// Notifier is the slice of the dispatcher the engine needs.
type Notifier interface {
	SendEmail(ctx context.Context, recipients []string, subject, htmlBody string) []notify.Delivery
	SendSMS(ctx context.Context, recipients []string, message string) []notify.Delivery
}

// Summary is the JSON result of one engine run over one tenant.
type Summary struct {
	Scanned    int `json:"scanned"`
	Escalated  int `json:"escalated"`
	Suppressed int `json:"suppressed"`
	Sent       int `json:"sent"`
	Skipped    int `json:"skipped"`
	Errors     int `json:"errors"`
}

// Engine finds a tenant's overdue tasks, walks the category ladder for
// each, and fires at most one escalation per cooldown window per task.
type Engine struct {
	tasks    TaskSource
	projects ProjectSource
	notifier Notifier
	ladders  *Ladders
	audit    *audit.Service
	log      *zap.SugaredLogger
	branding string

	// now is swappable for tests.
	now func() time.Time
}

// NewEngine creates an escalation Engine.
func NewEngine(tasks TaskSource, projects ProjectSource, notifier Notifier, ladders *Ladders,
	auditSvc *audit.Service, branding string, log *zap.SugaredLogger,
) *Engine {
	return &Engine{
		tasks:    tasks,
		projects: projects,
		notifier: notifier,
		ladders:  ladders,
		audit:    auditSvc,
		log:      log,
		branding: branding,
		now:      time.Now,
	}
}

// Run evaluates every overdue task of one tenant. Single-task failures
// are logged with tenant and task ids and counted; they never abort the
// rest of the batch. The returned error is reserved for failures that
// prevent the run entirely, such as the initial datastore reads.
func (e *Engine) Run(ctx context.Context, tenant store.Tenant, prefs store.Preferences) (Summary, error) {
	now := e.now()
	summary := Summary{}

	tasks, err := e.tasks.ListOverdue(ctx, tenant.ID, now)
	if err != nil {
		return summary, fmt.Errorf("listing overdue tasks for tenant %s: %w", tenant.ID, err)
	}
	projects, err := e.projects.MapByID(ctx, tenant.ID)
	if err != nil {
		return summary, fmt.Errorf("listing projects for tenant %s: %w", tenant.ID, err)
	}

	e.log.Debugw("Evaluating overdue tasks", "tenant", tenant.ID, "count", len(tasks))

	for _, task := range tasks {
		summary.Scanned++
		metrics.TasksScanned.WithLabelValues("escalations", tenant.ID).Inc()

		if err := e.evaluate(ctx, tenant, prefs, projects, task, now, &summary); err != nil {
			summary.Errors++
			e.log.Errorw("Failed to evaluate task for escalation",
				"tenant", tenant.ID, "task", task.ID, "error", err)
		}
	}

	e.log.Infow("Escalation run finished",
		"tenant", tenant.ID,
		"scanned", summary.Scanned,
		"escalated", summary.Escalated,
		"suppressed", summary.Suppressed,
		"errors", summary.Errors)
	return summary, nil
}

func (e *Engine) evaluate(ctx context.Context, tenant store.Tenant, prefs store.Preferences,
	projects map[string]store.Project, task store.Task, now time.Time, summary *Summary,
) error {
	project, ok := projects[task.ProjectID]
	if !ok {
		return fmt.Errorf("task %s references unknown project %s", task.ID, task.ProjectID)
	}

	overdue := now.Sub(task.DueAt)
	ladder := e.ladders.For(project.Category)
	pacing := e.pacing(ladder, prefs)

	if overdue < pacing {
		return nil
	}
	step, ok := ladder.StepFor(overdue)
	if !ok {
		// Eligible by pacing but below the first rung; nothing to
		// notify yet.
		e.log.Debugw("Task overdue but below first ladder step",
			"tenant", tenant.ID, "task", task.ID, "category", ladder.Category)
		return nil
	}

	// The conditional update is the sole cooldown and concurrency gate:
	// whichever run claims the task first wins, and escalated_at is set
	// before any dispatch so delivery failures never reopen the window.
	claimed, err := e.tasks.MarkEscalated(ctx, task.ID, now, pacing)
	if err != nil {
		return err
	}
	if !claimed {
		summary.Suppressed++
		metrics.EscalationsSuppressed.WithLabelValues(tenant.ID).Inc()
		e.log.Debugw("Escalation suppressed by cooldown",
			"tenant", tenant.ID, "task", task.ID, "lastEscalatedAt", task.EscalatedAt)
		return nil
	}

	emails, phones := resolveRecipients(project, step)
	e.log.Infow("Escalating overdue task",
		"tenant", tenant.ID,
		"task", task.ID,
		"project", project.Name,
		"role", step.Role,
		"overdueHours", int(overdue.Hours()),
		"emailRecipients", len(emails),
		"smsRecipients", len(phones))

	var deliveries []notify.Delivery
	if prefs.EmailEnabled && len(emails) > 0 {
		subject := fmt.Sprintf("[%s] Overdue: %s", project.Name, task.Title)
		body, err := notify.RenderEscalation(notify.EscalationMailParams{
			TenantName:   tenant.Name,
			ProjectName:  project.Name,
			TaskTitle:    task.Title,
			TaskKind:     string(task.Kind),
			DueAt:        task.DueAt.Format(time.RFC1123),
			OverdueHours: fmt.Sprintf("%d", int(overdue.Hours())),
			Role:         step.Role,
			BrandingName: e.branding,
		})
		if err != nil {
			return fmt.Errorf("rendering escalation mail: %w", err)
		}
		deliveries = append(deliveries, e.notifier.SendEmail(ctx, emails, subject, body)...)
	}
	if prefs.SMSEnabled && len(phones) > 0 {
		msg := fmt.Sprintf("%s: %q on %s is overdue by %dh and needs the %s. Grade: %s",
			tenant.Name, task.Title, project.Name, int(overdue.Hours()),
			strings.ReplaceAll(step.Role, "_", " "),
			grading.GradeOverdue.Label())
		deliveries = append(deliveries, e.notifier.SendSMS(ctx, phones, msg)...)
	}

	sent, skipped, failed := notify.CountOutcomes(deliveries)
	summary.Escalated++
	summary.Sent += sent
	summary.Skipped += skipped
	summary.Errors += failed
	metrics.EscalationsFired.WithLabelValues(tenant.ID, step.Role).Inc()

	e.audit.Record(ctx, audit.Event{
		Type:      audit.EventEscalationFired,
		TenantID:  tenant.ID,
		ProjectID: project.ID,
		TaskID:    task.ID,
		Details: map[string]string{
			"role":         step.Role,
			"category":     ladder.Category,
			"overdueHours": fmt.Sprintf("%d", int(overdue.Hours())),
			"recipients":   fmt.Sprintf("%d", len(emails)+len(phones)),
		},
	})
	return nil
}

// pacing picks the effective trigger/cooldown interval. The ladder's
// own defaultHours wins; the tenant preference only paces ladders that
// carry no pacing of their own.
func (e *Engine) pacing(ladder Ladder, prefs store.Preferences) time.Duration {
	if ladder.DefaultHours > 0 {
		return ladder.Cooldown()
	}
	if prefs.EscalationAfterHours > 0 {
		return time.Duration(prefs.EscalationAfterHours) * time.Hour
	}
	return time.Duration(store.DefaultPreferences("").EscalationAfterHours) * time.Hour
}

// resolveRecipients returns the union of the project's manager/owner
// emails and the structured contacts whose role matches the selected
// step, plus the SMS phone set. Role matching is case-insensitive and
// duplicates are removed while preserving first-seen order.
func resolveRecipients(project store.Project, step Step) (emails, phones []string) {
	seenMail := map[string]struct{}{}
	addMail := func(addr string) {
		if addr == "" {
			return
		}
		key := strings.ToLower(addr)
		if _, dup := seenMail[key]; dup {
			return
		}
		seenMail[key] = struct{}{}
		emails = append(emails, addr)
	}
	seenPhone := map[string]struct{}{}
	addPhone := func(num string) {
		if num == "" {
			return
		}
		if _, dup := seenPhone[num]; dup {
			return
		}
		seenPhone[num] = struct{}{}
		phones = append(phones, num)
	}

	addMail(project.ManagerEmail)
	addMail(project.OwnerEmail)
	addPhone(project.SupervisorPhone)

	for _, c := range project.Contacts {
		if !strings.EqualFold(c.Role, step.Role) {
			continue
		}
		addMail(c.Email)
		addPhone(c.Phone)
	}
	return emails, phones
}

// WithClock overrides the engine's clock. Test hook.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}
