// Package digest rolls a window of tasks up into one summary notice
// per tenant. Aggregation is read-only: the digest holds no cooldown
// state and runs on a fixed calendar cadence.
package digest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/fieldops/console/pkg/audit"
	"github.com/fieldops/console/pkg/grading"
	"github.com/fieldops/console/pkg/metrics"
	"github.com/fieldops/console/pkg/notify"
	"github.com/fieldops/console/pkg/store"
)

// Default aggregation window: one week back, one week forward.
const (
	DefaultLookback  = 7 * 24 * time.Hour
	DefaultLookahead = 7 * 24 * time.Hour
)

// TaskSource is the slice of the task repository the aggregator needs.
type TaskSource interface {
	ListWindow(ctx context.Context, tenantID string, from, to time.Time) ([]store.Task, error)
}

// ProjectSource lists a tenant's projects in stable name order.
type ProjectSource interface {
	ListByTenant(ctx context.Context, tenantID string) ([]store.Project, error)
}

// Notifier is the slice of the dispatcher the aggregator needs.
type Notifier interface {
	SendEmail(ctx context.Context, recipients []string, subject, htmlBody string) []notify.Delivery
}

// Summary is the JSON result of one digest run over one tenant.
type Summary struct {
	Scanned    int `json:"scanned"`
	Projects   int `json:"projects"`
	Recipients int `json:"recipients"`
	Sent       int `json:"sent"`
	Skipped    int `json:"skipped"`
	Errors     int `json:"errors"`
}

// Aggregator builds and sends the periodic rollup for one tenant.
type Aggregator struct {
	tasks     TaskSource
	projects  ProjectSource
	notifier  Notifier
	audit     *audit.Service
	log       *zap.SugaredLogger
	branding  string
	lookback  time.Duration
	lookahead time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewAggregator creates a digest Aggregator with the default window.
func NewAggregator(tasks TaskSource, projects ProjectSource, notifier Notifier,
	auditSvc *audit.Service, branding string, log *zap.SugaredLogger,
) *Aggregator {
	return &Aggregator{
		tasks:     tasks,
		projects:  projects,
		notifier:  notifier,
		audit:     auditSvc,
		log:       log,
		branding:  branding,
		lookback:  DefaultLookback,
		lookahead: DefaultLookahead,
		now:       time.Now,
	}
}

// Run aggregates the tenant's window and sends one digest. Tenants with
// no tasks in the window or no resolvable recipients are skipped
// without sending.
func (a *Aggregator) Run(ctx context.Context, tenant store.Tenant, prefs store.Preferences) (Summary, error) {
	now := a.now()
	from := now.Add(-a.lookback)
	to := now.Add(a.lookahead)
	summary := Summary{}

	tasks, err := a.tasks.ListWindow(ctx, tenant.ID, from, to)
	if err != nil {
		return summary, fmt.Errorf("listing window tasks for tenant %s: %w", tenant.ID, err)
	}
	projects, err := a.projects.ListByTenant(ctx, tenant.ID)
	if err != nil {
		return summary, fmt.Errorf("listing projects for tenant %s: %w", tenant.ID, err)
	}
	summary.Scanned = len(tasks)
	metrics.TasksScanned.WithLabelValues("digest", tenant.ID).Add(float64(len(tasks)))

	if len(tasks) == 0 {
		a.log.Debugw("No tasks in digest window, skipping tenant", "tenant", tenant.ID)
		return summary, nil
	}

	params := a.build(tenant, projects, tasks, from, to, now)
	summary.Projects = len(params.Groups)

	recipients := resolveRecipients(projects)
	summary.Recipients = len(recipients)
	if len(recipients) == 0 {
		a.log.Warnw("Digest has no resolvable recipients, skipping tenant", "tenant", tenant.ID)
		return summary, nil
	}
	if !prefs.EmailEnabled {
		a.log.Debugw("Email disabled for tenant, skipping digest send", "tenant", tenant.ID)
		return summary, nil
	}

	body, err := notify.RenderDigest(params)
	if err != nil {
		return summary, fmt.Errorf("rendering digest for tenant %s: %w", tenant.ID, err)
	}
	subject := fmt.Sprintf("%s task digest: %d late, %d due soon", tenant.Name, params.RedCount, params.AmberCount)

	deliveries := a.notifier.SendEmail(ctx, recipients, subject, body)
	sent, skipped, failed := notify.CountOutcomes(deliveries)
	summary.Sent = sent
	summary.Skipped = skipped
	summary.Errors = failed

	metrics.DigestsSent.WithLabelValues(tenant.ID).Inc()
	a.audit.Record(ctx, audit.Event{
		Type:     audit.EventDigestSent,
		TenantID: tenant.ID,
		Details: map[string]string{
			"tasks":      fmt.Sprintf("%d", len(tasks)),
			"projects":   fmt.Sprintf("%d", len(params.Groups)),
			"recipients": fmt.Sprintf("%d", len(recipients)),
		},
	})

	a.log.Infow("Digest sent",
		"tenant", tenant.ID,
		"tasks", len(tasks),
		"projects", len(params.Groups),
		"recipients", len(recipients),
		"sent", sent,
		"failed", failed)
	return summary, nil
}

// build grades every task and groups the rows by project in stable
// order: project name ascending, then due time ascending.
func (a *Aggregator) build(tenant store.Tenant, projects []store.Project, tasks []store.Task,
	from, to, now time.Time,
) notify.DigestMailParams {
	byProject := make(map[string][]store.Task)
	for _, t := range tasks {
		byProject[t.ProjectID] = append(byProject[t.ProjectID], t)
	}

	params := notify.DigestMailParams{
		TenantName:   tenant.Name,
		WindowStart:  from.Format("Mon, 02 Jan 2006"),
		WindowEnd:    to.Format("Mon, 02 Jan 2006"),
		BrandingName: a.branding,
	}

	// Projects arrive name-ascending from the store; keep that order.
	for _, p := range projects {
		group := byProject[p.ID]
		if len(group) == 0 {
			continue
		}
		sort.SliceStable(group, func(i, j int) bool { return group[i].DueAt.Before(group[j].DueAt) })

		dg := notify.DigestGroup{ProjectName: p.Name}
		policy := policyFor(p)
		for _, t := range group {
			grade := grading.TriStateSLA(t.DueAt, t.SubmittedAt, policy, now)
			switch grade {
			case grading.SLAGreen:
				params.GreenCount++
			case grading.SLAAmber:
				params.AmberCount++
			case grading.SLARed:
				params.RedCount++
			}
			dg.Rows = append(dg.Rows, notify.DigestRow{
				Title:      t.Title,
				Kind:       string(t.Kind),
				DueAt:      t.DueAt.Format("Mon, 02 Jan 15:04"),
				GradeLabel: grade.Label(),
			})
		}
		params.Groups = append(params.Groups, dg)
	}
	return params
}

// policyFor returns the project's SLA policy, falling back to the
// global default when the project carries none.
func policyFor(p store.Project) grading.SLAPolicy {
	policy := grading.DefaultSLAPolicy
	if p.AtRiskMinutes != nil {
		policy.AtRiskMinutes = *p.AtRiskMinutes
	}
	if p.RedMinutes != nil {
		policy.RedMinutes = *p.RedMinutes
	}
	return policy
}

// resolveRecipients returns the distinct manager and supervisor emails
// across the tenant's projects, first-seen order preserved.
func resolveRecipients(projects []store.Project) []string {
	seen := map[string]struct{}{}
	var out []string
	add := func(addr string) {
		if addr == "" {
			return
		}
		key := strings.ToLower(addr)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		out = append(out, addr)
	}
	for _, p := range projects {
		add(p.ManagerEmail)
		for _, c := range p.Contacts {
			if strings.Contains(strings.ToLower(c.Role), "supervisor") {
				add(c.Email)
			}
		}
	}
	return out
}

// WithWindow overrides the aggregation window. Test hook.
func (a *Aggregator) WithWindow(lookback, lookahead time.Duration) *Aggregator {
	a.lookback = lookback
	a.lookahead = lookahead
	return a
}

// WithClock overrides the aggregator's clock. Test hook.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}
