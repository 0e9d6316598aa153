// Package scheduler drives the periodic background jobs: escalation
// scans, due-soon reminders and the digest. Each job ticks on its own
// interval, walks every active tenant, and honors the tenant's feature
// flags and notification preferences before doing any work. A failing
// tenant never stops the sweep and a failing job tick never stops the
// runner.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fieldops/console/pkg/features"
	"github.com/fieldops/console/pkg/metrics"
	"github.com/fieldops/console/pkg/store"
)

var (
	// ErrUnknownJob is returned when a trigger names no registered job.
	ErrUnknownJob = errors.New("unknown job")
	// ErrUnknownTenant is returned when a trigger names a tenant that
	// is missing or inactive.
	ErrUnknownTenant = errors.New("unknown or inactive tenant")
)

// TenantSource enumerates tenants and their notification preferences.
type TenantSource interface {
	ListActive(ctx context.Context) ([]store.Tenant, error)
	GetPreferences(ctx context.Context, tenantID string) (*store.Preferences, error)
}

// FeatureSource resolves the effective feature set for one tenant.
type FeatureSource interface {
	Resolve(ctx context.Context, tenantID string) features.Set
}

// Job is one schedulable sweep. Run handles a single tenant and
// returns a job-specific summary for the trigger endpoint.
type Job struct {
	// Name identifies the job in logs, metrics and the API.
	Name string

	// Feature gates the job per tenant; tenants whose resolved set
	// disables it are skipped.
	Feature features.Key

	// Interval is the tick cadence when the runner is started.
	Interval time.Duration

	// Gate optionally adds a preference check on top of the feature
	// flag. Nil means the feature flag alone decides.
	Gate func(prefs store.Preferences) bool

	// Run processes one tenant.
	Run func(ctx context.Context, tenant store.Tenant, prefs store.Preferences) (any, error)
}

// TenantResult is the outcome of one job run over one tenant.
type TenantResult struct {
	TenantID string `json:"tenantId"`
	Outcome  string `json:"outcome"` // completed, skipped, failed
	Reason   string `json:"reason,omitempty"`
	Summary  any    `json:"summary,omitempty"`
}

// Runner owns the job set and the per-job tickers.
type Runner struct {
	tenants  TenantSource
	features FeatureSource
	log      *zap.SugaredLogger

	mu   sync.RWMutex
	jobs map[string]Job
}

// NewRunner creates a Runner with no jobs registered.
func NewRunner(tenants TenantSource, featureSource FeatureSource, log *zap.SugaredLogger) *Runner {
	return &Runner{
		tenants:  tenants,
		features: featureSource,
		log:      log,
		jobs:     map[string]Job{},
	}
}

// Register adds a job. Registering a duplicate name is a programming
// error and panics during startup wiring.
func (r *Runner) Register(job Job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.jobs[job.Name]; dup {
		panic(fmt.Sprintf("scheduler: job %q registered twice", job.Name))
	}
	r.jobs[job.Name] = job
}

// JobNames returns the registered job names, sorted.
func (r *Runner) JobNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start launches one ticker goroutine per job with a positive interval
// and returns immediately. Tickers stop when ctx is canceled.
func (r *Runner) Start(ctx context.Context) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, job := range r.jobs {
		if job.Interval <= 0 {
			r.log.Warnw("Job has no interval, manual trigger only", "job", job.Name)
			continue
		}
		go r.tick(ctx, job)
	}
}

func (r *Runner) tick(ctx context.Context, job Job) {
	r.log.Infow("Starting job ticker", "job", job.Name, "interval", job.Interval)
	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Infow("Stopping job ticker", "job", job.Name)
			return
		case <-ticker.C:
			if _, err := r.RunJob(ctx, job.Name, ""); err != nil {
				r.log.Errorw("Job tick failed", "job", job.Name, "error", err)
			}
		}
	}
}

// RunJob sweeps one job over every active tenant, or over a single
// tenant when tenantID is set. The error return covers failures that
// prevent the sweep entirely; per-tenant failures land in the results.
func (r *Runner) RunJob(ctx context.Context, name, tenantID string) ([]TenantResult, error) {
	r.mu.RLock()
	job, ok := r.jobs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJob, name)
	}

	tenants, err := r.resolveTenants(ctx, tenantID)
	if err != nil {
		metrics.JobRuns.WithLabelValues(job.Name, "failure").Inc()
		return nil, err
	}

	results := make([]TenantResult, 0, len(tenants))
	failed := false
	for _, tenant := range tenants {
		result := r.runTenant(ctx, job, tenant)
		if result.Outcome == "failed" {
			failed = true
		}
		results = append(results, result)
	}

	outcome := "success"
	if failed {
		outcome = "partial_failure"
	}
	metrics.JobRuns.WithLabelValues(job.Name, outcome).Inc()
	r.log.Infow("Job sweep finished", "job", job.Name, "tenants", len(results), "outcome", outcome)
	return results, nil
}

func (r *Runner) resolveTenants(ctx context.Context, tenantID string) ([]store.Tenant, error) {
	tenants, err := r.tenants.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing active tenants: %w", err)
	}
	if tenantID == "" {
		return tenants, nil
	}
	for _, t := range tenants {
		if t.ID == tenantID {
			return []store.Tenant{t}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownTenant, tenantID)
}

func (r *Runner) runTenant(ctx context.Context, job Job, tenant store.Tenant) TenantResult {
	set := r.features.Resolve(ctx, tenant.ID)
	if !set.Enabled(job.Feature) {
		metrics.TenantsSkipped.WithLabelValues(job.Name, "feature_disabled").Inc()
		return TenantResult{TenantID: tenant.ID, Outcome: "skipped", Reason: "feature disabled"}
	}

	prefs, err := r.tenants.GetPreferences(ctx, tenant.ID)
	if errors.Is(err, store.ErrNotFound) {
		defaults := store.DefaultPreferences(tenant.ID)
		prefs = &defaults
		err = nil
	}
	if err != nil {
		metrics.JobTenantFailures.WithLabelValues(job.Name).Inc()
		r.log.Errorw("Failed to load tenant preferences",
			"job", job.Name, "tenant", tenant.ID, "error", err)
		return TenantResult{TenantID: tenant.ID, Outcome: "failed", Reason: err.Error()}
	}
	if job.Gate != nil && !job.Gate(*prefs) {
		metrics.TenantsSkipped.WithLabelValues(job.Name, "preference_disabled").Inc()
		return TenantResult{TenantID: tenant.ID, Outcome: "skipped", Reason: "disabled by preference"}
	}

	summary, err := job.Run(ctx, tenant, *prefs)
	if err != nil {
		metrics.JobTenantFailures.WithLabelValues(job.Name).Inc()
		r.log.Errorw("Job failed for tenant",
			"job", job.Name, "tenant", tenant.ID, "error", err)
		return TenantResult{TenantID: tenant.ID, Outcome: "failed", Reason: err.Error()}
	}
	return TenantResult{TenantID: tenant.ID, Outcome: "completed", Summary: summary}
}
