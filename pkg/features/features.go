// Package features resolves the effective per-tenant feature set by
// layering three configuration sources: process defaults, a global
// override row, and a tenant override row. Each layer may leave any key
// unset, in which case the value from the layer below passes through.
package features

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/fieldops/console/pkg/store"
)

// Key identifies one gated feature.
type Key string

const (
	KeyReminders    Key = "REMINDERS"
	KeyEscalations  Key = "ESCALATIONS"
	KeyWeeklyDigest Key = "WEEKLY_DIGEST"
)

// Keys lists every known feature in a stable order.
var Keys = []Key{KeyReminders, KeyEscalations, KeyWeeklyDigest}

// Defaults is the lowest layer, sourced from the process configuration.
type Defaults struct {
	Reminders    bool `yaml:"reminders"`
	Escalations  bool `yaml:"escalations"`
	WeeklyDigest bool `yaml:"weeklyDigest"`
}

// Set is one resolved flag per feature key.
type Set map[Key]bool

// Enabled reports the resolved value for a key; unknown keys are false.
func (s Set) Enabled(k Key) bool { return s[k] }

// OverrideSource supplies the two datastore-backed override layers.
// *store.TenantRepository satisfies it.
type OverrideSource interface {
	GetGlobalOverride(ctx context.Context) (*store.FeatureOverride, error)
	GetFeatureOverride(ctx context.Context, tenantID string) (*store.FeatureOverride, error)
}

// Resolver resolves effective flag sets. Results are computed fresh on
// every call so jobs always observe live configuration; nothing is
// cached between resolutions.
type Resolver struct {
	defaults Defaults
	source   OverrideSource
	log      *zap.SugaredLogger
}

// NewResolver creates a Resolver over the given default layer.
func NewResolver(defaults Defaults, source OverrideSource, log *zap.SugaredLogger) *Resolver {
	return &Resolver{defaults: defaults, source: source, log: log}
}

// Resolve layers the three sources into one effective set for a tenant.
//
// A datastore read failure on an override layer degrades to the layer
// below instead of failing the resolution: feature gating fails open to
// the configured defaults. That choice is deliberate and documented;
// deployments that need fail-closed gating set their defaults to false.
func (r *Resolver) Resolve(ctx context.Context, tenantID string) Set {
	set := Set{
		KeyReminders:    r.defaults.Reminders,
		KeyEscalations:  r.defaults.Escalations,
		KeyWeeklyDigest: r.defaults.WeeklyDigest,
	}

	global, err := r.source.GetGlobalOverride(ctx)
	switch {
	case err == nil:
		applyOverride(set, global)
	case errors.Is(err, store.ErrNotFound):
		// No global row means all-unset.
	default:
		r.log.Warnw("Failed to read global feature overrides, using defaults layer",
			"tenant", tenantID, "error", err)
	}

	tenant, err := r.source.GetFeatureOverride(ctx, tenantID)
	switch {
	case err == nil:
		applyOverride(set, tenant)
	case errors.Is(err, store.ErrNotFound):
		// No tenant row means all-unset.
	default:
		r.log.Warnw("Failed to read tenant feature overrides, using lower layers",
			"tenant", tenantID, "error", err)
	}

	return set
}

// applyOverride copies only the set (non-nil) fields of an override row
// into the working set. This is a per-key coalesce, not a record-level
// replacement: a row overriding one feature inherits all others.
func applyOverride(set Set, o *store.FeatureOverride) {
	if o == nil {
		return
	}
	if o.Reminders != nil {
		set[KeyReminders] = *o.Reminders
	}
	if o.Escalations != nil {
		set[KeyEscalations] = *o.Escalations
	}
	if o.WeeklyDigest != nil {
		set[KeyWeeklyDigest] = *o.WeeklyDigest
	}
}
