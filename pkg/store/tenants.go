package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TenantRepository handles tenant enumeration and the per-tenant
// feature-override and preference rows.
type TenantRepository struct {
	pool *pgxpool.Pool
}

// ListActive returns all active tenants, the scheduler's iteration set.
func (r *TenantRepository) ListActive(ctx context.Context) ([]Tenant, error) {
	query := `SELECT id, name, active FROM tenants WHERE active ORDER BY id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying tenants: %w", err)
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Active); err != nil {
			return nil, fmt.Errorf("scanning tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// GetFeatureOverride returns the tenant's override row. ErrNotFound
// means no row exists, which callers treat as all-unset.
func (r *TenantRepository) GetFeatureOverride(ctx context.Context, tenantID string) (*FeatureOverride, error) {
	query := `
		SELECT tenant_id, reminders, escalations, weekly_digest
		FROM feature_overrides
		WHERE tenant_id = $1
	`
	o := &FeatureOverride{}
	err := r.pool.QueryRow(ctx, query, tenantID).Scan(&o.TenantID, &o.Reminders, &o.Escalations, &o.WeeklyDigest)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying feature override for tenant %s: %w", tenantID, err)
	}
	return o, nil
}

// GetGlobalOverride returns the single global override row (stored with
// an empty tenant id). ErrNotFound means all-unset.
func (r *TenantRepository) GetGlobalOverride(ctx context.Context) (*FeatureOverride, error) {
	query := `
		SELECT tenant_id, reminders, escalations, weekly_digest
		FROM feature_overrides
		WHERE tenant_id = ''
	`
	o := &FeatureOverride{}
	err := r.pool.QueryRow(ctx, query).Scan(&o.TenantID, &o.Reminders, &o.Escalations, &o.WeeklyDigest)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying global feature override: %w", err)
	}
	return o, nil
}

// UpsertFeatureOverride writes the override row, keeping at most one
// row per tenant. Nil fields are stored as NULL and keep their
// "inherit" meaning through the round trip.
func (r *TenantRepository) UpsertFeatureOverride(ctx context.Context, o FeatureOverride) error {
	query := `
		INSERT INTO feature_overrides (tenant_id, reminders, escalations, weekly_digest)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id) DO UPDATE
		SET reminders = $2, escalations = $3, weekly_digest = $4
	`
	if _, err := r.pool.Exec(ctx, query, o.TenantID, o.Reminders, o.Escalations, o.WeeklyDigest); err != nil {
		return fmt.Errorf("upserting feature override for tenant %q: %w", o.TenantID, err)
	}
	return nil
}

// GetPreferences returns the tenant's preference row. ErrNotFound means
// no row exists; callers fall back to DefaultPreferences.
func (r *TenantRepository) GetPreferences(ctx context.Context, tenantID string) (*Preferences, error) {
	query := `
		SELECT tenant_id, email_enabled, sms_enabled, daily_digest, weekly_digest, timezone, escalation_after_hours
		FROM notification_preferences
		WHERE tenant_id = $1
	`
	p := &Preferences{}
	err := r.pool.QueryRow(ctx, query, tenantID).Scan(
		&p.TenantID,
		&p.EmailEnabled,
		&p.SMSEnabled,
		&p.DailyDigest,
		&p.WeeklyDigest,
		&p.Timezone,
		&p.EscalationAfterHours,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying preferences for tenant %s: %w", tenantID, err)
	}
	return p, nil
}

// UpsertPreferences writes the tenant's preference row.
func (r *TenantRepository) UpsertPreferences(ctx context.Context, p Preferences) error {
	query := `
		INSERT INTO notification_preferences
		    (tenant_id, email_enabled, sms_enabled, daily_digest, weekly_digest, timezone, escalation_after_hours)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (tenant_id) DO UPDATE
		SET email_enabled = $2, sms_enabled = $3, daily_digest = $4,
		    weekly_digest = $5, timezone = $6, escalation_after_hours = $7
	`
	if _, err := r.pool.Exec(ctx, query,
		p.TenantID, p.EmailEnabled, p.SMSEnabled, p.DailyDigest,
		p.WeeklyDigest, p.Timezone, p.EscalationAfterHours,
	); err != nil {
		return fmt.Errorf("upserting preferences for tenant %s: %w", p.TenantID, err)
	}
	return nil
}
