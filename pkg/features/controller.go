package features

import (
	"context"
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fieldops/console/pkg/apiresponses"
	"github.com/fieldops/console/pkg/audit"
	"github.com/fieldops/console/pkg/metrics"
	"github.com/fieldops/console/pkg/store"
)

// SettingsStore is the slice of the tenant repository the controller
// needs for reading and writing overrides and preferences.
type SettingsStore interface {
	GetFeatureOverride(ctx context.Context, tenantID string) (*store.FeatureOverride, error)
	UpsertFeatureOverride(ctx context.Context, o store.FeatureOverride) error
	GetPreferences(ctx context.Context, tenantID string) (*store.Preferences, error)
	UpsertPreferences(ctx context.Context, p store.Preferences) error
}

// Controller exposes tenant settings: the raw feature override row,
// the resolved effective set, and notification preferences.
type Controller struct {
	settings SettingsStore
	resolver *Resolver
	audit    *audit.Service
	log      *zap.SugaredLogger
}

// NewController creates the settings controller.
func NewController(settings SettingsStore, resolver *Resolver, auditSvc *audit.Service, log *zap.SugaredLogger) *Controller {
	return &Controller{settings: settings, resolver: resolver, audit: auditSvc, log: log}
}

func (fc *Controller) BasePath() string { return "tenants/:tenant/settings" }

func (fc *Controller) Handlers() []gin.HandlerFunc { return nil }

func (fc *Controller) Register(rg *gin.RouterGroup) error {
	rg.GET("features", fc.getFeatures)
	rg.PUT("features", fc.putFeatures)
	rg.GET("preferences", fc.getPreferences)
	rg.PUT("preferences", fc.putPreferences)
	return nil
}

// getFeatures returns both the tenant's raw override row (nil fields
// mean "inherit") and the resolved effective set.
func (fc *Controller) getFeatures(c *gin.Context) {
	metrics.APIEndpointRequests.WithLabelValues("features_get").Inc()
	tenantID := c.Param("tenant")

	override, err := fc.settings.GetFeatureOverride(c.Request.Context(), tenantID)
	if errors.Is(err, store.ErrNotFound) {
		override = &store.FeatureOverride{TenantID: tenantID}
		err = nil
	}
	if err != nil {
		metrics.APIEndpointErrors.WithLabelValues("features_get").Inc()
		apiresponses.RespondInternalError(c, "read feature overrides", err, fc.log)
		return
	}

	apiresponses.RespondOK(c, gin.H{
		"override":  override,
		"effective": fc.resolver.Resolve(c.Request.Context(), tenantID),
	})
}

// putFeatures replaces the tenant's override row. Every field is
// tri-state: true and false override, absent or null inherits.
func (fc *Controller) putFeatures(c *gin.Context) {
	metrics.APIEndpointRequests.WithLabelValues("features_put").Inc()
	tenantID := c.Param("tenant")

	var override store.FeatureOverride
	if err := c.ShouldBindJSON(&override); err != nil {
		apiresponses.RespondBadRequestWithDetails(c, "invalid feature override payload", err.Error())
		return
	}
	override.TenantID = tenantID

	if err := fc.settings.UpsertFeatureOverride(c.Request.Context(), override); err != nil {
		metrics.APIEndpointErrors.WithLabelValues("features_put").Inc()
		apiresponses.RespondInternalError(c, "write feature overrides", err, fc.log)
		return
	}

	fc.audit.Record(c.Request.Context(), audit.Event{
		Type:     audit.EventFeaturesUpdated,
		TenantID: tenantID,
		Details: map[string]string{
			"reminders":    triState(override.Reminders),
			"escalations":  triState(override.Escalations),
			"weeklyDigest": triState(override.WeeklyDigest),
		},
	})

	apiresponses.RespondOK(c, gin.H{
		"override":  override,
		"effective": fc.resolver.Resolve(c.Request.Context(), tenantID),
	})
}

func (fc *Controller) getPreferences(c *gin.Context) {
	metrics.APIEndpointRequests.WithLabelValues("preferences_get").Inc()
	tenantID := c.Param("tenant")

	prefs, err := fc.settings.GetPreferences(c.Request.Context(), tenantID)
	if errors.Is(err, store.ErrNotFound) {
		defaults := store.DefaultPreferences(tenantID)
		prefs = &defaults
		err = nil
	}
	if err != nil {
		metrics.APIEndpointErrors.WithLabelValues("preferences_get").Inc()
		apiresponses.RespondInternalError(c, "read preferences", err, fc.log)
		return
	}
	apiresponses.RespondOK(c, prefs)
}

func (fc *Controller) putPreferences(c *gin.Context) {
	metrics.APIEndpointRequests.WithLabelValues("preferences_put").Inc()
	tenantID := c.Param("tenant")

	prefs := store.DefaultPreferences(tenantID)
	if err := c.ShouldBindJSON(&prefs); err != nil {
		apiresponses.RespondBadRequestWithDetails(c, "invalid preferences payload", err.Error())
		return
	}
	prefs.TenantID = tenantID
	if prefs.EscalationAfterHours < 0 {
		apiresponses.RespondUnprocessableEntity(c, "escalationAfterHours must not be negative")
		return
	}

	if err := fc.settings.UpsertPreferences(c.Request.Context(), prefs); err != nil {
		metrics.APIEndpointErrors.WithLabelValues("preferences_put").Inc()
		apiresponses.RespondInternalError(c, "write preferences", err, fc.log)
		return
	}

	fc.audit.Record(c.Request.Context(), audit.Event{
		Type:     audit.EventPreferencesUpdated,
		TenantID: tenantID,
		Details: map[string]string{
			"emailEnabled": fmt.Sprintf("%t", prefs.EmailEnabled),
			"smsEnabled":   fmt.Sprintf("%t", prefs.SMSEnabled),
			"weeklyDigest": fmt.Sprintf("%t", prefs.WeeklyDigest),
		},
	})
	apiresponses.RespondOK(c, prefs)
}

func triState(v *bool) string {
	if v == nil {
		return "inherit"
	}
	return fmt.Sprintf("%t", *v)
}
