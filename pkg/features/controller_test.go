package features

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldops/console/pkg/audit"
	"github.com/fieldops/console/pkg/store"
	"github.com/fieldops/console/pkg/system"
)

// fakeSettings doubles as the controller's SettingsStore and the
// resolver's OverrideSource.
type fakeSettings struct {
	global    *store.FeatureOverride
	overrides map[string]*store.FeatureOverride
	prefs     map[string]*store.Preferences
}

func newFakeSettings() *fakeSettings {
	return &fakeSettings{
		overrides: map[string]*store.FeatureOverride{},
		prefs:     map[string]*store.Preferences{},
	}
}

func (f *fakeSettings) GetGlobalOverride(_ context.Context) (*store.FeatureOverride, error) {
	if f.global == nil {
		return nil, store.ErrNotFound
	}
	return f.global, nil
}

func (f *fakeSettings) GetFeatureOverride(_ context.Context, tenantID string) (*store.FeatureOverride, error) {
	if o, ok := f.overrides[tenantID]; ok {
		return o, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeSettings) UpsertFeatureOverride(_ context.Context, o store.FeatureOverride) error {
	f.overrides[o.TenantID] = &o
	return nil
}

func (f *fakeSettings) GetPreferences(_ context.Context, tenantID string) (*store.Preferences, error) {
	if p, ok := f.prefs[tenantID]; ok {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeSettings) UpsertPreferences(_ context.Context, p store.Preferences) error {
	f.prefs[p.TenantID] = &p
	return nil
}

func newSettingsRouter(t *testing.T, settings *fakeSettings) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := system.NewTestLogger()
	resolver := NewResolver(Defaults{Reminders: true, Escalations: true, WeeklyDigest: true}, settings, log)
	ctrl := NewController(settings, resolver, audit.NewService(nil, log), log)

	router := gin.New()
	require.NoError(t, ctrl.Register(router.Group("api/"+ctrl.BasePath(), ctrl.Handlers()...)))
	return router
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var raw []byte
	if body != nil {
		raw, _ = json.Marshal(body)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestGetFeaturesWithoutOverrideRow(t *testing.T) {
	router := newSettingsRouter(t, newFakeSettings())

	w := doJSON(router, http.MethodGet, "/api/tenants/t1/settings/features", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Override  store.FeatureOverride `json:"override"`
		Effective map[string]bool       `json:"effective"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Nil(t, body.Override.Reminders, "no row means all fields inherit")
	assert.True(t, body.Effective["REMINDERS"])
	assert.True(t, body.Effective["WEEKLY_DIGEST"])
}

func TestPutFeaturesTriState(t *testing.T) {
	settings := newFakeSettings()
	settings.global = &store.FeatureOverride{WeeklyDigest: bp(false)}
	router := newSettingsRouter(t, settings)

	// Escalations off for the tenant, reminders explicitly on, digest
	// left to inherit the global "off".
	w := doJSON(router, http.MethodPut, "/api/tenants/t1/settings/features", gin.H{
		"escalations": false,
		"reminders":   true,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Override  store.FeatureOverride `json:"override"`
		Effective map[string]bool       `json:"effective"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

	require.NotNil(t, body.Override.Escalations)
	assert.False(t, *body.Override.Escalations)
	assert.Nil(t, body.Override.WeeklyDigest, "absent key stays inherit")

	assert.False(t, body.Effective["ESCALATIONS"])
	assert.True(t, body.Effective["REMINDERS"])
	assert.False(t, body.Effective["WEEKLY_DIGEST"], "inherits the global override")
}

func TestPutFeaturesClearOverride(t *testing.T) {
	settings := newFakeSettings()
	settings.overrides["t1"] = &store.FeatureOverride{TenantID: "t1", Escalations: bp(false)}
	router := newSettingsRouter(t, settings)

	w := doJSON(router, http.MethodPut, "/api/tenants/t1/settings/features", gin.H{})
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Effective map[string]bool `json:"effective"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Effective["ESCALATIONS"], "an empty body resets every key to inherit")
}

func TestGetPreferencesDefaults(t *testing.T) {
	router := newSettingsRouter(t, newFakeSettings())

	w := doJSON(router, http.MethodGet, "/api/tenants/t1/settings/preferences", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var prefs store.Preferences
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prefs))
	assert.Equal(t, "t1", prefs.TenantID)
	assert.True(t, prefs.EmailEnabled)
	assert.Equal(t, "America/Chicago", prefs.Timezone)
	assert.Equal(t, 4, prefs.EscalationAfterHours)
}

func TestPutPreferences(t *testing.T) {
	settings := newFakeSettings()
	router := newSettingsRouter(t, settings)

	w := doJSON(router, http.MethodPut, "/api/tenants/t1/settings/preferences", gin.H{
		"emailEnabled":         true,
		"smsEnabled":           true,
		"weeklyDigest":         false,
		"timezone":             "Europe/Berlin",
		"escalationAfterHours": 8,
	})
	require.Equal(t, http.StatusOK, w.Code)

	stored := settings.prefs["t1"]
	require.NotNil(t, stored)
	assert.True(t, stored.SMSEnabled)
	assert.False(t, stored.WeeklyDigest)
	assert.Equal(t, "Europe/Berlin", stored.Timezone)
	assert.Equal(t, 8, stored.EscalationAfterHours)
}

func TestPutPreferencesRejectsNegativePacing(t *testing.T) {
	router := newSettingsRouter(t, newFakeSettings())

	w := doJSON(router, http.MethodPut, "/api/tenants/t1/settings/preferences", gin.H{
		"escalationAfterHours": -2,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
