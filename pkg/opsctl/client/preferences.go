package client

import (
	"context"
	"fmt"
	"net/url"
)

// Preferences mirrors the tenant notification preference row.
type Preferences struct {
	TenantID             string `json:"tenantId"`
	EmailEnabled         bool   `json:"emailEnabled"`
	SMSEnabled           bool   `json:"smsEnabled"`
	DailyDigest          bool   `json:"dailyDigest"`
	WeeklyDigest         bool   `json:"weeklyDigest"`
	Timezone             string `json:"timezone"`
	EscalationAfterHours int    `json:"escalationAfterHours"`
}

// Preferences fetches a tenant's notification preferences. Tenants
// without a stored row answer with the documented defaults.
func (c *Client) Preferences(ctx context.Context, tenantID string) (*Preferences, error) {
	out := &Preferences{}
	endpoint := fmt.Sprintf("/api/tenants/%s/settings/preferences", url.PathEscape(tenantID))
	if err := c.get(ctx, endpoint, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetPreferences replaces a tenant's preference row with the full
// object given.
func (c *Client) SetPreferences(ctx context.Context, tenantID string, prefs Preferences) (*Preferences, error) {
	out := &Preferences{}
	endpoint := fmt.Sprintf("/api/tenants/%s/settings/preferences", url.PathEscape(tenantID))
	if err := c.put(ctx, endpoint, prefs, out); err != nil {
		return nil, err
	}
	return out, nil
}
