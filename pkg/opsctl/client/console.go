package client

import (
	"context"
	"fmt"
	"net/url"
	"time"
)

// TaskSummary is one task as listed by the console.
type TaskSummary struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	Kind        string     `json:"kind"`
	Title       string     `json:"title"`
	DueAt       time.Time  `json:"dueAt"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	BinaryGrade string     `json:"binaryGrade"`
	SLAGrade    string     `json:"slaGrade"`
	GradeLabel  string     `json:"gradeLabel"`
}

// LadderStep mirrors one escalation ladder rung.
type LadderStep struct {
	Role          string `json:"role"`
	HourThreshold int    `json:"hourThreshold"`
}

// Ladder mirrors one category's escalation policy.
type Ladder struct {
	Category     string       `json:"category"`
	DefaultHours int          `json:"defaultHours"`
	Steps        []LadderStep `json:"steps"`
}

// JobTenantResult is the per-tenant outcome of a triggered job run.
type JobTenantResult struct {
	TenantID string `json:"tenantId"`
	Outcome  string `json:"outcome"`
	Reason   string `json:"reason,omitempty"`
	Summary  any    `json:"summary,omitempty"`
}

// FeatureSettings is the override row plus the resolved effective set.
type FeatureSettings struct {
	Override struct {
		Reminders    *bool `json:"reminders"`
		Escalations  *bool `json:"escalations"`
		WeeklyDigest *bool `json:"weeklyDigest"`
	} `json:"override"`
	Effective map[string]bool `json:"effective"`
}

// Version returns the server's build info.
func (c *Client) Version(ctx context.Context) (map[string]any, error) {
	out := map[string]any{}
	if err := c.get(ctx, "/api/version", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Tasks lists a tenant's open tasks with their grades.
func (c *Client) Tasks(ctx context.Context, tenantID string) ([]TaskSummary, error) {
	var out struct {
		Tasks []TaskSummary `json:"tasks"`
	}
	endpoint := fmt.Sprintf("/api/tenants/%s/tasks", url.PathEscape(tenantID))
	if err := c.get(ctx, endpoint, &out); err != nil {
		return nil, err
	}
	return out.Tasks, nil
}

// AcknowledgeTask marks one task submitted.
func (c *Client) AcknowledgeTask(ctx context.Context, tenantID, taskID string) error {
	endpoint := fmt.Sprintf("/api/tenants/%s/tasks/%s/acknowledge",
		url.PathEscape(tenantID), url.PathEscape(taskID))
	return c.post(ctx, endpoint, nil, nil)
}

// DeleteTask soft-deletes one task.
func (c *Client) DeleteTask(ctx context.Context, tenantID, taskID string) error {
	endpoint := fmt.Sprintf("/api/tenants/%s/tasks/%s",
		url.PathEscape(tenantID), url.PathEscape(taskID))
	return c.delete(ctx, endpoint)
}

// Jobs lists the registered background jobs.
func (c *Client) Jobs(ctx context.Context) ([]string, error) {
	var out struct {
		Jobs []string `json:"jobs"`
	}
	if err := c.get(ctx, "/api/jobs", &out); err != nil {
		return nil, err
	}
	return out.Jobs, nil
}

// RunJob triggers one job sweep, optionally narrowed to a tenant.
func (c *Client) RunJob(ctx context.Context, name, tenantID string) ([]JobTenantResult, error) {
	endpoint := fmt.Sprintf("/api/jobs/%s/run", url.PathEscape(name))
	if tenantID != "" {
		endpoint += "?tenant=" + url.QueryEscape(tenantID)
	}
	var out struct {
		Results []JobTenantResult `json:"results"`
	}
	if err := c.post(ctx, endpoint, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// Ladders lists every configured escalation ladder.
func (c *Client) Ladders(ctx context.Context) ([]Ladder, error) {
	var out struct {
		Ladders []Ladder `json:"ladders"`
	}
	if err := c.get(ctx, "/api/ladders", &out); err != nil {
		return nil, err
	}
	return out.Ladders, nil
}

// Features fetches a tenant's feature settings.
func (c *Client) Features(ctx context.Context, tenantID string) (*FeatureSettings, error) {
	out := &FeatureSettings{}
	endpoint := fmt.Sprintf("/api/tenants/%s/settings/features", url.PathEscape(tenantID))
	if err := c.get(ctx, endpoint, out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetFeatures replaces a tenant's feature override row. Nil fields
// inherit from the layers below.
func (c *Client) SetFeatures(ctx context.Context, tenantID string, override map[string]*bool) (*FeatureSettings, error) {
	out := &FeatureSettings{}
	endpoint := fmt.Sprintf("/api/tenants/%s/settings/features", url.PathEscape(tenantID))
	if err := c.put(ctx, endpoint, override, out); err != nil {
		return nil, err
	}
	return out, nil
}
