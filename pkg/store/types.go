package store

import "time"

// TaskKind discriminates the two trackable obligations.
type TaskKind string

const (
	KindUpdate        TaskKind = "UPDATE"
	KindChangeRequest TaskKind = "CHANGE_REQUEST"
)

// Task is one trackable obligation with a deadline. SubmittedAt is a
// one-way transition: once written it is never changed again.
// EscalatedAt records the last time an escalation fired for the task
// and is the only field this subsystem mutates on its own.
type Task struct {
	ID          string     `json:"id"`
	ProjectID   string     `json:"projectId"`
	TenantID    string     `json:"tenantId"`
	Kind        TaskKind   `json:"kind"`
	Title       string     `json:"title"`
	DueAt       time.Time  `json:"dueAt"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	EscalatedAt *time.Time `json:"escalatedAt,omitempty"`
	DeletedAt   *time.Time `json:"deletedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Contact is a structured notification contact attached to a project.
// Role matches escalation ladder step roles (case-insensitive).
type Contact struct {
	Role  string `json:"role"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Project owns tasks and carries the notification contact set.
// AtRiskMinutes/RedMinutes form the optional per-project SLA policy;
// both nil means the global default applies.
type Project struct {
	ID              string    `json:"id"`
	TenantID        string    `json:"tenantId"`
	Name            string    `json:"name"`
	Category        string    `json:"category"`
	ManagerEmail    string    `json:"managerEmail,omitempty"`
	OwnerEmail      string    `json:"ownerEmail,omitempty"`
	SupervisorPhone string    `json:"supervisorPhone,omitempty"`
	Contacts        []Contact `json:"contacts,omitempty"`
	AtRiskMinutes   *int      `json:"atRiskMinutes,omitempty"`
	RedMinutes      *int      `json:"redMinutes,omitempty"`
}

// Tenant is an isolated customer organisation.
type Tenant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// FeatureOverride is a per-tenant (or global, TenantID empty) tri-state
// override row. A nil field means "inherit from the layer below"; the
// absence of a row is equivalent to all fields nil.
type FeatureOverride struct {
	TenantID     string `json:"tenantId,omitempty"`
	Reminders    *bool  `json:"reminders"`
	Escalations  *bool  `json:"escalations"`
	WeeklyDigest *bool  `json:"weeklyDigest"`
}

// Preferences is the per-tenant notification preference row. Exactly
// one row exists per tenant; a missing row implies DefaultPreferences.
type Preferences struct {
	TenantID             string `json:"tenantId"`
	EmailEnabled         bool   `json:"emailEnabled"`
	SMSEnabled           bool   `json:"smsEnabled"`
	DailyDigest          bool   `json:"dailyDigest"`
	WeeklyDigest         bool   `json:"weeklyDigest"`
	Timezone             string `json:"timezone"`
	EscalationAfterHours int    `json:"escalationAfterHours"`
}

// DefaultPreferences returns the documented defaults applied when a
// tenant has no preference row.
func DefaultPreferences(tenantID string) Preferences {
	return Preferences{
		TenantID:             tenantID,
		EmailEnabled:         true,
		SMSEnabled:           false,
		DailyDigest:          false,
		WeeklyDigest:         true,
		Timezone:             "America/Chicago",
		EscalationAfterHours: 4,
	}
}
