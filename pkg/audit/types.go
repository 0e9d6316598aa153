package audit

import (
	"time"
)

// EventType classifies audit events on the timeliness trail.
type EventType string

const (
	// === Notification events ===
	EventEscalationFired EventType = "escalation.fired"
	EventReminderSent    EventType = "reminder.sent"
	EventDigestSent      EventType = "digest.sent"

	// === Task lifecycle events ===
	EventTaskCreated      EventType = "task.created"
	EventTaskAcknowledged EventType = "task.acknowledged"
	EventTaskDeleted      EventType = "task.deleted"

	// === Configuration events ===
	EventFeaturesUpdated    EventType = "config.features.updated"
	EventPreferencesUpdated EventType = "config.preferences.updated"
)

// Severity grades an audit event for downstream filtering.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// SeverityForEventType maps an event type to its severity. Escalations
// are warnings: they mean work is late, not that the system failed.
func SeverityForEventType(t EventType) Severity {
	switch t {
	case EventEscalationFired:
		return SeverityWarning
	case EventTaskDeleted:
		return SeverityCritical
	default:
		return SeverityInfo
	}
}

// Event is one record on the audit trail.
type Event struct {
	ID        string            `json:"id"`
	Type      EventType         `json:"type"`
	Severity  Severity          `json:"severity"`
	Timestamp time.Time         `json:"timestamp"`
	TenantID  string            `json:"tenantId,omitempty"`
	ProjectID string            `json:"projectId,omitempty"`
	TaskID    string            `json:"taskId,omitempty"`
	Actor     string            `json:"actor,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
}
