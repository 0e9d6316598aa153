// Package grading classifies trackable tasks against their due time.
//
// Two grading functions are exposed: a binary-window grade used by the
// reminder and escalation paths, and a tri-state SLA grade used by the
// digest and reporting paths. They share the same inputs but emit
// different vocabularies, and call sites depend on that distinction, so
// they are deliberately kept as two named functions.
package grading

import "time"

// BinaryGrade is the lifecycle grade used by reminders and escalations.
type BinaryGrade string

const (
	GradeOnTime  BinaryGrade = "ON_TIME"
	GradeAtRisk  BinaryGrade = "AT_RISK"
	GradeOverdue BinaryGrade = "OVERDUE"
)

// SLAGrade is the tri-state grade used by digests and SLA reporting.
type SLAGrade string

const (
	SLAGreen SLAGrade = "GREEN"
	SLAAmber SLAGrade = "AMBER"
	SLARed   SLAGrade = "RED"
)

// SLAPolicy parameterises the tri-state grade. AtRiskMinutes is carried
// for the presentation layer; only RedMinutes affects the grade itself.
type SLAPolicy struct {
	AtRiskMinutes int `yaml:"atRiskMinutes" json:"atRiskMinutes"`
	RedMinutes    int `yaml:"redMinutes" json:"redMinutes"`
}

// DefaultSLAPolicy applies when a project carries no policy of its own.
var DefaultSLAPolicy = SLAPolicy{AtRiskMinutes: 60, RedMinutes: 120}

// SubmittedLate reports whether a task was acknowledged after its due
// time. Both grading functions build on this primitive so the date
// arithmetic lives in exactly one place.
func SubmittedLate(dueAt time.Time, submittedAt *time.Time) bool {
	return submittedAt != nil && submittedAt.After(dueAt)
}

// BinaryWindow grades a task against a warning window.
//
// A submitted task grades ON_TIME or OVERDUE only; the AT_RISK window
// exists solely for unacknowledged work approaching its deadline.
func BinaryWindow(dueAt time.Time, submittedAt *time.Time, warnMinutes int, now time.Time) BinaryGrade {
	if submittedAt != nil {
		if SubmittedLate(dueAt, submittedAt) {
			return GradeOverdue
		}
		return GradeOnTime
	}
	if now.After(dueAt) {
		return GradeOverdue
	}
	if now.After(dueAt.Add(-time.Duration(warnMinutes) * time.Minute)) {
		return GradeAtRisk
	}
	return GradeOnTime
}

// TriStateSLA grades a task against an SLA policy.
//
// An unsubmitted task stays GREEN until its due time, turns AMBER while
// the overdue minutes are below the policy's red threshold, and RED
// afterwards. A late submission is graded by how late it landed, so the
// sequence GREEN -> AMBER -> RED never reverses as time advances.
func TriStateSLA(dueAt time.Time, submittedAt *time.Time, policy SLAPolicy, now time.Time) SLAGrade {
	red := time.Duration(policy.RedMinutes) * time.Minute

	if submittedAt != nil {
		if !SubmittedLate(dueAt, submittedAt) {
			return SLAGreen
		}
		if submittedAt.Sub(dueAt) < red {
			return SLAAmber
		}
		return SLARed
	}

	if !now.After(dueAt) {
		return SLAGreen
	}
	if now.Sub(dueAt) < red {
		return SLAAmber
	}
	return SLARed
}

// Label maps a grade to the plain-language form shown to end users.
// The engine itself never emits these strings; they exist for the
// presentation boundary only.
func (g BinaryGrade) Label() string {
	switch g {
	case GradeAtRisk:
		return "Due soon"
	case GradeOverdue:
		return "Late"
	default:
		return "On time"
	}
}

// Label maps an SLA grade to its plain-language form.
func (g SLAGrade) Label() string {
	switch g {
	case SLAAmber:
		return "Due soon"
	case SLARed:
		return "Late"
	default:
		return "On time"
	}
}
