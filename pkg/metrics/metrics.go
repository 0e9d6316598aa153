package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Job lifecycle metrics
	JobRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_job_runs_total",
		Help: "Total number of scheduled job runs, by job name and outcome",
	}, []string{"job", "outcome"})
	JobTenantFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_job_tenant_failures_total",
		Help: "Total number of per-tenant failures isolated during job runs",
	}, []string{"job"})
	TenantsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_job_tenants_skipped_total",
		Help: "Total number of tenants skipped by the per-tenant gate, by job and reason",
	}, []string{"job", "reason"})

	// Task scanning and escalation metrics
	TasksScanned = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_tasks_scanned_total",
		Help: "Total number of tasks examined by grading jobs",
	}, []string{"job", "tenant"})
	EscalationsFired = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_escalations_fired_total",
		Help: "Total number of escalations fired, by tenant and ladder role",
	}, []string{"tenant", "role"})
	EscalationsSuppressed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_escalations_suppressed_total",
		Help: "Total number of escalations suppressed by the cooldown gate",
	}, []string{"tenant"})
	RemindersSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_reminders_sent_total",
		Help: "Total number of due-soon reminders sent",
	}, []string{"tenant"})
	DigestsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_digests_sent_total",
		Help: "Total number of digest rollups sent",
	}, []string{"tenant"})

	// Task lifecycle metrics
	TasksAcknowledged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_tasks_acknowledged_total",
		Help: "Total number of tasks acknowledged via the API",
	}, []string{"tenant"})
	TasksDeleted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_tasks_deleted_total",
		Help: "Total number of tasks soft-deleted via the API",
	}, []string{"tenant"})

	// API metrics
	APIEndpointRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_api_endpoint_requests_total",
		Help: "Total number of API requests, by handler",
	}, []string{"handler"})
	APIEndpointErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_api_endpoint_errors_total",
		Help: "Total number of API error responses, by handler",
	}, []string{"handler"})

	// Mail metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_mail_send_success_total",
		Help: "Total number of successful mail sends",
	}, []string{"host"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_mail_send_failure_total",
		Help: "Total number of failed mail sends",
	}, []string{"host"})

	// SMS metrics
	SMSSendSuccess = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "console_sms_send_success_total",
		Help: "Total number of successful SMS sends",
	})
	SMSSendFailure = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "console_sms_send_failure_total",
		Help: "Total number of failed SMS sends",
	})

	// Audit sink metrics
	AuditEventsWritten = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_audit_events_written_total",
		Help: "Total number of audit events written, by sink",
	}, []string{"sink"})
	AuditSinkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "console_audit_sink_errors_total",
		Help: "Total number of audit sink write failures, by sink and error type",
	}, []string{"sink", "error_type"})
)

func init() {
	prometheus.MustRegister(JobRuns)
	prometheus.MustRegister(JobTenantFailures)
	prometheus.MustRegister(TenantsSkipped)
	prometheus.MustRegister(TasksScanned)
	prometheus.MustRegister(EscalationsFired)
	prometheus.MustRegister(EscalationsSuppressed)
	prometheus.MustRegister(RemindersSent)
	prometheus.MustRegister(DigestsSent)
	prometheus.MustRegister(TasksAcknowledged)
	prometheus.MustRegister(TasksDeleted)
	prometheus.MustRegister(APIEndpointRequests)
	prometheus.MustRegister(APIEndpointErrors)
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
	prometheus.MustRegister(SMSSendSuccess)
	prometheus.MustRegister(SMSSendFailure)
	prometheus.MustRegister(AuditEventsWritten)
	prometheus.MustRegister(AuditSinkErrors)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
