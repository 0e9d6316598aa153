// Package metrics defines Prometheus metrics for the console, covering
// scheduled jobs, task grading scans, escalations, digests, reminders,
// API endpoints, audit sinks, and mail/SMS delivery.
package metrics
