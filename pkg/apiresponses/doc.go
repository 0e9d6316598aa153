// Package apiresponses provides the standardized HTTP response helpers
// (error envelopes, not-found, conflict, etc.) shared by every API
// controller without import cycles.
package apiresponses
