// Package api implements the console's HTTP server (Gin-based): the
// controller registry, request logging, health and version endpoints,
// and the Prometheus scrape endpoint.
package api
