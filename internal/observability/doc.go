// Package observability builds the process logger and the Prometheus
// collector shared by the HTTP layer.
package observability
