// Package observability provides structured logging and Prometheus metrics
// for the book-tracker API.
//
// This package implements:
//   - zap logger construction from configuration
//   - token lifecycle counters (issued, verification failures, refreshes)
//   - an HTTP middleware recording request duration per route
package observability
