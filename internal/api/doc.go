// Package api implements the HTTP handlers for the sprint lifecycle and
// the operator-facing sweep trigger. Handlers translate service errors
// into stable machine-readable codes and sanitized messages.
package api
