// Package server holds small helpers shared across client and hub logic.
package server

import "strings"

// isExpectedCloseError checks if an error is expected during connection
// closure and therefore not worth logging as a failure.
func isExpectedCloseError(err error) bool {
	if err == nil {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "use of closed network connection") ||
		strings.Contains(errStr, "websocket: close sent") ||
		strings.Contains(errStr, "broken pipe")
}
