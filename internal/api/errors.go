package api

import "errors"

// Error taxonomy for server interactions. Orchestrators match on these with
// errors.Is and translate them into user-facing strings; raw errors never
// reach the UI.
var (
	// ErrNetwork covers transport failures: connection refused, DNS,
	// timeout. Timeouts are not distinguished from refusals.
	ErrNetwork = errors.New("network error")

	// ErrParse means a response arrived but the envelope or a nested
	// field was absent or wrong-shaped.
	ErrParse = errors.New("parse error")

	// ErrConfig means the dashboard configuration decoded cleanly but is
	// missing the expected security fields.
	ErrConfig = errors.New("config error")

	// ErrNotConfigured is returned when an operation runs before
	// Configure has been called.
	ErrNotConfigured = errors.New("client not configured")
)
