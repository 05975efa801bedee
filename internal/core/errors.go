package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeTenantMismatch = "tenant_mismatch"
	ErrCodePersistFailed  = "persist_failed"

	// Preview fetch failures are surfaced per cause, never as a
	// generic failure.
	ErrCodePreviewTimeout     = "preview_timeout"
	ErrCodePreviewBlocked     = "preview_blocked"
	ErrCodePreviewParse       = "preview_parse_error"
	ErrCodePreviewUnavailable = "preview_unavailable"
)

// ErrTenantMismatch is returned by the channel registry when a
// connection attempts to join a channel outside its own tenant.
var ErrTenantMismatch = errors.New("channel outside connection tenant")

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
