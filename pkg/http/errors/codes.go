package errors

// Error codes for standardized error responses
const (
	// Admin token errors
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"
	ErrCodeInvalidPayload   = "invalid_payload"
	ErrCodePayloadTooLarge  = "payload_too_large"

	// Resource errors
	ErrCodeNotFound      = "not_found"
	ErrCodePhotoNotFound = "photo_not_found"

	// Submission errors
	ErrCodeSubmitFailed = "submit_failed"
	ErrCodeListFailed   = "list_failed"
	ErrCodeResetFailed  = "reset_failed"

	// Hunt errors
	ErrCodeHuntCompleted     = "hunt_completed"
	ErrCodeNotAcknowledged   = "submission_not_acknowledged"
	ErrCodeProgressFailed    = "progress_failed"
	ErrCodeUnknownProgressOp = "unknown_progress_action"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
)
