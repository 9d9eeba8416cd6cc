package errors

// Error codes for standardized error responses
const (
	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeNotFound      = "not_found"
	ErrCodeQuizNotFound  = "quiz_not_found"
	ErrCodeAlreadyExists = "already_exists"

	// Preparation errors
	ErrCodeUnknownPreparationID = "unknown_preparation_id"
	ErrCodeTimeout              = "timeout"

	// Pipeline errors
	ErrCodeFetchFailed       = "fetch_failed"
	ErrCodeEmbeddingFailed   = "embedding_failed"
	ErrCodeGenerationFailed  = "generation_failed"
	ErrCodeDurationExceeded  = "duration_exceeded"
	ErrCodeDurationUnknown   = "duration_unknown"
	ErrCodeTranscriptMissing = "transcript_missing"
	ErrCodeSubmitFailed      = "submit_failed"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"
)
