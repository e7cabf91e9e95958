package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Session ───────────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionRequired    ErrCode = "SESSION_REQUIRED"
	ErrSessionInvalid     ErrCode = "SESSION_INVALID"
	ErrWrongRole          ErrCode = "WRONG_ROLE"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Attempt flow ──────────────────────────────────────────────────
	ErrAttemptStart      ErrCode = "ATTEMPT_START_FAILED"
	ErrAnswerCommit      ErrCode = "ANSWER_COMMIT_FAILED"
	ErrSubmit            ErrCode = "SUBMIT_FAILED"
	ErrInvalidTransition ErrCode = "INVALID_TRANSITION"
	ErrBusy              ErrCode = "ACTION_IN_FLIGHT"
	ErrStaleResult       ErrCode = "STALE_RESULT"
	ErrReportLoad        ErrCode = "REPORT_LOAD_FAILED"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Upstream ──────────────────────────────────────────────────────
	ErrBackendUnavailable ErrCode = "BACKEND_UNAVAILABLE"
	ErrInternal           ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	case ErrInvalidCredentials:
		return "Incorrect user name or password."
	case ErrSessionRequired:
		return "Please sign in to continue."
	case ErrSessionInvalid:
		return "Your session has ended. Please sign in again."
	case ErrWrongRole:
		return "This page is not available for your account."

	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidPayload:
		return "Invalid request payload."

	case ErrNotFound:
		return "Resource not found."

	case ErrAttemptStart:
		return "The assignment could not be started. Please try again."
	case ErrAnswerCommit:
		return "Your answer could not be saved. Please try again."
	case ErrSubmit:
		return "The attempt could not be submitted. Please try again."
	case ErrInvalidTransition:
		return "That action is not available right now."
	case ErrBusy:
		return "Please wait for the previous action to finish."
	case ErrStaleResult:
		return "The question changed before the action finished."
	case ErrReportLoad:
		return "Results could not be loaded. Please retry."

	case ErrUnsupportedFile:
		return "Unsupported file type."
	case ErrFileTooLarge:
		return "File size exceeds the limit."

	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	case ErrBackendUnavailable:
		return "The classroom service is unavailable. Please try again."
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
