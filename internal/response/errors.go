package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials   ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated   ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired        ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid         ErrCode = "TOKEN_INVALID"
	ErrAlreadyAuthenticated ErrCode = "ALREADY_AUTHENTICATED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly ErrCode = "STUDENT_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Exam-specific ─────────────────────────────────────────────────
	ErrExamUnavailable   ErrCode = "EXAM_UNAVAILABLE"
	ErrNoResult          ErrCode = "NO_RESULT"
	ErrAttemptNotMounted ErrCode = "ATTEMPT_NOT_MOUNTED"
	ErrWrongPhase        ErrCode = "WRONG_PHASE"
	ErrUnknownQuestion   ErrCode = "UNKNOWN_QUESTION"
	ErrUnknownOption     ErrCode = "UNKNOWN_OPTION"
	ErrUnanswered        ErrCode = "UNANSWERED_QUESTIONS"
	ErrSubmitInProgress  ErrCode = "SUBMIT_IN_PROGRESS"
	ErrSubmitFailed      ErrCode = "SUBMIT_FAILED"
	ErrAttemptClosed     ErrCode = "ATTEMPT_CLOSED"
	ErrTimeExpired       ErrCode = "TIME_EXPIRED"

	// ─── Upstream ──────────────────────────────────────────────────────
	ErrBackendUnavailable ErrCode = "BACKEND_UNAVAILABLE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Incorrect email or password."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."
	case ErrAlreadyAuthenticated:
		return "You are already logged in."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You are not allowed to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is limited to students."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Exam-specific ─────────────────────────────────────────────────
	case ErrExamUnavailable:
		return "The exam could not be loaded."
	case ErrNoResult:
		return "No result available."
	case ErrAttemptNotMounted:
		return "This exam is not open in an active attempt."
	case ErrWrongPhase:
		return "This action is not available right now."
	case ErrUnknownQuestion:
		return "The question is not part of this exam."
	case ErrUnknownOption:
		return "The selected option does not exist."
	case ErrUnanswered:
		return "Some questions have not been answered yet."
	case ErrSubmitInProgress:
		return "Your answers are already being submitted."
	case ErrSubmitFailed:
		return "Submitting your answers failed. Please try again."
	case ErrAttemptClosed:
		return "This exam attempt has been closed."
	case ErrTimeExpired:
		return "Time is up. Your answers can no longer be changed."

	// ─── Upstream ──────────────────────────────────────────────────────
	case ErrBackendUnavailable:
		return "The school service is unavailable."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
