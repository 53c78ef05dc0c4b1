package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden        ErrCode = "FORBIDDEN"
	ErrPermissionDenied ErrCode = "PERMISSION_DENIED"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound         ErrCode = "NOT_FOUND"
	ErrConflict         ErrCode = "CONFLICT"
	ErrDependencyExists ErrCode = "DEPENDENCY_EXISTS"

	// ─── Student lifecycle ─────────────────────────────────────────────
	ErrProfileIncomplete ErrCode = "PROFILE_INCOMPLETE"
	ErrCourseMismatch    ErrCode = "COURSE_UNIVERSITY_MISMATCH"

	// ─── Application state ─────────────────────────────────────────────
	ErrUnknownStatus          ErrCode = "UNKNOWN_STATUS"
	ErrInvalidPriority        ErrCode = "INVALID_PRIORITY"
	ErrPaymentAlreadyUploaded ErrCode = "PAYMENT_ALREADY_UPLOADED"
	ErrNoApplicationFee       ErrCode = "NO_APPLICATION_FEE"
	ErrNoPaymentDocument      ErrCode = "NO_PAYMENT_DOCUMENT"
	ErrPaymentAlreadyVerified ErrCode = "PAYMENT_ALREADY_VERIFIED"

	// ─── Conversations ─────────────────────────────────────────────────
	ErrEmptyMessage ErrCode = "EMPTY_MESSAGE"
	ErrTooManyFiles ErrCode = "TOO_MANY_FILES"

	// ─── Media ─────────────────────────────────────────────────────────
	ErrFileRequired    ErrCode = "FILE_REQUIRED"
	ErrUnsupportedFile ErrCode = "UNSUPPORTED_FILE_TYPE"
	ErrFileTooLarge    ErrCode = "FILE_TOO_LARGE"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal           ErrCode = "INTERNAL_ERROR"
	ErrServiceUnavailable ErrCode = "SERVICE_UNAVAILABLE"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid email or password."
	case ErrSessionInvalidated:
		return "Your session has ended. Please sign in again."
	case ErrTokenRequired:
		return "Authentication token is required."
	case ErrTokenInvalid:
		return "Authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You are not allowed to access this resource."
	case ErrPermissionDenied:
		return "Permission denied."

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
	case ErrConflict:
		return "Resource already exists."
	case ErrDependencyExists:
		return "This record is still referenced by other data."

	// ─── Student lifecycle ─────────────────────────────────────────────
	case ErrProfileIncomplete:
		return "The student profile must be complete before applying."
	case ErrCourseMismatch:
		return "The selected course is not offered by the selected university."

	// ─── Application state ─────────────────────────────────────────────
	case ErrUnknownStatus:
		return "Unknown application status."
	case ErrInvalidPriority:
		return "Priority must be LOW, MEDIUM or HIGH."
	case ErrPaymentAlreadyUploaded:
		return "A payment document is already attached. Remove it first."
	case ErrNoApplicationFee:
		return "This course has no application fee."
	case ErrNoPaymentDocument:
		return "No payment document has been uploaded."
	case ErrPaymentAlreadyVerified:
		return "The payment has already been verified."

	// ─── Conversations ─────────────────────────────────────────────────
	case ErrEmptyMessage:
		return "A message needs text or at least one file."
	case ErrTooManyFiles:
		return "A message can carry at most 3 files."

	// ─── Media ─────────────────────────────────────────────────────────
	case ErrFileRequired:
		return "A file upload is required."
	case ErrUnsupportedFile:
		return "Unsupported file type."
	case ErrFileTooLarge:
		return "File exceeds the size limit."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	case ErrServiceUnavailable:
		return "A backing service is unavailable."
	default:
		return "An unexpected error occurred."
	}
}
