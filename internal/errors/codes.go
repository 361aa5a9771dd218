package errors

// Error codes returned in the "error" field of every failed response.
// Format: CATEGORY_SPECIFIC_DETAIL. Clients map messages off the code.

const (
	// ==================== AUTH_ ====================
	AuthUnauthorized = "AUTH_UNAUTHORIZED"
	AuthTokenExpired = "AUTH_TOKEN_EXPIRED"
	AuthTokenInvalid = "AUTH_TOKEN_INVALID"

	// ==================== AUTHZ_ ====================
	AuthzForbidden = "AUTHZ_FORBIDDEN"
	AuthzAdminOnly = "AUTHZ_ADMIN_ONLY"

	// ==================== VALIDATION_ ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// ==================== RESOURCE_ ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== DRIVER_ ====================
	DriverNotFound        = "DRIVER_NOT_FOUND"
	DriverEmailExists     = "DRIVER_EMAIL_EXISTS"
	DriverPhoneExists     = "DRIVER_PHONE_EXISTS"
	DriverLicenseExists   = "DRIVER_LICENSE_EXISTS"
	DriverDocumentMissing = "DRIVER_DOCUMENT_MISSING"

	// ==================== VERIFICATION_ ====================
	VerificationRetryNotAllowed  = "VERIFICATION_RETRY_NOT_ALLOWED"
	VerificationReasonRequired   = "VERIFICATION_REASON_REQUIRED"
	VerificationInvalidScore     = "VERIFICATION_INVALID_SCORE"
	VerificationSaveFailed       = "VERIFICATION_SAVE_FAILED"
	VerificationPipelineFailed   = "VERIFICATION_PIPELINE_FAILED"
	VerificationBulkLimitReached = "VERIFICATION_BULK_LIMIT"

	// ==================== KYC_ ====================
	KycStepDenied       = "KYC_STEP_DENIED"
	KycValidationFailed = "KYC_VALIDATION_FAILED"
	KycRateLimited      = "KYC_RATE_LIMITED"
	KycAlreadyCompleted = "KYC_ALREADY_COMPLETED"
	KycNotPendingReview = "KYC_NOT_PENDING_REVIEW"
	KycReasonRequired   = "KYC_REASON_REQUIRED"
	KycInvalidStep      = "KYC_INVALID_STEP"

	// ==================== UPLOAD_ ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== RATE_ ====================
	RateLimitExceeded = "RATE_LIMIT_EXCEEDED"

	// ==================== INTERNAL_ ====================
	InternalServerError = "INTERNAL_SERVER_ERROR"
	InternalDatabase    = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI = "INTERNAL_EXTERNAL_API_ERROR"
)
