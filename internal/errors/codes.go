package errors

// Error code constants returned in the "error" field of every error response.
// Format: CATEGORY_SPECIFIC_DETAIL
// The frontend maps these codes to localized messages.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // login required
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // wrong email/password
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"       // access token expired
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"       // malformed access token
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"        // duplicate email
	AuthAccountBlocked     = "AUTH_ACCOUNT_BLOCKED"     // blocked or suspended account
	AuthResetTokenInvalid  = "AUTH_RESET_TOKEN_INVALID" // reset token unknown, used or expired

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden = "AUTHZ_FORBIDDEN"  // no access
	AuthzAdminOnly = "AUTHZ_ADMIN_ONLY" // admin only

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationTooShort      = "VALIDATION_TOO_SHORT"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Maintenance (MAINTENANCE_) ====================
	MaintenanceMode        = "MAINTENANCE_MODE"         // gated request during maintenance
	MaintenanceStatusError = "MAINTENANCE_STATUS_ERROR" // settings could not be read
	MaintenanceToggleError = "MAINTENANCE_TOGGLE_ERROR" // settings could not be written

	// ==================== Rate limiting (RATE_) ====================
	RateLimitExceeded = "RATE_LIMIT_EXCEEDED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
	InternalMailDelivery  = "INTERNAL_MAIL_DELIVERY" // outbound email could not be sent
	InternalConfigError   = "INTERNAL_CONFIG_ERROR"
)
