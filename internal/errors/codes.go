package errors

// Error code constants.
// Format: CATEGORY_SPECIFIC_DETAIL
// The storefront frontend maps these codes to localized messages.

const (
	// ==================== Authentication (AUTH_) ====================
	AuthUnauthorized         = "AUTH_UNAUTHORIZED"          // login required
	AuthInvalidCredentials   = "AUTH_INVALID_CREDENTIALS"   // wrong email/password
	AuthSessionExpired       = "AUTH_SESSION_EXPIRED"       // session cookie expired
	AuthSessionInvalid       = "AUTH_SESSION_INVALID"       // malformed session
	AuthSessionRevoked       = "AUTH_SESSION_REVOKED"       // logged out elsewhere
	AuthEmailAlreadyExists   = "AUTH_EMAIL_EXISTS"          // duplicate email
	AuthTempPasswordInvalid  = "AUTH_TEMP_PASSWORD_INVALID" // wrong or used temp password
	AuthTempPasswordExpired  = "AUTH_TEMP_PASSWORD_EXPIRED" // temp password expired
	AuthPasswordChangeNeeded = "AUTH_PASSWORD_CHANGE_NEEDED"

	// ==================== Authorization (AUTHZ_) ====================
	AuthzForbidden = "AUTHZ_FORBIDDEN"  // no access
	AuthzAdminOnly = "AUTHZ_ADMIN_ONLY" // admin only

	// ==================== Validation (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"
	ValidationInvalidID     = "VALIDATION_INVALID_ID"
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT"
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"
	ValidationRequired      = "VALIDATION_REQUIRED"

	// ==================== Resources (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS"
	ResourceConflict      = "RESOURCE_CONFLICT"

	// ==================== Catalog (PRODUCT_) ====================
	ProductNotFound    = "PRODUCT_NOT_FOUND"
	ProductUnavailable = "PRODUCT_UNAVAILABLE" // inactive or discontinued

	// ==================== Cart (CART_) ====================
	CartNotFound        = "CART_NOT_FOUND"
	CartItemNotFound    = "CART_ITEM_NOT_FOUND"
	CartEmpty           = "CART_EMPTY"
	CartInvalidQuantity = "CART_INVALID_QUANTITY"

	// ==================== Orders (ORDER_) ====================
	OrderNotFound         = "ORDER_NOT_FOUND"
	OrderInvalidShipping  = "ORDER_INVALID_SHIPPING"
	OrderInvalidStatus    = "ORDER_INVALID_STATUS"
	OrderAlreadyCancelled = "ORDER_ALREADY_CANCELLED"
	OrderNotEditable      = "ORDER_NOT_EDITABLE"

	// ==================== Discounts (DISCOUNT_) ====================
	DiscountNotFound  = "DISCOUNT_NOT_FOUND" // unknown code
	DiscountExpired   = "DISCOUNT_EXPIRED"   // past expiry date
	DiscountExhausted = "DISCOUNT_EXHAUSTED" // usage limit reached
	DiscountInactive  = "DISCOUNT_INACTIVE"  // disabled by admin

	// ==================== Payments (PAYMENT_) ====================
	PaymentFailed          = "PAYMENT_FAILED"
	PaymentDeclined        = "PAYMENT_DECLINED"
	PaymentInvalidProvider = "PAYMENT_INVALID_PROVIDER"
	PaymentNotApproved     = "PAYMENT_NOT_APPROVED" // buyer has not approved yet

	// ==================== Newsletter (NEWSLETTER_) ====================
	NewsletterAlreadySubscribed = "NEWSLETTER_ALREADY_SUBSCRIBED"

	// ==================== Chat (CHAT_) ====================
	ChatRoomNotFound      = "CHAT_ROOM_NOT_FOUND"
	ChatCannotSendMessage = "CHAT_CANNOT_SEND"

	// ==================== Uploads (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE"
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"
	UploadFailed          = "UPLOAD_FAILED"

	// ==================== Internal (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR"
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"
	InternalConfigError   = "INTERNAL_CONFIG_ERROR"
)
