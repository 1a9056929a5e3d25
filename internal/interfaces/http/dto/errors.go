package dto

import "net/http"

// Error codes returned in the "error.code" field. Domain errors carry the
// same strings, so a shared.DomainError code maps straight through.
const (
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodePasswordHash = "PASSWORD_HASH_ERROR"
	ErrCodeBadRequest   = "BAD_REQUEST"

	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeTooLarge     = "PAYLOAD_TOO_LARGE"

	ErrCodeUnauthorized       = "UNAUTHORIZED"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeAccountLocked      = "ACCOUNT_LOCKED"
	ErrCodeAccountDisabled    = "ACCOUNT_DISABLED"
	ErrCodeTokenExpired       = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid       = "INVALID_TOKEN"
	ErrCodeTokenType          = "INVALID_TOKEN_TYPE"
	ErrCodeTokenRevoked       = "TOKEN_REVOKED"
	ErrCodeRefreshLimit       = "REFRESH_LIMIT"
	ErrCodeServiceAuth        = "SERVICE_UNAUTHORIZED"

	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeInsufficientScope = "INSUFFICIENT_SCOPE"
	ErrCodeLicenseInvalid    = "LICENSE_INVALID"
	ErrCodePluginDisabled    = "PLUGIN_DISABLED"

	ErrCodeTenantRequired = "TENANT_REQUIRED"
	ErrCodeTenantNotFound = "TENANT_NOT_FOUND"
	ErrCodeTenantInactive = "TENANT_INACTIVE"
	ErrCodeTenantMismatch = "TENANT_MISMATCH"

	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"

	ErrCodeInvalidState      = "INVALID_STATE"
	ErrCodeInsufficientStock = "INSUFFICIENT_STOCK"
	ErrCodeCartEmpty         = "CART_EMPTY"

	ErrCodeRateLimited = "RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:     http.StatusInternalServerError,
	ErrCodePasswordHash: http.StatusInternalServerError,

	ErrCodeBadRequest:        http.StatusBadRequest,
	ErrCodeValidation:        http.StatusBadRequest,
	ErrCodeInvalidInput:      http.StatusBadRequest,
	ErrCodeInvalidState:      http.StatusBadRequest,
	ErrCodeInsufficientStock: http.StatusBadRequest,
	ErrCodeCartEmpty:         http.StatusBadRequest,
	ErrCodeTenantRequired:    http.StatusBadRequest,
	ErrCodeTooLarge:          http.StatusRequestEntityTooLarge,

	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	ErrCodeTokenExpired:       http.StatusUnauthorized,
	ErrCodeTokenInvalid:       http.StatusUnauthorized,
	ErrCodeTokenType:          http.StatusUnauthorized,
	ErrCodeTokenRevoked:       http.StatusUnauthorized,
	ErrCodeRefreshLimit:       http.StatusUnauthorized,
	ErrCodeServiceAuth:        http.StatusUnauthorized,

	ErrCodeForbidden:         http.StatusForbidden,
	ErrCodeAccountLocked:     http.StatusForbidden,
	ErrCodeAccountDisabled:   http.StatusForbidden,
	ErrCodeInsufficientScope: http.StatusForbidden,
	ErrCodeLicenseInvalid:    http.StatusForbidden,
	ErrCodePluginDisabled:    http.StatusForbidden,
	ErrCodeTenantInactive:    http.StatusForbidden,
	ErrCodeTenantMismatch:    http.StatusForbidden,

	ErrCodeNotFound:       http.StatusNotFound,
	ErrCodeTenantNotFound: http.StatusNotFound,

	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Unknown codes are 500.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// GetDomainHTTPStatus is GetHTTPStatus for codes carried by a
// shared.DomainError. Unlisted domain codes are rule violations such as
// INVALID_QUANTITY and map to 400.
func GetDomainHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusBadRequest
}
