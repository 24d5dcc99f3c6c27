package apierrors

import (
	"fmt"
	"net/http"
)

// Machine-readable error codes returned alongside HTTP statuses
const (
	CodeNotFound             = "NOT_FOUND"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeCampaignNotFound     = "CAMPAIGN_NOT_FOUND"
	CodeOrganizationNotFound = "ORGANIZATION_NOT_FOUND"
	CodeInvalidPin           = "INVALID_PIN"
	CodeCampaignNotReady     = "CAMPAIGN_NOT_READY"
	CodeInvalidStatus        = "INVALID_STATUS"
	CodeInvalidRewardType    = "INVALID_REWARD_TYPE"
	CodeInvalidCodeTemplate  = "INVALID_CODE_TEMPLATE"
	CodeInvalidSchedule      = "INVALID_SCHEDULE"
	CodeInvalidPlan          = "INVALID_PLAN"
	CodeInsufficientBalance  = "INSUFFICIENT_BALANCE"
	CodeCodeAlreadyUsed      = "CODE_ALREADY_USED"
	CodeAlreadyRewarded      = "ALREADY_REWARDED"
	CodePayoutProviderError  = "PAYOUT_PROVIDER_ERROR"
	CodeInternalError        = "INTERNAL_ERROR"
)

// APIError is an error with an HTTP status and a machine-readable code.
// Handlers never construct these directly; they come out of MapError.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	internal   error
}

func (e *APIError) Error() string {
	if e.internal != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.internal)
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.internal
}

// NotFound creates a 404 error
func NotFound(code, message string) *APIError {
	return &APIError{StatusCode: http.StatusNotFound, Code: code, Message: message}
}

// BadRequest creates a 400 error
func BadRequest(code, message string) *APIError {
	return &APIError{StatusCode: http.StatusBadRequest, Code: code, Message: message}
}

// Unauthorized creates a 401 error
func Unauthorized(message string) *APIError {
	return &APIError{StatusCode: http.StatusUnauthorized, Code: "UNAUTHORIZED", Message: message}
}

// Forbidden creates a 403 error
func Forbidden(message string) *APIError {
	return &APIError{StatusCode: http.StatusForbidden, Code: "FORBIDDEN", Message: message}
}

// Conflict creates a 409 error
func Conflict(code, message string) *APIError {
	return &APIError{StatusCode: http.StatusConflict, Code: code, Message: message}
}

// ServiceUnavailable creates a 503 error carrying the internal cause
func ServiceUnavailable(code, message string, internalErr error) *APIError {
	return &APIError{StatusCode: http.StatusServiceUnavailable, Code: code, Message: message, internal: internalErr}
}

// InternalError creates a sanitized 500 error - never exposes internal details
func InternalError(internalErr error) *APIError {
	return &APIError{
		StatusCode: http.StatusInternalServerError,
		Code:       CodeInternalError,
		Message:    "An internal error occurred. Please try again later.",
		internal:   internalErr,
	}
}
