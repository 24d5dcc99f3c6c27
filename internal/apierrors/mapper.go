package apierrors

import (
	"errors"
	"strings"

	campaignProcessor "bounty-server/internal/campaign/processor"
	"bounty-server/internal/payout"
	redemptionProcessor "bounty-server/internal/redemption/processor"
	"bounty-server/internal/store"
)

// MapError converts domain/processor errors to APIErrors.
// This function centralizes all error mapping logic to ensure consistent
// error responses across the entire API.
//
// If the error is already an APIError, it returns it as-is.
// If the error is a known domain error, it maps it to an appropriate APIError.
// If the error is unknown, it returns a sanitized InternalError (500).
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	// Campaign processor errors
	case errors.Is(err, campaignProcessor.ErrCampaignNotFound):
		return NotFound(CodeCampaignNotFound, "Campaign not found")

	case errors.Is(err, campaignProcessor.ErrOrganizationNotFound):
		return NotFound(CodeOrganizationNotFound, "Organization not found")

	case errors.Is(err, campaignProcessor.ErrInvalidPublishPin):
		return Forbidden("Incorrect publish PIN")

	case errors.Is(err, campaignProcessor.ErrCampaignNotReady):
		return Conflict(CodeCampaignNotReady, "Campaign codes are still being provisioned")

	case errors.Is(err, campaignProcessor.ErrInvalidRewardType):
		return BadRequest(CodeInvalidRewardType, "Invalid reward type. Valid values: cashback, gift")

	case errors.Is(err, campaignProcessor.ErrInvalidCodeTemplate):
		return BadRequest(CodeInvalidCodeTemplate, "Invalid code template. Valid values: single_use, merchant")

	case errors.Is(err, campaignProcessor.ErrInvalidRechargePlan):
		return BadRequest(CodeInvalidPlan, "Invalid recharge plan")

	case errors.Is(err, campaignProcessor.ErrTriggerTextRequired):
		return BadRequest(CodeInvalidInput, "Merchant campaigns require a trigger text")

	case errors.Is(err, campaignProcessor.ErrInvalidMerchantStatus):
		return BadRequest(CodeInvalidStatus, "Invalid merchant status. Valid values: active, paused")

	// Redemption processor errors
	case errors.Is(err, redemptionProcessor.ErrNoRedemptionInput):
		return BadRequest(CodeInvalidInput, "A code, QR payload, or trigger text is required")

	// Payout schedule errors
	case errors.Is(err, payout.ErrInvalidSchedule):
		return BadRequest(CodeInvalidSchedule, "Invalid payout schedule")

	// Store errors
	case errors.Is(err, store.ErrInsufficientCodeBalance):
		return BadRequest(CodeInsufficientBalance, "Organization does not have enough code balance")

	case errors.Is(err, store.ErrInvalidStatusTransition):
		return Conflict(CodeInvalidStatus, "Campaign status cannot move backwards")

	case errors.Is(err, store.ErrCodeAlreadyUsed):
		return Conflict(CodeCodeAlreadyUsed, "Code has already been used")

	case errors.Is(err, store.ErrAlreadyRewarded):
		return Conflict(CodeAlreadyRewarded, "Reward has already been claimed")

	case errors.Is(err, store.ErrNotFound):
		return NotFound(CodeNotFound, "Resource not found")

	default:
		return mapExternalServiceError(err)
	}
}

// mapExternalServiceError attempts to identify external service errors
// and map them to appropriate service-specific error responses.
func mapExternalServiceError(err error) *APIError {
	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "cashfree") || strings.Contains(errMsg, "shiprocket") {
		return ServiceUnavailable(
			CodePayoutProviderError,
			"Payout provider is temporarily unavailable. Please try again later.",
			err,
		)
	}

	return InternalError(err)
}
