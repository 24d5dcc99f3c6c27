package processor

import (
	"context"
	"errors"

	"bounty-server/internal/observability"
	"bounty-server/internal/store"

	"github.com/google/uuid"
)

var ErrInvalidMerchantStatus = errors.New("invalid merchant status")

// CreateMerchantParams represents parameters for onboarding a merchant
type CreateMerchantParams struct {
	OrganizationID uuid.UUID
	Name           string
	PhoneNumber    string
	UPIID          *string
}

// CreateMerchant onboards a merchant under an organization
func (p *CampaignProcessor) CreateMerchant(ctx context.Context, params CreateMerchantParams) (store.Merchant, error) {
	if _, err := p.store.GetOrganizationByID(ctx, params.OrganizationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Merchant{}, ErrOrganizationNotFound
		}
		return store.Merchant{}, err
	}

	merchant, err := p.store.CreateMerchant(ctx, store.CreateMerchantParams{
		OrganizationID: params.OrganizationID,
		Name:           params.Name,
		PhoneNumber:    params.PhoneNumber,
		UPIID:          params.UPIID,
	})
	if err != nil {
		return store.Merchant{}, err
	}

	p.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "merchant_id", Value: merchant.ID.String()},
	), "merchant created")
	return merchant, nil
}

// SetMerchantStatus pauses or reactivates a merchant. Pausing suspends
// payouts for every campaign bound to the merchant.
func (p *CampaignProcessor) SetMerchantStatus(ctx context.Context, merchantID uuid.UUID, status string) (store.Merchant, error) {
	if status != store.MerchantStatusActive && status != store.MerchantStatusPaused {
		return store.Merchant{}, ErrInvalidMerchantStatus
	}

	merchant, err := p.store.UpdateMerchantStatus(ctx, merchantID, status)
	if err != nil {
		return store.Merchant{}, err
	}

	p.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "merchant_id", Value: merchantID.String()},
		observability.Field{Key: "merchant_status", Value: status},
	), "merchant status updated")
	return merchant, nil
}
