package processor

import (
	"context"
	"errors"

	"bounty-server/internal/observability"
	"bounty-server/internal/store"

	"github.com/google/uuid"
)

// trialCodeBalance is the code allowance every new organization starts with
const trialCodeBalance = 3

// RechargePlan describes a purchasable code-balance top-up
type RechargePlan struct {
	Codes      int   `json:"codes"`
	AmountPaid int64 `json:"amount_paid"`
}

// rechargePlans are the fixed top-up tiers. Amounts are in the smallest
// currency unit.
var rechargePlans = map[string]RechargePlan{
	"starter": {Codes: 100, AmountPaid: 49900},
	"growth":  {Codes: 500, AmountPaid: 199900},
	"scale":   {Codes: 2000, AmountPaid: 599900},
}

// CreateOrganization creates an organization with the trial code balance
func (p *CampaignProcessor) CreateOrganization(ctx context.Context, name, phone string) (store.Organization, error) {
	org, err := p.store.CreateOrganization(ctx, store.CreateOrganizationParams{
		Name:        name,
		Phone:       phone,
		CodeBalance: trialCodeBalance,
	})
	if err != nil {
		return store.Organization{}, err
	}

	p.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "organization_id", Value: org.ID.String()},
	), "organization created")
	return org, nil
}

// GetOrganization returns an organization with its recharge history
func (p *CampaignProcessor) GetOrganization(ctx context.Context, orgID uuid.UUID) (store.Organization, []store.Recharge, error) {
	org, err := p.store.GetOrganizationByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Organization{}, nil, ErrOrganizationNotFound
		}
		return store.Organization{}, nil, err
	}

	recharges, err := p.store.GetRechargesByOrganizationID(ctx, orgID)
	if err != nil {
		return store.Organization{}, nil, err
	}
	return org, recharges, nil
}

// RechargeOrganization tops up an organization's code balance by plan and
// records the recharge.
func (p *CampaignProcessor) RechargeOrganization(ctx context.Context, orgID uuid.UUID, plan string) (store.Organization, store.Recharge, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "organization_id", Value: orgID.String()},
		observability.Field{Key: "plan", Value: plan},
	)

	planDetails, ok := rechargePlans[plan]
	if !ok {
		return store.Organization{}, store.Recharge{}, ErrInvalidRechargePlan
	}

	org, err := p.store.AddCodeBalance(ctx, orgID, planDetails.Codes)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Organization{}, store.Recharge{}, ErrOrganizationNotFound
		}
		return store.Organization{}, store.Recharge{}, err
	}

	recharge, err := p.store.CreateRecharge(ctx, store.CreateRechargeParams{
		OrganizationID: orgID,
		Plan:           plan,
		CodesAdded:     planDetails.Codes,
		AmountPaid:     planDetails.AmountPaid,
	})
	if err != nil {
		return store.Organization{}, store.Recharge{}, err
	}

	p.logger.Info(ctx, "organization recharged")
	return org, recharge, nil
}
