package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"bounty-server/internal/dispatch"
	"bounty-server/internal/observability"
	"bounty-server/internal/payout"
	"bounty-server/internal/store"

	"github.com/google/uuid"
)

var (
	ErrCodeNotFound      = errors.New("code not found")
	ErrCampaignNotFound  = errors.New("campaign not found")
	ErrNoRedemptionInput = errors.New("no code, qr text, or trigger text supplied")
)

// Redemption outcomes returned to claimants
const (
	OutcomeSuccess         = "SUCCESS"
	OutcomeAlreadyRedeemed = "ALREADY_REDEEMED"
	OutcomeRejected        = "REJECTED"
	OutcomeDispatchFailed  = "DISPATCH_FAILED"
	OutcomeNoPayout        = "NO_PAYOUT"
)

// dispatchTimeout bounds how long a redemption waits on a payout provider.
// A timed-out dispatch is a failure; no successful transaction is committed.
const dispatchTimeout = 30 * time.Second

// RedemptionStore defines the database operations required by the processor
type RedemptionStore interface {
	GetCampaignByID(ctx context.Context, campaignID uuid.UUID) (store.Campaign, error)
	GetCampaignByTriggerText(ctx context.Context, triggerText string) (store.Campaign, error)
	GetCodeByValue(ctx context.Context, code string) (store.Code, error)
	GetCodeByAssignedPhone(ctx context.Context, campaignID uuid.UUID, phone string) (store.Code, error)
	ConsumeCode(ctx context.Context, codeID, customerID uuid.UUID) (store.Code, error)
	GetMerchantByID(ctx context.Context, merchantID uuid.UUID) (store.Merchant, error)
	UpsertCustomerByPhone(ctx context.Context, params store.UpsertCustomerParams) (store.Customer, error)
	UpdateCustomerLastReward(ctx context.Context, customerID uuid.UUID, lastReward store.JSONB) error
	HasSuccessfulTransaction(ctx context.Context, customerID, campaignID uuid.UUID) (bool, error)
	CountSuccessfulTransactions(ctx context.Context, customerID, campaignID uuid.UUID) (int, error)
	CreateTransaction(ctx context.Context, params store.CreateTransactionParams) (store.Transaction, error)
}

// RedeemRequest carries everything a claimant submitted for a redemption
type RedeemRequest struct {
	PhoneNumber     string
	FullName        string
	Code            string
	QRText          string
	TriggerText     string
	UPIID           string
	ShippingAddress string
	CustomFields    map[string]string
}

// RedeemResult is the business outcome of a redemption attempt. Business
// rejections live here; only infrastructure failures surface as errors.
type RedeemResult struct {
	Outcome      string `json:"outcome"`
	Amount       int64  `json:"amount,omitempty"`
	ArtifactCode string `json:"artifact_code,omitempty"`
	Message      string `json:"message,omitempty"`
}

// RedemptionProcessor coordinates the full redemption flow
type RedemptionProcessor struct {
	store     RedemptionStore
	cash      dispatch.CashDispatcher
	shipments dispatch.ShipmentDispatcher
	logger    *observability.Logger
}

// New creates a new redemption processor
func New(store RedemptionStore, cash dispatch.CashDispatcher, shipments dispatch.ShipmentDispatcher, logger *observability.Logger) *RedemptionProcessor {
	return &RedemptionProcessor{
		store:     store,
		cash:      cash,
		shipments: shipments,
		logger:    logger,
	}
}

// Redeem runs the full coordinator flow: resolve the code and campaign,
// check eligibility, dispatch the reward, consume the code, and append the
// ledger entry. The ledger insert is the final arbiter for concurrent
// attempts; whoever loses that race gets ALREADY_REDEEMED.
func (p *RedemptionProcessor) Redeem(ctx context.Context, req RedeemRequest) (RedeemResult, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "phone_number", Value: req.PhoneNumber})

	campaign, code, err := p.resolve(ctx, req)
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) || errors.Is(err, ErrCampaignNotFound) {
			return RedeemResult{Outcome: OutcomeRejected, Message: "code not recognized"}, nil
		}
		return RedeemResult{}, err
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "campaign_id", Value: campaign.ID})

	if campaign.Status != store.CampaignStatusActive {
		return RedeemResult{Outcome: OutcomeRejected, Message: "campaign is not active"}, nil
	}

	customer, err := p.upsertClaimant(ctx, req, campaign)
	if err != nil {
		return RedeemResult{}, err
	}

	// Eligibility pre-check. The ledger insert below still guards races;
	// this avoids dispatching for the common repeat claimant.
	rewarded, err := p.store.HasSuccessfulTransaction(ctx, customer.ID, campaign.ID)
	if err != nil {
		return RedeemResult{}, err
	}
	if rewarded {
		return RedeemResult{Outcome: OutcomeAlreadyRedeemed, Message: "reward already claimed"}, nil
	}

	if code != nil && code.IsUsed {
		if code.UsedBy != nil && *code.UsedBy == customer.ID {
			return RedeemResult{Outcome: OutcomeAlreadyRedeemed, Message: "reward already claimed"}, nil
		}
		return RedeemResult{Outcome: OutcomeRejected, Message: "code already used"}, nil
	}

	// A paused merchant suspends cash payouts without treating the
	// claimant's code as invalid. Gift shipments go to the claimant and are
	// unaffected by the merchant's payout state.
	var merchant *store.Merchant
	if campaign.MerchantID != nil {
		m, err := p.store.GetMerchantByID(ctx, *campaign.MerchantID)
		if err != nil {
			return RedeemResult{}, err
		}
		if campaign.RewardType == store.RewardTypeCashback && m.Status == store.MerchantStatusPaused {
			p.logger.Info(ctx, "merchant paused, skipping payout")
			return RedeemResult{Outcome: OutcomeNoPayout, Message: "rewards are temporarily paused"}, nil
		}
		merchant = &m
	}

	policy := p.policyFor(campaign, merchant)
	if missing := policy.missingFields(req, customer); missing != "" {
		return RedeemResult{Outcome: OutcomeRejected, Message: fmt.Sprintf("missing %s", missing)}, nil
	}

	amount, err := p.resolveAmount(ctx, customer.ID, campaign)
	if err != nil {
		return RedeemResult{}, err
	}

	var codeID *uuid.UUID
	if code != nil {
		codeID = &code.ID
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, dispatchTimeout)
	defer cancel()

	result, err := policy.dispatch(dispatchCtx, campaign, customer, amount)
	if err != nil {
		p.logger.Error(ctx, "reward dispatch failed", err)
		p.recordFailure(ctx, customer.ID, codeID, campaign, amount, store.JSONB{"error": err.Error()})
		return RedeemResult{Outcome: OutcomeDispatchFailed, Message: "payout could not be completed, try again later"}, nil
	}
	if !result.Success {
		p.recordFailure(ctx, customer.ID, codeID, campaign, amount, store.JSONB(result.Response))
		return RedeemResult{Outcome: OutcomeDispatchFailed, Message: "payout was declined"}, nil
	}

	if code != nil && campaign.CodeTemplate == store.CodeTemplateSingleUse {
		if _, err := p.store.ConsumeCode(ctx, code.ID, customer.ID); err != nil {
			if errors.Is(err, store.ErrCodeAlreadyUsed) {
				return RedeemResult{Outcome: OutcomeAlreadyRedeemed, Message: "reward already claimed"}, nil
			}
			return RedeemResult{}, err
		}
	}

	artifact := policy.artifactCode()
	txn, err := p.store.CreateTransaction(ctx, store.CreateTransactionParams{
		CustomerID:   customer.ID,
		CampaignID:   campaign.ID,
		CodeID:       codeID,
		Amount:       amount,
		Status:       store.TransactionStatusSuccess,
		RewardType:   campaign.RewardType,
		ArtifactCode: &artifact,
		Response:     store.JSONB(result.Response),
	})
	if err != nil {
		if errors.Is(err, store.ErrAlreadyRewarded) {
			return RedeemResult{Outcome: OutcomeAlreadyRedeemed, Message: "reward already claimed"}, nil
		}
		return RedeemResult{}, err
	}

	// Best effort cache of the reward on the customer row
	lastReward := store.JSONB{
		"campaign_id":   campaign.ID.String(),
		"campaign_name": campaign.Name,
		"amount":        amount,
		"artifact_code": artifact,
	}
	if err := p.store.UpdateCustomerLastReward(ctx, customer.ID, lastReward); err != nil {
		p.logger.InfoWithError(ctx, "failed to cache last reward", err)
	}

	p.logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "transaction_id", Value: txn.ID},
		observability.Field{Key: "amount", Value: amount},
	), "redemption succeeded")

	return RedeemResult{
		Outcome:      OutcomeSuccess,
		Amount:       amount,
		ArtifactCode: artifact,
		Message:      "reward on its way",
	}, nil
}

// resolve finds the campaign and, where applicable, the specific code row
// for a redemption request. Trigger-text campaigns with merchant codes have
// no per-claimant code; pre-assigned campaigns look the code up by phone.
func (p *RedemptionProcessor) resolve(ctx context.Context, req RedeemRequest) (store.Campaign, *store.Code, error) {
	codeValue := strings.TrimSpace(req.Code)
	if codeValue == "" && req.QRText != "" {
		codeValue = ExtractCodeFromQRText(req.QRText)
	}

	if codeValue != "" {
		code, err := p.store.GetCodeByValue(ctx, codeValue)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Chat messages can carry either a code or a trigger
				// phrase; fall through when a trigger is also present
				if req.TriggerText == "" {
					return store.Campaign{}, nil, ErrCodeNotFound
				}
			} else {
				return store.Campaign{}, nil, err
			}
		}
		if err == nil {
			return p.resolveByCode(ctx, code)
		}
	}

	if req.TriggerText != "" {
		campaign, err := p.store.GetCampaignByTriggerText(ctx, strings.ToLower(strings.TrimSpace(req.TriggerText)))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return store.Campaign{}, nil, ErrCampaignNotFound
			}
			return store.Campaign{}, nil, err
		}

		// Pre-assigned campaigns carry a code per claimant phone
		code, err := p.store.GetCodeByAssignedPhone(ctx, campaign.ID, req.PhoneNumber)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				if campaign.CodeTemplate == store.CodeTemplateMerchant {
					return campaign, nil, nil
				}
				return store.Campaign{}, nil, ErrCodeNotFound
			}
			return store.Campaign{}, nil, err
		}
		return campaign, &code, nil
	}

	return store.Campaign{}, nil, ErrNoRedemptionInput
}

func (p *RedemptionProcessor) resolveByCode(ctx context.Context, code store.Code) (store.Campaign, *store.Code, error) {
	campaign, err := p.store.GetCampaignByID(ctx, code.CampaignID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Campaign{}, nil, ErrCampaignNotFound
		}
		return store.Campaign{}, nil, err
	}
	return campaign, &code, nil
}

func (p *RedemptionProcessor) upsertClaimant(ctx context.Context, req RedeemRequest, campaign store.Campaign) (store.Customer, error) {
	params := store.UpsertCustomerParams{
		PhoneNumber: req.PhoneNumber,
		MerchantID:  campaign.MerchantID,
	}
	if req.FullName != "" {
		params.FullName = &req.FullName
	}
	if req.UPIID != "" {
		params.UPIID = &req.UPIID
	}
	if req.ShippingAddress != "" {
		params.ShippingAddress = &req.ShippingAddress
	}
	if len(req.CustomFields) > 0 {
		fields := make(store.JSONB, len(req.CustomFields))
		for k, v := range req.CustomFields {
			fields[k] = v
		}
		params.CustomFields = fields
	}
	return p.store.UpsertCustomerByPhone(ctx, params)
}

// resolveAmount never fails for policy reasons: schedule parse problems fall
// through to the campaign fallback and then the minimal default. The tier is
// the claimant's own success history for this campaign.
func (p *RedemptionProcessor) resolveAmount(ctx context.Context, customerID uuid.UUID, campaign store.Campaign) (int64, error) {
	prior, err := p.store.CountSuccessfulTransactions(ctx, customerID, campaign.ID)
	if err != nil {
		return 0, err
	}

	schedule, err := payout.ParseSchedule(campaign.PayoutSchedule)
	if err != nil {
		p.logger.Warn(ctx, "campaign payout schedule unparseable, using fallback")
		schedule = nil
	}
	return payout.Resolve(schedule, prior, campaign.FallbackAmount), nil
}

func (p *RedemptionProcessor) recordFailure(ctx context.Context, customerID uuid.UUID, codeID *uuid.UUID, campaign store.Campaign, amount int64, response store.JSONB) {
	_, err := p.store.CreateTransaction(ctx, store.CreateTransactionParams{
		CustomerID: customerID,
		CampaignID: campaign.ID,
		CodeID:     codeID,
		Amount:     amount,
		Status:     store.TransactionStatusFailed,
		RewardType: campaign.RewardType,
		Response:   response,
	})
	if err != nil {
		p.logger.Error(ctx, "failed to record failed transaction", err)
	}
}
