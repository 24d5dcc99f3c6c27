package processor

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"bounty-server/internal/jobs"
	"bounty-server/internal/observability"
	"bounty-server/internal/payout"
	"bounty-server/internal/store"

	"github.com/google/uuid"
)

// CampaignStore defines the database operations required by CampaignProcessor
type CampaignStore interface {
	// Campaigns
	CreateCampaign(ctx context.Context, params store.CreateCampaignParams) (store.Campaign, error)
	GetCampaignByID(ctx context.Context, campaignID uuid.UUID) (store.Campaign, error)
	GetCampaignsByOrganizationID(ctx context.Context, orgID uuid.UUID) ([]store.Campaign, error)
	UpdateCampaignStatus(ctx context.Context, campaignID uuid.UUID, status string) (store.Campaign, error)
	UpdateCampaignPayoutSchedule(ctx context.Context, campaignID uuid.UUID, schedule store.JSONB, fallbackAmount *int64) (store.Campaign, error)
	AttachCampaignMerchant(ctx context.Context, campaignID, merchantID uuid.UUID) (store.Campaign, error)

	// Reporting
	GetCampaignReport(ctx context.Context, campaignID uuid.UUID) (store.CampaignReport, error)
	GetRedeemedClaimants(ctx context.Context, campaignID uuid.UUID) ([]store.RedeemedClaimant, error)

	// Organizations
	CreateOrganization(ctx context.Context, params store.CreateOrganizationParams) (store.Organization, error)
	GetOrganizationByID(ctx context.Context, orgID uuid.UUID) (store.Organization, error)
	AddCodeBalance(ctx context.Context, orgID uuid.UUID, amount int) (store.Organization, error)
	CreateRecharge(ctx context.Context, params store.CreateRechargeParams) (store.Recharge, error)
	GetRechargesByOrganizationID(ctx context.Context, orgID uuid.UUID) ([]store.Recharge, error)

	// Merchants
	CreateMerchant(ctx context.Context, params store.CreateMerchantParams) (store.Merchant, error)
	GetMerchantByID(ctx context.Context, merchantID uuid.UUID) (store.Merchant, error)
	UpdateMerchantStatus(ctx context.Context, merchantID uuid.UUID, status string) (store.Merchant, error)
}

// JobEnqueuer defines the async job operations required by CampaignProcessor
type JobEnqueuer interface {
	EnqueueProvisionCodesJob(ctx context.Context, payload jobs.ProvisionCodesPayload) error
	EnqueueProvisionImportJob(ctx context.Context, payload jobs.ProvisionImportPayload) error
}

var (
	ErrCampaignNotFound     = errors.New("campaign not found")
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrInvalidPublishPin    = errors.New("invalid publish pin")
	ErrCampaignNotReady     = errors.New("campaign is not ready to publish")
	ErrInvalidRewardType    = errors.New("invalid reward type")
	ErrInvalidCodeTemplate  = errors.New("invalid code template")
	ErrInvalidRechargePlan  = errors.New("invalid recharge plan")
	ErrTriggerTextRequired  = errors.New("trigger text required for merchant campaigns")
)

type CampaignProcessor struct {
	store  CampaignStore
	jobs   JobEnqueuer
	logger *observability.Logger
}

func New(store CampaignStore, jobs JobEnqueuer, logger *observability.Logger) CampaignProcessor {
	return CampaignProcessor{
		store:  store,
		jobs:   jobs,
		logger: logger,
	}
}

// ClaimantAssignment pairs a claimant phone with a pre-assigned code value
type ClaimantAssignment struct {
	PhoneNumber string
	FullName    *string
	Code        string
}

// CreateCampaignParams represents parameters for creating a campaign
type CreateCampaignParams struct {
	OrganizationID uuid.UUID
	MerchantID     *uuid.UUID
	Name           string
	RewardType     string
	CodeTemplate   string
	TriggerText    *string
	PayoutSchedule map[string]interface{}
	FallbackAmount *int64
	RequiredFields []string
	GiftDetails    map[string]interface{}
	WhatsAppNumber *string

	// Provisioning: either a count of codes to generate, or pre-assigned
	// claimant/code pairs imported in bulk.
	CodeCount   int
	Assignments []ClaimantAssignment
}

// defaultPayoutSchedule applies when a campaign is created without one.
// A single small tier keeps trial campaigns paying out something sane.
var defaultPayoutSchedule = payout.Schedule{
	1: {Min: 5, Max: 20, Avg: 10},
}

// CreateCampaign validates and persists a new campaign in pending status,
// then enqueues the provisioning job that will take it to ready.
func (p *CampaignProcessor) CreateCampaign(ctx context.Context, params CreateCampaignParams) (store.Campaign, error) {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "organization_id", Value: params.OrganizationID.String()},
		observability.Field{Key: "campaign_name", Value: params.Name},
	)

	if params.RewardType != store.RewardTypeCashback && params.RewardType != store.RewardTypeGift {
		return store.Campaign{}, ErrInvalidRewardType
	}
	if params.CodeTemplate != store.CodeTemplateSingleUse && params.CodeTemplate != store.CodeTemplateMerchant {
		return store.Campaign{}, ErrInvalidCodeTemplate
	}

	var triggerText *string
	if params.TriggerText != nil {
		normalized := strings.ToLower(strings.TrimSpace(*params.TriggerText))
		if normalized != "" {
			triggerText = &normalized
		}
	}
	if params.CodeTemplate == store.CodeTemplateMerchant && triggerText == nil {
		return store.Campaign{}, ErrTriggerTextRequired
	}

	schedule := defaultPayoutSchedule
	if params.PayoutSchedule != nil {
		parsed, err := payout.ParseSchedule(params.PayoutSchedule)
		if err != nil {
			return store.Campaign{}, err
		}
		schedule = parsed
	}

	if _, err := p.store.GetOrganizationByID(ctx, params.OrganizationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Campaign{}, ErrOrganizationNotFound
		}
		return store.Campaign{}, err
	}

	pin, err := generatePublishPin()
	if err != nil {
		return store.Campaign{}, fmt.Errorf("failed to generate publish pin: %w", err)
	}

	campaign, err := p.store.CreateCampaign(ctx, store.CreateCampaignParams{
		OrganizationID: params.OrganizationID,
		MerchantID:     params.MerchantID,
		Name:           params.Name,
		RewardType:     params.RewardType,
		CodeTemplate:   params.CodeTemplate,
		TriggerText:    triggerText,
		PublishPin:     pin,
		PayoutSchedule: store.JSONB(schedule.ToJSONB()),
		FallbackAmount: params.FallbackAmount,
		RequiredFields: store.StringArray(params.RequiredFields),
		GiftDetails:    store.JSONB(params.GiftDetails),
		WhatsAppNumber: params.WhatsAppNumber,
	})
	if err != nil {
		return store.Campaign{}, err
	}

	ctx = observability.WithFields(ctx, observability.Field{Key: "campaign_id", Value: campaign.ID.String()})

	if err := p.enqueueProvisioning(ctx, campaign, params); err != nil {
		// Campaign stays pending; a re-submitted job will pick it up
		p.logger.Error(ctx, "failed to enqueue provisioning job", err)
		return store.Campaign{}, fmt.Errorf("failed to enqueue provisioning job: %w", err)
	}

	p.logger.Info(ctx, "campaign created")
	return campaign, nil
}

// enqueueProvisioning hands the campaign to the async pipeline. Campaigns
// with nothing to provision (merchant trigger-text campaigns) go straight
// to ready.
func (p *CampaignProcessor) enqueueProvisioning(ctx context.Context, campaign store.Campaign, params CreateCampaignParams) error {
	if len(params.Assignments) > 0 {
		assignments := make([]jobs.ClaimantAssignment, 0, len(params.Assignments))
		for _, a := range params.Assignments {
			assignments = append(assignments, jobs.ClaimantAssignment{
				PhoneNumber: a.PhoneNumber,
				FullName:    a.FullName,
				Code:        a.Code,
			})
		}
		return p.jobs.EnqueueProvisionImportJob(ctx, jobs.ProvisionImportPayload{
			CampaignID:     campaign.ID,
			OrganizationID: campaign.OrganizationID,
			Assignments:    assignments,
		})
	}

	if params.CodeCount > 0 {
		return p.jobs.EnqueueProvisionCodesJob(ctx, jobs.ProvisionCodesPayload{
			CampaignID:     campaign.ID,
			OrganizationID: campaign.OrganizationID,
			Count:          params.CodeCount,
		})
	}

	_, err := p.store.UpdateCampaignStatus(ctx, campaign.ID, store.CampaignStatusReady)
	return err
}

// PublishCampaign moves a ready campaign to active after verifying the
// publish PIN handed out at creation.
func (p *CampaignProcessor) PublishCampaign(ctx context.Context, campaignID uuid.UUID, pin string) (store.Campaign, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "campaign_id", Value: campaignID.String()})

	campaign, err := p.store.GetCampaignByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Campaign{}, ErrCampaignNotFound
		}
		return store.Campaign{}, err
	}

	if campaign.PublishPin != pin {
		p.logger.Warn(ctx, "publish rejected: pin mismatch")
		return store.Campaign{}, ErrInvalidPublishPin
	}
	if campaign.Status != store.CampaignStatusReady {
		return store.Campaign{}, ErrCampaignNotReady
	}

	published, err := p.store.UpdateCampaignStatus(ctx, campaignID, store.CampaignStatusActive)
	if err != nil {
		return store.Campaign{}, err
	}

	p.logger.Info(ctx, "campaign published")
	return published, nil
}

// UpdatePayoutSchedule validates and replaces a campaign's payout schedule
func (p *CampaignProcessor) UpdatePayoutSchedule(ctx context.Context, campaignID uuid.UUID, rawSchedule map[string]interface{}, fallbackAmount *int64) (store.Campaign, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "campaign_id", Value: campaignID.String()})

	schedule, err := payout.ParseSchedule(rawSchedule)
	if err != nil {
		return store.Campaign{}, err
	}

	campaign, err := p.store.UpdateCampaignPayoutSchedule(ctx, campaignID, store.JSONB(schedule.ToJSONB()), fallbackAmount)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Campaign{}, ErrCampaignNotFound
		}
		return store.Campaign{}, err
	}

	p.logger.Info(ctx, "campaign payout schedule updated")
	return campaign, nil
}

// ListCampaigns returns all campaigns for an organization
func (p *CampaignProcessor) ListCampaigns(ctx context.Context, orgID uuid.UUID) ([]store.Campaign, error) {
	return p.store.GetCampaignsByOrganizationID(ctx, orgID)
}

// GetCampaign returns a single campaign
func (p *CampaignProcessor) GetCampaign(ctx context.Context, campaignID uuid.UUID) (store.Campaign, error) {
	campaign, err := p.store.GetCampaignByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Campaign{}, ErrCampaignNotFound
		}
		return store.Campaign{}, err
	}
	return campaign, nil
}

// CampaignReport is the disbursement roll-up plus the per-claimant rows
// suitable for export.
type CampaignReport struct {
	Campaign  store.Campaign           `json:"campaign"`
	Summary   store.CampaignReport     `json:"summary"`
	Claimants []store.RedeemedClaimant `json:"claimants"`
}

// GetReport computes the transaction roll-up and claimant listing for a campaign
func (p *CampaignProcessor) GetReport(ctx context.Context, campaignID uuid.UUID) (CampaignReport, error) {
	ctx = observability.WithFields(ctx, observability.Field{Key: "campaign_id", Value: campaignID.String()})

	campaign, err := p.store.GetCampaignByID(ctx, campaignID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return CampaignReport{}, ErrCampaignNotFound
		}
		return CampaignReport{}, err
	}

	summary, err := p.store.GetCampaignReport(ctx, campaignID)
	if err != nil {
		return CampaignReport{}, err
	}

	claimants, err := p.store.GetRedeemedClaimants(ctx, campaignID)
	if err != nil {
		return CampaignReport{}, err
	}

	return CampaignReport{
		Campaign:  campaign,
		Summary:   summary,
		Claimants: claimants,
	}, nil
}

// AttachMerchant binds a merchant to a campaign
func (p *CampaignProcessor) AttachMerchant(ctx context.Context, campaignID, merchantID uuid.UUID) (store.Campaign, error) {
	if _, err := p.store.GetMerchantByID(ctx, merchantID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Campaign{}, store.ErrNotFound
		}
		return store.Campaign{}, err
	}

	campaign, err := p.store.AttachCampaignMerchant(ctx, campaignID, merchantID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Campaign{}, ErrCampaignNotFound
		}
		return store.Campaign{}, err
	}
	return campaign, nil
}

// generatePublishPin returns a random 4-digit PIN
func generatePublishPin() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()), nil
}
