package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidStatusTransition is returned when a campaign status update would
// move the campaign backwards in its lifecycle.
var ErrInvalidStatusTransition = errors.New("invalid campaign status transition")

// CreateCampaignParams represents parameters for creating a campaign
type CreateCampaignParams struct {
	OrganizationID uuid.UUID
	MerchantID     *uuid.UUID
	Name           string
	RewardType     string
	CodeTemplate   string
	TriggerText    *string
	PublishPin     string
	PayoutSchedule JSONB
	FallbackAmount *int64
	RequiredFields StringArray
	GiftDetails    JSONB
	WhatsAppNumber *string
}

const sqlCreateCampaign = `
INSERT INTO campaigns (organization_id, merchant_id, name, status, reward_type, code_template, trigger_text, publish_pin, payout_schedule, fallback_amount, required_fields, gift_details, whatsapp_number)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING id, organization_id, merchant_id, name, status, reward_type, code_template, trigger_text, publish_pin, payout_schedule, fallback_amount, required_fields, gift_details, whatsapp_number, created_at, updated_at
`

// CreateCampaign creates a new campaign in pending status
func (s *Store) CreateCampaign(ctx context.Context, params CreateCampaignParams) (Campaign, error) {
	var campaign Campaign
	err := s.db.GetContext(ctx, &campaign, sqlCreateCampaign,
		params.OrganizationID,
		params.MerchantID,
		params.Name,
		CampaignStatusPending,
		params.RewardType,
		params.CodeTemplate,
		params.TriggerText,
		params.PublishPin,
		params.PayoutSchedule,
		params.FallbackAmount,
		params.RequiredFields,
		params.GiftDetails,
		params.WhatsAppNumber)
	if err != nil {
		s.logger.Error(ctx, "failed to create campaign", err)
		return Campaign{}, fmt.Errorf("failed to create campaign: %w", err)
	}
	return campaign, nil
}

const sqlGetCampaignByID = `
SELECT id, organization_id, merchant_id, name, status, reward_type, code_template, trigger_text, publish_pin, payout_schedule, fallback_amount, required_fields, gift_details, whatsapp_number, created_at, updated_at
FROM campaigns
WHERE id = $1
`

// GetCampaignByID retrieves a campaign by ID
func (s *Store) GetCampaignByID(ctx context.Context, campaignID uuid.UUID) (Campaign, error) {
	var campaign Campaign
	err := s.db.GetContext(ctx, &campaign, sqlGetCampaignByID, campaignID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get campaign by id", err)
		return Campaign{}, fmt.Errorf("failed to get campaign by id: %w", err)
	}
	return campaign, nil
}

const sqlGetCampaignByTriggerText = `
SELECT id, organization_id, merchant_id, name, status, reward_type, code_template, trigger_text, publish_pin, payout_schedule, fallback_amount, required_fields, gift_details, whatsapp_number, created_at, updated_at
FROM campaigns
WHERE trigger_text = $1 AND status = $2
`

// GetCampaignByTriggerText retrieves an active campaign by its trigger phrase
func (s *Store) GetCampaignByTriggerText(ctx context.Context, triggerText string) (Campaign, error) {
	var campaign Campaign
	err := s.db.GetContext(ctx, &campaign, sqlGetCampaignByTriggerText, triggerText, CampaignStatusActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get campaign by trigger text", err)
		return Campaign{}, fmt.Errorf("failed to get campaign by trigger text: %w", err)
	}
	return campaign, nil
}

const sqlGetCampaignsByOrganizationID = `
SELECT id, organization_id, merchant_id, name, status, reward_type, code_template, trigger_text, publish_pin, payout_schedule, fallback_amount, required_fields, gift_details, whatsapp_number, created_at, updated_at
FROM campaigns
WHERE organization_id = $1
ORDER BY created_at DESC
`

// GetCampaignsByOrganizationID retrieves all campaigns for an organization
func (s *Store) GetCampaignsByOrganizationID(ctx context.Context, orgID uuid.UUID) ([]Campaign, error) {
	var campaigns []Campaign
	err := s.db.SelectContext(ctx, &campaigns, sqlGetCampaignsByOrganizationID, orgID)
	if err != nil {
		s.logger.Error(ctx, "failed to get campaigns by organization id", err)
		return nil, fmt.Errorf("failed to get campaigns by organization id: %w", err)
	}
	return campaigns, nil
}

// campaignStatusRank orders the campaign lifecycle. Status updates may only
// move forward through this ordering.
var campaignStatusRank = map[string]int{
	CampaignStatusPending:    0,
	CampaignStatusProcessing: 1,
	CampaignStatusReady:      2,
	CampaignStatusActive:     3,
	CampaignStatusCompleted:  4,
}

const sqlUpdateCampaignStatus = `
UPDATE campaigns
SET status = $2, updated_at = CURRENT_TIMESTAMP
WHERE id = $1
RETURNING id, organization_id, merchant_id, name, status, reward_type, code_template, trigger_text, publish_pin, payout_schedule, fallback_amount, required_fields, gift_details, whatsapp_number, created_at, updated_at
`

// UpdateCampaignStatus advances a campaign's status. Backwards transitions
// are rejected with ErrInvalidStatusTransition.
func (s *Store) UpdateCampaignStatus(ctx context.Context, campaignID uuid.UUID, status string) (Campaign, error) {
	newRank, ok := campaignStatusRank[status]
	if !ok {
		return Campaign{}, fmt.Errorf("unknown campaign status %q: %w", status, ErrInvalidStatusTransition)
	}

	current, err := s.GetCampaignByID(ctx, campaignID)
	if err != nil {
		return Campaign{}, err
	}
	if newRank <= campaignStatusRank[current.Status] {
		return Campaign{}, ErrInvalidStatusTransition
	}

	var campaign Campaign
	err = s.db.GetContext(ctx, &campaign, sqlUpdateCampaignStatus, campaignID, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to update campaign status", err)
		return Campaign{}, fmt.Errorf("failed to update campaign status: %w", err)
	}
	return campaign, nil
}

const sqlUpdateCampaignPayoutSchedule = `
UPDATE campaigns
SET payout_schedule = $2, fallback_amount = COALESCE($3, fallback_amount), updated_at = CURRENT_TIMESTAMP
WHERE id = $1
RETURNING id, organization_id, merchant_id, name, status, reward_type, code_template, trigger_text, publish_pin, payout_schedule, fallback_amount, required_fields, gift_details, whatsapp_number, created_at, updated_at
`

// UpdateCampaignPayoutSchedule replaces a campaign's payout schedule
func (s *Store) UpdateCampaignPayoutSchedule(ctx context.Context, campaignID uuid.UUID, schedule JSONB, fallbackAmount *int64) (Campaign, error) {
	var campaign Campaign
	err := s.db.GetContext(ctx, &campaign, sqlUpdateCampaignPayoutSchedule, campaignID, schedule, fallbackAmount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to update campaign payout schedule", err)
		return Campaign{}, fmt.Errorf("failed to update campaign payout schedule: %w", err)
	}
	return campaign, nil
}

const sqlAttachCampaignMerchant = `
UPDATE campaigns
SET merchant_id = $2, updated_at = CURRENT_TIMESTAMP
WHERE id = $1
RETURNING id, organization_id, merchant_id, name, status, reward_type, code_template, trigger_text, publish_pin, payout_schedule, fallback_amount, required_fields, gift_details, whatsapp_number, created_at, updated_at
`

// AttachCampaignMerchant binds a merchant to a campaign
func (s *Store) AttachCampaignMerchant(ctx context.Context, campaignID, merchantID uuid.UUID) (Campaign, error) {
	var campaign Campaign
	err := s.db.GetContext(ctx, &campaign, sqlAttachCampaignMerchant, campaignID, merchantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Campaign{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to attach campaign merchant", err)
		return Campaign{}, fmt.Errorf("failed to attach campaign merchant: %w", err)
	}
	return campaign, nil
}
