package handler

import (
	"net/http"

	"bounty-server/internal/apierrors"
	"bounty-server/internal/campaign/processor"
	"bounty-server/internal/observability"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	processor processor.CampaignProcessor
	logger    *observability.Logger
}

func New(processor processor.CampaignProcessor, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		logger:    logger,
	}
}

// ClaimantAssignmentRequest pairs a claimant phone with a pre-assigned code
type ClaimantAssignmentRequest struct {
	PhoneNumber string  `json:"phone_number" binding:"required,min=8"`
	FullName    *string `json:"full_name,omitempty"`
	Code        string  `json:"code" binding:"required,min=4"`
}

// CreateCampaignRequest represents the HTTP request for creating a campaign
type CreateCampaignRequest struct {
	OrganizationID uuid.UUID              `json:"organization_id" binding:"required"`
	MerchantID     *uuid.UUID             `json:"merchant_id,omitempty"`
	Name           string                 `json:"name" binding:"required,min=1,max=255"`
	RewardType     string                 `json:"reward_type" binding:"required,oneof=cashback gift"`
	CodeTemplate   string                 `json:"code_template" binding:"required,oneof=single_use merchant"`
	TriggerText    *string                `json:"trigger_text,omitempty"`
	PayoutSchedule map[string]interface{} `json:"payout_schedule,omitempty"`
	FallbackAmount *int64                 `json:"fallback_amount,omitempty" binding:"omitempty,gt=0"`
	RequiredFields []string               `json:"required_fields,omitempty"`
	GiftDetails    map[string]interface{} `json:"gift_details,omitempty"`
	WhatsAppNumber *string                `json:"whatsapp_number,omitempty"`

	CodeCount   int                         `json:"code_count,omitempty" binding:"omitempty,gte=0,lte=10000"`
	Assignments []ClaimantAssignmentRequest `json:"assignments,omitempty" binding:"dive"`
}

// PublishCampaignRequest carries the publish PIN
type PublishCampaignRequest struct {
	Pin string `json:"pin" binding:"required,len=4"`
}

// UpdatePayoutScheduleRequest replaces the tiered schedule
type UpdatePayoutScheduleRequest struct {
	Schedule       map[string]interface{} `json:"schedule" binding:"required"`
	FallbackAmount *int64                 `json:"fallback_amount,omitempty" binding:"omitempty,gt=0"`
}

// HandleCreateCampaign creates a new campaign and enqueues provisioning
func (h *Handler) HandleCreateCampaign(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "organization_id", Value: req.OrganizationID.String()},
		observability.Field{Key: "campaign_name", Value: req.Name},
	)

	assignments := make([]processor.ClaimantAssignment, 0, len(req.Assignments))
	for _, a := range req.Assignments {
		assignments = append(assignments, processor.ClaimantAssignment{
			PhoneNumber: a.PhoneNumber,
			FullName:    a.FullName,
			Code:        a.Code,
		})
	}

	campaign, err := h.processor.CreateCampaign(ctx, processor.CreateCampaignParams{
		OrganizationID: req.OrganizationID,
		MerchantID:     req.MerchantID,
		Name:           req.Name,
		RewardType:     req.RewardType,
		CodeTemplate:   req.CodeTemplate,
		TriggerText:    req.TriggerText,
		PayoutSchedule: req.PayoutSchedule,
		FallbackAmount: req.FallbackAmount,
		RequiredFields: req.RequiredFields,
		GiftDetails:    req.GiftDetails,
		WhatsAppNumber: req.WhatsAppNumber,
		CodeCount:      req.CodeCount,
		Assignments:    assignments,
	})
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	// The PIN is returned once at creation; the model hides it elsewhere
	c.JSON(http.StatusCreated, gin.H{
		"campaign":    campaign,
		"publish_pin": campaign.PublishPin,
	})
}

// HandlePublishCampaign moves a ready campaign to active
func (h *Handler) HandlePublishCampaign(c *gin.Context) {
	ctx := c.Request.Context()

	campaignID, ok := h.getCampaignID(c)
	if !ok {
		return
	}

	var req PublishCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	campaign, err := h.processor.PublishCampaign(ctx, campaignID, req.Pin)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// HandleUpdatePayoutSchedule replaces a campaign's payout schedule
func (h *Handler) HandleUpdatePayoutSchedule(c *gin.Context) {
	ctx := c.Request.Context()

	campaignID, ok := h.getCampaignID(c)
	if !ok {
		return
	}

	var req UpdatePayoutScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	campaign, err := h.processor.UpdatePayoutSchedule(ctx, campaignID, req.Schedule, req.FallbackAmount)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// HandleGetCampaign retrieves a campaign by ID
func (h *Handler) HandleGetCampaign(c *gin.Context) {
	ctx := c.Request.Context()

	campaignID, ok := h.getCampaignID(c)
	if !ok {
		return
	}

	campaign, err := h.processor.GetCampaign(ctx, campaignID)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// HandleListCampaigns lists campaigns for an organization
func (h *Handler) HandleListCampaigns(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, err := uuid.Parse(c.Query("organization_id"))
	if err != nil {
		apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidInput, "organization_id query parameter must be a valid UUID"))
		return
	}

	campaigns, err := h.processor.ListCampaigns(ctx, orgID)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"campaigns": campaigns})
}

// HandleGetReport returns the disbursement roll-up for a campaign
func (h *Handler) HandleGetReport(c *gin.Context) {
	ctx := c.Request.Context()

	campaignID, ok := h.getCampaignID(c)
	if !ok {
		return
	}

	report, err := h.processor.GetReport(ctx, campaignID)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// AttachMerchantRequest binds a merchant to a campaign
type AttachMerchantRequest struct {
	MerchantID uuid.UUID `json:"merchant_id" binding:"required"`
}

// HandleAttachMerchant binds a merchant to a campaign
func (h *Handler) HandleAttachMerchant(c *gin.Context) {
	ctx := c.Request.Context()

	campaignID, ok := h.getCampaignID(c)
	if !ok {
		return
	}

	var req AttachMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	campaign, err := h.processor.AttachMerchant(ctx, campaignID, req.MerchantID)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, campaign)
}

// getCampaignID parses the :id path parameter
func (h *Handler) getCampaignID(c *gin.Context) (uuid.UUID, bool) {
	campaignID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidInput, "campaign id must be a valid UUID"))
		return uuid.Nil, false
	}
	return campaignID, true
}
