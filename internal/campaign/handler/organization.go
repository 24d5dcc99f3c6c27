package handler

import (
	"net/http"

	"bounty-server/internal/apierrors"
	"bounty-server/internal/campaign/processor"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateOrganizationRequest represents the HTTP request for creating an organization
type CreateOrganizationRequest struct {
	Name  string `json:"name" binding:"required,min=1,max=255"`
	Phone string `json:"phone" binding:"required,min=8"`
}

// RechargeRequest tops up an organization's code balance by plan
type RechargeRequest struct {
	Plan string `json:"plan" binding:"required"`
}

// HandleCreateOrganization creates an organization with the trial balance
func (h *Handler) HandleCreateOrganization(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	org, err := h.processor.CreateOrganization(ctx, req.Name, req.Phone)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, org)
}

// HandleGetOrganization returns an organization with its recharge history
func (h *Handler) HandleGetOrganization(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, ok := h.getOrganizationID(c)
	if !ok {
		return
	}

	org, recharges, err := h.processor.GetOrganization(ctx, orgID)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"organization": org,
		"recharges":    recharges,
	})
}

// HandleRechargeOrganization tops up the code balance by plan
func (h *Handler) HandleRechargeOrganization(c *gin.Context) {
	ctx := c.Request.Context()

	orgID, ok := h.getOrganizationID(c)
	if !ok {
		return
	}

	var req RechargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	org, recharge, err := h.processor.RechargeOrganization(ctx, orgID, req.Plan)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"organization": org,
		"recharge":     recharge,
	})
}

// CreateMerchantRequest represents the HTTP request for onboarding a merchant
type CreateMerchantRequest struct {
	OrganizationID uuid.UUID `json:"organization_id" binding:"required"`
	Name           string    `json:"name" binding:"required,min=1,max=255"`
	PhoneNumber    string    `json:"phone_number" binding:"required,min=8"`
	UPIID          *string   `json:"upi_id,omitempty"`
}

// UpdateMerchantStatusRequest pauses or reactivates a merchant
type UpdateMerchantStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=active paused"`
}

// HandleCreateMerchant onboards a merchant
func (h *Handler) HandleCreateMerchant(c *gin.Context) {
	ctx := c.Request.Context()

	var req CreateMerchantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	merchant, err := h.processor.CreateMerchant(ctx, processor.CreateMerchantParams{
		OrganizationID: req.OrganizationID,
		Name:           req.Name,
		PhoneNumber:    req.PhoneNumber,
		UPIID:          req.UPIID,
	})
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, merchant)
}

// HandleUpdateMerchantStatus pauses or reactivates a merchant
func (h *Handler) HandleUpdateMerchantStatus(c *gin.Context) {
	ctx := c.Request.Context()

	merchantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidInput, "merchant id must be a valid UUID"))
		return
	}

	var req UpdateMerchantStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	merchant, err := h.processor.SetMerchantStatus(ctx, merchantID, req.Status)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, merchant)
}

// getOrganizationID parses the :id path parameter
func (h *Handler) getOrganizationID(c *gin.Context) (uuid.UUID, bool) {
	orgID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		apierrors.RespondWithError(c, apierrors.BadRequest(apierrors.CodeInvalidInput, "organization id must be a valid UUID"))
		return uuid.Nil, false
	}
	return orgID, true
}
