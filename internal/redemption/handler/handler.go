package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"bounty-server/internal/apierrors"
	"bounty-server/internal/chatstate"
	"bounty-server/internal/observability"
	"bounty-server/internal/redemption/processor"

	"github.com/gin-gonic/gin"
)

// Conversation steps stored between chat messages
const (
	stepCollectUPI     = "collect_upi"
	stepCollectAddress = "collect_address"
)

// Redeemer runs redemption attempts
type Redeemer interface {
	Redeem(ctx context.Context, req processor.RedeemRequest) (processor.RedeemResult, error)
}

type Handler struct {
	processor Redeemer
	chat      *chatstate.Service
	logger    *observability.Logger
}

func New(processor Redeemer, chat *chatstate.Service, logger *observability.Logger) Handler {
	return Handler{
		processor: processor,
		chat:      chat,
		logger:    logger,
	}
}

// RedeemRequest represents the HTTP request for a redemption attempt
type RedeemRequest struct {
	PhoneNumber     string            `json:"phone_number" binding:"required,min=8"`
	FullName        string            `json:"full_name,omitempty"`
	Code            string            `json:"code,omitempty"`
	QRText          string            `json:"qr_text,omitempty"`
	TriggerText     string            `json:"trigger_text,omitempty"`
	UPIID           string            `json:"upi_id,omitempty"`
	ShippingAddress string            `json:"shipping_address,omitempty"`
	CustomFields    map[string]string `json:"custom_fields,omitempty"`
}

// HandleRedeem runs a redemption attempt. Business rejections come back as
// 200 with an outcome; only infrastructure failures produce error statuses.
func (h *Handler) HandleRedeem(c *gin.Context) {
	ctx := c.Request.Context()

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	result, err := h.processor.Redeem(ctx, processor.RedeemRequest{
		PhoneNumber:     req.PhoneNumber,
		FullName:        req.FullName,
		Code:            req.Code,
		QRText:          req.QRText,
		TriggerText:     req.TriggerText,
		UPIID:           req.UPIID,
		ShippingAddress: req.ShippingAddress,
		CustomFields:    req.CustomFields,
	})
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// ChatEventRequest is an inbound chat message from a messaging webhook
type ChatEventRequest struct {
	MessageID   string `json:"message_id" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required,min=8"`
	FullName    string `json:"full_name,omitempty"`
	Text        string `json:"text" binding:"required"`
}

// ChatEventResponse tells the webhook caller what to send back to the claimant
type ChatEventResponse struct {
	Status string                  `json:"status"`
	Reply  string                  `json:"reply,omitempty"`
	Result *processor.RedeemResult `json:"result,omitempty"`
}

// HandleChatEvent glues inbound chat messages to the redemption flow. The
// message text is treated as a code or trigger phrase; when the claimant is
// mid-conversation the text supplies whichever field the last attempt was
// missing. Redelivered messages are dropped via the dedup store.
func (h *Handler) HandleChatEvent(c *gin.Context) {
	ctx := c.Request.Context()

	var req ChatEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.RespondWithValidationError(c, err)
		return
	}

	ctx = observability.WithFields(ctx,
		observability.Field{Key: "message_id", Value: req.MessageID},
		observability.Field{Key: "phone_number", Value: req.PhoneNumber},
	)

	first, err := h.chat.MarkMessageProcessed(ctx, req.MessageID)
	if err != nil {
		apierrors.RespondWithError(c, err)
		return
	}
	if !first {
		h.logger.Info(ctx, "dropping redelivered chat message")
		c.JSON(http.StatusOK, ChatEventResponse{Status: "duplicate"})
		return
	}

	redeemReq := processor.RedeemRequest{
		PhoneNumber: req.PhoneNumber,
		FullName:    req.FullName,
	}

	text := strings.TrimSpace(req.Text)
	redeemInput := text
	progress, err := h.chat.GetProgress(ctx, req.PhoneNumber)
	if err == nil {
		// Mid-conversation: this message fills in the missing field
		switch progress.Step {
		case stepCollectUPI:
			redeemReq.UPIID = text
		case stepCollectAddress:
			redeemReq.ShippingAddress = text
		}
		redeemInput = progress.Collected["redeem_input"]
	}
	redeemReq.Code = redeemInput
	redeemReq.TriggerText = redeemInput

	result, err := h.processor.Redeem(ctx, redeemReq)
	if err != nil {
		if errors.Is(err, processor.ErrNoRedemptionInput) {
			c.JSON(http.StatusOK, ChatEventResponse{Status: "ignored"})
			return
		}
		apierrors.RespondWithError(c, err)
		return
	}

	if step, prompt := collectStepFor(result); step != "" {
		h.saveCollectProgress(ctx, req.PhoneNumber, step, redeemInput)
		c.JSON(http.StatusOK, ChatEventResponse{Status: "collecting", Reply: prompt})
		return
	}

	if err := h.chat.ClearProgress(ctx, req.PhoneNumber); err != nil {
		h.logger.InfoWithError(ctx, "failed to clear conversation progress", err)
	}

	c.JSON(http.StatusOK, ChatEventResponse{
		Status: "completed",
		Reply:  result.Message,
		Result: &result,
	})
}

// collectStepFor maps a missing-field rejection to the conversation step
// that gathers it.
func collectStepFor(result processor.RedeemResult) (string, string) {
	if result.Outcome != processor.OutcomeRejected {
		return "", ""
	}
	switch result.Message {
	case "missing UPI ID":
		return stepCollectUPI, "Please reply with your UPI ID to receive the cashback."
	case "missing shipping address":
		return stepCollectAddress, "Please reply with your shipping address to receive the gift."
	}
	return "", ""
}

func (h *Handler) saveCollectProgress(ctx context.Context, phone, step, redeemInput string) {
	err := h.chat.SaveProgress(ctx, phone, chatstate.Progress{
		Step:      step,
		Collected: map[string]string{"redeem_input": redeemInput},
	})
	if err != nil {
		h.logger.InfoWithError(ctx, "failed to save conversation progress", err)
	}
}
