package processor

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"bounty-server/internal/dispatch"
	"bounty-server/internal/store"

	"github.com/google/uuid"
)

// rewardPolicy is the per-reward-type behavior: which claimant fields are
// required, how the reward leaves the system, and what artifact code the
// claimant receives.
type rewardPolicy interface {
	missingFields(req RedeemRequest, customer store.Customer) string
	dispatch(ctx context.Context, campaign store.Campaign, customer store.Customer, amount int64) (dispatch.Result, error)
	artifactCode() string
}

func (p *RedemptionProcessor) policyFor(campaign store.Campaign, merchant *store.Merchant) rewardPolicy {
	if campaign.RewardType == store.RewardTypeGift {
		return giftPolicy{shipments: p.shipments}
	}
	return cashbackPolicy{cash: p.cash, merchant: merchant}
}

// cashbackPolicy pays cash over UPI. Merchant-bound campaigns pay the
// merchant's handle; the claimant is the payee only when no merchant holds
// a payment address.
type cashbackPolicy struct {
	cash     dispatch.CashDispatcher
	merchant *store.Merchant
}

func (p cashbackPolicy) merchantUPI() string {
	if p.merchant != nil && p.merchant.UPIID != nil {
		return *p.merchant.UPIID
	}
	return ""
}

func (p cashbackPolicy) missingFields(req RedeemRequest, customer store.Customer) string {
	if p.merchantUPI() != "" {
		return ""
	}
	if req.UPIID == "" && (customer.UPIID == nil || *customer.UPIID == "") {
		return "UPI ID"
	}
	return ""
}

func (p cashbackPolicy) dispatch(ctx context.Context, campaign store.Campaign, customer store.Customer, amount int64) (dispatch.Result, error) {
	if upiID := p.merchantUPI(); upiID != "" {
		return p.cash.TransferCash(ctx, dispatch.TransferParams{
			TransferID: uuid.New().String(),
			Amount:     amount,
			Phone:      p.merchant.PhoneNumber,
			Name:       p.merchant.Name,
			UPIID:      upiID,
		})
	}

	name := customer.PhoneNumber
	if customer.FullName != nil && *customer.FullName != "" {
		name = *customer.FullName
	}
	upiID := ""
	if customer.UPIID != nil {
		upiID = *customer.UPIID
	}
	return p.cash.TransferCash(ctx, dispatch.TransferParams{
		TransferID: uuid.New().String(),
		Amount:     amount,
		Phone:      customer.PhoneNumber,
		Name:       name,
		UPIID:      upiID,
	})
}

func (cashbackPolicy) artifactCode() string {
	return "DISC-" + randomArtifactSuffix()
}

// giftPolicy ships a physical gift to the claimant's address
type giftPolicy struct {
	shipments dispatch.ShipmentDispatcher
}

func (giftPolicy) missingFields(req RedeemRequest, customer store.Customer) string {
	if req.ShippingAddress == "" && (customer.ShippingAddress == nil || *customer.ShippingAddress == "") {
		return "shipping address"
	}
	return ""
}

func (p giftPolicy) dispatch(ctx context.Context, campaign store.Campaign, customer store.Customer, amount int64) (dispatch.Result, error) {
	name := customer.PhoneNumber
	if customer.FullName != nil && *customer.FullName != "" {
		name = *customer.FullName
	}
	address := ""
	if customer.ShippingAddress != nil {
		address = *customer.ShippingAddress
	}

	itemName := campaign.Name + " gift"
	itemSKU := "GIFT-DEFAULT"
	if campaign.GiftDetails != nil {
		if v, ok := campaign.GiftDetails["item_name"].(string); ok && v != "" {
			itemName = v
		}
		if v, ok := campaign.GiftDetails["sku"].(string); ok && v != "" {
			itemSKU = v
		}
	}

	return p.shipments.CreateShipment(ctx, dispatch.ShipmentParams{
		OrderID:       uuid.New().String(),
		Name:          name,
		Phone:         customer.PhoneNumber,
		Address:       address,
		ItemName:      itemName,
		ItemSKU:       itemSKU,
		DeclaredValue: amount,
	})
}

func (giftPolicy) artifactCode() string {
	return "FREE-" + randomArtifactSuffix()
}

const artifactCharset = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomArtifactSuffix() string {
	max := big.NewInt(int64(len(artifactCharset)))
	b := make([]byte, 4)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			return fmt.Sprintf("%04d", len(b))
		}
		b[i] = artifactCharset[idx.Int64()]
	}
	return string(b)
}
