// Package dispatch sends rewards out of the system: UPI cash transfers via
// Cashfree and physical gift shipments via Shiprocket.
package dispatch

import (
	"context"
)

// Result is the definitive answer from a payout provider. Success=false with
// a nil error means the provider rejected the request; transport problems are
// returned as errors instead.
type Result struct {
	Success  bool
	Response map[string]interface{}
}

// TransferParams describes a UPI cash transfer to a claimant
type TransferParams struct {
	TransferID string
	Amount     int64
	Phone      string
	Name       string
	UPIID      string
}

// ShipmentParams describes a gift shipment to a claimant
type ShipmentParams struct {
	OrderID       string
	Name          string
	Phone         string
	Address       string
	ItemName      string
	ItemSKU       string
	DeclaredValue int64
}

// CashDispatcher sends cash rewards
type CashDispatcher interface {
	TransferCash(ctx context.Context, params TransferParams) (Result, error)
}

// ShipmentDispatcher sends physical gift rewards
type ShipmentDispatcher interface {
	CreateShipment(ctx context.Context, params ShipmentParams) (Result, error)
}
