package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CreateMerchantParams represents parameters for creating a merchant
type CreateMerchantParams struct {
	OrganizationID uuid.UUID
	Name           string
	PhoneNumber    string
	UPIID          *string
}

const sqlCreateMerchant = `
INSERT INTO merchants (organization_id, name, phone_number, upi_id, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, organization_id, name, phone_number, upi_id, status, created_at, updated_at
`

// CreateMerchant creates a new active merchant
func (s *Store) CreateMerchant(ctx context.Context, params CreateMerchantParams) (Merchant, error) {
	var merchant Merchant
	err := s.db.GetContext(ctx, &merchant, sqlCreateMerchant,
		params.OrganizationID,
		params.Name,
		params.PhoneNumber,
		params.UPIID,
		MerchantStatusActive)
	if err != nil {
		s.logger.Error(ctx, "failed to create merchant", err)
		return Merchant{}, fmt.Errorf("failed to create merchant: %w", err)
	}
	return merchant, nil
}

const sqlGetMerchantByID = `
SELECT id, organization_id, name, phone_number, upi_id, status, created_at, updated_at
FROM merchants
WHERE id = $1
`

// GetMerchantByID retrieves a merchant by ID
func (s *Store) GetMerchantByID(ctx context.Context, merchantID uuid.UUID) (Merchant, error) {
	var merchant Merchant
	err := s.db.GetContext(ctx, &merchant, sqlGetMerchantByID, merchantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Merchant{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get merchant by id", err)
		return Merchant{}, fmt.Errorf("failed to get merchant by id: %w", err)
	}
	return merchant, nil
}

const sqlUpdateMerchantStatus = `
UPDATE merchants
SET status = $2, updated_at = CURRENT_TIMESTAMP
WHERE id = $1
RETURNING id, organization_id, name, phone_number, upi_id, status, created_at, updated_at
`

// UpdateMerchantStatus pauses or reactivates a merchant
func (s *Store) UpdateMerchantStatus(ctx context.Context, merchantID uuid.UUID, status string) (Merchant, error) {
	var merchant Merchant
	err := s.db.GetContext(ctx, &merchant, sqlUpdateMerchantStatus, merchantID, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Merchant{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to update merchant status", err)
		return Merchant{}, fmt.Errorf("failed to update merchant status: %w", err)
	}
	return merchant, nil
}
