package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UpsertCustomerParams represents parameters for find-or-create by phone.
// Optional fields only overwrite existing values when provided.
type UpsertCustomerParams struct {
	PhoneNumber     string
	FullName        *string
	UPIID           *string
	ShippingAddress *string
	CustomFields    JSONB
	MerchantID      *uuid.UUID
}

const sqlUpsertCustomer = `
INSERT INTO customers (phone_number, full_name, upi_id, shipping_address, custom_fields, merchant_id)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (phone_number) DO UPDATE SET
    full_name = COALESCE(EXCLUDED.full_name, customers.full_name),
    upi_id = COALESCE(EXCLUDED.upi_id, customers.upi_id),
    shipping_address = COALESCE(EXCLUDED.shipping_address, customers.shipping_address),
    custom_fields = COALESCE(EXCLUDED.custom_fields, customers.custom_fields),
    merchant_id = COALESCE(EXCLUDED.merchant_id, customers.merchant_id),
    updated_at = CURRENT_TIMESTAMP
RETURNING id, phone_number, full_name, upi_id, shipping_address, custom_fields, merchant_id, last_reward, created_at, updated_at
`

// UpsertCustomerByPhone finds or creates a customer keyed by phone number.
// Merchant binding is last-writer-wins when a merchant ID is supplied.
func (s *Store) UpsertCustomerByPhone(ctx context.Context, params UpsertCustomerParams) (Customer, error) {
	var customer Customer
	err := s.db.GetContext(ctx, &customer, sqlUpsertCustomer,
		params.PhoneNumber,
		params.FullName,
		params.UPIID,
		params.ShippingAddress,
		params.CustomFields,
		params.MerchantID)
	if err != nil {
		s.logger.Error(ctx, "failed to upsert customer", err)
		return Customer{}, fmt.Errorf("failed to upsert customer: %w", err)
	}
	return customer, nil
}

const sqlGetCustomerByPhone = `
SELECT id, phone_number, full_name, upi_id, shipping_address, custom_fields, merchant_id, last_reward, created_at, updated_at
FROM customers
WHERE phone_number = $1
`

// GetCustomerByPhone retrieves a customer by phone number
func (s *Store) GetCustomerByPhone(ctx context.Context, phone string) (Customer, error) {
	var customer Customer
	err := s.db.GetContext(ctx, &customer, sqlGetCustomerByPhone, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Customer{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get customer by phone", err)
		return Customer{}, fmt.Errorf("failed to get customer by phone: %w", err)
	}
	return customer, nil
}

const sqlUpdateCustomerLastReward = `
UPDATE customers
SET last_reward = $2, updated_at = CURRENT_TIMESTAMP
WHERE id = $1
`

// UpdateCustomerLastReward caches the most recent reward details on the
// customer row for quick lookup in follow-up conversations.
func (s *Store) UpdateCustomerLastReward(ctx context.Context, customerID uuid.UUID, lastReward JSONB) error {
	res, err := s.db.ExecContext(ctx, sqlUpdateCustomerLastReward, customerID, lastReward)
	if err != nil {
		s.logger.Error(ctx, "failed to update customer last reward", err)
		return fmt.Errorf("failed to update customer last reward: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkCustomerParams represents a claimant row in a bulk import
type BulkCustomerParams struct {
	PhoneNumber string
	FullName    *string
}

// BulkUpsertCustomers inserts a batch of claimants by phone number, skipping
// phones that already exist. Used by the bulk onboarding job.
func (s *Store) BulkUpsertCustomers(ctx context.Context, customers []BulkCustomerParams) error {
	if len(customers) == 0 {
		return nil
	}

	valueStrings := make([]string, 0, len(customers))
	args := make([]interface{}, 0, len(customers)*2)
	for i, c := range customers {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d)", i*2+1, i*2+2))
		args = append(args, c.PhoneNumber, c.FullName)
	}

	query := fmt.Sprintf(
		"INSERT INTO customers (phone_number, full_name) VALUES %s ON CONFLICT (phone_number) DO NOTHING",
		strings.Join(valueStrings, ", "))

	_, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error(ctx, "failed to bulk upsert customers", err)
		return fmt.Errorf("failed to bulk upsert customers: %w", err)
	}
	return nil
}
