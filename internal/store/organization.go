package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInsufficientCodeBalance is returned when an organization cannot cover a
// requested code deduction.
var ErrInsufficientCodeBalance = errors.New("insufficient code balance")

// CreateOrganizationParams represents parameters for creating an organization
type CreateOrganizationParams struct {
	Name        string
	Phone       string
	CodeBalance int
}

const sqlCreateOrganization = `
INSERT INTO organizations (name, phone, code_balance)
VALUES ($1, $2, $3)
RETURNING id, name, phone, code_balance, created_at, updated_at
`

// CreateOrganization creates a new organization with its trial code balance
func (s *Store) CreateOrganization(ctx context.Context, params CreateOrganizationParams) (Organization, error) {
	var org Organization
	err := s.db.GetContext(ctx, &org, sqlCreateOrganization, params.Name, params.Phone, params.CodeBalance)
	if err != nil {
		s.logger.Error(ctx, "failed to create organization", err)
		return Organization{}, fmt.Errorf("failed to create organization: %w", err)
	}
	return org, nil
}

const sqlGetOrganizationByID = `
SELECT id, name, phone, code_balance, created_at, updated_at
FROM organizations
WHERE id = $1
`

// GetOrganizationByID retrieves an organization by ID
func (s *Store) GetOrganizationByID(ctx context.Context, orgID uuid.UUID) (Organization, error) {
	var org Organization
	err := s.db.GetContext(ctx, &org, sqlGetOrganizationByID, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Organization{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get organization by id", err)
		return Organization{}, fmt.Errorf("failed to get organization by id: %w", err)
	}
	return org, nil
}

const sqlDeductCodeBalance = `
UPDATE organizations
SET code_balance = code_balance - $2, updated_at = CURRENT_TIMESTAMP
WHERE id = $1 AND code_balance >= $2
RETURNING id, name, phone, code_balance, created_at, updated_at
`

// DeductCodeBalance atomically deducts codes from an organization's balance.
// The conditional update guarantees the balance never goes negative; callers
// get ErrInsufficientCodeBalance when the organization cannot cover the amount.
func (s *Store) DeductCodeBalance(ctx context.Context, orgID uuid.UUID, amount int) (Organization, error) {
	var org Organization
	err := s.db.GetContext(ctx, &org, sqlDeductCodeBalance, orgID, amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Distinguish missing org from insufficient balance
			if _, getErr := s.GetOrganizationByID(ctx, orgID); getErr != nil {
				return Organization{}, getErr
			}
			return Organization{}, ErrInsufficientCodeBalance
		}
		s.logger.Error(ctx, "failed to deduct code balance", err)
		return Organization{}, fmt.Errorf("failed to deduct code balance: %w", err)
	}
	return org, nil
}

const sqlAddCodeBalance = `
UPDATE organizations
SET code_balance = code_balance + $2, updated_at = CURRENT_TIMESTAMP
WHERE id = $1
RETURNING id, name, phone, code_balance, created_at, updated_at
`

// AddCodeBalance adds codes to an organization's balance
func (s *Store) AddCodeBalance(ctx context.Context, orgID uuid.UUID, amount int) (Organization, error) {
	var org Organization
	err := s.db.GetContext(ctx, &org, sqlAddCodeBalance, orgID, amount)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Organization{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to add code balance", err)
		return Organization{}, fmt.Errorf("failed to add code balance: %w", err)
	}
	return org, nil
}

// CreateRechargeParams represents parameters for recording a recharge
type CreateRechargeParams struct {
	OrganizationID uuid.UUID
	Plan           string
	CodesAdded     int
	AmountPaid     int64
}

const sqlCreateRecharge = `
INSERT INTO recharges (organization_id, plan, codes_added, amount_paid)
VALUES ($1, $2, $3, $4)
RETURNING id, organization_id, plan, codes_added, amount_paid, created_at
`

// CreateRecharge records a code-balance top-up
func (s *Store) CreateRecharge(ctx context.Context, params CreateRechargeParams) (Recharge, error) {
	var recharge Recharge
	err := s.db.GetContext(ctx, &recharge, sqlCreateRecharge,
		params.OrganizationID,
		params.Plan,
		params.CodesAdded,
		params.AmountPaid)
	if err != nil {
		s.logger.Error(ctx, "failed to create recharge", err)
		return Recharge{}, fmt.Errorf("failed to create recharge: %w", err)
	}
	return recharge, nil
}

const sqlGetRechargesByOrganizationID = `
SELECT id, organization_id, plan, codes_added, amount_paid, created_at
FROM recharges
WHERE organization_id = $1
ORDER BY created_at DESC
`

// GetRechargesByOrganizationID retrieves recharge history for an organization
func (s *Store) GetRechargesByOrganizationID(ctx context.Context, orgID uuid.UUID) ([]Recharge, error) {
	var recharges []Recharge
	err := s.db.SelectContext(ctx, &recharges, sqlGetRechargesByOrganizationID, orgID)
	if err != nil {
		s.logger.Error(ctx, "failed to get recharges by organization id", err)
		return nil, fmt.Errorf("failed to get recharges by organization id: %w", err)
	}
	return recharges, nil
}
