package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrCodeAlreadyUsed is returned when a single-use code has already been
// consumed by a claimant.
var ErrCodeAlreadyUsed = errors.New("code already used")

// CreateCodeParams represents a single code to insert for a campaign
type CreateCodeParams struct {
	Code       string
	AssignedTo *string
}

// BulkInsertCodes inserts a batch of codes for a campaign in a single
// statement. Codes are globally unique; a conflicting value fails the whole
// batch so the provisioning job can regenerate and retry.
func (s *Store) BulkInsertCodes(ctx context.Context, campaignID uuid.UUID, codes []CreateCodeParams) error {
	if len(codes) == 0 {
		return nil
	}

	valueStrings := make([]string, 0, len(codes))
	args := make([]interface{}, 0, len(codes)*3)
	for i, c := range codes {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d)", i*3+1, i*3+2, i*3+3))
		args = append(args, campaignID, c.Code, c.AssignedTo)
	}

	query := fmt.Sprintf(
		"INSERT INTO codes (campaign_id, code, assigned_to) VALUES %s",
		strings.Join(valueStrings, ", "))

	_, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error(ctx, "failed to bulk insert codes", err)
		return fmt.Errorf("failed to bulk insert codes: %w", err)
	}
	return nil
}

const sqlGetCodeByValue = `
SELECT id, campaign_id, code, assigned_to, is_used, used_by, used_at, created_at
FROM codes
WHERE code = $1
`

// GetCodeByValue retrieves a code row by its code value
func (s *Store) GetCodeByValue(ctx context.Context, code string) (Code, error) {
	var c Code
	err := s.db.GetContext(ctx, &c, sqlGetCodeByValue, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Code{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get code by value", err)
		return Code{}, fmt.Errorf("failed to get code by value: %w", err)
	}
	return c, nil
}

const sqlGetCodeByAssignedPhone = `
SELECT id, campaign_id, code, assigned_to, is_used, used_by, used_at, created_at
FROM codes
WHERE campaign_id = $1 AND assigned_to = $2
`

// GetCodeByAssignedPhone retrieves the code pre-assigned to a claimant phone
// number for a campaign.
func (s *Store) GetCodeByAssignedPhone(ctx context.Context, campaignID uuid.UUID, phone string) (Code, error) {
	var c Code
	err := s.db.GetContext(ctx, &c, sqlGetCodeByAssignedPhone, campaignID, phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Code{}, ErrNotFound
		}
		s.logger.Error(ctx, "failed to get code by assigned phone", err)
		return Code{}, fmt.Errorf("failed to get code by assigned phone: %w", err)
	}
	return c, nil
}

const sqlConsumeCode = `
UPDATE codes
SET is_used = true, used_by = $2, used_at = CURRENT_TIMESTAMP
WHERE id = $1 AND is_used = false
RETURNING id, campaign_id, code, assigned_to, is_used, used_by, used_at, created_at
`

// ConsumeCode marks a single-use code as used by a claimant. The conditional
// update is the only way a code flips to used; a second caller racing on the
// same code gets ErrCodeAlreadyUsed.
func (s *Store) ConsumeCode(ctx context.Context, codeID, customerID uuid.UUID) (Code, error) {
	var c Code
	err := s.db.GetContext(ctx, &c, sqlConsumeCode, codeID, customerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Either the code does not exist or it was already consumed
			if _, getErr := s.getCodeByID(ctx, codeID); getErr != nil {
				return Code{}, getErr
			}
			return Code{}, ErrCodeAlreadyUsed
		}
		s.logger.Error(ctx, "failed to consume code", err)
		return Code{}, fmt.Errorf("failed to consume code: %w", err)
	}
	return c, nil
}

const sqlGetCodeByID = `
SELECT id, campaign_id, code, assigned_to, is_used, used_by, used_at, created_at
FROM codes
WHERE id = $1
`

func (s *Store) getCodeByID(ctx context.Context, codeID uuid.UUID) (Code, error) {
	var c Code
	err := s.db.GetContext(ctx, &c, sqlGetCodeByID, codeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Code{}, ErrNotFound
		}
		return Code{}, fmt.Errorf("failed to get code by id: %w", err)
	}
	return c, nil
}

const sqlCountCodesByCampaignID = `
SELECT COUNT(*) FROM codes WHERE campaign_id = $1
`

// CountCodesByCampaignID returns how many codes exist for a campaign. The
// provisioning worker uses this to compute the shortfall on re-runs.
func (s *Store) CountCodesByCampaignID(ctx context.Context, campaignID uuid.UUID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, sqlCountCodesByCampaignID, campaignID)
	if err != nil {
		s.logger.Error(ctx, "failed to count codes by campaign id", err)
		return 0, fmt.Errorf("failed to count codes by campaign id: %w", err)
	}
	return count, nil
}

const sqlGetAllCodeValues = `
SELECT code FROM codes
`

// GetAllCodeValues returns every code value in the registry. Code generation
// loads this once to guarantee global uniqueness of new batches.
func (s *Store) GetAllCodeValues(ctx context.Context) ([]string, error) {
	var values []string
	err := s.db.SelectContext(ctx, &values, sqlGetAllCodeValues)
	if err != nil {
		s.logger.Error(ctx, "failed to get all code values", err)
		return nil, fmt.Errorf("failed to get all code values: %w", err)
	}
	return values, nil
}

const sqlGetCodesByCampaignID = `
SELECT id, campaign_id, code, assigned_to, is_used, used_by, used_at, created_at
FROM codes
WHERE campaign_id = $1
ORDER BY created_at
`

// GetCodesByCampaignID retrieves all codes provisioned for a campaign
func (s *Store) GetCodesByCampaignID(ctx context.Context, campaignID uuid.UUID) ([]Code, error) {
	var codes []Code
	err := s.db.SelectContext(ctx, &codes, sqlGetCodesByCampaignID, campaignID)
	if err != nil {
		s.logger.Error(ctx, "failed to get codes by campaign id", err)
		return nil, fmt.Errorf("failed to get codes by campaign id: %w", err)
	}
	return codes, nil
}
