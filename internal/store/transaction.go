package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrAlreadyRewarded is returned when a successful transaction already exists
// for the (customer, campaign) pair. The partial unique index on the
// transactions table makes the ledger insert the single arbiter for races.
var ErrAlreadyRewarded = errors.New("customer already rewarded for campaign")

const pgUniqueViolation = "23505"

// CreateTransactionParams represents parameters for appending a ledger entry.
// CodeID is nil for trigger-only redemptions with no per-claimant code.
type CreateTransactionParams struct {
	CustomerID   uuid.UUID
	CampaignID   uuid.UUID
	CodeID       *uuid.UUID
	Amount       int64
	Status       string
	RewardType   string
	ArtifactCode *string
	Response     JSONB
}

const sqlCreateTransaction = `
INSERT INTO transactions (customer_id, campaign_id, code_id, amount, status, reward_type, artifact_code, response)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, customer_id, campaign_id, code_id, amount, status, reward_type, artifact_code, response, created_at
`

// CreateTransaction appends a ledger entry. A unique-violation on the
// success index means another redemption won the race; callers map that to
// an already-rewarded outcome.
func (s *Store) CreateTransaction(ctx context.Context, params CreateTransactionParams) (Transaction, error) {
	var txn Transaction
	err := s.db.GetContext(ctx, &txn, sqlCreateTransaction,
		params.CustomerID,
		params.CampaignID,
		params.CodeID,
		params.Amount,
		params.Status,
		params.RewardType,
		params.ArtifactCode,
		params.Response)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return Transaction{}, ErrAlreadyRewarded
		}
		s.logger.Error(ctx, "failed to create transaction", err)
		return Transaction{}, fmt.Errorf("failed to create transaction: %w", err)
	}
	return txn, nil
}

const sqlHasSuccessfulTransaction = `
SELECT EXISTS (
    SELECT 1 FROM transactions
    WHERE customer_id = $1 AND campaign_id = $2 AND status = $3
)
`

// HasSuccessfulTransaction reports whether a customer already holds a
// successful transaction for a campaign. Failed entries never count.
func (s *Store) HasSuccessfulTransaction(ctx context.Context, customerID, campaignID uuid.UUID) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, sqlHasSuccessfulTransaction, customerID, campaignID, TransactionStatusSuccess)
	if err != nil {
		s.logger.Error(ctx, "failed to check successful transaction", err)
		return false, fmt.Errorf("failed to check successful transaction: %w", err)
	}
	return exists, nil
}

const sqlGetTransactionsByCampaignID = `
SELECT id, customer_id, campaign_id, code_id, amount, status, reward_type, artifact_code, response, created_at
FROM transactions
WHERE campaign_id = $1
ORDER BY created_at DESC
`

// GetTransactionsByCampaignID retrieves all ledger entries for a campaign
func (s *Store) GetTransactionsByCampaignID(ctx context.Context, campaignID uuid.UUID) ([]Transaction, error) {
	var txns []Transaction
	err := s.db.SelectContext(ctx, &txns, sqlGetTransactionsByCampaignID, campaignID)
	if err != nil {
		s.logger.Error(ctx, "failed to get transactions by campaign id", err)
		return nil, fmt.Errorf("failed to get transactions by campaign id: %w", err)
	}
	return txns, nil
}

const sqlCountSuccessfulTransactions = `
SELECT COUNT(*) FROM transactions
WHERE customer_id = $1 AND campaign_id = $2 AND status = $3
`

// CountSuccessfulTransactions returns how many successful disbursements a
// customer has recorded for a campaign. Tier resolution keys off this count
// plus one, so a claimant's payout never depends on other claimants.
func (s *Store) CountSuccessfulTransactions(ctx context.Context, customerID, campaignID uuid.UUID) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, sqlCountSuccessfulTransactions, customerID, campaignID, TransactionStatusSuccess)
	if err != nil {
		s.logger.Error(ctx, "failed to count successful transactions", err)
		return 0, fmt.Errorf("failed to count successful transactions: %w", err)
	}
	return count, nil
}

const sqlGetCampaignReport = `
SELECT
    $1::uuid as campaign_id,
    COALESCE(SUM(amount) FILTER (WHERE status = $2), 0)::bigint as total_disbursed,
    COALESCE(COUNT(*) FILTER (WHERE status = $2), 0)::int as success_count,
    COALESCE(COUNT(*) FILTER (WHERE status = $3), 0)::int as failed_count,
    COALESCE(COUNT(DISTINCT customer_id) FILTER (WHERE status = $2), 0)::int as distinct_claimants
FROM transactions
WHERE campaign_id = $1
`

// GetCampaignReport computes the per-campaign disbursement roll-up
func (s *Store) GetCampaignReport(ctx context.Context, campaignID uuid.UUID) (CampaignReport, error) {
	var report CampaignReport
	err := s.db.GetContext(ctx, &report, sqlGetCampaignReport, campaignID, TransactionStatusSuccess, TransactionStatusFailed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return CampaignReport{CampaignID: campaignID}, nil
		}
		s.logger.Error(ctx, "failed to get campaign report", err)
		return CampaignReport{}, fmt.Errorf("failed to get campaign report: %w", err)
	}
	return report, nil
}

const sqlGetRedeemedClaimants = `
SELECT c.phone_number, c.full_name, t.amount, t.artifact_code, t.created_at as redeemed_at
FROM transactions t
JOIN customers c ON c.id = t.customer_id
WHERE t.campaign_id = $1 AND t.status = $2
ORDER BY t.created_at DESC
`

// GetRedeemedClaimants lists claimants with successful disbursements for a
// campaign, in a shape suitable for export.
func (s *Store) GetRedeemedClaimants(ctx context.Context, campaignID uuid.UUID) ([]RedeemedClaimant, error) {
	var claimants []RedeemedClaimant
	err := s.db.SelectContext(ctx, &claimants, sqlGetRedeemedClaimants, campaignID, TransactionStatusSuccess)
	if err != nil {
		s.logger.Error(ctx, "failed to get redeemed claimants", err)
		return nil, fmt.Errorf("failed to get redeemed claimants: %w", err)
	}
	return claimants, nil
}
