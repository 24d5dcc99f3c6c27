package workers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"bounty-server/internal/jobs"
	"bounty-server/internal/observability"
	"bounty-server/internal/store"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// ProvisioningStore defines the store operations the provisioning workers need
type ProvisioningStore interface {
	GetCampaignByID(ctx context.Context, campaignID uuid.UUID) (store.Campaign, error)
	UpdateCampaignStatus(ctx context.Context, campaignID uuid.UUID, status string) (store.Campaign, error)
	CountCodesByCampaignID(ctx context.Context, campaignID uuid.UUID) (int, error)
	GetAllCodeValues(ctx context.Context) ([]string, error)
	BulkInsertCodes(ctx context.Context, campaignID uuid.UUID, codes []store.CreateCodeParams) error
	DeductCodeBalance(ctx context.Context, orgID uuid.UUID, amount int) (store.Organization, error)
	AddCodeBalance(ctx context.Context, orgID uuid.UUID, amount int) (store.Organization, error)
	BulkUpsertCustomers(ctx context.Context, customers []store.BulkCustomerParams) error
}

// ProvisioningWorker handles code generation and bulk claimant onboarding jobs
type ProvisioningWorker struct {
	store  ProvisioningStore
	logger *observability.Logger
}

// NewProvisioningWorker creates a new provisioning worker
func NewProvisioningWorker(store ProvisioningStore, logger *observability.Logger) *ProvisioningWorker {
	return &ProvisioningWorker{
		store:  store,
		logger: logger,
	}
}

// ProcessProvisionCodesTask processes a code provisioning task (for Asynq)
func (w *ProvisioningWorker) ProcessProvisionCodesTask(ctx context.Context, task *asynq.Task) error {
	var payload jobs.ProvisionCodesPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		w.logger.Error(ctx, "failed to unmarshal provision codes payload", err)
		return fmt.Errorf("failed to unmarshal provision codes payload: %v: %w", err, asynq.SkipRetry)
	}
	return w.provisionCodes(ctx, payload)
}

// provisionCodes contains the core code generation logic. Re-runs are safe:
// the worker counts codes already persisted for the campaign and only
// generates the shortfall.
func (w *ProvisioningWorker) provisionCodes(ctx context.Context, payload jobs.ProvisionCodesPayload) error {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "campaign_id", Value: payload.CampaignID},
		observability.Field{Key: "code_count", Value: payload.Count},
	)

	campaign, err := w.store.GetCampaignByID(ctx, payload.CampaignID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			w.logger.Error(ctx, "campaign for provisioning does not exist", err)
			return fmt.Errorf("campaign %s not found: %w", payload.CampaignID, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to load campaign: %w", err)
	}

	// A campaign already past provisioning means an earlier run finished
	if campaign.Status == store.CampaignStatusReady ||
		campaign.Status == store.CampaignStatusActive ||
		campaign.Status == store.CampaignStatusCompleted {
		w.logger.Info(ctx, "campaign already provisioned, nothing to do")
		return nil
	}

	if campaign.Status == store.CampaignStatusPending {
		if _, err := w.store.UpdateCampaignStatus(ctx, campaign.ID, store.CampaignStatusProcessing); err != nil {
			return fmt.Errorf("failed to move campaign to processing: %w", err)
		}
	}

	existingCount, err := w.store.CountCodesByCampaignID(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("failed to count existing codes: %w", err)
	}

	shortfall := payload.Count - existingCount
	if shortfall > 0 {
		if err := w.generateShortfall(ctx, payload, shortfall); err != nil {
			return err
		}
	}

	if _, err := w.store.UpdateCampaignStatus(ctx, campaign.ID, store.CampaignStatusReady); err != nil {
		return fmt.Errorf("failed to move campaign to ready: %w", err)
	}

	w.logger.Info(ctx, fmt.Sprintf("provisioned %d codes (%d pre-existing)", shortfall, existingCount))
	return nil
}

func (w *ProvisioningWorker) generateShortfall(ctx context.Context, payload jobs.ProvisionCodesPayload, shortfall int) error {
	// The deduction is the conditional update on the organization row, so
	// two racing runs can never over-spend the balance.
	if _, err := w.store.DeductCodeBalance(ctx, payload.OrganizationID, shortfall); err != nil {
		if errors.Is(err, store.ErrInsufficientCodeBalance) {
			w.logger.Error(ctx, "organization cannot cover code generation", err)
			return fmt.Errorf("insufficient code balance for %d codes: %w", shortfall, asynq.SkipRetry)
		}
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("organization %s not found: %w", payload.OrganizationID, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to deduct code balance: %w", err)
	}

	values, err := w.store.GetAllCodeValues(ctx)
	if err != nil {
		w.refundBalance(ctx, payload.OrganizationID, shortfall)
		return fmt.Errorf("failed to load existing codes: %w", err)
	}
	existing := make(map[string]struct{}, len(values))
	for _, v := range values {
		existing[v] = struct{}{}
	}

	codes, err := GenerateCodes(shortfall, DefaultCodePrefix, existing)
	if err != nil {
		w.refundBalance(ctx, payload.OrganizationID, shortfall)
		return fmt.Errorf("failed to generate codes: %w", err)
	}

	params := make([]store.CreateCodeParams, len(codes))
	for i, code := range codes {
		params[i] = store.CreateCodeParams{Code: code}
	}
	if err := w.store.BulkInsertCodes(ctx, payload.CampaignID, params); err != nil {
		w.refundBalance(ctx, payload.OrganizationID, shortfall)
		return fmt.Errorf("failed to insert codes: %w", err)
	}
	return nil
}

// refundBalance compensates a deduction whose codes never landed, so a
// retried job does not charge the organization twice.
func (w *ProvisioningWorker) refundBalance(ctx context.Context, orgID uuid.UUID, amount int) {
	if _, err := w.store.AddCodeBalance(ctx, orgID, amount); err != nil {
		w.logger.Error(ctx, "failed to refund code balance after provisioning failure", err)
	}
}

// ProcessProvisionImportTask processes a bulk claimant onboarding task (for Asynq)
func (w *ProvisioningWorker) ProcessProvisionImportTask(ctx context.Context, task *asynq.Task) error {
	var payload jobs.ProvisionImportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		w.logger.Error(ctx, "failed to unmarshal provision import payload", err)
		return fmt.Errorf("failed to unmarshal provision import payload: %v: %w", err, asynq.SkipRetry)
	}
	return w.provisionImport(ctx, payload)
}

// provisionImport onboards bulk claimants with pre-assigned codes
func (w *ProvisioningWorker) provisionImport(ctx context.Context, payload jobs.ProvisionImportPayload) error {
	ctx = observability.WithFields(ctx,
		observability.Field{Key: "campaign_id", Value: payload.CampaignID},
		observability.Field{Key: "assignment_count", Value: len(payload.Assignments)},
	)

	campaign, err := w.store.GetCampaignByID(ctx, payload.CampaignID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			w.logger.Error(ctx, "campaign for import does not exist", err)
			return fmt.Errorf("campaign %s not found: %w", payload.CampaignID, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to load campaign: %w", err)
	}

	if campaign.Status == store.CampaignStatusReady ||
		campaign.Status == store.CampaignStatusActive ||
		campaign.Status == store.CampaignStatusCompleted {
		w.logger.Info(ctx, "campaign already imported, nothing to do")
		return nil
	}

	if campaign.Status == store.CampaignStatusPending {
		if _, err := w.store.UpdateCampaignStatus(ctx, campaign.ID, store.CampaignStatusProcessing); err != nil {
			return fmt.Errorf("failed to move campaign to processing: %w", err)
		}
	}

	customers := make([]store.BulkCustomerParams, len(payload.Assignments))
	for i, a := range payload.Assignments {
		customers[i] = store.BulkCustomerParams{
			PhoneNumber: a.PhoneNumber,
			FullName:    a.FullName,
		}
	}
	if err := w.store.BulkUpsertCustomers(ctx, customers); err != nil {
		return fmt.Errorf("failed to import claimants: %w", err)
	}

	existingCount, err := w.store.CountCodesByCampaignID(ctx, campaign.ID)
	if err != nil {
		return fmt.Errorf("failed to count existing codes: %w", err)
	}
	if existingCount == 0 {
		params := make([]store.CreateCodeParams, len(payload.Assignments))
		for i, a := range payload.Assignments {
			phone := a.PhoneNumber
			params[i] = store.CreateCodeParams{Code: a.Code, AssignedTo: &phone}
		}
		if err := w.store.BulkInsertCodes(ctx, payload.CampaignID, params); err != nil {
			return fmt.Errorf("failed to insert assigned codes: %w", err)
		}
	}

	if _, err := w.store.UpdateCampaignStatus(ctx, campaign.ID, store.CampaignStatusReady); err != nil {
		return fmt.Errorf("failed to move campaign to ready: %w", err)
	}

	w.logger.Info(ctx, fmt.Sprintf("imported %d claimants", len(payload.Assignments)))
	return nil
}
