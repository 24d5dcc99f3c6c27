package jobs

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Job type constants
const (
	// High priority queue
	TypeProvisionCodes  = "provision:codes"
	TypeProvisionImport = "provision:import"
)

// Queue names
const (
	QueueHigh   = "high"
	QueueMedium = "medium"
	QueueLow    = "low"
)

// ProvisionCodesPayload asks the worker to generate codes for a campaign
type ProvisionCodesPayload struct {
	CampaignID     uuid.UUID `json:"campaign_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Count          int       `json:"count"`
}

// NewProvisionCodesTask creates a code provisioning task
func NewProvisionCodesTask(payload ProvisionCodesPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProvisionCodes, data, asynq.Queue(QueueHigh), asynq.MaxRetry(5)), nil
}

// ClaimantAssignment pairs a claimant phone with a pre-assigned code
type ClaimantAssignment struct {
	PhoneNumber string  `json:"phone_number"`
	FullName    *string `json:"full_name,omitempty"`
	Code        string  `json:"code"`
}

// ProvisionImportPayload asks the worker to onboard bulk claimants with
// pre-assigned codes.
type ProvisionImportPayload struct {
	CampaignID     uuid.UUID            `json:"campaign_id"`
	OrganizationID uuid.UUID            `json:"organization_id"`
	Assignments    []ClaimantAssignment `json:"assignments"`
}

// NewProvisionImportTask creates a bulk claimant onboarding task
func NewProvisionImportTask(payload ProvisionImportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeProvisionImport, data, asynq.Queue(QueueHigh), asynq.MaxRetry(5)), nil
}
