package workers

import (
	"context"
	"errors"
	"testing"

	"bounty-server/internal/jobs"
	"bounty-server/internal/observability"
	"bounty-server/internal/store"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type fakeProvisioningStore struct {
	campaign     store.Campaign
	campaignErr  error
	codeBalance  int
	codes        map[string]uuid.UUID
	customers    []store.BulkCustomerParams
	statusLog    []string
	insertErr    error
	refunds      int
}

func newFakeProvisioningStore(campaign store.Campaign, balance int) *fakeProvisioningStore {
	return &fakeProvisioningStore{
		campaign:    campaign,
		codeBalance: balance,
		codes:       make(map[string]uuid.UUID),
	}
}

func (f *fakeProvisioningStore) GetCampaignByID(ctx context.Context, campaignID uuid.UUID) (store.Campaign, error) {
	if f.campaignErr != nil {
		return store.Campaign{}, f.campaignErr
	}
	return f.campaign, nil
}

func (f *fakeProvisioningStore) UpdateCampaignStatus(ctx context.Context, campaignID uuid.UUID, status string) (store.Campaign, error) {
	f.campaign.Status = status
	f.statusLog = append(f.statusLog, status)
	return f.campaign, nil
}

func (f *fakeProvisioningStore) CountCodesByCampaignID(ctx context.Context, campaignID uuid.UUID) (int, error) {
	count := 0
	for _, cID := range f.codes {
		if cID == campaignID {
			count++
		}
	}
	return count, nil
}

func (f *fakeProvisioningStore) GetAllCodeValues(ctx context.Context) ([]string, error) {
	values := make([]string, 0, len(f.codes))
	for code := range f.codes {
		values = append(values, code)
	}
	return values, nil
}

func (f *fakeProvisioningStore) BulkInsertCodes(ctx context.Context, campaignID uuid.UUID, codes []store.CreateCodeParams) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, c := range codes {
		f.codes[c.Code] = campaignID
	}
	return nil
}

func (f *fakeProvisioningStore) DeductCodeBalance(ctx context.Context, orgID uuid.UUID, amount int) (store.Organization, error) {
	if f.codeBalance < amount {
		return store.Organization{}, store.ErrInsufficientCodeBalance
	}
	f.codeBalance -= amount
	return store.Organization{ID: orgID, CodeBalance: f.codeBalance}, nil
}

func (f *fakeProvisioningStore) AddCodeBalance(ctx context.Context, orgID uuid.UUID, amount int) (store.Organization, error) {
	f.codeBalance += amount
	f.refunds++
	return store.Organization{ID: orgID, CodeBalance: f.codeBalance}, nil
}

func (f *fakeProvisioningStore) BulkUpsertCustomers(ctx context.Context, customers []store.BulkCustomerParams) error {
	f.customers = append(f.customers, customers...)
	return nil
}

func newProvisionTask(t *testing.T, payload jobs.ProvisionCodesPayload) *asynq.Task {
	t.Helper()
	task, err := jobs.NewProvisionCodesTask(payload)
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}
	return task
}

func TestProvisionCodes(t *testing.T) {
	campaignID := uuid.New()
	orgID := uuid.New()
	logger := observability.NewLogger()

	t.Run("generates codes and flips campaign to ready", func(t *testing.T) {
		fake := newFakeProvisioningStore(store.Campaign{
			ID:             campaignID,
			OrganizationID: orgID,
			Status:         store.CampaignStatusPending,
		}, 100)
		w := NewProvisioningWorker(fake, logger)

		task := newProvisionTask(t, jobs.ProvisionCodesPayload{
			CampaignID:     campaignID,
			OrganizationID: orgID,
			Count:          10,
		})
		if err := w.ProcessProvisionCodesTask(context.Background(), task); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(fake.codes) != 10 {
			t.Errorf("expected 10 codes, got %d", len(fake.codes))
		}
		if fake.codeBalance != 90 {
			t.Errorf("expected balance 90, got %d", fake.codeBalance)
		}
		if fake.campaign.Status != store.CampaignStatusReady {
			t.Errorf("expected campaign ready, got %s", fake.campaign.Status)
		}
	})

	t.Run("rerun only generates the shortfall", func(t *testing.T) {
		fake := newFakeProvisioningStore(store.Campaign{
			ID:             campaignID,
			OrganizationID: orgID,
			Status:         store.CampaignStatusProcessing,
		}, 100)
		// Simulate 6 codes persisted by an earlier partial run
		seeded, err := GenerateCodes(6, DefaultCodePrefix, map[string]struct{}{})
		if err != nil {
			t.Fatalf("failed to seed codes: %v", err)
		}
		for _, code := range seeded {
			fake.codes[code] = campaignID
		}

		w := NewProvisioningWorker(fake, logger)
		task := newProvisionTask(t, jobs.ProvisionCodesPayload{
			CampaignID:     campaignID,
			OrganizationID: orgID,
			Count:          10,
		})
		if err := w.ProcessProvisionCodesTask(context.Background(), task); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(fake.codes) != 10 {
			t.Errorf("expected 10 codes total, got %d", len(fake.codes))
		}
		// Only the 4 missing codes are charged
		if fake.codeBalance != 96 {
			t.Errorf("expected balance 96, got %d", fake.codeBalance)
		}
	})

	t.Run("insufficient balance is terminal", func(t *testing.T) {
		fake := newFakeProvisioningStore(store.Campaign{
			ID:             campaignID,
			OrganizationID: orgID,
			Status:         store.CampaignStatusPending,
		}, 3)
		w := NewProvisioningWorker(fake, logger)

		task := newProvisionTask(t, jobs.ProvisionCodesPayload{
			CampaignID:     campaignID,
			OrganizationID: orgID,
			Count:          10,
		})
		err := w.ProcessProvisionCodesTask(context.Background(), task)
		if !errors.Is(err, asynq.SkipRetry) {
			t.Fatalf("expected SkipRetry, got %v", err)
		}
		if len(fake.codes) != 0 {
			t.Errorf("no codes should be persisted, got %d", len(fake.codes))
		}
	})

	t.Run("missing campaign is terminal", func(t *testing.T) {
		fake := newFakeProvisioningStore(store.Campaign{}, 100)
		fake.campaignErr = store.ErrNotFound
		w := NewProvisioningWorker(fake, logger)

		task := newProvisionTask(t, jobs.ProvisionCodesPayload{
			CampaignID:     campaignID,
			OrganizationID: orgID,
			Count:          10,
		})
		err := w.ProcessProvisionCodesTask(context.Background(), task)
		if !errors.Is(err, asynq.SkipRetry) {
			t.Fatalf("expected SkipRetry, got %v", err)
		}
	})

	t.Run("failed insert refunds the deduction", func(t *testing.T) {
		fake := newFakeProvisioningStore(store.Campaign{
			ID:             campaignID,
			OrganizationID: orgID,
			Status:         store.CampaignStatusPending,
		}, 100)
		fake.insertErr = errors.New("connection lost")
		w := NewProvisioningWorker(fake, logger)

		task := newProvisionTask(t, jobs.ProvisionCodesPayload{
			CampaignID:     campaignID,
			OrganizationID: orgID,
			Count:          10,
		})
		err := w.ProcessProvisionCodesTask(context.Background(), task)
		if err == nil {
			t.Fatal("expected error")
		}
		if errors.Is(err, asynq.SkipRetry) {
			t.Fatal("transient insert failure must stay retryable")
		}
		if fake.codeBalance != 100 {
			t.Errorf("expected balance restored to 100, got %d", fake.codeBalance)
		}
		if fake.refunds != 1 {
			t.Errorf("expected 1 refund, got %d", fake.refunds)
		}
	})

	t.Run("already ready campaign is a no-op", func(t *testing.T) {
		fake := newFakeProvisioningStore(store.Campaign{
			ID:             campaignID,
			OrganizationID: orgID,
			Status:         store.CampaignStatusReady,
		}, 100)
		w := NewProvisioningWorker(fake, logger)

		task := newProvisionTask(t, jobs.ProvisionCodesPayload{
			CampaignID:     campaignID,
			OrganizationID: orgID,
			Count:          10,
		})
		if err := w.ProcessProvisionCodesTask(context.Background(), task); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(fake.codes) != 0 || fake.codeBalance != 100 {
			t.Error("no-op run must not mutate anything")
		}
	})
}

func TestProvisionImport(t *testing.T) {
	campaignID := uuid.New()
	orgID := uuid.New()
	logger := observability.NewLogger()

	name := "Asha"
	assignments := []jobs.ClaimantAssignment{
		{PhoneNumber: "+919876500001", FullName: &name, Code: "BNTYAAAAAA1"},
		{PhoneNumber: "+919876500002", Code: "BNTYAAAAAA2"},
	}

	fake := newFakeProvisioningStore(store.Campaign{
		ID:             campaignID,
		OrganizationID: orgID,
		Status:         store.CampaignStatusPending,
	}, 100)
	w := NewProvisioningWorker(fake, logger)

	task, err := jobs.NewProvisionImportTask(jobs.ProvisionImportPayload{
		CampaignID:     campaignID,
		OrganizationID: orgID,
		Assignments:    assignments,
	})
	if err != nil {
		t.Fatalf("failed to create task: %v", err)
	}

	if err := w.ProcessProvisionImportTask(context.Background(), task); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fake.customers) != 2 {
		t.Errorf("expected 2 imported claimants, got %d", len(fake.customers))
	}
	if len(fake.codes) != 2 {
		t.Errorf("expected 2 assigned codes, got %d", len(fake.codes))
	}
	if fake.campaign.Status != store.CampaignStatusReady {
		t.Errorf("expected campaign ready, got %s", fake.campaign.Status)
	}
}
