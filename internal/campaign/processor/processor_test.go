package processor

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"bounty-server/internal/jobs"
	"bounty-server/internal/observability"
	"bounty-server/internal/payout"
	"bounty-server/internal/store"

	"github.com/google/uuid"
)

type fakeCampaignStore struct {
	orgs      map[uuid.UUID]store.Organization
	campaigns map[uuid.UUID]store.Campaign
	merchants map[uuid.UUID]store.Merchant
	recharges []store.Recharge
}

func newFakeCampaignStore() *fakeCampaignStore {
	return &fakeCampaignStore{
		orgs:      make(map[uuid.UUID]store.Organization),
		campaigns: make(map[uuid.UUID]store.Campaign),
		merchants: make(map[uuid.UUID]store.Merchant),
	}
}

func (f *fakeCampaignStore) addOrg(balance int) store.Organization {
	org := store.Organization{ID: uuid.New(), Name: "Acme", CodeBalance: balance}
	f.orgs[org.ID] = org
	return org
}

func (f *fakeCampaignStore) CreateCampaign(ctx context.Context, params store.CreateCampaignParams) (store.Campaign, error) {
	campaign := store.Campaign{
		ID:             uuid.New(),
		OrganizationID: params.OrganizationID,
		MerchantID:     params.MerchantID,
		Name:           params.Name,
		Status:         store.CampaignStatusPending,
		RewardType:     params.RewardType,
		CodeTemplate:   params.CodeTemplate,
		TriggerText:    params.TriggerText,
		PublishPin:     params.PublishPin,
		PayoutSchedule: params.PayoutSchedule,
		FallbackAmount: params.FallbackAmount,
	}
	f.campaigns[campaign.ID] = campaign
	return campaign, nil
}

func (f *fakeCampaignStore) GetCampaignByID(ctx context.Context, campaignID uuid.UUID) (store.Campaign, error) {
	c, ok := f.campaigns[campaignID]
	if !ok {
		return store.Campaign{}, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeCampaignStore) GetCampaignsByOrganizationID(ctx context.Context, orgID uuid.UUID) ([]store.Campaign, error) {
	var out []store.Campaign
	for _, c := range f.campaigns {
		if c.OrganizationID == orgID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeCampaignStore) UpdateCampaignStatus(ctx context.Context, campaignID uuid.UUID, status string) (store.Campaign, error) {
	c, ok := f.campaigns[campaignID]
	if !ok {
		return store.Campaign{}, store.ErrNotFound
	}
	c.Status = status
	f.campaigns[campaignID] = c
	return c, nil
}

func (f *fakeCampaignStore) UpdateCampaignPayoutSchedule(ctx context.Context, campaignID uuid.UUID, schedule store.JSONB, fallbackAmount *int64) (store.Campaign, error) {
	c, ok := f.campaigns[campaignID]
	if !ok {
		return store.Campaign{}, store.ErrNotFound
	}
	c.PayoutSchedule = schedule
	if fallbackAmount != nil {
		c.FallbackAmount = fallbackAmount
	}
	f.campaigns[campaignID] = c
	return c, nil
}

func (f *fakeCampaignStore) AttachCampaignMerchant(ctx context.Context, campaignID, merchantID uuid.UUID) (store.Campaign, error) {
	c, ok := f.campaigns[campaignID]
	if !ok {
		return store.Campaign{}, store.ErrNotFound
	}
	c.MerchantID = &merchantID
	f.campaigns[campaignID] = c
	return c, nil
}

func (f *fakeCampaignStore) GetCampaignReport(ctx context.Context, campaignID uuid.UUID) (store.CampaignReport, error) {
	return store.CampaignReport{CampaignID: campaignID}, nil
}

func (f *fakeCampaignStore) GetRedeemedClaimants(ctx context.Context, campaignID uuid.UUID) ([]store.RedeemedClaimant, error) {
	return nil, nil
}

func (f *fakeCampaignStore) CreateOrganization(ctx context.Context, params store.CreateOrganizationParams) (store.Organization, error) {
	org := store.Organization{ID: uuid.New(), Name: params.Name, Phone: params.Phone, CodeBalance: params.CodeBalance}
	f.orgs[org.ID] = org
	return org, nil
}

func (f *fakeCampaignStore) GetOrganizationByID(ctx context.Context, orgID uuid.UUID) (store.Organization, error) {
	org, ok := f.orgs[orgID]
	if !ok {
		return store.Organization{}, store.ErrNotFound
	}
	return org, nil
}

func (f *fakeCampaignStore) AddCodeBalance(ctx context.Context, orgID uuid.UUID, amount int) (store.Organization, error) {
	org, ok := f.orgs[orgID]
	if !ok {
		return store.Organization{}, store.ErrNotFound
	}
	org.CodeBalance += amount
	f.orgs[orgID] = org
	return org, nil
}

func (f *fakeCampaignStore) CreateRecharge(ctx context.Context, params store.CreateRechargeParams) (store.Recharge, error) {
	recharge := store.Recharge{
		ID:             uuid.New(),
		OrganizationID: params.OrganizationID,
		Plan:           params.Plan,
		CodesAdded:     params.CodesAdded,
		AmountPaid:     params.AmountPaid,
	}
	f.recharges = append(f.recharges, recharge)
	return recharge, nil
}

func (f *fakeCampaignStore) GetRechargesByOrganizationID(ctx context.Context, orgID uuid.UUID) ([]store.Recharge, error) {
	var out []store.Recharge
	for _, r := range f.recharges {
		if r.OrganizationID == orgID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeCampaignStore) CreateMerchant(ctx context.Context, params store.CreateMerchantParams) (store.Merchant, error) {
	merchant := store.Merchant{
		ID:             uuid.New(),
		OrganizationID: params.OrganizationID,
		Name:           params.Name,
		PhoneNumber:    params.PhoneNumber,
		UPIID:          params.UPIID,
		Status:         store.MerchantStatusActive,
	}
	f.merchants[merchant.ID] = merchant
	return merchant, nil
}

func (f *fakeCampaignStore) GetMerchantByID(ctx context.Context, merchantID uuid.UUID) (store.Merchant, error) {
	m, ok := f.merchants[merchantID]
	if !ok {
		return store.Merchant{}, store.ErrNotFound
	}
	return m, nil
}

func (f *fakeCampaignStore) UpdateMerchantStatus(ctx context.Context, merchantID uuid.UUID, status string) (store.Merchant, error) {
	m, ok := f.merchants[merchantID]
	if !ok {
		return store.Merchant{}, store.ErrNotFound
	}
	m.Status = status
	f.merchants[merchantID] = m
	return m, nil
}

type fakeEnqueuer struct {
	codesJobs  []jobs.ProvisionCodesPayload
	importJobs []jobs.ProvisionImportPayload
	err        error
}

func (f *fakeEnqueuer) EnqueueProvisionCodesJob(ctx context.Context, payload jobs.ProvisionCodesPayload) error {
	if f.err != nil {
		return f.err
	}
	f.codesJobs = append(f.codesJobs, payload)
	return nil
}

func (f *fakeEnqueuer) EnqueueProvisionImportJob(ctx context.Context, payload jobs.ProvisionImportPayload) error {
	if f.err != nil {
		return f.err
	}
	f.importJobs = append(f.importJobs, payload)
	return nil
}

var pinPattern = regexp.MustCompile(`^\d{4}$`)

func TestCreateCampaign(t *testing.T) {
	logger := observability.NewLogger()

	t.Run("creates pending campaign and enqueues codes job", func(t *testing.T) {
		fake := newFakeCampaignStore()
		org := fake.addOrg(100)
		enqueuer := &fakeEnqueuer{}
		p := New(fake, enqueuer, logger)

		campaign, err := p.CreateCampaign(context.Background(), CreateCampaignParams{
			OrganizationID: org.ID,
			Name:           "Diwali Cashback",
			RewardType:     store.RewardTypeCashback,
			CodeTemplate:   store.CodeTemplateSingleUse,
			CodeCount:      50,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if campaign.Status != store.CampaignStatusPending {
			t.Errorf("expected pending, got %s", campaign.Status)
		}
		if !pinPattern.MatchString(campaign.PublishPin) {
			t.Errorf("expected 4-digit pin, got %q", campaign.PublishPin)
		}
		if len(enqueuer.codesJobs) != 1 || enqueuer.codesJobs[0].Count != 50 {
			t.Errorf("expected one codes job for 50 codes, got %+v", enqueuer.codesJobs)
		}
		if campaign.PayoutSchedule == nil {
			t.Error("expected default payout schedule")
		}
	})

	t.Run("assignments enqueue an import job", func(t *testing.T) {
		fake := newFakeCampaignStore()
		org := fake.addOrg(100)
		enqueuer := &fakeEnqueuer{}
		p := New(fake, enqueuer, logger)

		_, err := p.CreateCampaign(context.Background(), CreateCampaignParams{
			OrganizationID: org.ID,
			Name:           "Bulk Onboarding",
			RewardType:     store.RewardTypeCashback,
			CodeTemplate:   store.CodeTemplateSingleUse,
			Assignments: []ClaimantAssignment{
				{PhoneNumber: "+919876500001", Code: "BNTYAAAAAA1"},
			},
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(enqueuer.importJobs) != 1 || len(enqueuer.importJobs[0].Assignments) != 1 {
			t.Errorf("expected one import job, got %+v", enqueuer.importJobs)
		}
		if len(enqueuer.codesJobs) != 0 {
			t.Error("assignments must not also enqueue a codes job")
		}
	})

	t.Run("merchant trigger campaign with no codes goes straight to ready", func(t *testing.T) {
		fake := newFakeCampaignStore()
		org := fake.addOrg(100)
		enqueuer := &fakeEnqueuer{}
		p := New(fake, enqueuer, logger)

		trigger := "  Claim Bonus  "
		campaign, err := p.CreateCampaign(context.Background(), CreateCampaignParams{
			OrganizationID: org.ID,
			Name:           "Storefront",
			RewardType:     store.RewardTypeCashback,
			CodeTemplate:   store.CodeTemplateMerchant,
			TriggerText:    &trigger,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		stored := fake.campaigns[campaign.ID]
		if stored.Status != store.CampaignStatusReady {
			t.Errorf("expected ready, got %s", stored.Status)
		}
		if stored.TriggerText == nil || *stored.TriggerText != "claim bonus" {
			t.Errorf("expected normalized trigger text, got %v", stored.TriggerText)
		}
	})

	t.Run("merchant template without trigger text is rejected", func(t *testing.T) {
		fake := newFakeCampaignStore()
		org := fake.addOrg(100)
		p := New(fake, &fakeEnqueuer{}, logger)

		_, err := p.CreateCampaign(context.Background(), CreateCampaignParams{
			OrganizationID: org.ID,
			Name:           "Storefront",
			RewardType:     store.RewardTypeCashback,
			CodeTemplate:   store.CodeTemplateMerchant,
		})
		if !errors.Is(err, ErrTriggerTextRequired) {
			t.Fatalf("expected ErrTriggerTextRequired, got %v", err)
		}
	})

	t.Run("invalid reward type is rejected", func(t *testing.T) {
		fake := newFakeCampaignStore()
		org := fake.addOrg(100)
		p := New(fake, &fakeEnqueuer{}, logger)

		_, err := p.CreateCampaign(context.Background(), CreateCampaignParams{
			OrganizationID: org.ID,
			Name:           "Bad",
			RewardType:     "points",
			CodeTemplate:   store.CodeTemplateSingleUse,
		})
		if !errors.Is(err, ErrInvalidRewardType) {
			t.Fatalf("expected ErrInvalidRewardType, got %v", err)
		}
	})

	t.Run("invalid schedule is rejected", func(t *testing.T) {
		fake := newFakeCampaignStore()
		org := fake.addOrg(100)
		p := New(fake, &fakeEnqueuer{}, logger)

		_, err := p.CreateCampaign(context.Background(), CreateCampaignParams{
			OrganizationID: org.ID,
			Name:           "Bad Schedule",
			RewardType:     store.RewardTypeCashback,
			CodeTemplate:   store.CodeTemplateSingleUse,
			PayoutSchedule: map[string]interface{}{
				"1": map[string]interface{}{"min": float64(50), "max": float64(10), "avg": float64(20)},
			},
		})
		if !errors.Is(err, payout.ErrInvalidSchedule) {
			t.Fatalf("expected ErrInvalidSchedule, got %v", err)
		}
	})

	t.Run("unknown organization is rejected", func(t *testing.T) {
		fake := newFakeCampaignStore()
		p := New(fake, &fakeEnqueuer{}, logger)

		_, err := p.CreateCampaign(context.Background(), CreateCampaignParams{
			OrganizationID: uuid.New(),
			Name:           "Orphan",
			RewardType:     store.RewardTypeCashback,
			CodeTemplate:   store.CodeTemplateSingleUse,
		})
		if !errors.Is(err, ErrOrganizationNotFound) {
			t.Fatalf("expected ErrOrganizationNotFound, got %v", err)
		}
	})
}

func TestPublishCampaign(t *testing.T) {
	logger := observability.NewLogger()

	setup := func(status string) (*fakeCampaignStore, store.Campaign, CampaignProcessor) {
		fake := newFakeCampaignStore()
		org := fake.addOrg(100)
		campaign := store.Campaign{
			ID:             uuid.New(),
			OrganizationID: org.ID,
			Status:         status,
			PublishPin:     "4321",
		}
		fake.campaigns[campaign.ID] = campaign
		return fake, campaign, New(fake, &fakeEnqueuer{}, logger)
	}

	t.Run("matching pin activates a ready campaign", func(t *testing.T) {
		_, campaign, p := setup(store.CampaignStatusReady)
		published, err := p.PublishCampaign(context.Background(), campaign.ID, "4321")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if published.Status != store.CampaignStatusActive {
			t.Errorf("expected active, got %s", published.Status)
		}
	})

	t.Run("wrong pin is rejected", func(t *testing.T) {
		fake, campaign, p := setup(store.CampaignStatusReady)
		_, err := p.PublishCampaign(context.Background(), campaign.ID, "0000")
		if !errors.Is(err, ErrInvalidPublishPin) {
			t.Fatalf("expected ErrInvalidPublishPin, got %v", err)
		}
		if fake.campaigns[campaign.ID].Status != store.CampaignStatusReady {
			t.Error("campaign must stay ready on pin mismatch")
		}
	})

	t.Run("pending campaign cannot be published", func(t *testing.T) {
		_, campaign, p := setup(store.CampaignStatusPending)
		_, err := p.PublishCampaign(context.Background(), campaign.ID, "4321")
		if !errors.Is(err, ErrCampaignNotReady) {
			t.Fatalf("expected ErrCampaignNotReady, got %v", err)
		}
	})

	t.Run("missing campaign", func(t *testing.T) {
		fake := newFakeCampaignStore()
		p := New(fake, &fakeEnqueuer{}, logger)
		_, err := p.PublishCampaign(context.Background(), uuid.New(), "4321")
		if !errors.Is(err, ErrCampaignNotFound) {
			t.Fatalf("expected ErrCampaignNotFound, got %v", err)
		}
	})
}

func TestUpdatePayoutSchedule(t *testing.T) {
	logger := observability.NewLogger()
	fake := newFakeCampaignStore()
	org := fake.addOrg(100)
	campaign := store.Campaign{ID: uuid.New(), OrganizationID: org.ID, Status: store.CampaignStatusActive}
	fake.campaigns[campaign.ID] = campaign
	p := New(fake, &fakeEnqueuer{}, logger)

	fallback := int64(7)
	updated, err := p.UpdatePayoutSchedule(context.Background(), campaign.ID, map[string]interface{}{
		"1": map[string]interface{}{"min": float64(10), "max": float64(30), "avg": float64(15)},
	}, &fallback)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.FallbackAmount == nil || *updated.FallbackAmount != 7 {
		t.Errorf("expected fallback 7, got %v", updated.FallbackAmount)
	}

	_, err = p.UpdatePayoutSchedule(context.Background(), campaign.ID, map[string]interface{}{
		"zero": map[string]interface{}{"min": float64(1), "max": float64(2), "avg": float64(1)},
	}, nil)
	if !errors.Is(err, payout.ErrInvalidSchedule) {
		t.Fatalf("expected ErrInvalidSchedule for non-integer tier key, got %v", err)
	}
}

func TestRechargeOrganization(t *testing.T) {
	logger := observability.NewLogger()
	fake := newFakeCampaignStore()
	org := fake.addOrg(3)
	p := New(fake, &fakeEnqueuer{}, logger)

	updated, recharge, err := p.RechargeOrganization(context.Background(), org.ID, "starter")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.CodeBalance != 103 {
		t.Errorf("expected balance 103, got %d", updated.CodeBalance)
	}
	if recharge.CodesAdded != 100 || recharge.Plan != "starter" {
		t.Errorf("unexpected recharge record: %+v", recharge)
	}

	_, _, err = p.RechargeOrganization(context.Background(), org.ID, "platinum")
	if !errors.Is(err, ErrInvalidRechargePlan) {
		t.Fatalf("expected ErrInvalidRechargePlan, got %v", err)
	}

	_, _, err = p.RechargeOrganization(context.Background(), uuid.New(), "starter")
	if !errors.Is(err, ErrOrganizationNotFound) {
		t.Fatalf("expected ErrOrganizationNotFound, got %v", err)
	}
}
