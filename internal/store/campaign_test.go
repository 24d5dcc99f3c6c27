package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdateCampaignStatus_ForwardOnly(t *testing.T) {
	testDB := SetupTestDB(t)
	testDB.Truncate(t)
	f := NewFixtures(t, testDB)
	ctx := testDB.WithContext()

	campaign := f.CreateCampaign()
	if campaign.Status != CampaignStatusPending {
		t.Fatalf("expected new campaign to be pending, got %s", campaign.Status)
	}

	for _, status := range []string{
		CampaignStatusProcessing,
		CampaignStatusReady,
		CampaignStatusActive,
	} {
		updated, err := testDB.Store.UpdateCampaignStatus(ctx, campaign.ID, status)
		require.NoError(t, err)
		if updated.Status != status {
			t.Errorf("expected status %s, got %s", status, updated.Status)
		}
	}

	// Backwards transitions are rejected
	_, err := testDB.Store.UpdateCampaignStatus(ctx, campaign.ID, CampaignStatusReady)
	if !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
	}

	// Same-status updates are rejected too
	_, err = testDB.Store.UpdateCampaignStatus(ctx, campaign.ID, CampaignStatusActive)
	if !errors.Is(err, ErrInvalidStatusTransition) {
		t.Fatalf("expected ErrInvalidStatusTransition, got %v", err)
	}
}

func TestGetCampaignByTriggerText(t *testing.T) {
	testDB := SetupTestDB(t)
	testDB.Truncate(t)
	f := NewFixtures(t, testDB)
	ctx := testDB.WithContext()

	trigger := "claim my diwali bonus"
	campaign := f.CreateCampaign(func(o *CampaignOpts) {
		o.TriggerText = &trigger
	})

	// Trigger lookup only matches active campaigns
	_, err := testDB.Store.GetCampaignByTriggerText(ctx, trigger)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for non-active campaign, got %v", err)
	}

	for _, status := range []string{CampaignStatusProcessing, CampaignStatusReady, CampaignStatusActive} {
		_, err = testDB.Store.UpdateCampaignStatus(ctx, campaign.ID, status)
		require.NoError(t, err)
	}

	found, err := testDB.Store.GetCampaignByTriggerText(ctx, trigger)
	require.NoError(t, err)
	if found.ID != campaign.ID {
		t.Errorf("expected campaign %s, got %s", campaign.ID, found.ID)
	}
}
