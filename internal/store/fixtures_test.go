package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// Fixtures provides factory functions for creating test data.
// All factory methods use testify/require to fail fast on errors.
type Fixtures struct {
	t      *testing.T
	testDB *TestDB
	ctx    context.Context
}

// NewFixtures creates a new Fixtures instance for test data generation.
func NewFixtures(t *testing.T, testDB *TestDB) *Fixtures {
	t.Helper()
	return &Fixtures{
		t:      t,
		testDB: testDB,
		ctx:    context.Background(),
	}
}

// OrganizationOpts customizes organization creation.
type OrganizationOpts struct {
	Name        string
	Phone       string
	CodeBalance int
}

// DefaultOrganizationOpts returns sensible defaults for organization creation.
func DefaultOrganizationOpts() OrganizationOpts {
	return OrganizationOpts{
		Name:        "Test Org",
		Phone:       "+911234500000",
		CodeBalance: 100,
	}
}

// CreateOrganization creates a test organization with optional customization.
func (f *Fixtures) CreateOrganization(opts ...func(*OrganizationOpts)) Organization {
	f.t.Helper()
	o := DefaultOrganizationOpts()
	for _, fn := range opts {
		fn(&o)
	}

	org, err := f.testDB.Store.CreateOrganization(f.ctx, CreateOrganizationParams{
		Name:        o.Name,
		Phone:       o.Phone,
		CodeBalance: o.CodeBalance,
	})
	require.NoError(f.t, err, "failed to create test organization")
	return org
}

// CampaignOpts customizes campaign creation.
type CampaignOpts struct {
	OrganizationID *uuid.UUID
	MerchantID     *uuid.UUID
	Name           string
	RewardType     string
	CodeTemplate   string
	TriggerText    *string
	PublishPin     string
	PayoutSchedule JSONB
	FallbackAmount *int64
}

// DefaultCampaignOpts returns sensible defaults for campaign creation.
func DefaultCampaignOpts() CampaignOpts {
	return CampaignOpts{
		Name:         "Test Campaign",
		RewardType:   RewardTypeCashback,
		CodeTemplate: CodeTemplateSingleUse,
		PublishPin:   "1234",
		PayoutSchedule: JSONB{
			"1": map[string]interface{}{"min": 5, "max": 20, "avg": 10},
		},
	}
}

// CreateCampaign creates a test campaign with optional customization.
func (f *Fixtures) CreateCampaign(opts ...func(*CampaignOpts)) Campaign {
	f.t.Helper()
	o := DefaultCampaignOpts()
	for _, fn := range opts {
		fn(&o)
	}

	orgID := uuid.Nil
	if o.OrganizationID != nil {
		orgID = *o.OrganizationID
	} else {
		orgID = f.CreateOrganization().ID
	}

	campaign, err := f.testDB.Store.CreateCampaign(f.ctx, CreateCampaignParams{
		OrganizationID: orgID,
		MerchantID:     o.MerchantID,
		Name:           o.Name,
		RewardType:     o.RewardType,
		CodeTemplate:   o.CodeTemplate,
		TriggerText:    o.TriggerText,
		PublishPin:     o.PublishPin,
		PayoutSchedule: o.PayoutSchedule,
		FallbackAmount: o.FallbackAmount,
	})
	require.NoError(f.t, err, "failed to create test campaign")
	return campaign
}

// CustomerOpts customizes customer creation.
type CustomerOpts struct {
	PhoneNumber string
	FullName    string
}

var customerSeq int

// CreateCustomer creates a test customer with a unique phone number.
func (f *Fixtures) CreateCustomer(opts ...func(*CustomerOpts)) Customer {
	f.t.Helper()
	customerSeq++
	o := CustomerOpts{
		PhoneNumber: fmt.Sprintf("+9198765%05d", customerSeq),
		FullName:    "Test Customer",
	}
	for _, fn := range opts {
		fn(&o)
	}

	customer, err := f.testDB.Store.UpsertCustomerByPhone(f.ctx, UpsertCustomerParams{
		PhoneNumber: o.PhoneNumber,
		FullName:    &o.FullName,
	})
	require.NoError(f.t, err, "failed to create test customer")
	return customer
}

// CreateMerchant creates a test merchant for an organization.
func (f *Fixtures) CreateMerchant(orgID uuid.UUID) Merchant {
	f.t.Helper()
	merchant, err := f.testDB.Store.CreateMerchant(f.ctx, CreateMerchantParams{
		OrganizationID: orgID,
		Name:           "Test Merchant",
		PhoneNumber:    "+911112223334",
	})
	require.NoError(f.t, err, "failed to create test merchant")
	return merchant
}

// CreateCode provisions a single code for a campaign and returns it.
func (f *Fixtures) CreateCode(campaignID uuid.UUID, code string) Code {
	f.t.Helper()
	err := f.testDB.Store.BulkInsertCodes(f.ctx, campaignID, []CreateCodeParams{{Code: code}})
	require.NoError(f.t, err, "failed to create test code")

	c, err := f.testDB.Store.GetCodeByValue(f.ctx, code)
	require.NoError(f.t, err, "failed to read back test code")
	return c
}
