package store

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JSONB is a custom type for JSONB fields
type JSONB map[string]interface{}

// Value implements the driver.Valuer interface for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("incompatible type for JSONB")
	}

	// Handle empty or null JSON
	if len(bytes) == 0 || string(bytes) == "null" {
		*j = make(JSONB)
		return nil
	}

	result := make(JSONB)
	err := json.Unmarshal(bytes, &result)
	if err != nil {
		return err
	}
	*j = result
	return nil
}

// StringArray is a custom type for PostgreSQL text[] arrays
type StringArray []string

// Value implements the driver.Valuer interface for StringArray
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	if len(a) == 0 {
		return "{}", nil
	}
	return "{" + strings.Join(a, ",") + "}", nil
}

// Scan implements the sql.Scanner interface for StringArray
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = nil
		return nil
	}

	var str string
	switch v := value.(type) {
	case []byte:
		str = string(v)
	case string:
		str = v
	default:
		return fmt.Errorf("unsupported type for StringArray: %T", value)
	}

	str = strings.Trim(str, "{}")
	if str == "" {
		*a = []string{}
		return nil
	}

	*a = strings.Split(str, ",")
	return nil
}

// Organization represents a tenant account that owns campaigns and a code balance
type Organization struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Phone       string    `db:"phone" json:"phone"`
	CodeBalance int       `db:"code_balance" json:"code_balance"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Recharge records a code-balance top-up applied to an organization
type Recharge struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	Plan           string    `db:"plan" json:"plan"`
	CodesAdded     int       `db:"codes_added" json:"codes_added"`
	AmountPaid     int64     `db:"amount_paid" json:"amount_paid"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Campaign represents a reward campaign with its payout policy
type Campaign struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	MerchantID     *uuid.UUID `db:"merchant_id" json:"merchant_id,omitempty"`
	Name           string     `db:"name" json:"name"`
	Status         string     `db:"status" json:"status"`
	RewardType     string     `db:"reward_type" json:"reward_type"`
	CodeTemplate   string     `db:"code_template" json:"code_template"`
	TriggerText    *string    `db:"trigger_text" json:"trigger_text,omitempty"`
	PublishPin     string     `db:"publish_pin" json:"-"`
	PayoutSchedule JSONB      `db:"payout_schedule" json:"payout_schedule"`
	FallbackAmount *int64     `db:"fallback_amount" json:"fallback_amount,omitempty"`
	RequiredFields StringArray `db:"required_fields" json:"required_fields"`
	GiftDetails    JSONB      `db:"gift_details" json:"gift_details,omitempty"`
	WhatsAppNumber *string    `db:"whatsapp_number" json:"whatsapp_number,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Merchant represents a retail point that hands out reusable campaign codes
type Merchant struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	Name           string    `db:"name" json:"name"`
	PhoneNumber    string    `db:"phone_number" json:"phone_number"`
	UPIID          *string   `db:"upi_id" json:"upi_id,omitempty"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// Code represents a redeemable code provisioned for a campaign
type Code struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	CampaignID uuid.UUID  `db:"campaign_id" json:"campaign_id"`
	Code       string     `db:"code" json:"code"`
	AssignedTo *string    `db:"assigned_to" json:"assigned_to,omitempty"`
	IsUsed     bool       `db:"is_used" json:"is_used"`
	UsedBy     *uuid.UUID `db:"used_by" json:"used_by,omitempty"`
	UsedAt     *time.Time `db:"used_at" json:"used_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

// Customer represents a claimant identified by phone number
type Customer struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PhoneNumber     string     `db:"phone_number" json:"phone_number"`
	FullName        *string    `db:"full_name" json:"full_name,omitempty"`
	UPIID           *string    `db:"upi_id" json:"upi_id,omitempty"`
	ShippingAddress *string    `db:"shipping_address" json:"shipping_address,omitempty"`
	CustomFields    JSONB      `db:"custom_fields" json:"custom_fields,omitempty"`
	MerchantID      *uuid.UUID `db:"merchant_id" json:"merchant_id,omitempty"`
	LastReward      JSONB      `db:"last_reward" json:"last_reward,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Transaction is an append-only ledger entry for a disbursement attempt
type Transaction struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	CustomerID   uuid.UUID  `db:"customer_id" json:"customer_id"`
	CampaignID   uuid.UUID  `db:"campaign_id" json:"campaign_id"`
	CodeID       *uuid.UUID `db:"code_id" json:"code_id,omitempty"`
	Amount       int64      `db:"amount" json:"amount"`
	Status       string     `db:"status" json:"status"`
	RewardType   string     `db:"reward_type" json:"reward_type"`
	ArtifactCode *string    `db:"artifact_code" json:"artifact_code,omitempty"`
	Response     JSONB      `db:"response" json:"response,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

// CampaignReport is the per-campaign disbursement roll-up
type CampaignReport struct {
	CampaignID       uuid.UUID `db:"campaign_id" json:"campaign_id"`
	TotalDisbursed   int64     `db:"total_disbursed" json:"total_disbursed"`
	SuccessCount     int       `db:"success_count" json:"success_count"`
	FailedCount      int       `db:"failed_count" json:"failed_count"`
	DistinctClaimant int       `db:"distinct_claimants" json:"distinct_claimants"`
}

// RedeemedClaimant is a row of the redeemed-claimant listing used for export
type RedeemedClaimant struct {
	PhoneNumber  string    `db:"phone_number" json:"phone_number"`
	FullName     *string   `db:"full_name" json:"full_name,omitempty"`
	Amount       int64     `db:"amount" json:"amount"`
	ArtifactCode *string   `db:"artifact_code" json:"artifact_code,omitempty"`
	RedeemedAt   time.Time `db:"redeemed_at" json:"redeemed_at"`
}
