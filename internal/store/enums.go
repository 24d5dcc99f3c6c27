package store

// Campaign ENUMs
const (
	CampaignStatusPending    = "pending"
	CampaignStatusProcessing = "processing"
	CampaignStatusReady      = "ready"
	CampaignStatusActive     = "active"
	CampaignStatusCompleted  = "completed"
)

const (
	RewardTypeCashback = "cashback"
	RewardTypeGift     = "gift"
)

const (
	CodeTemplateSingleUse = "single_use"
	CodeTemplateMerchant  = "merchant"
)

// Merchant ENUMs
const (
	MerchantStatusActive = "active"
	MerchantStatusPaused = "paused"
)

// Transaction ENUMs
const (
	TransactionStatusSuccess = "SUCCESS"
	TransactionStatusFailed  = "FAILED"
)
