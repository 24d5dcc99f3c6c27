package bootstrap

import (
	"context"
	"fmt"
	"time"

	campaignHandler "bounty-server/internal/campaign/handler"
	campaignProcessor "bounty-server/internal/campaign/processor"
	"bounty-server/internal/chatstate"
	redisClient "bounty-server/internal/clients/redis"
	"bounty-server/internal/config"
	"bounty-server/internal/dispatch"
	"bounty-server/internal/jobs"
	"bounty-server/internal/observability"
	"bounty-server/internal/ratelimit"
	redemptionHandler "bounty-server/internal/redemption/handler"
	redemptionProcessor "bounty-server/internal/redemption/processor"
	"bounty-server/internal/store"
)

// Transient dispatch failures are retried a few times with a short pause;
// definitive provider responses are never retried.
const (
	dispatchMaxAttempts = 3
	dispatchBackoff     = 2 * time.Second
)

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	// Core
	Store  store.Store
	Logger *observability.Logger

	// Handlers
	RedemptionHandler redemptionHandler.Handler
	CampaignHandler   campaignHandler.Handler

	// Abuse protection for the claimant-facing surface
	RateLimiter *ratelimit.Service

	// Clients (for cleanup)
	RedisClient *redisClient.Client
	JobClient   *jobs.Client
}

// Initialize sets up all application dependencies
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Logger: logger,
	}

	// Initialize database store
	connectionString := cfg.Database.ConnectionString()
	var err error
	deps.Store, err = store.New(connectionString, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Initialize redis for chat state
	deps.RedisClient, err = redisClient.NewClient(cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	chatService := chatstate.New(deps.RedisClient, logger)
	deps.RateLimiter = ratelimit.New(deps.RedisClient, logger)

	// Initialize payout dispatchers with bounded transport retries
	cashfree := dispatch.NewCashfreeClient(
		cfg.Services.CashfreePayoutURL,
		cfg.Services.CashfreeClientID,
		cfg.Services.CashfreeClientSecret,
		logger,
	)
	shiprocket := dispatch.NewShiprocketClient(
		cfg.Services.ShiprocketBaseURL,
		cfg.Services.ShiprocketToken,
		logger,
	)
	cashDispatcher := dispatch.NewRetryingCashDispatcher(cashfree, dispatchMaxAttempts, dispatchBackoff, logger)
	shipmentDispatcher := dispatch.NewRetryingShipmentDispatcher(shiprocket, dispatchMaxAttempts, dispatchBackoff, logger)

	// Initialize job client for provisioning enqueues
	deps.JobClient = jobs.NewClient(cfg.Redis.Addr, logger)

	// Initialize redemption processor and handler
	redemptionProc := redemptionProcessor.New(&deps.Store, cashDispatcher, shipmentDispatcher, logger)
	deps.RedemptionHandler = redemptionHandler.New(redemptionProc, chatService, logger)

	// Initialize campaign processor and handler
	campaignProc := campaignProcessor.New(&deps.Store, deps.JobClient, logger)
	deps.CampaignHandler = campaignHandler.New(campaignProc, logger)

	return deps, nil
}

// Cleanup closes all resources that need cleanup
func (d *Dependencies) Cleanup() {
	if d.JobClient != nil {
		d.JobClient.Close()
	}
	if d.RedisClient != nil {
		d.RedisClient.Close()
	}
}
