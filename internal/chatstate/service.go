// Package chatstate tracks per-phone conversation progress and processed
// message IDs in Redis with TTLs, so redemption chat flows survive process
// restarts and scale across instances.
package chatstate

import (
	"bounty-server/internal/observability"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrNoProgress = errors.New("no conversation progress")

const (
	// Processed message IDs are remembered for an hour; chat providers
	// redeliver within minutes, not hours.
	messageDedupTTL = time.Hour

	// A stalled conversation expires after fifteen minutes and the
	// claimant starts over.
	progressTTL = 15 * time.Minute
)

// KeyValueStore is the subset of the Redis client the service needs
type KeyValueStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
}

// Progress captures where a claimant is in a redemption conversation
type Progress struct {
	CampaignID string            `json:"campaign_id"`
	Step       string            `json:"step"`
	Collected  map[string]string `json:"collected,omitempty"`
}

// Service stores conversation state in Redis
type Service struct {
	kv     KeyValueStore
	logger *observability.Logger
}

// New creates a new chat state service
func New(kv KeyValueStore, logger *observability.Logger) *Service {
	return &Service{kv: kv, logger: logger}
}

func messageKey(messageID string) string {
	return "chat:msg:" + messageID
}

func progressKey(phone string) string {
	return "chat:progress:" + phone
}

// MarkMessageProcessed records a message ID and reports whether this is the
// first time it was seen. Redelivered messages return false and must be
// dropped by the caller.
func (s *Service) MarkMessageProcessed(ctx context.Context, messageID string) (bool, error) {
	first, err := s.kv.SetNX(ctx, messageKey(messageID), 1, messageDedupTTL)
	if err != nil {
		return false, fmt.Errorf("failed to mark message processed: %w", err)
	}
	return first, nil
}

// SaveProgress stores a claimant's conversation progress, resetting the TTL
func (s *Service) SaveProgress(ctx context.Context, phone string, progress Progress) error {
	payload, err := json.Marshal(progress)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	if err := s.kv.Set(ctx, progressKey(phone), payload, progressTTL); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// GetProgress retrieves a claimant's conversation progress. Expired or
// absent progress yields ErrNoProgress.
func (s *Service) GetProgress(ctx context.Context, phone string) (Progress, error) {
	value, err := s.kv.Get(ctx, progressKey(phone))
	if err != nil {
		return Progress{}, ErrNoProgress
	}

	var progress Progress
	if err := json.Unmarshal([]byte(value), &progress); err != nil {
		s.logger.Warn(ctx, "discarding malformed conversation progress")
		return Progress{}, ErrNoProgress
	}
	return progress, nil
}

// ClearProgress drops a claimant's conversation progress, typically after a
// completed redemption.
func (s *Service) ClearProgress(ctx context.Context, phone string) error {
	if err := s.kv.Del(ctx, progressKey(phone)); err != nil {
		return fmt.Errorf("failed to clear progress: %w", err)
	}
	return nil
}
