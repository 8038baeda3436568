package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/apengjers/joki-bot/internal/core"
	"github.com/redis/go-redis/v9"
)

const (
	// StateKeyPrefix is the prefix for conversation state keys in Redis
	StateKeyPrefix = "state:"
	// PendingOrderKeyPrefix is the prefix for pending order keys in Redis
	PendingOrderKeyPrefix = "pending:"
	// DefaultStateTTL is the default TTL for conversation states (24 hours)
	DefaultStateTTL = 24 * time.Hour
)

// Repository implements ConversationStore, PendingOrderStore and DraftCommitter using Redis.
// Pending orders carry no TTL: they live until reconciliation removes them.
type Repository struct {
	client   *redis.Client
	stateTTL time.Duration
	now      func() time.Time
}

// NewRepository creates a new Redis repository
func NewRepository(client *redis.Client, stateTTL time.Duration) *Repository {
	if stateTTL <= 0 {
		stateTTL = DefaultStateTTL
	}
	return &Repository{client: client, stateTTL: stateTTL, now: time.Now}
}

// GetState retrieves a sender's conversation state; a missing key is Idle
func (r *Repository) GetState(ctx context.Context, sender string) (core.ConversationState, error) {
	val, err := r.client.Get(ctx, StateKeyPrefix+sender).Result()
	if errors.Is(err, redis.Nil) {
		return core.IdleState(), nil
	}
	if err != nil {
		return core.ConversationState{}, fmt.Errorf("failed to get state: %w", err)
	}

	var state core.ConversationState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return core.ConversationState{}, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return state, nil
}

// SetState stores a sender's conversation state with TTL
func (r *Repository) SetState(ctx context.Context, sender string, state core.ConversationState) error {
	if state.IsIdle() {
		return r.ClearState(ctx, sender)
	}

	state.UpdatedAt = r.now().UTC()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := r.client.Set(ctx, StateKeyPrefix+sender, data, r.stateTTL).Err(); err != nil {
		return fmt.Errorf("failed to set state: %w", err)
	}
	return nil
}

// ClearState removes a sender's conversation state
func (r *Repository) ClearState(ctx context.Context, sender string) error {
	if err := r.client.Del(ctx, StateKeyPrefix+sender).Err(); err != nil {
		return fmt.Errorf("failed to delete state: %w", err)
	}
	return nil
}

// PutOrder stores a pending order keyed by its id
func (r *Repository) PutOrder(ctx context.Context, draft *core.OrderDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	if err := r.client.Set(ctx, PendingOrderKeyPrefix+draft.ID, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set order: %w", err)
	}
	return nil
}

// GetOrder retrieves a pending order by id
func (r *Repository) GetOrder(ctx context.Context, orderID string) (*core.OrderDraft, error) {
	val, err := r.client.Get(ctx, PendingOrderKeyPrefix+orderID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, core.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	var draft core.OrderDraft
	if err := json.Unmarshal([]byte(val), &draft); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	return &draft, nil
}

// RemoveOrder deletes a pending order
func (r *Repository) RemoveOrder(ctx context.Context, orderID string) error {
	if err := r.client.Del(ctx, PendingOrderKeyPrefix+orderID).Err(); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

// CommitDraft stores the draft and clears its sender's state in one MULTI/EXEC
func (r *Repository) CommitDraft(ctx context.Context, draft *core.OrderDraft) error {
	data, err := json.Marshal(draft)
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, PendingOrderKeyPrefix+draft.ID, data, 0)
		pipe.Del(ctx, StateKeyPrefix+draft.Sender)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit draft: %w", err)
	}
	return nil
}
