package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"simufolio/internal/domain/convstate"
	"simufolio/pkg/errors"
)

// Compile-time check that we implement the interface
var _ convstate.Store = (*ConversationStateRepository)(nil)

// ConversationStateRepository implements convstate.Store using Redis
type ConversationStateRepository struct {
	client *redis.Client
}

// NewConversationStateRepository creates a new conversation state repository
func NewConversationStateRepository(client *redis.Client) *ConversationStateRepository {
	return &ConversationStateRepository{
		client: client,
	}
}

// Get retrieves the owner's conversation state
func (r *ConversationStateRepository) Get(ctx context.Context, ownerID int64) (*convstate.State, error) {
	key := r.getKey(ownerID)

	data, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, errors.Wrapf(errors.ErrNotFound, "conversation state not found for owner_id=%d", ownerID)
	}
	if err != nil {
		return nil, errors.Wrapf(errors.ErrPersistence, "failed to get conversation state from redis: owner_id=%d: %v", ownerID, err)
	}

	var state convstate.State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, errors.Wrapf(errors.ErrPersistence, "failed to unmarshal conversation state: owner_id=%d: %v", ownerID, err)
	}

	return &state, nil
}

// Upsert overwrites the owner's state with a TTL
func (r *ConversationStateRepository) Upsert(ctx context.Context, state *convstate.State, ttl time.Duration) error {
	key := r.getKey(state.OwnerID)

	data, err := json.Marshal(state)
	if err != nil {
		return errors.Wrapf(errors.ErrPersistence, "failed to marshal conversation state: owner_id=%d: %v", state.OwnerID, err)
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return errors.Wrapf(errors.ErrPersistence, "failed to save conversation state to redis: owner_id=%d: %v", state.OwnerID, err)
	}

	return nil
}

// Clear removes the owner's state
func (r *ConversationStateRepository) Clear(ctx context.Context, ownerID int64) error {
	key := r.getKey(ownerID)

	if err := r.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrapf(errors.ErrPersistence, "failed to delete conversation state from redis: owner_id=%d: %v", ownerID, err)
	}

	return nil
}

func (r *ConversationStateRepository) getKey(ownerID int64) string {
	return fmt.Sprintf("conv:%d", ownerID)
}
