package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

const redisKeyPrefix = "concierge:session:"

// RedisPersister stores session state as JSON blobs with a TTL, so abandoned
// conversations age out on their own.
type RedisPersister struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisPersister wraps an existing Redis client.
func NewRedisPersister(client *redis.Client, ttl time.Duration) *RedisPersister {
	return &RedisPersister{client: client, ttl: ttl}
}

func (p *RedisPersister) Save(ctx context.Context, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return p.client.Set(ctx, redisKeyPrefix+state.Session.ID, data, p.ttl).Err()
}

func (p *RedisPersister) Load(ctx context.Context, sessionID string) (State, bool, error) {
	data, err := p.client.Get(ctx, redisKeyPrefix+sessionID).Result()
	if errors.Is(err, redis.Nil) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, err
	}
	var state State
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return State{}, false, err
	}
	return state, true, nil
}

func (p *RedisPersister) Delete(ctx context.Context, sessionID string) error {
	return p.client.Del(ctx, redisKeyPrefix+sessionID).Err()
}
