package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	dalredis "github.com/corray333/backend-labs/registration/internal/dal/redis"
	"github.com/corray333/backend-labs/registration/internal/service/models/person"
	"github.com/redis/go-redis/v9"
)

// UserCache stores the last user list as one JSON value.
type UserCache struct {
	client *dalredis.Client
	key    string
	ttl    time.Duration
}

// NewUserCache creates a cache under key. A zero ttl keeps the list until it
// is replaced.
func NewUserCache(client *dalredis.Client, key string, ttl time.Duration) *UserCache {
	return &UserCache{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

func (c *UserCache) Store(ctx context.Context, users []person.Person) error {
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("failed to marshal users: %w", err)
	}

	if err := c.client.Redis().Set(ctx, c.key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store users: %w", err)
	}

	return nil
}

func (c *UserCache) Load(ctx context.Context) ([]person.Person, bool, error) {
	data, err := c.client.Redis().Get(ctx, c.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to load users: %w", err)
	}

	var users []person.Person
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal users: %w", err)
	}

	return users, true, nil
}
