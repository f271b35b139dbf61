package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/corray333/backend-labs/registration/internal/service/models/person"
)

// UserCache holds the last user list in process memory.
type UserCache struct {
	mu    sync.RWMutex
	users []person.Person
	ok    bool
}

func NewUserCache() *UserCache {
	return &UserCache{}
}

func (c *UserCache) Store(_ context.Context, users []person.Person) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.users = slices.Clone(users)
	c.ok = true

	return nil
}

func (c *UserCache) Load(_ context.Context) ([]person.Person, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return slices.Clone(c.users), c.ok, nil
}
