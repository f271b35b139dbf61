package iusercache

import (
	"context"

	"github.com/corray333/backend-labs/registration/internal/service/models/person"
)

// IUserCache keeps the last user list fetched from the upstream.
type IUserCache interface {
	Store(ctx context.Context, users []person.Person) error
	// Load reports ok=false when nothing has been cached yet.
	Load(ctx context.Context) (users []person.Person, ok bool, err error)
}
