package store

import (
	"context"
	"errors"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"appointment-booking-api/internal/model"
)

type UserFinder interface {
	UserByID(ctx context.Context, id string) (*model.User, error)
}

// OwnerCache resolves reservation owners for display. Users are never
// renamed or deleted through the API, so entries do not need invalidation.
type OwnerCache struct {
	users UserFinder
	cache *lru.Cache[string, model.Owner]
}

func NewOwnerCache(users UserFinder, size int) (*OwnerCache, error) {
	if size <= 0 {
		size = 1024
	}
	c, err := lru.New[string, model.Owner](size)
	if err != nil {
		return nil, fmt.Errorf("owner cache: %w", err)
	}
	return &OwnerCache{users: users, cache: c}, nil
}

// ResolveOwner returns the display info for userID. A user that no longer
// exists resolves to an Owner carrying only the id.
func (c *OwnerCache) ResolveOwner(ctx context.Context, userID string) (*model.Owner, error) {
	if o, ok := c.cache.Get(userID); ok {
		return &o, nil
	}
	u, err := c.users.UserByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return &model.Owner{ID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	o := model.Owner{ID: u.ID, Name: u.Name, Email: u.Email}
	c.cache.Add(userID, o)
	return &o, nil
}

func (c *OwnerCache) Len() int { return c.cache.Len() }
