package auth

import (
	"context"
	"time"

	"github.com/bhandras/studyhall/internal/crypto"
	"github.com/bhandras/studyhall/internal/models"
)

type fakeUserQueries struct {
	getUser   func(ctx context.Context, id int64) (models.User, error)
	setOnline func(ctx context.Context, id int64, online bool, at time.Time) error
}

func (f fakeUserQueries) GetUserByID(ctx context.Context, id int64) (models.User, error) {
	return f.getUser(ctx, id)
}

func (f fakeUserQueries) SetUserOnline(ctx context.Context, id int64, online bool, at time.Time) error {
	if f.setOnline == nil {
		return nil
	}
	return f.setOnline(ctx, id, online, at)
}

func activeUsers(users ...models.User) fakeUserQueries {
	byID := make(map[int64]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	return fakeUserQueries{
		getUser: func(ctx context.Context, id int64) (models.User, error) {
			u, ok := byID[id]
			if !ok {
				return models.User{}, models.ErrNotFound
			}
			return u, nil
		},
	}
}

type fakeVerifier struct {
	verify func(token string) (*crypto.Claims, error)
}

func (f fakeVerifier) Verify(token string) (*crypto.Claims, error) {
	return f.verify(token)
}
