package memstorage

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/makkenzo/spendwise-api/internal/domain/user"
	"github.com/makkenzo/spendwise-api/internal/ierr"
)

// UserRepositoryMock holds the administrators allowed to issue API keys. It is
// seeded from configuration; there is no user table.
type UserRepositoryMock struct {
	mu    sync.RWMutex
	users map[string]*user.User
}

var _ user.Repository = (*UserRepositoryMock)(nil)

func NewUserRepositoryMock(adminUsername, adminPasswordHash string) *UserRepositoryMock {
	repo := &UserRepositoryMock{
		users: make(map[string]*user.User),
	}

	if adminUsername != "" && adminPasswordHash != "" {
		repo.users[strings.ToLower(adminUsername)] = &user.User{
			ID:           uuid.NewSHA1(uuid.NameSpaceOID, []byte(adminUsername)),
			Username:     adminUsername,
			PasswordHash: adminPasswordHash,
			Role:         user.RoleAdmin,
		}
	}

	return repo
}

func (r *UserRepositoryMock) FindByUsername(ctx context.Context, username string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[strings.ToLower(username)]
	if !ok {
		return nil, ierr.ErrInvalidCredentials
	}

	userCopy := *u
	return &userCopy, nil
}
