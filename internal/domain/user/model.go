package user

import (
	"context"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
	Role         string
}

const RoleAdmin = "admin"

type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
}
