package user

import "context"

// Service defines the interface for user business logic operations.
type Service interface {
	Create(ctx context.Context, in CreateUserRequest) (*UserResponse, error)
	GetAll(ctx context.Context) ([]UserResponse, error)
	GetByID(ctx context.Context, id int64) (*UserResponse, error)
	Replace(ctx context.Context, id int64, in ReplaceUserRequest) (*UserResponse, error)
	Patch(ctx context.Context, id int64, in PatchUserRequest) (*UserResponse, error)
	Delete(ctx context.Context, id int64) error
}
