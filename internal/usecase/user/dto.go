package user

import "time"

// CreateUserRequest represents the input for creating a new user.
type CreateUserRequest struct {
	Name     string `validate:"required,notblank,min=2,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,notblank,min=6"`
}

// ReplaceUserRequest represents the input for a full update.
// All fields are required and re-validated; absent fields cannot be
// distinguished from a request to clear them, so the transport layer
// must always supply all three.
type ReplaceUserRequest struct {
	Name     string `validate:"required,notblank,min=2,max=100"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,notblank,min=6"`
}

// PatchUserRequest represents the input for a partial update.
// A nil field means "not provided" and leaves the stored value untouched;
// validation applies only to supplied fields.
type PatchUserRequest struct {
	Name     *string `validate:"omitempty,notblank,min=2,max=100"`
	Email    *string `validate:"omitempty,email"`
	Password *string `validate:"omitempty,notblank,min=6"`
}

// UserResponse represents a user record returned by the service.
// The password is returned verbatim, matching the behavior of the
// system this service replaces.
type UserResponse struct {
	ID        int64
	Name      string
	Email     string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}
