package user

import "time"

// User represents a user entity in the system.
type User struct {
	ID        int64     `json:"id"`         // ID is the unique identifier assigned by the store
	Name      string    `json:"name"`       // Name is the full name of the user
	Email     string    `json:"email"`      // Email is the unique email address of the user
	Password  string    `json:"password"`   // Password is stored and returned in plain form; hashing is out of scope
	CreatedAt time.Time `json:"created_at"` // CreatedAt is set exactly once, at creation
	UpdatedAt time.Time `json:"updated_at"` // UpdatedAt is stamped on every successful create or update
}
