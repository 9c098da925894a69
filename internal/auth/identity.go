package auth

import (
	"context"
	"time"
)

// User is the canonical identity record owned by the identity store.
type User struct {
	ID           int64      `json:"id"`
	Email        string     `json:"email"`
	FirstName    string     `json:"first_name"`
	LastName     string     `json:"last_name"`
	Role         Role       `json:"role"`
	Phone        string     `json:"phone,omitempty"`
	Address      string     `json:"address,omitempty"`
	IsActive     bool       `json:"is_active"`
	PasswordHash string     `json:"-"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Identity is the subset of a User that tokens carry.
type Identity struct {
	UserID int64
	Email  string
	Role   Role
}

// Identity projects u onto the token-facing identity.
func (u User) Identity() Identity {
	return Identity{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// Summary is the public view of a user returned alongside tokens.
type Summary struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      Role   `json:"role"`
}

func (u User) Summary() Summary {
	return Summary{ID: u.ID, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Role: u.Role}
}

// IdentityResolver looks up the current canonical identity for a subject.
// Implementations return ErrNotFound for unknown or disabled accounts.
type IdentityResolver interface {
	UserByID(ctx context.Context, id int64) (User, error)
}

// IdentityStore is the read side used by login and refresh.
type IdentityStore interface {
	IdentityResolver
	UserByEmail(ctx context.Context, email string) (User, error)
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

// UserUpdate carries optional field changes; nil means unchanged.
type UserUpdate struct {
	FirstName    *string
	LastName     *string
	Phone        *string
	Address      *string
	Role         *Role
	IsActive     *bool
	PasswordHash *string
}

// Empty reports whether the update changes nothing.
func (u UserUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.Phone == nil &&
		u.Address == nil && u.Role == nil && u.IsActive == nil && u.PasswordHash == nil
}

// UserStore persists identity records.
type UserStore interface {
	IdentityStore
	// FindUser is UserByID without the active filter.
	FindUser(ctx context.Context, id int64) (User, error)
	CreateUser(ctx context.Context, u User) (User, error)
	UpdateUser(ctx context.Context, id int64, upd UserUpdate) (User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]User, error)
}

// ProjectStore resolves project ownership and applies progress updates.
type ProjectStore interface {
	ProjectRef(ctx context.Context, id int64) (ProjectRef, error)
	SetProgress(ctx context.Context, id int64, progress int) error
}
