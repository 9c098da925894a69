package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

const DefaultMinPasswordLength = 6

// NewUser is the input for account creation.
type NewUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      Role
	Phone     string
	Address   string
}

// UserChanges is a partial update; nil fields are left alone. Password is
// plaintext and gets hashed before it reaches the store.
type UserChanges struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Address   *string
	Role      *Role
	IsActive  *bool
	Password  *string
}

// UserService validates and persists identity records.
type UserService struct {
	store       UserStore
	hasher      *PasswordHasher
	registry    *Registry
	minPassword int
}

func NewUserService(store UserStore, hasher *PasswordHasher, registry *Registry, minPassword int) (*UserService, error) {
	if store == nil {
		return nil, errors.New("auth: user store is required")
	}
	if registry == nil {
		return nil, errors.New("auth: permission registry is required")
	}
	if hasher == nil {
		hasher = NewPasswordHasher()
	}
	if minPassword <= 0 {
		minPassword = DefaultMinPasswordLength
	}
	return &UserService{store: store, hasher: hasher, registry: registry, minPassword: minPassword}, nil
}

func (s *UserService) Create(ctx context.Context, in NewUser) (User, error) {
	email := normalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	if first == "" || last == "" {
		return User{}, fmt.Errorf("%w: first_name and last_name are required", ErrInvalidInput)
	}
	role := in.Role
	if role == "" {
		role = RoleEmployee
	}
	if !s.registry.KnownRole(role) {
		return User{}, fmt.Errorf("%w: unknown role %s", ErrInvalidInput, role)
	}
	hash, err := s.hashChecked(in.Password)
	if err != nil {
		return User{}, err
	}
	return s.store.CreateUser(ctx, User{
		Email:        email,
		FirstName:    first,
		LastName:     last,
		Role:         role,
		Phone:        strings.TrimSpace(in.Phone),
		Address:      strings.TrimSpace(in.Address),
		IsActive:     true,
		PasswordHash: hash,
	})
}

// Get loads an account whether or not it is active.
func (s *UserService) Get(ctx context.Context, id int64) (User, error) {
	if id <= 0 {
		return User{}, fmt.Errorf("%w: user id must be positive", ErrInvalidInput)
	}
	return s.store.FindUser(ctx, id)
}

func (s *UserService) List(ctx context.Context, limit, offset int) ([]User, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.store.ListUsers(ctx, limit, offset)
}

func (s *UserService) Update(ctx context.Context, id int64, ch UserChanges) (User, error) {
	if id <= 0 {
		return User{}, fmt.Errorf("%w: user id must be positive", ErrInvalidInput)
	}
	upd := UserUpdate{Phone: trimPtr(ch.Phone), Address: trimPtr(ch.Address), IsActive: ch.IsActive}
	if ch.FirstName != nil {
		if upd.FirstName = trimPtr(ch.FirstName); *upd.FirstName == "" {
			return User{}, fmt.Errorf("%w: first_name cannot be empty", ErrInvalidInput)
		}
	}
	if ch.LastName != nil {
		if upd.LastName = trimPtr(ch.LastName); *upd.LastName == "" {
			return User{}, fmt.Errorf("%w: last_name cannot be empty", ErrInvalidInput)
		}
	}
	if ch.Role != nil {
		if !s.registry.KnownRole(*ch.Role) {
			return User{}, fmt.Errorf("%w: unknown role %s", ErrInvalidInput, *ch.Role)
		}
		upd.Role = ch.Role
	}
	if ch.Password != nil {
		hash, err := s.hashChecked(*ch.Password)
		if err != nil {
			return User{}, err
		}
		upd.PasswordHash = &hash
	}
	if upd.Empty() {
		return User{}, fmt.Errorf("%w: nothing to update", ErrInvalidInput)
	}
	return s.store.UpdateUser(ctx, id, upd)
}

// SetPassword replaces the password of the account registered under email.
func (s *UserService) SetPassword(ctx context.Context, email, password string) (User, error) {
	u, err := s.store.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return User{}, err
	}
	return s.Update(ctx, u.ID, UserChanges{Password: &password})
}

func (s *UserService) hashChecked(password string) (string, error) {
	if len([]rune(password)) < s.minPassword {
		return "", fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, s.minPassword)
	}
	return s.hasher.Hash(password)
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
