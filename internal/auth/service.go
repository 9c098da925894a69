package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/obs"
)

// Origin is request metadata recorded with a session.
type Origin struct {
	IP        string
	UserAgent string
}

// Session pairs freshly issued tokens with the caller they belong to. It is a
// response artifact and is never stored.
type Session struct {
	User      User
	Tokens    TokenPair
	Origin    Origin
	CreatedAt time.Time
}

// Service runs the credential flows: login, refresh and profile lookup.
type Service struct {
	store  IdentityStore
	hasher *PasswordHasher
	tokens *TokenService

	dummyOnce sync.Once
	dummyHash string
}

// NewService wires the identity store, hasher and token service together.
func NewService(store IdentityStore, hasher *PasswordHasher, tokens *TokenService) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: identity store is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token service is required")
	}
	if hasher == nil {
		hasher = NewPasswordHasher()
	}
	return &Service{store: store, hasher: hasher, tokens: tokens}, nil
}

// Tokens returns the token service backing this Service.
func (s *Service) Tokens() *TokenService { return s.tokens }

// Login checks email and password and opens a session. Unknown emails, wrong
// passwords and disabled accounts all fail with ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string, origin Origin) (Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	user, err := s.store.UserByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		// burn the same KDF cost as a real check so timing does not reveal unknown emails
		s.hasher.Verify(password, s.dummy())
		obs.LoginAttempt("unknown_email")
		return Session{}, ErrInvalidCredentials
	case err != nil:
		return Session{}, fmt.Errorf("auth: lookup user: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		obs.LoginAttempt("bad_password")
		return Session{}, ErrInvalidCredentials
	}
	if !user.IsActive {
		obs.LoginAttempt("inactive")
		return Session{}, ErrInactiveUser
	}

	pair, err := s.tokens.Issue(user.Identity())
	if err != nil {
		return Session{}, err
	}
	now := s.tokens.Now().UTC()
	if err := s.store.TouchLastLogin(ctx, user.ID, now); err != nil {
		obs.Logger().Warn().Err(err).Int64("user_id", user.ID).Msg("last_login update failed")
	} else {
		user.LastLogin = &now
	}
	obs.LoginAttempt("success")

	return Session{User: user, Tokens: pair, Origin: origin, CreatedAt: now}, nil
}

// Refresh exchanges a refresh token, re-reading the subject from the store.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, User, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return TokenPair{}, User{}, fmt.Errorf("%w: refresh_token is required", ErrInvalidInput)
	}
	return s.tokens.Refresh(ctx, refreshToken, s.store)
}

// Profile loads the current record of an authenticated caller.
func (s *Service) Profile(ctx context.Context, id int64) (User, error) {
	return s.store.UserByID(ctx, id)
}

func (s *Service) dummy() string {
	s.dummyOnce.Do(func() {
		h, err := s.hasher.Hash("enterprise-pro-timing-equalizer")
		if err != nil {
			return
		}
		s.dummyHash = h
	})
	return s.dummyHash
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
