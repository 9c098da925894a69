package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Alvaro-Manzo/ENTERPRISE-PRO/internal/obs"
)

const (
	DefaultAccessTTL  = 8 * time.Hour
	DefaultRefreshTTL = 7 * 24 * time.Hour

	bearerLabel = "Bearer"
)

// TokenType distinguishes access from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// Claims is the signed token payload. Role and Email are only set on access tokens.
type Claims struct {
	UserID int64     `json:"user_id"`
	Email  string    `json:"email,omitempty"`
	Role   Role      `json:"role,omitempty"`
	Type   TokenType `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair is the bundle handed to a client at login or refresh.
type TokenPair struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	ExpiresIn        int64     `json:"expires_in"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

// TokenState is the verification outcome of a presented token.
type TokenState int

const (
	StateValid TokenState = iota
	StateExpired
	StateSignatureInvalid
	StateWrongType
)

func (s TokenState) String() string {
	switch s {
	case StateValid:
		return "valid"
	case StateExpired:
		return "expired"
	case StateWrongType:
		return "wrong_type"
	default:
		return "signature_invalid"
	}
}

// StateOf classifies a verification error.
func StateOf(err error) TokenState {
	switch {
	case err == nil:
		return StateValid
	case errors.Is(err, ErrTokenWrongType):
		return StateWrongType
	case errors.Is(err, ErrTokenExpired):
		return StateExpired
	default:
		return StateSignatureInvalid
	}
}

// TokenService signs and verifies HS256 token pairs. It holds no mutable
// state and is safe for concurrent use.
type TokenService struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

// TokenOption configures TokenService behavior.
type TokenOption func(*TokenService) error

// WithIssuer sets the iss claim and requires it on verification.
func WithIssuer(issuer string) TokenOption {
	return func(s *TokenService) error {
		s.issuer = strings.TrimSpace(issuer)
		return nil
	}
}

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) error {
		if ttl <= 0 {
			return fmt.Errorf("%w: access ttl must be positive", ErrInvalidInput)
		}
		s.accessTTL = ttl
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(s *TokenService) error {
		if ttl <= 0 {
			return fmt.Errorf("%w: refresh ttl must be positive", ErrInvalidInput)
		}
		s.refreshTTL = ttl
		return nil
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) TokenOption {
	return func(s *TokenService) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewTokenService constructs a TokenService signing with secret.
func NewTokenService(secret string, opts ...TokenOption) (*TokenService, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%w: token secret is required", ErrInvalidInput)
	}
	s := &TokenService{
		secret:     []byte(secret),
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	if s.accessTTL >= s.refreshTTL {
		return nil, fmt.Errorf("%w: access ttl must be shorter than refresh ttl", ErrInvalidInput)
	}
	return s, nil
}

// Now returns the service clock reading.
func (s *TokenService) Now() time.Time {
	return s.now()
}

// Issue mints an access/refresh pair sharing the same issued-at instant.
func (s *TokenService) Issue(id Identity) (TokenPair, error) {
	if id.UserID <= 0 {
		return TokenPair{}, fmt.Errorf("%w: subject id is required", ErrInvalidInput)
	}
	issuedAt := s.now().UTC().Truncate(time.Second)
	accessExp := issuedAt.Add(s.accessTTL)
	refreshExp := issuedAt.Add(s.refreshTTL)

	access, err := s.sign(Claims{
		UserID:           id.UserID,
		Email:            id.Email,
		Role:             id.Role,
		Type:             TokenAccess,
		RegisteredClaims: s.registered(id.UserID, issuedAt, accessExp),
	})
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(Claims{
		UserID:           id.UserID,
		Type:             TokenRefresh,
		RegisteredClaims: s.registered(id.UserID, issuedAt, refreshExp),
	})
	if err != nil {
		return TokenPair{}, err
	}
	obs.TokenIssued(string(TokenAccess))
	obs.TokenIssued(string(TokenRefresh))

	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        bearerLabel,
		ExpiresIn:        int64(s.accessTTL / time.Second),
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *TokenService) registered(userID int64, issuedAt, expiresAt time.Time) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    s.issuer,
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
}

func (s *TokenService) sign(claims Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature first, then expiry. It returns ErrTokenExpired only
// for tokens whose signature is intact, ErrTokenInvalid otherwise.
func (s *TokenService) Verify(token string) (*Claims, error) {
	claims, err := s.parse(token)
	obs.TokenVerified(StateOf(err).String())
	return claims, err
}

// VerifyAs is Verify plus a token type check; a mismatch is ErrTokenWrongType.
func (s *TokenService) VerifyAs(token string, want TokenType) (*Claims, error) {
	claims, err := s.parse(token)
	if err == nil && claims.Type != want {
		claims, err = nil, ErrTokenWrongType
	}
	obs.TokenVerified(StateOf(err).String())
	return claims, err
}

// State reports which state token is in when presented as want.
func (s *TokenService) State(token string, want TokenType) TokenState {
	_, err := s.VerifyAs(token, want)
	return StateOf(err)
}

func (s *TokenService) parse(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenInvalid
	}
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		// signature is verified before claims, so an expiry error implies an intact signature
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !parsed.Valid || claims.UserID <= 0 {
		return nil, ErrTokenInvalid
	}
	switch claims.Type {
	case TokenAccess, TokenRefresh:
	default:
		return nil, ErrTokenInvalid
	}
	if claims.Subject != "" && claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new pair. The role is always taken
// from resolver, never from the presented token. Tokens are not revocable:
// a refresh token stays usable until it expires.
func (s *TokenService) Refresh(ctx context.Context, refreshToken string, resolver IdentityResolver) (TokenPair, User, error) {
	claims, err := s.VerifyAs(refreshToken, TokenRefresh)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			err = fmt.Errorf("%w: %w", ErrTokenInvalid, err)
		}
		return TokenPair{}, User{}, err
	}
	user, err := resolver.UserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, User{}, fmt.Errorf("%w: subject no longer exists", ErrTokenInvalid)
		}
		return TokenPair{}, User{}, fmt.Errorf("auth: resolve identity: %w", err)
	}
	if !user.IsActive {
		return TokenPair{}, User{}, fmt.Errorf("%w: subject disabled", ErrTokenInvalid)
	}
	pair, err := s.Issue(user.Identity())
	if err != nil {
		return TokenPair{}, User{}, err
	}
	return pair, user, nil
}
