package auth

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("auth: not found")
	ErrConflict           = errors.New("auth: already exists")
	ErrInvalidInput       = errors.New("auth: invalid input")
	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrInactiveUser       = fmt.Errorf("%w: account disabled", ErrInvalidCredentials)

	ErrMissingToken   = errors.New("auth: missing bearer token")
	ErrTokenInvalid   = errors.New("auth: invalid token")
	ErrTokenExpired   = errors.New("auth: token expired")
	ErrTokenWrongType = fmt.Errorf("%w: unexpected token type", ErrTokenInvalid)

	ErrForbidden = errors.New("auth: insufficient permissions")

	ErrMalformedHash = errors.New("auth: malformed password hash")
)

// IsAuthentication reports whether err should surface as 401.
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrMissingToken) ||
		errors.Is(err, ErrTokenInvalid) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrInvalidCredentials)
}
