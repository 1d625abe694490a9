package errors

import (
	"errors"
	"fmt"
)

// Common error types for the identity provider core
var (
	// Token errors
	ErrInvalidToken        = errors.New("invalid token")
	ErrTokenExpired        = errors.New("token expired")
	ErrInvalidSignature    = errors.New("invalid token signature")
	ErrInvalidTokenClass   = errors.New("incorrect token_class claim")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// Client errors
	ErrInvalidClient      = errors.New("invalid client")
	ErrInvalidScope       = errors.New("invalid scope")
	ErrInvalidRedirectURI = errors.New("invalid redirect URI")

	// Authorization errors
	ErrInvalidGrant             = errors.New("invalid grant")
	ErrInvalidAuthorizationCode = errors.New("invalid authorization code")
	ErrInvalidRequest           = errors.New("invalid request")

	// Tenant errors
	ErrTenantNotFound = errors.New("tenant not found")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")

	// Principal errors
	ErrUserNotFound = errors.New("user not found")
	ErrUserDisabled = errors.New("user disabled")

	// General errors
	ErrNotFound    = errors.New("not found")
	ErrInternal    = errors.New("internal error")
	ErrUnsupported = errors.New("unsupported operation")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
