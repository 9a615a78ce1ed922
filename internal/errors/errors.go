package errors

import (
	"errors"
	"fmt"
)

// Error taxonomy for the OIDC relying party
var (
	// Startup errors
	ErrConfig = errors.New("invalid configuration")

	// Login flow errors
	ErrInvalidState  = errors.New("invalid state")
	ErrLoginFailed   = errors.New("login failed at provider")
	ErrTokenExchange = errors.New("token exchange failed")
	ErrInvalidToken  = errors.New("invalid id token")
	ErrUserInfo      = errors.New("userinfo request failed")

	// Session errors
	ErrSessionNotFound = errors.New("session not found")
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
