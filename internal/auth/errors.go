package auth

import "errors"

var (
	// ErrMissingToken is returned when the request carries no bearer token.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidToken is returned when the bearer token does not match the configured secret.
	ErrInvalidToken = errors.New("invalid bearer token")

	// ErrNoSecret is returned by NewService when neither a token nor a token hash is configured.
	ErrNoSecret = errors.New("no bearer token or token hash configured")
)
