package auth

import "errors"

var (
	ErrInvalidCredentials  = errors.New("auth: invalid credentials")
	ErrMalformedToken      = errors.New("auth: malformed token")
	ErrTokenExpired        = errors.New("auth: token expired")
	ErrRefreshTokenUnknown = errors.New("auth: refresh token unknown")
	ErrDuplicateUser       = errors.New("auth: user already exists")
	ErrNotFound            = errors.New("auth: not found")
	ErrInvalidInput        = errors.New("auth: invalid input")
)
