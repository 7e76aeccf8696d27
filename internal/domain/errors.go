package domain

import "errors"

// Authentication errors shared by the gate and the credential resolver.
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
)
