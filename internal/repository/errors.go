package repository

import "github.com/pkg/errors"

// Sentinel errors the service layer maps onto its typed error codes.
var (
	ErrAlreadyExists = errors.New("already exists")
	ErrNotFound      = errors.New("not found")
)
