package services

import (
	"errors"
	"fmt"
)

// Sentinel errors mapped to HTTP statuses by the handlers. ErrNotFound
// covers both absent rows and rows owned by another caller; the two cases
// are indistinguishable on purpose.
var (
	ErrNotFound   = errors.New("not found")
	ErrUserExists = errors.New("email already registered")

	ErrValidation    = errors.New("validation failed")
	ErrTitleRequired = fmt.Errorf("%w: title is required", ErrValidation)
)
