package catalog

import "errors"

var (
	ErrMediumNotFound = errors.New("medium not found")
	ErrActionNotFound = errors.New("action not found")
	ErrNameRequired   = errors.New("name is required")
)
