package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoActiveLocations      = errors.New("no active locations")
	ErrUpstreamUnavailable    = errors.New("upstream unavailable")
	ErrMalformedResponse      = errors.New("malformed upstream response")
	ErrConversionRejected     = errors.New("conversion rejected")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrRecipeNotFound         = errors.New("recipe not found")
	ErrRecordNotFound         = errors.New("record not found")
	ErrValidation             = errors.New("validation failed")
)

// RejectionError carries the individual validation failures that caused a
// conversion to be rejected, so callers can correct input.
type RejectionError struct {
	Reasons []string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("conversion rejected: %s", strings.Join(e.Reasons, "; "))
}

func (e *RejectionError) Unwrap() error {
	return ErrConversionRejected
}
