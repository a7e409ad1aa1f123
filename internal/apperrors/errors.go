// Package apperrors holds the sentinel errors shared by the service layer.
// It is a leaf package so stores, services and handlers can all import it
// without cycles.
package apperrors

import "errors"

var (
	// ErrNotFound indicates a referenced drive, item, settings document or
	// access rule does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates access-rule resolution ended in DENY (explicit
	// or default).
	ErrForbidden = errors.New("forbidden")

	// ErrAuthenticationFailed indicates a password-protected path was hit
	// with a missing or wrong password.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrConflict indicates an access rule already exists at the same path.
	ErrConflict = errors.New("conflict")

	// ErrValidation indicates a request is missing a required property.
	ErrValidation = errors.New("validation failed")

	// ErrUpstream indicates the remote drive API failed.
	ErrUpstream = errors.New("upstream drive api error")

	// ErrDataIntegrity indicates synced state is missing an owning account
	// reference it should have.
	ErrDataIntegrity = errors.New("data integrity error")
)
