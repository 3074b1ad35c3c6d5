package vectable

import "github.com/hupe1980/vectable/errs"

// Error kinds. Every error returned by this module matches one of them with
// errors.Is.
var (
	ErrInvalidInput  = errs.ErrInvalidInput
	ErrRuntime       = errs.ErrRuntime
	ErrNotFound      = errs.ErrNotFound
	ErrAlreadyExists = errs.ErrAlreadyExists
	ErrNotSupported  = errs.ErrNotSupported
	ErrConflict      = errs.ErrConflict

	// ErrBuilderSpent is returned by a merge insert builder used after
	// Execute.
	ErrBuilderSpent = errs.ErrBuilderSpent
)
