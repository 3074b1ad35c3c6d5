package engine

import (
	"errors"

	"github.com/hupe1980/vectable/blobstore"
	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/internal/manifest"
)

// storageError maps storage failures onto error kinds while keeping the
// original error in the chain.
func storageError(err error, format string, args ...any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, blobstore.ErrNotFound), errors.Is(err, manifest.ErrNotFound):
		return errs.Wrap(errs.ErrNotFound, err, format, args...)
	case errors.Is(err, manifest.ErrConflict):
		return errs.Wrap(errs.ErrConflict, err, format, args...)
	case errors.Is(err, manifest.ErrCorrupt), errors.Is(err, manifest.ErrIncompatibleVersion):
		return errs.Wrap(errs.ErrRuntime, err, format, args...)
	case errs.KindOf(err) != nil:
		return err
	default:
		return errs.Wrap(errs.ErrRuntime, err, format, args...)
	}
}
