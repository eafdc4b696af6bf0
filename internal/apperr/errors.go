// Package apperr defines sentinel errors shared across component boundaries.
package apperr

import "errors"

var (
	// ErrNotFound reports that a comic, chapter, or page does not exist.
	ErrNotFound = errors.New("not found")

	// ErrStaleHandle reports that a saved folder reference no longer
	// resolves: the directory was removed, unmounted, or its permission
	// revoked since it was granted. Consumers degrade to the image-empty
	// comic rather than failing.
	ErrStaleHandle = errors.New("stale folder handle")

	// ErrQuotaExceeded reports that a persistence write failed even after
	// eviction and retry; the data is session-only from here on.
	ErrQuotaExceeded = errors.New("storage quota exceeded")
)
