package share

import "errors"

// Sentinel errors surfaced by the share container. Callers should compare
// with errors.Is; the underlying message may carry additional context.
var (
	// ErrUnknownVersion is returned by Open when the header's version field
	// is not 1.
	ErrUnknownVersion = errors.New("share: unknown container version")

	// ErrDataTooLarge is returned by WriteAt when offset+len(data) would
	// exceed the container's max size.
	ErrDataTooLarge = errors.New("share: write exceeds allocated size")

	// ErrAlreadyExists is returned by Create when a file already exists at
	// the target path.
	ErrAlreadyExists = errors.New("share: container already exists")
)
