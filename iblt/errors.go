package iblt

import "github.com/go-errors/errors"

var (
	// ErrSizeMismatch is returned by Subtract when the two tables do not
	// have the same cell count.
	ErrSizeMismatch = errors.New("iblt: cannot subtract tables of different size")

	// ErrInvalidSize is returned by New when asked for a cell count that
	// is not positive.
	ErrInvalidSize = errors.New("iblt: size must be positive")
)
