package updater

import "github.com/go-errors/errors"

// ErrNilConfig is returned by New when a required Config field is nil.
var ErrNilConfig = errors.New("updater: all config fields must be non-nil")
