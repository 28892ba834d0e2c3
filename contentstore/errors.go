package contentstore

import "github.com/go-errors/errors"

var (
	// ErrUnknownBlock is returned by AddContent when the store has no
	// known Merkle root for the content's claimed block_id.
	ErrUnknownBlock = errors.New("contentstore: no merkle root known for block_id")

	// ErrInvalidContent is returned by AddContent when the content fails
	// funding-script or SPV-proof validation.
	ErrInvalidContent = errors.New("contentstore: content failed validation")
)
