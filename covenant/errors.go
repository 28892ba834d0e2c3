package covenant

import "github.com/go-errors/errors"

var (
	// ErrInvalidFunding is returned when none of the funding
	// transaction's outputs carry the expected funding script.
	ErrInvalidFunding = errors.New("covenant: no output matches the expected funding script")

	// ErrInvalidSPVProof is returned when folding the SPV proof does not
	// reproduce the claimed Merkle root.
	ErrInvalidSPVProof = errors.New("covenant: spv proof does not authenticate to the claimed root")

	// ErrEmptyData is returned by Weight when the content's on-wire
	// length is zero, which would otherwise divide by zero. spec.md
	// treats this as undefined behavior in practice and directs
	// implementers to surface it as a validation failure.
	ErrEmptyData = errors.New("covenant: content has zero on-wire length")
)
