// Package contentstore defines the read/write facade the updater consumes
// and a size-bounded, weight-ordered in-memory implementation of it. An
// on-disk store is an external collaborator; this package only owns the
// interface and a reference backing suitable for tests and small
// deployments.
package contentstore

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/covenantmesh/covnode/contentkey"
	"github.com/covenantmesh/covnode/covenant"
	"github.com/covenantmesh/covnode/iblt"
)

// Store is the surface the updater depends on. Implementations must
// guarantee that IBLT, Sketch, and NumKeys observed within a single
// critical section are mutually consistent with one another.
type Store interface {
	// Tip returns the chain tip the store considers canonical, and false
	// if no tip is known yet (before initial header sync).
	Tip() (chainhash.Hash, bool)

	// IBLT returns an IBLT of every locally held ContentKey, sized to
	// the requested cell count.
	IBLT(size int) (*iblt.IBLT, error)

	// Sketch returns the strata estimator summarizing the local keyset,
	// used to estimate symmetric-difference size before committing to
	// an IBLT size.
	Sketch() *iblt.Sketch

	// NumKeys returns the number of keys Sketch summarizes.
	NumKeys() uint32

	// Keys returns a snapshot of every ContentKey currently held, for
	// diagnostics and tests; callers must not assume any ordering.
	Keys() []contentkey.ContentKey

	// AddContent validates c against the store's known Merkle root for
	// c.BlockID and, on success, inserts it. Re-adding an already-stored
	// digest is a no-op, not an error.
	AddContent(c *covenant.Content) error

	// GetContent looks up content by digest.
	GetContent(digest [32]byte) (*covenant.Content, bool)

	// TruncateToLimit evicts lowest-weight content until the store's
	// configured storage budget is met.
	TruncateToLimit() error
}
