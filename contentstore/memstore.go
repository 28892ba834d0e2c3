package contentstore

import (
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/covenantmesh/covnode/contentkey"
	"github.com/covenantmesh/covnode/covenant"
	"github.com/covenantmesh/covnode/iblt"
)

// MemStore is an in-memory reference Store: single-writer/many-reader
// discipline over a readers-writer lock, exactly as the store's contract
// requires. It has no persistence; it exists to give the updater a
// concrete collaborator for tests and small deployments, standing in for
// an on-disk store.
type MemStore struct {
	mu sync.RWMutex

	hasTip bool
	tip    chainhash.Hash
	roots  map[chainhash.Hash]chainhash.Hash

	contents map[[32]byte]*covenant.Content
	keys     map[[32]byte]contentkey.ContentKey

	budgetBytes int
}

// NewMemStore returns an empty store bounded to budgetBytes of total
// on-wire content footprint.
func NewMemStore(budgetBytes int) *MemStore {
	return &MemStore{
		roots:       make(map[chainhash.Hash]chainhash.Hash),
		contents:    make(map[[32]byte]*covenant.Content),
		keys:        make(map[[32]byte]contentkey.ContentKey),
		budgetBytes: budgetBytes,
	}
}

// SetTip updates the chain tip the store considers canonical. It is
// called by the header-sync collaborator, the store's only other writer
// besides AddContent/TruncateToLimit.
func (s *MemStore) SetTip(tip chainhash.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tip = tip
	s.hasTip = true
}

// SetMerkleRoot records the Merkle root for a block, making content
// claiming block_id == blockID admissible via AddContent.
func (s *MemStore) SetMerkleRoot(blockID, root chainhash.Hash) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.roots[blockID] = root
}

// Tip implements Store.
func (s *MemStore) Tip() (chainhash.Hash, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tip, s.hasTip
}

// IBLT implements Store.
func (s *MemStore) IBLT(size int) (*iblt.IBLT, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	table, err := iblt.New(size)
	if err != nil {
		return nil, err
	}
	for _, k := range s.keys {
		table.Insert(k)
	}
	return table, nil
}

// Sketch implements Store.
func (s *MemStore) Sketch() *iblt.Sketch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sk := iblt.NewSketch()
	for _, k := range s.keys {
		sk.Insert(k)
	}
	return sk
}

// NumKeys implements Store.
func (s *MemStore) NumKeys() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return uint32(len(s.keys))
}

// Keys implements Store.
func (s *MemStore) Keys() []contentkey.ContentKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]contentkey.ContentKey, 0, len(s.keys))
	for _, k := range s.keys {
		keys = append(keys, k)
	}
	return keys
}

// AddContent implements Store. Validation happens against the Merkle root
// recorded for c.BlockID; content whose block is unknown to the store is
// rejected the same as content that fails cryptographic validation, since
// from the caller's perspective both are simply "not admissible yet."
func (s *MemStore) AddContent(c *covenant.Content) error {
	digest, err := c.Digest()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.contents[digest]; exists {
		return nil
	}

	root, known := s.roots[c.BlockID]
	if !known {
		return ErrUnknownBlock
	}

	if _, err := c.IsValid(root); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidContent, err)
	}

	weight, err := c.Weight()
	if err != nil {
		return err
	}

	s.contents[digest] = c
	s.keys[digest] = contentkey.New(digest[:], weight)
	return nil
}

// GetContent implements Store.
func (s *MemStore) GetContent(digest [32]byte) (*covenant.Content, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contents[digest]
	return c, ok
}

// footprint returns the total on-wire byte footprint of every stored
// content record. Callers must hold at least a read lock.
func (s *MemStore) footprint() int {
	total := 0
	for _, c := range s.contents {
		total += c.OnWireLength()
	}
	return total
}

// TruncateToLimit implements Store, evicting the lowest-weight content
// records first until the total footprint fits within budgetBytes.
func (s *MemStore) TruncateToLimit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.footprint() > s.budgetBytes && len(s.contents) > 0 {
		var lowestDigest [32]byte
		var lowestWeight uint32
		first := true

		for d, k := range s.keys {
			if first || k.Weight < lowestWeight {
				lowestDigest = d
				lowestWeight = k.Weight
				first = false
			}
		}

		delete(s.contents, lowestDigest)
		delete(s.keys, lowestDigest)
	}
	return nil
}
