// Package iblt implements the Invertible Bloom Lookup Table used to
// reconcile two ContentKey sets without either peer transmitting its full
// keyset: encode a local set into a fixed-size table, subtract a peer's
// table of the same size, and peel the result to recover exactly the keys
// that differ between the two sides.
package iblt

import (
	"github.com/covenantmesh/covnode/contentkey"
)

// NumHashes is the number of cells each key is inserted into.
const NumHashes = 4

type hashKey struct{ k0, k1 uint64 }

// selectionKeys fixes the SipHash key material used to choose, for any
// given ContentKey, the NumHashes cell indices it is spread across. These
// must be identical across every peer for subtraction between two
// independently built tables to make sense.
var selectionKeys = [NumHashes]hashKey{
	{k0: 0x9ae16a3b2f90404f, k1: 0xc3a5c85c97cb3127},
	{k0: 0xb492b66fbe98f273, k1: 0x9ae16a3b2f90404f},
	{k0: 0x27d4eb2f165667c5, k1: 0x165667c5f165667c},
	{k0: 0x85ebca6b85ebca6b, k1: 0xc2b2ae35c2b2ae35},
}

// checkKey is a fifth, independent SipHash key used only to verify that a
// cell believed pure during peeling actually holds a single recoverable
// key, rather than an unlucky collision of several.
var checkKey = hashKey{k0: 0xff51afd7ed558ccd, k1: 0xc4ceb9fe1a85ec53}

func indicesFor(k contentkey.ContentKey, size int) [NumHashes]int {
	var idx [NumHashes]int
	for i, hk := range selectionKeys {
		idx[i] = int(k.Hash(hk.k0, hk.k1) % uint64(size))
	}
	return idx
}

type cell struct {
	count     int64
	digestSum [contentkey.DigestSize]byte
	weightSum uint32
	checkSum  uint64
}

func (c *cell) isEmpty() bool {
	return c.count == 0 && c.checkSum == 0 && c.weightSum == 0 &&
		c.digestSum == [contentkey.DigestSize]byte{}
}

func (c *cell) isPure() bool {
	return c.count == 1 || c.count == -1
}

func (c *cell) key() contentkey.ContentKey {
	return contentkey.ContentKey{Digest: c.digestSum, Weight: c.weightSum}
}

func (c *cell) toggle(k contentkey.ContentKey, sign int64) {
	c.count += sign
	for i := range c.digestSum {
		c.digestSum[i] ^= k.Digest[i]
	}
	c.weightSum ^= k.Weight
	c.checkSum ^= k.Hash(checkKey.k0, checkKey.k1)
}

// IBLT is a fixed-size array of cells summarizing a ContentKey set.
type IBLT struct {
	cells []cell
}

// New allocates an empty IBLT with the given number of cells. size must be
// positive; cell selection reduces hashes modulo size, so any positive
// count works, including the non-power-of-two sizes (100, 400, 1600, ...)
// the updater's growth schedule produces.
func New(size int) (*IBLT, error) {
	if size <= 0 {
		return nil, ErrInvalidSize
	}
	return &IBLT{cells: make([]cell, size)}, nil
}

// Len returns the table's cell count.
func (t *IBLT) Len() int {
	return len(t.cells)
}

// Insert adds k to the table.
func (t *IBLT) Insert(k contentkey.ContentKey) {
	for _, i := range indicesFor(k, len(t.cells)) {
		t.cells[i].toggle(k, 1)
	}
}

// Remove subtracts k from the table. A Remove that exactly reverses a
// prior Insert of the same key cancels out completely.
func (t *IBLT) Remove(k contentkey.ContentKey) {
	for _, i := range indicesFor(k, len(t.cells)) {
		t.cells[i].toggle(k, -1)
	}
}

// Subtract returns t minus other, cell by cell. Both tables must share a
// cell count. In the result, a key present only in t nets a positive
// count; a key present only in other nets a negative count.
func (t *IBLT) Subtract(other *IBLT) (*IBLT, error) {
	if len(t.cells) != len(other.cells) {
		return nil, ErrSizeMismatch
	}

	out := &IBLT{cells: make([]cell, len(t.cells))}
	for i := range t.cells {
		out.cells[i].count = t.cells[i].count - other.cells[i].count
		out.cells[i].weightSum = t.cells[i].weightSum ^ other.cells[i].weightSum
		out.cells[i].checkSum = t.cells[i].checkSum ^ other.cells[i].checkSum
		for j := range out.cells[i].digestSum {
			out.cells[i].digestSum[j] = t.cells[i].digestSum[j] ^ other.cells[i].digestSum[j]
		}
	}
	return out, nil
}

// Entry is one fully peeled element of a decoded symmetric difference.
// Sign is +1 when the key was only present on the minuend side of the
// preceding Subtract, -1 when only present on the subtrahend side.
type Entry struct {
	Key  contentkey.ContentKey
	Sign int
}

// Decode peels pure cells off the table, recovering one ContentKey per
// peel and removing its contribution everywhere it was inserted, until no
// pure cell remains. It reports ok == true only if every cell lands back
// at the all-zero state, meaning the whole symmetric difference was
// recovered; any residual non-zero cell is a total decode failure, not a
// partial one — callers must discard entries rather than use them.
func (t *IBLT) Decode() ([]Entry, bool) {
	cells := make([]cell, len(t.cells))
	copy(cells, t.cells)

	var entries []Entry
	for {
		progressed := false

		for i := range cells {
			c := &cells[i]
			if !c.isPure() {
				continue
			}

			key := c.key()
			if key.Hash(checkKey.k0, checkKey.k1) != c.checkSum {
				continue
			}

			sign := 1
			if c.count < 0 {
				sign = -1
			}
			entries = append(entries, Entry{Key: key, Sign: sign})
			progressed = true

			for _, idx := range indicesFor(key, len(cells)) {
				cells[idx].toggle(key, -int64(sign))
			}
		}

		if !progressed {
			break
		}
	}

	for i := range cells {
		if !cells[i].isEmpty() {
			return nil, false
		}
	}
	return entries, true
}
