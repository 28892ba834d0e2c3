package iblt

import (
	"math"
	"math/bits"

	"github.com/covenantmesh/covnode/contentkey"
)

// sketchLevels bounds the strata a key can land in; 32 comfortably covers
// any ContentKey population this core is expected to carry.
const sketchLevels = 32

// stratumKey hashes a key to decide which stratum it is assigned to: the
// number of trailing zero bits of the hash. Elements thin out
// geometrically by level, which is what lets EstimateDiffSize extrapolate
// from however many high (rare) levels decode cleanly.
var stratumKey = hashKey{k0: 0x2545f4914f6cdd1d, k1: 0x1d873683d5c0cf1e}

func stratum(k contentkey.ContentKey) int {
	h := k.Hash(stratumKey.k0, stratumKey.k1)
	if h == 0 {
		return sketchLevels - 1
	}
	z := bits.TrailingZeros64(h)
	if z >= sketchLevels {
		z = sketchLevels - 1
	}
	return z
}

// Sketch is a strata estimator: a compact summary of a ContentKey set used
// to estimate the symmetric-difference size against a peer's set before
// committing to a specific IBLT size for full reconciliation.
type Sketch struct {
	levels [sketchLevels]cell
}

// NewSketch returns an empty sketch.
func NewSketch() *Sketch {
	return &Sketch{}
}

// Insert adds k to the sketch.
func (s *Sketch) Insert(k contentkey.ContentKey) {
	s.levels[stratum(k)].toggle(k, 1)
}

// EstimateDiffSize estimates the number of keys that differ between a
// local set (summarized by local/localCount) and a remote one (summarized
// by remote/remoteCount). Levels are examined from rarest to most common;
// once a level's cell fails to peel cleanly, that cell is counted as two
// keys (the fewest a non-empty, non-peelable cell can hold), and the count
// accumulated so far is scaled up by the strata left unexamined.
func EstimateDiffSize(local *Sketch, localCount uint32, remote *Sketch, remoteCount uint32) uint32 {
	var diff [sketchLevels]cell
	for i := 0; i < sketchLevels; i++ {
		diff[i].count = local.levels[i].count - remote.levels[i].count
		diff[i].weightSum = local.levels[i].weightSum ^ remote.levels[i].weightSum
		diff[i].checkSum = local.levels[i].checkSum ^ remote.levels[i].checkSum
		for j := range diff[i].digestSum {
			diff[i].digestSum[j] = local.levels[i].digestSum[j] ^ remote.levels[i].digestSum[j]
		}
	}

	var peeled uint64
	for lvl := sketchLevels - 1; lvl >= 0; lvl-- {
		c := &diff[lvl]
		if c.isEmpty() {
			continue
		}

		if !c.isPure() {
			return extrapolate(peeled+2, lvl)
		}

		key := c.key()
		if key.Hash(checkKey.k0, checkKey.k1) != c.checkSum {
			return extrapolate(peeled+2, lvl)
		}

		peeled++
	}

	// Every level peeled cleanly: this is the exact symmetric-difference
	// size, not an estimate.
	if peeled > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(peeled)
}

func extrapolate(peeled uint64, failedLevel int) uint32 {
	estimate := peeled << uint(failedLevel+1)
	if estimate > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(estimate)
}
