// Package contentkey implements the compact, fixed-width identifier used to
// summarize a piece of replicated content within an IBLT: a 32-byte content
// digest paired with a 4-byte admission weight.
package contentkey

import (
	"encoding/binary"
	"fmt"

	"github.com/aead/siphash"
	"github.com/go-errors/errors"
)

// DigestSize is the length in bytes of a content digest.
const DigestSize = 32

// Size is the total on-the-wire size of a ContentKey: a 32-byte digest plus
// a 4-byte big-endian weight.
const Size = DigestSize + 4

// ErrBadDigestLength is the panic value New uses when a caller supplies a
// digest that isn't exactly DigestSize bytes.
var ErrBadDigestLength = errors.Errorf("contentkey: digest must be exactly %d bytes", DigestSize)

// ContentKey is the fixed-width element stored in, and reconciled via, an
// IBLT. Two ContentKeys compare equal iff both their digest and weight
// match; there is no notion of ordering beyond weight-based eviction, which
// callers implement by sorting slices of ContentKey on the Weight field.
type ContentKey struct {
	// Digest is the content's SHA-256 digest, as defined by the covenant
	// package's digest derivation.
	Digest [DigestSize]byte

	// Weight is the admission score computed at the time this content
	// was accepted into a store. Weight is frozen at construction time;
	// nothing in this package mutates it after the fact.
	Weight uint32
}

// New builds a ContentKey from a raw digest slice and a weight. It panics if
// hashBytes is not exactly DigestSize bytes long, mirroring the teacher's
// convention of panicking only on invariant violations rather than returning
// an error for a condition that indicates a programming mistake by the
// caller.
func New(hashBytes []byte, weight uint32) ContentKey {
	if len(hashBytes) != DigestSize {
		panic(ErrBadDigestLength)
	}

	var k ContentKey
	copy(k.Digest[:], hashBytes)
	k.Weight = weight
	return k
}

// Equal reports whether k and other identify the same content with the same
// admission weight.
func (k ContentKey) Equal(other ContentKey) bool {
	return k.Digest == other.Digest && k.Weight == other.Weight
}

// IsZero reports whether k is the all-zero identity element of the XOR
// group (see XOR).
func (k ContentKey) IsZero() bool {
	return k.Equal(ContentKey{})
}

// XOR returns the componentwise XOR-combination of k and other: XOR of the
// two digests, and XOR of the two weights. This operation is associative,
// commutative, and self-inverse (k.XOR(other).XOR(other) == k), which is
// exactly the algebra an IBLT cell relies on to support insertion and
// removal by the same operation.
func (k ContentKey) XOR(other ContentKey) ContentKey {
	var out ContentKey
	for i := range k.Digest {
		out.Digest[i] = k.Digest[i] ^ other.Digest[i]
	}
	out.Weight = k.Weight ^ other.Weight
	return out
}

// preimage returns BigEndian(weight) || digest, the exact byte string that
// Hash feeds to SipHash. BigEndian is a deliberate wire-stability choice:
// the resulting hash is identical across architectures given the same key
// material, independent of the host's native endianness.
func (k ContentKey) preimage() []byte {
	buf := make([]byte, 4+DigestSize)
	binary.BigEndian.PutUint32(buf[:4], k.Weight)
	copy(buf[4:], k.Digest[:])
	return buf
}

// Hash computes the keyed SipHash-2-4 of k under the 128-bit key formed by
// concatenating k0 and k1 in big-endian order. The hash depends on every
// byte of both the digest and the weight, which is what lets an IBLT use it
// for cell selection without a few flipped bits silently colliding.
func (k ContentKey) Hash(k0, k1 uint64) uint64 {
	var key [16]byte
	binary.BigEndian.PutUint64(key[:8], k0)
	binary.BigEndian.PutUint64(key[8:], k1)

	return siphash.Sum64(key[:], k.preimage())
}

// String renders k for debugging as hex(digest):weight.
func (k ContentKey) String() string {
	return fmt.Sprintf("%x:%d", k.Digest, k.Weight)
}
