package contentkey

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func randDigest(t *testing.T) [DigestSize]byte {
	t.Helper()

	var d [DigestSize]byte
	_, err := rand.Read(d[:])
	require.NoError(t, err)
	return d
}

func TestNewPanicsOnBadLength(t *testing.T) {
	require.Panics(t, func() {
		New([]byte{1, 2, 3}, 10)
	})
}

func TestXORSelfInverse(t *testing.T) {
	da, db := randDigest(t), randDigest(t)
	a := New(da[:], 7)
	b := New(db[:], 42)

	require.True(t, a.XOR(b).XOR(b).Equal(a))
}

func TestXORIdentity(t *testing.T) {
	d := randDigest(t)
	a := New(d[:], 99)

	require.True(t, a.XOR(ContentKey{}).Equal(a))
	require.True(t, a.XOR(a).IsZero())
}

func TestXORCommutativeAssociative(t *testing.T) {
	da, db, dc := randDigest(t), randDigest(t), randDigest(t)
	a := New(da[:], 1)
	b := New(db[:], 2)
	c := New(dc[:], 3)

	require.True(t, a.XOR(b).Equal(b.XOR(a)))
	require.True(t, a.XOR(b).XOR(c).Equal(a.XOR(b.XOR(c))))
}

func TestHashDependsOnEveryByte(t *testing.T) {
	d := randDigest(t)
	base := New(d[:], 12345)
	baseHash := base.Hash(1, 2)

	for i := range base.Digest {
		flipped := base
		flipped.Digest[i] ^= 0x01
		require.NotEqual(t, baseHash, flipped.Hash(1, 2),
			"flipping digest byte %d did not change hash", i)
	}

	flippedWeight := base
	flippedWeight.Weight ^= 0x01
	require.NotEqual(t, baseHash, flippedWeight.Hash(1, 2))
}

func TestHashDeterministic(t *testing.T) {
	d := randDigest(t)
	k := New(d[:], 7)

	require.Equal(t, k.Hash(5, 9), k.Hash(5, 9))
}

func TestHashKeyDependent(t *testing.T) {
	d := randDigest(t)
	k := New(d[:], 7)

	require.NotEqual(t, k.Hash(1, 2), k.Hash(3, 4))
}

func TestString(t *testing.T) {
	var d [DigestSize]byte
	for i := range d {
		d[i] = byte(i)
	}
	k := New(d[:], 5)

	require.Contains(t, k.String(), "5")
	require.True(t, bytes.HasPrefix([]byte(k.String()), []byte("000102")))
}
