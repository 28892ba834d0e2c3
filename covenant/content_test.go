package covenant

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"
)

func randFunder(t *testing.T) *btcec.PublicKey {
	t.Helper()

	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	return priv.PubKey()
}

// fundedContent builds a Content whose Funding transaction carries a valid
// funding output for the given data/funder/term, with satoshi value funded.
func fundedContent(t *testing.T, data []byte, funder *btcec.PublicKey, term uint16, funded int64) *Content {
	t.Helper()

	c := &Content{
		Data:   data,
		Funder: funder,
		Term:   term,
	}

	digest, err := c.Digest()
	require.NoError(t, err)

	script, err := FundingScript(funder, digest, term)
	require.NoError(t, err)

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxOut(wire.NewTxOut(funded, script))
	c.Funding = tx

	return c
}

func TestDigestDeterministic(t *testing.T) {
	funder := randFunder(t)
	c1 := fundedContent(t, []byte("hello"), funder, 144, 1000)
	c2 := fundedContent(t, []byte("hello"), funder, 144, 1000)

	d1, err := c1.Digest()
	require.NoError(t, err)
	d2, err := c2.Digest()
	require.NoError(t, err)

	require.Equal(t, d1, d2)
}

func TestDigestDependsOnData(t *testing.T) {
	funder := randFunder(t)
	c1 := fundedContent(t, []byte("hello"), funder, 144, 1000)
	c2 := fundedContent(t, []byte("world"), funder, 144, 1000)

	d1, err := c1.Digest()
	require.NoError(t, err)
	d2, err := c2.Digest()
	require.NoError(t, err)

	require.NotEqual(t, d1, d2)
}

func TestDigestDependsOnFunder(t *testing.T) {
	c1 := fundedContent(t, []byte("hello"), randFunder(t), 144, 1000)
	c2 := fundedContent(t, []byte("hello"), randFunder(t), 144, 1000)

	d1, err := c1.Digest()
	require.NoError(t, err)
	d2, err := c2.Digest()
	require.NoError(t, err)

	require.NotEqual(t, d1, d2)
}

func TestIsValidFunding(t *testing.T) {
	funder := randFunder(t)
	c := fundedContent(t, []byte("covenant content"), funder, 144, 5000)

	ok, err := c.IsValidFunding()
	require.NoError(t, err)
	require.True(t, ok)
}

func TestIsValidFundingRejectsWrongTerm(t *testing.T) {
	funder := randFunder(t)
	c := fundedContent(t, []byte("covenant content"), funder, 144, 5000)
	c.Term = 145

	ok, err := c.IsValidFunding()
	require.ErrorIs(t, err, ErrInvalidFunding)
	require.False(t, ok)
}

func TestIsValidFundingRejectsWrongFunder(t *testing.T) {
	funder := randFunder(t)
	c := fundedContent(t, []byte("covenant content"), funder, 144, 5000)
	c.Funder = randFunder(t)

	ok, err := c.IsValidFunding()
	require.ErrorIs(t, err, ErrInvalidFunding)
	require.False(t, ok)
}

func TestFundingScriptDeterministicAndSensitive(t *testing.T) {
	funder := randFunder(t)
	var digest [32]byte
	_, err := rand.Read(digest[:])
	require.NoError(t, err)

	s1, err := FundingScript(funder, digest, 144)
	require.NoError(t, err)
	s2, err := FundingScript(funder, digest, 144)
	require.NoError(t, err)
	require.Equal(t, s1, s2)

	s3, err := FundingScript(funder, digest, 145)
	require.NoError(t, err)
	require.NotEqual(t, s1, s3)

	flipped := digest
	flipped[0] ^= 0x01
	s4, err := FundingScript(funder, flipped, 144)
	require.NoError(t, err)
	require.NotEqual(t, s1, s4)
}

func TestFundingScriptIsP2WSH(t *testing.T) {
	funder := randFunder(t)
	var digest [32]byte
	script, err := FundingScript(funder, digest, 1)
	require.NoError(t, err)

	// OP_0 <32-byte-push> = 34 bytes total.
	require.Len(t, script, 34)
	require.Equal(t, byte(0x00), script[0])
	require.Equal(t, byte(0x20), script[1])
}

func TestIsValidSPVProofSingleBitFlip(t *testing.T) {
	funder := randFunder(t)
	c := fundedContent(t, []byte("data"), funder, 10, 100)

	txid := c.Funding.TxHash()
	sib := MerkleSibling{Left: false, Hash: chainhash.HashH([]byte("sibling"))}
	c.SPVProof = SPVProof{sib}

	var buf [64]byte
	copy(buf[:32], txid[:])
	copy(buf[32:], sib.Hash[:])
	root := chainhash.DoubleHashH(buf[:])

	ok, err := c.IsValidSPVProof(root)
	require.NoError(t, err)
	require.True(t, ok)

	badRoot := root
	badRoot[0] ^= 0x01
	ok, err = c.IsValidSPVProof(badRoot)
	require.ErrorIs(t, err, ErrInvalidSPVProof)
	require.False(t, ok)
}

func TestWeightMonotonicInFundedValue(t *testing.T) {
	funder := randFunder(t)
	data := []byte("identical payload bytes")

	low := fundedContent(t, data, funder, 50, 1000)
	high := fundedContent(t, data, funder, 50, 10000)

	wLow, err := low.Weight()
	require.NoError(t, err)
	wHigh, err := high.Weight()
	require.NoError(t, err)

	require.Less(t, wLow, wHigh)
}

// TestWeightNonIncreasingInDataAndProofLength holds the funded value fixed
// and grows len(data) and len(spv_proof) independently; weight must never
// increase, since both only ever add to OnWireLength's denominator.
func TestWeightNonIncreasingInDataAndProofLength(t *testing.T) {
	funder := randFunder(t)
	const funded = 1000000

	small := fundedContent(t, []byte("x"), funder, 50, funded)
	wSmallData, err := small.Weight()
	require.NoError(t, err)

	large := fundedContent(t, bytes.Repeat([]byte("x"), 4096), funder, 50, funded)
	wLargeData, err := large.Weight()
	require.NoError(t, err)

	require.LessOrEqual(t, wLargeData, wSmallData)

	c := fundedContent(t, []byte("x"), funder, 50, funded)
	wNoProof, err := c.Weight()
	require.NoError(t, err)

	c.SPVProof = SPVProof{
		{Left: false, Hash: chainhash.HashH([]byte("a"))},
		{Left: true, Hash: chainhash.HashH([]byte("b"))},
	}
	wWithProof, err := c.Weight()
	require.NoError(t, err)

	require.LessOrEqual(t, wWithProof, wNoProof)
}

func TestWeightZeroWhenUnfunded(t *testing.T) {
	funder := randFunder(t)
	c := fundedContent(t, []byte("data"), funder, 1, 0)

	w, err := c.Weight()
	require.NoError(t, err)
	require.Equal(t, uint32(0), w)
}

func TestKeyRoundTrip(t *testing.T) {
	funder := randFunder(t)
	c := fundedContent(t, []byte("keyed content"), funder, 20, 2000)

	k, err := c.Key()
	require.NoError(t, err)

	digest, err := c.Digest()
	require.NoError(t, err)
	require.Equal(t, digest, k.Digest)

	weight, err := c.Weight()
	require.NoError(t, err)
	require.Equal(t, weight, k.Weight)
}
