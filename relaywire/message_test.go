package relaywire

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/stretchr/testify/require"

	"github.com/covenantmesh/covnode/covenant"
)

func randHash(t *testing.T) chainhash.Hash {
	t.Helper()

	var h chainhash.Hash
	_, err := rand.Read(h[:])
	require.NoError(t, err)
	return h
}

func TestPollContentRoundTrip(t *testing.T) {
	msg := &PollContent{
		Tip:    randHash(t),
		Sketch: []byte{1, 2, 3, 4, 5},
		Size:   42,
	}

	var buf bytes.Buffer
	_, err := WriteMessage(&buf, msg)
	require.NoError(t, err)

	decoded, err := ReadMessage(&buf)
	require.NoError(t, err)

	got, ok := decoded.(*PollContent)
	require.True(t, ok)
	require.Equal(t, msg.Tip, got.Tip)
	require.Equal(t, msg.Sketch, got.Sketch)
	require.Equal(t, msg.Size, got.Size)
}

func TestIBLTMessageRoundTrip(t *testing.T) {
	msg := &IBLT{
		Tip:   randHash(t),
		Table: []byte{9, 8, 7, 6},
	}

	var buf bytes.Buffer
	_, err := WriteMessage(&buf, msg)
	require.NoError(t, err)

	decoded, err := ReadMessage(&buf)
	require.NoError(t, err)

	got, ok := decoded.(*IBLT)
	require.True(t, ok)
	require.Equal(t, msg.Tip, got.Tip)
	require.Equal(t, msg.Table, got.Table)
}

func TestGetRoundTrip(t *testing.T) {
	msg := &Get{
		IDs: [][32]byte{randHash(t), randHash(t), randHash(t)},
	}

	var buf bytes.Buffer
	_, err := WriteMessage(&buf, msg)
	require.NoError(t, err)

	decoded, err := ReadMessage(&buf)
	require.NoError(t, err)

	got, ok := decoded.(*Get)
	require.True(t, ok)
	require.Equal(t, msg.IDs, got.IDs)
}

func TestContentRoundTrip(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)

	c := &covenant.Content{
		Data:    []byte("hello relay"),
		Funder:  priv.PubKey(),
		Term:    144,
		BlockID: randHash(t),
	}
	digest, err := c.Digest()
	require.NoError(t, err)

	script, err := covenant.FundingScript(c.Funder, digest, c.Term)
	require.NoError(t, err)

	// A real funding transaction spends at least one input; an input-less
	// transaction is ambiguous under the segwit encoding (its zero input
	// count reads back as the witness marker).
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(&wire.OutPoint{Hash: randHash(t)}, nil, nil))
	tx.AddTxOut(wire.NewTxOut(1000, script))
	c.Funding = tx
	c.SPVProof = covenant.SPVProof{
		{Left: true, Hash: randHash(t)},
		{Left: false, Hash: randHash(t)},
	}

	msg := &Content{Content: c}

	var buf bytes.Buffer
	_, err = WriteMessage(&buf, msg)
	require.NoError(t, err)

	decoded, err := ReadMessage(&buf)
	require.NoError(t, err)

	got, ok := decoded.(*Content)
	require.True(t, ok)
	require.Equal(t, c.Data, got.Content.Data)
	require.Equal(t, c.BlockID, got.Content.BlockID)
	require.Equal(t, c.Term, got.Content.Term)
	require.Equal(t, c.SPVProof, got.Content.SPVProof)
	require.True(t, c.Funder.IsEqual(got.Content.Funder))
	require.Equal(t, c.Funding.TxHash(), got.Content.Funding.TxHash())
}

func TestUnknownMessageType(t *testing.T) {
	var buf bytes.Buffer
	buf.Write([]byte{0xff, 0xff})

	_, err := ReadMessage(&buf)
	require.Error(t, err)
}
