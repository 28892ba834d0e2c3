// Package covenant implements the content-keying and validation pipeline:
// computing a content's digest, reconstructing its expected Bitcoin funding
// script, verifying its SPV proof against a Merkle root, and deriving its
// admission weight. See fundingscript.go for the P2WSH/CSV script builder.
package covenant

import (
	"bytes"
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/go-errors/errors"

	"github.com/covenantmesh/covnode/contentkey"
)

// MerkleSibling is one step of a SPV authentication path: a sibling hash and
// a flag recording which side of the concatenation it occupies.
type MerkleSibling struct {
	// Left is true when sib is concatenated before the running
	// accumulator; false concatenates the accumulator first.
	Left bool

	// Hash is the sibling node's hash.
	Hash chainhash.Hash
}

// SPVProof is an ordered Merkle authentication path from a transaction id up
// to a block's Merkle root.
type SPVProof []MerkleSibling

// Content is the replicated unit: opaque payload bytes bound to a Bitcoin
// funding transaction via a covenant-style P2WSH output, and to a specific
// block via an SPV proof.
type Content struct {
	// Data is the opaque replicated payload.
	Data []byte

	// Funding is the Bitcoin transaction asserted to fund this content.
	Funding *wire.MsgTx

	// BlockID is the hash of the block asserted to contain Funding.
	BlockID chainhash.Hash

	// SPVProof authenticates txid(Funding) up to BlockID's Merkle root.
	SPVProof SPVProof

	// Funder is the content producer's secp256k1 public key.
	Funder *btcec.PublicKey

	// Term is the number of blocks the content is funded for.
	Term uint16
}

// serializeVarBytes returns the Bitcoin consensus length-prefixed encoding
// of b: a varint length followed by the raw bytes. The digest preimage
// depends on matching this exactly, byte for byte, across implementations.
func serializeVarBytes(b []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := wire.WriteVarBytes(&buf, 0, b); err != nil {
		return nil, errors.Errorf("serialize var bytes: %v", err)
	}
	return buf.Bytes(), nil
}

// Digest computes d = SHA256( serialize(data) || serialize(funder_bytes) ).
// The exact pre-image ordering and length-prefixing must be preserved bit
// for bit across implementations, or digests silently diverge between
// peers and replication fails without any single error being raised.
func (c *Content) Digest() ([32]byte, error) {
	dataPart, err := serializeVarBytes(c.Data)
	if err != nil {
		return [32]byte{}, err
	}

	funderBytes := c.Funder.SerializeCompressed()
	funderPart, err := serializeVarBytes(funderBytes)
	if err != nil {
		return [32]byte{}, err
	}

	preimage := append(dataPart, funderPart...)
	return sha256.Sum256(preimage), nil
}

// OnWireLength returns L = len(data) + len(serialize(funding)) +
// 32*len(spv_proof): the denominator Weight ranks storage cost against,
// and the footprint a store counts against its size budget.
func (c *Content) OnWireLength() int {
	return len(c.Data) + c.Funding.SerializeSize() +
		contentkey.DigestSize*len(c.SPVProof)
}

// IsValidSPVProof folds SPVProof starting from txid(Funding), double-SHA256
// hashing at each step, and reports whether the final accumulator equals
// root. A non-matching fold returns ErrInvalidSPVProof alongside false.
func (c *Content) IsValidSPVProof(root chainhash.Hash) (bool, error) {
	acc := c.Funding.TxHash()

	for _, step := range c.SPVProof {
		var buf [2 * chainhash.HashSize]byte
		if step.Left {
			copy(buf[:chainhash.HashSize], step.Hash[:])
			copy(buf[chainhash.HashSize:], acc[:])
		} else {
			copy(buf[:chainhash.HashSize], acc[:])
			copy(buf[chainhash.HashSize:], step.Hash[:])
		}
		acc = chainhash.DoubleHashH(buf[:])
	}

	if acc != root {
		return false, ErrInvalidSPVProof
	}
	return true, nil
}

// IsValidFunding computes the expected funding script for this content and
// reports whether any output of Funding carries it. The output index is
// irrelevant; only presence matters. If none does, it returns
// ErrInvalidFunding alongside false.
func (c *Content) IsValidFunding() (bool, error) {
	digest, err := c.Digest()
	if err != nil {
		return false, err
	}

	expected, err := FundingScript(c.Funder, digest, c.Term)
	if err != nil {
		return false, err
	}

	for _, out := range c.Funding.TxOut {
		if bytes.Equal(out.PkScript, expected) {
			return true, nil
		}
	}
	return false, ErrInvalidFunding
}

// IsValid reports whether c's funding script and SPV proof both check out
// against root. The error return is one of ErrInvalidFunding or
// ErrInvalidSPVProof when validation fails outright, or a propagated
// computation error (e.g. a malformed funding script) otherwise.
func (c *Content) IsValid(root chainhash.Hash) (bool, error) {
	if _, err := c.IsValidFunding(); err != nil {
		return false, err
	}

	return c.IsValidSPVProof(root)
}

// Weight returns the admission score: the satoshi value summed across every
// output whose script_pubkey matches the expected funding script, divided
// by the content's on-wire length, truncated to a u32. Weight ranks content
// by satoshis funded per stored byte, a cost-of-storage admission score.
func (c *Content) Weight() (uint32, error) {
	digest, err := c.Digest()
	if err != nil {
		return 0, err
	}

	expected, err := FundingScript(c.Funder, digest, c.Term)
	if err != nil {
		return 0, err
	}

	var funded btcutil.Amount
	for _, out := range c.Funding.TxOut {
		if bytes.Equal(out.PkScript, expected) {
			funded += btcutil.Amount(out.Value)
		}
	}

	l := c.OnWireLength()
	if l == 0 {
		return 0, ErrEmptyData
	}

	return uint32(int64(funded) / int64(l)), nil
}

// Key builds the ContentKey this content admits under: its digest paired
// with its weight at admission time. Per spec.md's I3, neither field is
// ever mutated after this point.
func (c *Content) Key() (contentkey.ContentKey, error) {
	digest, err := c.Digest()
	if err != nil {
		return contentkey.ContentKey{}, err
	}

	weight, err := c.Weight()
	if err != nil {
		return contentkey.ContentKey{}, err
	}

	return contentkey.New(digest[:], weight), nil
}
