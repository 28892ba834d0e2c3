package covenant

import (
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/txscript"
	"github.com/go-errors/errors"
)

// csvBlockHeightBit is bit 22 of the BIP-68/BIP-112 relative-lock-time
// field. Setting it selects the block-height branch of relative lock-time
// semantics rather than the wall-clock-time branch.
const csvBlockHeightBit = 1 << 22

// tweakPubKey computes funder + digest*G, the BIP-32-style additive tweak
// that binds the funding output to this specific content digest: spending
// the output requires knowing both the funder's private key and the
// digest, so a funding transaction can only ever commit to one piece of
// content.
func tweakPubKey(funder *btcec.PublicKey, digest [32]byte) *btcec.PublicKey {
	curve := btcec.S256()

	scalar := new(big.Int).SetBytes(digest[:])
	scalar.Mod(scalar, curve.N)

	tx, ty := curve.ScalarBaseMult(scalar.Bytes())
	sx, sy := curve.Add(funder.X(), funder.Y(), tx, ty)

	var fx, fy btcec.FieldVal
	fx.SetByteSlice(sx.Bytes())
	fy.SetByteSlice(sy.Bytes())

	return btcec.NewPublicKey(&fx, &fy)
}

// termEncoding returns the low 3 bytes of LittleEndian_u32(term |
// (1<<22)), the minimal script-encoded relative lock time for the CSV
// branch of the funding script.
func termEncoding(term uint16) [3]byte {
	var full [4]byte
	binary.LittleEndian.PutUint32(full[:], uint32(term)|csvBlockHeightBit)

	var enc [3]byte
	copy(enc[:], full[:3])
	return enc
}

// witnessScript builds:
//
//	<tweaked_pubkey_33>  OP_CHECKSIGVERIFY
//	<term_encoded_3>     OP_CSV
//
// bit-exact: the tweak's byte order, bit 22 of the lock-time field, and the
// 3-byte (not 4-byte) push of term_encoded are all load-bearing — any
// deviation produces a script nobody else derives, and replication fails
// silently rather than with an error.
func witnessScript(funder *btcec.PublicKey, digest [32]byte, term uint16) ([]byte, error) {
	tweaked := tweakPubKey(funder, digest)
	termEnc := termEncoding(term)

	builder := txscript.NewScriptBuilder()
	builder.AddData(tweaked.SerializeCompressed())
	builder.AddOp(txscript.OP_CHECKSIGVERIFY)
	builder.AddData(termEnc[:])
	builder.AddOp(txscript.OP_CHECKSEQUENCEVERIFY)

	script, err := builder.Script()
	if err != nil {
		return nil, errors.Errorf("build witness script: %v", err)
	}
	return script, nil
}

// p2wshScriptPubKey wraps redeemScript as a version-0 P2WSH output script:
// OP_0 <sha256(redeemScript)>.
func p2wshScriptPubKey(redeemScript []byte) ([]byte, error) {
	scriptHash := sha256.Sum256(redeemScript)

	builder := txscript.NewScriptBuilder()
	builder.AddOp(txscript.OP_0)
	builder.AddData(scriptHash[:])

	script, err := builder.Script()
	if err != nil {
		return nil, errors.Errorf("build p2wsh script_pubkey: %v", err)
	}
	return script, nil
}

// FundingScript reconstructs F(funder, digest, term): the pay-to-
// witness-script-hash script_pubkey that a funding transaction must carry
// an output for in order to fund content identified by digest. This is
// deterministic in all three inputs; swapping any one of funder, digest, or
// term produces a different script.
func FundingScript(funder *btcec.PublicKey, digest [32]byte, term uint16) ([]byte, error) {
	redeem, err := witnessScript(funder, digest, term)
	if err != nil {
		return nil, err
	}
	return p2wshScriptPubKey(redeem)
}
