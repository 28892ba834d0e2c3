package relaywire

import (
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/go-errors/errors"

	"github.com/covenantmesh/covnode/covenant"
)

// maxSPVProofSteps bounds the number of Merkle siblings a single Content
// message may carry.
const maxSPVProofSteps = 1024

// Content carries a full content record, requested via a prior Get.
type Content struct {
	Content *covenant.Content
}

var _ Message = (*Content)(nil)

func (m *Content) MsgType() MessageType { return MsgContent }

func (m *Content) MaxPayloadLength() uint32 {
	return MaxMessagePayload
}

func (m *Content) Encode(w io.Writer) error {
	c := m.Content

	if err := writeVarBytes(w, c.Data); err != nil {
		return errors.Errorf("relaywire: content data: %v", err)
	}

	if err := c.Funding.Serialize(w); err != nil {
		return errors.Errorf("relaywire: content funding: %v", err)
	}

	if err := writeHash(w, c.BlockID); err != nil {
		return err
	}

	var stepCount [4]byte
	binary.BigEndian.PutUint32(stepCount[:], uint32(len(c.SPVProof)))
	if _, err := w.Write(stepCount[:]); err != nil {
		return err
	}
	for _, step := range c.SPVProof {
		var left byte
		if step.Left {
			left = 1
		}
		if _, err := w.Write([]byte{left}); err != nil {
			return err
		}
		if err := writeHash(w, step.Hash); err != nil {
			return err
		}
	}

	if _, err := w.Write(c.Funder.SerializeCompressed()); err != nil {
		return errors.Errorf("relaywire: content funder: %v", err)
	}

	var termBytes [2]byte
	binary.BigEndian.PutUint16(termBytes[:], c.Term)
	if _, err := w.Write(termBytes[:]); err != nil {
		return err
	}

	return nil
}

func (m *Content) Decode(r io.Reader) error {
	data, err := readVarBytes(r, MaxMessagePayload)
	if err != nil {
		return errors.Errorf("relaywire: content data: %v", err)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	if err := tx.Deserialize(r); err != nil {
		return errors.Errorf("relaywire: content funding: %v", err)
	}

	blockID, err := readHash(r)
	if err != nil {
		return errors.Errorf("relaywire: content block id: %v", err)
	}

	var stepCount [4]byte
	if _, err := io.ReadFull(r, stepCount[:]); err != nil {
		return errors.Errorf("relaywire: content proof length: %v", err)
	}
	count := binary.BigEndian.Uint32(stepCount[:])
	if count > maxSPVProofSteps {
		return errors.Errorf("relaywire: content proof length %d exceeds maximum %d",
			count, maxSPVProofSteps)
	}

	proof := make(covenant.SPVProof, count)
	for i := range proof {
		var leftByte [1]byte
		if _, err := io.ReadFull(r, leftByte[:]); err != nil {
			return errors.Errorf("relaywire: content proof step %d: %v", i, err)
		}
		sibling, err := readHash(r)
		if err != nil {
			return errors.Errorf("relaywire: content proof step %d: %v", i, err)
		}
		proof[i] = covenant.MerkleSibling{
			Left: leftByte[0] != 0,
			Hash: chainhash.Hash(sibling),
		}
	}

	var funderBytes [33]byte
	if _, err := io.ReadFull(r, funderBytes[:]); err != nil {
		return errors.Errorf("relaywire: content funder: %v", err)
	}
	funder, err := btcec.ParsePubKey(funderBytes[:])
	if err != nil {
		return errors.Errorf("relaywire: content funder: %v", err)
	}

	var termBytes [2]byte
	if _, err := io.ReadFull(r, termBytes[:]); err != nil {
		return errors.Errorf("relaywire: content term: %v", err)
	}

	m.Content = &covenant.Content{
		Data:     data,
		Funding:  tx,
		BlockID:  chainhash.Hash(blockID),
		SPVProof: proof,
		Funder:   funder,
		Term:     binary.BigEndian.Uint16(termBytes[:]),
	}
	return nil
}
