package relaywire

import (
	"encoding/binary"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/go-errors/errors"
)

// PollContent announces the sender's keyset summary at a given tip: the
// strata estimator sketch and the key count it summarizes, so the
// recipient can size an IBLT for the next round without guessing.
type PollContent struct {
	// Tip is the chain tip the sender's keyset is valid at.
	Tip chainhash.Hash

	// Sketch is the sender's serialized iblt.Sketch.
	Sketch []byte

	// Size is the number of keys Sketch summarizes.
	Size uint32
}

var _ Message = (*PollContent)(nil)

func (m *PollContent) MsgType() MessageType { return MsgPollContent }

func (m *PollContent) MaxPayloadLength() uint32 {
	return 32 + 4 + MaxMessagePayload
}

func (m *PollContent) Encode(w io.Writer) error {
	if err := writeHash(w, m.Tip); err != nil {
		return err
	}
	if err := writeVarBytes(w, m.Sketch); err != nil {
		return err
	}

	var sizeBytes [4]byte
	binary.BigEndian.PutUint32(sizeBytes[:], m.Size)
	if _, err := w.Write(sizeBytes[:]); err != nil {
		return err
	}
	return nil
}

func (m *PollContent) Decode(r io.Reader) error {
	tip, err := readHash(r)
	if err != nil {
		return errors.Errorf("relaywire: poll_content tip: %v", err)
	}
	m.Tip = chainhash.Hash(tip)

	sketch, err := readVarBytes(r, MaxMessagePayload)
	if err != nil {
		return errors.Errorf("relaywire: poll_content sketch: %v", err)
	}
	m.Sketch = sketch

	var sizeBytes [4]byte
	if _, err := io.ReadFull(r, sizeBytes[:]); err != nil {
		return errors.Errorf("relaywire: poll_content size: %v", err)
	}
	m.Size = binary.BigEndian.Uint32(sizeBytes[:])

	return nil
}
