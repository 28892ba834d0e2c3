package relaywire

import (
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/go-errors/errors"
)

// IBLT carries the sender's IBLT of its keyset at a given tip.
type IBLT struct {
	// Tip is the chain tip the sender's keyset is valid at.
	Tip chainhash.Hash

	// Table is the sender's serialized iblt.IBLT.
	Table []byte
}

var _ Message = (*IBLT)(nil)

func (m *IBLT) MsgType() MessageType { return MsgIBLT }

func (m *IBLT) MaxPayloadLength() uint32 {
	return 32 + MaxMessagePayload
}

func (m *IBLT) Encode(w io.Writer) error {
	if err := writeHash(w, m.Tip); err != nil {
		return err
	}
	return writeVarBytes(w, m.Table)
}

func (m *IBLT) Decode(r io.Reader) error {
	tip, err := readHash(r)
	if err != nil {
		return errors.Errorf("relaywire: iblt tip: %v", err)
	}
	m.Tip = chainhash.Hash(tip)

	table, err := readVarBytes(r, MaxMessagePayload)
	if err != nil {
		return errors.Errorf("relaywire: iblt table: %v", err)
	}
	m.Table = table

	return nil
}
