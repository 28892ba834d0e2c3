package relaywire

import (
	"io"

	"github.com/btcsuite/btcd/wire"
	"github.com/go-errors/errors"
)

func writeVarBytes(w io.Writer, b []byte) error {
	if err := wire.WriteVarBytes(w, 0, b); err != nil {
		return errors.Errorf("relaywire: write var bytes: %v", err)
	}
	return nil
}

func readVarBytes(r io.Reader, maxLen uint32) ([]byte, error) {
	b, err := wire.ReadVarBytes(r, 0, maxLen, "relaywire payload")
	if err != nil {
		return nil, errors.Errorf("relaywire: read var bytes: %v", err)
	}
	return b, nil
}

func writeHash(w io.Writer, h [32]byte) error {
	_, err := w.Write(h[:])
	return err
}

func readHash(r io.Reader) ([32]byte, error) {
	var h [32]byte
	if _, err := io.ReadFull(r, h[:]); err != nil {
		return h, err
	}
	return h, nil
}
