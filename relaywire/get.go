package relaywire

import (
	"encoding/binary"
	"io"

	"github.com/go-errors/errors"
)

// maxGetIDs bounds how many digests a single Get may request, derived from
// MaxMessagePayload and each id's fixed 32-byte width.
const maxGetIDs = MaxMessagePayload / 32

// Get requests content by digest.
type Get struct {
	IDs [][32]byte
}

var _ Message = (*Get)(nil)

func (m *Get) MsgType() MessageType { return MsgGet }

func (m *Get) MaxPayloadLength() uint32 {
	return 4 + MaxMessagePayload
}

func (m *Get) Encode(w io.Writer) error {
	var countBytes [4]byte
	binary.BigEndian.PutUint32(countBytes[:], uint32(len(m.IDs)))
	if _, err := w.Write(countBytes[:]); err != nil {
		return err
	}

	for _, id := range m.IDs {
		if err := writeHash(w, id); err != nil {
			return err
		}
	}
	return nil
}

func (m *Get) Decode(r io.Reader) error {
	var countBytes [4]byte
	if _, err := io.ReadFull(r, countBytes[:]); err != nil {
		return errors.Errorf("relaywire: get count: %v", err)
	}
	count := binary.BigEndian.Uint32(countBytes[:])
	if count > maxGetIDs {
		return errors.Errorf("relaywire: get count %d exceeds maximum %d",
			count, maxGetIDs)
	}

	ids := make([][32]byte, count)
	for i := range ids {
		id, err := readHash(r)
		if err != nil {
			return errors.Errorf("relaywire: get id %d: %v", i, err)
		}
		ids[i] = id
	}
	m.IDs = ids

	return nil
}
