package iblt

import (
	"bytes"
	"encoding/binary"

	"github.com/go-errors/errors"

	"github.com/covenantmesh/covnode/contentkey"
)

const cellWireSize = 8 + contentkey.DigestSize + 4 + 8

func writeCell(buf *bytes.Buffer, c cell) {
	var countBytes [8]byte
	binary.BigEndian.PutUint64(countBytes[:], uint64(c.count))
	buf.Write(countBytes[:])

	buf.Write(c.digestSum[:])

	var weightBytes [4]byte
	binary.BigEndian.PutUint32(weightBytes[:], c.weightSum)
	buf.Write(weightBytes[:])

	var checkBytes [8]byte
	binary.BigEndian.PutUint64(checkBytes[:], c.checkSum)
	buf.Write(checkBytes[:])
}

func readCell(r *bytes.Reader) (cell, error) {
	var c cell

	var countBytes [8]byte
	if _, err := readFull(r, countBytes[:]); err != nil {
		return cell{}, err
	}
	c.count = int64(binary.BigEndian.Uint64(countBytes[:]))

	if _, err := readFull(r, c.digestSum[:]); err != nil {
		return cell{}, err
	}

	var weightBytes [4]byte
	if _, err := readFull(r, weightBytes[:]); err != nil {
		return cell{}, err
	}
	c.weightSum = binary.BigEndian.Uint32(weightBytes[:])

	var checkBytes [8]byte
	if _, err := readFull(r, checkBytes[:]); err != nil {
		return cell{}, err
	}
	c.checkSum = binary.BigEndian.Uint64(checkBytes[:])

	return c, nil
}

func readFull(r *bytes.Reader, b []byte) (int, error) {
	n, err := r.Read(b)
	if err != nil {
		return n, err
	}
	if n != len(b) {
		return n, errors.Errorf("iblt: short read: got %d want %d", n, len(b))
	}
	return n, nil
}

// MarshalBinary encodes the table as a cell count followed by its cells,
// each in a fixed-width layout. This is the wire representation carried by
// the relay protocol's IBLT message.
func (t *IBLT) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer

	var sizeBytes [4]byte
	binary.BigEndian.PutUint32(sizeBytes[:], uint32(len(t.cells)))
	buf.Write(sizeBytes[:])

	for _, c := range t.cells {
		writeCell(&buf, c)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a table previously produced by MarshalBinary.
func (t *IBLT) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)

	var sizeBytes [4]byte
	if _, err := readFull(r, sizeBytes[:]); err != nil {
		return errors.Errorf("iblt: decode size: %v", err)
	}
	size := binary.BigEndian.Uint32(sizeBytes[:])

	cells := make([]cell, size)
	for i := range cells {
		c, err := readCell(r)
		if err != nil {
			return errors.Errorf("iblt: decode cell %d: %v", i, err)
		}
		cells[i] = c
	}

	t.cells = cells
	return nil
}

// MarshalBinary encodes the sketch as its fixed sequence of strata cells.
// This is the wire representation carried by the relay protocol's
// PollContent message.
func (s *Sketch) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	for _, c := range s.levels {
		writeCell(&buf, c)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a sketch previously produced by MarshalBinary.
func (s *Sketch) UnmarshalBinary(data []byte) error {
	r := bytes.NewReader(data)

	for i := range s.levels {
		c, err := readCell(r)
		if err != nil {
			return errors.Errorf("iblt: decode sketch level %d: %v", i, err)
		}
		s.levels[i] = c
	}
	return nil
}
