// Package relaywire defines the four messages peers exchange while
// reconciling content sets, framed the way the teacher's lightning wire
// protocol frames its own messages: a small fixed header carrying a
// message type, followed by a type-specific payload.
package relaywire

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/go-errors/errors"
)

// MaxMessagePayload bounds any single message's payload, regardless of the
// limit a specific message type imposes on itself.
const MaxMessagePayload = 1 << 20

// MessageType is the 2-byte big-endian integer identifying a message's
// concrete type on the wire.
type MessageType uint16

const (
	MsgPollContent MessageType = 1
	MsgIBLT        MessageType = 2
	MsgGet         MessageType = 3
	MsgContent     MessageType = 4
)

// Message is implemented by every relay protocol message.
type Message interface {
	Decode(r io.Reader) error
	Encode(w io.Writer) error
	MsgType() MessageType
	MaxPayloadLength() uint32
}

// UnknownMessage is returned when a message header names a type this
// package does not know how to decode.
type UnknownMessage struct {
	Type MessageType
}

func (u *UnknownMessage) Error() string {
	return errors.Errorf("relaywire: unknown message type %d", u.Type).Error()
}

func makeEmptyMessage(msgType MessageType) (Message, error) {
	switch msgType {
	case MsgPollContent:
		return &PollContent{}, nil
	case MsgIBLT:
		return &IBLT{}, nil
	case MsgGet:
		return &Get{}, nil
	case MsgContent:
		return &Content{}, nil
	default:
		return nil, &UnknownMessage{Type: msgType}
	}
}

// WriteMessage writes msg's 2-byte type header followed by its encoded
// payload to w, and returns the total number of bytes written.
func WriteMessage(w io.Writer, msg Message) (int, error) {
	var payload bytes.Buffer
	if err := msg.Encode(&payload); err != nil {
		return 0, errors.Errorf("relaywire: encode payload: %v", err)
	}

	if payload.Len() > MaxMessagePayload {
		return 0, errors.Errorf(
			"relaywire: payload too large: %d bytes exceeds %d",
			payload.Len(), MaxMessagePayload)
	}
	if mpl := msg.MaxPayloadLength(); uint32(payload.Len()) > mpl {
		return 0, errors.Errorf(
			"relaywire: payload too large for type %d: %d bytes exceeds %d",
			msg.MsgType(), payload.Len(), mpl)
	}

	total := 0

	var header [2]byte
	binary.BigEndian.PutUint16(header[:], uint16(msg.MsgType()))
	n, err := w.Write(header[:])
	total += n
	if err != nil {
		return total, err
	}

	n, err = w.Write(payload.Bytes())
	total += n
	return total, err
}

// ReadMessage reads a message header and payload from r and decodes it
// into its concrete type.
func ReadMessage(r io.Reader) (Message, error) {
	var header [2]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	msgType := MessageType(binary.BigEndian.Uint16(header[:]))

	msg, err := makeEmptyMessage(msgType)
	if err != nil {
		return nil, err
	}
	if err := msg.Decode(r); err != nil {
		return nil, err
	}
	return msg, nil
}
