package remote

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// FrameSize is the number of meaningful bytes at the head of a radio payload.
	FrameSize = 6
	// PayloadSize is the fixed payload width configured on the transceiver.
	PayloadSize = 32
)

var ErrInvalidFrame = errors.New("invalid remote frame")

type Command uint8

const (
	CommandBtnRelease Command = 1
	CommandBtnPress   Command = 2
	CommandBatt       Command = 3
)

func (c Command) String() string {
	switch c {
	case CommandBtnRelease:
		return "BTN_RELEASE"
	case CommandBtnPress:
		return "BTN_PRESS"
	case CommandBatt:
		return "BATT"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(c))
	}
}

// Message is a decoded remote frame. RemoteID is never zero.
type Message struct {
	RemoteID  uint32
	Command   Command
	Data      uint8
	Timestamp time.Time
}

func (m Message) String() string {
	switch m.Command {
	case CommandBtnPress:
		return fmt.Sprintf("remote(%#08x): BTN(%d) pressed", m.RemoteID, m.Data)
	case CommandBtnRelease:
		return fmt.Sprintf("remote(%#08x): BTN(%d) released", m.RemoteID, m.Data)
	case CommandBatt:
		return fmt.Sprintf("remote(%#08x): BATT -> %d%%", m.RemoteID, m.Data)
	default:
		return fmt.Sprintf("remote(%#08x): %s data=%d", m.RemoteID, m.Command, m.Data)
	}
}

// Decode parses the little-endian remote id, command and data bytes from
// the head of a payload. Trailing bytes are ignored.
func Decode(frame []byte, at time.Time) (Message, error) {
	if len(frame) < FrameSize {
		return Message{}, fmt.Errorf("%w: %d bytes, need %d", ErrInvalidFrame, len(frame), FrameSize)
	}

	id := binary.LittleEndian.Uint32(frame[0:4])
	if id == 0 {
		return Message{}, fmt.Errorf("%w: remote id is zero", ErrInvalidFrame)
	}

	return Message{
		RemoteID:  id,
		Command:   Command(frame[4]),
		Data:      frame[5],
		Timestamp: at,
	}, nil
}

// Encode builds the 6-byte wire frame for m.
func Encode(m Message) []byte {
	frame := make([]byte, FrameSize)
	binary.LittleEndian.PutUint32(frame[0:4], m.RemoteID)
	frame[4] = byte(m.Command)
	frame[5] = m.Data
	return frame
}

// Decoder turns raw frames into messages and keeps the known-remote
// registry current as a side effect.
type Decoder struct {
	registry Registry
}

func NewDecoder(registry Registry) *Decoder {
	return &Decoder{registry: registry}
}

func (d *Decoder) Decode(frame RawFrame) (Message, error) {
	msg, err := Decode(frame.Payload, frame.ReceivedAt)
	if err != nil {
		return Message{}, err
	}

	d.track(msg)
	return msg, nil
}

func (d *Decoder) track(msg Message) {
	if d.registry == nil {
		return
	}

	var err error
	switch {
	case msg.Command == CommandBatt:
		err = d.registry.UpdateBattery(msg.RemoteID, msg.Data)
	case !d.registry.IsKnown(msg.RemoteID):
		err = d.registry.Add(msg.RemoteID)
	}
	if err != nil {
		log.Warn().
			Err(err).
			Str("component", "remote_link").
			Uint32("remote_id", msg.RemoteID).
			Msg("failed to update remote registry")
	}
}
