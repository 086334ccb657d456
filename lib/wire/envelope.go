// Package wire defines the envelope exchanged across the bridge boundary.
//
// An envelope carries the channel identifier, the envelope kind, and the raw
// payload. Everything below this layer is an opaque byte transport.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Kind represents the kind of envelope being sent.
type Kind uint8

const (
	KindData             Kind = 0x01 // Channel payload (no response expected)
	KindReady            Kind = 0x02 // Consumer boundary is installed and listening
	KindShutdown         Kind = 0x03 // Host requests graceful shutdown
	KindShutdownAck      Kind = 0x04 // Consumer acknowledged graceful shutdown
	KindForceShutdown    Kind = 0x05 // Host requests immediate shutdown
	KindForceShutdownAck Kind = 0x06 // Consumer acknowledged immediate shutdown
)

// String returns the string representation of Kind.
func (k Kind) String() string {
	switch k {
	case KindData:
		return "Data"
	case KindReady:
		return "Ready"
	case KindShutdown:
		return "Shutdown"
	case KindShutdownAck:
		return "ShutdownAck"
	case KindForceShutdown:
		return "ForceShutdown"
	case KindForceShutdownAck:
		return "ForceShutdownAck"
	default:
		return "Unknown"
	}
}

// Envelope is one message crossing the boundary: a channel identifier, the
// envelope kind, and the payload bytes. Control envelopes (everything except
// KindData) leave Channel empty.
type Envelope struct {
	Channel string
	Kind    Kind
	Payload []byte
}

// MarshalBinary encodes the envelope into binary format.
func (e *Envelope) MarshalBinary() ([]byte, error) {
	var buffer bytes.Buffer

	channelBytes := []byte(e.Channel)
	channelLen := uint32(len(channelBytes))

	if err := binary.Write(&buffer, binary.BigEndian, channelLen); err != nil {
		return nil, fmt.Errorf("failed to write channel length: %w", err)
	}

	if _, err := buffer.Write(channelBytes); err != nil {
		return nil, fmt.Errorf("failed to write channel: %w", err)
	}

	if err := binary.Write(&buffer, binary.BigEndian, uint8(e.Kind)); err != nil {
		return nil, fmt.Errorf("failed to write kind: %w", err)
	}

	payloadLen := uint32(len(e.Payload))
	if err := binary.Write(&buffer, binary.BigEndian, payloadLen); err != nil {
		return nil, fmt.Errorf("failed to write payload length: %w", err)
	}

	if _, err := buffer.Write(e.Payload); err != nil {
		return nil, fmt.Errorf("failed to write payload: %w", err)
	}

	return buffer.Bytes(), nil
}

// UnmarshalBinary decodes the envelope from binary format.
func (e *Envelope) UnmarshalBinary(data []byte) error {
	buffer := bytes.NewReader(data)

	var channelLen uint32
	if err := binary.Read(buffer, binary.BigEndian, &channelLen); err != nil {
		return fmt.Errorf("failed to read channel length: %w", err)
	}

	if int64(channelLen) > int64(buffer.Len()) {
		return fmt.Errorf("channel length %d exceeds remaining data %d", channelLen, buffer.Len())
	}

	channelBytes := make([]byte, channelLen)
	if _, err := io.ReadFull(buffer, channelBytes); err != nil {
		return fmt.Errorf("failed to read channel: %w", err)
	}
	e.Channel = string(channelBytes)

	var kindByte uint8
	if err := binary.Read(buffer, binary.BigEndian, &kindByte); err != nil {
		return fmt.Errorf("failed to read kind: %w", err)
	}
	e.Kind = Kind(kindByte)

	var payloadLen uint32
	if err := binary.Read(buffer, binary.BigEndian, &payloadLen); err != nil {
		return fmt.Errorf("failed to read payload length: %w", err)
	}

	if int64(payloadLen) > int64(buffer.Len()) {
		return fmt.Errorf("payload length %d exceeds remaining data %d", payloadLen, buffer.Len())
	}

	e.Payload = make([]byte, payloadLen)
	if _, err := io.ReadFull(buffer, e.Payload); err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	return nil
}

// Data builds a data envelope for the given channel and payload.
func Data(channel string, payload []byte) *Envelope {
	return &Envelope{Channel: channel, Kind: KindData, Payload: payload}
}

// Control builds a control envelope of the given kind.
func Control(kind Kind, payload []byte) *Envelope {
	return &Envelope{Kind: kind, Payload: payload}
}
