// Package frame implements the QuickCAN serial wire format.
//
// Packet layout on the wire:
//
//	START (0xAA)
//	[escaped bytes of]
//	  version  : uint8 (0x01)
//	  command  : uint8
//	  id       : uint32 BE
//	  flags    : uint8 [extended:1][reserved:3][dlc:4]
//	  data     : dlc bytes (0..15)
//	  checksum : uint8, sum of all preceding payload bytes mod 256
//
// Payload bytes equal to START (0xAA) or ESC (0xAB) are sent as ESC, b^0x20,
// so START only ever marks the beginning of a packet.
package frame

import (
	"encoding/binary"
	"fmt"
)

const (
	StartByte       = 0xAA
	EscapeByte      = 0xAB
	EscapeXor       = 0x20
	ProtocolVersion = 0x01

	headerLen     = 7 // version, command, id, flags
	minPayloadLen = headerLen + 1
	maxPayloadLen = headerLen + MaxDataLength + 1

	// MaxPacketLen is the longest packet Encode can produce, every payload
	// byte escaped.
	MaxPacketLen = 1 + 2*maxPayloadLen
)

// Checksum returns the additive checksum of data.
func Checksum(data []byte) byte {
	var sum byte
	for _, b := range data {
		sum += b
	}
	return sum
}

// Escape stuffs START and ESC bytes.
func Escape(data []byte) []byte {
	out := make([]byte, 0, len(data)+4)
	for _, b := range data {
		switch b {
		case StartByte, EscapeByte:
			out = append(out, EscapeByte, b^EscapeXor)
		default:
			out = append(out, b)
		}
	}
	return out
}

// Unescape reverses Escape. A trailing ESC with nothing after it is dropped.
func Unescape(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		b := data[i]
		if b != EscapeByte {
			out = append(out, b)
			continue
		}
		i++
		if i == len(data) {
			break
		}
		out = append(out, data[i]^EscapeXor)
	}
	return out
}

// Encode builds the wire packet for f sent as cmd.
func Encode(f *CANFrame, cmd Command) ([]byte, error) {
	if !cmd.Valid() {
		return nil, fmt.Errorf("%w: 0x%02X", ErrUnknownCommand, byte(cmd))
	}
	if len(f.Data) > MaxDataLength {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrFrameTooLarge, len(f.Data), MaxDataLength)
	}
	payload := make([]byte, headerLen, headerLen+len(f.Data)+1)
	payload[0] = ProtocolVersion
	payload[1] = byte(cmd)
	binary.BigEndian.PutUint32(payload[2:6], f.ID)
	payload[6] = flagsFor(len(f.Data), f.Extended)
	payload = append(payload, f.Data...)
	payload = append(payload, Checksum(payload))

	return append([]byte{StartByte}, Escape(payload)...), nil
}

// Decode validates a complete packet and returns its command and frame.
func Decode(raw []byte) (Command, *CANFrame, error) {
	if len(raw) == 0 || raw[0] != StartByte {
		return 0, nil, ErrMalformedStart
	}
	payload := Unescape(raw[1:])
	if len(payload) < minPayloadLen {
		return 0, nil, fmt.Errorf("%w: %d bytes", ErrTruncated, len(payload))
	}
	if payload[0] != ProtocolVersion {
		return 0, nil, fmt.Errorf("%w: got 0x%02X", ErrVersionMismatch, payload[0])
	}
	cmd, err := ParseCommand(payload[1])
	if err != nil {
		return 0, nil, err
	}
	flags := payload[6]
	dlc := int(flags & flagLengthMask)
	want := headerLen + dlc + 1
	if len(payload) < want {
		return 0, nil, fmt.Errorf("%w: dlc %d needs %d bytes, got %d", ErrTruncated, dlc, want, len(payload))
	}
	// checksum is always the last byte, never read at an offset taken from dlc
	end := len(payload) - 1
	if sum := Checksum(payload[:end]); sum != payload[end] {
		return 0, nil, fmt.Errorf("%w: calculated 0x%02X, got 0x%02X", ErrChecksumMismatch, sum, payload[end])
	}
	if len(payload) != want {
		return 0, nil, fmt.Errorf("%w: dlc %d needs %d bytes, got %d", ErrLengthMismatch, dlc, want, len(payload))
	}

	data := make([]byte, dlc)
	copy(data, payload[headerLen:headerLen+dlc])
	return cmd, &CANFrame{
		ID:       binary.BigEndian.Uint32(payload[2:6]),
		Data:     data,
		Extended: flags&flagExtended != 0,
		Flags:    flags,
	}, nil
}
