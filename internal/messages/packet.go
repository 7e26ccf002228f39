package messages

import (
	"encoding/binary"
	"fmt"

	"github.com/Xenomega/EchoRelay-sub000/internal/codec"
	"github.com/Xenomega/EchoRelay-sub000/internal/game"
)

// packetHeaderID prefixes every message frame inside a packet.
const packetHeaderID uint64 = 0xbb8ce7a278bb40f6

// MaxPacketSize bounds the payload size of a single message frame.
const MaxPacketSize = 0x8000

// Packet is an ordered batch of messages encoded back to back in a single
// transmission unit. Decoding preserves message order; unknown type symbols
// decode as *Unrecognized rather than being dropped.
type Packet []Message

// Encode serializes all messages in order. Each message is framed as a
// little endian header id, its type symbol, its payload length, then the
// payload bytes.
func (p Packet) Encode() ([]byte, error) {
	out := codec.NewWriter(binary.LittleEndian)
	for _, msg := range p {
		body := codec.NewWriter(binary.LittleEndian)
		msg.Stream(body)
		if err := body.Err(); err != nil {
			return nil, fmt.Errorf("encode message %v: %w", msg.Symbol(), err)
		}
		payload := body.Bytes()
		if len(payload) > MaxPacketSize {
			return nil, fmt.Errorf("encode message %v: payload size %d exceeds maximum %d", msg.Symbol(), len(payload), MaxPacketSize)
		}

		header := packetHeaderID
		symbol := int64(msg.Symbol())
		length := uint64(len(payload))
		out.StreamUint64(&header)
		out.StreamInt64(&symbol)
		out.StreamUint64(&length)
		out.StreamBytes(payload)
	}
	if err := out.Err(); err != nil {
		return nil, fmt.Errorf("encode packet: %w", err)
	}
	return out.Bytes(), nil
}

// DecodePacket parses a packet from raw bytes. It fails on a malformed
// header id, an oversized or truncated payload, or a message body that does
// not consume cleanly.
func DecodePacket(data []byte) (Packet, error) {
	in := codec.NewReader(data, binary.LittleEndian)
	var packet Packet
	for in.Remaining() > 0 {
		var header, length uint64
		var symbol int64
		in.StreamUint64(&header)
		in.StreamInt64(&symbol)
		in.StreamUint64(&length)
		if err := in.Err(); err != nil {
			return nil, fmt.Errorf("decode packet: truncated message header: %w", err)
		}
		if header != packetHeaderID {
			return nil, fmt.Errorf("decode packet: invalid header id 0x%x", header)
		}
		if length > MaxPacketSize {
			return nil, fmt.Errorf("decode packet: payload size %d exceeds maximum %d", length, MaxPacketSize)
		}
		if length > uint64(in.Remaining()) {
			return nil, fmt.Errorf("decode packet: payload size %d exceeds remaining %d bytes", length, in.Remaining())
		}

		payload := make([]byte, length)
		in.StreamBytes(payload)

		msg := New(game.Symbol(symbol))
		body := codec.NewReader(payload, binary.LittleEndian)
		msg.Stream(body)
		if err := body.Err(); err != nil {
			return nil, fmt.Errorf("decode message %v: %w", msg.Symbol(), err)
		}
		packet = append(packet, msg)
	}
	return packet, nil
}
