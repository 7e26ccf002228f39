// Package messages implements the framed protocol units exchanged between
// clients, game servers, and the relay. Each concrete message kind declares a
// constant 64-bit type symbol and a single Stream method that both encodes
// and decodes its fields through a codec.Stream; a Packet batches an ordered
// sequence of messages into one transmission unit.
package messages

import (
	"sync"

	"github.com/Xenomega/EchoRelay-sub000/internal/codec"
	"github.com/Xenomega/EchoRelay-sub000/internal/game"
)

// Message is a self-describing protocol unit. Stream serializes or parses
// the message fields depending on the stream's mode; errors are reported
// through the stream's sticky error.
type Message interface {
	// Symbol returns the constant 64-bit type symbol for this message kind.
	Symbol() game.Symbol
	// Stream streams the message fields in or out.
	Stream(io *codec.Stream)
}

var (
	registryMu sync.RWMutex
	registry   = map[game.Symbol]func() Message{}
)

// Register binds a message constructor to its type symbol for packet
// decoding. Registration happens at package init time for all built-in kinds;
// re-registering a symbol replaces the previous constructor.
func Register(newFn func() Message) {
	symbol := newFn().Symbol()
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[symbol] = newFn
}

// New creates an empty message of the kind registered for the given symbol.
// Unknown symbols yield an Unrecognized message so they surface explicitly
// rather than being silently dropped.
func New(symbol game.Symbol) Message {
	registryMu.RLock()
	newFn, ok := registry[symbol]
	registryMu.RUnlock()
	if !ok {
		return &Unrecognized{TypeSymbol: symbol}
	}
	return newFn()
}

// Unrecognized carries the raw payload of a message whose type symbol has no
// registered decoder. Dispatchers treat it as an explicit "unknown" variant.
type Unrecognized struct {
	TypeSymbol game.Symbol
	Payload    []byte
}

// Symbol returns the observed (unregistered) type symbol.
func (m *Unrecognized) Symbol() game.Symbol { return m.TypeSymbol }

// Stream streams the raw payload bytes.
func (m *Unrecognized) Stream(io *codec.Stream) {
	io.StreamRemaining(&m.Payload)
}
