// Package game defines the identifiers and small value types shared across
// the relay's protocol and matchmaking layers: 64-bit symbols, platform
// account ids, team indexes, lobby types and packet encoder parameters.
package game

import "fmt"

// Symbol is an opaque 64-bit signed identifier naming a message type or a
// game entity (gametype, level, region). Name resolution is performed by an
// external symbol cache and is not part of this package.
type Symbol int64

// String returns the symbol as a 16-digit hex token.
func (s Symbol) String() string {
	return fmt.Sprintf("0x%016x", uint64(s))
}

// SymbolNames resolves symbols to their display names. Implementations are
// external (the two-way symbol cache); a nil or miss result means the symbol
// has no known name.
type SymbolNames interface {
	// Name returns the name bound to a symbol, if one is known.
	Name(symbol Symbol) (string, bool)
}
