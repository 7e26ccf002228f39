package messages

import (
	"github.com/Xenomega/EchoRelay-sub000/internal/codec"
	"github.com/Xenomega/EchoRelay-sub000/internal/game"
)

func init() {
	Register(func() Message { return &TCPConnectionUnrequireEvent{} })
}

// TCPConnectionUnrequireEvent tells a peer the relay no longer requires the
// current TCP connection for the last request; peers commonly receive it as
// a terminator after a response burst.
type TCPConnectionUnrequireEvent struct {
	Unused byte
}

func (m *TCPConnectionUnrequireEvent) Symbol() game.Symbol { return 0x43e6963ac76beee4 }

func (m *TCPConnectionUnrequireEvent) Stream(io *codec.Stream) {
	io.StreamByte(&m.Unused)
}

func (m *TCPConnectionUnrequireEvent) String() string { return "TCPConnectionUnrequireEvent()" }
