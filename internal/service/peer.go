// Package service defines the peer abstraction shared by the relay's
// websocket services, and the per-peer session state those services attach
// to a connection.
package service

import (
	"net/netip"
	"net/url"

	"github.com/google/uuid"

	"github.com/Xenomega/EchoRelay-sub000/internal/game"
	"github.com/Xenomega/EchoRelay-sub000/internal/messages"
)

// Peer is a connected network endpoint a service exchanges packets with.
// Implementations must make Send safe for concurrent use; session data is
// owned by the service the peer connected to.
type Peer interface {
	// ID identifies the peer for logging, service name plus remote endpoint.
	ID() string
	// Addr returns the peer's remote address.
	Addr() netip.Addr
	// Port returns the peer's remote port.
	Port() uint16
	// Query returns the query parameters of the connection request URI.
	Query() url.Values
	// Send encodes the given messages into one packet and transmits it.
	Send(msgs ...messages.Message) error
	// SessionData returns the service-owned state bound to this peer, or nil.
	SessionData() any
	// SetSessionData binds service-owned state to this peer.
	SetSessionData(data any)
	// ClearSessionData removes any bound session state.
	ClearSessionData()
	// Close tears down the underlying connection.
	Close() error
}

// PacketPeer is a Peer whose inbound frames can be consumed as decoded
// packets by a service read loop.
type PacketPeer interface {
	Peer
	// ReadPacket blocks until the next packet arrives.
	ReadPacket() (messages.Packet, error)
}

// MatchingSession carries a matching peer's pending lobby criteria while the
// relay places it on a game server.
type MatchingSession struct {
	// UserID is the platform id of the matching user.
	UserID game.PlatformID
	// LobbyID is the specific lobby requested, if joining directly.
	LobbyID *uuid.UUID
	// Channel is the matchmaking partition requested, if any.
	Channel *uuid.UUID
	// GameTypeSymbol is the requested gametype, if any.
	GameTypeSymbol *int64
	// LevelSymbol is the requested level, if any.
	LevelSymbol *int64
	// NewSessionLobbyType is the lobby type used if a new session starts.
	NewSessionLobbyType game.LobbyType
	// TeamIndex is the team the user asked to join.
	TeamIndex game.TeamIndex
	// Settings is the session settings document to apply to a new session.
	Settings messages.SessionSettings

	// MatchedServerID is set once a game server accepted the session.
	MatchedServerID *uint64
	// MatchedSessionID is the session the user was placed in.
	MatchedSessionID *uuid.UUID
}

// SearchLobbyTypes returns the lobby types a matching session may be placed
// into. Private requests may only claim unassigned servers; public requests
// may also join existing public lobbies.
func (m *MatchingSession) SearchLobbyTypes() []game.LobbyType {
	if m.NewSessionLobbyType == game.LobbyPrivate {
		return []game.LobbyType{game.LobbyUnassigned}
	}
	return []game.LobbyType{game.LobbyUnassigned, game.LobbyPublic}
}
