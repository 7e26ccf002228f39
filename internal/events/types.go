// Package events defines event types and payloads for the relay event system.
package events

import (
	"net/netip"

	"github.com/google/uuid"
)

// EventType represents the type of event emitted through the EventBus.
type EventType string

const (
	// Game server lifecycle events
	EventServerRegistered   EventType = "server_registered"
	EventServerUnregistered EventType = "server_unregistered"

	// Session lifecycle events
	EventSessionStarted     EventType = "session_started"
	EventSessionEnded       EventType = "session_ended"
	EventSessionLockChanged EventType = "session_lock_changed"

	// Player events
	EventPlayersAdded  EventType = "players_added"
	EventPlayerRemoved EventType = "player_removed"
	EventPlayerKicked  EventType = "player_kicked"

	// Notification events
	EventNotifyMQTT EventType = "notify_mqtt"

	// System events
	EventConfigChanged EventType = "config_changed"
	EventShutdown      EventType = "shutdown"
)

// Event represents a single event in the system.
type Event struct {
	Type    EventType
	Source  string
	Payload interface{}
}

// ServerRegisteredPayload describes a game server that completed
// registration.
type ServerRegisteredPayload struct {
	ServerID        uint64     `json:"server_id"`
	InternalAddress netip.Addr `json:"internal_address"`
	ExternalAddress netip.Addr `json:"external_address"`
	Port            uint16     `json:"port"`
	RegionSymbol    int64      `json:"region_symbol"`
	VersionLock     int64      `json:"version_lock"`
}

// ServerUnregisteredPayload describes a game server removed from the
// registry, usually because its peer disconnected.
type ServerUnregisteredPayload struct {
	ServerID uint64 `json:"server_id"`
}

// SessionPayload describes a session lifecycle transition on a game server.
type SessionPayload struct {
	ServerID    uint64    `json:"server_id"`
	SessionID   uuid.UUID `json:"session_id"`
	LobbyType   string    `json:"lobby_type"`
	GameType    *int64    `json:"game_type,omitempty"`
	Level       *int64    `json:"level,omitempty"`
	Channel     uuid.UUID `json:"channel"`
	PlayerLimit byte      `json:"player_limit"`
}

// SessionLockPayload describes a session lock state change.
type SessionLockPayload struct {
	ServerID  uint64    `json:"server_id"`
	SessionID uuid.UUID `json:"session_id"`
	Locked    bool      `json:"locked"`
}

// PlayersAddedPayload lists player sessions accepted into a lobby.
type PlayersAddedPayload struct {
	ServerID       uint64      `json:"server_id"`
	SessionID      uuid.UUID   `json:"session_id"`
	PlayerSessions []uuid.UUID `json:"player_sessions"`
}

// PlayerRemovedPayload describes a player session leaving a lobby.
type PlayerRemovedPayload struct {
	ServerID      uint64    `json:"server_id"`
	SessionID     uuid.UUID `json:"session_id"`
	PlayerSession uuid.UUID `json:"player_session"`
	PlayerCount   int       `json:"player_count"`
}

// PlayerKickedPayload describes a player session the relay told a game
// server to disconnect.
type PlayerKickedPayload struct {
	ServerID      uint64    `json:"server_id"`
	PlayerSession uuid.UUID `json:"player_session"`
}

// ConfigChangedPayload is emitted when configuration changes occur.
type ConfigChangedPayload struct {
	Section string      `json:"section"`
	Key     string      `json:"key"`
	Value   interface{} `json:"value"`
}
