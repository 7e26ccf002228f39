package serverdb

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Xenomega/EchoRelay-sub000/internal/events"
	"github.com/Xenomega/EchoRelay-sub000/internal/game"
)

// AddrPair identifies a game server by its internal and external addresses.
type AddrPair struct {
	Internal [4]byte
	External [4]byte
}

// Registry tracks every registered game server under two independent
// concurrent indexes: by server id and by active session id. The session
// index trails session transitions briefly; readers treat it as eventually
// consistent.
type Registry struct {
	byServerID  sync.Map // uint64 -> *GameServer
	bySessionID sync.Map // uuid.UUID -> *GameServer

	bus    *events.EventBus
	logger zerolog.Logger
}

// NewRegistry creates an empty registry publishing lifecycle events on bus.
// A nil bus disables event publication.
func NewRegistry(bus *events.EventBus) *Registry {
	return &Registry{
		bus:    bus,
		logger: log.With().Str("component", "registry").Logger(),
	}
}

// Add registers a game server under its server id, replacing any previous
// entry for that id.
func (r *Registry) Add(ctx context.Context, server *GameServer) {
	r.byServerID.Store(server.ServerID(), server)
	r.logger.Info().
		Uint64("server_id", server.ServerID()).
		Str("external_ip", server.ExternalAddress().String()).
		Uint16("port", server.Port()).
		Msg("game server registered")
	r.emit(ctx, events.EventServerRegistered, events.ServerRegisteredPayload{
		ServerID:        server.ServerID(),
		InternalAddress: server.InternalAddress(),
		ExternalAddress: server.ExternalAddress(),
		Port:            server.Port(),
		RegionSymbol:    int64(server.RegionSymbol()),
		VersionLock:     server.VersionLock(),
	})
}

// Remove drops a game server and any session index entry pointing at it.
func (r *Registry) Remove(ctx context.Context, serverID uint64) {
	value, loaded := r.byServerID.LoadAndDelete(serverID)
	if !loaded {
		return
	}
	server := value.(*GameServer)
	if sessionID := server.SessionID(); sessionID != nil {
		r.bySessionID.CompareAndDelete(*sessionID, value)
	}
	r.logger.Info().Uint64("server_id", serverID).Msg("game server unregistered")
	r.emit(ctx, events.EventServerUnregistered, events.ServerUnregisteredPayload{ServerID: serverID})
}

// GetByID returns the game server registered under the given server id.
func (r *Registry) GetByID(serverID uint64) (*GameServer, bool) {
	value, ok := r.byServerID.Load(serverID)
	if !ok {
		return nil, false
	}
	return value.(*GameServer), true
}

// GetBySessionID returns the game server hosting the given session.
func (r *Registry) GetBySessionID(sessionID uuid.UUID) (*GameServer, bool) {
	value, ok := r.bySessionID.Load(sessionID)
	if !ok {
		return nil, false
	}
	return value.(*GameServer), true
}

// Count returns the number of registered game servers.
func (r *Registry) Count() int {
	count := 0
	r.byServerID.Range(func(_, _ any) bool {
		count++
		return true
	})
	return count
}

// All returns a snapshot of every registered game server.
func (r *Registry) All() []*GameServer {
	var servers []*GameServer
	r.byServerID.Range(func(_, value any) bool {
		servers = append(servers, value.(*GameServer))
		return true
	})
	return servers
}

// reindexSession moves a server's session index entry from oldID to newID.
// Either may be nil for sessions that are starting or ending.
func (r *Registry) reindexSession(server *GameServer, oldID, newID *uuid.UUID) {
	if oldID != nil {
		r.bySessionID.CompareAndDelete(*oldID, server)
	}
	if newID != nil {
		r.bySessionID.Store(*newID, server)
	}
}

func (r *Registry) emit(ctx context.Context, eventType events.EventType, payload any) {
	if r.bus == nil {
		return
	}
	r.bus.Emit(ctx, events.Event{Type: eventType, Source: "registry", Payload: payload})
}

// Filter selects game servers matching every set criterion. Nil pointer
// fields and empty slices match everything.
type Filter struct {
	// Max stops the search after this many matches; zero means unbounded.
	Max int
	// ServerID matches a specific server id.
	ServerID *uint64
	// Addresses matches servers whose internal/external address pair is in
	// the set.
	Addresses map[AddrPair]struct{}
	// Port matches the peer's remote port.
	Port *uint16
	// GameType matches the session gametype, for started sessions.
	GameType *int64
	// Level matches the session level, for started sessions.
	Level *int64
	// Channel matches the session channel. A zero GUID on either side is a
	// wildcard.
	Channel *uuid.UUID
	// Locked matches the session lock flag.
	Locked *bool
	// LobbyTypes matches any of the given session lobby types.
	LobbyTypes []game.LobbyType
	// RequestedTeam additionally requires team availability for this team
	// when UnfilledOnly is set.
	RequestedTeam *game.TeamIndex
	// UnfilledOnly skips servers whose session is at its total player limit.
	UnfilledOnly bool
}

// NewFilter returns a filter with the default criteria: only servers with
// open player slots.
func NewFilter() Filter {
	return Filter{UnfilledOnly: true}
}

// Filter returns the registered game servers matching the given filter.
// Session-scoped criteria only constrain servers whose session has started.
func (r *Registry) Filter(f Filter) []*GameServer {
	var matched []*GameServer
	r.byServerID.Range(func(_, value any) bool {
		if f.Max > 0 && len(matched) >= f.Max {
			return false
		}
		server := value.(*GameServer)
		if f.ServerID != nil && server.ServerID() != *f.ServerID {
			return true
		}
		if f.Addresses != nil {
			pair := AddrPair{Internal: server.InternalAddress().As4(), External: server.ExternalAddress().As4()}
			if _, ok := f.Addresses[pair]; !ok {
				return true
			}
		}
		if f.Port != nil && server.PeerPort() != *f.Port {
			return true
		}
		if server.SessionStarted() && !f.matchSession(server) {
			return true
		}
		matched = append(matched, server)
		return true
	})
	return matched
}

func (f Filter) matchSession(server *GameServer) bool {
	session := server.SessionState()
	if f.GameType != nil && (session.GameTypeSymbol == nil || *f.GameType != *session.GameTypeSymbol) {
		return false
	}
	if f.Level != nil && (session.LevelSymbol == nil || *f.Level != *session.LevelSymbol) {
		return false
	}
	// A zero channel GUID means the session is not channel-bound, so it is
	// not filtered on.
	if f.Channel != nil && *f.Channel != uuid.Nil && session.Channel != uuid.Nil && *f.Channel != session.Channel {
		return false
	}
	if f.Locked != nil && *f.Locked != session.Locked {
		return false
	}
	if len(f.LobbyTypes) > 0 {
		found := false
		for _, lt := range f.LobbyTypes {
			if lt == session.LobbyType {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.UnfilledOnly {
		if session.PlayerCount >= session.Limits.TotalPlayerLimit {
			return false
		}
		if f.RequestedTeam != nil && !server.CheckTeamAvailability(*f.RequestedTeam) {
			return false
		}
	}
	return true
}
