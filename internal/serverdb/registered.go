package serverdb

import (
	"context"
	"fmt"
	"net/netip"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Xenomega/EchoRelay-sub000/internal/events"
	"github.com/Xenomega/EchoRelay-sub000/internal/game"
	"github.com/Xenomega/EchoRelay-sub000/internal/messages"
	"github.com/Xenomega/EchoRelay-sub000/internal/service"
)

// DefaultAppID is the application id applied to sessions whose settings do
// not carry one.
const DefaultAppID = "1369078409873402"

// playerSlot is one pending or accepted player session in a lobby.
type playerSlot struct {
	peer service.Peer
	team game.TeamIndex
}

// PlayerInfo pairs a player session id with its associated peer, which may
// be nil if the peer has gone away.
type PlayerInfo struct {
	PlayerSession uuid.UUID
	Peer          service.Peer
}

// SessionState is a coherent snapshot of a game server's session fields.
type SessionState struct {
	ID             *uuid.UUID
	LobbyType      game.LobbyType
	GameTypeSymbol *int64
	LevelSymbol    *int64
	Channel        uuid.UUID
	Locked         bool
	PlayerCount    int
	Limits         PlayerLimits
}

// GameServer is a registered game server and its session state machine.
// Identity fields are fixed at registration; session state mutates under a
// per-instance lock with bounded acquisition, so stalled operations surface
// an error instead of retrying forever. Snapshot reads never wait on
// in-flight operations.
type GameServer struct {
	registry *Registry
	peer     service.Peer
	policy   *LimitsPolicy
	bus      *events.EventBus
	logger   zerolog.Logger

	registration messages.RegistrationRequest
	externalAddr netip.Addr

	// op serializes mutating operations.
	op chan struct{}

	mu        sync.RWMutex
	sessionID *uuid.UUID
	lobbyType game.LobbyType
	gameType  *int64
	level     *int64
	channel   uuid.UUID
	locked    bool
	limits    PlayerLimits
	players   map[uuid.UUID]playerSlot
}

// NewGameServer builds the state machine for a freshly registered game
// server. publicAddr substitutes for the peer's address when the peer
// connected from a private network (NAT'd deployments).
func NewGameServer(registry *Registry, peer service.Peer, registration messages.RegistrationRequest, publicAddr netip.Addr, policy *LimitsPolicy, bus *events.EventBus) *GameServer {
	externalAddr := peer.Addr()
	if externalAddr.IsPrivate() && publicAddr.IsValid() {
		externalAddr = publicAddr
	}
	return &GameServer{
		registry:     registry,
		peer:         peer,
		policy:       policy,
		bus:          bus,
		registration: registration,
		externalAddr: externalAddr,
		op:           make(chan struct{}, 1),
		lobbyType:    game.LobbyUnassigned,
		limits:       DefaultPlayerLimits,
		players:      make(map[uuid.UUID]playerSlot),
		logger: log.With().
			Str("component", "gameserver").
			Uint64("server_id", registration.ServerID).
			Logger(),
	}
}

// acquire takes the operation lock, giving up when ctx expires.
func (s *GameServer) acquire(ctx context.Context) error {
	select {
	case s.op <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("game server %d: acquire operation lock: %w", s.ServerID(), ctx.Err())
	}
}

func (s *GameServer) release() { <-s.op }

// Identity accessors. These are immutable after registration.

func (s *GameServer) ServerID() uint64            { return s.registration.ServerID }
func (s *GameServer) InternalAddress() netip.Addr { return s.registration.InternalAddress }
func (s *GameServer) ExternalAddress() netip.Addr { return s.externalAddr }
func (s *GameServer) Port() uint16                { return s.registration.Port }
func (s *GameServer) RegionSymbol() game.Symbol   { return s.registration.RegionSymbol }
func (s *GameServer) VersionLock() int64          { return s.registration.VersionLock }

// Peer returns the connection that registered this game server.
func (s *GameServer) Peer() service.Peer { return s.peer }

// PeerPort returns the remote port of the registering connection.
func (s *GameServer) PeerPort() uint16 { return s.peer.Port() }

// SessionID returns the current session id, or nil when idle.
func (s *GameServer) SessionID() *uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID
}

// SessionStarted reports whether a session is active.
func (s *GameServer) SessionStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID != nil
}

// PlayerCount returns the number of pending and accepted player sessions.
func (s *GameServer) PlayerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// Locked reports whether the session refuses new players.
func (s *GameServer) Locked() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locked
}

// SessionState returns a coherent snapshot of the session fields.
func (s *GameServer) SessionState() SessionState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionState{
		ID:             s.sessionID,
		LobbyType:      s.lobbyType,
		GameTypeSymbol: s.gameType,
		LevelSymbol:    s.level,
		Channel:        s.channel,
		Locked:         s.locked,
		PlayerCount:    len(s.players),
		Limits:         s.limits,
	}
}

// CheckTeamAvailability reports whether a player requesting the given team
// could currently be admitted. An idle server admits any team.
func (s *GameServer) CheckTeamAvailability(requested game.TeamIndex) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sessionID == nil {
		return true
	}
	current := make([]game.TeamIndex, 0, len(s.players))
	for _, slot := range s.players {
		current = append(current, slot.team)
	}
	return s.limits.CheckTeamAvailability(current, requested)
}

// StartSession directs the game server to begin a new session with the
// given parameters, replacing any prior session state.
func (s *GameServer) StartSession(ctx context.Context, lobbyType game.LobbyType, channel uuid.UUID, gameType, level *int64, settings *messages.SessionSettings) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	err := s.startSessionLocked(lobbyType, channel, gameType, level, settings)
	s.release()
	if err != nil {
		return err
	}
	s.notifySession(ctx, events.EventSessionStarted)
	return nil
}

// startSessionLocked performs the session transition. Callers hold the
// operation lock.
func (s *GameServer) startSessionLocked(lobbyType game.LobbyType, channel uuid.UUID, gameType, level *int64, settings *messages.SessionSettings) error {
	newID := uuid.New()

	s.mu.Lock()
	oldID := s.sessionID
	s.lobbyType = lobbyType
	s.channel = channel
	s.gameType = gameType
	s.level = level
	s.limits = DefaultPlayerLimits
	s.locked = false
	s.players = make(map[uuid.UUID]playerSlot)
	s.mu.Unlock()

	// Merge session settings over the session parameters; explicit settings
	// win, and the default application id fills any gap.
	appID := DefaultAppID
	merged := messages.NewSessionSettings(&appID, gameType, level)
	if settings != nil {
		merged = merged.Merge(*settings)
	}

	limits := DefaultPlayerLimits
	if merged.GameType != nil {
		limits = s.policy.ForGameType(game.Symbol(*merged.GameType))
	}

	err := s.peer.Send(&messages.StartSession{
		SessionID:   newID,
		Channel:     channel,
		PlayerLimit: byte(limits.TotalPlayerLimit),
		LobbyType:   lobbyType,
		Settings:    merged,
	})
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	s.mu.Lock()
	s.sessionID = &newID
	s.limits = limits
	s.gameType = merged.GameType
	s.level = merged.Level
	s.mu.Unlock()

	if s.registry != nil {
		s.registry.reindexSession(s, oldID, &newID)
	}

	s.logger.Info().
		Str("session_id", newID.String()).
		Str("lobby_type", lobbyType.String()).
		Int("player_limit", limits.TotalPlayerLimit).
		Msg("session started")
	return nil
}

// ProcessLobbySessionRequest places a matching peer on this game server:
// starts a session if none is active, verifies team availability, and sends
// both sides the matched-session success message with fresh per-connection
// encoder parameters.
func (s *GameServer) ProcessLobbySessionRequest(ctx context.Context, matchingPeer service.Peer) error {
	matching, ok := matchingPeer.SessionData().(*service.MatchingSession)
	if !ok || matching == nil {
		return nil
	}
	serverID := s.ServerID()
	matching.MatchedServerID = &serverID

	if err := s.acquire(ctx); err != nil {
		return err
	}
	newSessionStarted, err := s.processLobbySessionLocked(matchingPeer, matching)
	s.release()
	if err != nil {
		return err
	}
	if newSessionStarted {
		s.notifySession(ctx, events.EventSessionStarted)
	}
	return nil
}

func (s *GameServer) processLobbySessionLocked(matchingPeer service.Peer, matching *service.MatchingSession) (bool, error) {
	newSessionStarted := false
	if !s.sessionActive() {
		channel := uuid.Nil
		if matching.Channel != nil {
			channel = *matching.Channel
		}
		gameType := matching.GameTypeSymbol
		if gameType == nil {
			gameType = matching.Settings.GameType
		}
		level := matching.LevelSymbol
		if level == nil {
			level = matching.Settings.Level
		}
		if err := s.startSessionLocked(matching.NewSessionLobbyType, channel, gameType, level, &matching.Settings); err != nil {
			return false, err
		}
		newSessionStarted = true
	}

	if !s.CheckTeamAvailability(matching.TeamIndex) {
		s.logger.Debug().
			Str("team", matching.TeamIndex.String()).
			Msg("rejecting lobby session request, team is full")
		return newSessionStarted, sendLobbySessionFailure(matchingPeer, matching, messages.LobbyFailureServerIsFull)
	}

	s.mu.RLock()
	sessionID := s.sessionID
	gameTypeSymbol := int64(-1)
	if s.gameType != nil {
		gameTypeSymbol = *s.gameType
	}
	s.mu.RUnlock()
	matching.MatchedSessionID = sessionID

	serverParams, err := game.NewEncoderParameters(game.DefaultServerEncoderSettings())
	if err != nil {
		return newSessionStarted, err
	}
	clientParams, err := game.NewEncoderParameters(game.DefaultClientEncoderSettings())
	if err != nil {
		return newSessionStarted, err
	}

	success := &messages.LobbySessionSuccess{
		GameTypeSymbol:     game.Symbol(gameTypeSymbol),
		MatchingSession:    *sessionID,
		Endpoint:           messages.Endpoint{InternalAddress: s.InternalAddress(), ExternalAddress: s.ExternalAddress(), Port: s.Port()},
		TeamIndex:          int16(matching.TeamIndex),
		ServerEncoderFlags: serverParams.Settings.Flags(),
		ClientEncoderFlags: clientParams.Settings.Flags(),
		ServerSequenceID:   serverParams.SequenceID,
		ServerMACKey:       serverParams.MACKey,
		ServerEncKey:       serverParams.EncKey,
		ServerRandomKey:    serverParams.RandomKey,
		ClientSequenceID:   clientParams.SequenceID,
		ClientMACKey:       clientParams.MACKey,
		ClientEncKey:       clientParams.EncKey,
		ClientRandomKey:    clientParams.RandomKey,
	}

	// The game server learns to expect a connection with these encoder
	// parameters; the client learns where to connect.
	if err := s.peer.Send(success); err != nil {
		return newSessionStarted, fmt.Errorf("send session success to game server: %w", err)
	}
	if err := matchingPeer.Send(success); err != nil {
		return newSessionStarted, fmt.Errorf("send session success to matching peer: %w", err)
	}
	return newSessionStarted, nil
}

func sendLobbySessionFailure(matchingPeer service.Peer, matching *service.MatchingSession, code messages.LobbySessionFailureCode) error {
	channel := uuid.Nil
	if matching.Channel != nil {
		channel = *matching.Channel
	}
	return matchingPeer.Send(
		&messages.LobbySessionFailure{Channel: channel, ErrorCode: code},
		&messages.TCPConnectionUnrequireEvent{},
	)
}

// ProcessPlayerSessionRequest issues one fresh player session id for a
// matched peer, rejecting it if the lobby is already at its player limit.
func (s *GameServer) ProcessPlayerSessionRequest(ctx context.Context, matchingPeer service.Peer) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	defer s.release()

	matching, ok := matchingPeer.SessionData().(*service.MatchingSession)
	if !ok || matching == nil || matching.MatchedSessionID == nil {
		return nil
	}

	playerSession := uuid.New()

	s.mu.RLock()
	count := len(s.players)
	limit := s.limits.TotalPlayerLimit
	s.mu.RUnlock()

	if count+1 > limit {
		s.logger.Debug().Int("player_count", count).Msg("rejecting player session, lobby is full")
		return s.peer.Send(&messages.PlayersRejected{
			ErrorCode:      messages.PlayerSessionErrorLobbyFull,
			PlayerSessions: []uuid.UUID{playerSession},
		})
	}

	err := matchingPeer.Send(
		&messages.LobbyPlayerSessionsSuccessUnk1{MatchingSession: *matching.MatchedSessionID, PlayerSessions: []uuid.UUID{playerSession}},
		&messages.LobbyPlayerSessionsSuccessV2{Unk0: 0xFF, UserID: matching.UserID, PlayerSession: playerSession},
		&messages.LobbyPlayerSessionsSuccessV3{Unk0: 0xFF, UserID: matching.UserID, PlayerSession: playerSession, TeamIndex: matching.TeamIndex},
	)
	if err != nil {
		return fmt.Errorf("send player session to matching peer: %w", err)
	}

	// Record the pending player session; the game server confirms it later
	// via AcceptPlayers.
	s.mu.Lock()
	s.players[playerSession] = playerSlot{peer: matchingPeer, team: matching.TeamIndex}
	s.mu.Unlock()
	return nil
}

// SetLockedStatus updates the session lock flag, notifying observers only
// when the value changes.
func (s *GameServer) SetLockedStatus(ctx context.Context, locked bool) {
	s.mu.Lock()
	changed := s.locked != locked
	s.locked = locked
	sessionID := s.sessionID
	s.mu.Unlock()

	if !changed {
		return
	}
	s.logger.Debug().Bool("locked", locked).Msg("session lock changed")
	if s.bus != nil && sessionID != nil {
		s.bus.Emit(ctx, events.Event{
			Type:   events.EventSessionLockChanged,
			Source: "gameserver",
			Payload: events.SessionLockPayload{
				ServerID:  s.ServerID(),
				SessionID: *sessionID,
				Locked:    locked,
			},
		})
	}
}

// PlayerPeer resolves a player session id to its associated peer.
func (s *GameServer) PlayerPeer(playerSession uuid.UUID) (service.Peer, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	slot, ok := s.players[playerSession]
	return slot.peer, ok
}

// Players returns a snapshot of all pending and accepted player sessions.
func (s *GameServer) Players() []PlayerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	players := make([]PlayerInfo, 0, len(s.players))
	for id, slot := range s.players {
		players = append(players, PlayerInfo{PlayerSession: id, Peer: slot.peer})
	}
	return players
}

// AddPlayers instructs the game server to accept the given pending player
// sessions. A server with no active session ignores the request.
func (s *GameServer) AddPlayers(ctx context.Context, playerSessions []uuid.UUID) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}
	added, err := s.addPlayersLocked(playerSessions)
	s.release()
	if err != nil {
		return err
	}
	if len(added) > 0 {
		s.emitPlayersAdded(ctx, added)
	}
	return nil
}

func (s *GameServer) addPlayersLocked(playerSessions []uuid.UUID) ([]PlayerInfo, error) {
	if !s.sessionActive() {
		return nil, nil
	}
	if err := s.peer.Send(&messages.PlayersAccepted{PlayerSessions: playerSessions}); err != nil {
		return nil, fmt.Errorf("send players accepted: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	added := make([]PlayerInfo, 0, len(playerSessions))
	for _, playerSession := range playerSessions {
		info := PlayerInfo{PlayerSession: playerSession}
		if slot, ok := s.players[playerSession]; ok {
			info.Peer = slot.peer
		}
		added = append(added, info)
	}
	return added, nil
}

// KickPlayer tells the game server to reject and disconnect one player
// session. Local state is untouched; removal arrives back through the
// normal remove-player path.
func (s *GameServer) KickPlayer(ctx context.Context, playerSession uuid.UUID) error {
	err := s.peer.Send(&messages.PlayersRejected{
		ErrorCode:      messages.PlayerSessionErrorKickedFromServer,
		PlayerSessions: []uuid.UUID{playerSession},
	})
	if err != nil {
		return fmt.Errorf("send kick: %w", err)
	}
	if s.bus != nil {
		s.bus.Emit(ctx, events.Event{
			Type:    events.EventPlayerKicked,
			Source:  "gameserver",
			Payload: events.PlayerKickedPayload{ServerID: s.ServerID(), PlayerSession: playerSession},
		})
	}
	return nil
}

// RemovePlayer drops one player session. Draining the lobby to zero players
// locks the session; it is not ended, the server stays reserved until an
// explicit end-of-session message.
func (s *GameServer) RemovePlayer(ctx context.Context, playerSession uuid.UUID) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.players, playerSession)
	if s.sessionID != nil && len(s.players) == 0 {
		s.locked = true
	}
	sessionID := s.sessionID
	count := len(s.players)
	s.mu.Unlock()
	s.release()

	if s.bus != nil && sessionID != nil {
		s.bus.Emit(ctx, events.Event{
			Type:   events.EventPlayerRemoved,
			Source: "gameserver",
			Payload: events.PlayerRemovedPayload{
				ServerID:      s.ServerID(),
				SessionID:     *sessionID,
				PlayerSession: playerSession,
				PlayerCount:   count,
			},
		})
	}
	return nil
}

// EndSession resets all session state, returning the server to idle.
func (s *GameServer) EndSession(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	oldID := s.sessionID
	s.sessionID = nil
	s.lobbyType = game.LobbyUnassigned
	s.channel = uuid.Nil
	s.gameType = nil
	s.level = nil
	s.locked = false
	s.limits = DefaultPlayerLimits
	s.players = make(map[uuid.UUID]playerSlot)
	s.mu.Unlock()

	if s.registry != nil && oldID != nil {
		s.registry.reindexSession(s, oldID, nil)
	}
	s.release()

	s.logger.Info().Msg("session ended")
	if s.bus != nil && oldID != nil {
		s.bus.Emit(ctx, events.Event{
			Type:   events.EventSessionEnded,
			Source: "gameserver",
			Payload: events.SessionPayload{
				ServerID:  s.ServerID(),
				SessionID: *oldID,
			},
		})
	}
	return nil
}

func (s *GameServer) sessionActive() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionID != nil
}

func (s *GameServer) notifySession(ctx context.Context, eventType events.EventType) {
	if s.bus == nil {
		return
	}
	state := s.SessionState()
	if state.ID == nil {
		return
	}
	s.bus.Emit(ctx, events.Event{
		Type:   eventType,
		Source: "gameserver",
		Payload: events.SessionPayload{
			ServerID:    s.ServerID(),
			SessionID:   *state.ID,
			LobbyType:   state.LobbyType.String(),
			GameType:    state.GameTypeSymbol,
			Level:       state.LevelSymbol,
			Channel:     state.Channel,
			PlayerLimit: byte(state.Limits.TotalPlayerLimit),
		},
	})
}

func (s *GameServer) emitPlayersAdded(ctx context.Context, added []PlayerInfo) {
	if s.bus == nil {
		return
	}
	state := s.SessionState()
	if state.ID == nil {
		return
	}
	playerSessions := make([]uuid.UUID, len(added))
	for i, info := range added {
		playerSessions[i] = info.PlayerSession
	}
	s.bus.Emit(ctx, events.Event{
		Type:   events.EventPlayersAdded,
		Source: "gameserver",
		Payload: events.PlayersAddedPayload{
			ServerID:       s.ServerID(),
			SessionID:      *state.ID,
			PlayerSessions: playerSessions,
		},
	})
}
