package messages

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/google/uuid"

	"github.com/Xenomega/EchoRelay-sub000/internal/codec"
	"github.com/Xenomega/EchoRelay-sub000/internal/game"
)

func init() {
	Register(func() Message { return &RegistrationRequest{} })
	Register(func() Message { return &RegistrationSuccess{} })
	Register(func() Message { return &RegistrationFailure{} })
	Register(func() Message { return &StartSession{} })
	Register(func() Message { return &SessionStarted{} })
	Register(func() Message { return &EndSession{} })
	Register(func() Message { return &PlayerSessionsLocked{} })
	Register(func() Message { return &PlayerSessionsUnlocked{} })
	Register(func() Message { return &AcceptPlayers{} })
	Register(func() Message { return &PlayersAccepted{} })
	Register(func() Message { return &PlayersRejected{} })
	Register(func() Message { return &RemovePlayer{} })
	Register(func() Message { return &ChallengeRequest{} })
	Register(func() Message { return &ChallengeResponse{} })
}

// RegistrationRequest is sent by a game server to request registration with
// the relay so clients can match with it.
type RegistrationRequest struct {
	// ServerID uniquely identifies the game server process.
	ServerID uint64
	// InternalAddress is the private address the game server listens on.
	InternalAddress netip.Addr
	// Port is the UDP port the game server broadcasts on.
	Port uint16
	// RegionSymbol identifies the region the server serves.
	RegionSymbol game.Symbol
	// VersionLock pins the server build, preventing mismatched matches.
	VersionLock int64
}

func (m *RegistrationRequest) Symbol() game.Symbol { return 0x7777777777777777 }

func (m *RegistrationRequest) Stream(io *codec.Stream) {
	io.StreamUint64(&m.ServerID)
	io.StreamIPv4(&m.InternalAddress, binary.BigEndian)
	io.StreamUint16(&m.Port)
	var pad uint16
	io.StreamUint16(&pad)
	io.StreamInt64((*int64)(&m.RegionSymbol))
	io.StreamInt64(&m.VersionLock)
}

func (m *RegistrationRequest) String() string {
	return fmt.Sprintf("RegistrationRequest(server_id=%d, internal_ip=%s, port=%d, region=%v, version_lock=%d)",
		m.ServerID, m.InternalAddress, m.Port, m.RegionSymbol, m.VersionLock)
}

// RegistrationSuccess is sent by the relay to acknowledge a successful game
// server registration, echoing the external address it observed.
type RegistrationSuccess struct {
	ServerID        uint64
	ExternalAddress netip.Addr
	Unk0            uint64
}

func (m *RegistrationSuccess) Symbol() game.Symbol { return -5369924845641990433 }

func (m *RegistrationSuccess) Stream(io *codec.Stream) {
	io.StreamUint64(&m.ServerID)
	io.StreamIPv4(&m.ExternalAddress, io.Order())
	io.StreamUint64(&m.Unk0)
}

func (m *RegistrationSuccess) String() string {
	return fmt.Sprintf("RegistrationSuccess(server_id=%d, external_ip=%s)", m.ServerID, m.ExternalAddress)
}

// RegistrationFailureCode indicates why a game server registration failed.
type RegistrationFailureCode byte

const (
	RegistrationFailureInvalidRequest      RegistrationFailureCode = 0
	RegistrationFailureTimeout             RegistrationFailureCode = 1
	RegistrationFailureCryptographyError   RegistrationFailureCode = 2
	RegistrationFailureDatabaseError       RegistrationFailureCode = 3
	RegistrationFailureAccountDoesNotExist RegistrationFailureCode = 4
	RegistrationFailureConnectionFailed    RegistrationFailureCode = 5
	RegistrationFailureConnectionLost      RegistrationFailureCode = 6
	RegistrationFailureProviderError       RegistrationFailureCode = 7
	RegistrationFailureRestricted          RegistrationFailureCode = 8
	RegistrationFailureUnknown             RegistrationFailureCode = 9
	RegistrationFailureFailure             RegistrationFailureCode = 10
	RegistrationFailureSuccess             RegistrationFailureCode = 11
)

// RegistrationFailure is sent by the relay to reject a game server
// registration request.
type RegistrationFailure struct {
	Result RegistrationFailureCode
}

func (m *RegistrationFailure) Symbol() game.Symbol { return -5373034290044534839 }

func (m *RegistrationFailure) Stream(io *codec.Stream) {
	io.StreamByte((*byte)(&m.Result))
}

func (m *RegistrationFailure) String() string {
	return fmt.Sprintf("RegistrationFailure(result=%d)", m.Result)
}

// EntrantDescriptor describes an initial session entrant, such as an
// offline/local player or an AI bot.
type EntrantDescriptor struct {
	Unk0     uuid.UUID
	PlayerID game.PlatformID
	Flags    uint64
}

// RandomBotEntrant creates an entrant descriptor for a randomly identified
// AI bot, with the flag bits observed for bots in public AI matches.
func RandomBotEntrant() EntrantDescriptor {
	return EntrantDescriptor{
		Unk0:     uuid.New(),
		PlayerID: game.PlatformID{Platform: game.PlatformBot, AccountID: randomUint64()},
		Flags:    0x0044BB8000,
	}
}

func (d *EntrantDescriptor) Stream(io *codec.Stream) {
	io.StreamGUID(&d.Unk0)
	d.PlayerID.Stream(io)
	io.StreamUint64(&d.Flags)
}

// StartSession instructs a game server to begin hosting a new session with
// the given lobby parameters and JSON session settings.
type StartSession struct {
	// SessionID identifies the session the game server should start.
	SessionID uuid.UUID
	// Channel is the matchmaking partition the session belongs to.
	Channel uuid.UUID
	// PlayerLimit is the maximum number of players allowed in the lobby.
	PlayerLimit byte
	// LobbyType describes the session's visibility.
	LobbyType game.LobbyType
	// Settings carries the session's JSON settings document.
	Settings SessionSettings
	// Entrants lists initial entrants, such as bot player ids.
	Entrants []EntrantDescriptor
}

func (m *StartSession) Symbol() game.Symbol { return 0x7777777777770000 }

func (m *StartSession) Stream(io *codec.Stream) {
	entrantCount := byte(len(m.Entrants))
	var pad byte
	io.StreamGUID(&m.SessionID)
	io.StreamGUID(&m.Channel)
	io.StreamByte(&m.PlayerLimit)
	io.StreamByte(&entrantCount)
	io.StreamByte((*byte)(&m.LobbyType))
	io.StreamByte(&pad)
	io.StreamJSON(&m.Settings, true, codec.CompressionNone)
	if io.Mode() == codec.ModeRead {
		m.Entrants = make([]EntrantDescriptor, entrantCount)
	}
	for i := range m.Entrants {
		m.Entrants[i].Stream(io)
	}
}

func (m *StartSession) String() string {
	return fmt.Sprintf("StartSession(session_id=%s, player_limit=%d, lobby_type=%v, settings=%v)",
		m.SessionID, m.PlayerLimit, m.LobbyType, &m.Settings)
}

// SessionStarted is sent by a game server to confirm its session started.
type SessionStarted struct{}

func (m *SessionStarted) Symbol() game.Symbol     { return 0x7777777777770100 }
func (m *SessionStarted) Stream(io *codec.Stream) {}
func (m *SessionStarted) String() string          { return "SessionStarted()" }

// EndSession is sent by a game server to indicate its session has ended.
type EndSession struct {
	Unused byte
}

func (m *EndSession) Symbol() game.Symbol { return 0x7777777777770200 }

func (m *EndSession) Stream(io *codec.Stream) {
	io.StreamByte(&m.Unused)
}

func (m *EndSession) String() string { return "EndSession()" }

// PlayerSessionsLocked is sent by a game server to indicate its session no
// longer admits new players.
type PlayerSessionsLocked struct {
	Unused byte
}

func (m *PlayerSessionsLocked) Symbol() game.Symbol { return 0x7777777777770300 }

func (m *PlayerSessionsLocked) Stream(io *codec.Stream) {
	io.StreamByte(&m.Unused)
}

func (m *PlayerSessionsLocked) String() string { return "PlayerSessionsLocked()" }

// PlayerSessionsUnlocked is sent by a game server to indicate its session
// admits new players again.
type PlayerSessionsUnlocked struct {
	Unused byte
}

func (m *PlayerSessionsUnlocked) Symbol() game.Symbol { return 0x7777777777770400 }

func (m *PlayerSessionsUnlocked) Stream(io *codec.Stream) {
	io.StreamByte(&m.Unused)
}

func (m *PlayerSessionsUnlocked) String() string { return "PlayerSessionsUnlocked()" }

// AcceptPlayers instructs a game server to accept the given pending player
// sessions into its lobby.
type AcceptPlayers struct {
	PlayerSessions []uuid.UUID
}

func (m *AcceptPlayers) Symbol() game.Symbol { return 0x7777777777770500 }

func (m *AcceptPlayers) Stream(io *codec.Stream) {
	streamGUIDsToEnd(io, &m.PlayerSessions)
}

func (m *AcceptPlayers) String() string {
	return fmt.Sprintf("AcceptPlayers(player_sessions=%v)", m.PlayerSessions)
}

// PlayersAccepted is sent by a game server to confirm player sessions were
// accepted into its lobby.
type PlayersAccepted struct {
	Unk0           byte
	PlayerSessions []uuid.UUID
}

func (m *PlayersAccepted) Symbol() game.Symbol { return 0x7777777777770600 }

func (m *PlayersAccepted) Stream(io *codec.Stream) {
	io.StreamByte(&m.Unk0)
	streamGUIDsToEnd(io, &m.PlayerSessions)
}

func (m *PlayersAccepted) String() string {
	return fmt.Sprintf("PlayersAccepted(player_sessions=%v)", m.PlayerSessions)
}

// PlayerSessionError indicates why player sessions were rejected from a
// game server lobby.
type PlayerSessionError byte

const (
	PlayerSessionErrorInternal         PlayerSessionError = 0
	PlayerSessionErrorBadRequest       PlayerSessionError = 1
	PlayerSessionErrorTimeout          PlayerSessionError = 2
	PlayerSessionErrorDuplicate        PlayerSessionError = 3
	PlayerSessionErrorLobbyLocked      PlayerSessionError = 4
	PlayerSessionErrorLobbyFull        PlayerSessionError = 5
	PlayerSessionErrorLobbyEnding      PlayerSessionError = 6
	PlayerSessionErrorKickedFromServer PlayerSessionError = 7
	PlayerSessionErrorDisconnected     PlayerSessionError = 8
	PlayerSessionErrorInactive         PlayerSessionError = 9
)

// PlayersRejected reports player sessions rejected from a game server lobby,
// in either direction.
type PlayersRejected struct {
	ErrorCode      PlayerSessionError
	PlayerSessions []uuid.UUID
}

func (m *PlayersRejected) Symbol() game.Symbol { return 0x7777777777770700 }

func (m *PlayersRejected) Stream(io *codec.Stream) {
	io.StreamByte((*byte)(&m.ErrorCode))
	streamGUIDsToEnd(io, &m.PlayerSessions)
}

func (m *PlayersRejected) String() string {
	return fmt.Sprintf("PlayersRejected(error_code=%d, player_sessions=%v)", m.ErrorCode, m.PlayerSessions)
}

// RemovePlayer is sent by a game server to report a player session left its
// lobby.
type RemovePlayer struct {
	PlayerSession uuid.UUID
}

func (m *RemovePlayer) Symbol() game.Symbol { return 0x7777777777770800 }

func (m *RemovePlayer) Stream(io *codec.Stream) {
	io.StreamGUID(&m.PlayerSession)
}

func (m *RemovePlayer) String() string {
	return fmt.Sprintf("RemovePlayer(player_session=%s)", m.PlayerSession)
}

// ChallengeRequest carries an opaque challenge payload from the relay to a
// game server.
type ChallengeRequest struct {
	InputPayload []byte
}

func (m *ChallengeRequest) Symbol() game.Symbol { return 0x7777777777770900 }

func (m *ChallengeRequest) Stream(io *codec.Stream) {
	io.StreamRemaining(&m.InputPayload)
}

func (m *ChallengeRequest) String() string {
	return fmt.Sprintf("ChallengeRequest(input_payload=%x)", m.InputPayload)
}

// ChallengeResponse carries a game server's answer to a ChallengeRequest.
type ChallengeResponse struct {
	InputPayload []byte
}

func (m *ChallengeResponse) Symbol() game.Symbol { return 0x7777777777770A00 }

func (m *ChallengeResponse) Stream(io *codec.Stream) {
	io.StreamRemaining(&m.InputPayload)
}

func (m *ChallengeResponse) String() string {
	return fmt.Sprintf("ChallengeResponse(input_payload=%x)", m.InputPayload)
}

func randomUint64() uint64 {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return binary.LittleEndian.Uint64(b[:])
}

// streamGUIDsToEnd streams a GUID list that occupies the remainder of the
// message payload without an explicit count.
func streamGUIDsToEnd(io *codec.Stream, sessions *[]uuid.UUID) {
	if io.Mode() == codec.ModeRead {
		*sessions = make([]uuid.UUID, io.Remaining()/16)
	}
	for i := range *sessions {
		io.StreamGUID(&(*sessions)[i])
	}
}
