package messages

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"github.com/google/uuid"

	"github.com/Xenomega/EchoRelay-sub000/internal/codec"
	"github.com/Xenomega/EchoRelay-sub000/internal/game"
)

func init() {
	Register(func() Message { return &LobbyPingRequest{} })
	Register(func() Message { return &LobbySessionSuccess{} })
	Register(func() Message { return &LobbySessionFailure{} })
	Register(func() Message { return &LobbyPlayerSessionsSuccessUnk1{} })
	Register(func() Message { return &LobbyPlayerSessionsSuccessV2{} })
	Register(func() Message { return &LobbyPlayerSessionsSuccessV3{} })
}

// Endpoint describes how to reach a game server: its internal and external
// addresses and its broadcast port, all in network byte order on the wire.
type Endpoint struct {
	InternalAddress netip.Addr
	ExternalAddress netip.Addr
	Port            uint16
}

func (e *Endpoint) Stream(io *codec.Stream) {
	io.StreamIPv4(&e.InternalAddress, binary.BigEndian)
	io.StreamIPv4(&e.ExternalAddress, binary.BigEndian)
	io.StreamUint16Ordered(&e.Port, binary.BigEndian)
}

func (e *Endpoint) String() string {
	return fmt.Sprintf("Endpoint(int_ip=%s, ext_ip=%s, port=%d)", e.InternalAddress, e.ExternalAddress, e.Port)
}

// LobbyPingRequest asks a client to measure latency against a set of
// candidate game server endpoints.
type LobbyPingRequest struct {
	Unk0      uint16
	Unk1      uint16
	Unk2      uint32
	Endpoints []Endpoint
}

func (m *LobbyPingRequest) Symbol() game.Symbol { return -378478809818600461 }

func (m *LobbyPingRequest) Stream(io *codec.Stream) {
	io.StreamUint16(&m.Unk0)
	io.StreamUint16(&m.Unk1)
	io.StreamUint32(&m.Unk2)
	// Each endpoint record is followed by 2 bytes of padding.
	if io.Mode() == codec.ModeRead {
		m.Endpoints = make([]Endpoint, io.Remaining()/12)
	}
	for i := range m.Endpoints {
		m.Endpoints[i].Stream(io)
		var pad uint16
		io.StreamUint16(&pad)
	}
}

func (m *LobbyPingRequest) String() string {
	return fmt.Sprintf("LobbyPingRequest(unk0=%d, unk1=%d, unk2=%d, endpoints=%v)", m.Unk0, m.Unk1, m.Unk2, m.Endpoints)
}

// LobbySessionSuccess informs a matched party of the session it was placed
// in, the game server endpoint to connect to, and the encoder parameters
// both sides of the UDP connection will use.
type LobbySessionSuccess struct {
	GameTypeSymbol     game.Symbol
	MatchingSession    uuid.UUID
	Endpoint           Endpoint
	TeamIndex          int16
	Unk1               uint32
	ServerEncoderFlags uint64
	ClientEncoderFlags uint64
	ServerSequenceID   uint64
	ServerMACKey       []byte
	ServerEncKey       []byte
	ServerRandomKey    []byte
	ClientSequenceID   uint64
	ClientMACKey       []byte
	ClientEncKey       []byte
	ClientRandomKey    []byte
}

func (m *LobbySessionSuccess) Symbol() game.Symbol { return 7876201346521829646 }

func (m *LobbySessionSuccess) Stream(io *codec.Stream) {
	io.StreamInt64((*int64)(&m.GameTypeSymbol))
	io.StreamGUID(&m.MatchingSession)
	m.Endpoint.Stream(io)
	io.StreamInt16(&m.TeamIndex)
	io.StreamUint32(&m.Unk1)
	io.StreamUint64(&m.ServerEncoderFlags)
	io.StreamUint64(&m.ClientEncoderFlags)
	io.StreamUint64(&m.ServerSequenceID)
	streamKey(io, &m.ServerMACKey)
	streamKey(io, &m.ServerEncKey)
	streamKey(io, &m.ServerRandomKey)
	io.StreamUint64(&m.ClientSequenceID)
	streamKey(io, &m.ClientMACKey)
	streamKey(io, &m.ClientEncKey)
	streamKey(io, &m.ClientRandomKey)
}

func (m *LobbySessionSuccess) String() string {
	return fmt.Sprintf("LobbySessionSuccess(game_type=%v, matching_session=%s, endpoint=%v, team_index=%d)",
		m.GameTypeSymbol, m.MatchingSession, &m.Endpoint, m.TeamIndex)
}

// sessionKeySize is the length of every session key in a LobbySessionSuccess.
const sessionKeySize = 0x20

func streamKey(io *codec.Stream, key *[]byte) {
	if io.Mode() == codec.ModeRead || len(*key) != sessionKeySize {
		resized := make([]byte, sessionKeySize)
		copy(resized, *key)
		*key = resized
	}
	io.StreamBytes(*key)
}

// LobbySessionFailureCode indicates why a lobby session request failed.
type LobbySessionFailureCode uint32

const (
	LobbyFailureTimeout0             LobbySessionFailureCode = 0
	LobbyFailureUpdateRequired       LobbySessionFailureCode = 1
	LobbyFailureBadRequest           LobbySessionFailureCode = 2
	LobbyFailureTimeout3             LobbySessionFailureCode = 3
	LobbyFailureServerDoesNotExist   LobbySessionFailureCode = 4
	LobbyFailureServerIsIncompatible LobbySessionFailureCode = 5
	LobbyFailureServerFindFailed     LobbySessionFailureCode = 6
	LobbyFailureServerIsLocked       LobbySessionFailureCode = 7
	LobbyFailureServerIsFull         LobbySessionFailureCode = 8
	LobbyFailureInternalError        LobbySessionFailureCode = 9
	LobbyFailureMissingEntitlement   LobbySessionFailureCode = 10
	LobbyFailureBannedFromLobbyGroup LobbySessionFailureCode = 11
	LobbyFailureKickedFromLobbyGroup LobbySessionFailureCode = 12
	LobbyFailureNotALobbyGroupMod    LobbySessionFailureCode = 13
)

// LobbySessionFailure rejects a lobby session request with a typed error.
type LobbySessionFailure struct {
	Channel   uuid.UUID
	ErrorCode LobbySessionFailureCode
}

func (m *LobbySessionFailure) Symbol() game.Symbol { return 5397623933917067626 }

func (m *LobbySessionFailure) Stream(io *codec.Stream) {
	io.StreamGUID(&m.Channel)
	io.StreamUint32((*uint32)(&m.ErrorCode))
}

func (m *LobbySessionFailure) String() string {
	return fmt.Sprintf("LobbySessionFailure(channel=%s, error_code=%d)", m.Channel, m.ErrorCode)
}

// LobbyPlayerSessionsSuccessUnk1 reports the player session ids issued for a
// player session request, alongside the matching session they belong to.
type LobbyPlayerSessionsSuccessUnk1 struct {
	MatchingSession uuid.UUID
	PlayerSessions  []uuid.UUID
}

func (m *LobbyPlayerSessionsSuccessUnk1) Symbol() game.Symbol { return -40104227197879335 }

func (m *LobbyPlayerSessionsSuccessUnk1) Stream(io *codec.Stream) {
	count := uint64(len(m.PlayerSessions))
	io.StreamUint64(&count)
	if io.Mode() == codec.ModeRead {
		if count > uint64(io.Remaining())/16 {
			io.SetErr(fmt.Errorf("player session count %d exceeds payload", count))
			return
		}
		m.PlayerSessions = make([]uuid.UUID, count)
	}
	io.StreamGUID(&m.MatchingSession)
	for i := range m.PlayerSessions {
		io.StreamGUID(&m.PlayerSessions[i])
	}
}

func (m *LobbyPlayerSessionsSuccessUnk1) String() string {
	return fmt.Sprintf("LobbyPlayerSessionsSuccessUnk1(matching_session=%s, player_sessions=%v)",
		m.MatchingSession, m.PlayerSessions)
}

// LobbyPlayerSessionsSuccessV2 confirms a single issued player session to
// the requesting user.
type LobbyPlayerSessionsSuccessV2 struct {
	Unk0          byte
	UserID        game.PlatformID
	PlayerSession uuid.UUID
}

func (m *LobbyPlayerSessionsSuccessV2) Symbol() game.Symbol { return -6793175491028678296 }

func (m *LobbyPlayerSessionsSuccessV2) Stream(io *codec.Stream) {
	io.StreamByte(&m.Unk0)
	m.UserID.Stream(io)
	io.StreamGUID(&m.PlayerSession)
}

func (m *LobbyPlayerSessionsSuccessV2) String() string {
	return fmt.Sprintf("LobbyPlayerSessionsSuccessV2(user_id=%v, player_session=%s)", m.UserID, m.PlayerSession)
}

// LobbyPlayerSessionsSuccessV3 confirms a single issued player session with
// the team assignment the player received.
type LobbyPlayerSessionsSuccessV3 struct {
	Unk0          byte
	UserID        game.PlatformID
	PlayerSession uuid.UUID
	TeamIndex     game.TeamIndex
	Unk1          uint16
	Unk2          uint32
}

func (m *LobbyPlayerSessionsSuccessV3) Symbol() game.Symbol { return -6793175491028678295 }

func (m *LobbyPlayerSessionsSuccessV3) Stream(io *codec.Stream) {
	io.StreamByte(&m.Unk0)
	m.UserID.Stream(io)
	io.StreamGUID(&m.PlayerSession)
	io.StreamInt16((*int16)(&m.TeamIndex))
	io.StreamUint16(&m.Unk1)
	io.StreamUint32(&m.Unk2)
}

func (m *LobbyPlayerSessionsSuccessV3) String() string {
	return fmt.Sprintf("LobbyPlayerSessionsSuccessV3(user_id=%v, player_session=%s, team_index=%v)",
		m.UserID, m.PlayerSession, m.TeamIndex)
}
