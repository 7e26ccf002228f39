package messages

import (
	"encoding/binary"
	"net/netip"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xenomega/EchoRelay-sub000/internal/codec"
	"github.com/Xenomega/EchoRelay-sub000/internal/game"
)

func TestEndpoint_NetworkByteOrder(t *testing.T) {
	ep := Endpoint{
		InternalAddress: netip.MustParseAddr("10.0.0.2"),
		ExternalAddress: netip.MustParseAddr("203.0.113.9"),
		Port:            6792,
	}
	raw := encodeMessage(t, &LobbyPingRequest{Endpoints: []Endpoint{ep}})
	require.Len(t, raw, 8+10+2)

	// Addresses and port are network byte order; two pad bytes follow.
	assert.Equal(t, []byte{10, 0, 0, 2}, raw[8:12])
	assert.Equal(t, []byte{203, 0, 113, 9}, raw[12:16])
	assert.Equal(t, []byte{0x1a, 0x88}, raw[16:18])
	assert.Equal(t, []byte{0, 0}, raw[18:20])

	var got LobbyPingRequest
	decodeMessage(t, &got, raw)
	require.Len(t, got.Endpoints, 1)
	assert.Equal(t, ep, got.Endpoints[0])
}

func TestLobbySessionSuccess_RoundTrip(t *testing.T) {
	sent := &LobbySessionSuccess{
		GameTypeSymbol:     301069346851901300,
		MatchingSession:    uuid.New(),
		Endpoint:           Endpoint{netip.MustParseAddr("10.0.0.2"), netip.MustParseAddr("203.0.113.9"), 6792},
		TeamIndex:          int16(game.TeamBlue),
		ServerEncoderFlags: 0x3,
		ClientEncoderFlags: 0x3,
		ServerSequenceID:   1,
		ClientSequenceID:   2,
	}
	raw := encodeMessage(t, sent)
	// Keys default to their fixed 32-byte size when unset.
	require.Len(t, raw, 8+16+10+2+4+8+8+8+0x60+8+0x60)

	var got LobbySessionSuccess
	decodeMessage(t, &got, raw)
	assert.Equal(t, sent.GameTypeSymbol, got.GameTypeSymbol)
	assert.Equal(t, sent.MatchingSession, got.MatchingSession)
	assert.Equal(t, sent.Endpoint, got.Endpoint)
	assert.Equal(t, int16(game.TeamBlue), got.TeamIndex)
	assert.Len(t, got.ServerMACKey, 0x20)
	assert.Len(t, got.ClientRandomKey, 0x20)
}

func TestLobbySessionFailure_RoundTrip(t *testing.T) {
	sent := &LobbySessionFailure{
		Channel:   uuid.New(),
		ErrorCode: LobbyFailureServerIsFull,
	}
	raw := encodeMessage(t, sent)
	require.Len(t, raw, 16+4)

	var got LobbySessionFailure
	decodeMessage(t, &got, raw)
	assert.Equal(t, sent.Channel, got.Channel)
	assert.Equal(t, LobbyFailureServerIsFull, got.ErrorCode)
}

func TestLobbyPlayerSessionsSuccessUnk1_CountPrefix(t *testing.T) {
	sent := &LobbyPlayerSessionsSuccessUnk1{
		MatchingSession: uuid.New(),
		PlayerSessions:  []uuid.UUID{uuid.New(), uuid.New()},
	}
	raw := encodeMessage(t, sent)
	require.Len(t, raw, 8+16+2*16)

	var got LobbyPlayerSessionsSuccessUnk1
	decodeMessage(t, &got, raw)
	assert.Equal(t, sent.MatchingSession, got.MatchingSession)
	assert.Equal(t, sent.PlayerSessions, got.PlayerSessions)
}

func TestLobbyPlayerSessionsSuccessUnk1_BogusCount(t *testing.T) {
	raw := encodeMessage(t, &LobbyPlayerSessionsSuccessUnk1{MatchingSession: uuid.New()})
	// Inflate the count beyond what the payload can hold.
	raw[0] = 0xFF

	var got LobbyPlayerSessionsSuccessUnk1
	r := codec.NewReader(raw, binary.LittleEndian)
	got.Stream(r)
	assert.Error(t, r.Err())
}

func TestLobbyPlayerSessionsSuccessV3_RoundTrip(t *testing.T) {
	sent := &LobbyPlayerSessionsSuccessV3{
		UserID:        game.PlatformID{Platform: game.PlatformOVR, AccountID: 12345},
		PlayerSession: uuid.New(),
		TeamIndex:     game.TeamSpectator,
	}
	raw := encodeMessage(t, sent)
	require.Len(t, raw, 1+16+16+2+2+4)

	var got LobbyPlayerSessionsSuccessV3
	decodeMessage(t, &got, raw)
	assert.Equal(t, sent.UserID, got.UserID)
	assert.Equal(t, sent.PlayerSession, got.PlayerSession)
	assert.Equal(t, game.TeamSpectator, got.TeamIndex)
}
