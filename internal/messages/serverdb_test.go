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

func encodeMessage(t *testing.T, m Message) []byte {
	t.Helper()
	w := codec.NewWriter(binary.LittleEndian)
	m.Stream(w)
	require.NoError(t, w.Err())
	return w.Bytes()
}

func decodeMessage(t *testing.T, m Message, raw []byte) {
	t.Helper()
	r := codec.NewReader(raw, binary.LittleEndian)
	m.Stream(r)
	require.NoError(t, r.Err())
}

func TestRegistrationRequest_Layout(t *testing.T) {
	raw := encodeMessage(t, &RegistrationRequest{
		ServerID:        0x0102030405060708,
		InternalAddress: netip.MustParseAddr("10.0.0.1"),
		Port:            0xABCD,
		RegionSymbol:    -1,
		VersionLock:     2,
	})
	require.Len(t, raw, 8+4+2+2+8+8)

	assert.Equal(t, uint64(0x0102030405060708), binary.LittleEndian.Uint64(raw[0:8]))
	// Internal address is network byte order regardless of stream order.
	assert.Equal(t, []byte{10, 0, 0, 1}, raw[8:12])
	assert.Equal(t, uint16(0xABCD), binary.LittleEndian.Uint16(raw[12:14]))
	assert.Equal(t, []byte{0, 0}, raw[14:16])
	assert.Equal(t, int64(-1), int64(binary.LittleEndian.Uint64(raw[16:24])))
	assert.Equal(t, int64(2), int64(binary.LittleEndian.Uint64(raw[24:32])))

	var got RegistrationRequest
	decodeMessage(t, &got, raw)
	assert.Equal(t, netip.MustParseAddr("10.0.0.1"), got.InternalAddress)
	assert.Equal(t, uint16(0xABCD), got.Port)
}

func TestRegistrationSuccess_AddressUsesStreamOrder(t *testing.T) {
	// Unlike the request's internal address, the acknowledged external
	// address follows the stream's default order, so octets reverse under
	// little endian.
	raw := encodeMessage(t, &RegistrationSuccess{
		ServerID:        7,
		ExternalAddress: netip.MustParseAddr("1.2.3.4"),
	})
	require.Len(t, raw, 8+4+8)
	assert.Equal(t, []byte{4, 3, 2, 1}, raw[8:12])

	var got RegistrationSuccess
	decodeMessage(t, &got, raw)
	assert.Equal(t, netip.MustParseAddr("1.2.3.4"), got.ExternalAddress)
}

func TestStartSession_RoundTripWithEntrants(t *testing.T) {
	appID := "1369078409873402"
	level := int64(302)
	sent := &StartSession{
		SessionID:   uuid.New(),
		Channel:     uuid.New(),
		PlayerLimit: 8,
		LobbyType:   game.LobbyPrivate,
		Settings:    NewSessionSettings(&appID, nil, &level),
		Entrants:    []EntrantDescriptor{RandomBotEntrant(), RandomBotEntrant()},
	}
	raw := encodeMessage(t, sent)

	var got StartSession
	decodeMessage(t, &got, raw)
	assert.Equal(t, sent.SessionID, got.SessionID)
	assert.Equal(t, sent.Channel, got.Channel)
	assert.Equal(t, byte(8), got.PlayerLimit)
	assert.Equal(t, game.LobbyPrivate, got.LobbyType)
	require.NotNil(t, got.Settings.Level)
	assert.Equal(t, level, *got.Settings.Level)
	assert.Equal(t, sent.Entrants, got.Entrants)
}

func TestPlayersAccepted_CountFromPayload(t *testing.T) {
	sessions := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	raw := encodeMessage(t, &PlayersAccepted{Unk0: 1, PlayerSessions: sessions})
	require.Len(t, raw, 1+3*16)

	var got PlayersAccepted
	decodeMessage(t, &got, raw)
	assert.Equal(t, byte(1), got.Unk0)
	assert.Equal(t, sessions, got.PlayerSessions)
}

func TestPlayersRejected_ErrorCode(t *testing.T) {
	sessions := []uuid.UUID{uuid.New()}
	raw := encodeMessage(t, &PlayersRejected{
		ErrorCode:      PlayerSessionErrorLobbyFull,
		PlayerSessions: sessions,
	})
	require.Equal(t, byte(5), raw[0])

	var got PlayersRejected
	decodeMessage(t, &got, raw)
	assert.Equal(t, PlayerSessionErrorLobbyFull, got.ErrorCode)
	assert.Equal(t, sessions, got.PlayerSessions)
}

func TestAcceptPlayers_EmptyList(t *testing.T) {
	raw := encodeMessage(t, &AcceptPlayers{})
	assert.Empty(t, raw)

	var got AcceptPlayers
	decodeMessage(t, &got, raw)
	assert.Empty(t, got.PlayerSessions)
}

func TestSessionSettings_PreservesUnknownFields(t *testing.T) {
	doc := []byte(`{"appid":"123","gametype":7,"custom_rule":{"rounds":3},"flag":true}`)

	var settings SessionSettings
	require.NoError(t, json.Unmarshal(doc, &settings))
	require.NotNil(t, settings.AppID)
	assert.Equal(t, "123", *settings.AppID)
	require.NotNil(t, settings.GameType)
	assert.Equal(t, int64(7), *settings.GameType)
	assert.Nil(t, settings.Level)
	assert.Contains(t, settings.Extra, "custom_rule")
	assert.Contains(t, settings.Extra, "flag")

	out, err := json.Marshal(settings)
	require.NoError(t, err)

	var reparsed map[string]any
	require.NoError(t, json.Unmarshal(out, &reparsed))
	assert.Equal(t, "123", reparsed["appid"])
	assert.Equal(t, true, reparsed["flag"])
	assert.Equal(t, map[string]any{"rounds": float64(3)}, reparsed["custom_rule"])
}

func TestSessionSettings_Merge(t *testing.T) {
	appID := "base"
	gametype := int64(11)
	base := NewSessionSettings(&appID, &gametype, nil)

	level := int64(22)
	overlayApp := "overlay"
	merged := base.Merge(NewSessionSettings(&overlayApp, nil, &level))

	assert.Equal(t, "overlay", *merged.AppID)
	assert.Equal(t, int64(11), *merged.GameType)
	assert.Equal(t, int64(22), *merged.Level)
	// The receiver is unchanged.
	assert.Equal(t, "base", *base.AppID)
	assert.Nil(t, base.Level)
}

func TestChallenge_PayloadToEnd(t *testing.T) {
	payload := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	raw := encodeMessage(t, &ChallengeRequest{InputPayload: payload})
	assert.Equal(t, payload, raw)

	var got ChallengeResponse
	decodeMessage(t, &got, raw)
	assert.Equal(t, payload, got.InputPayload)
}

func TestRegisteredSymbolsResolve(t *testing.T) {
	for _, symbol := range []game.Symbol{
		0x7777777777777777,
		-5369924845641990433,
		-5373034290044534839,
		0x7777777777770000,
		0x7777777777770100,
		0x7777777777770200,
		0x7777777777770300,
		0x7777777777770400,
		0x7777777777770500,
		0x7777777777770600,
		0x7777777777770700,
		0x7777777777770800,
		0x7777777777770900,
		0x7777777777770A00,
	} {
		m := New(symbol)
		_, unrecognized := m.(*Unrecognized)
		assert.Falsef(t, unrecognized, "symbol %v has no registered kind", symbol)
		assert.Equal(t, symbol, m.Symbol())
	}
}
