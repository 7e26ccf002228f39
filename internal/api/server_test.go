package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Xenomega/EchoRelay-sub000/internal/config"
	"github.com/Xenomega/EchoRelay-sub000/internal/events"
	"github.com/Xenomega/EchoRelay-sub000/internal/game"
	"github.com/Xenomega/EchoRelay-sub000/internal/messages"
	"github.com/Xenomega/EchoRelay-sub000/internal/serverdb"
	"github.com/Xenomega/EchoRelay-sub000/internal/storage"
)

// stubPeer implements service.Peer for driving the serverdb service without
// a websocket connection.
type stubPeer struct {
	id    string
	addr  netip.Addr
	port  uint16
	query url.Values

	mu     sync.Mutex
	sent   []messages.Message
	data   any
	closed bool
}

func newStubPeer(addr string, port uint16) *stubPeer {
	return &stubPeer{
		id:    "serverdb:" + addr,
		addr:  netip.MustParseAddr(addr),
		port:  port,
		query: url.Values{},
	}
}

func (p *stubPeer) ID() string        { return p.id }
func (p *stubPeer) Addr() netip.Addr  { return p.addr }
func (p *stubPeer) Port() uint16      { return p.port }
func (p *stubPeer) Query() url.Values { return p.query }

func (p *stubPeer) Send(msgs ...messages.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, msgs...)
	return nil
}

func (p *stubPeer) SessionData() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data
}

func (p *stubPeer) SetSessionData(data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = data
}

func (p *stubPeer) ClearSessionData() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = nil
}

func (p *stubPeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type testAPI struct {
	cfg    *config.Config
	svc    *serverdb.Service
	router *gin.Engine
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	policy := serverdb.NewLimitsPolicy(storage.DefaultSymbolCache())
	svc := serverdb.NewService(serverdb.NewRegistry(nil), policy, nil, nil, serverdb.ServiceOptions{})

	server := NewServer(cfg, events.NewEventBus(), svc)
	return &testAPI{
		cfg:    cfg,
		svc:    svc,
		router: server.buildRouter(context.Background()),
	}
}

func (a *testAPI) request(t *testing.T, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decoded))
	}
	return rec, decoded
}

// registerServer drives a registration through the protocol service so the
// API observes a real registry entry.
func registerServer(t *testing.T, svc *serverdb.Service, serverID uint64) (*serverdb.GameServer, *stubPeer) {
	t.Helper()
	peer := newStubPeer("10.0.0.1", 6792)
	request := messages.RegistrationRequest{
		ServerID:        serverID,
		InternalAddress: netip.MustParseAddr("192.168.50.2"),
		Port:            6792,
		RegionSymbol:    -1,
		VersionLock:     1,
	}
	require.NoError(t, svc.HandlePacket(context.Background(), peer, messages.Packet{&request}))
	server, ok := svc.Registry().GetByID(serverID)
	require.True(t, ok)
	return server, peer
}

func TestRoutes_Ping(t *testing.T) {
	a := newTestAPI(t)

	rec, body := a.request(t, http.MethodGet, "/api/public/ping", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "echorelay", body["service"])
}

func TestRoutes_ServerInfo(t *testing.T) {
	a := newTestAPI(t)
	registerServer(t, a.svc, 100)

	rec, body := a.request(t, http.MethodGet, "/api/public/get_server_info", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "echorelay", body["relay_name"])
	assert.EqualValues(t, 1, body["registered_servers"])
}

func TestRoutes_MonitorServers(t *testing.T) {
	a := newTestAPI(t)
	server, _ := registerServer(t, a.svc, 100)

	rec, body := a.request(t, http.MethodGet, "/api/monitor/get_servers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.EqualValues(t, 1, body["total"])

	servers := body["servers"].([]any)
	view := servers[0].(map[string]any)
	assert.EqualValues(t, 100, view["server_id"])
	assert.Equal(t, "192.168.50.2", view["internal_address"])
	assert.Nil(t, view["session"])

	// A started session appears in the view.
	require.NoError(t, server.StartSession(context.Background(), game.LobbyPublic, uuid.New(), nil, nil, nil))

	rec, body = a.request(t, http.MethodGet, "/api/monitor/get_server/100", "")
	require.Equal(t, http.StatusOK, rec.Code)
	session := body["session"].(map[string]any)
	assert.Equal(t, "public", session["lobby_type"])
	assert.EqualValues(t, 0, session["player_count"])

	rec, _ = a.request(t, http.MethodGet, "/api/monitor/get_server/999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutes_TotalServers(t *testing.T) {
	a := newTestAPI(t)

	rec, body := a.request(t, http.MethodGet, "/api/monitor/get_total_servers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["total"])

	server, _ := registerServer(t, a.svc, 100)
	registerServer(t, a.svc, 200)
	require.NoError(t, server.StartSession(context.Background(), game.LobbyPublic, uuid.New(), nil, nil, nil))

	rec, body = a.request(t, http.MethodGet, "/api/monitor/get_total_servers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, body["total"])
	assert.EqualValues(t, 1, body["in_session"])
}

func TestRoutes_SessionControl(t *testing.T) {
	a := newTestAPI(t)
	server, _ := registerServer(t, a.svc, 100)

	// No session yet: ending conflicts.
	rec, _ := a.request(t, http.MethodPost, "/api/control/end_session/100", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	require.NoError(t, server.StartSession(context.Background(), game.LobbyPublic, uuid.New(), nil, nil, nil))

	rec, _ = a.request(t, http.MethodPost, "/api/control/lock_session/100", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, server.Locked())

	rec, _ = a.request(t, http.MethodPost, "/api/control/unlock_session/100", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, server.Locked())

	rec, _ = a.request(t, http.MethodPost, "/api/control/end_session/100", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, server.SessionStarted())
}

func TestRoutes_KickPlayerValidation(t *testing.T) {
	a := newTestAPI(t)
	registerServer(t, a.svc, 100)

	rec, _ := a.request(t, http.MethodPost, "/api/control/kick_player/100/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = a.request(t, http.MethodPost, "/api/control/kick_player/100/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutes_DisconnectServer(t *testing.T) {
	a := newTestAPI(t)
	_, peer := registerServer(t, a.svc, 100)

	rec, _ := a.request(t, http.MethodPost, "/api/control/disconnect_server/100", "")
	require.Equal(t, http.StatusOK, rec.Code)

	peer.mu.Lock()
	defer peer.mu.Unlock()
	assert.True(t, peer.closed)
}

func TestRoutes_SetRelayData(t *testing.T) {
	a := newTestAPI(t)

	relayData := a.cfg.GetRelayData()
	relayData.Name = "relay-two"
	payload, err := json.Marshal(relayData)
	require.NoError(t, err)

	rec, _ := a.request(t, http.MethodPost, "/api/configure/set_relay_data", string(payload))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "relay-two", a.cfg.GetRelayData().Name)

	// Invalid data is rejected and the previous config restored.
	relayData.APIPort = -1
	payload, err = json.Marshal(relayData)
	require.NoError(t, err)

	rec, _ = a.request(t, http.MethodPost, "/api/configure/set_relay_data", string(payload))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "relay-two", a.cfg.GetRelayData().Name)
	assert.NotEqual(t, -1, a.cfg.GetRelayData().APIPort)
}

func TestRoutes_GetConfig(t *testing.T) {
	a := newTestAPI(t)

	rec, body := a.request(t, http.MethodGet, "/api/configure/get_config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	relay := body["relay"].(map[string]any)
	assert.Equal(t, "echorelay", relay["relay_name"])
}

func TestRoutes_NotFound(t *testing.T) {
	a := newTestAPI(t)

	rec, body := a.request(t, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "endpoint not found", body["error"])
}
