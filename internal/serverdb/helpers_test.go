package serverdb

import (
	"net/netip"
	"net/url"
	"sync"

	"github.com/Xenomega/EchoRelay-sub000/internal/game"
	"github.com/Xenomega/EchoRelay-sub000/internal/messages"
	"github.com/Xenomega/EchoRelay-sub000/internal/service"
)

// fakePeer records sent messages in place of a live websocket connection.
type fakePeer struct {
	id    string
	addr  netip.Addr
	port  uint16
	query url.Values

	mu      sync.Mutex
	sent    []messages.Message
	data    any
	sendErr error
	closed  bool
}

func newFakePeer(id string, addr string, port uint16) *fakePeer {
	return &fakePeer{
		id:    id,
		addr:  netip.MustParseAddr(addr),
		port:  port,
		query: url.Values{},
	}
}

func (p *fakePeer) ID() string        { return p.id }
func (p *fakePeer) Addr() netip.Addr  { return p.addr }
func (p *fakePeer) Port() uint16      { return p.port }
func (p *fakePeer) Query() url.Values { return p.query }

func (p *fakePeer) Send(msgs ...messages.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sendErr != nil {
		return p.sendErr
	}
	p.sent = append(p.sent, msgs...)
	return nil
}

func (p *fakePeer) SessionData() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data
}

func (p *fakePeer) SetSessionData(data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = data
}

func (p *fakePeer) ClearSessionData() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data = nil
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePeer) sentMessages() []messages.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]messages.Message(nil), p.sent...)
}

// lastSent returns the most recent message of type T sent to the peer.
func lastSent[T messages.Message](p *fakePeer) (T, bool) {
	var last T
	found := false
	for _, msg := range p.sentMessages() {
		if typed, ok := msg.(T); ok {
			last = typed
			found = true
		}
	}
	return last, found
}

// staticNames resolves gametype symbols from a fixed table.
type staticNames map[game.Symbol]string

func (n staticNames) Name(symbol game.Symbol) (string, bool) {
	name, ok := n[symbol]
	return name, ok
}

const (
	arenaSymbol  game.Symbol = 1001
	combatSymbol game.Symbol = 1002
	customSymbol game.Symbol = 2001
)

func testPolicy() *LimitsPolicy {
	return NewLimitsPolicy(staticNames{
		arenaSymbol:  "echo_arena",
		combatSymbol: "echo_combat",
		customSymbol: "echo_demo",
	})
}

// newMatchingSession builds matching state already placed on the given game
// server, as the lobby session flow leaves it.
func newMatchingSession(server *GameServer, team game.TeamIndex) *service.MatchingSession {
	serverID := server.ServerID()
	return &service.MatchingSession{
		UserID:           game.PlatformID{Platform: game.PlatformSteam, AccountID: 76561190000000000 + serverID},
		TeamIndex:        team,
		MatchedServerID:  &serverID,
		MatchedSessionID: server.SessionID(),
	}
}

func testRegistration(serverID uint64, port uint16) messages.RegistrationRequest {
	return messages.RegistrationRequest{
		ServerID:        serverID,
		InternalAddress: netip.MustParseAddr("192.168.50.2"),
		Port:            port,
		RegionSymbol:    -1,
		VersionLock:     1,
	}
}
