package service

import (
	"fmt"
	"net/netip"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Xenomega/EchoRelay-sub000/internal/messages"
)

// WebsocketPeer adapts a websocket connection to the Peer interface. Sends
// are serialized under a mutex; reads are expected from a single service
// loop and are not locked.
type WebsocketPeer struct {
	conn   *websocket.Conn
	id     string
	addr   netip.Addr
	port   uint16
	query  url.Values
	logger zerolog.Logger

	sendMu sync.Mutex

	dataMu      sync.RWMutex
	sessionData any
}

// NewWebsocketPeer wraps an upgraded websocket connection for the named
// service. requestURL is the HTTP request URL the peer connected with.
func NewWebsocketPeer(serviceName string, conn *websocket.Conn, requestURL *url.URL) *WebsocketPeer {
	addrPort, _ := netip.ParseAddrPort(conn.RemoteAddr().String())
	id := fmt.Sprintf("%s:%s", serviceName, conn.RemoteAddr())
	return &WebsocketPeer{
		conn:  conn,
		id:    id,
		addr:  addrPort.Addr().Unmap(),
		port:  addrPort.Port(),
		query: requestURL.Query(),
		logger: log.With().
			Str("component", "peer").
			Str("peer", id).
			Logger(),
	}
}

func (p *WebsocketPeer) ID() string        { return p.id }
func (p *WebsocketPeer) Addr() netip.Addr  { return p.addr }
func (p *WebsocketPeer) Port() uint16      { return p.port }
func (p *WebsocketPeer) Query() url.Values { return p.query }

// Send encodes the messages into a single packet and writes it as one
// binary websocket frame.
func (p *WebsocketPeer) Send(msgs ...messages.Message) error {
	raw, err := messages.Packet(msgs).Encode()
	if err != nil {
		return fmt.Errorf("peer %s: %w", p.id, err)
	}

	p.sendMu.Lock()
	defer p.sendMu.Unlock()
	if err := p.conn.WriteMessage(websocket.BinaryMessage, raw); err != nil {
		return fmt.Errorf("peer %s: write: %w", p.id, err)
	}

	p.logger.Trace().Int("messages", len(msgs)).Int("bytes", len(raw)).Msg("packet sent")
	return nil
}

// ReadPacket blocks until the next binary frame arrives and decodes it.
// Non-binary frames are skipped.
func (p *WebsocketPeer) ReadPacket() (messages.Packet, error) {
	for {
		msgType, raw, err := p.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("peer %s: read: %w", p.id, err)
		}
		if msgType != websocket.BinaryMessage {
			p.logger.Debug().Int("type", msgType).Msg("ignoring non-binary frame")
			continue
		}
		packet, err := messages.DecodePacket(raw)
		if err != nil {
			return nil, fmt.Errorf("peer %s: %w", p.id, err)
		}
		return packet, nil
	}
}

func (p *WebsocketPeer) SessionData() any {
	p.dataMu.RLock()
	defer p.dataMu.RUnlock()
	return p.sessionData
}

func (p *WebsocketPeer) SetSessionData(data any) {
	p.dataMu.Lock()
	defer p.dataMu.Unlock()
	p.sessionData = data
}

func (p *WebsocketPeer) ClearSessionData() {
	p.dataMu.Lock()
	defer p.dataMu.Unlock()
	p.sessionData = nil
}

func (p *WebsocketPeer) Close() error {
	return p.conn.Close()
}
