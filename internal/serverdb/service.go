package serverdb

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Xenomega/EchoRelay-sub000/internal/events"
	"github.com/Xenomega/EchoRelay-sub000/internal/messages"
	"github.com/Xenomega/EchoRelay-sub000/internal/service"
)

// ServiceOptions configures the registration/session protocol handler.
type ServiceOptions struct {
	// APIKey must match a peer's api_key query parameter when non-empty.
	APIKey string
	// ValidateEndpoints probes a game server's advertised endpoint before
	// accepting its registration.
	ValidateEndpoints bool
	// PublicAddress substitutes for peers registering from private networks.
	PublicAddress netip.Addr
	// OperationTimeout bounds lock acquisition for session operations.
	OperationTimeout time.Duration
}

// Service dispatches inbound packets from game server peers to registry and
// session operations.
type Service struct {
	registry *Registry
	policy   *LimitsPolicy
	prober   *Prober
	bus      *events.EventBus
	opts     ServiceOptions
	logger   zerolog.Logger
}

// NewService builds the protocol handler around a registry, admission
// policy, and liveness prober.
func NewService(registry *Registry, policy *LimitsPolicy, prober *Prober, bus *events.EventBus, opts ServiceOptions) *Service {
	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = 10 * time.Second
	}
	return &Service{
		registry: registry,
		policy:   policy,
		prober:   prober,
		bus:      bus,
		opts:     opts,
		logger:   log.With().Str("component", "serverdb").Logger(),
	}
}

// Registry returns the registry the service operates on.
func (s *Service) Registry() *Registry { return s.registry }

// HandleConnection runs the read loop for a connected game server peer
// until it disconnects, then removes any registration it made.
func (s *Service) HandleConnection(ctx context.Context, peer service.PacketPeer) {
	s.logger.Info().Str("peer", peer.ID()).Msg("game server peer connected")
	defer func() {
		s.clearPeerRegistration(ctx, peer)
		peer.Close()
		s.logger.Info().Str("peer", peer.ID()).Msg("game server peer disconnected")
	}()

	for {
		packet, err := peer.ReadPacket()
		if err != nil {
			if !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
				s.logger.Debug().Err(err).Str("peer", peer.ID()).Msg("read loop ended")
			}
			return
		}
		if err := s.HandlePacket(ctx, peer, packet); err != nil {
			s.logger.Error().Err(err).Str("peer", peer.ID()).Msg("packet handling failed")
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// HandlePacket dispatches each message of a packet to its handler. Format
// errors and failed sends propagate; unknown messages are logged and
// skipped.
func (s *Service) HandlePacket(ctx context.Context, sender service.Peer, packet messages.Packet) error {
	for _, msg := range packet {
		opCtx, cancel := context.WithTimeout(ctx, s.opts.OperationTimeout)
		err := s.handleMessage(opCtx, sender, msg)
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) handleMessage(ctx context.Context, sender service.Peer, msg messages.Message) error {
	switch m := msg.(type) {
	case *messages.RegistrationRequest:
		return s.processRegistration(ctx, sender, m)
	case *messages.SessionStarted:
		// The session is considered started when the relay sends the start
		// instruction; this confirmation needs no further action.
		return nil
	case *messages.EndSession:
		if gs := s.boundGameServer(sender); gs != nil {
			return gs.EndSession(ctx)
		}
		return nil
	case *messages.PlayerSessionsLocked:
		if gs := s.boundGameServer(sender); gs != nil {
			gs.SetLockedStatus(ctx, true)
		}
		return nil
	case *messages.PlayerSessionsUnlocked:
		if gs := s.boundGameServer(sender); gs != nil {
			gs.SetLockedStatus(ctx, false)
		}
		return nil
	case *messages.AcceptPlayers:
		if gs := s.boundGameServer(sender); gs != nil {
			return gs.AddPlayers(ctx, m.PlayerSessions)
		}
		return nil
	case *messages.RemovePlayer:
		if gs := s.boundGameServer(sender); gs != nil {
			return gs.RemovePlayer(ctx, m.PlayerSession)
		}
		return nil
	case *messages.Unrecognized:
		s.logger.Warn().
			Str("peer", sender.ID()).
			Str("symbol", m.TypeSymbol.String()).
			Int("payload_size", len(m.Payload)).
			Msg("unrecognized message symbol")
		return nil
	default:
		s.logger.Debug().
			Str("peer", sender.ID()).
			Str("symbol", msg.Symbol().String()).
			Msg("unhandled message kind")
		return nil
	}
}

func (s *Service) processRegistration(ctx context.Context, sender service.Peer, request *messages.RegistrationRequest) error {
	// A re-registration replaces any previous one by this peer.
	s.clearPeerRegistration(ctx, sender)

	if s.opts.APIKey != "" && sender.Query().Get("api_key") != s.opts.APIKey {
		s.logger.Warn().Str("peer", sender.ID()).Msg("registration rejected, bad api key")
		return sender.Send(&messages.RegistrationFailure{Result: messages.RegistrationFailureDatabaseError})
	}

	gameServer := NewGameServer(s.registry, sender, *request, s.opts.PublicAddress, s.policy, s.bus)

	if s.opts.ValidateEndpoints && s.prober != nil && !s.prober.CheckGameServer(ctx, gameServer) {
		s.logger.Warn().
			Str("peer", sender.ID()).
			Uint64("server_id", request.ServerID).
			Str("endpoint", netip.AddrPortFrom(gameServer.ExternalAddress(), gameServer.Port()).String()).
			Msg("registration rejected, endpoint unreachable")
		return sender.Send(&messages.RegistrationFailure{Result: messages.RegistrationFailureConnectionFailed})
	}

	s.registry.Add(ctx, gameServer)
	sender.SetSessionData(gameServer)

	err := sender.Send(
		&messages.RegistrationSuccess{ServerID: request.ServerID, ExternalAddress: gameServer.ExternalAddress()},
		&messages.TCPConnectionUnrequireEvent{},
	)
	if err != nil {
		return fmt.Errorf("send registration success: %w", err)
	}
	return nil
}

func (s *Service) boundGameServer(sender service.Peer) *GameServer {
	gameServer, _ := sender.SessionData().(*GameServer)
	return gameServer
}

func (s *Service) clearPeerRegistration(ctx context.Context, sender service.Peer) {
	if gameServer := s.boundGameServer(sender); gameServer != nil {
		s.registry.Remove(ctx, gameServer.ServerID())
	}
	sender.ClearSessionData()
}
