package serverdb

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"net"
	"net/netip"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Raw ping message symbols exchanged with a game server's UDP broadcast
// port during a liveness probe.
const (
	RawPingRequestSymbol     uint64 = 0x997279DE065A03B0
	RawPingAcknowledgeSymbol uint64 = 0x4F7AE556E0B77891
)

// Prober verifies a candidate game server is reachable on its advertised
// UDP endpoint before its registration is trusted. Probes fail closed: any
// internal error reports the endpoint unavailable.
type Prober struct {
	timeout time.Duration
	logger  zerolog.Logger
}

// NewProber creates a prober with the given per-probe timeout.
func NewProber(timeout time.Duration) *Prober {
	return &Prober{
		timeout: timeout,
		logger:  log.With().Str("component", "prober").Logger(),
	}
}

// CheckGameServer probes a registered game server's external endpoint.
func (p *Prober) CheckGameServer(ctx context.Context, server *GameServer) bool {
	return p.CheckAvailable(ctx, netip.AddrPortFrom(server.ExternalAddress(), server.Port()))
}

// CheckAvailable sends a raw ping request with a random nonce to the
// endpoint and waits for a matching acknowledge from that exact remote
// address. It returns false on timeout, mismatch, or any internal error.
func (p *Prober) CheckAvailable(ctx context.Context, endpoint netip.AddrPort) bool {
	deadline := time.Now().Add(p.timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}

	conn, err := net.ListenUDP("udp4", nil)
	if err != nil {
		p.logger.Warn().Err(err).Msg("probe socket failed")
		return false
	}
	defer conn.Close()
	if err := conn.SetDeadline(deadline); err != nil {
		return false
	}

	// Cancel the blocking read when the context is dropped early.
	stop := context.AfterFunc(ctx, func() { conn.SetDeadline(time.Now()) })
	defer stop()

	var nonce [8]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return false
	}
	request := make([]byte, 16)
	binary.LittleEndian.PutUint64(request[0:8], RawPingRequestSymbol)
	copy(request[8:16], nonce[:])

	remote := net.UDPAddrFromAddrPort(endpoint)
	if _, err := conn.WriteToUDP(request, remote); err != nil {
		p.logger.Debug().Err(err).Str("endpoint", endpoint.String()).Msg("probe send failed")
		return false
	}

	buf := make([]byte, 32)
	for {
		n, from, err := conn.ReadFromUDP(buf)
		if err != nil {
			p.logger.Debug().Err(err).Str("endpoint", endpoint.String()).Msg("probe timed out")
			return false
		}
		// Only accept replies from the probed endpoint.
		fromAddr := from.AddrPort()
		if fromAddr.Addr().Unmap() != endpoint.Addr().Unmap() || fromAddr.Port() != endpoint.Port() {
			continue
		}
		if n != len(request) {
			return false
		}
		if binary.LittleEndian.Uint64(buf[0:8]) != RawPingAcknowledgeSymbol {
			return false
		}
		if !bytes.Equal(buf[8:16], nonce[:]) {
			return false
		}
		return true
	}
}
