package serverdb

import (
	"context"
	"encoding/binary"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startPingResponder runs a UDP endpoint that answers raw ping requests.
// mangle may rewrite the reply before it is sent; a nil return drops it.
func startPingResponder(t *testing.T, mangle func(reply []byte) []byte) netip.AddrPort {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	go func() {
		buf := make([]byte, 64)
		for {
			n, from, err := conn.ReadFromUDP(buf)
			if err != nil {
				return
			}
			if n != 16 || binary.LittleEndian.Uint64(buf[0:8]) != RawPingRequestSymbol {
				continue
			}
			reply := make([]byte, 16)
			binary.LittleEndian.PutUint64(reply[0:8], RawPingAcknowledgeSymbol)
			copy(reply[8:16], buf[8:16])
			if mangle != nil {
				reply = mangle(reply)
			}
			if reply == nil {
				continue
			}
			conn.WriteToUDP(reply, from)
		}
	}()
	return conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

func TestProber_AcknowledgedEndpoint(t *testing.T) {
	endpoint := startPingResponder(t, nil)
	prober := NewProber(2 * time.Second)
	assert.True(t, prober.CheckAvailable(context.Background(), endpoint))
}

func TestProber_SilentEndpointTimesOut(t *testing.T) {
	// A bound but unread socket: requests arrive and are never answered.
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()
	endpoint := conn.LocalAddr().(*net.UDPAddr).AddrPort()

	prober := NewProber(200 * time.Millisecond)
	start := time.Now()
	assert.False(t, prober.CheckAvailable(context.Background(), endpoint))
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestProber_ContextCancelUnblocks(t *testing.T) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	defer conn.Close()
	endpoint := conn.LocalAddr().(*net.UDPAddr).AddrPort()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	prober := NewProber(10 * time.Second)
	start := time.Now()
	assert.False(t, prober.CheckAvailable(ctx, endpoint))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestProber_WrongNonceRejected(t *testing.T) {
	endpoint := startPingResponder(t, func(reply []byte) []byte {
		reply[8] ^= 0xFF
		return reply
	})
	prober := NewProber(300 * time.Millisecond)
	assert.False(t, prober.CheckAvailable(context.Background(), endpoint))
}

func TestProber_WrongSymbolRejected(t *testing.T) {
	endpoint := startPingResponder(t, func(reply []byte) []byte {
		binary.LittleEndian.PutUint64(reply[0:8], RawPingRequestSymbol)
		return reply
	})
	prober := NewProber(300 * time.Millisecond)
	assert.False(t, prober.CheckAvailable(context.Background(), endpoint))
}

func TestProber_TruncatedReplyRejected(t *testing.T) {
	endpoint := startPingResponder(t, func(reply []byte) []byte {
		return reply[:12]
	})
	prober := NewProber(300 * time.Millisecond)
	assert.False(t, prober.CheckAvailable(context.Background(), endpoint))
}
