package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Xenomega/EchoRelay-sub000/internal/game"
)

func TestSymbolCache_TwoWayLookup(t *testing.T) {
	cache := NewSymbolCache(map[string]game.Symbol{
		"echo_arena":  -3791849610740453517,
		"echo_combat": 4421472114608583194,
	})

	name, ok := cache.Name(-3791849610740453517)
	require.True(t, ok)
	assert.Equal(t, "echo_arena", name)

	symbol, ok := cache.Symbol("echo_combat")
	require.True(t, ok)
	assert.Equal(t, game.Symbol(4421472114608583194), symbol)

	_, ok = cache.Name(42)
	assert.False(t, ok)
	assert.Equal(t, 2, cache.Count())
}

func TestSymbolCache_AddDisplacesPriorBindings(t *testing.T) {
	cache := NewSymbolCache(nil)
	cache.Add("echo_arena", 100)

	// Rebinding the name retires the old symbol.
	cache.Add("echo_arena", 200)
	_, ok := cache.Name(100)
	assert.False(t, ok)

	// Rebinding the symbol retires the old name.
	cache.Add("echo_arena_private", 200)
	_, ok = cache.Symbol("echo_arena")
	assert.False(t, ok)

	name, ok := cache.Name(200)
	require.True(t, ok)
	assert.Equal(t, "echo_arena_private", name)
	assert.Equal(t, 1, cache.Count())
}

func TestSymbolCache_LookupsStayMirrored(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cache := NewSymbolCache(nil)
		names := rapid.SliceOfN(rapid.StringMatching(`[a-z_]{1,12}`), 1, 32).Draw(t, "names")
		for _, name := range names {
			symbol := game.Symbol(rapid.Int64Range(-1000, 1000).Draw(t, "symbol"))
			cache.Add(name, symbol)
		}

		for _, name := range names {
			symbol, ok := cache.Symbol(name)
			if !ok {
				continue // displaced by a later binding
			}
			back, ok := cache.Name(symbol)
			require.True(t, ok)
			require.Equal(t, name, back)
		}
	})
}

func TestAccount_Banned(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	account := &Account{UserID: game.PlatformID{Platform: game.PlatformSteam, AccountID: 76561198000000001}}
	assert.False(t, account.Banned(now))

	until := now.Add(time.Hour)
	account.BannedUntil = &until
	assert.True(t, account.Banned(now))
	assert.False(t, account.Banned(until.Add(time.Second)))
}

func TestResourceKeys(t *testing.T) {
	document := &Document{Type: "eula", Language: "en"}
	assert.Equal(t, DocumentKey{Type: "eula", Language: "en"}, document.Key())

	config := &ConfigResource{Type: "main_menu", Identifier: "main_menu"}
	assert.Equal(t, ConfigKey{Type: "main_menu", Identifier: "main_menu"}, config.Key())

	account := &Account{UserID: game.PlatformID{Platform: game.PlatformSteam, AccountID: 1}}
	assert.Equal(t, account.UserID, account.Key())
}
