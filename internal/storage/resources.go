package storage

import (
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/Xenomega/EchoRelay-sub000/internal/game"
)

// AccessControlList holds allow and disallow rules for peer addresses,
// supporting wildcard ("*") matching. Allow rules are checked before
// disallow rules.
type AccessControlList struct {
	AllowRules    []string `json:"allow_rules"`
	DisallowRules []string `json:"disallow_rules"`
}

// Account is a player account resource, keyed by platform id. The profile
// documents are passed through to clients opaquely; the relay does not
// interpret their fields.
type Account struct {
	UserID game.PlatformID `json:"-"`

	Profile     AccountProfile `json:"profile"`
	IsModerator bool           `json:"is_moderator"`
	BannedUntil *time.Time     `json:"banned_until,omitempty"`

	// Account lock, when set: an scrypt digest over a numeric code plus the
	// salt it was derived with.
	AccountLockHash []byte `json:"account_lock_hash,omitempty"`
	AccountLockSalt []byte `json:"account_lock_salt,omitempty"`
}

// AccountProfile pairs the client- and server-maintained halves of a
// player profile.
type AccountProfile struct {
	Client jsoniter.RawMessage `json:"client"`
	Server jsoniter.RawMessage `json:"server"`
}

// Key returns the platform id the account is stored under.
func (a *Account) Key() game.PlatformID { return a.UserID }

// Banned reports whether the account is banned at the given time.
func (a *Account) Banned(now time.Time) bool {
	return a.BannedUntil != nil && now.Before(*a.BannedUntil)
}

// ChannelInfo describes the in-game channels advertised to clients.
type ChannelInfo struct {
	Group []Channel `json:"group"`
}

// Channel is a single advertised channel.
type Channel struct {
	ChannelUUID string `json:"channeluuid"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Rules       string `json:"rules"`
	// RulesVersion must increase monotonically; clients re-accept rules
	// when it does.
	RulesVersion uint64 `json:"rules_version"`
	Link         string `json:"link"`
}

// ConfigKey identifies a config resource by type and identifier.
type ConfigKey struct {
	Type       string
	Identifier string
}

// ConfigResource is a game configuration document served to clients.
type ConfigResource struct {
	Type       string              `json:"type"`
	Identifier string              `json:"id"`
	Body       jsoniter.RawMessage `json:"-"`
}

func (c *ConfigResource) Key() ConfigKey {
	return ConfigKey{Type: c.Type, Identifier: c.Identifier}
}

// DocumentKey identifies a document resource by type and language.
type DocumentKey struct {
	Type     string
	Language string
}

// Document is a localized document (EULA and similar) served to clients.
type Document struct {
	Type     string              `json:"type"`
	Language string              `json:"lang"`
	Body     jsoniter.RawMessage `json:"-"`
}

func (d *Document) Key() DocumentKey {
	return DocumentKey{Type: d.Type, Language: d.Language}
}

// LoginSettings carries the environment flags returned to clients during
// login.
type LoginSettings struct {
	IAPUnlocked           bool                `json:"iap_unlocked"`
	RemoteLogSocial       bool                `json:"remote_log_social"`
	RemoteLogWarnings     bool                `json:"remote_log_warnings"`
	RemoteLogErrors       bool                `json:"remote_log_errors"`
	RemoteLogRichPresence bool                `json:"remote_log_rich_presence"`
	RemoteLogMetrics      bool                `json:"remote_log_metrics"`
	Environment           string              `json:"env"`
	MatchmakerQueueMode   string              `json:"matchmaker_queue_mode"`
	ConfigData            jsoniter.RawMessage `json:"config_data,omitempty"`
}

// SymbolCache is a two-way lookup between symbol identifiers and names. It
// implements game.SymbolNames for consumers that only resolve names.
type SymbolCache struct {
	mu      sync.RWMutex
	names   map[game.Symbol]string
	symbols map[string]game.Symbol
}

// NewSymbolCache builds a cache from a name-to-symbol table.
func NewSymbolCache(namesToSymbols map[string]game.Symbol) *SymbolCache {
	cache := &SymbolCache{
		names:   make(map[game.Symbol]string, len(namesToSymbols)),
		symbols: make(map[string]game.Symbol, len(namesToSymbols)),
	}
	for name, symbol := range namesToSymbols {
		cache.symbols[name] = symbol
		cache.names[symbol] = name
	}
	return cache
}

// Add binds a name to a symbol, displacing any prior binding of either side
// so the two lookups stay mirrored.
func (c *SymbolCache) Add(name string, symbol game.Symbol) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if prior, ok := c.symbols[name]; ok {
		delete(c.names, prior)
	}
	if prior, ok := c.names[symbol]; ok {
		delete(c.symbols, prior)
	}
	c.symbols[name] = symbol
	c.names[symbol] = name
}

// Name returns the name bound to a symbol.
func (c *SymbolCache) Name(symbol game.Symbol) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[symbol]
	return name, ok
}

// Symbol returns the symbol bound to a name.
func (c *SymbolCache) Symbol(name string) (game.Symbol, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	symbol, ok := c.symbols[name]
	return symbol, ok
}

// Count returns the number of bindings in the cache.
func (c *SymbolCache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.symbols)
}

var _ game.SymbolNames = (*SymbolCache)(nil)
