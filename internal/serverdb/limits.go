// Package serverdb implements the game server registry: registration of
// dedicated game server processes, their concurrent session state machines,
// slot/team admission policy, and the UDP liveness probe used to vet
// registrations.
package serverdb

import (
	"fmt"
	"strings"
	"sync"

	"github.com/Xenomega/EchoRelay-sub000/internal/game"
)

// PlayerLimits is the admission policy for one gametype: a total player cap
// and, optionally, a fixed number of active-game participant slots within
// that cap.
type PlayerLimits struct {
	// TotalPlayerLimit caps the entire lobby, spectators included.
	TotalPlayerLimit int
	// FixedActiveGameParticipantTarget reserves this many slots for active
	// teams (any/blue/orange). Nil means no reservation.
	FixedActiveGameParticipantTarget *int
}

// NewPlayerLimits validates and builds a PlayerLimits.
func NewPlayerLimits(totalPlayerLimit int, fixedActiveTarget *int) (PlayerLimits, error) {
	if totalPlayerLimit <= 0 || totalPlayerLimit > 255 {
		return PlayerLimits{}, fmt.Errorf("total player limit %d out of range (1-255)", totalPlayerLimit)
	}
	if fixedActiveTarget != nil && *fixedActiveTarget > totalPlayerLimit {
		return PlayerLimits{}, fmt.Errorf("fixed active participant target %d exceeds total player limit %d", *fixedActiveTarget, totalPlayerLimit)
	}
	return PlayerLimits{TotalPlayerLimit: totalPlayerLimit, FixedActiveGameParticipantTarget: fixedActiveTarget}, nil
}

// CheckTeamAvailability reports whether a player requesting the given team
// can be admitted alongside the teams already requested by current players.
func (l PlayerLimits) CheckTeamAvailability(current []game.TeamIndex, requested game.TeamIndex) bool {
	if len(current) >= l.TotalPlayerLimit {
		return false
	}
	if l.FixedActiveGameParticipantTarget == nil {
		return true
	}

	// A player requesting "any" is assigned to blue/orange in a real match,
	// so it counts as an active participant.
	active := 0
	for _, team := range current {
		if team.Active() {
			active++
		}
	}
	nonActive := len(current) - active

	if requested.Active() {
		return *l.FixedActiveGameParticipantTarget-active > 0
	}
	return (l.TotalPlayerLimit-*l.FixedActiveGameParticipantTarget)-nonActive > 0
}

// DefaultPlayerLimits applies to gametypes without a specific policy.
var DefaultPlayerLimits = PlayerLimits{TotalPlayerLimit: 16}

// LimitsPolicy resolves the player limits for a session's gametype by name.
// Lookups are case insensitive.
type LimitsPolicy struct {
	mu     sync.RWMutex
	limits map[string]PlayerLimits
	names  game.SymbolNames
}

// NewLimitsPolicy builds a policy with the built-in arena/combat entries,
// resolving gametype symbols through names. A nil names resolver falls every
// lookup back to the default limits.
func NewLimitsPolicy(names game.SymbolNames) *LimitsPolicy {
	active := 8
	return &LimitsPolicy{
		limits: map[string]PlayerLimits{
			// 4 vs 4 plus spectators.
			"echo_arena":  {TotalPlayerLimit: 16, FixedActiveGameParticipantTarget: &active},
			"echo_combat": {TotalPlayerLimit: 16, FixedActiveGameParticipantTarget: &active},
		},
		names: names,
	}
}

// Set overrides or adds the limits for a gametype name.
func (p *LimitsPolicy) Set(gameTypeName string, limits PlayerLimits) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.limits[strings.ToLower(gameTypeName)] = limits
}

// ForGameType returns the limits for the given gametype symbol, falling back
// to the defaults when the symbol has no name or no specific policy.
func (p *LimitsPolicy) ForGameType(symbol game.Symbol) PlayerLimits {
	if p == nil || p.names == nil {
		return DefaultPlayerLimits
	}
	name, ok := p.names.Name(symbol)
	if !ok {
		return DefaultPlayerLimits
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if limits, ok := p.limits[strings.ToLower(name)]; ok {
		return limits
	}
	return DefaultPlayerLimits
}
