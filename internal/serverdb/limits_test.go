package serverdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/Xenomega/EchoRelay-sub000/internal/game"
)

func TestNewPlayerLimits_Bounds(t *testing.T) {
	_, err := NewPlayerLimits(256, nil)
	require.Error(t, err)

	target := 20
	_, err = NewPlayerLimits(16, &target)
	require.Error(t, err)

	target = 8
	limits, err := NewPlayerLimits(16, &target)
	require.NoError(t, err)
	assert.Equal(t, 16, limits.TotalPlayerLimit)
	assert.Equal(t, 8, *limits.FixedActiveGameParticipantTarget)
}

func TestCheckTeamAvailability_TotalLimit(t *testing.T) {
	limits := PlayerLimits{TotalPlayerLimit: 2}
	assert.True(t, limits.CheckTeamAvailability(nil, game.TeamAny))
	assert.True(t, limits.CheckTeamAvailability([]game.TeamIndex{game.TeamBlue}, game.TeamOrange))
	assert.False(t, limits.CheckTeamAvailability([]game.TeamIndex{game.TeamBlue, game.TeamOrange}, game.TeamSpectator))
}

func TestCheckTeamAvailability_NoFixedTarget(t *testing.T) {
	limits := PlayerLimits{TotalPlayerLimit: 16}
	current := make([]game.TeamIndex, 15)
	for i := range current {
		current[i] = game.TeamBlue
	}
	assert.True(t, limits.CheckTeamAvailability(current, game.TeamBlue))
}

func TestCheckTeamAvailability_ActiveTargetScenario(t *testing.T) {
	// With 16 total and 8 reserved active slots: after 8 active admissions a
	// 9th active request is rejected while spectators are still accepted
	// until the remaining 8 slots fill.
	target := 8
	limits := PlayerLimits{TotalPlayerLimit: 16, FixedActiveGameParticipantTarget: &target}

	var current []game.TeamIndex
	activeTeams := []game.TeamIndex{game.TeamBlue, game.TeamOrange, game.TeamAny}
	for i := 0; i < 8; i++ {
		team := activeTeams[i%len(activeTeams)]
		require.True(t, limits.CheckTeamAvailability(current, team), "active admission %d", i)
		current = append(current, team)
	}

	assert.False(t, limits.CheckTeamAvailability(current, game.TeamBlue))
	assert.False(t, limits.CheckTeamAvailability(current, game.TeamAny))

	for i := 0; i < 8; i++ {
		require.True(t, limits.CheckTeamAvailability(current, game.TeamSpectator), "spectator admission %d", i)
		current = append(current, game.TeamSpectator)
	}
	assert.False(t, limits.CheckTeamAvailability(current, game.TeamSpectator))
	assert.False(t, limits.CheckTeamAvailability(current, game.TeamModerator))
}

func TestCheckTeamAvailability_NeverExceedsLimits_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		total := rapid.IntRange(1, 32).Draw(t, "total")
		var fixedTarget *int
		if rapid.Bool().Draw(t, "hasTarget") {
			target := rapid.IntRange(0, total).Draw(t, "target")
			fixedTarget = &target
		}
		limits := PlayerLimits{TotalPlayerLimit: total, FixedActiveGameParticipantTarget: fixedTarget}

		teams := []game.TeamIndex{
			game.TeamAny, game.TeamBlue, game.TeamOrange,
			game.TeamSpectator, game.TeamSocialLobbyParticipant, game.TeamModerator,
		}
		var admitted []game.TeamIndex
		requests := rapid.IntRange(1, 64).Draw(t, "requests")
		for i := 0; i < requests; i++ {
			team := teams[rapid.IntRange(0, len(teams)-1).Draw(t, "team")]
			if limits.CheckTeamAvailability(admitted, team) {
				admitted = append(admitted, team)
			}
		}

		if len(admitted) > total {
			t.Fatalf("admitted %d players beyond total limit %d", len(admitted), total)
		}
		if fixedTarget != nil {
			active := 0
			for _, team := range admitted {
				if team.Active() {
					active++
				}
			}
			if active > *fixedTarget {
				t.Fatalf("admitted %d active players beyond target %d", active, *fixedTarget)
			}
			if len(admitted)-active > total-*fixedTarget {
				t.Fatalf("admitted %d non-active players beyond %d", len(admitted)-active, total-*fixedTarget)
			}
		}
	})
}

func TestLimitsPolicy_Lookup(t *testing.T) {
	policy := testPolicy()

	arena := policy.ForGameType(arenaSymbol)
	require.NotNil(t, arena.FixedActiveGameParticipantTarget)
	assert.Equal(t, 16, arena.TotalPlayerLimit)
	assert.Equal(t, 8, *arena.FixedActiveGameParticipantTarget)

	// Gametypes without a policy entry, and unknown symbols, use defaults.
	assert.Equal(t, DefaultPlayerLimits, policy.ForGameType(customSymbol))
	assert.Equal(t, DefaultPlayerLimits, policy.ForGameType(game.Symbol(9999)))

	// Lookups are case insensitive.
	policy.Set("ECHO_DEMO", PlayerLimits{TotalPlayerLimit: 4})
	assert.Equal(t, 4, policy.ForGameType(customSymbol).TotalPlayerLimit)
}

func TestLimitsPolicy_NilNamesFallsBack(t *testing.T) {
	policy := NewLimitsPolicy(nil)
	assert.Equal(t, DefaultPlayerLimits, policy.ForGameType(arenaSymbol))
}
