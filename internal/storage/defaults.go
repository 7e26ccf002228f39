package storage

import "github.com/Xenomega/EchoRelay-sub000/internal/game"

// defaultSymbols are the well-known name-to-symbol bindings for the stock
// game content: gametypes, levels, documents and config resources.
var defaultSymbols = map[string]game.Symbol{
	// Config resources
	"main_menu":                   1516004601999793531,
	"active_battle_pass_season":   8740945458790516606,
	"active_store_entry":          6474864185678376393,
	"active_store_featured_entry": 6145481310444124465,

	// Documents
	"eula": -3980269165643165007,

	// Levels
	"mpl_lobby_b2":          -3415139097788326908,
	"mpl_tutorial_lobby":    4363271643694206015,
	"mpl_arena_a":           6300205991959903307,
	"mpl_tutorial_arena":    4363271690485661735,
	"mpl_combat_combustion": 4784809810443202620,
	"mpl_combat_dyson":      4891712358845785604,
	"mpl_combat_fission":    -2351820497221352492,
	"mpl_combat_gauss":      4891712363006409241,

	// Gametypes
	"social_2.0":                301069346851901302,
	"social_2.0_private":        3485062872400698437,
	"social_2.0_npe":            1601406692177864215,
	"echo_arena":                -3791849610740453517,
	"echo_arena_private":        691594351282457603,
	"echo_arena_tournament":     -3081978974147786912,
	"echo_arena_public_ai":      -3076694376331427079,
	"echo_arena_practice_ai":    -8607855738967935905,
	"echo_arena_private_ai":     -2341211041644966243,
	"echo_arena_first_match":    -1545408622389224342,
	"echo_arena_npe":            -2840452043221058453,
	"echo_combat":               4421472114608583194,
	"echo_combat_private":       3727844164146657855,
	"echo_combat_tournament":    7729563559975407548,
	"echo_combat_public_ai":     4832867265306071705,
	"echo_combat_practice_ai":   2720675696233281171,
	"echo_combat_private_ai":    7060564080080586305,
	"echo_combat_first_match":   5171983837792427686,
	"echo_demo":                 5603003217554343217,
	"echo_demo_public":          3718950499098277919,
}

// DefaultSymbolCache returns a cache seeded with the stock content symbols.
func DefaultSymbolCache() *SymbolCache {
	return NewSymbolCache(defaultSymbols)
}
