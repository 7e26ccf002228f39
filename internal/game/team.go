package game

// TeamIndex is the faction or role slot a player requests when matching into
// a session.
type TeamIndex int16

const (
	TeamAny                    TeamIndex = -1
	TeamBlue                   TeamIndex = 0
	TeamOrange                 TeamIndex = 1
	TeamSpectator              TeamIndex = 2
	TeamSocialLobbyParticipant TeamIndex = 3
	TeamModerator              TeamIndex = 4
)

// Active reports whether the team index counts as an active game participant
// (any, blue or orange) rather than a spectator-like role.
func (t TeamIndex) Active() bool {
	return t == TeamAny || t == TeamBlue || t == TeamOrange
}

// String returns the string representation of the team index.
func (t TeamIndex) String() string {
	switch t {
	case TeamAny:
		return "any"
	case TeamBlue:
		return "blue"
	case TeamOrange:
		return "orange"
	case TeamSpectator:
		return "spectator"
	case TeamSocialLobbyParticipant:
		return "social_lobby_participant"
	case TeamModerator:
		return "moderator"
	}
	return "unknown"
}

// LobbyType is the visibility class of a session.
type LobbyType byte

const (
	LobbyPublic     LobbyType = 0
	LobbyPrivate    LobbyType = 1
	LobbyUnassigned LobbyType = 2
)

// String returns the string representation of the lobby type.
func (l LobbyType) String() string {
	switch l {
	case LobbyPublic:
		return "public"
	case LobbyPrivate:
		return "private"
	case LobbyUnassigned:
		return "unassigned"
	}
	return "unknown"
}
