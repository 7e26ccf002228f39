package messages

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SessionSettings is the JSON settings document embedded in a StartSession
// message. Fields the relay does not model are preserved verbatim across a
// decode/encode round trip.
type SessionSettings struct {
	// AppID identifies the application the session belongs to.
	AppID *string
	// GameType is a symbol for the gametype of the session, if set.
	GameType *int64
	// Level is a symbol for the level of the session, if set.
	Level *int64
	// Extra holds any additional fields not modeled above.
	Extra map[string]jsoniter.RawMessage
}

// NewSessionSettings builds a settings document from the given values; nil
// values leave the corresponding field absent.
func NewSessionSettings(appID *string, gametype, level *int64) SessionSettings {
	return SessionSettings{AppID: appID, GameType: gametype, Level: level}
}

// Merge overlays non-nil fields and extra entries of other onto a copy of s.
func (s SessionSettings) Merge(other SessionSettings) SessionSettings {
	merged := s
	if other.AppID != nil {
		merged.AppID = other.AppID
	}
	if other.GameType != nil {
		merged.GameType = other.GameType
	}
	if other.Level != nil {
		merged.Level = other.Level
	}
	if len(other.Extra) > 0 {
		merged.Extra = make(map[string]jsoniter.RawMessage, len(s.Extra)+len(other.Extra))
		for k, v := range s.Extra {
			merged.Extra[k] = v
		}
		for k, v := range other.Extra {
			merged.Extra[k] = v
		}
	}
	return merged
}

func (s SessionSettings) MarshalJSON() ([]byte, error) {
	doc := make(map[string]jsoniter.RawMessage, len(s.Extra)+3)
	for k, v := range s.Extra {
		doc[k] = v
	}
	var err error
	if s.AppID != nil {
		if doc["appid"], err = json.Marshal(*s.AppID); err != nil {
			return nil, err
		}
	}
	if s.GameType != nil {
		if doc["gametype"], err = json.Marshal(*s.GameType); err != nil {
			return nil, err
		}
	}
	if s.Level != nil {
		if doc["level"], err = json.Marshal(*s.Level); err != nil {
			return nil, err
		}
	}
	return json.Marshal(doc)
}

func (s *SessionSettings) UnmarshalJSON(data []byte) error {
	var doc map[string]jsoniter.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*s = SessionSettings{}
	for key, raw := range doc {
		var err error
		switch key {
		case "appid":
			s.AppID = new(string)
			err = json.Unmarshal(raw, s.AppID)
		case "gametype":
			s.GameType = new(int64)
			err = json.Unmarshal(raw, s.GameType)
		case "level":
			s.Level = new(int64)
			err = json.Unmarshal(raw, s.Level)
		default:
			if s.Extra == nil {
				s.Extra = make(map[string]jsoniter.RawMessage)
			}
			s.Extra[key] = raw
		}
		if err != nil {
			return fmt.Errorf("session settings: field %q: %w", key, err)
		}
	}
	return nil
}

func (s *SessionSettings) String() string {
	appID, gametype, level := "<nil>", "<nil>", "<nil>"
	if s.AppID != nil {
		appID = *s.AppID
	}
	if s.GameType != nil {
		gametype = fmt.Sprintf("%d", *s.GameType)
	}
	if s.Level != nil {
		level = fmt.Sprintf("%d", *s.Level)
	}
	return fmt.Sprintf("<appid=%s, gametype=%s, level=%s>", appID, gametype, level)
}
