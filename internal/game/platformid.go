package game

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Xenomega/EchoRelay-sub000/internal/codec"
)

// PlatformCode identifies the account platform half of a PlatformID.
type PlatformCode uint64

const (
	PlatformSteam PlatformCode = iota + 1
	PlatformPSN
	PlatformXbox
	PlatformOVROrg
	PlatformOVR
	PlatformBot
	PlatformDemo
	PlatformTest
)

var platformPrefixes = map[PlatformCode]string{
	PlatformSteam:  "STM",
	PlatformPSN:    "PSN",
	PlatformXbox:   "XBX",
	PlatformOVROrg: "OVR_ORG",
	PlatformOVR:    "OVR",
	PlatformBot:    "BOT",
	PlatformDemo:   "DMO",
	PlatformTest:   "TEN",
}

// Prefix returns the display prefix of the platform code.
func (c PlatformCode) Prefix() string {
	if p, ok := platformPrefixes[c]; ok {
		return p
	}
	return "UNK"
}

// PlatformID is the 16-byte platform-qualified account identifier of a user.
type PlatformID struct {
	Platform  PlatformCode
	AccountID uint64
}

// ParsePlatformID parses the "PREFIX-accountid" string form of a platform id.
func ParsePlatformID(s string) (PlatformID, error) {
	dash := strings.LastIndex(s, "-")
	if dash < 0 {
		return PlatformID{}, fmt.Errorf("game: malformed platform id %q", s)
	}
	accountID, err := strconv.ParseUint(s[dash+1:], 10, 64)
	if err != nil {
		return PlatformID{}, fmt.Errorf("game: malformed platform id %q: %w", s, err)
	}
	prefix := s[:dash]
	for code, p := range platformPrefixes {
		if p == prefix {
			return PlatformID{Platform: code, AccountID: accountID}, nil
		}
	}
	return PlatformID{}, fmt.Errorf("game: unknown platform prefix %q", prefix)
}

// Stream streams the platform id as two consecutive 64-bit values.
func (id *PlatformID) Stream(io *codec.Stream) {
	code := uint64(id.Platform)
	io.StreamUint64(&code)
	io.StreamUint64(&id.AccountID)
	id.Platform = PlatformCode(code)
}

// String returns the "PREFIX-accountid" form of the platform id.
func (id PlatformID) String() string {
	return fmt.Sprintf("%s-%d", id.Platform.Prefix(), id.AccountID)
}
