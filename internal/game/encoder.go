package game

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
)

// EncoderSettings describes the per-connection packet encoder parameters
// handed to a game server and a client when a session is matched. The actual
// cipher/MAC implementation is out of scope here; only the parameter layout
// and key material generation live in this package.
type EncoderSettings struct {
	EncryptionEnabled   bool
	MACEnabled          bool
	MACDigestSize       int
	MACPBKDF2Iterations int
	MACKeySize          int
	EncryptionKeySize   int
	RandomKeySize       int
}

// DefaultServerEncoderSettings returns the encoder parameters issued to the
// game server side of a matched session.
func DefaultServerEncoderSettings() EncoderSettings {
	return EncoderSettings{
		EncryptionEnabled: true,
		MACEnabled:        true,
		MACDigestSize:     32,
		MACKeySize:        32,
		EncryptionKeySize: 32,
		RandomKeySize:     32,
	}
}

// DefaultClientEncoderSettings returns the encoder parameters issued to the
// client side of a matched session.
func DefaultClientEncoderSettings() EncoderSettings {
	return EncoderSettings{
		EncryptionEnabled: true,
		MACEnabled:        true,
		MACDigestSize:     64,
		MACKeySize:        32,
		EncryptionKeySize: 32,
		RandomKeySize:     32,
	}
}

// Flags packs the settings into the 64-bit wire representation: two enable
// bits followed by five 12-bit size fields.
func (s EncoderSettings) Flags() uint64 {
	var flags uint64
	if s.EncryptionEnabled {
		flags |= 1
	}
	if s.MACEnabled {
		flags |= 1 << 1
	}
	flags |= uint64(s.MACDigestSize&0xFFF) << 2
	flags |= uint64(s.MACPBKDF2Iterations&0xFFF) << 14
	flags |= uint64(s.MACKeySize&0xFFF) << 26
	flags |= uint64(s.EncryptionKeySize&0xFFF) << 38
	flags |= uint64(s.RandomKeySize&0xFFF) << 50
	return flags
}

// EncoderSettingsFromFlags unpacks the 64-bit wire representation.
func EncoderSettingsFromFlags(flags uint64) EncoderSettings {
	return EncoderSettings{
		EncryptionEnabled:   flags&1 != 0,
		MACEnabled:          flags&2 != 0,
		MACDigestSize:       int(flags>>2) & 0xFFF,
		MACPBKDF2Iterations: int(flags>>14) & 0xFFF,
		MACKeySize:          int(flags>>26) & 0xFFF,
		EncryptionKeySize:   int(flags>>38) & 0xFFF,
		RandomKeySize:       int(flags>>50) & 0xFFF,
	}
}

// EncoderParameters is a full set of per-connection key material for one side
// of a matched session.
type EncoderParameters struct {
	Settings   EncoderSettings
	SequenceID uint64
	MACKey     []byte
	EncKey     []byte
	RandomKey  []byte
}

// NewEncoderParameters generates fresh key material for the given settings
// using a cryptographically secure RNG.
func NewEncoderParameters(settings EncoderSettings) (EncoderParameters, error) {
	p := EncoderParameters{Settings: settings}

	var seq [8]byte
	if _, err := rand.Read(seq[:]); err != nil {
		return p, fmt.Errorf("game: generate sequence id: %w", err)
	}
	p.SequenceID = binary.LittleEndian.Uint64(seq[:])

	for _, key := range []struct {
		dst  *[]byte
		size int
	}{
		{&p.MACKey, settings.MACKeySize},
		{&p.EncKey, settings.EncryptionKeySize},
		{&p.RandomKey, settings.RandomKeySize},
	} {
		*key.dst = make([]byte, key.size)
		if _, err := rand.Read(*key.dst); err != nil {
			return p, fmt.Errorf("game: generate key material: %w", err)
		}
	}
	return p, nil
}
