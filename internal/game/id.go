package game

import (
	"crypto/rand"
	"regexp"
)

// IDAlphabet omits glyphs easily confused at a glance (I, O, 1, 0).
const (
	IDAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	IDLength   = 6
)

var idPattern = regexp.MustCompile(`^[A-HJ-NP-Z2-9]{6}$`)

// GenerateID returns a random 6-character game id.
func GenerateID() string {
	buf := make([]byte, IDLength)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	for i, b := range buf {
		buf[i] = IDAlphabet[int(b)%len(IDAlphabet)]
	}
	return string(buf)
}

// ValidID reports whether s is a well-formed game id.
func ValidID(s string) bool {
	return idPattern.MatchString(s)
}
