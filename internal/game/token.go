package game

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
)

// TokenTTLMillis is how long a reconnect token stays valid.
const TokenTTLMillis = 60 * 60 * 1000 // 1 hour

// MintToken returns a fresh 64-hex reconnect token (256 bits from a CSPRNG).
func MintToken() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}

// VerifyToken compares a presented token against the stored one in constant
// time and checks expiry.
func VerifyToken(stored string, expiry int64, presented string) bool {
	if stored == "" || presented == "" {
		return false
	}
	if expiry != 0 && NowMillis() > expiry {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(presented)) == 1
}
