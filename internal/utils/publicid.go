package utils

import (
	"crypto/rand"
	"math/big"
)

// PublicIDLength is the length of every note token generated by NewPublicID.
const PublicIDLength = 9

// publicIDAlphabet is the 62-symbol set a public id is drawn from.
const publicIDAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// NewPublicID returns a fresh 9-character note token drawn uniformly from the
// 62-symbol alphabet using crypto/rand. The token is the only secret
// protecting an anonymous note, so a general-purpose PRNG is not acceptable
// here. Uniqueness is not guaranteed by generation; the store enforces a
// unique constraint and callers retry on collision.
func NewPublicID() (string, error) {
	max := big.NewInt(int64(len(publicIDAlphabet)))
	buf := make([]byte, PublicIDLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = publicIDAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// ValidPublicID reports whether s has the shape of a generated public id.
// Handlers use it to reject malformed route parameters before hitting the DB.
func ValidPublicID(s string) bool {
	if len(s) != PublicIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		ok := (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
		if !ok {
			return false
		}
	}
	return true
}
