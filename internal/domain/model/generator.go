package model

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

const (
	localPartLength = 10
	passwordLength  = 16

	addressAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// RandomLocalPart returns a lowercase-alphanumeric string of the standard
// local-part length. Uniqueness is probabilistic; no collision detection is
// performed against existing addresses.
func RandomLocalPart() string {
	return randomString(localPartLength)
}

// RandomPassword returns a throwaway account password.
func RandomPassword() string {
	return randomString(passwordLength)
}

func randomString(n int) string {
	var b strings.Builder
	b.Grow(n)
	for range n {
		b.WriteByte(addressAlphabet[rand.IntN(len(addressAlphabet))])
	}
	return b.String()
}

// NewRandomAddress composes an Address from a random local part and the
// given domain. Pure apart from randomness: no I/O, returns immediately.
func NewRandomAddress(domain string, now time.Time) Address {
	local := RandomLocalPart()
	return Address{
		LocalPart:   local,
		Domain:      domain,
		FullAddress: fmt.Sprintf("%s@%s", local, domain),
		CreatedAt:   now,
	}
}
