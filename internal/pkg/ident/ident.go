// Package ident generates short prefixed identifiers for store entities.
package ident

import (
	crypto_rand "crypto/rand"
	"strings"
	"time"
)

// Base62 alphabet: 0-9, A-Z, a-z (62 characters)
const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const randomLength = 16

// Entity prefixes. The prefix makes an id self-describing in logs and
// in the admin console.
const (
	PrefixProduct  = "prd"
	PrefixJob      = "job"
	PrefixSchedule = "sch"
)

// encodeTimestamp encodes a Unix timestamp (seconds) as a 6-character base62
// string. Lexicographically sortable, which keeps B-tree index locality for
// newly inserted rows.
func encodeTimestamp(timestampSeconds int64) string {
	n := timestampSeconds
	result := make([]byte, 6)
	for i := 5; i >= 0; i-- {
		result[i] = base62Alphabet[n%62]
		n = n / 62
	}
	return string(result)
}

// randomBase62 generates a random base62 string using rejection sampling for
// uniform distribution: 6 bits are extracted at a time and values >= 62 are
// discarded (~3% rejection rate).
func randomBase62(length int) string {
	bytesNeeded := (length*6)/8 + 4
	buf := make([]byte, bytesNeeded)
	if _, err := crypto_rand.Read(buf); err != nil {
		panic("ident: failed to read random bytes: " + err.Error())
	}

	var result strings.Builder
	bitBuffer := uint64(0)
	bitsInBuffer := uint(0)
	byteIndex := 0

	for result.Len() < length {
		for bitsInBuffer < 6 && byteIndex < len(buf) {
			bitBuffer = (bitBuffer << 8) | uint64(buf[byteIndex])
			bitsInBuffer += 8
			byteIndex++
		}

		value := (bitBuffer >> (bitsInBuffer - 6)) & 0x3f
		bitsInBuffer -= 6

		if value < 62 {
			result.WriteByte(base62Alphabet[value])
		}

		if byteIndex >= len(buf) && result.Len() < length {
			if _, err := crypto_rand.Read(buf); err != nil {
				panic("ident: failed to read random bytes: " + err.Error())
			}
			byteIndex = 0
			bitBuffer = 0
			bitsInBuffer = 0
		}
	}

	return result.String()
}

// New generates a prefixed id with a time-sortable component, e.g.
// "prd_0CL2KwaB3cD5eF7gH9iJ1k".
func New(prefix string) string {
	return prefix + "_" + encodeTimestamp(time.Now().Unix()) + randomBase62(randomLength)
}

// NewRandom generates a prefixed id without the time prefix. Used for job ids,
// where creation order carries no meaning.
func NewRandom(prefix string) string {
	return prefix + "_" + randomBase62(randomLength)
}
