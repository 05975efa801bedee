package auth

import (
	"crypto/rand"
	"strconv"
	"strings"
	"time"
)

// GuestPrefix tags server-minted pseudo-identities. The prefix is part of
// the widget contract: clients persist the whole id and replay it on
// reconnect, and the verifier exempts tagged ids from verification.
const GuestPrefix = "guest_"

const guestAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
const guestSuffixLen = 9

// NewGuestID mints a guest identity with a collision-resistant random
// suffix. The allocator is stateless; continuity across visits depends
// entirely on the client storing and replaying the id.
func NewGuestID() string {
	buf := make([]byte, guestSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		// Fallback to timestamp if crypto/rand is unavailable.
		return GuestPrefix + strconv.FormatInt(time.Now().UnixNano(), 36)
	}

	var b strings.Builder
	b.Grow(len(GuestPrefix) + guestSuffixLen)
	b.WriteString(GuestPrefix)
	for _, c := range buf {
		b.WriteByte(guestAlphabet[int(c)%len(guestAlphabet)])
	}
	return b.String()
}

// IsGuestID reports whether a peer id carries the guest tag.
func IsGuestID(id string) bool {
	return strings.HasPrefix(id, GuestPrefix)
}
