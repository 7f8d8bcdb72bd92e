package registry

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateRoomID - builds a room identifier from the creator's display name
// and a random hex suffix, so concurrent creators never need a shared
// counter.
func GenerateRoomID(creatorName string) string {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return creatorName + "#00000000"
	}

	return creatorName + "#" + hex.EncodeToString(b)
}
