package idgen

import (
	"crypto/rand"
	"encoding/binary"
)

// NewID returns a random positive int64. Collision odds are negligible for
// the id volumes a single deployment produces.
func NewID() int64 {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	id := int64(binary.BigEndian.Uint64(buf[:]) >> 1)
	if id == 0 {
		id = 1
	}
	return id
}
