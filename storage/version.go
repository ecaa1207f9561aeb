package storage

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
)

// HashVersion derives a version token from a write revision and the written
// content. Embedding the revision makes every write produce a fresh token, even
// when the content is unchanged.
func HashVersion(revision uint64, content []byte) string {
	h := sha1.New()
	var rev [8]byte
	binary.BigEndian.PutUint64(rev[:], revision)
	h.Write(rev[:])
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}
