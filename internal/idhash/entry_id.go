package idhash

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"
)

// ComputeEntryID computes a deterministic cache entry id using SHA256.
// Formula: SHA256(category|key|schema_version)
// Returns base58-encoded hash.
func ComputeEntryID(category, key string, schemaVersion int) string {
	data := fmt.Sprintf("%s|%s|%d", category, key, schemaVersion)
	hash := sha256.Sum256([]byte(data))
	return base58.Encode(hash[:])
}

// Checksum returns the base58-encoded SHA256 of a payload.
func Checksum(payload []byte) string {
	hash := sha256.Sum256(payload)
	return base58.Encode(hash[:])
}
