package utils

import (
	"encoding/hex"
	"sort"

	"github.com/zeebo/xxh3"
)

// SortedKeys returns the keys of m in ascending order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// HashContent fingerprints content with xxh3-128. Not for security use.
func HashContent(content []byte) string {
	hash := xxh3.Hash128(content).Bytes()
	return hex.EncodeToString(hash[:])
}
