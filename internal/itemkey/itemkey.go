// Package itemkey builds the composite keys used by key-value drivers.
package itemkey

import (
	"bytes"
	"strings"
)

// Separator joins the partition key and the id. It is the ASCII unit
// separator, which does not occur in ordinary ids.
const Separator = '\x1f'

// Compose returns the storage key for an item: partitionKey, Separator, id.
// Items of one partition sort next to each other.
func Compose(partitionKey, id string) []byte {
	key := make([]byte, 0, len(partitionKey)+1+len(id))
	key = append(key, partitionKey...)
	key = append(key, Separator)
	return append(key, id...)
}

// Split reverses Compose. The partition key ends at the first separator, so
// an id may itself contain one.
func Split(key []byte) (partitionKey, id string, ok bool) {
	i := bytes.IndexByte(key, Separator)
	if i < 0 {
		return "", "", false
	}
	return string(key[:i]), string(key[i+1:]), true
}

// PartitionPrefix returns the key prefix shared by every item of partitionKey.
func PartitionPrefix(partitionKey string) []byte {
	return append([]byte(partitionKey), Separator)
}

// Valid reports whether partitionKey can be composed without ambiguity.
func Valid(partitionKey string) bool {
	return !strings.ContainsRune(partitionKey, Separator)
}
