package cache

import (
	"fmt"

	"github.com/golang/groupcache/lru"
	"github.com/mitchellh/hashstructure/v2"
)

// NewDedupeLRUFunc returns a func that is true the first time it sees
// a value, and false for a structurally equal value while that value's
// hash remains among the last size entries.
// The func is not safe for concurrent use.
func NewDedupeLRUFunc[T any](size int) func(T) bool {
	dedupeCache := lru.New(size)
	return func(v T) bool {
		hash, err := hashstructure.Hash(v, hashstructure.FormatV2, nil)
		if err != nil {
			return false
		}
		key := fmt.Sprintf("%d", hash)
		if _, ok := dedupeCache.Get(key); ok {
			return false
		}
		dedupeCache.Add(key, true)
		return true
	}
}
