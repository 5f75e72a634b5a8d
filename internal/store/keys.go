package store

import "sync"

// keyPool provides reusable byte slices for building database keys.
var keyPool = sync.Pool{
	New: func() any {
		// Prefix plus a prefixed NanoID fits comfortably.
		return make([]byte, 0, 64)
	},
}

// buildKey constructs a database key from prefix and suffix using a pooled buffer.
// Callers MUST call releaseKey when done with the key.
//
// Usage:
//
//	key := buildKey(itemPrefix, itemID)
//	defer releaseKey(key)
//	item, err := txn.Get(key)
func buildKey(prefix, suffix string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0]
	buf = append(buf, prefix...)
	buf = append(buf, suffix...)
	return buf
}

// releaseKey returns a key buffer to the pool for reuse.
// After calling this, the key slice must not be used.
func releaseKey(key []byte) {
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}
