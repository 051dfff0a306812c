// Package hash provides hashing utilities.
package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// SHA256 computes the SHA256 hash of data and returns it as a hex string.
func SHA256(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SHA256String computes the SHA256 hash of a string.
func SHA256String(s string) string {
	return SHA256([]byte(s))
}

// SHA256Short returns the first n characters of a SHA256 hash.
func SHA256Short(data []byte, n int) string {
	h := SHA256(data)
	if n > len(h) {
		return h
	}
	return h[:n]
}

// EventID generates a deterministic event ID from a topic, a subject, and
// a timestamp in unix nanoseconds.
func EventID(topic, subject string, ts int64) string {
	data := []byte(topic + ":" + subject + ":" + strconv.FormatInt(ts, 10))
	return SHA256Short(data, 16)
}

// CacheKey generates a namespaced cache key for a piece of text.
func CacheKey(prefix, text string) string {
	return prefix + SHA256Short([]byte(text), 16)
}
