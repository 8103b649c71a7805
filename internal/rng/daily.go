package rng

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// DailySeed returns a deterministic seed for a date using HMAC(salt, YYYY-MM-DD).
// Every player generating with the same date and salt gets the same board.
func DailySeed(date time.Time, salt string) int64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes, top bit cleared so the seed stays non-negative
	return int64(binary.BigEndian.Uint64(sum[:8]) >> 1)
}

// Daily returns a Source seeded for the given date.
func Daily(date time.Time, salt string) *Rand {
	return NewSeeded(DailySeed(date, salt))
}
