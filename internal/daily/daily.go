// internal/daily/daily.go
//
// Daily puzzle selection.
//   - Every UTC date maps to one catalogue index via HMAC(salt, YYYY-MM-DD).
//   - The salt keeps tomorrow's puzzle unguessable from the date alone.
//   - Results and the link from a date to a player's game live in store.go.

// Package daily picks the puzzle of the day and keeps daily results.
package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"
)

// Mode is the games.mode value of daily games.
const Mode = "daily"

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// PuzzleIndex returns a deterministic catalogue index for a date using
// HMAC(salt, YYYY-MM-DD) % n.
func PuzzleIndex(date time.Time, salt string, n int) int {
	if n <= 0 {
		return 0
	}
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// first 8 bytes as uint64 for the modulus
	v := binary.BigEndian.Uint64(sum[:8])
	return int(v % uint64(n))
}
