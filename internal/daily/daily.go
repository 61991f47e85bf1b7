package daily

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"time"

	"github.com/robalobadob/bullscows/apps/go-server/internal/game"
)

// DateKey returns YYYY-MM-DD in UTC.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// SecretRank returns a deterministic secret rank for a date using
// HMAC(salt, YYYY-MM-DD) % game.SecretCount.
func SecretRank(date time.Time, salt string) int {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(DateKey(date)))
	sum := h.Sum(nil)
	// take first 8 bytes to uint64 for modulus distribution
	n := binary.BigEndian.Uint64(sum[:8])
	return int(n % game.SecretCount)
}

// Secret is the daily challenge secret for date.
func Secret(date time.Time, salt string) game.Secret {
	return game.SecretAt(SecretRank(date, salt))
}
