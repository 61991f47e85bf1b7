// apps/go-server/internal/game/random.go
//
// Random sources for secret generation.
//   - CryptoSource: crypto/rand, the server default.
//   - NewSeededSource: deterministic PCG, selected by GAME_SEED for replays.

package game

import (
	crand "crypto/rand"
	"math/big"
	"math/rand/v2"
)

// Source supplies uniform integers in [0, n). n is always in 1..10 here.
// Tests inject deterministic sources to pin the generated secret.
type Source interface {
	IntN(n int) int
}

// CryptoSource draws from crypto/rand. It is the server default.
type CryptoSource struct{}

// IntN returns a uniform value in [0, n).
func (CryptoSource) IntN(n int) int {
	v, err := crand.Int(crand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("game: crypto/rand: " + err.Error())
	}
	return int(v.Int64())
}

// NewSeededSource returns a deterministic PCG-backed source.
// The same seed always produces the same sequence of secrets.
func NewSeededSource(seed uint64) Source {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
