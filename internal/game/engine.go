// apps/go-server/internal/game/engine.go
//
// Guess evaluation for Bulls and Cows.
// Responsibilities:
//   - Generate a uniformly random secret (4 distinct digits).
//   - Validate guesses (length, digits only, no repeats).
//   - Score guesses as bulls and cows.
//   - Map secrets to and from their lexicographic rank (0..5039).
//
// Because both the secret and a valid guess have distinct digits, a plain
// presence check is enough for cows; no frequency counting is needed.
package game

import "slices"

// GenerateSecret draws 4 digits without replacement from 0..9.
// At step i it takes index src.IntN(10-i) into the remaining digits,
// which are kept in ascending order.
func GenerateSecret(src Source) Secret {
	var idx [Length]int
	for i := range idx {
		idx[i] = src.IntN(10 - i)
	}
	return fromIndices(idx)
}

// SecretAt returns the secret with the given lexicographic rank.
// Rank 0 is "0123" and rank SecretCount-1 is "9876".
// Ranks outside [0, SecretCount) wrap around.
func SecretAt(rank int) Secret {
	rank %= SecretCount
	if rank < 0 {
		rank += SecretCount
	}
	var idx [Length]int
	// Mixed radix 10·9·8·7, most significant digit first.
	for i := Length - 1; i >= 0; i-- {
		base := 10 - i
		idx[i] = rank % base
		rank /= base
	}
	return fromIndices(idx)
}

// Rank is the inverse of SecretAt. s must be a valid secret.
func (s Secret) Rank() int {
	pool := digitPool()
	rank := 0
	for i := 0; i < Length; i++ {
		j := slices.Index(pool, s[i])
		rank = rank*(10-i) + j
		pool = slices.Delete(pool, j, j+1)
	}
	return rank
}

// fromIndices picks idx[i] out of the digits still unused after step i-1.
func fromIndices(idx [Length]int) Secret {
	pool := digitPool()
	var s Secret
	for i, j := range idx {
		s[i] = pool[j]
		pool = slices.Delete(pool, j, j+1)
	}
	return s
}

func digitPool() []byte {
	return []byte("0123456789")
}

// IsValidGuess reports whether input is exactly 4 decimal digits with no
// repeats. Any violation yields false; it never errors.
func IsValidGuess(input string) bool {
	if len(input) != Length {
		return false
	}
	var seen [10]bool
	for i := 0; i < Length; i++ {
		c := input[i]
		if c < '0' || c > '9' {
			return false
		}
		if seen[c-'0'] {
			return false
		}
		seen[c-'0'] = true
	}
	return true
}

// Score compares guess against secret.
// For each position: same digit → bull; otherwise, digit anywhere in the
// secret → cow.
//
// The guess must satisfy IsValidGuess. Other input does not panic, but the
// result is meaningless.
func Score(secret Secret, guess string) Result {
	var r Result
	for i := 0; i < Length && i < len(guess); i++ {
		switch {
		case guess[i] == secret[i]:
			r.Bulls++
		case secret.contains(guess[i]):
			r.Cows++
		}
	}
	return r
}

func (s Secret) contains(c byte) bool {
	for _, d := range s {
		if d == c {
			return true
		}
	}
	return false
}
