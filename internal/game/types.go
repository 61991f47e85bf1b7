// apps/go-server/internal/game/types.go
//
// Core type definitions for the Bulls and Cows engine.
// Defines:
//   - Secret: the hidden 4-digit number (distinct digits).
//   - Result: bulls/cows for one scored guess.
//   - Record: one entry in a session's guess history.
//   - State:  coarse session state (playing/won).

package game

import "errors"

// Length is the number of digits in a secret and in every guess.
const Length = 4

// SecretCount is the number of possible secrets: 10 × 9 × 8 × 7.
const SecretCount = 5040

// Secret holds the ASCII digits of the hidden number, in order.
// Digits are pairwise distinct.
type Secret [Length]byte

// String returns the secret as a 4-character string, e.g. "0384".
func (s Secret) String() string { return string(s[:]) }

// ParseSecret converts a 4-digit string with distinct digits into a Secret.
func ParseSecret(v string) (Secret, error) {
	var s Secret
	if !IsValidGuess(v) {
		return s, errors.New("secret must be 4 distinct digits")
	}
	copy(s[:], v)
	return s, nil
}

// Result is the evaluation of a guess.
//   - Bulls: correct digit in the correct position.
//   - Cows:  digit present in the secret, wrong position.
type Result struct {
	Bulls int `json:"bulls"`
	Cows  int `json:"cows"`
}

// Won reports whether every digit is a bull.
func (r Result) Won() bool { return r.Bulls == Length }

// Record pairs a guess with its result. Attempt is 1-based in play order.
type Record struct {
	Attempt int    `json:"attempt"`
	Guess   string `json:"guess"`
	Result
}

// State is the coarse lifecycle of a session.
type State string

const (
	StatePlaying State = "playing"
	StateWon     State = "won"
)

var (
	// ErrInvalidGuess is returned for input that is not 4 distinct digits.
	// The guess is not recorded.
	ErrInvalidGuess = errors.New("invalid guess")

	// ErrFinished is returned when guessing in a session that is already won.
	ErrFinished = errors.New("game finished")
)
