// apps/go-server/internal/game/session.go
//
// A Session is one game: a single secret plus the ordered guess history.
// It replaces ambient global state with an explicit object that handlers
// load, mutate and save.
//
// State transitions:
//   playing → won (a guess scores 4 bulls) → reset → playing

package game

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Session holds the state of a single Bulls and Cows game.
type Session struct {
	ID         string    // Unique session identifier (UUID).
	Secret     Secret    // Hidden number; replaced only by Reset.
	History    []Record  // Scored guesses in play order.
	Revealed   bool      // True once the secret was shown to the player.
	StartedAt  time.Time // When the current secret was drawn.
	FinishedAt time.Time // Zero until won.
	UpdatedAt  time.Time // Last guess, reveal or reset; used to evict idle sessions.
}

// NewSession starts a game with a secret drawn from src.
func NewSession(src Source) *Session {
	return NewSessionWithSecret(GenerateSecret(src))
}

// NewSessionWithSecret starts a game with a fixed secret.
func NewSessionWithSecret(secret Secret) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Secret:    secret,
		History:   []Record{},
		StartedAt: now,
		UpdatedAt: now,
	}
}

// ApplyGuess validates, scores and records a guess.
//
// Input is validated as given: surrounding whitespace makes it invalid.
// Rejected input (ErrInvalidGuess) and guesses after a win (ErrFinished)
// leave the history untouched.
func (s *Session) ApplyGuess(input string) (Record, error) {
	if s.State() == StateWon {
		return Record{}, ErrFinished
	}
	guess, err := ParseSecret(input)
	if err != nil {
		return Record{}, ErrInvalidGuess
	}
	rec := Record{
		Attempt: len(s.History) + 1,
		Guess:   guess.String(),
		Result:  Score(s.Secret, guess.String()),
	}
	s.History = append(s.History, rec)
	s.UpdatedAt = time.Now().UTC()
	if rec.Won() {
		s.FinishedAt = s.UpdatedAt
	}
	return rec, nil
}

// Reset draws a new secret and clears the history. The ID is kept.
func (s *Session) Reset(src Source) {
	s.Secret = GenerateSecret(src)
	s.History = []Record{}
	s.Revealed = false
	s.StartedAt = time.Now().UTC()
	s.FinishedAt = time.Time{}
	s.UpdatedAt = s.StartedAt
}

// Reveal returns the secret and marks the session as revealed.
func (s *Session) Reveal() Secret {
	s.Revealed = true
	s.UpdatedAt = time.Now().UTC()
	return s.Secret
}

// State reports playing or won.
func (s *Session) State() State {
	if n := len(s.History); n > 0 && s.History[n-1].Won() {
		return StateWon
	}
	return StatePlaying
}

// Attempts is the number of scored guesses.
func (s *Session) Attempts() int { return len(s.History) }

// Elapsed is the time from the start of the current secret to the win,
// or to now while still playing.
func (s *Session) Elapsed() time.Duration {
	if s.FinishedAt.IsZero() {
		return time.Since(s.StartedAt)
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// Recent returns the history most recent first.
func (s *Session) Recent() []Record {
	out := slices.Clone(s.History)
	slices.Reverse(out)
	if out == nil {
		out = []Record{}
	}
	return out
}

// Clone returns a deep copy safe to read while the original changes.
func (s *Session) Clone() *Session {
	c := *s
	c.History = slices.Clone(s.History)
	if c.History == nil {
		c.History = []Record{}
	}
	return &c
}
