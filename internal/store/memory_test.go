package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/robalobadob/bullscows/apps/go-server/internal/game"
)

func newSession(t *testing.T) *game.Session {
	t.Helper()
	secret, err := game.ParseSecret("1234")
	if err != nil {
		t.Fatal(err)
	}
	return game.NewSessionWithSecret(secret)
}

func TestMemorySaveGetUpdate(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	s := newSession(t)
	if err := st.Save(ctx, s); err != nil {
		t.Fatalf("Save: %v", err)
	}

	err := st.Update(ctx, s.ID, func(s *game.Session) error {
		_, err := s.ApplyGuess("1243")
		return err
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := st.Get(ctx, s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Attempts() != 1 {
		t.Fatalf("attempts = %d", got.Attempts())
	}

	// Snapshots do not write through.
	_, _ = got.ApplyGuess("1234")
	again, _ := st.Get(ctx, s.ID)
	if again.Attempts() != 1 {
		t.Fatalf("snapshot mutated stored session")
	}
}

func TestMemoryUpdatePropagatesError(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	s := newSession(t)
	_ = st.Save(ctx, s)

	err := st.Update(ctx, s.ID, func(s *game.Session) error {
		_, err := s.ApplyGuess("1123")
		return err
	})
	if !errors.Is(err, game.ErrInvalidGuess) {
		t.Fatalf("err = %v", err)
	}
}

func TestMemoryNotFoundAndDelete(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	if _, err := st.Get(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get err = %v", err)
	}
	if err := st.Update(ctx, "nope", func(*game.Session) error { return nil }); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update err = %v", err)
	}
	s := newSession(t)
	_ = st.Save(ctx, s)
	if st.Len() != 1 {
		t.Fatalf("Len = %d", st.Len())
	}
	_ = st.Delete(ctx, s.ID)
	if st.Len() != 0 {
		t.Fatalf("Len after delete = %d", st.Len())
	}
	if err := st.Save(ctx, &game.Session{}); err == nil {
		t.Fatalf("expected error saving session without id")
	}
}

func TestMemoryConcurrentGuesses(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	s := newSession(t)
	_ = st.Save(ctx, s)

	guesses := []string{"5678", "5679", "5687", "5689", "5697", "5698", "5768", "5769"}
	var wg sync.WaitGroup
	for _, g := range guesses {
		wg.Add(1)
		go func(g string) {
			defer wg.Done()
			_ = st.Update(ctx, s.ID, func(s *game.Session) error {
				_, err := s.ApplyGuess(g)
				return err
			})
		}(g)
	}
	wg.Wait()

	got, _ := st.Get(ctx, s.ID)
	if got.Attempts() != len(guesses) {
		t.Fatalf("attempts = %d, want %d", got.Attempts(), len(guesses))
	}
	for i, r := range got.History {
		if r.Attempt != i+1 {
			t.Fatalf("attempt numbers out of order: %+v", got.History)
		}
	}
}

func TestMemorySweepEvictsIdleSessions(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	now := time.Now().UTC()

	idle := newSession(t)
	idle.UpdatedAt = now.Add(-2 * time.Hour)
	active := newSession(t)
	active.UpdatedAt = now.Add(-10 * time.Minute)
	_ = st.Save(ctx, idle)
	_ = st.Save(ctx, active)

	n, err := st.Sweep(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if n != 1 || st.Len() != 1 {
		t.Fatalf("Sweep removed %d, Len = %d", n, st.Len())
	}
	if _, err := st.Get(ctx, idle.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("idle session still held: %v", err)
	}
	if _, err := st.Get(ctx, active.ID); err != nil {
		t.Fatalf("active session evicted: %v", err)
	}

	// A guess refreshes activity and keeps the session alive.
	_ = st.Update(ctx, active.ID, func(s *game.Session) error {
		_, err := s.ApplyGuess("5678")
		return err
	})
	if n, _ := st.Sweep(ctx, now); n != 0 {
		t.Fatalf("Sweep removed %d recently guessed sessions", n)
	}
}
