// apps/go-server/internal/httpserver/server.go
//
// HTTP server wiring for the Bulls and Cows backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs, access log).
//   - Public endpoints: "/", "/health".
//   - Game endpoints (optional auth): new, guess, view, reveal, reset, delete.
//   - Daily Challenge endpoints (optional auth): mounted under /daily.
//   - Auth + profile/stat endpoints (see auth.go).
//   - Recording won games and bumping player stats.
//
// Notes:
//   - Sessions live in the in-memory store; only won games reach the database.
//   - Idle sessions are evicted by the janitor (see RunJanitor).
//   - A revealed session can still be won, but the win is not recorded.

package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/bullscows/apps/go-server/internal/config"
	"github.com/robalobadob/bullscows/apps/go-server/internal/game"
	"github.com/robalobadob/bullscows/apps/go-server/internal/store"
)

// Server bundles router, session store, DB handle and settings.
type Server struct {
	r     *chi.Mux
	cfg   config.Config
	store store.Store
	db    *sql.DB
	src   game.Source
	now   func() time.Time
	daily *dailyServer
}

// Option customizes a Server.
type Option func(*Server)

// WithSource replaces the random source used for new secrets.
func WithSource(src game.Source) Option {
	return func(s *Server) { s.src = &lockedSource{src: src} }
}

// WithClock replaces time.Now (used for the daily challenge date).
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// New constructs a Server, installs middleware, and registers routes.
func New(cfg config.Config, st store.Store, db *sql.DB, opts ...Option) *Server {
	s := &Server{
		r:     chi.NewRouter(),
		cfg:   cfg,
		store: st,
		db:    db,
		src:   game.CryptoSource{},
		now:   time.Now,
	}
	for _, o := range opts {
		o(s)
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)                 // add X-Request-ID
	s.r.Use(chimw.RealIP)                    // set RemoteAddr from X-Forwarded-For etc.
	s.r.Use(accessLog)                       // one line per request
	s.r.Use(chimw.Recoverer)                 // recover from panics
	s.r.Use(chimw.Timeout(10 * time.Second)) // bound handler time
	s.r.Use(jsonContentType)                 // default JSON responses
	s.r.Use(cors(cfg.ClientOrigin))          // credentials-friendly CORS

	// --- diagnostics ---
	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service": "bullscows-go",
			"endpoints": []string{
				"/health", "POST /game/new", "POST /game/guess", "GET /game/{id}",
				"POST /game/{id}/reveal", "POST /game/{id}/reset", "DELETE /game/{id}",
				"/daily/*", "/auth/*",
			},
		})
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessions": s.store.Len()})
	})

	// Game endpoints: guests can play.
	s.r.Group(func(r chi.Router) {
		r.Use(s.withOptionalAuth())
		r.Post("/game/new", s.handleNewGame)
		r.Post("/game/guess", s.handleGuess)
		r.Get("/game/{id}", s.handleGetGame)
		r.Post("/game/{id}/reveal", s.handleReveal)
		r.Post("/game/{id}/reset", s.handleReset)
		r.Delete("/game/{id}", s.handleDeleteGame)

		// Daily Challenge: guests can play; results persisted on win.
		s.mountDaily(r)
	})

	s.mountAuthRoutes()

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not_found", "path": r.URL.Path})
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// SweepIdle evicts sessions with no activity within cfg.SessionTTL.
func (s *Server) SweepIdle(ctx context.Context) int {
	n, err := s.store.Sweep(ctx, s.now().Add(-s.cfg.SessionTTL))
	if err != nil {
		log.Warn().Err(err).Msg("sweep sessions")
	}
	if n > 0 {
		log.Info().Int("evicted", n).Int("held", s.store.Len()).Msg("swept idle sessions")
	}
	return n
}

// RunJanitor calls SweepIdle every interval until ctx is done.
func (s *Server) RunJanitor(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.SweepIdle(ctx)
		}
	}
}

// ------------------------------ GAME ---------------------------------------

type newGameRes struct {
	GameID string `json:"gameId"`
	Digits int    `json:"digits"`
}

// handleNewGame creates a session with a fresh secret.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	sess := game.NewSession(s.src)
	if err := s.store.Save(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("save session")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	s.ensureAnonID(w, r)
	log.Debug().Str("gameId", sess.ID).Msg("new game")
	writeJSON(w, http.StatusOK, newGameRes{GameID: sess.ID, Digits: game.Length})
}

type guessReq struct {
	GameID string `json:"gameId"`
	Guess  string `json:"guess"`
}

type guessRes struct {
	Guess   string     `json:"guess"`
	Bulls   int        `json:"bulls"`
	Cows    int        `json:"cows"`
	Attempt int        `json:"attempt"`
	State   game.State `json:"state"`
}

// handleGuess scores a guess. Rejected guesses do not consume a turn.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}

	var (
		rec  game.Record
		snap *game.Session
	)
	err := s.store.Update(r.Context(), req.GameID, func(sess *game.Session) error {
		var err error
		if rec, err = sess.ApplyGuess(req.Guess); err != nil {
			return err
		}
		snap = sess.Clone()
		return nil
	})
	if err != nil {
		writeGameError(w, err)
		return
	}

	state := snap.State()
	if state == game.StateWon {
		s.recordWin(w, r, snap)
	}
	writeJSON(w, http.StatusOK, guessRes{
		Guess:   rec.Guess,
		Bulls:   rec.Bulls,
		Cows:    rec.Cows,
		Attempt: rec.Attempt,
		State:   state,
	})
}

// gameView is the read model for one session. History is newest first.
type gameView struct {
	GameID   string        `json:"gameId"`
	State    game.State    `json:"state"`
	Attempts int           `json:"attempts"`
	Revealed bool          `json:"revealed"`
	Secret   string        `json:"secret,omitempty"` // only once won or revealed
	History  []game.Record `json:"history"`
}

func viewOf(sess *game.Session) gameView {
	v := gameView{
		GameID:   sess.ID,
		State:    sess.State(),
		Attempts: sess.Attempts(),
		Revealed: sess.Revealed,
		History:  sess.Recent(),
	}
	if sess.Revealed || v.State == game.StateWon {
		v.Secret = sess.Secret.String()
	}
	return v
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess))
}

// handleReveal shows the secret. The session stays playable.
func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	var secret game.Secret
	err := s.store.Update(r.Context(), chi.URLParam(r, "id"), func(sess *game.Session) error {
		secret = sess.Reveal()
		return nil
	})
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"secret": secret.String()})
}

// handleReset draws a new secret and clears the history of an existing session.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	var view gameView
	err := s.store.Update(r.Context(), chi.URLParam(r, "id"), func(sess *game.Session) error {
		sess.Reset(s.src)
		view = viewOf(sess)
		return nil
	})
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleDeleteGame drops a session. Unknown IDs are 404.
func (s *Server) handleDeleteGame(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.store.Get(r.Context(), id); err != nil {
		writeGameError(w, err)
		return
	}
	if err := s.store.Delete(r.Context(), id); err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// recordWin persists a won game for its owner and, for signed-in players,
// bumps stats. Best effort: failures are logged, never returned.
func (s *Server) recordWin(w http.ResponseWriter, r *http.Request, sess *game.Session) {
	if sess.Revealed {
		log.Debug().Str("gameId", sess.ID).Msg("win after reveal, not recorded")
		return
	}
	var userID, anonID any
	me := currentUser(r)
	if me != nil {
		userID = me.ID
	} else {
		anonID = s.ensureAnonID(w, r)
	}

	tx, err := s.db.BeginTx(r.Context(), nil)
	if err != nil {
		log.Warn().Err(err).Msg("begin win tx")
		return
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`INSERT INTO games (id, session_id, user_id, anonymous_id, secret, guesses, elapsed_ms, started_at, finished_at)
	                  VALUES (?,?,?,?,?,?,?,?,?)`,
		uuid.NewString(), sess.ID, userID, anonID, sess.Secret.String(), sess.Attempts(),
		sess.Elapsed().Milliseconds(),
		sess.StartedAt.Format(time.RFC3339), sess.FinishedAt.Format(time.RFC3339))
	if err != nil {
		log.Warn().Err(err).Str("gameId", sess.ID).Msg("insert game row")
		return
	}
	if me != nil {
		if err := bumpStats(tx, me.ID, sess.Attempts()); err != nil {
			log.Warn().Err(err).Str("user", me.ID).Msg("bump stats")
			return
		}
	}
	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Msg("commit win")
	}
}

// bumpStats adds one win of n guesses to a user's stats (within tx).
func bumpStats(tx *sql.Tx, userID string, n int) error {
	_, err := tx.Exec(`UPDATE users
	                   SET games_won = games_won + 1,
	                       total_guesses = total_guesses + ?,
	                       best_guesses = CASE WHEN best_guesses = 0 OR ? < best_guesses THEN ? ELSE best_guesses END
	                   WHERE id=?`, n, n, n, userID)
	return err
}

// ------------------------------- helpers -----------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

// writeGameError maps session and store errors to HTTP responses.
func writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, game.ErrInvalidGuess):
		writeError(w, http.StatusBadRequest, "invalid_guess")
	case errors.Is(err, game.ErrFinished):
		writeError(w, http.StatusConflict, "game_finished")
	default:
		log.Error().Err(err).Msg("game request")
		writeError(w, http.StatusInternalServerError, "server_error")
	}
}

// lockedSource serializes access to a Source that is not goroutine-safe.
type lockedSource struct {
	mu  sync.Mutex
	src game.Source
}

func (l *lockedSource) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}
