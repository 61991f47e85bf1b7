// apps/go-server/internal/httpserver/routes_daily.go
//
// HTTP routes for the "Daily Challenge" mode.
// Exposes three endpoints under /daily:
//   - POST /daily/new         → start a daily game (creates or reuses session)
//   - POST /daily/guess       → submit a guess for today's daily game
//   - GET  /daily/leaderboard → fetch top 20 results for today (or a given date)
//
// Each player can finish the daily game once per day (enforced by DB + in-memory session).
// Sessions are held in memory for active play and persisted to DB on win.
// The secret is derived from date + salt, so everyone plays the same number.

package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/bullscows/apps/go-server/internal/daily"
	"github.com/robalobadob/bullscows/apps/go-server/internal/game"
)

// dailyServer wraps dependencies for /daily endpoints.
type dailyServer struct {
	srv      *Server
	store    *daily.Store
	salt     string
	sessions map[string]*dailySession // active sessions keyed by userID|date
	mu       sync.Mutex               // guards sessions and the games inside them
}

// dailySession holds transient in-memory state for an in-progress daily game.
type dailySession struct {
	UserID     string
	Date       string
	SecretRank int
	Game       *game.Session
}

// mountDaily registers all /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{
		srv:      s,
		store:    daily.NewStore(s.db),
		salt:     s.cfg.DailySalt,
		sessions: make(map[string]*dailySession),
	}
	s.daily = dd
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Post("/guess", dd.handleGuess)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// today returns today's date key and secret.
func (d *dailyServer) today() (date string, secret game.Secret) {
	now := d.srv.now()
	return daily.DateKey(now), daily.Secret(now, d.salt)
}

// playerID returns the authenticated user ID if logged in,
// otherwise the anonymous cookie ID.
func (d *dailyServer) playerID(w http.ResponseWriter, r *http.Request) string {
	if me := currentUser(r); me != nil {
		return me.ID
	}
	return d.srv.ensureAnonID(w, r)
}

// -----------------------------------------------------------------------------
// /daily/new

type dailyNewRes struct {
	GameID string `json:"gameId"`
	Date   string `json:"date"`
	Played bool   `json:"played"`
}

// handleNew creates or reuses a daily session for the current date.
//   - If the player already has a DB row for today → Played=true.
//   - Otherwise create/reuse an in-memory session and return GameID.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	uid := d.playerID(w, r)
	date, secret := d.today()

	played, err := d.store.AlreadyPlayed(r.Context(), uid, date)
	if err != nil {
		log.Warn().Err(err).Str("user", uid).Msg("daily already played")
	}
	if played {
		writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Played: true})
		return
	}

	key := uid + "|" + date
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pruneLocked(date)
	if sess, ok := d.sessions[key]; ok {
		writeJSON(w, http.StatusOK, dailyNewRes{GameID: sess.Game.ID, Date: date, Played: sess.Game.State() == game.StateWon})
		return
	}
	sess := &dailySession{
		UserID:     uid,
		Date:       date,
		SecretRank: secret.Rank(),
		Game:       game.NewSessionWithSecret(secret),
	}
	d.sessions[key] = sess
	writeJSON(w, http.StatusOK, dailyNewRes{GameID: sess.Game.ID, Date: date})
}

// claim hands a guest's in-progress daily sessions to userID. An existing
// session of the account for the same date is kept.
func (d *dailyServer) claim(anonID, userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, sess := range d.sessions {
		if sess.UserID != anonID {
			continue
		}
		delete(d.sessions, key)
		to := userID + "|" + sess.Date
		if _, ok := d.sessions[to]; !ok {
			sess.UserID = userID
			d.sessions[to] = sess
		}
	}
}

// pruneLocked drops sessions from earlier days. Caller holds d.mu.
func (d *dailyServer) pruneLocked(today string) {
	for k, s := range d.sessions {
		if s.Date != today {
			delete(d.sessions, k)
		}
	}
}

// -----------------------------------------------------------------------------
// /daily/guess

type dailyGuessRes struct {
	Guess   string `json:"guess,omitempty"`
	Bulls   int    `json:"bulls"`
	Cows    int    `json:"cows"`
	Attempt int    `json:"attempt"`
	State   string `json:"state"` // playing | won | locked
}

// handleGuess validates and applies a guess for today's daily session.
//   - Rejects if no session matches the GameID (409).
//   - Returns state "locked" once the session is finished.
//   - Invalid guesses are rejected without consuming a turn (400).
//   - Persists the result on win.
func (d *dailyServer) handleGuess(w http.ResponseWriter, r *http.Request) {
	uid := d.playerID(w, r)

	var p guessReq
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if p.GameID == "" {
		writeError(w, http.StatusBadRequest, "invalid")
		return
	}

	date, _ := d.today()
	key := uid + "|" + date

	d.mu.Lock()
	sess, ok := d.sessions[key]
	if !ok || sess.Game.ID != p.GameID {
		d.mu.Unlock()
		writeError(w, http.StatusConflict, "no_session")
		return
	}
	rec, err := sess.Game.ApplyGuess(p.Guess)
	attempts := sess.Game.Attempts()
	elapsed := sess.Game.Elapsed()
	d.mu.Unlock()

	switch {
	case errors.Is(err, game.ErrFinished):
		writeJSON(w, http.StatusOK, dailyGuessRes{Attempt: attempts, State: "locked"})
		return
	case err != nil:
		writeGameError(w, err)
		return
	}

	res := dailyGuessRes{Guess: rec.Guess, Bulls: rec.Bulls, Cows: rec.Cows, Attempt: rec.Attempt, State: string(game.StatePlaying)}
	if rec.Won() {
		res.State = string(game.StateWon)
		err := d.store.InsertResult(r.Context(), daily.Result{
			UserID:     uid,
			Date:       date,
			SecretRank: sess.SecretRank,
			Guesses:    attempts,
			ElapsedMs:  int(elapsed.Milliseconds()),
		})
		if err != nil {
			log.Warn().Err(err).Str("user", uid).Msg("insert daily result")
		}
	}
	writeJSON(w, http.StatusOK, res)
}

// -----------------------------------------------------------------------------
// /daily/leaderboard

type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the leaderboard for ?date= (default today) and
// optional ?limit= (default 20).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date, _ = d.today()
	}
	limit := daily.DefaultLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 100 {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		limit = n
	}
	rows, err := d.store.Leaderboard(r.Context(), date, limit)
	if err != nil {
		log.Error().Err(err).Str("date", date).Msg("daily leaderboard")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}
