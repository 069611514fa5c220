// internal/httpserver/server.go
//
// HTTP wiring for the hangman backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health", "/themes", "/leaderboard".
//   - Game endpoints (optional auth): POST /game/new, POST /game/guess,
//     GET /game/state, GET /game/ws (snapshot push), GET /game/qr.
//   - Auth + profile/stat endpoints (require auth): /auth/*, /stats/me,
//     /games/mine.
//
// Notes:
//   - Round state lives only in the in-memory session store; sqlite keeps
//     ownership rows, history and per-user stats.
//   - CORS is origin-aware and credentials-enabled so cookies work.

package httpserver

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/ahorcado-game/server/internal/game"
	"github.com/ahorcado-game/server/internal/store"
	"github.com/ahorcado-game/server/internal/words"
)

// Server bundles router, session store, word source and DB handle.
type Server struct {
	r      *chi.Mux
	store  store.Store
	source words.Source
	db     *sql.DB
	hub    *hub
}

// New constructs a Server, installs middleware, and registers routes.
func New(st store.Store, src words.Source, db *sql.DB) *Server {
	s := &Server{r: chi.NewRouter(), store: st, source: src, db: db, hub: newHub()}

	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(chimw.Timeout(10 * time.Second))
	s.r.Use(jsonContentType)
	s.r.Use(corsFromEnv)

	s.r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"service":"ahorcado-go","endpoints":["/health","/themes","POST /game/new","POST /game/guess","GET /game/state","/auth/*"]}`))
	})
	s.r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	s.r.Get("/themes", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string][]words.Theme{"themes": words.Themes()})
	})

	// Game endpoints — OPTIONAL AUTH (guests can play)
	s.r.With(s.withOptionalAuth()).Post("/game/new", s.handleNewGame)
	s.r.With(s.withOptionalAuth()).Post("/game/guess", s.handleGuess)
	s.r.Get("/game/state", s.handleState)
	s.r.Get("/game/ws", s.handleWS)
	s.r.Get("/game/qr", s.handleQR)

	s.r.Get("/leaderboard", s.handleLeaderboard)

	// Auth + profile/stats (require auth)
	s.mountAuthRoutes()

	// JSON 404 for easier debugging
	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
	})

	return s
}

// Start begins serving HTTP on addr.
func (s *Server) Start(addr string) error { return http.ListenAndServe(addr, s.r) }

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// corsFromEnv enables credentialed CORS for a single origin.
// Uses CLIENT_ORIGIN env var; defaults to http://localhost:5173.
func corsFromEnv(next http.Handler) http.Handler {
	origin := os.Getenv("CLIENT_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ------------------------------ GAME ---------------------------------------

// newGameReq/Res payloads for POST /game/new.
type newGameReq struct {
	Theme string `json:"theme"`
	Word  string `json:"word"` // optional fixed answer (testing)
}
type newGameRes struct {
	GameID   string        `json:"gameId"`
	Snapshot game.Snapshot `json:"snapshot"`
}

// handleNewGame creates an engine, starts a round, stores the session, and
// persists a DB owner row (user_id or anonymous_id) for history/stats.
func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	theme := words.ThemeGeneral
	if req.Theme != "" {
		var err error
		if theme, err = words.ParseTheme(req.Theme); err != nil {
			http.Error(w, `{"error":"unknown_theme"}`, http.StatusBadRequest)
			return
		}
	}

	src := s.source
	if req.Word != "" {
		if !words.Accepted(strings.ToUpper(req.Word)) {
			http.Error(w, `{"error":"invalid_word"}`, http.StatusBadRequest)
			return
		}
		src = words.Fixed(req.Word)
	}

	// The render sink pushes every state change to websocket subscribers.
	var eng *game.Engine
	eng = game.NewEngine(src, game.WithRenderer(game.RenderFunc(func(snap game.Snapshot) {
		s.hub.broadcast(eng.ID, snap)
	})))

	snap, err := eng.Start(theme)
	if err != nil {
		writeWordsErr(w, err)
		return
	}
	if err := s.store.Save(r.Context(), store.NewSession(eng)); err != nil {
		log.Error().Err(err).Msg("save game")
		http.Error(w, `{"error":"save_failed"}`, http.StatusInternalServerError)
		return
	}

	// Persist owner row; the secret word itself is never written to the DB.
	now := time.Now().UTC().Format(time.RFC3339)
	if me, _ := r.Context().Value(ctxUserKey{}).(*authUser); me != nil {
		_, err := s.db.Exec(`INSERT INTO games (id, user_id, theme, started_at, status, wrong_guesses)
		                     VALUES (?,?,?,?,?,0)`, eng.ID, me.ID, string(theme), now, string(game.StatusInProgress))
		if err != nil {
			log.Warn().Err(err).Str("gameId", eng.ID).Msg("insert user game row")
		}
	} else {
		anon := s.ensureAnonID(w, r)
		_, err := s.db.Exec(`INSERT INTO games (id, anonymous_id, theme, started_at, status, wrong_guesses)
		                     VALUES (?,?,?,?,?,0)`, eng.ID, anon, string(theme), now, string(game.StatusInProgress))
		if err != nil {
			log.Warn().Err(err).Str("gameId", eng.ID).Msg("insert anon game row")
		}
	}

	_ = json.NewEncoder(w).Encode(newGameRes{GameID: eng.ID, Snapshot: snap})
}

// guessReq is the payload for POST /game/guess; the response is the Outcome.
type guessReq struct {
	GameID string `json:"gameId"`
	Letter string `json:"letter"`
}

// handleGuess applies a letter to a stored session, persists progress,
// and (if the round ended) updates user stats in a best-effort transaction.
func (s *Server) handleGuess(w http.ResponseWriter, r *http.Request) {
	var req guessReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad_json"}`, http.StatusBadRequest)
		return
	}
	sess, err := s.store.Get(r.Context(), req.GameID)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}

	// The session lock serializes concurrent guesses against one round.
	out, err := sess.Guess(req.Letter)
	if err != nil {
		writeGuessErr(w, err)
		return
	}

	// Persist counters/history (best effort, non-fatal if it fails)
	me, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	ownerClause := `anonymous_id=?`
	ownerArg := any(s.ensureAnonID(w, r))
	if me != nil {
		ownerClause = `user_id=?`
		ownerArg = any(me.ID)
	}

	tx, txErr := s.db.Begin()
	if txErr != nil {
		log.Warn().Err(txErr).Msg("begin guess tx")
	} else {
		defer func() { _ = tx.Rollback() }()

		wrong := out.Snapshot.MaxAttempts - out.Snapshot.AttemptsLeft
		if _, err := tx.Exec(`UPDATE games SET wrong_guesses=? WHERE id=? AND `+ownerClause, wrong, sess.ID(), ownerArg); err != nil {
			log.Warn().Err(err).Msg("update wrong guesses")
		}

		if out.Won || out.Lost {
			if _, err := tx.Exec(`UPDATE games SET status=?, finished_at=? WHERE id=? AND `+ownerClause,
				string(out.Snapshot.Status), time.Now().UTC().Format(time.RFC3339), sess.ID(), ownerArg); err != nil {
				log.Warn().Err(err).Msg("finish game")
			}
			if me != nil {
				if err := s.bumpStats(tx, me.ID, out.Won); err != nil {
					log.Warn().Err(err).Str("user", me.ID).Msg("bump stats")
				}
			}
		}
		_ = tx.Commit()
	}

	_ = json.NewEncoder(w).Encode(out)
}

// stateRes is returned by GET /game/state.
type stateRes struct {
	GameID   string        `json:"gameId"`
	Snapshot game.Snapshot `json:"snapshot"`
}

// handleState returns the current snapshot for a stored session.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("gameId")
	sess, err := s.store.Get(r.Context(), id)
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	snap, err := sess.Snapshot()
	if err != nil {
		http.Error(w, `{"error":"no_round"}`, http.StatusConflict)
		return
	}
	_ = json.NewEncoder(w).Encode(stateRes{GameID: id, Snapshot: snap})
}

// handleQR renders a PNG QR code with the share link for a game.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("gameId")
	if _, err := s.store.Get(r.Context(), id); err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	origin := getEnv("CLIENT_ORIGIN", "http://localhost:5173")
	png, err := qrcode.Encode(origin+"/game/"+id, qrcode.Medium, 256)
	if err != nil {
		http.Error(w, `{"error":"qr_failed"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// ----------------------------- leaderboard ---------------------------------

// lbRow is one leaderboard entry: most wins first.
type lbRow struct {
	Username    string `json:"username"`
	Wins        int    `json:"wins"`
	GamesPlayed int    `json:"gamesPlayed"`
}

// handleLeaderboard returns the top players by wins.
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	rows, err := s.db.QueryContext(r.Context(), `
        SELECT username, wins, games_played
        FROM users
        WHERE games_played > 0
        ORDER BY wins DESC, games_played ASC, username ASC
        LIMIT 20`)
	if err != nil {
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	defer rows.Close()

	out := []lbRow{}
	for rows.Next() {
		var row lbRow
		if err := rows.Scan(&row.Username, &row.Wins, &row.GamesPlayed); err == nil {
			out = append(out, row)
		}
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"top": out})
}

// --------------------------- error mapping ---------------------------------

// writeWordsErr maps corpus errors onto HTTP statuses.
func writeWordsErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, words.ErrEmptyCorpus):
		http.Error(w, `{"error":"empty_corpus"}`, http.StatusUnprocessableEntity)
	case errors.Is(err, words.ErrUnavailable):
		http.Error(w, `{"error":"source_unavailable"}`, http.StatusServiceUnavailable)
	default:
		log.Error().Err(err).Msg("start round")
		http.Error(w, `{"error":"start_failed"}`, http.StatusInternalServerError)
	}
}

// writeGuessErr maps engine errors onto HTTP statuses.
func writeGuessErr(w http.ResponseWriter, err error) {
	var ve *game.ValidationError
	switch {
	case errors.As(err, &ve):
		http.Error(w, `{"error":"invalid_guess","reason":"`+string(ve.Reason)+`"}`, http.StatusBadRequest)
	case errors.Is(err, game.ErrAlreadyGuessed):
		http.Error(w, `{"error":"already_guessed"}`, http.StatusConflict)
	case errors.Is(err, game.ErrRoundNotActive):
		http.Error(w, `{"error":"round_over"}`, http.StatusConflict)
	case errors.Is(err, game.ErrNoRound):
		http.Error(w, `{"error":"no_round"}`, http.StatusConflict)
	default:
		log.Error().Err(err).Msg("apply guess")
		http.Error(w, `{"error":"guess_failed"}`, http.StatusInternalServerError)
	}
}

// ------------------------------- small util --------------------------------

// getEnv returns the value of k or def if unset/empty.
func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
