// internal/game/engine.go
//
// Round state machine for a single hangman session.
// Responsibilities:
//   - Start rounds by drawing a secret word from a words.Source.
//   - Validate raw input against the accepted alphabet.
//   - Resolve letter guesses: reveal bookkeeping, attempt accounting,
//     win/loss detection.
//   - Notify an optional render sink with immutable snapshots.
//
// Notes:
//   - One Engine owns one active round; Start discards the previous round,
//     but only after the replacement word has been drawn successfully.
//   - The engine is unsynchronized: its caller serializes access (the HTTP
//     layer holds one engine per game ID behind the session store).
//   - All comparisons run over the canonical uppercase form of the word.
package game

import (
	"crypto/rand"
	"encoding/hex"
	"sort"
	"strings"

	"github.com/ahorcado-game/server/internal/words"
)

// DefaultMaxAttempts is the number of incorrect guesses that loses a round.
const DefaultMaxAttempts = 8

// Engine owns exactly one active round and resolves guesses against it.
type Engine struct {
	ID string

	source      words.Source
	maxAttempts int
	randIndex   func(n int) int
	render      Renderer

	round *round
}

// round is the per-Start state. Discarded wholesale by the next Start.
type round struct {
	theme    words.Theme
	secret   []rune
	revealed []string
	guessed  map[string]bool
	wrong    int
	status   Status
}

// Option configures an Engine.
type Option func(*Engine)

// WithMaxAttempts overrides the incorrect-guess budget.
func WithMaxAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxAttempts = n
		}
	}
}

// WithRandIndex injects the random index source used for word selection.
// Tests supply a fixed index for deterministic draws.
func WithRandIndex(f func(n int) int) Option {
	return func(e *Engine) { e.randIndex = f }
}

// WithRenderer installs a sink notified with a snapshot after Start and
// after every resolved guess.
func WithRenderer(r Renderer) Option {
	return func(e *Engine) { e.render = r }
}

// NewEngine constructs an engine bound to a word source.
func NewEngine(src words.Source, opts ...Option) *Engine {
	e := &Engine{
		ID:          randomID(),
		source:      src,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start draws a fresh secret word for theme and resets all round state.
// On a source failure the previous round, if any, remains active untouched.
func (e *Engine) Start(theme words.Theme) (Snapshot, error) {
	corpus, err := e.source.Corpus(theme)
	if err != nil {
		return Snapshot{}, err
	}
	secret, err := words.Pick(corpus, e.randIndex)
	if err != nil {
		return Snapshot{}, err
	}

	runes := []rune(secret)
	revealed := make([]string, len(runes))
	for i := range revealed {
		revealed[i] = Placeholder
	}
	e.round = &round{
		theme:    theme,
		secret:   runes,
		revealed: revealed,
		guessed:  make(map[string]bool),
		status:   StatusInProgress,
	}

	snap := e.snapshot()
	e.notify(snap)
	return snap, nil
}

// ValidateGuess checks raw input without touching any state.
// Accepts exactly one letter of the accepted alphabet, either case.
func ValidateGuess(input string) error {
	runes := []rune(input)
	switch {
	case len(runes) == 0:
		return &ValidationError{Reason: ReasonEmpty}
	case len(runes) > 1:
		return &ValidationError{Reason: ReasonTooLong}
	}
	upper := []rune(strings.ToUpper(input))
	if len(upper) != 1 || !words.IsLetter(upper[0]) {
		return &ValidationError{Reason: ReasonDisallowed}
	}
	return nil
}

// Guess resolves a single letter against the active round.
//
// Resolution order:
//  1. Round must exist and be in progress.
//  2. Input must pass ValidateGuess.
//  3. A repeated letter fails with ErrAlreadyGuessed before anything mutates.
//  4. Every matching position is revealed at once; a miss costs exactly one
//     attempt regardless of how many positions the letter would have filled.
//
// The losing guess (wrong count reaching the maximum) discloses the full
// word in the reveal state. Error paths never leave partial state behind.
func (e *Engine) Guess(letter string) (Outcome, error) {
	if e.round == nil {
		return Outcome{}, ErrNoRound
	}
	r := e.round
	if r.status != StatusInProgress {
		return Outcome{}, ErrRoundNotActive
	}
	if err := ValidateGuess(letter); err != nil {
		return Outcome{}, err
	}

	norm := strings.ToUpper(letter)
	if r.guessed[norm] {
		return Outcome{}, ErrAlreadyGuessed
	}
	r.guessed[norm] = true

	var positions []int
	for i, c := range r.secret {
		if string(c) == norm {
			positions = append(positions, i)
			r.revealed[i] = norm
		}
	}

	out := Outcome{Letter: norm, Correct: len(positions) > 0, Positions: positions}
	if out.Correct {
		if !hasPlaceholder(r.revealed) {
			r.status = StatusWon
			out.Won = true
		}
	} else {
		r.wrong++
		if r.wrong >= e.maxAttempts {
			r.status = StatusLost
			out.Lost = true
			// Full disclosure on loss.
			for i, c := range r.secret {
				r.revealed[i] = string(c)
			}
		}
	}
	out.AttemptsLeft = e.maxAttempts - r.wrong

	out.Snapshot = e.snapshot()
	e.notify(out.Snapshot)
	return out, nil
}

// Snapshot returns the current round projection. Repeated calls without an
// intervening Guess return identical results.
func (e *Engine) Snapshot() (Snapshot, error) {
	if e.round == nil {
		return Snapshot{}, ErrNoRound
	}
	return e.snapshot(), nil
}

// Theme reports the active round's theme.
func (e *Engine) Theme() (words.Theme, error) {
	if e.round == nil {
		return "", ErrNoRound
	}
	return e.round.theme, nil
}

func (e *Engine) snapshot() Snapshot {
	r := e.round
	snap := Snapshot{
		Theme:        r.theme,
		Revealed:     append([]string(nil), r.revealed...),
		Guessed:      make([]string, 0, len(r.guessed)),
		AttemptsLeft: e.maxAttempts - r.wrong,
		MaxAttempts:  e.maxAttempts,
		Status:       r.status,
	}
	for l := range r.guessed {
		snap.Guessed = append(snap.Guessed, l)
	}
	sort.Strings(snap.Guessed)
	if r.status != StatusInProgress {
		snap.Word = string(r.secret)
	}
	return snap
}

func (e *Engine) notify(snap Snapshot) {
	if e.render != nil {
		e.render.RenderSnapshot(snap)
	}
}

func hasPlaceholder(revealed []string) bool {
	for _, s := range revealed {
		if s == Placeholder {
			return true
		}
	}
	return false
}

// randomID returns a compact 16-hex-char identifier for correlating
// server-side sessions.
func randomID() string {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
