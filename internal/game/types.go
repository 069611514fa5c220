// internal/game/types.go
//
// Core type definitions for the hangman engine.
// Defines:
//   - Status: round lifecycle (in_progress/won/lost).
//   - Snapshot: immutable projection of round state for rendering.
//   - Outcome: result of a single resolved guess.
//   - ValidationError and the guess error sentinels.

package game

import (
	"errors"
	"fmt"

	"github.com/ahorcado-game/server/internal/words"
)

// Status is the lifecycle state of a round. Won and Lost are terminal.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusWon        Status = "won"
	StatusLost       Status = "lost"
)

// Placeholder marks a secret-word position not yet revealed.
const Placeholder = "_"

// Snapshot is a read-only projection of the active round, safe to hand to a
// rendering layer. Word is populated only once the round is terminal.
type Snapshot struct {
	Theme        words.Theme `json:"theme"`
	Revealed     []string    `json:"revealed"`
	Guessed      []string    `json:"guessed"`
	AttemptsLeft int         `json:"attemptsLeft"`
	MaxAttempts  int         `json:"maxAttempts"`
	Status       Status      `json:"status"`
	Word         string      `json:"word,omitempty"`
}

// Outcome reports how a single guess resolved.
type Outcome struct {
	Letter       string   `json:"letter"`
	Correct      bool     `json:"correct"`
	Positions    []int    `json:"positions,omitempty"`
	Won          bool     `json:"won"`
	Lost         bool     `json:"lost"`
	AttemptsLeft int      `json:"attemptsLeft"`
	Snapshot     Snapshot `json:"snapshot"`
}

// Renderer receives snapshots after every state change. It is a pure sink:
// nothing it does feeds back into engine state.
type Renderer interface {
	RenderSnapshot(Snapshot)
}

// RenderFunc adapts a function to the Renderer interface.
type RenderFunc func(Snapshot)

func (f RenderFunc) RenderSnapshot(s Snapshot) { f(s) }

// InvalidReason distinguishes why a raw guess was rejected before resolution.
type InvalidReason string

const (
	ReasonEmpty      InvalidReason = "empty"
	ReasonTooLong    InvalidReason = "too_long"
	ReasonDisallowed InvalidReason = "disallowed_character"
)

// ValidationError rejects raw input that is not a single accepted letter.
type ValidationError struct {
	Reason InvalidReason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid guess: %s", e.Reason)
}

var (
	// ErrNoRound means no round has been started yet.
	ErrNoRound = errors.New("game: no active round")
	// ErrRoundNotActive rejects guesses once a round is won or lost.
	ErrRoundNotActive = errors.New("game: round is not in progress")
	// ErrAlreadyGuessed rejects a repeated letter without charging an attempt.
	ErrAlreadyGuessed = errors.New("game: letter already guessed")
)
