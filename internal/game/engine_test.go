package game

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahorcado-game/server/internal/words"
)

// stubSource lets tests switch corpus contents and failures mid-test.
type stubSource struct {
	entries []words.Entry
	err     error
}

func (s *stubSource) Corpus(words.Theme) ([]words.Entry, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

func newTestEngine(t *testing.T, word string, opts ...Option) *Engine {
	t.Helper()
	e := NewEngine(words.Fixed(word), opts...)
	_, err := e.Start(words.ThemeGeneral)
	require.NoError(t, err)
	return e
}

func placeholders(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = Placeholder
	}
	return out
}

func TestStartInitialState(t *testing.T) {
	e := newTestEngine(t, "gato")

	snap, err := e.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, snap.Status)
	assert.Equal(t, placeholders(4), snap.Revealed)
	assert.Empty(t, snap.Guessed)
	assert.Equal(t, DefaultMaxAttempts, snap.AttemptsLeft)
	assert.Equal(t, DefaultMaxAttempts, snap.MaxAttempts)
	assert.Empty(t, snap.Word, "secret must not leak while in progress")
}

func TestGuessRevealsAllOccurrencesForOneAttempt(t *testing.T) {
	e := newTestEngine(t, "manzana")

	out, err := e.Guess("a")
	require.NoError(t, err)
	assert.True(t, out.Correct)
	assert.Equal(t, []int{1, 4, 6}, out.Positions)
	assert.Equal(t, DefaultMaxAttempts, out.AttemptsLeft, "a hit never charges an attempt")
	assert.Equal(t, []string{"_", "A", "_", "_", "A", "_", "A"}, out.Snapshot.Revealed)
}

func TestWinSequence(t *testing.T) {
	e := newTestEngine(t, "gato")

	out, err := e.Guess("g")
	require.NoError(t, err)
	assert.Equal(t, []string{"G", "_", "_", "_"}, out.Snapshot.Revealed)
	assert.False(t, out.Won)

	for _, l := range []string{"a", "t"} {
		out, err = e.Guess(l)
		require.NoError(t, err)
		assert.False(t, out.Won)
	}

	out, err = e.Guess("o")
	require.NoError(t, err)
	assert.True(t, out.Won)
	assert.False(t, out.Lost)
	assert.Equal(t, StatusWon, out.Snapshot.Status)
	assert.Equal(t, []string{"G", "A", "T", "O"}, out.Snapshot.Revealed)
	assert.Equal(t, "GATO", out.Snapshot.Word)
	assert.Equal(t, DefaultMaxAttempts, out.AttemptsLeft)
}

func TestLossDisclosesFullWord(t *testing.T) {
	e := newTestEngine(t, "sol")

	misses := []string{"b", "c", "d", "f", "g", "h", "j", "k"}
	for i, l := range misses[:7] {
		out, err := e.Guess(l)
		require.NoError(t, err)
		assert.False(t, out.Lost, "guess %d must not lose yet", i+1)
		assert.Equal(t, DefaultMaxAttempts-i-1, out.AttemptsLeft)
		assert.Equal(t, placeholders(3), out.Snapshot.Revealed)
	}

	out, err := e.Guess(misses[7])
	require.NoError(t, err)
	assert.True(t, out.Lost)
	assert.False(t, out.Won)
	assert.Equal(t, 0, out.AttemptsLeft)
	assert.Equal(t, StatusLost, out.Snapshot.Status)
	assert.Equal(t, []string{"S", "O", "L"}, out.Snapshot.Revealed)
	assert.Equal(t, "SOL", out.Snapshot.Word)
}

func TestValidateGuessReasons(t *testing.T) {
	cases := []struct {
		input  string
		reason InvalidReason
	}{
		{"", ReasonEmpty},
		{"ab", ReasonTooLong},
		{"5", ReasonDisallowed},
		{".", ReasonDisallowed},
		{" ", ReasonDisallowed},
	}
	for _, c := range cases {
		err := ValidateGuess(c.input)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve, "input %q", c.input)
		assert.Equal(t, c.reason, ve.Reason, "input %q", c.input)
	}

	for _, ok := range []string{"a", "Z", "ñ", "Ñ", "é", "Ú", "ü"} {
		assert.NoError(t, ValidateGuess(ok), "input %q", ok)
	}
}

func TestRepeatedGuessIsRejectedWithoutCharge(t *testing.T) {
	e := newTestEngine(t, "gato")

	// Correct letter twice.
	_, err := e.Guess("a")
	require.NoError(t, err)
	before, _ := e.Snapshot()

	_, err = e.Guess("a")
	assert.ErrorIs(t, err, ErrAlreadyGuessed)
	after, _ := e.Snapshot()
	assert.Equal(t, before, after)

	// Wrong letter twice, including a case-normalized repeat.
	out, err := e.Guess("z")
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxAttempts-1, out.AttemptsLeft)

	_, err = e.Guess("Z")
	assert.ErrorIs(t, err, ErrAlreadyGuessed)
	after, _ = e.Snapshot()
	assert.Equal(t, DefaultMaxAttempts-1, after.AttemptsLeft)
}

func TestMissLeavesRevealUnchanged(t *testing.T) {
	e := newTestEngine(t, "sol")

	out, err := e.Guess("z")
	require.NoError(t, err)
	assert.False(t, out.Correct)
	assert.Empty(t, out.Positions)
	assert.Equal(t, DefaultMaxAttempts-1, out.AttemptsLeft)
	assert.Equal(t, placeholders(3), out.Snapshot.Revealed)
}

func TestInvalidInputIsNeverCharged(t *testing.T) {
	e := newTestEngine(t, "sol")

	for _, bad := range []string{"", "ab", "5", "?"} {
		_, err := e.Guess(bad)
		var ve *ValidationError
		require.ErrorAs(t, err, &ve)
	}
	snap, _ := e.Snapshot()
	assert.Equal(t, DefaultMaxAttempts, snap.AttemptsLeft)
	assert.Empty(t, snap.Guessed)
}

func TestStartFailureKeepsPreviousRound(t *testing.T) {
	src := &stubSource{entries: []words.Entry{{Text: "gato"}}}
	e := NewEngine(src)
	_, err := e.Start(words.ThemeGeneral)
	require.NoError(t, err)
	_, err = e.Guess("g")
	require.NoError(t, err)
	before, _ := e.Snapshot()

	src.entries = nil
	_, err = e.Start(words.ThemeGeneral)
	assert.ErrorIs(t, err, words.ErrEmptyCorpus)

	after, snapErr := e.Snapshot()
	require.NoError(t, snapErr)
	assert.Equal(t, before, after, "failed Start must not touch the active round")

	src.err = words.ErrUnavailable
	_, err = e.Start(words.ThemeGeneral)
	assert.ErrorIs(t, err, words.ErrUnavailable)
}

func TestStartReplacesTerminalRound(t *testing.T) {
	e := newTestEngine(t, "sol")
	for _, l := range []string{"s", "o", "l"} {
		_, err := e.Guess(l)
		require.NoError(t, err)
	}
	snap, _ := e.Snapshot()
	require.Equal(t, StatusWon, snap.Status)

	fresh, err := e.Start(words.ThemeGeneral)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, fresh.Status)
	assert.Equal(t, placeholders(3), fresh.Revealed)
	assert.Empty(t, fresh.Guessed)
}

func TestGuessAfterTerminalRound(t *testing.T) {
	e := newTestEngine(t, "sol")
	for _, l := range []string{"s", "o", "l"} {
		_, err := e.Guess(l)
		require.NoError(t, err)
	}

	_, err := e.Guess("a")
	assert.ErrorIs(t, err, ErrRoundNotActive)
	snap, _ := e.Snapshot()
	assert.Equal(t, StatusWon, snap.Status)
}

func TestOperationsBeforeFirstStart(t *testing.T) {
	e := NewEngine(words.Fixed("gato"))

	_, err := e.Guess("a")
	assert.ErrorIs(t, err, ErrNoRound)
	_, err = e.Snapshot()
	assert.ErrorIs(t, err, ErrNoRound)
}

func TestSnapshotIdempotent(t *testing.T) {
	e := newTestEngine(t, "gato")
	_, err := e.Guess("a")
	require.NoError(t, err)

	first, err := e.Snapshot()
	require.NoError(t, err)
	second, err := e.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRevealLengthInvariant(t *testing.T) {
	e := newTestEngine(t, "murciélago")
	snap, _ := e.Snapshot()
	require.Len(t, snap.Revealed, 10)

	for _, l := range []string{"m", "u", "z", "é", "q"} {
		out, err := e.Guess(l)
		require.NoError(t, err)
		assert.Len(t, out.Snapshot.Revealed, 10)
	}
}

func TestAccentedLettersCompareLiterally(t *testing.T) {
	e := newTestEngine(t, "árbol")

	out, err := e.Guess("a")
	require.NoError(t, err)
	assert.False(t, out.Correct, "A does not match Á")

	out, err = e.Guess("á")
	require.NoError(t, err)
	assert.True(t, out.Correct)
	assert.Equal(t, []int{0}, out.Positions)
	assert.Equal(t, "Á", out.Snapshot.Revealed[0])
}

func TestDeterministicPickWithInjectedIndex(t *testing.T) {
	src := &stubSource{entries: []words.Entry{
		{Text: "gato"}, {Text: "sol"}, {Text: "casa"},
	}}
	e := NewEngine(src, WithRandIndex(func(n int) int { return 2 }))

	snap, err := e.Start(words.ThemeGeneral)
	require.NoError(t, err)
	require.Len(t, snap.Revealed, 4)

	for _, l := range []string{"c", "a", "s"} {
		_, err := e.Guess(l)
		require.NoError(t, err)
	}
	final, _ := e.Snapshot()
	assert.Equal(t, StatusWon, final.Status)
	assert.Equal(t, "CASA", final.Word)
}

func TestCustomMaxAttempts(t *testing.T) {
	e := NewEngine(words.Fixed("sol"), WithMaxAttempts(2))
	_, err := e.Start(words.ThemeGeneral)
	require.NoError(t, err)

	out, err := e.Guess("x")
	require.NoError(t, err)
	assert.False(t, out.Lost)
	assert.Equal(t, 1, out.AttemptsLeft)

	out, err = e.Guess("z")
	require.NoError(t, err)
	assert.True(t, out.Lost)
}

func TestRendererReceivesEveryStateChange(t *testing.T) {
	var got []Snapshot
	e := NewEngine(words.Fixed("sol"), WithRenderer(RenderFunc(func(s Snapshot) {
		got = append(got, s)
	})))

	_, err := e.Start(words.ThemeGeneral)
	require.NoError(t, err)
	_, err = e.Guess("s")
	require.NoError(t, err)
	_, err = e.Guess("z")
	require.NoError(t, err)

	require.Len(t, got, 3)
	assert.Equal(t, placeholders(3), got[0].Revealed)
	assert.Equal(t, "S", got[1].Revealed[0])
	assert.Equal(t, DefaultMaxAttempts-1, got[2].AttemptsLeft)

	// Rejected guesses do not notify the sink.
	_, err = e.Guess("s")
	require.ErrorIs(t, err, ErrAlreadyGuessed)
	assert.Len(t, got, 3)
}

func TestGuessedLettersSortedInSnapshot(t *testing.T) {
	e := newTestEngine(t, "gato")
	for _, l := range []string{"t", "g", "z"} {
		_, err := e.Guess(l)
		require.NoError(t, err)
	}
	snap, _ := e.Snapshot()
	assert.Equal(t, []string{"G", "T", "Z"}, snap.Guessed)
}

func TestWordsErrorsSurfaceUnwrapped(t *testing.T) {
	e := NewEngine(words.Fixed(""))
	_, err := e.Start(words.ThemeGeneral)
	assert.True(t, errors.Is(err, words.ErrEmptyCorpus))
}
