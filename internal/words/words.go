// internal/words/words.go
//
// Themed word corpora for the hangman engine.
//
// Responsibilities:
//   - Load a corpus document for a theme from a configured directory or fall
//     back to the embedded defaults.
//   - Parse/validate the document into entries usable as secret words.
//   - Select one entry uniformly at random, normalized to canonical uppercase.
//
// Corpus documents:
//   One JSON file per theme, named "<theme>.json":
//     {"words": [{"text": "gato", "category": "animales"}, ...]}
//   Entries whose text contains characters outside the accepted alphabet are
//   skipped on load.
//
// Environment variables:
//   WORDS_DIR=/path/to/corpora   (optional; overrides embedded defaults)

package words

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ahorcado-game/server/assets"
)

// Theme selects a word corpus. Immutable once a round starts.
type Theme string

const (
	ThemeGeneral Theme = "general"
	ThemeMusic   Theme = "music"
	ThemeAnimals Theme = "animals"
)

// Themes lists every theme a corpus ships for.
func Themes() []Theme {
	return []Theme{ThemeGeneral, ThemeMusic, ThemeAnimals}
}

// ParseTheme maps a raw string onto a known theme.
func ParseTheme(s string) (Theme, error) {
	t := Theme(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Themes() {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown theme %q", s)
}

// Entry is one candidate secret word plus optional metadata.
type Entry struct {
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
}

// document is the on-disk corpus shape.
type document struct {
	Words []Entry `json:"words"`
}

var (
	// ErrUnavailable reports that a corpus document could not be read or parsed.
	ErrUnavailable = errors.New("words: corpus unavailable")
	// ErrEmptyCorpus reports a corpus with zero usable entries.
	ErrEmptyCorpus = errors.New("words: corpus is empty")
)

// Source supplies candidate secret words for a theme.
type Source interface {
	Corpus(theme Theme) ([]Entry, error)
}

// FileSource loads corpora from a directory of <theme>.json files,
// falling back to the embedded defaults when no directory is configured.
type FileSource struct {
	dir string
}

// NewSource builds a FileSource honoring the WORDS_DIR environment variable.
func NewSource() *FileSource {
	return &FileSource{dir: os.Getenv("WORDS_DIR")}
}

// NewDirSource builds a FileSource reading from an explicit directory.
func NewDirSource(dir string) *FileSource {
	return &FileSource{dir: dir}
}

// Corpus reads and parses the document for theme.
// Returns ErrUnavailable on read/parse failure, ErrEmptyCorpus when the
// document holds no usable entries.
func (s *FileSource) Corpus(theme Theme) ([]Entry, error) {
	var raw []byte
	var err error
	if s.dir != "" {
		raw, err = os.ReadFile(filepath.Join(s.dir, string(theme)+".json"))
	} else {
		raw, err = assets.Corpus(string(theme))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, theme, err)
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, theme, err)
	}

	out := make([]Entry, 0, len(doc.Words))
	for _, e := range doc.Words {
		e.Text = strings.TrimSpace(e.Text)
		if e.Text == "" || !Accepted(strings.ToUpper(e.Text)) {
			continue
		}
		out = append(out, e)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyCorpus, theme)
	}
	return out, nil
}

// fixed is a single-entry Source used for tests and fixed-answer games.
type fixed struct {
	entry Entry
}

// Fixed returns a Source that yields exactly one entry for any theme.
func Fixed(text string) Source {
	return fixed{entry: Entry{Text: text}}
}

func (f fixed) Corpus(Theme) ([]Entry, error) {
	if strings.TrimSpace(f.entry.Text) == "" {
		return nil, ErrEmptyCorpus
	}
	return []Entry{f.entry}, nil
}

// Pick selects one entry uniformly over [0, len(corpus)) and returns its text
// in canonical uppercase. idx may be nil, in which case a crypto/rand index is
// drawn. Never returns a word for an empty corpus.
func Pick(corpus []Entry, idx func(n int) int) (string, error) {
	if len(corpus) == 0 {
		return "", ErrEmptyCorpus
	}
	var i int
	if idx != nil {
		i = idx(len(corpus))
	} else {
		nBig, _ := rand.Int(rand.Reader, big.NewInt(int64(len(corpus))))
		i = int(nBig.Int64())
	}
	if i < 0 || i >= len(corpus) {
		return "", fmt.Errorf("words: pick index %d out of range", i)
	}
	return strings.ToUpper(corpus[i].Text), nil
}

// alphabet is the accepted letter set: Latin A-Z plus the Spanish
// accented vowels, diaeresis and enye.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZÁÉÍÓÚÜÑ"

var alphabetSet = func() map[rune]struct{} {
	m := make(map[rune]struct{})
	for _, r := range alphabet {
		m[r] = struct{}{}
	}
	return m
}()

// IsLetter reports whether r belongs to the accepted alphabet.
// Input is expected in canonical uppercase.
func IsLetter(r rune) bool {
	_, ok := alphabetSet[r]
	return ok
}

// Accepted reports whether every rune of s (canonical uppercase) belongs to
// the accepted alphabet.
func Accepted(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !IsLetter(r) {
			return false
		}
	}
	return true
}
