// Package tone defines the fixed set of emotional tones used as a secondary ranking key.
package tone

import (
	"fmt"

	"github.com/kailas-cloud/bookrec/internal/domain/book"
)

// Tone is a ranking tone. The zero value is All (no re-ranking).
type Tone string

// Supported tones.
const (
	All         Tone = "All"
	Happy       Tone = "Happy"
	Surprising  Tone = "Surprising"
	Angry       Tone = "Angry"
	Suspenseful Tone = "Suspenseful"
	Sad         Tone = "Sad"
)

var ranked = []Tone{Happy, Surprising, Angry, Suspenseful, Sad}

// Parse maps a label to a Tone. Empty input means All. Matching is case-sensitive.
func Parse(s string) (Tone, error) {
	if s == "" || s == string(All) {
		return All, nil
	}
	for _, t := range ranked {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tone %q", s)
}

// IsAll reports whether t disables tone re-ranking.
func (t Tone) IsAll() bool {
	return t == "" || t == All
}

// Score returns the emotion score t ranks by. All scores zero.
func (t Tone) Score(e book.Emotions) float64 {
	switch t {
	case Happy:
		return e.Joy
	case Surprising:
		return e.Surprise
	case Angry:
		return e.Anger
	case Suspenseful:
		return e.Fear
	case Sad:
		return e.Sadness
	default:
		return 0
	}
}

// Labels lists every tone label, "All" first.
func Labels() []string {
	out := make([]string, 0, len(ranked)+1)
	out = append(out, string(All))
	for _, t := range ranked {
		out = append(out, string(t))
	}
	return out
}
