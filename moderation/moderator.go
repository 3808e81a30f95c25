// Package moderation censors forbidden words in chat text before the
// room broadcasts it. Matching is case-insensitive and ignores
// punctuation noise between letters, so "b.a.d" still matches "bad".
package moderation

import (
	"log/slog"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"

	"chat-relay/errors"
)

type Moderator struct {
	log         *slog.Logger
	matcher     *goahocorasick.Machine
	replacement rune
}

// mapping ties each rune of the normalized text back to its index in the
// original, so a match found on the normalized form can be masked in place.
type mapping struct {
	normalized []rune
	origIdx    []int
}

// NewModerator builds the Aho-Corasick automaton from the normalized word
// list. An empty list is an error: a moderator that censors nothing
// should simply not be constructed.
func NewModerator(words []string, replacement rune, log *slog.Logger) (*Moderator, error) {
	if len(words) == 0 {
		return nil, errors.ErrEmptyWords
	}

	patterns := make([][]rune, len(words))
	for i, word := range words {
		patterns[i] = normalize(word).normalized
	}

	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Moderator{log: log, matcher: m, replacement: replacement}, nil
}

// Censor replaces every occurrence of a forbidden word with the
// replacement rune, preserving the length and spacing of the original.
func (m *Moderator) Censor(text string) string {
	mapped := normalize(text)
	if len(mapped.normalized) == 0 {
		return text
	}

	spans := m.matcher.MultiPatternSearch(mapped.normalized, false)
	if len(spans) == 0 {
		return text
	}

	origRunes := []rune(text)
	for _, span := range spans {
		start := span.Pos
		end := start + len(span.Word)
		if start < 0 || end > len(mapped.origIdx) {
			m.log.Debug("Dropping out-of-range match span", "pos", span.Pos)
			continue
		}

		// Mask from the first to the last original rune of the match,
		// covering any noise characters in between.
		for i := mapped.origIdx[start]; i <= mapped.origIdx[end-1]; i++ {
			origRunes[i] = m.replacement
		}
	}
	return string(origRunes)
}

// normalize lowercases the text and drops every rune that is neither a
// letter nor a digit, keeping the index of each surviving rune.
func normalize(text string) mapping {
	origRunes := []rune(text)
	out := mapping{
		normalized: make([]rune, 0, len(origRunes)),
		origIdx:    make([]int, 0, len(origRunes)),
	}
	for i, r := range origRunes {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		out.normalized = append(out.normalized, unicode.ToLower(r))
		out.origIdx = append(out.origIdx, i)
	}
	return out
}
