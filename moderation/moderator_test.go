package moderation

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"chat-relay/errors"
)

const replacement = '*'

// The dictionary uses specific words to avoid partial collisions
// (e.g., "he" inside "The").
func TestModerator_Censor(t *testing.T) {
	req := require.New(t)
	dictionary := []string{"badger", "snake"}
	mod, err := NewModerator(dictionary, replacement, slog.Default())
	req.NoError(err)

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Simple word and space preservation",
			input:    "The badger is here",
			expected: "The ****** is here",
		},
		{
			name:     "Multiple occurrences",
			input:    "badger badger badger",
			expected: "****** ****** ******",
		},
		{
			name:     "Uppercase",
			input:    "SNAKE and BaDgEr",
			expected: "***** and ******",
		},
		{
			name:     "Internal punctuation noise",
			input:    "a s.n.a.k.e appears",
			expected: "a ********* appears",
		},
		{
			name:     "Clean text untouched",
			input:    "nothing to see here",
			expected: "nothing to see here",
		},
		{
			name:     "Empty text untouched",
			input:    "",
			expected: "",
		},
		{
			name:     "Punctuation only untouched",
			input:    "!!! ... ???",
			expected: "!!! ... ???",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, mod.Censor(tt.input))
		})
	}
}

func TestNewModerator_EmptyWordList(t *testing.T) {
	req := require.New(t)

	_, err := NewModerator(nil, replacement, slog.Default())

	req.ErrorIs(err, errors.ErrEmptyWords)
}
