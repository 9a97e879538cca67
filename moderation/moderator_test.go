package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestModerator(t *testing.T, words ...string) Moderator {
	t.Helper()
	m, err := NewModerator(words, '*')
	require.NoError(t, err)
	return m
}

func TestModerator_Censors_Exact_Word(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t, "scam")

	censored := m.Censor("this deal is a scam, trust me")

	req.NotContains(censored, "scam")
	req.Contains(censored, "this deal is a ")
	req.Contains(censored, "****")
}

func TestModerator_Is_Case_Insensitive(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t, "scam")

	req.NotContains(m.Censor("SCAM"), "SCAM")
	req.NotContains(m.Censor("ScAm"), "ScAm")
}

func TestModerator_Catches_Leet_Variants(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t, "scam")

	// Digit and symbol substitutions normalize back to letters
	censored := m.Censor("what a sc4m")
	req.NotContains(censored, "sc4m")
}

func TestModerator_Ignores_Clean_Text(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t, "scam")

	clean := "a perfectly polite message"
	req.Equal(clean, m.Censor(clean))
}

func TestModerator_Preserves_Surrounding_Text(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t, "idiot")

	censored := m.Censor("you idiot, pay me")
	req.Equal(len([]rune("you idiot, pay me")), len([]rune(censored)))
	req.NotContains(censored, "idiot")
}

func TestLoadWords_Embedded_Dictionaries(t *testing.T) {
	req := require.New(t)

	list, err := LoadWords()
	req.NoError(err)
	req.NotEmpty(list.Words)
	req.NotEmpty(list.Languages)

	// Dictionaries are deduplicated and lower cased
	seen := make(map[string]struct{}, len(list.Words))
	for _, word := range list.Words {
		_, duplicate := seen[word]
		req.False(duplicate, "duplicated word %q", word)
		seen[word] = struct{}{}
	}
}

func TestDetectLang_Common_Languages(t *testing.T) {
	req := require.New(t)

	req.Equal("en", DetectLang("the quick brown fox jumps over the lazy dog"))
	req.Equal("fr", DetectLang("bonjour, je voudrais discuter du projet avec vous"))
}
