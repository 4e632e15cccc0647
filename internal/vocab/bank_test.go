package vocab_test

import (
	"strings"
	"testing"

	"wordspark-server/internal/models"
	"wordspark-server/internal/vocab"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWords() []models.VocabularyWord {
	return []models.VocabularyWord{
		{Word: "curious", Definition: "wanting to know about something", DifficultyTier: 2},
		{Word: "brave", Definition: "ready to face something scary", DifficultyTier: 2},
		{Word: "gentle", Definition: "soft and kind", DifficultyTier: 2},
		{Word: "mysterious", Definition: "strange and hard to explain", DifficultyTier: 3},
		{Word: "triumphant", Definition: "full of joy after winning", DifficultyTier: 3},
		{Word: "magnificent", Definition: "extremely impressive", DifficultyTier: 3},
		{Word: "orbit", Definition: "the path around a planet or star", DifficultyTier: 2, TopicAffinity: "space"},
		{Word: "luminous", Definition: "giving off light", DifficultyTier: 3, TopicAffinity: "space"},
		{Word: "teamwork", Definition: "working together toward one goal", DifficultyTier: 2, TopicAffinity: "sports"},
	}
}

func TestSelectWords_TierBalance(t *testing.T) {
	bank := vocab.NewBankFromWords(testWords(), 1)

	words := bank.SelectWords("", nil, 4)
	require.Len(t, words, 4)

	tier2, tier3 := 0, 0
	for _, w := range words {
		if w.DifficultyTier == 3 {
			tier3++
		} else {
			tier2++
		}
	}
	assert.Equal(t, 2, tier2)
	assert.Equal(t, 2, tier3)
}

func TestSelectWords_TopicPoolIncluded(t *testing.T) {
	bank := vocab.NewBankFromWords(testWords(), 1)

	// Asking for every candidate proves the topic pool is merged in.
	words := bank.SelectWords("space", nil, 8)
	require.Len(t, words, 8)

	names := make([]string, 0, len(words))
	for _, w := range words {
		names = append(names, w.Word)
	}
	assert.Contains(t, names, "orbit")
	assert.Contains(t, names, "luminous")
	assert.NotContains(t, names, "teamwork")
}

func TestSelectWords_ExcludesAskedWords(t *testing.T) {
	bank := vocab.NewBankFromWords(testWords(), 1)
	excluded := map[string]struct{}{
		"curious": {},
		"brave":   {},
	}

	words := bank.SelectWords("", excluded, 6)
	for _, w := range words {
		assert.NotContains(t, excluded, strings.ToLower(w.Word))
	}
}

func TestSelectWords_ShortfallReturnsWhatRemains(t *testing.T) {
	bank := vocab.NewBankFromWords(testWords()[:2], 1)

	words := bank.SelectWords("", nil, 6)
	assert.Len(t, words, 2)

	assert.Nil(t, bank.SelectWords("", nil, 0))
}

func TestLookup(t *testing.T) {
	bank := vocab.NewBankFromWords(testWords(), 1)

	w, ok := bank.Lookup("Teamwork")
	require.True(t, ok)
	assert.Equal(t, "teamwork", w.Word)
	assert.Equal(t, "working together toward one goal", w.Definition)

	_, ok = bank.Lookup("nonexistent")
	assert.False(t, ok)
}

func TestRandomDefinitions(t *testing.T) {
	bank := vocab.NewBankFromWords(testWords(), 1)

	defs := bank.RandomDefinitions("teamwork", 3)
	require.Len(t, defs, 3)
	for _, d := range defs {
		assert.NotEmpty(t, d)
		assert.NotEqual(t, "working together toward one goal", d)
	}
}

func TestSelectBestWord(t *testing.T) {
	t.Run("skips capitalized names", func(t *testing.T) {
		word, ok := vocab.SelectBestWord([]string{"Messi", "teamwork", "Ronaldo"})
		require.True(t, ok)
		assert.Equal(t, "teamwork", word)
	})

	t.Run("all capitalized falls back to first", func(t *testing.T) {
		word, ok := vocab.SelectBestWord([]string{"Messi", "Ronaldo"})
		require.True(t, ok)
		assert.Equal(t, "Messi", word)
	})

	t.Run("empty candidates", func(t *testing.T) {
		_, ok := vocab.SelectBestWord(nil)
		assert.False(t, ok)
	})
}
