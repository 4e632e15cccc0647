package prompt_test

import (
	"testing"

	"wordspark-server/internal/content"
	"wordspark-server/internal/models"
	"wordspark-server/internal/prompt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAssembler(t *testing.T, templates map[string]string) *prompt.Assembler {
	t.Helper()
	provider := content.NewProvider(zap.NewNop())
	for key, text := range templates {
		provider.Set(key, text)
	}
	return prompt.NewAssembler(provider, zap.NewNop())
}

func TestBuild_StoryOpening(t *testing.T) {
	a := newTestAssembler(t, map[string]string{
		"story_opening_named":   "NAMED topic={{TOPIC}} theme={{THEME}} words:\n{{VOCAB_WORDS}}",
		"story_opening_unnamed": "UNNAMED topic={{TOPIC}}",
	})
	a.ForceOpeningVariant(prompt.OpeningNamed)

	words := []models.VocabularyWord{
		{Word: "orbit", Definition: "the path around a planet"},
		{Word: "luminous", Definition: "giving off light"},
	}
	assembled, err := a.Build(prompt.StageStoryOpening, prompt.Params{
		Topic:      "space",
		Theme:      "a journey among the stars",
		VocabWords: words,
	})
	require.NoError(t, err)

	assert.Contains(t, assembled.SystemPrompt, "NAMED topic=space")
	assert.Contains(t, assembled.SystemPrompt, "theme=a journey among the stars")
	assert.Contains(t, assembled.SystemPrompt, "- orbit (the path around a planet)")
	assert.Contains(t, assembled.SystemPrompt, "- luminous (giving off light)")
	assert.Equal(t, []string{"orbit", "luminous"}, assembled.Offered)
}

func TestBuild_OpeningVariantForced(t *testing.T) {
	a := newTestAssembler(t, map[string]string{
		"story_opening_named":   "NAMED",
		"story_opening_unnamed": "UNNAMED",
	})

	a.ForceOpeningVariant(prompt.OpeningUnnamed)
	assembled, err := a.Build(prompt.StageStoryOpening, prompt.Params{Topic: "space"})
	require.NoError(t, err)
	assert.Equal(t, "UNNAMED", assembled.SystemPrompt)
}

func TestBuild_DesignNamingKeyByEntityType(t *testing.T) {
	a := newTestAssembler(t, map[string]string{
		"design_naming_character": "who is {{ENTITY}}?",
		"design_naming_location":  "where is {{ENTITY}}?",
	})

	assembled, err := a.Build(prompt.StageDesignNaming, prompt.Params{
		EntityType:       models.EntityCharacter,
		EntityDescriptor: "a young explorer",
	})
	require.NoError(t, err)
	assert.Equal(t, "who is a young explorer?", assembled.SystemPrompt)

	assembled, err = a.Build(prompt.StageDesignNaming, prompt.Params{
		EntityType:       models.EntityLocation,
		EntityDescriptor: "a dark cave",
	})
	require.NoError(t, err)
	assert.Equal(t, "where is a dark cave?", assembled.SystemPrompt)
}

func TestBuild_VocabQuestionPlaceholders(t *testing.T) {
	a := newTestAssembler(t, map[string]string{
		"vocab_question": "word={{WORD}} def={{DEFINITION}}",
	})

	assembled, err := a.Build(prompt.StageVocabQuestion, prompt.Params{
		Word: models.VocabularyWord{Word: "teamwork", Definition: "working together"},
	})
	require.NoError(t, err)
	assert.Equal(t, "word=teamwork def=working together", assembled.SystemPrompt)
}

func TestBuild_ChildInputBecomesUserInput(t *testing.T) {
	a := newTestAssembler(t, map[string]string{
		"story_continuation": "so far: {{STORY_SO_FAR}}",
	})

	assembled, err := a.Build(prompt.StageStoryContinuation, prompt.Params{
		StorySoFar: "Once upon a time.",
		ChildInput: "then a dragon appeared",
	})
	require.NoError(t, err)
	assert.Equal(t, "then a dragon appeared", assembled.UserInput)
	assert.Contains(t, assembled.SystemPrompt, "Once upon a time.")
}

func TestBuild_MissingTemplate(t *testing.T) {
	a := newTestAssembler(t, nil)

	_, err := a.Build(prompt.StageFact, prompt.Params{Topic: "space"})
	require.Error(t, err)
	assert.ErrorIs(t, err, content.ErrTemplateMissing)
}
