package prompt

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"wordspark-server/internal/content"
	"wordspark-server/internal/models"

	"github.com/rs/zerolog/log"
	"go.uber.org/zap"
)

// Stage identifies which base template a prompt is built from.
type Stage string

const (
	StageStoryOpening       Stage = "story_opening"
	StageStoryContinuation  Stage = "story_continuation"
	StageStoryEnding        Stage = "story_ending"
	StageDesignNaming       Stage = "design_naming"
	StageDesignAspect       Stage = "design_aspect"
	StageDesignContinuation Stage = "design_continuation"
	StageVocabQuestion      Stage = "vocab_question"
	StageGrammarFeedback    Stage = "grammar_feedback"
	StageFact               Stage = "fact"
)

// OpeningVariant selects between the named-protagonist and
// unnamed-protagonist story opening templates.
type OpeningVariant string

const (
	OpeningNamed   OpeningVariant = "named"
	OpeningUnnamed OpeningVariant = "unnamed"
)

// Params carries the contextual values substituted into a template.
type Params struct {
	Topic            string
	Theme            string
	VocabWords       []models.VocabularyWord
	StorySoFar       string
	ChildInput       string
	EntityDescriptor string
	EntityName       string
	EntityType       models.EntityType
	Aspect           models.Aspect
	Word             models.VocabularyWord
}

// Assembled is a ready-to-send prompt plus the vocabulary words that were
// offered to the model. Offered is what was presented, not what the model
// ultimately used; actual usage is determined later by the parser.
type Assembled struct {
	SystemPrompt string
	UserInput    string
	Offered      []string
}

// Assembler composes final LLM prompts from stage templates and context.
type Assembler struct {
	provider *content.Provider
	logger   *zap.Logger

	rngLock sync.Mutex
	rng     *rand.Rand

	// forceVariant pins the opening template choice; used by tests.
	forceVariant OpeningVariant
}

// NewAssembler creates a prompt Assembler.
func NewAssembler(provider *content.Provider, logger *zap.Logger) *Assembler {
	if provider == nil {
		log.Fatal().Msg("Content provider is nil for prompt Assembler")
	}
	if logger == nil {
		log.Fatal().Msg("Logger is nil for prompt Assembler")
	}
	return &Assembler{
		provider: provider,
		logger:   logger.Named("PromptAssembler"),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ForceOpeningVariant pins the story-opening template selection instead of
// choosing randomly. Deterministic override hook for tests.
func (a *Assembler) ForceOpeningVariant(v OpeningVariant) {
	a.forceVariant = v
}

// Build composes the prompt for a stage. It returns content.ErrTemplateMissing
// (wrapped) when no template exists for the stage; the caller is expected to
// hold a last-resort fallback for every stage.
func (a *Assembler) Build(stage Stage, p Params) (Assembled, error) {
	key, err := a.templateKey(stage, p)
	if err != nil {
		return Assembled{}, err
	}

	offered := make([]string, 0, len(p.VocabWords))
	for _, w := range p.VocabWords {
		offered = append(offered, w.Word)
	}

	placeholders := map[string]string{
		"TOPIC":        p.Topic,
		"THEME":        p.Theme,
		"VOCAB_WORDS":  formatVocabPool(p.VocabWords),
		"STORY_SO_FAR": p.StorySoFar,
		"CHILD_INPUT":  p.ChildInput,
		"ENTITY":       p.EntityDescriptor,
		"ENTITY_NAME":  p.EntityName,
		"ASPECT":       string(p.Aspect),
		"WORD":         p.Word.Word,
		"DEFINITION":   p.Word.Definition,
	}

	systemPrompt, err := a.provider.Render(key, placeholders)
	if err != nil {
		a.logger.Error("Failed to render stage template",
			zap.String("stage", string(stage)),
			zap.String("key", key),
			zap.Error(err))
		return Assembled{}, fmt.Errorf("stage '%s': %w", stage, err)
	}

	return Assembled{
		SystemPrompt: systemPrompt,
		UserInput:    p.ChildInput,
		Offered:      offered,
	}, nil
}

// templateKey maps a stage (plus entity state) to a content key.
func (a *Assembler) templateKey(stage Stage, p Params) (string, error) {
	switch stage {
	case StageStoryOpening:
		return "story_opening_" + string(a.openingVariant()), nil
	case StageStoryContinuation:
		return "story_continuation", nil
	case StageStoryEnding:
		return "story_ending", nil
	case StageDesignNaming:
		return "design_naming_" + string(p.EntityType), nil
	case StageDesignAspect:
		return "design_aspect", nil
	case StageDesignContinuation:
		return "design_continuation", nil
	case StageVocabQuestion:
		return "vocab_question", nil
	case StageGrammarFeedback:
		return "grammar_feedback", nil
	case StageFact:
		return "fact", nil
	default:
		return "", fmt.Errorf("unknown prompt stage '%s': %w", stage, content.ErrTemplateMissing)
	}
}

func (a *Assembler) openingVariant() OpeningVariant {
	if a.forceVariant != "" {
		return a.forceVariant
	}
	a.rngLock.Lock()
	defer a.rngLock.Unlock()
	if a.rng.Intn(2) == 0 {
		return OpeningNamed
	}
	return OpeningUnnamed
}

// formatVocabPool renders the candidate word pool as one line per word.
func formatVocabPool(words []models.VocabularyWord) string {
	if len(words) == 0 {
		return ""
	}
	lines := make([]string, 0, len(words))
	for _, w := range words {
		if w.Definition != "" {
			lines = append(lines, fmt.Sprintf("- %s (%s)", w.Word, w.Definition))
		} else {
			lines = append(lines, "- "+w.Word)
		}
	}
	return strings.Join(lines, "\n")
}
