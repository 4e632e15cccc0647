package orchestrator

import (
	"context"
	"strings"

	"wordspark-server/internal/models"
	"wordspark-server/internal/parser"
	"wordspark-server/internal/prompt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	aiservice "wordspark-server/internal/service"
)

// openStory generates the story opening for the resolved topic and either
// enters the design phase (when the opening introduced a designable entity)
// or attaches the first vocabulary question.
func (o *Orchestrator) openStory(ctx context.Context, state *models.SessionState) *TurnResult {
	words := o.bank.SelectWords(state.Topic, excludedSet(state), o.cfg.VocabOfferCount)

	assembled, err := o.assembler.Build(prompt.StageStoryOpening, prompt.Params{
		Topic:      state.Topic,
		Theme:      state.SuggestedTheme,
		VocabWords: words,
	})

	var parsed models.ParsedResponse
	ok := false
	offered := []string{}
	if err != nil {
		o.logger.Error("Story opening template missing, using fallback", zap.Error(err))
	} else {
		offered = assembled.Offered
		parsed, ok = o.generate(ctx, assembled)
	}
	if !ok {
		fallbacksTotal.With(prometheus.Labels{"stage": "story_opening"}).Inc()
		parsed = o.parser.Parse(o.fallbackOpening(state.Topic))
	}

	state.StorySegments = append(state.StorySegments, parsed.NarrativeText)
	state.StoryTurns = 1
	state.Phase = models.PhaseAwaitingContinuation

	return o.afterStoryGeneration(ctx, state, parsed, offered, "")
}

// handleStoryContinuation processes a child-submitted story continuation:
// appends it, produces optional grammar feedback, and either ends the story
// or generates the next segment.
func (o *Orchestrator) handleStoryContinuation(ctx context.Context, state *models.SessionState, userMessage string) *TurnResult {
	if userMessage == "" {
		return &TurnResult{ResponseText: o.staticText("story_continue_ask")}
	}

	state.StorySegments = append(state.StorySegments, userMessage)
	state.StoryTurns++

	grammarNote := o.grammarFeedback(ctx, userMessage)

	if o.storyShouldEnd(state) {
		return o.endStory(ctx, state, userMessage, grammarNote)
	}

	words := o.bank.SelectWords(state.Topic, excludedSet(state), o.cfg.VocabOfferCount)
	assembled, err := o.assembler.Build(prompt.StageStoryContinuation, prompt.Params{
		Topic:      state.Topic,
		VocabWords: words,
		StorySoFar: strings.Join(state.StorySegments, "\n"),
		ChildInput: userMessage,
	})

	var parsed models.ParsedResponse
	ok := false
	offered := []string{}
	if err != nil {
		o.logger.Error("Story continuation template missing, using fallback", zap.Error(err))
	} else {
		offered = assembled.Offered
		parsed, ok = o.generate(ctx, assembled)
	}
	if !ok {
		fallbacksTotal.With(prometheus.Labels{"stage": "story_continuation"}).Inc()
		parsed = o.parser.Parse(o.fallbackContinuation(state.Topic))
	}

	state.StorySegments = append(state.StorySegments, parsed.NarrativeText)

	return o.afterStoryGeneration(ctx, state, parsed, offered, grammarNote)
}

// storyShouldEnd applies the double completion rule: minimum substance
// (enough turns and accumulated length) or the hard turn ceiling,
// whichever comes first.
func (o *Orchestrator) storyShouldEnd(state *models.SessionState) bool {
	if state.StoryTurns >= o.cfg.StoryMaxTurns {
		return true
	}
	return state.StoryTurns >= o.cfg.StoryMinTurns && state.StoryLength() > o.cfg.StoryMinLength
}

// endStory generates the story ending and moves to the title phase.
func (o *Orchestrator) endStory(ctx context.Context, state *models.SessionState, userMessage, grammarNote string) *TurnResult {
	assembled, err := o.assembler.Build(prompt.StageStoryEnding, prompt.Params{
		Topic:      state.Topic,
		StorySoFar: strings.Join(state.StorySegments, "\n"),
		ChildInput: userMessage,
	})

	var parsed models.ParsedResponse
	ok := false
	if err != nil {
		o.logger.Error("Story ending template missing, using fallback", zap.Error(err))
	} else {
		parsed, ok = o.generate(ctx, assembled)
	}
	if !ok {
		fallbacksTotal.With(prometheus.Labels{"stage": "story_ending"}).Inc()
		parsed = o.parser.Parse(o.fallbackEnding(state.Topic))
	}

	state.StorySegments = append(state.StorySegments, parsed.NarrativeText)
	state.Phase = models.PhaseAwaitingTitle
	state.DesignState = nil
	state.StoryMetadataCache = nil

	text := joinParts(grammarNote, parsed.NarrativeText, o.staticText("title_ask"))
	return &TurnResult{ResponseText: text}
}

// handleTitle accepts the child's story title, congratulates, and asks one
// final vocabulary question drawn from the ending segment.
func (o *Orchestrator) handleTitle(ctx context.Context, state *models.SessionState, userMessage string) *TurnResult {
	if userMessage == "" {
		return &TurnResult{ResponseText: o.staticText("title_ask")}
	}

	congrats := o.renderStatic("title_congrats", map[string]string{"TITLE": userMessage})
	state.Phase = models.PhaseSessionComplete

	// One last question from the ending paragraph, when it has fresh words.
	candidates := []string{}
	if n := len(state.StorySegments); n > 0 {
		candidates = boldedWordsOf(o.parser, state.StorySegments[n-1])
	}
	question := o.buildVocabQuestion(ctx, state, candidates, nil)
	if question == nil {
		return &TurnResult{ResponseText: joinParts(congrats, o.staticText("session_complete"))}
	}
	return &TurnResult{
		ResponseText:  joinParts(congrats, question.PromptText),
		VocabQuestion: question,
	}
}

// afterStoryGeneration caches entity metadata, enters the design phase when
// an undesigned entity was detected, and otherwise attaches a vocabulary
// question for the generated segment.
func (o *Orchestrator) afterStoryGeneration(ctx context.Context, state *models.SessionState, parsed models.ParsedResponse, offered []string, grammarNote string) *TurnResult {
	meta := parsed.EntityMetadata
	if meta == nil && parsed.ParseStatus == models.ParseMalformedJSON {
		// Metadata was present but broken; try the heuristic repair before
		// giving up on the design phase.
		meta = parser.RepairEntities(parsed.NarrativeText, parsed.BoldedWords)
	}

	if meta != nil && !meta.IsEmpty() {
		state.StoryMetadataCache = meta
		if sel := o.designer.SelectNextEntity(meta, state.DesignedEntities); sel != nil {
			state.DesignState = o.designer.Begin(sel)
			state.Phase = models.PhaseEntityDesign
			questionText := o.designQuestionText(ctx, state.DesignState)
			return &TurnResult{ResponseText: joinParts(grammarNote, parsed.NarrativeText, questionText)}
		}
	}

	question := o.buildVocabQuestion(ctx, state, parsed.BoldedWords, offered)
	if question == nil {
		return &TurnResult{ResponseText: joinParts(grammarNote, parsed.NarrativeText, o.staticText("story_continue_ask"))}
	}
	return &TurnResult{
		ResponseText:  joinParts(grammarNote, parsed.NarrativeText, question.PromptText),
		VocabQuestion: question,
	}
}

// grammarFeedback asks the LLM for a short coaching note on the child's
// phrasing. Always optional: any failure just drops the note.
func (o *Orchestrator) grammarFeedback(ctx context.Context, childText string) string {
	if len(childText) < 12 {
		// Too short to coach usefully.
		return ""
	}
	assembled, err := o.assembler.Build(prompt.StageGrammarFeedback, prompt.Params{ChildInput: childText})
	if err != nil {
		return ""
	}
	raw, _, err := o.ai.GenerateText(ctx, assembled.SystemPrompt, assembled.UserInput, aiservice.GenerationParams{})
	if err != nil {
		o.logger.Debug("Grammar feedback call failed, skipping", zap.Error(err))
		return ""
	}
	note := strings.TrimSpace(raw)
	if note == "" || len(note) > 300 {
		return ""
	}
	return note
}

func boldedWordsOf(p *parser.Parser, text string) []string {
	return p.Parse(text).BoldedWords
}

// joinParts joins non-empty response fragments with blank lines.
func joinParts(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, strings.TrimSpace(p))
		}
	}
	return strings.Join(kept, "\n\n")
}
