package orchestrator

import (
	"context"
	"strings"

	"wordspark-server/internal/models"
	"wordspark-server/internal/prompt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// handleDesignTurn processes one child reply inside the entity design
// sub-flow: either a name for the Naming step or a description for the
// current aspect.
func (o *Orchestrator) handleDesignTurn(ctx context.Context, state *models.SessionState, userMessage string) *TurnResult {
	ds := state.DesignState
	if ds == nil {
		// Phase says design but the sub-state is gone; recover by resuming
		// normal continuation.
		state.Phase = models.PhaseAwaitingContinuation
		return &TurnResult{ResponseText: o.staticText("story_continue_ask")}
	}

	if userMessage == "" {
		return &TurnResult{ResponseText: o.designQuestionText(ctx, ds)}
	}

	if ds.CurrentAspect == models.AspectNaming {
		o.designer.HandleName(ds, userMessage)
		ack := o.renderStatic("design_name_ack", map[string]string{"NAME": ds.EntityDescriptor})
		return &TurnResult{ResponseText: joinParts(ack, o.designQuestionText(ctx, ds))}
	}

	// A description for the current aspect.
	coaching := o.grammarFeedback(ctx, userMessage)
	if coaching == "" {
		coaching = o.staticText("design_encourage")
	}

	answeredAspect := ds.CurrentAspect
	o.designer.HandleDescription(ds)

	if !ds.Complete {
		return &TurnResult{ResponseText: joinParts(coaching, o.designQuestionText(ctx, ds))}
	}

	return o.resumeStoryFromDesign(ctx, state, answeredAspect, userMessage, coaching)
}

// resumeStoryFromDesign feeds the designed entity back into the narrative,
// then either chains to the next undesigned entity or returns to normal
// story continuation with a vocabulary question.
func (o *Orchestrator) resumeStoryFromDesign(ctx context.Context, state *models.SessionState, aspect models.Aspect, description, coaching string) *TurnResult {
	ds := state.DesignState
	entityName := ds.EntityDescriptor

	words := o.bank.SelectWords(state.Topic, excludedSet(state), o.cfg.VocabOfferCount)
	assembled, err := o.assembler.Build(prompt.StageDesignContinuation, prompt.Params{
		Topic:      state.Topic,
		VocabWords: words,
		StorySoFar: strings.Join(state.StorySegments, "\n"),
		ChildInput: description,
		EntityName: entityName,
		EntityType: ds.EntityType,
		Aspect:     aspect,
	})

	var parsed models.ParsedResponse
	ok := false
	offered := []string{}
	if err != nil {
		o.logger.Error("Design continuation template missing, using fallback", zap.Error(err))
	} else {
		offered = assembled.Offered
		parsed, ok = o.generate(ctx, assembled)
	}
	if !ok {
		fallbacksTotal.With(prometheus.Labels{"stage": "design_continuation"}).Inc()
		parsed = o.parser.Parse(o.fallbackDesignContinuation(entityName))
	}

	state.StorySegments = append(state.StorySegments, parsed.NarrativeText)
	state.DesignedEntities = append(state.DesignedEntities, entityName)
	// A renamed entity is still listed in the metadata cache under its
	// original descriptor; record that too so it is not re-selected.
	if ds.SourceDescriptor != "" && !strings.EqualFold(ds.SourceDescriptor, entityName) {
		state.DesignedEntities = append(state.DesignedEntities, ds.SourceDescriptor)
	}
	state.DesignState = nil

	// Chain straight into the next undesigned entity while the metadata is
	// still fresh.
	if sel := o.designer.SelectNextEntity(state.StoryMetadataCache, state.DesignedEntities); sel != nil {
		state.DesignState = o.designer.Begin(sel)
		return &TurnResult{ResponseText: joinParts(coaching, parsed.NarrativeText, o.designQuestionText(ctx, state.DesignState))}
	}

	state.StoryMetadataCache = nil
	state.Phase = models.PhaseAwaitingContinuation

	question := o.buildVocabQuestion(ctx, state, parsed.BoldedWords, offered)
	if question == nil {
		return &TurnResult{ResponseText: joinParts(coaching, parsed.NarrativeText, o.staticText("story_continue_ask"))}
	}
	return &TurnResult{
		ResponseText:  joinParts(coaching, parsed.NarrativeText, question.PromptText),
		VocabQuestion: question,
	}
}

// designQuestionText produces the question shown to the child for the
// current design step. The naming and aspect prompts are LLM-generated from
// their stage templates, with static per-aspect fallbacks so the sub-flow
// never stalls.
func (o *Orchestrator) designQuestionText(ctx context.Context, ds *models.DesignState) string {
	stage := prompt.StageDesignAspect
	if ds.CurrentAspect == models.AspectNaming {
		stage = prompt.StageDesignNaming
	}

	assembled, err := o.assembler.Build(stage, prompt.Params{
		EntityDescriptor: ds.EntityDescriptor,
		EntityType:       ds.EntityType,
		Aspect:           ds.CurrentAspect,
	})
	if err == nil {
		if parsed, ok := o.generate(ctx, assembled); ok {
			return parsed.NarrativeText
		}
	} else {
		o.logger.Error("Design question template missing, using fallback",
			zap.String("stage", string(stage)), zap.Error(err))
	}

	fallbacksTotal.With(prometheus.Labels{"stage": string(stage)}).Inc()
	return o.fallbackDesignQuestion(ds)
}
