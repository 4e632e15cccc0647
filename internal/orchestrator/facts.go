package orchestrator

import (
	"context"

	"wordspark-server/internal/models"
	"wordspark-server/internal/prompt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// nextFact generates one fun fact for the current topic with a vocabulary
// question attached. prefix (usually answer feedback) is prepended to the
// response when present.
func (o *Orchestrator) nextFact(ctx context.Context, state *models.SessionState, prefix string) *TurnResult {
	words := o.bank.SelectWords(state.Topic, excludedSet(state), o.cfg.VocabOfferCount)

	assembled, err := o.assembler.Build(prompt.StageFact, prompt.Params{
		Topic:      state.Topic,
		Theme:      state.SuggestedTheme,
		VocabWords: words,
	})

	var parsed models.ParsedResponse
	ok := false
	offered := []string{}
	if err != nil {
		o.logger.Error("Fact template missing, using fallback", zap.Error(err))
	} else {
		offered = assembled.Offered
		parsed, ok = o.generate(ctx, assembled)
	}
	if !ok {
		fallbacksTotal.With(prometheus.Labels{"stage": "fact"}).Inc()
		parsed = o.parser.Parse(o.fallbackFact(state.Topic))
	}

	state.FactsShown++
	state.Phase = models.PhaseAwaitingContinuation

	question := o.buildVocabQuestion(ctx, state, parsed.BoldedWords, offered)
	if question == nil {
		return &TurnResult{ResponseText: joinParts(prefix, parsed.NarrativeText, o.staticText("fact_more_ask"))}
	}
	return &TurnResult{
		ResponseText:  joinParts(prefix, parsed.NarrativeText, question.PromptText),
		VocabQuestion: question,
	}
}

// afterFactAnswer decides what follows an answered facts-mode question:
// another fact, or a topic-change offer once the per-topic cap is reached.
func (o *Orchestrator) afterFactAnswer(ctx context.Context, state *models.SessionState, feedback string) *TurnResult {
	if state.FactsShown >= o.cfg.FactsPerTopic {
		state.Phase = models.PhaseAwaitingTopicChange
		return &TurnResult{ResponseText: joinParts(feedback, o.staticText("topic_change_offer"))}
	}
	return o.nextFact(ctx, state, feedback)
}

// handleTopicChange processes the reply to a topic-change offer. Explicit
// continuation requests keep the current topic going indefinitely.
func (o *Orchestrator) handleTopicChange(ctx context.Context, state *models.SessionState, userMessage string) *TurnResult {
	if userMessage == "" {
		return &TurnResult{ResponseText: o.staticText("topic_change_offer")}
	}

	if o.resolver.IsSameTopicRequest(userMessage, state.Topic) {
		state.FactsShown = 0
		return o.nextFact(ctx, state, "")
	}

	res := o.resolver.Resolve(userMessage)
	state.Topic = res.Tag
	state.SuggestedTheme = res.Theme
	state.FactsShown = 0
	return o.nextFact(ctx, state, "")
}
