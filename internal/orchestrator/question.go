package orchestrator

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"wordspark-server/internal/models"
	"wordspark-server/internal/prompt"
	"wordspark-server/internal/vocab"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	aiservice "wordspark-server/internal/service"
)

// questionPayload is the JSON shape the vocab-question template instructs
// the model to emit.
type questionPayload struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
}

// buildVocabQuestion selects exactly one word and builds a multiple-choice
// question about it. The word is chosen once, here, and threaded unchanged
// into question generation; it is never re-derived downstream. Returns nil
// when no fresh word is available (the turn then carries no question).
func (o *Orchestrator) buildVocabQuestion(ctx context.Context, state *models.SessionState, candidates []string, offered []string) *models.VocabQuestion {
	pool := filterAsked(candidates, state)
	if len(pool) == 0 {
		pool = filterAsked(offered, state)
	}

	word, ok := vocab.SelectBestWord(pool)
	if !ok {
		return nil
	}

	wordRec, found := o.bank.Lookup(word)
	if !found {
		wordRec = models.VocabularyWord{Word: word}
	}

	question := o.generateQuestion(ctx, state.Topic, wordRec)
	if question == nil {
		question = o.fallbackQuestion(wordRec)
	}
	if question == nil {
		return nil
	}

	state.MarkWordAsked(word)
	state.PendingVocabQuestion = question
	return question
}

func filterAsked(words []string, state *models.SessionState) []string {
	var out []string
	for _, w := range words {
		if w == "" {
			continue
		}
		asked := false
		for _, a := range state.AskedVocabWords {
			if strings.EqualFold(a, w) {
				asked = true
				break
			}
		}
		if !asked {
			out = append(out, w)
		}
	}
	return out
}

// generateQuestion asks the LLM to produce a question with 4 options.
// Any failure returns nil and the deterministic fallback takes over.
func (o *Orchestrator) generateQuestion(ctx context.Context, topicTag string, word models.VocabularyWord) *models.VocabQuestion {
	assembled, err := o.assembler.Build(prompt.StageVocabQuestion, prompt.Params{
		Topic: topicTag,
		Word:  word,
	})
	if err != nil {
		o.logger.Error("Vocab question template missing", zap.Error(err))
		return nil
	}

	raw, _, err := o.ai.GenerateText(ctx, assembled.SystemPrompt, assembled.UserInput, aiservice.GenerationParams{})
	if err != nil {
		o.logger.Warn("Vocab question call failed, using bank fallback", zap.Error(err))
		return nil
	}

	payload, ok := parseQuestionPayload(raw)
	if !ok {
		o.logger.Warn("Vocab question response malformed, using bank fallback",
			zap.String("word", word.Word))
		return nil
	}

	return &models.VocabQuestion{
		Word:               word.Word,
		PromptText:         payload.Question,
		Options:            payload.Options,
		CorrectOptionIndex: payload.CorrectOptionIndex,
	}
}

func parseQuestionPayload(raw string) (questionPayload, bool) {
	var payload questionPayload
	trimmed := strings.TrimSpace(raw)

	first := strings.Index(trimmed, "{")
	last := strings.LastIndex(trimmed, "}")
	if first < 0 || last <= first {
		return payload, false
	}
	if err := json.Unmarshal([]byte(trimmed[first:last+1]), &payload); err != nil {
		return payload, false
	}
	if payload.Question == "" || len(payload.Options) != 4 ||
		payload.CorrectOptionIndex < 0 || payload.CorrectOptionIndex >= 4 {
		return payload, false
	}
	for _, opt := range payload.Options {
		if strings.TrimSpace(opt) == "" {
			return payload, false
		}
	}
	return payload, true
}

// fallbackQuestion builds a definition-matching question from the bank.
// Returns nil when the word has no definition to build on.
func (o *Orchestrator) fallbackQuestion(word models.VocabularyWord) *models.VocabQuestion {
	if word.Definition == "" {
		return nil
	}
	fallbacksTotal.With(prometheus.Labels{"stage": "vocab_question"}).Inc()

	distractors := o.bank.RandomDefinitions(word.Word, 3)
	for _, generic := range genericDistractors {
		if len(distractors) >= 3 {
			break
		}
		if generic != word.Definition {
			distractors = append(distractors, generic)
		}
	}

	options := append([]string{word.Definition}, distractors[:3]...)
	correct := 0

	o.rngLock.Lock()
	o.rng.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
		if correct == i {
			correct = j
		} else if correct == j {
			correct = i
		}
	})
	o.rngLock.Unlock()

	return &models.VocabQuestion{
		Word:               word.Word,
		PromptText:         o.renderStatic("vocab_question_text", map[string]string{"WORD": word.Word}),
		Options:            options,
		CorrectOptionIndex: correct,
	}
}

// handleAnswer evaluates the child's reply to a pending vocabulary question
// and resumes the current mode's flow.
func (o *Orchestrator) handleAnswer(ctx context.Context, state *models.SessionState, userMessage string) *TurnResult {
	q := state.PendingVocabQuestion
	state.PendingVocabQuestion = nil

	if !q.IsValid() {
		// Malformed question reference: reset just this sub-state and resume
		// from the nearest safe stage.
		o.logger.Warn("Invalid pending vocab question, resetting sub-state",
			zap.String("sessionId", state.SessionID))
		return o.resumeAfterAnswer(ctx, state, o.staticText("generic_retry"))
	}

	idx := parseAnswerIndex(userMessage, q.Options)
	correctOption := q.Options[q.CorrectOptionIndex]

	var feedback string
	if idx == q.CorrectOptionIndex {
		feedback = o.renderStatic("feedback_correct", map[string]string{
			"WORD":   q.Word,
			"ANSWER": correctOption,
		})
	} else {
		feedback = o.renderStatic("feedback_incorrect", map[string]string{
			"WORD":   q.Word,
			"ANSWER": correctOption,
		})
	}

	return o.resumeAfterAnswer(ctx, state, feedback)
}

// resumeAfterAnswer continues the conversation after question feedback,
// according to mode and phase.
func (o *Orchestrator) resumeAfterAnswer(ctx context.Context, state *models.SessionState, feedback string) *TurnResult {
	if state.Mode == models.ModeFacts {
		return o.afterFactAnswer(ctx, state, feedback)
	}

	switch state.Phase {
	case models.PhaseAwaitingTitle:
		return &TurnResult{ResponseText: joinParts(feedback, o.staticText("title_ask"))}
	case models.PhaseSessionComplete:
		return &TurnResult{ResponseText: joinParts(feedback, o.staticText("session_complete"))}
	default:
		return &TurnResult{ResponseText: joinParts(feedback, o.staticText("story_continue_ask"))}
	}
}

// parseAnswerIndex accepts "1"-"4", "a"-"d", or the option text itself.
// Anything unrecognized counts as an incorrect answer, never an error.
func parseAnswerIndex(message string, options []string) int {
	answer := strings.ToLower(strings.TrimSpace(message))
	if answer == "" {
		return -1
	}

	if n, err := strconv.Atoi(answer); err == nil && n >= 1 && n <= len(options) {
		return n - 1
	}
	if len(answer) == 1 && answer[0] >= 'a' && answer[0] < 'a'+byte(len(options)) {
		return int(answer[0] - 'a')
	}
	for i, opt := range options {
		if strings.EqualFold(strings.TrimSpace(opt), answer) {
			return i
		}
	}
	return -1
}
