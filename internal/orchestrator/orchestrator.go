package orchestrator

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"wordspark-server/internal/config"
	"wordspark-server/internal/content"
	"wordspark-server/internal/design"
	"wordspark-server/internal/models"
	"wordspark-server/internal/parser"
	"wordspark-server/internal/prompt"
	"wordspark-server/internal/topic"
	"wordspark-server/internal/vocab"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"go.uber.org/zap"

	aiservice "wordspark-server/internal/service"
)

var (
	turnsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordspark_turns_total",
			Help: "Total number of conversation turns handled.",
		},
		[]string{"mode", "stage"},
	)
	fallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wordspark_fallbacks_total",
			Help: "Total number of deterministic fallbacks substituted for LLM output.",
		},
		[]string{"stage"},
	)
)

// TurnResult is what one handled turn produces for the client.
type TurnResult struct {
	ResponseText   string
	VocabQuestion  *models.VocabQuestion
	SuggestedTheme string
}

// Orchestrator is the top-level turn controller. Given the current session
// state and one user message it decides the next action, delegates to the
// vocabulary bank, prompt assembler, parser and design controller, and
// mutates the state. Every LLM-dependent step has a deterministic fallback:
// the conversation must always advance.
type Orchestrator struct {
	cfg       *config.Config
	ai        aiservice.AIClient
	bank      *vocab.Bank
	resolver  *topic.Resolver
	assembler *prompt.Assembler
	parser    *parser.Parser
	designer  *design.Controller
	provider  *content.Provider
	logger    *zap.Logger

	rngLock sync.Mutex
	rng     *rand.Rand

	now func() time.Time
}

// NewOrchestrator creates a TurnOrchestrator with all collaborators wired.
func NewOrchestrator(
	cfg *config.Config,
	ai aiservice.AIClient,
	bank *vocab.Bank,
	resolver *topic.Resolver,
	assembler *prompt.Assembler,
	respParser *parser.Parser,
	designer *design.Controller,
	provider *content.Provider,
	logger *zap.Logger,
) *Orchestrator {
	if cfg == nil {
		log.Fatal().Msg("Config is nil for Orchestrator")
	}
	if ai == nil {
		log.Fatal().Msg("AIClient is nil for Orchestrator")
	}
	if bank == nil {
		log.Fatal().Msg("VocabularyBank is nil for Orchestrator")
	}
	if logger == nil {
		log.Fatal().Msg("Logger is nil for Orchestrator")
	}
	return &Orchestrator{
		cfg:       cfg,
		ai:        ai,
		bank:      bank,
		resolver:  resolver,
		assembler: assembler,
		parser:    respParser,
		designer:  designer,
		provider:  provider,
		logger:    logger.Named("TurnOrchestrator"),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
}

// SeedRand pins the orchestrator's RNG (option shuffling). Test hook.
func (o *Orchestrator) SeedRand(seed int64) {
	o.rngLock.Lock()
	o.rng = rand.New(rand.NewSource(seed))
	o.rngLock.Unlock()
}

// HandleTurn processes one user turn. The returned state pointer is the
// same one passed in (or a fresh state when nil); it is mutated in place.
// The error return is reserved for programmer-level misuse; conversational
// failures never surface as errors.
func (o *Orchestrator) HandleTurn(ctx context.Context, state *models.SessionState, userMessage string, mode models.Mode) (*models.SessionState, *TurnResult, error) {
	if !mode.IsValid() {
		mode = models.ModeStory
	}
	if state == nil {
		state = models.NewSessionState(mode)
	}
	if state.SessionID == "" {
		state.SessionID = uuid.NewString()
	}

	// Switching modes mid-session starts a new arc but keeps the
	// anti-repetition set: a word asked in facts mode stays asked.
	if state.Mode != mode {
		o.logger.Info("Mode switched, starting new arc",
			zap.String("sessionId", state.SessionID),
			zap.String("from", string(state.Mode)),
			zap.String("to", string(mode)))
		o.resetArc(state)
		state.Mode = mode
	}

	now := o.now()
	if !state.LastActiveAt.IsZero() && now.Sub(state.LastActiveAt) > o.cfg.SessionIdleTimeout {
		o.logger.Info("Session idle timeout, resetting turn counters",
			zap.String("sessionId", state.SessionID),
			zap.Duration("idle", now.Sub(state.LastActiveAt)))
		state.TurnIndex = 0
		state.StoryTurns = 0
	}
	state.LastActiveAt = now
	state.TurnIndex++

	userMessage = strings.TrimSpace(userMessage)

	var result *TurnResult
	switch {
	case state.PendingVocabQuestion != nil:
		turnsTotal.With(prometheus.Labels{"mode": string(mode), "stage": "answer"}).Inc()
		result = o.handleAnswer(ctx, state, userMessage)
	case state.DesignState != nil:
		turnsTotal.With(prometheus.Labels{"mode": string(mode), "stage": "design"}).Inc()
		result = o.handleDesignTurn(ctx, state, userMessage)
	default:
		turnsTotal.With(prometheus.Labels{"mode": string(mode), "stage": string(state.Phase)}).Inc()
		result = o.handlePhase(ctx, state, userMessage)
	}

	if result == nil {
		// Should not happen; keep the conversation advanceable regardless.
		result = &TurnResult{ResponseText: o.staticText("generic_retry")}
	}
	result.SuggestedTheme = state.SuggestedTheme
	return state, result, nil
}

func (o *Orchestrator) handlePhase(ctx context.Context, state *models.SessionState, userMessage string) *TurnResult {
	switch state.Phase {
	case "", models.PhaseAwaitingTopic:
		return o.handleTopic(ctx, state, userMessage)
	case models.PhaseAwaitingContinuation:
		if state.Mode == models.ModeFacts {
			// Facts mode without a pending question means the previous
			// question was dropped; just produce the next fact.
			return o.nextFact(ctx, state, "")
		}
		return o.handleStoryContinuation(ctx, state, userMessage)
	case models.PhaseEntityDesign:
		// The design sub-state is gone but the story is intact; resume it.
		state.Phase = models.PhaseAwaitingContinuation
		return o.handleStoryContinuation(ctx, state, userMessage)
	case models.PhaseAwaitingTitle:
		return o.handleTitle(ctx, state, userMessage)
	case models.PhaseAwaitingTopicChange:
		return o.handleTopicChange(ctx, state, userMessage)
	case models.PhaseSessionComplete:
		// A finished arc; a new message starts the next one.
		o.resetArc(state)
		return o.handleTopic(ctx, state, userMessage)
	default:
		o.logger.Warn("Unknown session phase, resetting to topic selection",
			zap.String("sessionId", state.SessionID),
			zap.String("phase", string(state.Phase)))
		o.resetArc(state)
		return o.handleTopic(ctx, state, userMessage)
	}
}

// handleTopic resolves the child's topic and produces the first content
// unit for the current mode.
func (o *Orchestrator) handleTopic(ctx context.Context, state *models.SessionState, userMessage string) *TurnResult {
	if userMessage == "" {
		return &TurnResult{ResponseText: o.staticText("topic_ask")}
	}

	res := o.resolver.Resolve(userMessage)
	state.Topic = res.Tag
	state.SuggestedTheme = res.Theme

	if state.Mode == models.ModeFacts {
		return o.nextFact(ctx, state, "")
	}
	return o.openStory(ctx, state)
}

// resetArc clears per-arc state while preserving the anti-repetition set
// and session identity.
func (o *Orchestrator) resetArc(state *models.SessionState) {
	state.Topic = ""
	state.SuggestedTheme = ""
	state.Phase = models.PhaseAwaitingTopic
	state.StorySegments = nil
	state.StoryTurns = 0
	state.FactsShown = 0
	state.PendingVocabQuestion = nil
	state.DesignState = nil
	state.StoryMetadataCache = nil
	state.DesignedEntities = nil
}

// excludedSet returns the asked-words set in the lowercase form the bank
// filters by.
func excludedSet(state *models.SessionState) map[string]struct{} {
	set := make(map[string]struct{}, len(state.AskedVocabWords))
	for _, w := range state.AskedVocabWords {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

// generate runs one LLM call and parses the result. ok is false when the
// call failed or returned nothing usable; callers then apply the stage
// fallback.
func (o *Orchestrator) generate(ctx context.Context, assembled prompt.Assembled) (models.ParsedResponse, bool) {
	raw, _, err := o.ai.GenerateText(ctx, assembled.SystemPrompt, assembled.UserInput, aiservice.GenerationParams{})
	if err != nil {
		o.logger.Warn("LLM call failed, applying fallback", zap.Error(err))
		return models.ParsedResponse{}, false
	}
	parsed := o.parser.Parse(raw)
	if strings.TrimSpace(parsed.NarrativeText) == "" {
		o.logger.Warn("LLM response had no usable narrative, applying fallback",
			zap.String("parseStatus", string(parsed.ParseStatus)))
		return parsed, false
	}
	return parsed, true
}
