package models

import "time"

// Mode selects which content loop a session is running.
type Mode string

const (
	ModeStory Mode = "story"
	ModeFacts Mode = "facts"
)

// IsValid reports whether the mode is one of the known values.
func (m Mode) IsValid() bool {
	return m == ModeStory || m == ModeFacts
}

// Phase is the orchestrator-level stage of a session.
type Phase string

const (
	PhaseAwaitingTopic        Phase = "awaiting_topic"
	PhaseAwaitingContinuation Phase = "awaiting_continuation"
	PhaseEntityDesign         Phase = "entity_design"
	PhaseAwaitingTitle        Phase = "awaiting_title"
	PhaseAwaitingTopicChange  Phase = "awaiting_topic_change"
	PhaseSessionComplete      Phase = "session_complete"
)

// EntityType distinguishes the kinds of story entities a child can design.
type EntityType string

const (
	EntityCharacter EntityType = "character"
	EntityLocation  EntityType = "location"
)

// Aspect is one descriptive dimension of an entity the child is asked about.
type Aspect string

const (
	AspectNaming      Aspect = "naming"
	AspectAppearance  Aspect = "appearance"
	AspectPersonality Aspect = "personality"
	AspectDreams      Aspect = "dreams"
	AspectSkills      Aspect = "skills"
	AspectFlaws       Aspect = "flaws"
	AspectSounds      Aspect = "sounds"
	AspectMood        Aspect = "mood"
)

// CharacterAspects and LocationAspects are the valid non-naming aspect sets
// per entity type.
var (
	CharacterAspects = []Aspect{AspectAppearance, AspectPersonality, AspectDreams, AspectSkills, AspectFlaws}
	LocationAspects  = []Aspect{AspectAppearance, AspectSounds, AspectMood}
)

// AspectsFor returns the valid non-naming aspects for an entity type.
func AspectsFor(t EntityType) []Aspect {
	if t == EntityLocation {
		return LocationAspects
	}
	return CharacterAspects
}

// DesignState tracks the naming/describing sub-flow for one entity.
// It is present on SessionState only while the sub-flow is active.
type DesignState struct {
	EntityType       EntityType `json:"entityType"`
	EntityDescriptor string     `json:"entityDescriptor"`
	// SourceDescriptor keeps the descriptor the entity was detected under.
	// EntityDescriptor changes once the child names the entity; matching
	// against cached metadata still needs the original.
	SourceDescriptor string `json:"sourceDescriptor,omitempty"`
	IsNamed          bool   `json:"isNamed"`
	CurrentAspect    Aspect     `json:"currentAspect"`
	AspectHistory    []Aspect   `json:"aspectHistory,omitempty"`
	Complete         bool       `json:"complete"`
}

// HasAspect reports whether the aspect was already used for this entity.
func (d *DesignState) HasAspect(a Aspect) bool {
	for _, h := range d.AspectHistory {
		if h == a {
			return true
		}
	}
	return false
}

// VocabQuestion is a pending multiple-choice question about one word.
// CorrectOptionIndex always points into Options, which has exactly 4 entries.
type VocabQuestion struct {
	Word               string   `json:"word"`
	PromptText         string   `json:"promptText"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex"`
}

// IsValid reports whether a question is structurally usable.
func (q *VocabQuestion) IsValid() bool {
	return q != nil && q.Word != "" && len(q.Options) == 4 &&
		q.CorrectOptionIndex >= 0 && q.CorrectOptionIndex < len(q.Options)
}

// SessionState is the full per-conversation state, round-tripped between the
// client and the server on every turn. The orchestrator owns all mutations.
type SessionState struct {
	SessionID       string   `json:"sessionId,omitempty"`
	Mode            Mode     `json:"mode"`
	Phase           Phase    `json:"phase"`
	Topic           string   `json:"topic,omitempty"`
	SuggestedTheme  string   `json:"suggestedTheme,omitempty"`
	TurnIndex       int      `json:"turnIndex"`
	StoryTurns      int      `json:"storyTurns"`
	StorySegments   []string `json:"storySegments,omitempty"`
	FactsShown      int      `json:"factsShown"`
	AskedVocabWords []string `json:"askedVocabWords,omitempty"`

	PendingVocabQuestion *VocabQuestion  `json:"pendingVocabQuestion,omitempty"`
	DesignState          *DesignState    `json:"designState,omitempty"`
	StoryMetadataCache   *EntityMetadata `json:"storyMetadataCache,omitempty"`
	DesignedEntities     []string        `json:"designedEntities,omitempty"`

	LastActiveAt time.Time `json:"lastActiveAt,omitempty"`
}

// NewSessionState returns a fresh state for the given mode.
func NewSessionState(mode Mode) *SessionState {
	return &SessionState{
		Mode:  mode,
		Phase: PhaseAwaitingTopic,
	}
}

// HasAskedWord reports whether the word was already used for a question
// in this session. Comparison is case-insensitive at the caller's choice;
// the set stores words exactly as asked.
func (s *SessionState) HasAskedWord(word string) bool {
	for _, w := range s.AskedVocabWords {
		if w == word {
			return true
		}
	}
	return false
}

// MarkWordAsked adds the word to the anti-repetition set. Words are never
// removed within a session.
func (s *SessionState) MarkWordAsked(word string) {
	if word == "" || s.HasAskedWord(word) {
		return
	}
	s.AskedVocabWords = append(s.AskedVocabWords, word)
}

// StoryLength is the total character length of all story segments.
func (s *SessionState) StoryLength() int {
	total := 0
	for _, seg := range s.StorySegments {
		total += len(seg)
	}
	return total
}

// WasDesigned reports whether the entity descriptor was already designed
// in the current story.
func (s *SessionState) WasDesigned(descriptor string) bool {
	for _, d := range s.DesignedEntities {
		if d == descriptor {
			return true
		}
	}
	return false
}
