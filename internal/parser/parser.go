package parser

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"

	"wordspark-server/internal/models"
)

// Parser turns raw LLM output into a structured ParsedResponse. It never
// returns an error: the upstream model is non-deterministic and malformed
// output must degrade, not crash the conversation.
type Parser struct{}

// NewParser creates a response Parser.
func NewParser() *Parser {
	return &Parser{}
}

// envelope is the strict-JSON shape the story prompts instruct the model
// to produce.
type envelope struct {
	Story    string                 `json:"story"`
	Metadata *models.EntityMetadata `json:"metadata"`
}

var boldRe = regexp.MustCompile(`\*\*(.+?)\*\*`)

// Parse extracts bolded vocabulary and entity metadata from raw output.
//
// Parse tiers:
//  1. the whole output is a JSON envelope {story, metadata};
//  2. a JSON block is embedded in surrounding prose;
//  3. JSON-like text is present but unparseable -> MalformedJSON;
//  4. no JSON at all -> Empty, narrative-only response.
func (p *Parser) Parse(raw string) models.ParsedResponse {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return models.ParsedResponse{ParseStatus: models.ParseEmpty}
	}

	firstBrace := strings.Index(trimmed, "{")
	if firstBrace < 0 {
		return models.ParsedResponse{
			NarrativeText: trimmed,
			BoldedWords:   extractBoldedWords(trimmed),
			ParseStatus:   models.ParseEmpty,
		}
	}

	// Tier 1: the whole output is the envelope.
	if env, ok := parseEnvelope(trimmed); ok {
		narrative := strings.TrimSpace(env.Story)
		return models.ParsedResponse{
			NarrativeText:  narrative,
			BoldedWords:    extractBoldedWords(narrative),
			EntityMetadata: env.Metadata,
			ParseStatus:    models.ParseSuccess,
		}
	}

	// Tier 2: a JSON block embedded in prose.
	lastBrace := strings.LastIndex(trimmed, "}")
	if lastBrace > firstBrace {
		block := trimmed[firstBrace : lastBrace+1]
		if env, ok := parseEnvelope(block); ok {
			narrative := strings.TrimSpace(trimmed[:firstBrace] + trimmed[lastBrace+1:])
			if env.Story != "" {
				if narrative != "" {
					narrative = narrative + "\n" + strings.TrimSpace(env.Story)
				} else {
					narrative = strings.TrimSpace(env.Story)
				}
			}
			return models.ParsedResponse{
				NarrativeText:  narrative,
				BoldedWords:    extractBoldedWords(narrative),
				EntityMetadata: env.Metadata,
				ParseStatus:    models.ParseSuccess,
			}
		}

		// Tier 3: JSON-like text present but unusable. Keep the prose around
		// the failed block as best-effort narrative.
		narrative := strings.TrimSpace(trimmed[:firstBrace] + trimmed[lastBrace+1:])
		if narrative == "" {
			narrative = trimmed
		}
		return models.ParsedResponse{
			NarrativeText: narrative,
			BoldedWords:   extractBoldedWords(narrative),
			ParseStatus:   models.ParseMalformedJSON,
		}
	}

	// A lone opening brace with no closing one.
	return models.ParsedResponse{
		NarrativeText: trimmed,
		BoldedWords:   extractBoldedWords(trimmed),
		ParseStatus:   models.ParseMalformedJSON,
	}
}

// parseEnvelope attempts a strict unmarshal of text into the expected
// envelope (or a bare metadata object) and validates the shape.
func parseEnvelope(text string) (envelope, bool) {
	var env envelope
	if err := json.Unmarshal([]byte(text), &env); err == nil {
		if env.Story != "" || !env.Metadata.IsEmpty() {
			return env, true
		}
	}

	// Some responses carry the metadata object alone, without the envelope.
	var meta models.EntityMetadata
	if err := json.Unmarshal([]byte(text), &meta); err == nil && !meta.IsEmpty() {
		return envelope{Metadata: &meta}, true
	}

	return envelope{}, false
}

// extractBoldedWords returns all **bolded** spans in appearance order with
// duplicates removed. Surrounding punctuation is stripped; letter case is
// preserved because proper-noun filtering downstream depends on it.
func extractBoldedWords(text string) []string {
	matches := boldRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	words := make([]string, 0, len(matches))
	for _, m := range matches {
		word := strings.TrimFunc(m[1], func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSpace(r)
		})
		if word == "" {
			continue
		}
		key := strings.ToLower(word)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		words = append(words, word)
	}
	if len(words) == 0 {
		return nil
	}
	return words
}

// entityCue phrases that suggest a capitalized bolded word is actually a
// story entity. Used only for heuristic repair of malformed metadata.
var characterCues = []string{"named", "called", "meet", "met", "friend"}
var locationCues = []string{"in", "at", "to", "near", "inside"}

// RepairEntities attempts to infer a single entity from malformed metadata
// output: a capitalized bolded word adjacent to entity-indicating phrasing.
// Best effort only; returns nil when nothing looks like an entity.
func RepairEntities(narrative string, boldedWords []string) *models.EntityMetadata {
	if narrative == "" || len(boldedWords) == 0 {
		return nil
	}
	lowered := strings.ToLower(narrative)

	for _, word := range boldedWords {
		runes := []rune(word)
		if len(runes) == 0 || !unicode.IsUpper(runes[0]) {
			continue
		}
		idx := strings.Index(lowered, strings.ToLower(word))
		if idx < 0 {
			continue
		}
		// Look at the few words immediately before the candidate.
		prefixStart := idx - 40
		if prefixStart < 0 {
			prefixStart = 0
		}
		// Bold markers sit between the cue and the word; drop them so the
		// cue checks see plain prose.
		prefix := strings.ReplaceAll(lowered[prefixStart:idx], "*", "")

		for _, cue := range characterCues {
			if containsWord(prefix, cue) {
				return &models.EntityMetadata{
					Characters: models.EntityGroup{Named: []string{word}},
				}
			}
		}
		for _, cue := range locationCues {
			if strings.HasSuffix(strings.TrimSpace(prefix), " "+cue) || strings.TrimSpace(prefix) == cue {
				return &models.EntityMetadata{
					Locations: models.EntityGroup{Named: []string{word}},
				}
			}
		}
	}
	return nil
}

func containsWord(text, word string) bool {
	for _, f := range strings.Fields(text) {
		if strings.Trim(f, ".,!?;:") == word {
			return true
		}
	}
	return false
}
