package models

// ParseStatus classifies the outcome of parsing one LLM response.
type ParseStatus string

const (
	ParseSuccess       ParseStatus = "success"
	ParseMalformedJSON ParseStatus = "malformed_json"
	ParseEmpty         ParseStatus = "empty"
)

// EntityGroup splits detected entities into already-named and unnamed ones.
type EntityGroup struct {
	Named   []string `json:"named"`
	Unnamed []string `json:"unnamed"`
}

// EntityMetadata is the structured entity block an LLM story response may
// carry alongside the narrative.
type EntityMetadata struct {
	Characters EntityGroup `json:"characters"`
	Locations  EntityGroup `json:"locations"`
}

// IsEmpty reports whether no entity of any kind was detected.
func (m *EntityMetadata) IsEmpty() bool {
	if m == nil {
		return true
	}
	return len(m.Characters.Named) == 0 && len(m.Characters.Unnamed) == 0 &&
		len(m.Locations.Named) == 0 && len(m.Locations.Unnamed) == 0
}

// ParsedResponse is the structured result of parsing raw LLM output.
// BoldedWords keep appearance order with duplicates removed; letter case is
// preserved because downstream word selection depends on it.
type ParsedResponse struct {
	NarrativeText  string
	BoldedWords    []string
	EntityMetadata *EntityMetadata
	ParseStatus    ParseStatus
}
