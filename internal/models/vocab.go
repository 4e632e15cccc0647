package models

// VocabularyWord is one curated word record. The bank that holds these is
// loaded once at startup and never mutated afterwards.
type VocabularyWord struct {
	Word            string `json:"word"`
	Definition      string `json:"definition"`
	DifficultyTier  int    `json:"difficultyTier"` // 2 or 3
	ExampleSentence string `json:"exampleSentence,omitempty"`
	TopicAffinity   string `json:"topicAffinity,omitempty"`
}
