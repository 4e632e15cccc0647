package topic

import "strings"

// Resolution is the result of mapping free child input to a topic.
type Resolution struct {
	Tag   string
	Theme string
}

// defaultTheme is used for free topics that match no known tag.
const defaultTheme = "a fun adventure"

// topicKeywords maps a topic tag to trigger keywords matched as
// case-insensitive substrings. First matching tag wins.
var topicKeywords = []struct {
	tag      string
	theme    string
	keywords []string
}{
	{"space", "an exciting journey among the stars", []string{"space", "planet", "astronaut", "rocket", "star", "moon", "galaxy"}},
	{"animals", "amazing creatures big and small", []string{"animal", "dog", "cat", "lion", "tiger", "elephant", "bird", "dinosaur", "pet"}},
	{"ocean", "mysteries deep under the sea", []string{"ocean", "sea", "fish", "shark", "whale", "dolphin", "underwater", "coral"}},
	{"sports", "teamwork and thrilling games", []string{"sport", "soccer", "football", "basketball", "baseball", "tennis", "swimming"}},
	{"nature", "the wonders of the natural world", []string{"nature", "forest", "tree", "flower", "mountain", "river", "volcano", "weather"}},
	{"science", "cool discoveries and experiments", []string{"science", "robot", "invention", "experiment", "chemistry", "magnet", "electricity"}},
}

// continuationPhrases are explicit "keep going on this topic" requests.
var continuationPhrases = []string{
	"same topic",
	"more",
	"keep going",
	"this topic",
	"continue",
	"again",
}

// Resolver maps free-text child input to a known topic tag, or passes the
// text through verbatim as a free topic.
type Resolver struct{}

// NewResolver creates a topic Resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve maps user text to a topic tag plus a theme suggestion.
func (r *Resolver) Resolve(userText string) Resolution {
	lowered := strings.ToLower(strings.TrimSpace(userText))
	for _, t := range topicKeywords {
		for _, kw := range t.keywords {
			if strings.Contains(lowered, kw) {
				return Resolution{Tag: t.tag, Theme: t.theme}
			}
		}
	}
	return Resolution{Tag: strings.TrimSpace(userText), Theme: defaultTheme}
}

// IsSameTopicRequest reports whether the text asks to stay on the current
// topic: either an explicit continuation phrase, or text that itself
// resolves to the current topic tag.
func (r *Resolver) IsSameTopicRequest(userText, currentTopic string) bool {
	if currentTopic == "" {
		return false
	}
	lowered := strings.ToLower(strings.TrimSpace(userText))
	for _, phrase := range continuationPhrases {
		// Single-word phrases must match exactly ("again" must not fire on
		// "against"); multi-word phrases may appear anywhere in the text.
		if lowered == phrase {
			return true
		}
		if strings.Contains(phrase, " ") && strings.Contains(lowered, phrase) {
			return true
		}
	}
	return strings.EqualFold(r.Resolve(userText).Tag, currentTopic)
}
