package orchestrator

import (
	"strings"

	"wordspark-server/internal/models"

	"go.uber.org/zap"
)

// Deterministic, pre-authored content used whenever the LLM call fails or
// returns unusable output. Everything here keeps the bold-marker convention
// so vocabulary question selection still works on fallback turns.

var fallbackOpenings = map[string]string{
	"space":   "Far above the clouds, a young explorer floated in a shiny rocket. Through the window, every **planet** glowed like a marble, and the **enormous** sun painted the darkness gold. Somewhere out there, an adventure was waiting.",
	"animals": "Deep in the green jungle, a **curious** little monkey swung from branch to branch. Below, a parade of **magnificent** animals marched toward the great watering hole, where something surprising was about to happen.",
	"ocean":   "Beneath the sparkling waves, a brave little fish darted through a **vibrant** coral garden. The water hummed with secrets, and an **ancient** shipwreck rested in the blue shadows below.",
	"sports":  "The crowd cheered as the big game began. Our hero laced up their shoes, took a **confident** breath, and remembered what coach always said: **teamwork** wins when talent alone cannot.",
}

var fallbackFacts = map[string]string{
	"space":   "Did you know? One day on Venus is longer than its whole year! Venus spins so **slowly** that it finishes circling the sun before it finishes one **rotation**.",
	"animals": "Did you know? An octopus has three hearts and blue blood! When it swims fast, one heart **pauses**, which is why octopuses prefer to **glide** along the sea floor.",
	"ocean":   "Did you know? The ocean's deepest point, the Mariana Trench, is so **immense** that Mount Everest would fit inside with room to spare. Sunlight cannot **penetrate** that far down.",
	"sports":  "Did you know? A soccer ball is stitched from 32 panels, and players can run an **astonishing** 11 kilometers in one match. That takes serious **endurance**!",
}

const (
	fallbackGenericOpening      = "Once upon a time, a **curious** young hero set off on a **remarkable** adventure. The morning sky was bright, the path was wide, and anything felt possible."
	fallbackGenericFact         = "Did you know? Honey never spoils! Archaeologists found pots of honey in ancient tombs that were still **edible** after three thousand years. Bees are truly **remarkable**."
	fallbackGenericContinuation = "And then, something **unexpected** happened. A soft rumble rolled across the ground, and our hero felt **determined** to find out what it was."
	fallbackGenericEnding       = "At last, the adventure came to a happy end. Our hero headed home, tired but **triumphant**, carrying a story nobody would ever forget."
)

var genericDistractors = []string{
	"a kind of weather",
	"a very small number",
	"a place to keep books",
}

// staticDefaults are the last-resort strings for every stage, used when the
// content store has no entry. These keep the bot in character even on a
// configuration defect.
var staticDefaults = map[string]string{
	"topic_ask":           "What would you like to hear about today? You can pick anything - space, animals, the ocean, sports, or something all your own!",
	"story_continue_ask":  "What happens next? Tell me your idea and we'll keep the story going!",
	"fact_more_ask":       "Want to hear another one?",
	"topic_change_offer":  "We've learned so much about this! Want to pick a new topic, or should we keep going with this one?",
	"title_ask":           "What a story! Every great story needs a name. What should we call ours?",
	"title_congrats":      "\"{{TITLE}}\" - I love it! You're a real author now.",
	"session_complete":    "That was wonderful! Come back any time and we'll make another story together.",
	"feedback_correct":    "That's right! **{{WORD}}** means \"{{ANSWER}}\". Great job!",
	"feedback_incorrect":  "Good try! **{{WORD}}** actually means \"{{ANSWER}}\". Now you know a brand-new word!",
	"vocab_question_text": "Quick word check! What does **{{WORD}}** mean?",
	"design_name_ack":     "{{NAME}} - what a great name!",
	"design_encourage":    "I love that idea! You described it beautifully.",
	"generic_retry":       "Hmm, let's try that again! Tell me what you'd like to do next.",
}

// fallbackDesignQuestions keyed by aspect (naming variants by entity type).
var fallbackDesignQuestions = map[models.Aspect]string{
	models.AspectAppearance:  "What does {{ENTITY}} look like? Tell me about colors, size, anything you can imagine!",
	models.AspectPersonality: "What kind of personality does {{ENTITY}} have? Brave? Silly? Shy?",
	models.AspectDreams:      "What does {{ENTITY}} dream about more than anything?",
	models.AspectSkills:      "What is {{ENTITY}} really, really good at?",
	models.AspectFlaws:       "Nobody's perfect! What does {{ENTITY}} find hard to do?",
	models.AspectSounds:      "If you stood in {{ENTITY}}, what sounds would you hear?",
	models.AspectMood:        "How does it feel to be in {{ENTITY}}? Cozy? Spooky? Exciting?",
}

const (
	fallbackNamingCharacter = "Our story has a new character: {{ENTITY}}! What should we name them? Maybe Luna, Max, or Zara - or invent your own!"
	fallbackNamingLocation  = "We've discovered a new place: {{ENTITY}}! What should we call it? Maybe Crystal Cove, Thunder Peak - or make up a name!"
)

// staticText returns a bot string for a key: the content store's version
// when loaded, the built-in default otherwise.
func (o *Orchestrator) staticText(key string) string {
	return o.renderStatic(key, nil)
}

// renderStatic renders a static string with placeholder substitution,
// falling back to the built-in default when the store has no entry. A store
// miss for a known key is a configuration defect worth logging, never a
// failed turn.
func (o *Orchestrator) renderStatic(key string, placeholders map[string]string) string {
	text, err := o.provider.Render(key, placeholders)
	if err != nil {
		def, ok := staticDefaults[key]
		if !ok {
			o.logger.Error("No content or default for key", zap.String("key", key))
			return staticDefaults["generic_retry"]
		}
		text = def
		for name, value := range placeholders {
			text = strings.ReplaceAll(text, "{{"+name+"}}", value)
		}
	}
	return text
}

func (o *Orchestrator) fallbackOpening(topicTag string) string {
	if text, ok := fallbackOpenings[strings.ToLower(topicTag)]; ok {
		return text
	}
	return fallbackGenericOpening
}

func (o *Orchestrator) fallbackFact(topicTag string) string {
	if text, ok := fallbackFacts[strings.ToLower(topicTag)]; ok {
		return text
	}
	return fallbackGenericFact
}

func (o *Orchestrator) fallbackContinuation(topicTag string) string {
	return fallbackGenericContinuation
}

func (o *Orchestrator) fallbackEnding(topicTag string) string {
	return fallbackGenericEnding
}

func (o *Orchestrator) fallbackDesignContinuation(entityName string) string {
	return "And so " + entityName + " joined the adventure! Together they pressed on, feeling **courageous** and ready for whatever **mysterious** thing waited around the corner."
}

func (o *Orchestrator) fallbackDesignQuestion(ds *models.DesignState) string {
	var text string
	if ds.CurrentAspect == models.AspectNaming {
		if ds.EntityType == models.EntityLocation {
			text = fallbackNamingLocation
		} else {
			text = fallbackNamingCharacter
		}
	} else {
		var ok bool
		text, ok = fallbackDesignQuestions[ds.CurrentAspect]
		if !ok {
			text = fallbackDesignQuestions[models.AspectAppearance]
		}
	}
	return strings.ReplaceAll(text, "{{ENTITY}}", ds.EntityDescriptor)
}
