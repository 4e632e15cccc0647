package config

import (
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the configuration for the WordSpark service.
type Config struct {
	// Server settings
	Port     string `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// AI client settings
	AIClientType string        `envconfig:"AI_CLIENT_TYPE" default:"openai"`
	AIBaseURL    string        `envconfig:"AI_BASE_URL" default:"https://api.openai.com/v1"`
	AIAPIKey     string        `envconfig:"AI_API_KEY"`
	AIModel      string        `envconfig:"AI_MODEL" default:"gpt-4o-mini"`
	AITimeout    time.Duration `envconfig:"AI_TIMEOUT" default:"45s"`

	// Content settings
	PromptsDir string `envconfig:"PROMPTS_DIR" default:"prompts"`
	VocabDir   string `envconfig:"VOCAB_DIR" default:"data"`

	// Conversation tuning
	SessionIdleTimeout time.Duration `envconfig:"SESSION_IDLE_TIMEOUT" default:"30m"`
	FactsPerTopic      int           `envconfig:"FACTS_PER_TOPIC" default:"3"`
	StoryMinTurns      int           `envconfig:"STORY_MIN_TURNS" default:"3"`
	StoryMinLength     int           `envconfig:"STORY_MIN_LENGTH" default:"400"`
	StoryMaxTurns      int           `envconfig:"STORY_MAX_TURNS" default:"6"`
	AspectsPerEntity   int           `envconfig:"ASPECTS_PER_ENTITY" default:"1"`
	VocabOfferCount    int           `envconfig:"VOCAB_OFFER_COUNT" default:"6"`
}

// LoadConfig loads the configuration from environment variables.
func LoadConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load wordspark-server configuration: %w", err)
	}

	log.Printf("WordSpark configuration loaded:")
	log.Printf("  Port: %s", cfg.Port)
	log.Printf("  LogLevel: %s", cfg.LogLevel)
	log.Printf("  AI Client Type: %s", cfg.AIClientType)
	log.Printf("  AI Base URL: %s", cfg.AIBaseURL)
	log.Printf("  AI Model: %s", cfg.AIModel)
	log.Printf("  AI Timeout: %v", cfg.AITimeout)
	log.Printf("  Prompts Dir: %s", cfg.PromptsDir)
	log.Printf("  Vocab Dir: %s", cfg.VocabDir)
	log.Printf("  Session Idle Timeout: %v", cfg.SessionIdleTimeout)
	log.Printf("  Facts Per Topic: %d", cfg.FactsPerTopic)
	log.Printf("  Story Turns: min=%d max=%d minLength=%d", cfg.StoryMinTurns, cfg.StoryMaxTurns, cfg.StoryMinLength)
	if cfg.AIAPIKey != "" {
		log.Println("  AI API Key: [LOADED]")
	}

	return &cfg, nil
}
