package service_test

import (
	"testing"
	"time"

	"wordspark-server/internal/config"
	"wordspark-server/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAIClient_Factory(t *testing.T) {
	base := config.Config{
		AIBaseURL: "http://localhost:11434/v1",
		AIModel:   "test-model",
		AITimeout: 5 * time.Second,
	}

	t.Run("openai", func(t *testing.T) {
		cfg := base
		cfg.AIClientType = "openai"
		client, err := service.NewAIClient(&cfg)
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("ollama", func(t *testing.T) {
		cfg := base
		cfg.AIClientType = "Ollama"
		client, err := service.NewAIClient(&cfg)
		require.NoError(t, err)
		assert.NotNil(t, client)
	})

	t.Run("unknown type", func(t *testing.T) {
		cfg := base
		cfg.AIClientType = "anthropic"
		client, err := service.NewAIClient(&cfg)
		require.Error(t, err)
		assert.Nil(t, client)
	})
}
