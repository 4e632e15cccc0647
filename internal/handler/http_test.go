package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wordspark-server/internal/config"
	"wordspark-server/internal/content"
	"wordspark-server/internal/design"
	"wordspark-server/internal/handler"
	"wordspark-server/internal/mocks"
	"wordspark-server/internal/models"
	"wordspark-server/internal/orchestrator"
	"wordspark-server/internal/parser"
	"wordspark-server/internal/prompt"
	"wordspark-server/internal/service"
	"wordspark-server/internal/topic"
	"wordspark-server/internal/vocab"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRouter(t *testing.T) (*gin.Engine, *mocks.MockAIClient) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ai := mocks.NewMockAIClient(t)

	provider := content.NewProvider(zap.NewNop())
	provider.Set("fact", "One fact about {{TOPIC}}:\n{{VOCAB_WORDS}}")
	provider.Set("vocab_question", "Quiz word {{WORD}} ({{DEFINITION}})")

	words := []models.VocabularyWord{
		{Word: "orbit", Definition: "the path around a planet or star", DifficultyTier: 2, TopicAffinity: "space"},
		{Word: "luminous", Definition: "giving off light", DifficultyTier: 3, TopicAffinity: "space"},
		{Word: "brave", Definition: "ready to face something scary", DifficultyTier: 2},
		{Word: "curious", Definition: "wanting to know about something", DifficultyTier: 2},
	}

	cfg := &config.Config{
		SessionIdleTimeout: 30 * time.Minute,
		FactsPerTopic:      3,
		StoryMinTurns:      3,
		StoryMinLength:     400,
		StoryMaxTurns:      6,
		AspectsPerEntity:   1,
		VocabOfferCount:    4,
	}

	orch := orchestrator.NewOrchestrator(
		cfg,
		ai,
		vocab.NewBankFromWords(words, 1),
		topic.NewResolver(),
		prompt.NewAssembler(provider, zap.NewNop()),
		parser.NewParser(),
		design.NewController(1, zap.NewNop()),
		provider,
		zap.NewNop(),
	)

	r := gin.New()
	handler.NewChatHandler(orch, zap.NewNop()).RegisterRoutes(r)
	return r, ai
}

func postChat(t *testing.T, r *gin.Engine, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleChat_FactsTurn(t *testing.T) {
	r, ai := newTestRouter(t)

	factText := "Did you know? Moons **orbit** planets and can look **luminous** at night. Which moon is biggest?"
	questionJSON := `{"question":"What does orbit mean?","options":["the path around a planet or star","a kind of weather","a very small number","a place to keep books"],"correctOptionIndex":0}`
	ai.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(factText, service.UsageInfo{}, nil).Once()
	ai.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(questionJSON, service.UsageInfo{}, nil).Once()

	w := postChat(t, r, handler.ChatRequest{Message: "space", Mode: "facts"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp handler.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.Contains(t, resp.ResponseText, "**orbit**")
	require.NotNil(t, resp.VocabQuestion)
	assert.Len(t, resp.VocabQuestion.Options, 4)
	assert.Equal(t, 0, resp.VocabQuestion.CorrectOptionIndex)

	require.NotNil(t, resp.SessionState)
	assert.NotEmpty(t, resp.SessionState.SessionID)
	assert.Equal(t, []string{"orbit"}, resp.SessionState.AskedVocabWords)

	ai.AssertExpectations(t)
}

func TestHandleChat_StateRoundTrip(t *testing.T) {
	r, ai := newTestRouter(t)

	ai.On("GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return("", service.UsageInfo{}, errors.New("llm down"))

	// First turn starts the session.
	w := postChat(t, r, handler.ChatRequest{Message: "space", Mode: "facts"})
	require.Equal(t, http.StatusOK, w.Code)
	var first handler.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	require.NotNil(t, first.SessionState)

	// Second turn carries the returned state back.
	w = postChat(t, r, handler.ChatRequest{
		Message:      "1",
		Mode:         "facts",
		SessionState: first.SessionState,
	})
	require.Equal(t, http.StatusOK, w.Code)
	var second handler.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))

	require.NotNil(t, second.SessionState)
	assert.Equal(t, first.SessionState.SessionID, second.SessionState.SessionID)
	assert.GreaterOrEqual(t, second.SessionState.TurnIndex, 2)
}

func TestHandleChat_InvalidRequests(t *testing.T) {
	r, _ := newTestRouter(t)

	t.Run("missing mode", func(t *testing.T) {
		w := postChat(t, r, map[string]string{"message": "space"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown mode", func(t *testing.T) {
		w := postChat(t, r, map[string]string{"message": "space", "mode": "quiz"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader([]byte("{not json")))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
